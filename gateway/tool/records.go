package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 200
)

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*$`)

// enforceQueryLimit appends a default LIMIT to unbounded queries and rejects
// limits above the cap. Ad-hoc queries from the agent must never pull an
// unbounded result set.
func enforceQueryLimit(query string) (string, error) {
	m := limitClause.FindStringSubmatch(query)
	if m == nil {
		return fmt.Sprintf("%s LIMIT %d", query, defaultQueryLimit), nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > maxQueryLimit {
		return "", fmt.Errorf("%w: LIMIT must be between 1 and %d", contractx.ErrInvalidArgument, maxQueryLimit)
	}
	return query, nil
}

// QueryTool runs an ad-hoc read-only SOQL query. Operator tool.
type QueryTool struct {
	records contractx.RecordStore
	timeout time.Duration
}

func NewQueryTool(records contractx.RecordStore, cfg Config) *QueryTool {
	return &QueryTool{records: records, timeout: cfg.OperationTimeout}
}

func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("query_salesforce",
		mcp.WithDescription(fmt.Sprintf("Run a read-only SOQL query against the CRM. Results are capped: a query without a LIMIT gets LIMIT %d, and LIMIT above %d is rejected.", defaultQueryLimit, maxQueryLimit)),
		mcp.WithString("query", mcp.Required(), mcp.Description("SOQL SELECT statement")),
	)
}

func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query, err = enforceQueryLimit(query)
	if err != nil {
		return failureResult("query_salesforce", err)
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	records, err := t.records.Query(ctx, query)
	if err != nil {
		return failureResult("query_salesforce", err)
	}

	return jsonResult(map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// CreateRecordsTool creates CRM records in bulk. Operator tool.
type CreateRecordsTool struct {
	records contractx.RecordStore
	timeout time.Duration
}

func NewCreateRecordsTool(records contractx.RecordStore, cfg Config) *CreateRecordsTool {
	return &CreateRecordsTool{records: records, timeout: cfg.OperationTimeout}
}

func (t *CreateRecordsTool) Definition() mcp.Tool {
	return mcp.NewTool("create_records",
		mcp.WithDescription("Create one or more CRM records of a given object type. The records argument is a JSON array of field maps."),
		mcp.WithString("objectType", mcp.Required(), mcp.Description("API name of the object, e.g. Document__c")),
		mcp.WithString("records", mcp.Required(), mcp.Description(`JSON array of records, e.g. [{"Name": "..."}]`)),
	)
}

func (t *CreateRecordsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType, err := req.RequireString("objectType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawRecords, err := req.RequireString("records")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var fieldMaps []map[string]any
	if err := json.Unmarshal([]byte(rawRecords), &fieldMaps); err != nil {
		return mcp.NewToolResultError("records must be a JSON array of objects: " + err.Error()), nil
	}
	if len(fieldMaps) == 0 {
		return mcp.NewToolResultError("records must contain at least one object"), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	results := make([]contractx.CreateResult, 0, len(fieldMaps))
	succeeded := 0
	for _, fields := range fieldMaps {
		created, err := t.records.Create(ctx, objectType, fields)
		if err != nil {
			results = append(results, contractx.CreateResult{Success: false, Errors: []string{err.Error()}})
			continue
		}
		if created.Success {
			succeeded++
		}
		results = append(results, created)
	}

	return jsonResult(map[string]any{
		"objectType": objectType,
		"succeeded":  succeeded,
		"failed":     len(fieldMaps) - succeeded,
		"results":    results,
	})
}
