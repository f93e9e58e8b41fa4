package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/miadvg/taxrise-gateway/gateway/cases"
)

// PendingSignatureTool lists cases waiting on a client signature.
type PendingSignatureTool struct {
	cases   *cases.Service
	timeout time.Duration
}

func NewPendingSignatureTool(cases *cases.Service, cfg Config) *PendingSignatureTool {
	return &PendingSignatureTool{cases: cases, timeout: cfg.OperationTimeout}
}

func (t *PendingSignatureTool) Definition() mcp.Tool {
	return mcp.NewTool("get_pending_signature_cases",
		mcp.WithDescription("List cases with status 'Pending Client Signature', newest first. Optionally narrow by case ID, phone number, or client name."),
		mcp.WithString("caseId", mcp.Description("Exact case ID")),
		mcp.WithString("phoneNumber", mcp.Description("Client phone number")),
		mcp.WithString("clientName", mcp.Description("Client name, partial match")),
	)
}

func (t *PendingSignatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	records, err := t.cases.PendingSignatureCases(ctx, cases.PendingFilter{
		CaseID:      req.GetString("caseId", ""),
		PhoneNumber: req.GetString("phoneNumber", ""),
		ClientName:  req.GetString("clientName", ""),
	})
	if err != nil {
		return failureResult("get_pending_signature_cases", err)
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No cases are currently pending client signature."), nil
	}

	return jsonResult(map[string]any{
		"count": len(records),
		"cases": records,
	})
}

// SendReturnsTool emails the tax-return package for a case.
type SendReturnsTool struct {
	cases   *cases.Service
	timeout time.Duration
}

func NewSendReturnsTool(cases *cases.Service, cfg Config) *SendReturnsTool {
	return &SendReturnsTool{cases: cases, timeout: cfg.OperationTimeout}
}

func (t *SendReturnsTool) Definition() mcp.Tool {
	return mcp.NewTool("send_returns_to_client",
		mcp.WithDescription("Email the prepared tax return documents for a case to the client, with secure upload and payment links. Uses the email on file unless clientEmail is given."),
		mcp.WithString("caseId", mcp.Required(), mcp.Description("Case ID to send returns for")),
		mcp.WithString("clientEmail", mcp.Description("Override destination email address")),
		mcp.WithString("clientName", mcp.Description("Override client name used in the email")),
	)
}

func (t *SendReturnsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := req.RequireString("caseId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.cases.SendReturns(ctx, caseID, req.GetString("clientEmail", ""), req.GetString("clientName", ""))
	if err != nil {
		return failureResult("send_returns_to_client", err)
	}

	return jsonResult(map[string]any{
		"caseNumber": result.CaseNumber,
		"sentTo":     result.Email,
		"message":    fmt.Sprintf("Your tax return documents for case %s are on their way to %s. Please check your inbox within a few minutes.", result.CaseNumber, result.Email),
	})
}

// MailRequestTool logs a request to physically mail documents.
type MailRequestTool struct {
	cases   *cases.Service
	timeout time.Duration
}

func NewMailRequestTool(cases *cases.Service, cfg Config) *MailRequestTool {
	return &MailRequestTool{cases: cases, timeout: cfg.OperationTimeout}
}

func (t *MailRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("create_mail_request",
		mcp.WithDescription("Log a request to physically mail documents to the client. Uses the mailing address on file unless clientAddress is given."),
		mcp.WithString("caseId", mcp.Required(), mcp.Description("Case ID the mail relates to")),
		mcp.WithString("requestType", mcp.Required(), mcp.Description("Kind of mailing, e.g. tax_return, notice_copy")),
		mcp.WithString("documentType", mcp.Required(), mcp.Description("Documents to include")),
		mcp.WithString("clientAddress", mcp.Description("Override mailing address")),
	)
}

func (t *MailRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := req.RequireString("caseId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	requestType, err := req.RequireString("requestType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentType, err := req.RequireString("documentType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.cases.CreateMailRequest(ctx, cases.MailRequestInput{
		CaseID:        caseID,
		RequestType:   requestType,
		DocumentType:  documentType,
		ClientAddress: req.GetString("clientAddress", ""),
	})
	if err != nil {
		return failureResult("create_mail_request", err)
	}

	message := fmt.Sprintf("I've logged a mail request for your %s on case %s. Our team will send it to the address we have on file within 1-2 business days.", result.DocumentType, result.CaseNumber)
	if req.GetString("clientAddress", "") != "" {
		message = fmt.Sprintf("I've logged a mail request for your %s on case %s to the address you provided. Our team will send it within 1-2 business days.", result.DocumentType, result.CaseNumber)
	}

	return jsonResult(map[string]any{
		"requestId":  result.RecordID,
		"caseNumber": result.CaseNumber,
		"address":    result.Address,
		"status":     result.Status,
		"message":    message,
	})
}
