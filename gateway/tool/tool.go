// Package tool exposes the gateway's operations as MCP tools for the voice
// agent. Each tool owns its definition and handler; wiring happens in the
// server package.
//
// Handlers translate every business failure into a text result the agent can
// speak to the client. A Go error escapes a handler only for transport-level
// faults.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	statex "github.com/miadvg/taxrise-gateway/gateway/state"
)

// Config bounds every tool invocation.
type Config struct {
	OperationTimeout time.Duration `envconfig:"OPERATION_TIMEOUT" split_words:"true" default:"30s"`
}

// withTimeout caps a handler's upstream work. MCP callers rarely propagate
// deadlines, so the gateway sets its own.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// jsonResult renders a payload as a JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// failureResult maps a business error onto the text the agent should relay.
// Unknown errors are logged and reported generically so upstream details never
// reach the client.
func failureResult(toolName string, err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, contractx.ErrInvalidArgument):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, contractx.ErrSmsNotAuthorized):
		return mcp.NewToolResultText("I can't send a text message for this request: the phone number on file hasn't been verified. Would you like to receive the link by email instead?"), nil
	case errors.Is(err, contractx.ErrAlreadyDispatched):
		return mcp.NewToolResultText("The secure link for this request has already been sent."), nil
	case errors.Is(err, statex.ErrInvalidTransition):
		return mcp.NewToolResultText("That step isn't available for this request right now."), nil
	case errors.Is(err, statex.ErrNotFound):
		return mcp.NewToolResultText("I couldn't find that request. Please log the notice or document request first."), nil
	case errors.Is(err, contractx.ErrClientNotFound):
		return mcp.NewToolResultText("No client account matched that information."), nil
	case errors.Is(err, contractx.ErrCaseNotFound):
		return mcp.NewToolResultText("No case was found with that ID."), nil
	case errors.Is(err, contractx.ErrNoEmailOnFile):
		return mcp.NewToolResultText("There's no email address on file for this case. Please collect one from the client."), nil
	default:
		log.Error().Err(err).Str("tool", toolName).Msg("tool invocation failed")
		return mcp.NewToolResultError("the request could not be completed, please try again"), nil
	}
}
