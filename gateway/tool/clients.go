package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/miadvg/taxrise-gateway/gateway/clients"
	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

// LookupClientTool identifies a caller by phone number.
type LookupClientTool struct {
	clients *clients.Service
	timeout time.Duration
}

func NewLookupClientTool(clients *clients.Service, cfg Config) *LookupClientTool {
	return &LookupClientTool{clients: clients, timeout: cfg.OperationTimeout}
}

func (t *LookupClientTool) Definition() mcp.Tool {
	return mcp.NewTool("lookup_client_by_phone",
		mcp.WithDescription("Look up the client account matching a phone number, including their open cases. Use this at the start of a call to identify who is calling."),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Caller's phone number, any format")),
	)
}

func (t *LookupClientTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	client, err := t.clients.LookupByPhone(ctx, phoneNumber)
	if err != nil {
		return failureResult("lookup_client_by_phone", err)
	}

	return jsonResult(client)
}

// GreetingTool produces the persona opening line for a call.
type GreetingTool struct {
	greeter *clients.Greeter
	timeout time.Duration
}

func NewGreetingTool(greeter *clients.Greeter, cfg Config) *GreetingTool {
	return &GreetingTool{greeter: greeter, timeout: cfg.OperationTimeout}
}

func (t *GreetingTool) Definition() mcp.Tool {
	return mcp.NewTool("get_client_greeting",
		mcp.WithDescription("Get the personalized greeting to open the call with. Provide the caller's phone number so a known client is greeted by name; callType adjusts the wording for inbound, outbound, or callback calls."),
		mcp.WithString("phoneNumber", mcp.Description("Caller's phone number, used to look the client up")),
		mcp.WithString("clientName", mcp.Description("Client name, if already known")),
		mcp.WithString("callType", mcp.Description("How the call started"), mcp.Enum("inbound", "outbound", "callback")),
	)
}

func (t *GreetingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	greeting, err := t.greeter.Greeting(ctx,
		req.GetString("phoneNumber", ""),
		req.GetString("clientName", ""),
		req.GetString("callType", ""))
	if err != nil {
		return failureResult("get_client_greeting", err)
	}

	return mcp.NewToolResultText(greeting), nil
}

// VerifyIdentityTool checks a phone + ZIP pair against the account on file.
type VerifyIdentityTool struct {
	clients *clients.Service
	timeout time.Duration
}

func NewVerifyIdentityTool(clients *clients.Service, cfg Config) *VerifyIdentityTool {
	return &VerifyIdentityTool{clients: clients, timeout: cfg.OperationTimeout}
}

func (t *VerifyIdentityTool) Definition() mcp.Tool {
	return mcp.NewTool("verify_client_identity",
		mcp.WithDescription("Verify a caller's identity by matching their phone number and ZIP code against the account on file. Use before discussing case details."),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Caller's phone number")),
		mcp.WithString("zipCode", mcp.Required(), mcp.Description("ZIP code the caller provided")),
	)
}

func (t *VerifyIdentityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	zipCode, err := req.RequireString("zipCode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	client, err := t.clients.VerifyIdentity(ctx, phoneNumber, zipCode)
	switch {
	case err == nil:
		return jsonResult(map[string]any{
			"verified": true,
			"client":   client,
		})
	case isNotFound(err):
		return jsonResult(map[string]any{
			"verified": false,
			"message":  "The phone number and ZIP code didn't match an account on file.",
		})
	default:
		return failureResult("verify_client_identity", err)
	}
}

// LastCallTool reports the most recent outbound call to a number.
type LastCallTool struct {
	clients *clients.Service
	timeout time.Duration
}

func NewLastCallTool(clients *clients.Service, cfg Config) *LastCallTool {
	return &LastCallTool{clients: clients, timeout: cfg.OperationTimeout}
}

func (t *LastCallTool) Definition() mcp.Tool {
	return mcp.NewTool("get_last_call_attempt",
		mcp.WithDescription("Find the most recent outbound call we made to a phone number, with when it happened and how it went. Useful when a client says they missed a call from us."),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Phone number to look up")),
	)
}

func (t *LastCallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	attempt, err := t.clients.LastCallAttempt(ctx, phoneNumber)
	if err != nil {
		return failureResult("get_last_call_attempt", err)
	}
	if attempt == nil {
		return mcp.NewToolResultText("No outbound calls to that number were found."), nil
	}

	summary := describeCall(attempt)
	return jsonResult(map[string]any{
		"attempt": attempt,
		"summary": summary,
	})
}

func describeCall(attempt *contractx.CallAttempt) string {
	when := "recently"
	if !attempt.StartTime.IsZero() {
		when = attempt.StartTime.Format("Monday, January 2 at 3:04 PM MST")
	}

	outcome := "the call didn't connect"
	if attempt.TalkSeconds > 0 {
		outcome = fmt.Sprintf("we spoke for about %d seconds", attempt.TalkSeconds)
	}
	if attempt.Disposition != "" {
		outcome += " (" + attempt.Disposition + ")"
	}

	who := "you"
	if attempt.ContactName != "" {
		who = attempt.ContactName
	}

	return fmt.Sprintf("Our last call to %s was on %s; %s.", who, when, outcome)
}

func isNotFound(err error) bool {
	return errors.Is(err, contractx.ErrClientNotFound)
}
