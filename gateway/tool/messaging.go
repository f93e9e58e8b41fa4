package tool

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	workflowx "github.com/miadvg/taxrise-gateway/gateway/workflow"
)

// The tools in this file are manual operator sends. They bypass the
// secure-communication workflow, so they are meant for human-directed use,
// not for the agent's automated flow.

// SendSMSTool sends a free-form text message.
type SendSMSTool struct {
	messenger contractx.MessagingGateway
	timeout   time.Duration
}

func NewSendSMSTool(messenger contractx.MessagingGateway, cfg Config) *SendSMSTool {
	return &SendSMSTool{messenger: messenger, timeout: cfg.OperationTimeout}
}

func (t *SendSMSTool) Definition() mcp.Tool {
	return mcp.NewTool("send_sms",
		mcp.WithDescription("Send a free-form SMS to a phone number. Operator tool: for secure links use send_secure_communication, which enforces phone verification."),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Destination phone number")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
	)
}

func (t *SendSMSTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	receipt, err := t.messenger.SendSMS(ctx, phoneNumber, message)
	if err != nil {
		return failureResult("send_sms", err)
	}

	return jsonResult(map[string]any{
		"messageId": receipt.MessageID,
		"message":   "Text message sent. It should arrive within a few seconds.",
	})
}

// templateSMSTool sends one of the branded SMS templates directly. The two
// public wrappers below fix the message type and schema.
type templateSMSTool struct {
	messenger contractx.MessagingGateway
	links     workflowx.Links
	timeout   time.Duration
}

func (t *templateSMSTool) send(ctx context.Context, req contractx.CommunicationRequest) (*mcp.CallToolResult, error) {
	msg, err := workflowx.Render(t.links, req)
	if err != nil {
		return failureResult(string(req.MessageType)+"_sms", err)
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	receipt, err := t.messenger.SendSMS(ctx, req.PhoneNumber, msg.Text)
	if err != nil {
		return failureResult(string(req.MessageType)+"_sms", err)
	}

	return jsonResult(map[string]any{
		"messageId": receipt.MessageID,
		"message":   "Text message sent. It should arrive within a few seconds.",
	})
}

// DocumentRequestSMSTool texts the document upload link.
type DocumentRequestSMSTool struct {
	templateSMSTool
}

func NewDocumentRequestSMSTool(messenger contractx.MessagingGateway, links workflowx.Links, cfg Config) *DocumentRequestSMSTool {
	return &DocumentRequestSMSTool{templateSMSTool{messenger: messenger, links: links, timeout: cfg.OperationTimeout}}
}

func (t *DocumentRequestSMSTool) Definition() mcp.Tool {
	return mcp.NewTool("send_document_request_sms",
		mcp.WithDescription("Text the client their secure document upload link. Operator tool that sends immediately; the agent's flow should go through send_secure_communication instead."),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client's full name")),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Destination phone number")),
		mcp.WithString("documentType", mcp.Required(), mcp.Description("Document the client needs to upload")),
		mcp.WithString("accountId", mcp.Description("Salesforce account ID, used to build the upload link")),
	)
}

func (t *DocumentRequestSMSTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientName, err := req.RequireString("clientName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentType, err := req.RequireString("documentType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return t.send(ctx, contractx.CommunicationRequest{
		ClientName:  clientName,
		Method:      contractx.ChannelSMS,
		PhoneNumber: phoneNumber,
		AccountID:   req.GetString("accountId", ""),
		MessageType: contractx.MessageDocumentRequest,
		Context:     map[string]string{"documentType": documentType},
	})
}

// PaymentReminderSMSTool texts the payment link.
type PaymentReminderSMSTool struct {
	templateSMSTool
}

func NewPaymentReminderSMSTool(messenger contractx.MessagingGateway, links workflowx.Links, cfg Config) *PaymentReminderSMSTool {
	return &PaymentReminderSMSTool{templateSMSTool{messenger: messenger, links: links, timeout: cfg.OperationTimeout}}
}

func (t *PaymentReminderSMSTool) Definition() mcp.Tool {
	return mcp.NewTool("send_payment_reminder_sms",
		mcp.WithDescription("Text the client a payment reminder with their secure payment link. Operator tool that sends immediately."),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client's full name")),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Destination phone number")),
		mcp.WithString("amount", mcp.Description("Amount due, digits only")),
		mcp.WithString("dueDate", mcp.Description("Due date to mention")),
		mcp.WithString("accountId", mcp.Description("Salesforce account ID, used to build the payment link")),
	)
}

func (t *PaymentReminderSMSTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientName, err := req.RequireString("clientName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msgCtx := map[string]string{}
	if v := req.GetString("amount", ""); v != "" {
		msgCtx["amount"] = v
	}
	if v := req.GetString("dueDate", ""); v != "" {
		msgCtx["dueDate"] = v
	}

	return t.send(ctx, contractx.CommunicationRequest{
		ClientName:  clientName,
		Method:      contractx.ChannelSMS,
		PhoneNumber: phoneNumber,
		AccountID:   req.GetString("accountId", ""),
		MessageType: contractx.MessagePaymentReminder,
		Context:     msgCtx,
	})
}
