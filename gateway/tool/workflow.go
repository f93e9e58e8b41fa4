package tool

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	workflowx "github.com/miadvg/taxrise-gateway/gateway/workflow"
)

// NoticeIntakeTool logs an IRS notice and opens the secure-communication
// workflow. It never sends anything: the client's channel preference comes
// first.
type NoticeIntakeTool struct {
	workflows *workflowx.Service
	timeout   time.Duration
}

func NewNoticeIntakeTool(workflows *workflowx.Service, cfg Config) *NoticeIntakeTool {
	return &NoticeIntakeTool{workflows: workflows, timeout: cfg.OperationTimeout}
}

func (t *NoticeIntakeTool) Definition() mcp.Tool {
	return mcp.NewTool("handle_irs_notice",
		mcp.WithDescription("Log an IRS notice the client received and start the secure-communication workflow. Creates exactly one tracking record and returns a workflowId. Does NOT send anything; ask the client whether they want their secure upload link by text message or email, then call send_secure_communication."),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client's full name")),
		mcp.WithString("noticeType", mcp.Required(), mcp.Description("IRS notice number, e.g. CP2000, CP504, LT11")),
		mcp.WithString("phoneNumber", mcp.Description("Client's phone number")),
		mcp.WithString("accountId", mcp.Description("Salesforce account ID, used to build the secure upload link")),
		mcp.WithString("caseId", mcp.Description("Related case ID, if known")),
		mcp.WithString("noticeDate", mcp.Description("Date on the notice")),
		mcp.WithString("amount", mcp.Description("Dollar amount on the notice, digits only")),
	)
}

func (t *NoticeIntakeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientName, err := req.RequireString("clientName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	noticeType, err := req.RequireString("noticeType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.workflows.IntakeNotice(ctx, workflowx.NoticeIntake{
		ClientName:  clientName,
		PhoneNumber: req.GetString("phoneNumber", ""),
		AccountID:   req.GetString("accountId", ""),
		CaseID:      req.GetString("caseId", ""),
		NoticeType:  noticeType,
		NoticeDate:  req.GetString("noticeDate", ""),
		Amount:      req.GetString("amount", ""),
	})
	if err != nil {
		return failureResult("handle_irs_notice", err)
	}

	message := "I've logged your " + noticeType + " notice and our resolution team will review it within 4 hours. Would you like to receive your secure upload link by text message or email?"
	if result.Duplicate {
		message = "I already have your " + noticeType + " notice logged from earlier today. Would you like to receive your secure upload link by text message or email?"
	}

	return jsonResult(map[string]any{
		"workflowId": result.WorkflowID,
		"recordId":   result.RecordID,
		"duplicate":  result.Duplicate,
		"message":    message,
	})
}

// DocumentRequestTool logs a document the client needs to provide and opens
// the same workflow.
type DocumentRequestTool struct {
	workflows *workflowx.Service
	timeout   time.Duration
}

func NewDocumentRequestTool(workflows *workflowx.Service, cfg Config) *DocumentRequestTool {
	return &DocumentRequestTool{workflows: workflows, timeout: cfg.OperationTimeout}
}

func (t *DocumentRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("create_document_request",
		mcp.WithDescription("Log a document the client needs to upload (W-2, 1099, bank statements, ...) and start the secure-communication workflow. Returns a workflowId. Does NOT send anything; ask for the client's channel preference, then call send_secure_communication."),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client's full name")),
		mcp.WithString("documentType", mcp.Required(), mcp.Description("Document the client needs to provide")),
		mcp.WithString("phoneNumber", mcp.Description("Client's phone number")),
		mcp.WithString("accountId", mcp.Description("Salesforce account ID, used to build the secure upload link")),
		mcp.WithString("caseId", mcp.Description("Related case ID, if known")),
		mcp.WithString("reason", mcp.Description("Why the document is needed")),
	)
}

func (t *DocumentRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientName, err := req.RequireString("clientName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	documentType, err := req.RequireString("documentType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.workflows.IntakeDocumentRequest(ctx, workflowx.DocumentIntake{
		ClientName:   clientName,
		PhoneNumber:  req.GetString("phoneNumber", ""),
		AccountID:    req.GetString("accountId", ""),
		CaseID:       req.GetString("caseId", ""),
		DocumentType: documentType,
		Reason:       req.GetString("reason", ""),
	})
	if err != nil {
		return failureResult("create_document_request", err)
	}

	message := "I've created a request for your " + documentType + ". Would you like to receive your secure upload link by text message or email?"
	if result.Duplicate {
		message = "I already have a request for your " + documentType + " from earlier today. Would you like to receive your secure upload link by text message or email?"
	}

	return jsonResult(map[string]any{
		"workflowId": result.WorkflowID,
		"recordId":   result.RecordID,
		"duplicate":  result.Duplicate,
		"message":    message,
	})
}

// VerifyPhoneTool runs the last-4 check that gates SMS delivery.
type VerifyPhoneTool struct {
	workflows *workflowx.Service
	timeout   time.Duration
}

func NewVerifyPhoneTool(workflows *workflowx.Service, cfg Config) *VerifyPhoneTool {
	return &VerifyPhoneTool{workflows: workflows, timeout: cfg.OperationTimeout}
}

func (t *VerifyPhoneTool) Definition() mcp.Tool {
	return mcp.NewTool("verify_phone_last_4",
		mcp.WithDescription("Verify the client's identity for SMS delivery by comparing the last 4 digits they read back against the phone number on file. Pass the workflowId so the outcome is recorded: a match authorizes SMS, a mismatch locks SMS and requires the email fallback."),
		mcp.WithString("phoneNumber", mcp.Required(), mcp.Description("Full phone number on file")),
		mcp.WithString("last4", mcp.Required(), mcp.Description("Last 4 digits the client provided")),
		mcp.WithString("workflowId", mcp.Description("Workflow ID returned by the intake tool")),
	)
}

func (t *VerifyPhoneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	phoneNumber, err := req.RequireString("phoneNumber")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	last4, err := req.RequireString("last4")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.workflows.VerifyPhoneLastFour(ctx, req.GetString("workflowId", ""), phoneNumber, last4)
	if err != nil {
		return failureResult("verify_phone_last_4", err)
	}

	message := "Perfect, that matches the number we have on file. I'll send your secure link by text message."
	if !result.Match {
		message = "Those digits don't match the number we have on file, so I can't text the link. I'll send it to your email address instead."
	}

	return jsonResult(map[string]any{
		"match":   result.Match,
		"message": message,
	})
}

// SecureCommunicationTool dispatches the secure link over the elected
// channel. SMS requires a workflow whose verification succeeded; email works
// from any pre-dispatch state.
type SecureCommunicationTool struct {
	workflows *workflowx.Service
	timeout   time.Duration
}

func NewSecureCommunicationTool(workflows *workflowx.Service, cfg Config) *SecureCommunicationTool {
	return &SecureCommunicationTool{workflows: workflows, timeout: cfg.OperationTimeout}
}

func (t *SecureCommunicationTool) Definition() mcp.Tool {
	return mcp.NewTool("send_secure_communication",
		mcp.WithDescription("Send the secure upload or payment link over the client's chosen channel. method=sms requires a workflowId whose verify_phone_last_4 check matched; without that the send is refused. method=email needs no verification and is the fallback after a mismatch."),
		mcp.WithString("clientName", mcp.Required(), mcp.Description("Client's full name")),
		mcp.WithString("method", mcp.Required(), mcp.Description("Delivery channel: sms or email"), mcp.Enum("sms", "email")),
		mcp.WithString("messageType", mcp.Required(), mcp.Description("Template to send"), mcp.Enum("irs_notice", "document_request", "payment_reminder")),
		mcp.WithString("workflowId", mcp.Description("Workflow ID from the intake tool; required for sms")),
		mcp.WithString("phoneNumber", mcp.Description("Destination phone number; required for sms")),
		mcp.WithString("email", mcp.Description("Destination email address; required for email")),
		mcp.WithString("accountId", mcp.Description("Salesforce account ID, used to build the links")),
		mcp.WithString("noticeType", mcp.Description("IRS notice number for the irs_notice template")),
		mcp.WithString("documentType", mcp.Description("Document name for the document_request template")),
		mcp.WithString("amount", mcp.Description("Payment amount for the payment_reminder template, digits only")),
		mcp.WithString("dueDate", mcp.Description("Payment due date for the payment_reminder template")),
	)
}

func (t *SecureCommunicationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientName, err := req.RequireString("clientName")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	method, err := req.RequireString("method")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	messageType, err := req.RequireString("messageType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msgCtx := map[string]string{}
	for _, key := range []string{"noticeType", "documentType", "amount", "dueDate"} {
		if v := req.GetString(key, ""); v != "" {
			msgCtx[key] = v
		}
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.workflows.Dispatch(ctx, contractx.CommunicationRequest{
		WorkflowID:  req.GetString("workflowId", ""),
		ClientName:  clientName,
		Method:      contractx.Channel(method),
		PhoneNumber: req.GetString("phoneNumber", ""),
		Email:       req.GetString("email", ""),
		AccountID:   req.GetString("accountId", ""),
		MessageType: contractx.MessageType(messageType),
		Context:     msgCtx,
	})
	if err != nil {
		return failureResult("send_secure_communication", err)
	}

	message := "Your secure link is on its way by email. You should receive it within a few minutes."
	if result.Channel == contractx.ChannelSMS {
		message = "Your secure link is on its way by text message. You should receive it within a few seconds."
	}

	return jsonResult(map[string]any{
		"channel":   string(result.Channel),
		"messageId": result.Receipt.MessageID,
		"message":   message,
	})
}
