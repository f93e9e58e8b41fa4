// Package server wires the gateway's services into an MCP server. It is the
// composition root: concrete implementations are created in main and injected
// here, and no business logic lives in this package.
package server

import (
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/miadvg/taxrise-gateway/gateway/cases"
	"github.com/miadvg/taxrise-gateway/gateway/clients"
	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	"github.com/miadvg/taxrise-gateway/gateway/tool"
	workflowx "github.com/miadvg/taxrise-gateway/gateway/workflow"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Dependencies carries everything the tool catalog needs.
type Dependencies struct {
	Workflows *workflowx.Service
	Clients   *clients.Service
	Greeter   *clients.Greeter
	Cases     *cases.Service
	Messenger contractx.MessagingGateway
	Records   contractx.RecordStore
	Links     workflowx.Links
	Tools     tool.Config
}

// New builds the MCP server with the full tool catalog registered.
func New(deps Dependencies) (*server.MCPServer, error) {
	switch {
	case deps.Workflows == nil:
		return nil, errors.New("workflow service is required")
	case deps.Clients == nil:
		return nil, errors.New("client service is required")
	case deps.Greeter == nil:
		return nil, errors.New("greeter is required")
	case deps.Cases == nil:
		return nil, errors.New("case service is required")
	case deps.Messenger == nil:
		return nil, errors.New("messaging gateway is required")
	case deps.Records == nil:
		return nil, errors.New("record store is required")
	}

	s := server.NewMCPServer(
		"taxrise-gateway",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// Secure-communication workflow.
	noticeIntake := tool.NewNoticeIntakeTool(deps.Workflows, deps.Tools)
	s.AddTool(noticeIntake.Definition(), noticeIntake.Handle)

	documentRequest := tool.NewDocumentRequestTool(deps.Workflows, deps.Tools)
	s.AddTool(documentRequest.Definition(), documentRequest.Handle)

	verifyPhone := tool.NewVerifyPhoneTool(deps.Workflows, deps.Tools)
	s.AddTool(verifyPhone.Definition(), verifyPhone.Handle)

	secureComm := tool.NewSecureCommunicationTool(deps.Workflows, deps.Tools)
	s.AddTool(secureComm.Definition(), secureComm.Handle)

	// Client intelligence.
	lookupClient := tool.NewLookupClientTool(deps.Clients, deps.Tools)
	s.AddTool(lookupClient.Definition(), lookupClient.Handle)

	greeting := tool.NewGreetingTool(deps.Greeter, deps.Tools)
	s.AddTool(greeting.Definition(), greeting.Handle)

	verifyIdentity := tool.NewVerifyIdentityTool(deps.Clients, deps.Tools)
	s.AddTool(verifyIdentity.Definition(), verifyIdentity.Handle)

	lastCall := tool.NewLastCallTool(deps.Clients, deps.Tools)
	s.AddTool(lastCall.Definition(), lastCall.Handle)

	// Case operations.
	pendingSignature := tool.NewPendingSignatureTool(deps.Cases, deps.Tools)
	s.AddTool(pendingSignature.Definition(), pendingSignature.Handle)

	sendReturns := tool.NewSendReturnsTool(deps.Cases, deps.Tools)
	s.AddTool(sendReturns.Definition(), sendReturns.Handle)

	mailRequest := tool.NewMailRequestTool(deps.Cases, deps.Tools)
	s.AddTool(mailRequest.Definition(), mailRequest.Handle)

	// Manual operator sends.
	sendSMS := tool.NewSendSMSTool(deps.Messenger, deps.Tools)
	s.AddTool(sendSMS.Definition(), sendSMS.Handle)

	documentSMS := tool.NewDocumentRequestSMSTool(deps.Messenger, deps.Links, deps.Tools)
	s.AddTool(documentSMS.Definition(), documentSMS.Handle)

	paymentSMS := tool.NewPaymentReminderSMSTool(deps.Messenger, deps.Links, deps.Tools)
	s.AddTool(paymentSMS.Definition(), paymentSMS.Handle)

	// Raw record access.
	query := tool.NewQueryTool(deps.Records, deps.Tools)
	s.AddTool(query.Definition(), query.Handle)

	createRecords := tool.NewCreateRecordsTool(deps.Records, deps.Tools)
	s.AddTool(createRecords.Definition(), createRecords.Handle)

	return s, nil
}

func serverInstructions() string {
	return `You are Emily, TaxRise's virtual tax resolution assistant, speaking with clients on the phone.

## Identifying the caller
- Open every call with get_client_greeting (pass the caller's phone number and callType).
- Before discussing case details, confirm identity with verify_client_identity (phone + ZIP).
- lookup_client_by_phone gives you the client's account and open cases.

## Secure-communication workflow (IRS notices and document requests)
Follow these steps in order, never skipping ahead:
1. When a client mentions an IRS notice, call handle_irs_notice. When they need to
   upload documents, call create_document_request. Both return a workflowId.
2. Ask the client whether they prefer their secure link by text message or email.
3. If they choose text: ask them to read back the last 4 digits of their phone number,
   then call verify_phone_last_4 with the workflowId.
   - On a match, send with send_secure_communication using method=sms.
   - On a mismatch, tell the client you'll email the link instead and use method=email.
     Never retry SMS after a mismatch.
4. If they choose email: call send_secure_communication with method=email directly.

Never send a text message without a successful verify_phone_last_4 for that workflowId.
The server enforces this, but do not attempt it either.

## Other operations
- get_pending_signature_cases, send_returns_to_client, and create_mail_request cover
  signature follow-ups.
- get_last_call_attempt answers "someone from your office called me".
- send_sms, send_document_request_sms, send_payment_reminder_sms, query_salesforce,
  and create_records are operator tools; only use them when a human asks for them
  explicitly.

Keep responses short and natural for voice. Relay the "message" field of tool results
to the client in your own words.`
}
