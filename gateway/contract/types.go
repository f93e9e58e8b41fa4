package contract

import "time"

// Channel is the delivery method a client elected for secure links.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// EventCategory classifies an inbound client event logged by intake.
type EventCategory string

const (
	CategoryIRSNotice       EventCategory = "IRS Notice"
	CategoryDocumentRequest EventCategory = "Supporting Documents"
)

// MessageType selects the outbound template used by dispatch.
type MessageType string

const (
	MessageIRSNotice       MessageType = "irs_notice"
	MessageDocumentRequest MessageType = "document_request"
	MessagePaymentReminder MessageType = "payment_reminder"
)

// EventStatusRequested is the initial (and, from this gateway's perspective,
// only) status of an inbound event record. Status progression belongs to the
// resolution team's systems.
const EventStatusRequested = "Requested"

// CaseStatusPendingSignature marks cases waiting on a client signature.
const CaseStatusPendingSignature = "Pending Client Signature"

// ClientRecord is a CRM person account. Read-only here; phone-on-file is the
// sole basis for SMS-channel verification.
type ClientRecord struct {
	AccountID string     `json:"account_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	ZipCode   string     `json:"zip_code,omitempty"`
	City      string     `json:"city,omitempty"`
	State     string     `json:"state,omitempty"`
	Cases     []CaseInfo `json:"cases,omitempty"`
}

// CaseInfo is the slice of a case the gateway reads.
type CaseInfo struct {
	ID          string `json:"id"`
	CaseNumber  string `json:"case_number,omitempty"`
	Status      string `json:"status,omitempty"`
	Subject     string `json:"subject,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
}

// CaseRecord is a case joined with its contact, as returned by case lookups.
type CaseRecord struct {
	ID          string `json:"id"`
	CaseNumber  string `json:"case_number"`
	ClientName  string `json:"client_name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
}

// InboundEvent describes the durable record created once per intake call.
type InboundEvent struct {
	Category    EventCategory `json:"category"`
	Subtype     string        `json:"subtype"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	CaseID      string        `json:"case_id,omitempty"`
}

// CommunicationRequest is the caller-held structure threaded across the
// workflow steps. It must not reach dispatch without an elected channel, and
// channel=sms additionally requires a verified workflow instance.
type CommunicationRequest struct {
	WorkflowID  string            `json:"workflow_id,omitempty"`
	ClientName  string            `json:"client_name"`
	Method      Channel           `json:"method"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	Email       string            `json:"email,omitempty"`
	AccountID   string            `json:"account_id"`
	MessageType MessageType       `json:"message_type"`
	Context     map[string]string `json:"context,omitempty"`
}

// VerificationResult is the outcome of the last-4 phone check. A mismatch is
// a business outcome, not an error: it forces the email fallback.
type VerificationResult struct {
	Match      bool   `json:"match"`
	LastFour   string `json:"last_four,omitempty"`
	VerifiedAt time.Time
}

// Receipt reports a Messaging Gateway send.
type Receipt struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"message_id,omitempty"`
}

// CreateResult reports a Record Store create.
type CreateResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// CallAttempt is the last outbound call logged for a phone number.
type CallAttempt struct {
	ContactName string    `json:"contact_name,omitempty"`
	StartTime   time.Time `json:"start_time"`
	TalkSeconds int       `json:"talk_seconds,omitempty"`
	Disposition string    `json:"disposition,omitempty"`
}
