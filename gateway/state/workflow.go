package state

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

// Status is the server-held position of a secure-communication workflow.
// The legal transitions are:
//
//	event_logged -> preference_requested            (automatic after intake)
//	preference_requested -> email_authorized        (client elects email)
//	preference_requested -> sms_verification_pending (client elects sms)
//	sms_verification_pending -> sms_authorized      (last-4 match)
//	sms_verification_pending -> sms_denied          (last-4 mismatch; email fallback)
//	sms_denied -> email_authorized                  (fallback election)
//	{email_authorized, sms_authorized} -> dispatched
type Status string

const (
	StatusEventLogged            Status = "event_logged"
	StatusPreferenceRequested    Status = "preference_requested"
	StatusSmsVerificationPending Status = "sms_verification_pending"
	StatusSmsAuthorized          Status = "sms_authorized"
	StatusSmsDenied              Status = "sms_denied"
	StatusEmailAuthorized        Status = "email_authorized"
	StatusDispatched             Status = "dispatched"
)

var (
	ErrNilWorkflow       = errors.New("workflow is nil")
	ErrInvalidWorkflowID = errors.New("workflow id is empty")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrNotFound          = errors.New("workflow not found")
)

// Workflow is the durable instance created by intake and required by every
// later step. Dispatch trusts this record, never the caller's sequencing.
type Workflow struct {
	ID             string                 `json:"id"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Category       contractx.EventCategory `json:"category"`
	Subtype        string                 `json:"subtype"`
	ClientName     string                 `json:"client_name"`
	PhoneNumber    string                 `json:"phone_number,omitempty"`
	AccountID      string                 `json:"account_id,omitempty"`
	CaseID         string                 `json:"case_id,omitempty"`
	RecordID       string                 `json:"record_id,omitempty"`

	Status         Status             `json:"status"`
	Channel        contractx.Channel  `json:"channel,omitempty"`
	VerifyAttempts int                `json:"verify_attempts,omitempty"`
	VerifiedAt     *time.Time         `json:"verified_at,omitempty"`
	DispatchedVia  contractx.Channel  `json:"dispatched_via,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewWorkflow(id string, category contractx.EventCategory, subtype, clientName string, now time.Time) *Workflow {
	return &Workflow{
		ID:         id,
		Category:   category,
		Subtype:    subtype,
		ClientName: clientName,
		Status:     StatusEventLogged,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (w *Workflow) Touch(now time.Time) {
	w.UpdatedAt = now.UTC()
}

// MarkPreferenceRequested is the automatic transition that rides on the
// intake response payload.
func (w *Workflow) MarkPreferenceRequested(now time.Time) error {
	if w == nil {
		return ErrNilWorkflow
	}
	if w.Status != StatusEventLogged {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, StatusPreferenceRequested)
	}
	w.Status = StatusPreferenceRequested
	w.Touch(now)
	return nil
}

// ElectChannel records the client's stated preference. Email needs no
// verification gate; sms parks the workflow until the last-4 check runs.
// Email remains electable after an sms mismatch (the forced fallback) or
// while sms verification is still pending (client changed their mind).
func (w *Workflow) ElectChannel(ch contractx.Channel, now time.Time) error {
	if w == nil {
		return ErrNilWorkflow
	}
	switch ch {
	case contractx.ChannelEmail:
		switch w.Status {
		case StatusPreferenceRequested, StatusSmsVerificationPending, StatusSmsDenied, StatusSmsAuthorized:
			w.Status = StatusEmailAuthorized
		case StatusEmailAuthorized:
			// already elected; idempotent
		default:
			return fmt.Errorf("%w: cannot elect email from %s", ErrInvalidTransition, w.Status)
		}
	case contractx.ChannelSMS:
		switch w.Status {
		case StatusPreferenceRequested:
			w.Status = StatusSmsVerificationPending
		case StatusSmsVerificationPending:
			// already elected; idempotent
		default:
			return fmt.Errorf("%w: cannot elect sms from %s", ErrInvalidTransition, w.Status)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", contractx.ErrInvalidArgument, ch)
	}
	w.Channel = ch
	w.Touch(now)
	return nil
}

// RecordVerification applies a last-4 check outcome. Calling it straight from
// preference_requested is treated as an implicit sms election, since the
// check only exists on the sms path.
func (w *Workflow) RecordVerification(match bool, now time.Time) error {
	if w == nil {
		return ErrNilWorkflow
	}
	if w.Status == StatusPreferenceRequested {
		if err := w.ElectChannel(contractx.ChannelSMS, now); err != nil {
			return err
		}
	}
	if w.Status != StatusSmsVerificationPending {
		return fmt.Errorf("%w: cannot verify from %s", ErrInvalidTransition, w.Status)
	}

	w.VerifyAttempts++
	if match {
		w.Status = StatusSmsAuthorized
		ts := now.UTC()
		w.VerifiedAt = &ts
	} else {
		w.Status = StatusSmsDenied
	}
	w.Touch(now)
	return nil
}

// CanDispatch reports whether sending over the channel is authorized right
// now. SMS fails closed: only sms_authorized permits it.
func (w *Workflow) CanDispatch(ch contractx.Channel) error {
	if w == nil {
		return ErrNilWorkflow
	}
	if w.Status == StatusDispatched {
		return contractx.ErrAlreadyDispatched
	}
	switch ch {
	case contractx.ChannelSMS:
		if w.Status != StatusSmsAuthorized {
			return fmt.Errorf("%w: status=%s", contractx.ErrSmsNotAuthorized, w.Status)
		}
	case contractx.ChannelEmail:
		switch w.Status {
		case StatusPreferenceRequested, StatusSmsVerificationPending, StatusSmsDenied, StatusEmailAuthorized, StatusSmsAuthorized:
		default:
			return fmt.Errorf("%w: cannot dispatch email from %s", ErrInvalidTransition, w.Status)
		}
	default:
		return fmt.Errorf("%w: unknown channel %q", contractx.ErrInvalidArgument, ch)
	}
	return nil
}

// MarkDispatched finalizes the workflow after a successful send.
func (w *Workflow) MarkDispatched(ch contractx.Channel, now time.Time) error {
	if err := w.CanDispatch(ch); err != nil {
		return err
	}
	w.Status = StatusDispatched
	w.DispatchedVia = ch
	w.Touch(now)
	return nil
}

func (w *Workflow) Validate() error {
	if w == nil {
		return ErrNilWorkflow
	}
	if strings.TrimSpace(w.ID) == "" {
		return ErrInvalidWorkflowID
	}
	switch w.Status {
	case StatusEventLogged, StatusPreferenceRequested, StatusSmsVerificationPending,
		StatusSmsAuthorized, StatusSmsDenied, StatusEmailAuthorized, StatusDispatched:
	default:
		return fmt.Errorf("unknown workflow status %q", w.Status)
	}
	if w.Status == StatusSmsAuthorized && w.VerifiedAt == nil {
		return fmt.Errorf("sms_authorized workflow %s has no verification timestamp", w.ID)
	}
	if w.Status == StatusDispatched && w.DispatchedVia == "" {
		return fmt.Errorf("dispatched workflow %s has no channel", w.ID)
	}
	return nil
}

// IdempotencyKey derives the duplicate-intake guard key: same client, case,
// and subtype on the same UTC day map to the same workflow.
func IdempotencyKey(clientName, caseID, subtype string, day time.Time) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", norm(clientName), norm(caseID), norm(subtype), day.UTC().Format("2006-01-02"))
	return hex.EncodeToString(h.Sum(nil))
}
