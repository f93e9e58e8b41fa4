package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

var testTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func loggedWorkflow(t *testing.T) *Workflow {
	t.Helper()
	w := NewWorkflow("wf-1", contractx.CategoryIRSNotice, "CP2000", "Jane Doe", testTime)
	if err := w.MarkPreferenceRequested(testTime); err != nil {
		t.Fatalf("MarkPreferenceRequested() error = %v", err)
	}
	return w
}

func TestNewWorkflowStartsEventLogged(t *testing.T) {
	t.Parallel()

	w := NewWorkflow("wf-1", contractx.CategoryIRSNotice, "CP2000", "Jane Doe", testTime)
	if w.Status != StatusEventLogged {
		t.Fatalf("Status = %s, want %s", w.Status, StatusEventLogged)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMarkPreferenceRequestedOnlyFromEventLogged(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.MarkPreferenceRequested(testTime); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second MarkPreferenceRequested() error = %v, want ErrInvalidTransition", err)
	}
}

func TestElectEmailAuthorizesImmediately(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.ElectChannel(contractx.ChannelEmail, testTime); err != nil {
		t.Fatalf("ElectChannel(email) error = %v", err)
	}
	if w.Status != StatusEmailAuthorized {
		t.Fatalf("Status = %s, want %s", w.Status, StatusEmailAuthorized)
	}
	if err := w.CanDispatch(contractx.ChannelEmail); err != nil {
		t.Fatalf("CanDispatch(email) error = %v", err)
	}
}

func TestElectSmsParksForVerification(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.ElectChannel(contractx.ChannelSMS, testTime); err != nil {
		t.Fatalf("ElectChannel(sms) error = %v", err)
	}
	if w.Status != StatusSmsVerificationPending {
		t.Fatalf("Status = %s, want %s", w.Status, StatusSmsVerificationPending)
	}
	if err := w.CanDispatch(contractx.ChannelSMS); !errors.Is(err, contractx.ErrSmsNotAuthorized) {
		t.Fatalf("CanDispatch(sms) before verification error = %v, want ErrSmsNotAuthorized", err)
	}
}

func TestVerificationMatchAuthorizesSms(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.ElectChannel(contractx.ChannelSMS, testTime); err != nil {
		t.Fatalf("ElectChannel(sms) error = %v", err)
	}
	if err := w.RecordVerification(true, testTime); err != nil {
		t.Fatalf("RecordVerification(true) error = %v", err)
	}
	if w.Status != StatusSmsAuthorized {
		t.Fatalf("Status = %s, want %s", w.Status, StatusSmsAuthorized)
	}
	if w.VerifiedAt == nil {
		t.Fatal("VerifiedAt = nil after match")
	}
	if err := w.CanDispatch(contractx.ChannelSMS); err != nil {
		t.Fatalf("CanDispatch(sms) error = %v", err)
	}
}

func TestVerificationMismatchDeniesSmsAndAllowsEmailFallback(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.RecordVerification(false, testTime); err != nil {
		t.Fatalf("RecordVerification(false) error = %v", err)
	}
	if w.Status != StatusSmsDenied {
		t.Fatalf("Status = %s, want %s", w.Status, StatusSmsDenied)
	}
	if w.VerifyAttempts != 1 {
		t.Fatalf("VerifyAttempts = %d, want 1", w.VerifyAttempts)
	}

	// SMS stays closed after a mismatch.
	if err := w.CanDispatch(contractx.ChannelSMS); !errors.Is(err, contractx.ErrSmsNotAuthorized) {
		t.Fatalf("CanDispatch(sms) after mismatch error = %v, want ErrSmsNotAuthorized", err)
	}
	// Re-electing sms is also closed.
	if err := w.ElectChannel(contractx.ChannelSMS, testTime); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ElectChannel(sms) after mismatch error = %v, want ErrInvalidTransition", err)
	}
	// Email fallback remains open.
	if err := w.ElectChannel(contractx.ChannelEmail, testTime); err != nil {
		t.Fatalf("ElectChannel(email) fallback error = %v", err)
	}
	if w.Status != StatusEmailAuthorized {
		t.Fatalf("Status = %s, want %s", w.Status, StatusEmailAuthorized)
	}
}

func TestVerificationFromPreferenceRequestedImpliesSmsElection(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.RecordVerification(true, testTime); err != nil {
		t.Fatalf("RecordVerification() error = %v", err)
	}
	if w.Channel != contractx.ChannelSMS {
		t.Fatalf("Channel = %s, want sms", w.Channel)
	}
	if w.Status != StatusSmsAuthorized {
		t.Fatalf("Status = %s, want %s", w.Status, StatusSmsAuthorized)
	}
}

func TestMarkDispatchedBlocksSecondDispatch(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.ElectChannel(contractx.ChannelEmail, testTime); err != nil {
		t.Fatalf("ElectChannel(email) error = %v", err)
	}
	if err := w.MarkDispatched(contractx.ChannelEmail, testTime); err != nil {
		t.Fatalf("MarkDispatched() error = %v", err)
	}
	if w.Status != StatusDispatched || w.DispatchedVia != contractx.ChannelEmail {
		t.Fatalf("workflow after dispatch = %s via %s", w.Status, w.DispatchedVia)
	}

	if err := w.CanDispatch(contractx.ChannelEmail); !errors.Is(err, contractx.ErrAlreadyDispatched) {
		t.Fatalf("CanDispatch() after dispatch error = %v, want ErrAlreadyDispatched", err)
	}
	if err := w.MarkDispatched(contractx.ChannelSMS, testTime); !errors.Is(err, contractx.ErrAlreadyDispatched) {
		t.Fatalf("MarkDispatched() twice error = %v, want ErrAlreadyDispatched", err)
	}
}

func TestMarkDispatchedSmsWithoutAuthorizationFailsClosed(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	if err := w.MarkDispatched(contractx.ChannelSMS, testTime); !errors.Is(err, contractx.ErrSmsNotAuthorized) {
		t.Fatalf("MarkDispatched(sms) error = %v, want ErrSmsNotAuthorized", err)
	}
	if w.Status != StatusPreferenceRequested {
		t.Fatalf("Status = %s, want unchanged %s", w.Status, StatusPreferenceRequested)
	}
}

func TestValidateRejectsInconsistentStates(t *testing.T) {
	t.Parallel()

	w := loggedWorkflow(t)
	w.Status = StatusSmsAuthorized
	if err := w.Validate(); err == nil {
		t.Fatal("Validate() sms_authorized without VerifiedAt, want error")
	}

	w = loggedWorkflow(t)
	w.Status = StatusDispatched
	if err := w.Validate(); err == nil {
		t.Fatal("Validate() dispatched without channel, want error")
	}

	w = loggedWorkflow(t)
	w.Status = "bogus"
	if err := w.Validate(); err == nil {
		t.Fatal("Validate() unknown status, want error")
	}

	w = loggedWorkflow(t)
	w.ID = " "
	if err := w.Validate(); !errors.Is(err, ErrInvalidWorkflowID) {
		t.Fatalf("Validate() blank id error = %v, want ErrInvalidWorkflowID", err)
	}
}

func TestIdempotencyKeyNormalizesAndPinsToDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	a := IdempotencyKey("Jane Doe", "case-1", "CP2000", day)
	b := IdempotencyKey("  jane doe ", "CASE-1", "cp2000", day.Add(-5*time.Hour))
	if a != b {
		t.Fatalf("keys differ for equivalent intake:\n%s\n%s", a, b)
	}

	nextDay := IdempotencyKey("Jane Doe", "case-1", "CP2000", day.Add(time.Hour))
	if a == nextDay {
		t.Fatal("keys match across UTC day boundary")
	}

	otherSubtype := IdempotencyKey("Jane Doe", "case-1", "CP504", day)
	if a == otherSubtype {
		t.Fatal("keys match across subtypes")
	}
}
