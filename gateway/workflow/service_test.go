package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	statex "github.com/miadvg/taxrise-gateway/gateway/state"
)

type createCall struct {
	object string
	fields map[string]any
}

type fakeRecords struct {
	creates   []createCall
	createErr error
}

func (f *fakeRecords) Query(context.Context, string) ([]map[string]any, error) {
	return nil, nil
}

func (f *fakeRecords) Create(_ context.Context, object string, fields map[string]any) (contractx.CreateResult, error) {
	if f.createErr != nil {
		return contractx.CreateResult{}, f.createErr
	}
	f.creates = append(f.creates, createCall{object: object, fields: fields})
	return contractx.CreateResult{ID: fmt.Sprintf("rec-%d", len(f.creates)), Success: true}, nil
}

type smsCall struct {
	to   string
	body string
}

type emailCall struct {
	to      string
	subject string
	html    string
	text    string
}

type fakeMessenger struct {
	sms    []smsCall
	emails []emailCall
}

func (f *fakeMessenger) SendSMS(_ context.Context, toPhone, body string) (contractx.Receipt, error) {
	f.sms = append(f.sms, smsCall{to: toPhone, body: body})
	return contractx.Receipt{Accepted: true, MessageID: "sms-1"}, nil
}

func (f *fakeMessenger) SendEmail(_ context.Context, toAddr, subject, htmlBody, textBody string) (contractx.Receipt, error) {
	f.emails = append(f.emails, emailCall{to: toAddr, subject: subject, html: htmlBody, text: textBody})
	return contractx.Receipt{Accepted: true}, nil
}

type fixture struct {
	svc       *Service
	records   *fakeRecords
	messenger *fakeMessenger
	store     *statex.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	records := &fakeRecords{}
	messenger := &fakeMessenger{}
	store := statex.NewMemoryStore()

	ids := 0
	svc, err := NewService(records, messenger, store, testLinks,
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("wf-%d", ids)
		}),
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	return &fixture{svc: svc, records: records, messenger: messenger, store: store}
}

func TestIntakeNoticeCreatesOneRecordAndSendsNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{
		ClientName: "Jane Doe",
		NoticeType: "CP503",
		CaseID:     "case-1",
	})
	if err != nil {
		t.Fatalf("IntakeNotice() error = %v", err)
	}
	if result.Duplicate {
		t.Fatal("Duplicate = true on first intake")
	}

	if len(f.records.creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(f.records.creates))
	}
	create := f.records.creates[0]
	if create.object != "Document__c" {
		t.Fatalf("object = %s, want Document__c", create.object)
	}
	if create.fields["Doc_Category__c"] != "IRS Notice" {
		t.Fatalf("Doc_Category__c = %v", create.fields["Doc_Category__c"])
	}
	if create.fields["Doc_Type__c"] != "IRS Notice" {
		t.Fatalf("Doc_Type__c = %v, want IRS Notice", create.fields["Doc_Type__c"])
	}
	if create.fields["Status__c"] != "Requested" {
		t.Fatalf("Status__c = %v", create.fields["Status__c"])
	}
	if create.fields["Name"] != "CP503 Notice - Jane Doe" {
		t.Fatalf("Name = %v", create.fields["Name"])
	}
	desc, _ := create.fields["Description__c"].(string)
	if !strings.Contains(desc, "CP503") || !strings.Contains(desc, "Date: Not provided") || !strings.Contains(desc, "Amount: Not specified") {
		t.Fatalf("Description__c = %s", desc)
	}

	if len(f.messenger.sms) != 0 || len(f.messenger.emails) != 0 {
		t.Fatal("intake sent a message")
	}

	wf, err := f.store.Load(context.Background(), result.WorkflowID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if wf.Status != statex.StatusPreferenceRequested {
		t.Fatalf("Status = %s, want preference_requested", wf.Status)
	}
}

func TestIntakeDuplicateSameDayShortCircuits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	in := NoticeIntake{ClientName: "Jane Doe", NoticeType: "CP2000", CaseID: "case-1"}

	first, err := f.svc.IntakeNotice(context.Background(), in)
	if err != nil {
		t.Fatalf("first IntakeNotice() error = %v", err)
	}
	second, err := f.svc.IntakeNotice(context.Background(), in)
	if err != nil {
		t.Fatalf("second IntakeNotice() error = %v", err)
	}

	if !second.Duplicate {
		t.Fatal("Duplicate = false on repeat intake")
	}
	if second.WorkflowID != first.WorkflowID {
		t.Fatalf("WorkflowID = %s, want %s", second.WorkflowID, first.WorkflowID)
	}
	if len(f.records.creates) != 1 {
		t.Fatalf("creates = %d, want 1 (no second record)", len(f.records.creates))
	}
}

func TestIntakeDocumentRequestUsesDocumentType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.IntakeDocumentRequest(context.Background(), DocumentIntake{
		ClientName:   "John Smith",
		DocumentType: "W-2",
	})
	if err != nil {
		t.Fatalf("IntakeDocumentRequest() error = %v", err)
	}

	create := f.records.creates[0]
	if create.fields["Doc_Category__c"] != "Supporting Documents" {
		t.Fatalf("Doc_Category__c = %v", create.fields["Doc_Category__c"])
	}
	if create.fields["Doc_Type__c"] != "W-2" {
		t.Fatalf("Doc_Type__c = %v, want W-2", create.fields["Doc_Type__c"])
	}
	desc, _ := create.fields["Description__c"].(string)
	if !strings.Contains(desc, "Client mentioned needing to upload documents") {
		t.Fatalf("Description__c = %s, want default reason", desc)
	}
}

func TestIntakeRequiresClientName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{NoticeType: "CP2000"}); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("IntakeNotice() error = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.svc.IntakeDocumentRequest(context.Background(), DocumentIntake{ClientName: "Jane"}); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("IntakeDocumentRequest() without documentType error = %v, want ErrInvalidArgument", err)
	}
}

func TestDispatchEmailPaymentReminder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	intake, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{ClientName: "Jane Doe", NoticeType: "CP2000"})
	if err != nil {
		t.Fatalf("IntakeNotice() error = %v", err)
	}

	result, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		WorkflowID:  intake.WorkflowID,
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelEmail,
		Email:       "jane@example.com",
		AccountID:   "001A",
		MessageType: contractx.MessagePaymentReminder,
		Context:     map[string]string{"amount": "250", "dueDate": "2024-05-01"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Channel != contractx.ChannelEmail {
		t.Fatalf("Channel = %s, want email", result.Channel)
	}

	if len(f.messenger.emails) != 1 {
		t.Fatalf("emails = %d, want 1", len(f.messenger.emails))
	}
	sent := f.messenger.emails[0]
	if sent.to != "jane@example.com" {
		t.Fatalf("to = %s", sent.to)
	}
	if !strings.Contains(sent.text, "$250") || !strings.Contains(sent.text, "2024-05-01") {
		t.Fatalf("text = %s", sent.text)
	}
	if !strings.Contains(sent.text, "https://payment.taxrise.com/001A") {
		t.Fatalf("text missing payment link: %s", sent.text)
	}

	wf, err := f.store.Load(context.Background(), intake.WorkflowID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if wf.Status != statex.StatusDispatched || wf.DispatchedVia != contractx.ChannelEmail {
		t.Fatalf("workflow = %s via %s", wf.Status, wf.DispatchedVia)
	}
}

func TestDispatchSmsWithoutWorkflowFailsClosed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelSMS,
		PhoneNumber: "5551234567",
		MessageType: contractx.MessageIRSNotice,
	})
	if !errors.Is(err, contractx.ErrSmsNotAuthorized) {
		t.Fatalf("Dispatch() error = %v, want ErrSmsNotAuthorized", err)
	}
	if len(f.messenger.sms) != 0 {
		t.Fatal("sms was sent without authorization")
	}
}

func TestDispatchSmsAfterMismatchIsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	intake, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{ClientName: "Jane Doe", NoticeType: "CP2000"})
	if err != nil {
		t.Fatalf("IntakeNotice() error = %v", err)
	}

	result, err := f.svc.VerifyPhoneLastFour(context.Background(), intake.WorkflowID, "5551234567", "9999")
	if err != nil {
		t.Fatalf("VerifyPhoneLastFour() error = %v", err)
	}
	if result.Match {
		t.Fatal("Match = true for wrong digits")
	}

	_, err = f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		WorkflowID:  intake.WorkflowID,
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelSMS,
		PhoneNumber: "5551234567",
		MessageType: contractx.MessageIRSNotice,
	})
	if !errors.Is(err, contractx.ErrSmsNotAuthorized) {
		t.Fatalf("Dispatch(sms) after mismatch error = %v, want ErrSmsNotAuthorized", err)
	}
	if len(f.messenger.sms) != 0 {
		t.Fatal("sms was sent after a verification mismatch")
	}

	// The email fallback still works on the same workflow.
	if _, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		WorkflowID:  intake.WorkflowID,
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelEmail,
		Email:       "jane@example.com",
		MessageType: contractx.MessageIRSNotice,
	}); err != nil {
		t.Fatalf("Dispatch(email) fallback error = %v", err)
	}
	if len(f.messenger.emails) != 1 {
		t.Fatalf("emails = %d, want 1", len(f.messenger.emails))
	}
}

func TestDispatchSmsAfterMatchSends(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	intake, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{
		ClientName: "Jane Doe",
		NoticeType: "CP2000",
	})
	if err != nil {
		t.Fatalf("IntakeNotice() error = %v", err)
	}

	result, err := f.svc.VerifyPhoneLastFour(context.Background(), intake.WorkflowID, "5551234567", "4567")
	if err != nil {
		t.Fatalf("VerifyPhoneLastFour() error = %v", err)
	}
	if !result.Match {
		t.Fatal("Match = false for correct digits")
	}

	dispatch, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		WorkflowID:  intake.WorkflowID,
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelSMS,
		PhoneNumber: "5551234567",
		AccountID:   "001A",
		MessageType: contractx.MessageIRSNotice,
		Context:     map[string]string{"noticeType": "CP2000"},
	})
	if err != nil {
		t.Fatalf("Dispatch(sms) error = %v", err)
	}
	if dispatch.Receipt.MessageID != "sms-1" {
		t.Fatalf("MessageID = %s", dispatch.Receipt.MessageID)
	}

	if len(f.messenger.sms) != 1 {
		t.Fatalf("sms = %d, want 1", len(f.messenger.sms))
	}
	if !strings.Contains(f.messenger.sms[0].body, "CP2000") {
		t.Fatalf("sms body = %s", f.messenger.sms[0].body)
	}
}

func TestDispatchTwiceIsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	intake, err := f.svc.IntakeNotice(context.Background(), NoticeIntake{ClientName: "Jane Doe", NoticeType: "CP2000"})
	if err != nil {
		t.Fatalf("IntakeNotice() error = %v", err)
	}

	req := contractx.CommunicationRequest{
		WorkflowID:  intake.WorkflowID,
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelEmail,
		Email:       "jane@example.com",
		MessageType: contractx.MessageIRSNotice,
	}
	if _, err := f.svc.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("first Dispatch() error = %v", err)
	}
	if _, err := f.svc.Dispatch(context.Background(), req); !errors.Is(err, contractx.ErrAlreadyDispatched) {
		t.Fatalf("second Dispatch() error = %v, want ErrAlreadyDispatched", err)
	}
	if len(f.messenger.emails) != 1 {
		t.Fatalf("emails = %d, want 1", len(f.messenger.emails))
	}
}

func TestDispatchValidatesDestination(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		ClientName:  "Jane Doe",
		Method:      contractx.ChannelEmail,
		MessageType: contractx.MessageIRSNotice,
	}); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("Dispatch(email) without address error = %v, want ErrInvalidArgument", err)
	}

	if _, err := f.svc.Dispatch(context.Background(), contractx.CommunicationRequest{
		ClientName:  "Jane Doe",
		Method:      "carrier pigeon",
		MessageType: contractx.MessageIRSNotice,
	}); !errors.Is(err, contractx.ErrInvalidArgument) {
		t.Fatalf("Dispatch() with unknown method error = %v, want ErrInvalidArgument", err)
	}
}

func TestVerifyPhoneLastFourWithoutWorkflowIsPure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.svc.VerifyPhoneLastFour(context.Background(), "", "5551234567", "4567")
	if err != nil {
		t.Fatalf("VerifyPhoneLastFour() error = %v", err)
	}
	if !result.Match {
		t.Fatal("Match = false")
	}
}

func TestVerifyPhoneLastFourUnknownWorkflow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.svc.VerifyPhoneLastFour(context.Background(), "missing", "5551234567", "4567"); !errors.Is(err, statex.ErrNotFound) {
		t.Fatalf("VerifyPhoneLastFour() error = %v, want ErrNotFound", err)
	}
}
