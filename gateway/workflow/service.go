package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	statex "github.com/miadvg/taxrise-gateway/gateway/state"
)

// DocumentObject is the CRM object that backs inbound event records.
const DocumentObject = "Document__c"

// Service runs the secure-communication workflow: intake, last-4
// verification, and authorized dispatch. Intake and dispatch are strictly
// separated — intake never touches the messenger, so no message can go out
// before a preference is known.
type Service struct {
	records   contractx.RecordStore
	messenger contractx.MessagingGateway
	store     statex.Store
	links     Links

	now   func() time.Time
	newID func() string
}

// Option customizes Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(records contractx.RecordStore, messenger contractx.MessagingGateway, store statex.Store, links Links, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if messenger == nil {
		return nil, errors.New("messaging gateway is required")
	}
	if store == nil {
		return nil, errors.New("workflow store is required")
	}

	s := &Service{
		records:   records,
		messenger: messenger,
		store:     store,
		links:     links,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// NoticeIntake is the input for an IRS-notice intake call.
type NoticeIntake struct {
	ClientName  string
	PhoneNumber string
	AccountID   string
	CaseID      string
	NoticeType  string
	NoticeDate  string
	Amount      string
}

// DocumentIntake is the input for a document-request intake call.
type DocumentIntake struct {
	ClientName   string
	PhoneNumber  string
	AccountID    string
	CaseID       string
	DocumentType string
	Reason       string
}

// IntakeResult reports the created (or, on duplicate intake, the existing)
// workflow instance and its durable record.
type IntakeResult struct {
	WorkflowID string
	RecordID   string
	Duplicate  bool
}

// IntakeNotice logs an IRS notice: exactly one Document__c record with
// status "Requested", then a workflow instance parked at
// preference_requested awaiting the client's channel election.
func (s *Service) IntakeNotice(ctx context.Context, in NoticeIntake) (IntakeResult, error) {
	if strings.TrimSpace(in.ClientName) == "" {
		return IntakeResult{}, fmt.Errorf("%w: clientName is required", contractx.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.NoticeType) == "" {
		return IntakeResult{}, fmt.Errorf("%w: noticeType is required", contractx.ErrInvalidArgument)
	}

	noticeDate := in.NoticeDate
	if noticeDate == "" {
		noticeDate = "Not provided"
	}
	amount := in.Amount
	if amount == "" {
		amount = "Not specified"
	}

	event := contractx.InboundEvent{
		Category:    contractx.CategoryIRSNotice,
		Subtype:     in.NoticeType,
		Name:        fmt.Sprintf("%s Notice - %s", in.NoticeType, in.ClientName),
		Description: fmt.Sprintf("IRS Notice %s received from client %s. Date: %s. Amount: %s.", in.NoticeType, in.ClientName, noticeDate, amount),
		Status:      contractx.EventStatusRequested,
		CaseID:      in.CaseID,
	}

	return s.intake(ctx, event, in.ClientName, in.PhoneNumber, in.AccountID)
}

// IntakeDocumentRequest logs a document need the same way.
func (s *Service) IntakeDocumentRequest(ctx context.Context, in DocumentIntake) (IntakeResult, error) {
	if strings.TrimSpace(in.ClientName) == "" {
		return IntakeResult{}, fmt.Errorf("%w: clientName is required", contractx.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.DocumentType) == "" {
		return IntakeResult{}, fmt.Errorf("%w: documentType is required", contractx.ErrInvalidArgument)
	}

	reason := in.Reason
	if reason == "" {
		reason = "Client mentioned needing to upload documents"
	}

	event := contractx.InboundEvent{
		Category:    contractx.CategoryDocumentRequest,
		Subtype:     in.DocumentType,
		Name:        fmt.Sprintf("%s - %s", in.DocumentType, in.ClientName),
		Description: fmt.Sprintf("Document request: %s. Reason: %s.", in.DocumentType, reason),
		Status:      contractx.EventStatusRequested,
		CaseID:      in.CaseID,
	}

	return s.intake(ctx, event, in.ClientName, in.PhoneNumber, in.AccountID)
}

func (s *Service) intake(ctx context.Context, event contractx.InboundEvent, clientName, phone, accountID string) (IntakeResult, error) {
	now := s.now()
	key := statex.IdempotencyKey(clientName, event.CaseID, event.Subtype, now)

	existing, err := s.store.FindByIdempotencyKey(ctx, key)
	switch {
	case err == nil:
		log.Info().Str("workflow_id", existing.ID).Str("subtype", event.Subtype).
			Msg("duplicate intake short-circuited to existing workflow")
		return IntakeResult{WorkflowID: existing.ID, RecordID: existing.RecordID, Duplicate: true}, nil
	case errors.Is(err, statex.ErrNotFound):
		// first intake for this client/case/subtype today
	default:
		return IntakeResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	fields := map[string]any{
		"Doc_Category__c": string(event.Category),
		"Doc_Type__c":     event.Subtype,
		"Name":            event.Name,
		"Status__c":       event.Status,
		"Description__c":  event.Description,
	}
	if event.Category == contractx.CategoryIRSNotice {
		// Notices are filed under a fixed doc type; the notice number only
		// appears in Name and Description.
		fields["Doc_Type__c"] = "IRS Notice"
	}
	if event.CaseID != "" {
		fields["Case__c"] = event.CaseID
	}

	created, err := s.records.Create(ctx, DocumentObject, fields)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if !created.Success {
		return IntakeResult{}, fmt.Errorf("%w: create %s: %s", contractx.ErrRecordStore, DocumentObject, strings.Join(created.Errors, "; "))
	}

	wf := statex.NewWorkflow(s.newID(), event.Category, event.Subtype, clientName, now)
	wf.IdempotencyKey = key
	wf.PhoneNumber = phone
	wf.AccountID = accountID
	wf.CaseID = event.CaseID
	wf.RecordID = created.ID
	if err := wf.MarkPreferenceRequested(now); err != nil {
		return IntakeResult{}, err
	}
	if err := s.store.Save(ctx, wf); err != nil {
		return IntakeResult{}, fmt.Errorf("save workflow: %w", err)
	}

	log.Info().Str("workflow_id", wf.ID).Str("record_id", created.ID).
		Str("category", string(event.Category)).Str("subtype", event.Subtype).
		Msg("inbound event logged")

	return IntakeResult{WorkflowID: wf.ID, RecordID: created.ID}, nil
}

// VerifyPhoneLastFour runs the pure last-4 comparison and, when a workflow id
// is supplied, records the outcome on the instance so dispatch can enforce it.
func (s *Service) VerifyPhoneLastFour(ctx context.Context, workflowID, onFilePhone, fragment string) (contractx.VerificationResult, error) {
	if strings.TrimSpace(onFilePhone) == "" {
		return contractx.VerificationResult{}, fmt.Errorf("%w: phoneNumber is required", contractx.ErrInvalidArgument)
	}
	if strings.TrimSpace(fragment) == "" {
		return contractx.VerificationResult{}, fmt.Errorf("%w: last4 is required", contractx.ErrInvalidArgument)
	}

	now := s.now()
	result := VerifyLastFour(onFilePhone, fragment, now)

	if workflowID = strings.TrimSpace(workflowID); workflowID != "" {
		wf, err := s.store.Load(ctx, workflowID)
		if err != nil {
			return contractx.VerificationResult{}, err
		}
		if err := wf.RecordVerification(result.Match, now); err != nil {
			return contractx.VerificationResult{}, err
		}
		if err := s.store.Save(ctx, wf); err != nil {
			return contractx.VerificationResult{}, fmt.Errorf("save workflow: %w", err)
		}
		log.Info().Str("workflow_id", workflowID).Bool("match", result.Match).
			Int("attempts", wf.VerifyAttempts).Msg("phone verification recorded")
	}

	return result, nil
}

// DispatchResult reports an authorized, completed send.
type DispatchResult struct {
	Channel contractx.Channel
	Receipt contractx.Receipt
	Message Message
}

// Dispatch sends the secure link over the elected channel. SMS fails closed:
// it requires a workflow instance in sms_authorized, so a mismatch (or no
// verification at all) can never be talked around by the caller. Email is
// ungated beyond the election itself and serves as the mismatch fallback.
func (s *Service) Dispatch(ctx context.Context, req contractx.CommunicationRequest) (DispatchResult, error) {
	if strings.TrimSpace(req.ClientName) == "" {
		return DispatchResult{}, fmt.Errorf("%w: clientName is required", contractx.ErrInvalidArgument)
	}

	switch req.Method {
	case contractx.ChannelSMS:
		if NormalizeDigits(req.PhoneNumber) == "" {
			return DispatchResult{}, fmt.Errorf("%w: phoneNumber is required for sms", contractx.ErrInvalidArgument)
		}
	case contractx.ChannelEmail:
		if strings.TrimSpace(req.Email) == "" {
			return DispatchResult{}, fmt.Errorf("%w: email is required for email dispatch", contractx.ErrInvalidArgument)
		}
	default:
		return DispatchResult{}, fmt.Errorf("%w: method must be sms or email", contractx.ErrInvalidArgument)
	}

	msg, err := Render(s.links, req)
	if err != nil {
		return DispatchResult{}, err
	}

	now := s.now()
	var wf *statex.Workflow
	if id := strings.TrimSpace(req.WorkflowID); id != "" {
		wf, err = s.store.Load(ctx, id)
		if err != nil {
			return DispatchResult{}, err
		}
		if req.Method == contractx.ChannelEmail {
			if err := wf.ElectChannel(contractx.ChannelEmail, now); err != nil {
				return DispatchResult{}, err
			}
		}
		if err := wf.CanDispatch(req.Method); err != nil {
			return DispatchResult{}, err
		}
	} else if req.Method == contractx.ChannelSMS {
		return DispatchResult{}, fmt.Errorf("%w: sms dispatch requires a workflowId from intake", contractx.ErrSmsNotAuthorized)
	}

	var receipt contractx.Receipt
	switch req.Method {
	case contractx.ChannelSMS:
		receipt, err = s.messenger.SendSMS(ctx, req.PhoneNumber, msg.Text)
	case contractx.ChannelEmail:
		receipt, err = s.messenger.SendEmail(ctx, req.Email, msg.Subject, msg.HTML, msg.Text)
	}
	if err != nil {
		return DispatchResult{}, err
	}

	if wf != nil {
		if err := wf.MarkDispatched(req.Method, now); err != nil {
			return DispatchResult{}, err
		}
		if err := s.store.Save(ctx, wf); err != nil {
			return DispatchResult{}, fmt.Errorf("save workflow: %w", err)
		}
	}

	log.Info().Str("method", string(req.Method)).Str("message_type", string(req.MessageType)).
		Str("workflow_id", req.WorkflowID).Str("provider_message_id", receipt.MessageID).
		Msg("secure communication dispatched")

	return DispatchResult{Channel: req.Method, Receipt: receipt, Message: msg}, nil
}
