package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	workflowx "github.com/miadvg/taxrise-gateway/gateway/workflow"
	"github.com/miadvg/taxrise-gateway/pkg/salesforce"
)

// CaseObject is the CRM object for tax-resolution cases.
const CaseObject = "Case__c"

// MailRequestObject backs physical-mail requests.
const MailRequestObject = "Mail_Request__c"

// Service covers the single-shot case operations: pending-signature lookup,
// emailing return documents, and logging physical-mail requests.
type Service struct {
	records   contractx.RecordStore
	messenger contractx.MessagingGateway
	links     workflowx.Links
}

func NewService(records contractx.RecordStore, messenger contractx.MessagingGateway, links workflowx.Links) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if messenger == nil {
		return nil, errors.New("messaging gateway is required")
	}
	return &Service{records: records, messenger: messenger, links: links}, nil
}

// PendingFilter narrows the pending-signature search. At most one criterion
// applies, in the listed priority order.
type PendingFilter struct {
	CaseID      string
	PhoneNumber string
	ClientName  string
}

// PendingSignatureCases lists cases waiting on a client signature, newest
// first, capped at 10.
func (s *Service) PendingSignatureCases(ctx context.Context, filter PendingFilter) ([]contractx.CaseRecord, error) {
	q := salesforce.NewSOQL(CaseObject,
		"Id", "CaseNumber", "Contact.Name", "Contact.Phone", "Contact.Email",
		"Subject", "Status", "CreatedDate").
		WhereEq("Status", contractx.CaseStatusPendingSignature)

	switch {
	case strings.TrimSpace(filter.CaseID) != "":
		q.WhereEq("Id", strings.TrimSpace(filter.CaseID))
	case salesforce.Digits(filter.PhoneNumber) != "":
		q.WhereAnyContains(salesforce.Digits(filter.PhoneNumber), "Contact.Phone", "Contact.MobilePhone")
	case strings.TrimSpace(filter.ClientName) != "":
		q.WhereContains("Contact.Name", strings.TrimSpace(filter.ClientName))
	}

	q.OrderByDesc("CreatedDate").Limit(10)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}

	out := make([]contractx.CaseRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, caseFromRecord(rec))
	}
	return out, nil
}

// ReturnsResult reports a sent returns email.
type ReturnsResult struct {
	CaseNumber string
	Email      string
	ClientName string
}

// SendReturns emails the tax-return package for a case, with the secure
// upload and payment links. Explicit email/name override the contact on file.
func (s *Service) SendReturns(ctx context.Context, caseID, overrideEmail, overrideName string) (ReturnsResult, error) {
	if strings.TrimSpace(caseID) == "" {
		return ReturnsResult{}, fmt.Errorf("%w: caseId is required", contractx.ErrInvalidArgument)
	}

	rec, err := s.caseByID(ctx, caseID, "Contact.Name", "Contact.Email", "Contact.AccountId")
	if err != nil {
		return ReturnsResult{}, err
	}

	email := strings.TrimSpace(overrideEmail)
	if email == "" {
		email = rec.Email
	}
	if email == "" {
		return ReturnsResult{}, fmt.Errorf("%w: case=%s", contractx.ErrNoEmailOnFile, caseID)
	}

	name := strings.TrimSpace(overrideName)
	if name == "" {
		name = rec.ClientName
	}
	if name == "" {
		name = "Valued Client"
	}

	subject := fmt.Sprintf("Your Tax Return Documents - Case %s", rec.CaseNumber)
	htmlBody, textBody := returnsEmail(name, s.links.Upload(rec.AccountID), s.links.Payment(rec.AccountID))

	if _, err := s.messenger.SendEmail(ctx, email, subject, htmlBody, textBody); err != nil {
		return ReturnsResult{}, err
	}

	log.Info().Str("case_id", rec.ID).Str("case_number", rec.CaseNumber).
		Msg("tax returns emailed")

	return ReturnsResult{CaseNumber: rec.CaseNumber, Email: email, ClientName: name}, nil
}

// MailRequestInput describes a physical-mail request.
type MailRequestInput struct {
	CaseID        string
	RequestType   string
	DocumentType  string
	ClientAddress string
}

// MailRequest is the logged request.
type MailRequest struct {
	RecordID     string
	CaseNumber   string
	ClientName   string
	Address      string
	RequestType  string
	DocumentType string
	Status       string
}

// CreateMailRequest logs a request to mail documents to the client's
// address on file (or an explicit address).
func (s *Service) CreateMailRequest(ctx context.Context, in MailRequestInput) (MailRequest, error) {
	if strings.TrimSpace(in.CaseID) == "" {
		return MailRequest{}, fmt.Errorf("%w: caseId is required", contractx.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.RequestType) == "" || strings.TrimSpace(in.DocumentType) == "" {
		return MailRequest{}, fmt.Errorf("%w: requestType and documentType are required", contractx.ErrInvalidArgument)
	}

	q := salesforce.NewSOQL(CaseObject,
		"Id", "CaseNumber", "Contact.Name", "Contact.MailingAddress", "Contact.AccountId", "Subject").
		WhereEq("Id", strings.TrimSpace(in.CaseID)).
		Limit(1)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return MailRequest{}, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if len(records) == 0 {
		return MailRequest{}, fmt.Errorf("%w: id=%s", contractx.ErrCaseNotFound, in.CaseID)
	}
	rec := records[0]

	address := strings.TrimSpace(in.ClientAddress)
	if address == "" {
		address = strings.TrimSpace(strings.Join([]string{
			salesforce.Str(rec, "Contact", "MailingAddress", "street"),
			salesforce.Str(rec, "Contact", "MailingAddress", "city"),
			salesforce.Str(rec, "Contact", "MailingAddress", "state"),
			salesforce.Str(rec, "Contact", "MailingAddress", "postalCode"),
		}, " "))
	}

	created, err := s.records.Create(ctx, MailRequestObject, map[string]any{
		"Case__c":         salesforce.Str(rec, "Id"),
		"Request_Type__c": in.RequestType,
		"Doc_Type__c":     in.DocumentType,
		"Address__c":      address,
		"Status__c":       contractx.EventStatusRequested,
	})
	if err != nil {
		return MailRequest{}, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if !created.Success {
		return MailRequest{}, fmt.Errorf("%w: create %s: %s", contractx.ErrRecordStore, MailRequestObject, strings.Join(created.Errors, "; "))
	}

	return MailRequest{
		RecordID:     created.ID,
		CaseNumber:   salesforce.Str(rec, "CaseNumber"),
		ClientName:   salesforce.Str(rec, "Contact", "Name"),
		Address:      address,
		RequestType:  in.RequestType,
		DocumentType: in.DocumentType,
		Status:       contractx.EventStatusRequested,
	}, nil
}

func (s *Service) caseByID(ctx context.Context, caseID string, contactFields ...string) (contractx.CaseRecord, error) {
	fields := append([]string{"Id", "CaseNumber", "Subject", "Status"}, contactFields...)
	q := salesforce.NewSOQL(CaseObject, fields...).
		WhereEq("Id", strings.TrimSpace(caseID)).
		Limit(1)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return contractx.CaseRecord{}, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if len(records) == 0 {
		return contractx.CaseRecord{}, fmt.Errorf("%w: id=%s", contractx.ErrCaseNotFound, caseID)
	}

	return caseFromRecord(records[0]), nil
}

func caseFromRecord(rec map[string]any) contractx.CaseRecord {
	return contractx.CaseRecord{
		ID:          salesforce.Str(rec, "Id"),
		CaseNumber:  salesforce.Str(rec, "CaseNumber"),
		ClientName:  salesforce.Str(rec, "Contact", "Name"),
		Phone:       salesforce.Str(rec, "Contact", "Phone"),
		Email:       salesforce.Str(rec, "Contact", "Email"),
		AccountID:   salesforce.Str(rec, "Contact", "AccountId"),
		Subject:     salesforce.Str(rec, "Subject"),
		Status:      salesforce.Str(rec, "Status"),
		CreatedDate: salesforce.Str(rec, "CreatedDate"),
	}
}

func returnsEmail(name, uploadLink, paymentLink string) (htmlBody, textBody string) {
	htmlBody = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #002d5f; color: white; padding: 20px; text-align: center;">
    <h1>TaxRise</h1>
    <p>We rise by lifting others.</p>
  </div>
  <div style="padding: 30px; background-color: #f9f9f9;">
    <p>Dear %s,</p>
    <p>Your tax return documents are ready for your review and signature. Please find them attached to this email.</p>
    <div style="background-color: white; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #0c68a7;">
      <h3>Quick Actions:</h3>
      <p><strong>Upload Additional Documents:</strong> <a href="%s" style="color: #0c68a7;">Click here to upload securely</a></p>
      <p><strong>Make a Payment:</strong> <a href="%s" style="color: #0c68a7;">Click here to pay online</a></p>
    </div>
    <p>If you have any questions or need assistance, please don't hesitate to reach out to your dedicated tax resolution specialist.</p>
    <p>Thank you for choosing TaxRise!</p>
  </div>
</div>`, name, uploadLink, paymentLink)

	textBody = fmt.Sprintf("Dear %s, your tax return documents are ready. Upload documents: %s. Make payments: %s", name, uploadLink, paymentLink)
	return htmlBody, textBody
}
