package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	"github.com/miadvg/taxrise-gateway/pkg/salesforce"
)

// Service answers single-shot client-intelligence lookups against the
// Record Store: who is calling, do phone+ZIP match, when did we last call.
type Service struct {
	records contractx.RecordStore
}

func NewService(records contractx.RecordStore) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	return &Service{records: records}, nil
}

var accountFields = []string{
	"Id", "Name", "PersonEmail", "PersonMobilePhone", "Phone",
	"PersonMailingPostalCode", "PersonMailingCity", "PersonMailingState",
	"Home_Zip_Code__c",
}

// LookupByPhone finds the most recent account whose phone matches, with its
// open cases.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (*contractx.ClientRecord, error) {
	clean := salesforce.Digits(phone)
	if clean == "" {
		return nil, fmt.Errorf("%w: phoneNumber must contain digits", contractx.ErrInvalidArgument)
	}

	q := salesforce.NewSOQL("Account", accountFields...).
		Subquery(salesforce.NewSOQL("Cases__r", "Id", "CaseNumber", "Status", "Subject", "CreatedDate").
			WhereNotEq("Status", "Closed").
			OrderByDesc("CreatedDate").
			Limit(3)).
		WhereAnyContains(clean, "PersonMobilePhone", "Phone").
		OrderByDesc("CreatedDate").
		Limit(1)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: phone=%s", contractx.ErrClientNotFound, phone)
	}

	return accountToClient(records[0]), nil
}

// VerifyIdentity checks a phone + ZIP pair against the account on file.
// No match is a not-found outcome, not an upstream failure.
func (s *Service) VerifyIdentity(ctx context.Context, phone, zipCode string) (*contractx.ClientRecord, error) {
	cleanPhone := salesforce.Digits(phone)
	cleanZip := salesforce.Digits(zipCode)
	if cleanPhone == "" || cleanZip == "" {
		return nil, fmt.Errorf("%w: phoneNumber and zipCode are required", contractx.ErrInvalidArgument)
	}

	q := salesforce.NewSOQL("Account", accountFields...).
		WhereAnyContains(cleanPhone, "PersonMobilePhone", "Phone").
		WhereAnyPrefix(cleanZip, "PersonMailingPostalCode", "Home_Zip_Code__c").
		Limit(1)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if len(records) == 0 {
		return nil, contractx.ErrClientNotFound
	}

	return accountToClient(records[0]), nil
}

// LastCallAttempt returns the newest outbound call logged for the number.
func (s *Service) LastCallAttempt(ctx context.Context, phone string) (*contractx.CallAttempt, error) {
	clean := salesforce.Digits(phone)
	if clean == "" {
		return nil, fmt.Errorf("%w: phoneNumber must contain digits", contractx.ErrInvalidArgument)
	}

	q := salesforce.NewSOQL("talkdesk__Talkdesk_Activity__c",
		"Id", "talkdesk__Type__c", "talkdesk__Start_Time__c",
		"talkdesk__Talk_Time_sec__c", "talkdesk__DispositionCode__r.Name",
		"talkdesk__Contact__r.Name", "talkdesk__Contact__r.Phone", "CreatedDate").
		WhereEq("talkdesk__Type__c", "Outbound").
		WhereContains("talkdesk__Contact__r.Phone", clean).
		OrderByDesc("talkdesk__Start_Time__c").
		Limit(1)

	records, err := s.records.Query(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrRecordStore, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rec := records[0]
	attempt := &contractx.CallAttempt{
		ContactName: salesforce.Str(rec, "talkdesk__Contact__r", "Name"),
		TalkSeconds: int(salesforce.Num(rec, "talkdesk__Talk_Time_sec__c")),
		Disposition: salesforce.Str(rec, "talkdesk__DispositionCode__r", "Name"),
	}

	raw := salesforce.Str(rec, "talkdesk__Start_Time__c")
	if raw == "" {
		raw = salesforce.Str(rec, "CreatedDate")
	}
	if ts, err := parseSalesforceTime(raw); err == nil {
		attempt.StartTime = ts
	}

	return attempt, nil
}

func accountToClient(rec map[string]any) *contractx.ClientRecord {
	client := &contractx.ClientRecord{
		AccountID: salesforce.Str(rec, "Id"),
		Name:      salesforce.Str(rec, "Name"),
		Email:     salesforce.Str(rec, "PersonEmail"),
		Phone:     salesforce.Str(rec, "PersonMobilePhone"),
		City:      salesforce.Str(rec, "PersonMailingCity"),
		State:     salesforce.Str(rec, "PersonMailingState"),
		ZipCode:   salesforce.Str(rec, "PersonMailingPostalCode"),
	}
	if client.Phone == "" {
		client.Phone = salesforce.Str(rec, "Phone")
	}
	if client.ZipCode == "" {
		client.ZipCode = salesforce.Str(rec, "Home_Zip_Code__c")
	}

	// Child relationship queries come back as a nested result set.
	if sub, ok := rec["Cases__r"].(map[string]any); ok {
		if caseRecords, ok := sub["records"].([]any); ok {
			for _, raw := range caseRecords {
				c, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				client.Cases = append(client.Cases, contractx.CaseInfo{
					ID:          salesforce.Str(c, "Id"),
					CaseNumber:  salesforce.Str(c, "CaseNumber"),
					Status:      salesforce.Str(c, "Status"),
					Subject:     salesforce.Str(c, "Subject"),
					CreatedDate: salesforce.Str(c, "CreatedDate"),
				})
			}
		}
	}

	return client
}

func parseSalesforceTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	// Salesforce emits RFC 3339 with a numeric offset and milliseconds.
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
