package contract

import "context"

// RecordStore is the gateway's view of the CRM: query by filter, create
// records. Filter construction lives behind the soql builder so callers never
// interpolate untrusted input into a query string.
type RecordStore interface {
	Query(ctx context.Context, soql string) ([]map[string]any, error)
	Create(ctx context.Context, object string, fields map[string]any) (CreateResult, error)
}

// MessagingGateway sends a message through one of two channels.
type MessagingGateway interface {
	SendSMS(ctx context.Context, toPhone, body string) (Receipt, error)
	SendEmail(ctx context.Context, toAddr, subject, htmlBody, textBody string) (Receipt, error)
}
