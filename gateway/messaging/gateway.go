package messaging

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
	"github.com/miadvg/taxrise-gateway/pkg/heymarket"
)

// SMSClient is the slice of the Hey Market client the gateway needs.
type SMSClient interface {
	Send(ctx context.Context, toPhone, text string) (heymarket.SendResult, error)
}

// EmailClient is the slice of the SMTP mailer the gateway needs.
type EmailClient interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Gateway implements contract.MessagingGateway over the SMS and email
// providers. It owns no policy: authorization happens in the workflow layer
// before anything reaches here.
type Gateway struct {
	sms   SMSClient
	email EmailClient
}

var _ contractx.MessagingGateway = (*Gateway)(nil)

func New(sms SMSClient, email EmailClient) (*Gateway, error) {
	if sms == nil {
		return nil, errors.New("sms client is required")
	}
	if email == nil {
		return nil, errors.New("email client is required")
	}
	return &Gateway{sms: sms, email: email}, nil
}

func (g *Gateway) SendSMS(ctx context.Context, toPhone, body string) (contractx.Receipt, error) {
	result, err := g.sms.Send(ctx, toPhone, body)
	if err != nil {
		return contractx.Receipt{}, fmt.Errorf("%w: %w", contractx.ErrMessagingGateway, err)
	}
	return contractx.Receipt{Accepted: true, MessageID: result.MessageID}, nil
}

func (g *Gateway) SendEmail(ctx context.Context, toAddr, subject, htmlBody, textBody string) (contractx.Receipt, error) {
	if err := g.email.Send(ctx, toAddr, subject, htmlBody, textBody); err != nil {
		return contractx.Receipt{}, fmt.Errorf("%w: %w", contractx.ErrMessagingGateway, err)
	}
	return contractx.Receipt{Accepted: true}, nil
}
