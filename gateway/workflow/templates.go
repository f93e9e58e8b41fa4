package workflow

import (
	"fmt"
	"html"
	"strings"

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

// Links holds the base URLs substituted into outbound messages.
type Links struct {
	DocudropBaseURL string `envconfig:"DOCUDROP_BASE_URL" split_words:"true" default:"https://docudrop.taxrise.com"`
	PaymentBaseURL  string `envconfig:"PAYMENT_BASE_URL" split_words:"true" default:"https://payment.taxrise.com"`
}

// Upload is the secure document-upload link for an account. Without an
// account id it falls back to the portal root.
func (l Links) Upload(accountID string) string {
	base := strings.TrimRight(l.DocudropBaseURL, "/")
	if strings.TrimSpace(accountID) == "" {
		return base
	}
	return base + "/" + accountID + "/verify"
}

// Payment is the online payment link for an account.
func (l Links) Payment(accountID string) string {
	base := strings.TrimRight(l.PaymentBaseURL, "/")
	if strings.TrimSpace(accountID) == "" {
		return base
	}
	return base + "/" + accountID
}

// Message is a rendered outbound communication. Text doubles as the SMS body
// and the plain-text email alternative.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

const signature = "- TaxRise Team"

// Render selects the template for the request's message type and substitutes
// client name, links, and context fields, with generic fallbacks for absent
// fields.
func Render(links Links, req contractx.CommunicationRequest) (Message, error) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		name = "there"
	}
	ctxVal := func(key string) string {
		return strings.TrimSpace(req.Context[key])
	}

	switch req.MessageType {
	case contractx.MessageIRSNotice:
		noticeType := ctxVal("noticeType")
		if noticeType == "" {
			noticeType = "IRS Notice"
		}
		link := links.Upload(req.AccountID)
		text := fmt.Sprintf(
			"Hi %s! I've logged your %s in our system. Our resolution team will review it within 4 hours.\n\nPlease upload a copy here: %s\n\nQuestions? Reply to this message!\n\n%s",
			name, noticeType, link, signature)
		return Message{
			Subject: noticeType + " - Secure Upload Link",
			Text:    text,
			HTML:    renderHTML(name, text, link, "Upload Your Notice"),
		}, nil

	case contractx.MessageDocumentRequest:
		docType := ctxVal("documentType")
		if docType == "" {
			docType = "document"
		}
		link := links.Upload(req.AccountID)
		text := fmt.Sprintf(
			"Hi %s! I've created a request for your %s in our system.\n\nPlease upload it securely here: %s\n\nThis will help us move your case forward quickly. Questions? Reply!\n\n%s",
			name, docType, link, signature)
		return Message{
			Subject: docType + " Request - Secure Upload Link",
			Text:    text,
			HTML:    renderHTML(name, text, link, "Upload Securely"),
		}, nil

	case contractx.MessagePaymentReminder:
		amount := ctxVal("amount")
		dueDate := ctxVal("dueDate")
		if dueDate == "" {
			dueDate = "soon"
		}
		link := links.Payment(req.AccountID)
		var due string
		if amount != "" {
			due = fmt.Sprintf("Your payment of $%s is due on %s.", amount, dueDate)
		} else {
			due = fmt.Sprintf("Your payment is due on %s.", dueDate)
		}
		text := fmt.Sprintf(
			"Hi %s! %s\n\nMake your payment securely here: %s\n\nQuestions about your payment? Reply to this message!\n\n%s",
			name, due, link, signature)
		subject := "Payment Reminder"
		if amount != "" {
			subject = "Payment Reminder - $" + amount
		}
		return Message{
			Subject: subject,
			Text:    text,
			HTML:    renderHTML(name, text, link, "Pay Online"),
		}, nil
	}

	return Message{}, fmt.Errorf("%w: unknown message type %q", contractx.ErrInvalidArgument, req.MessageType)
}

// renderHTML wraps the plain-text body in the branded email shell used for
// all client-facing mail.
func renderHTML(name, text, link, linkLabel string) string {
	var body strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		body.WriteString("<p>")
		body.WriteString(html.EscapeString(para))
		body.WriteString("</p>\n")
	}

	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #002d5f; color: white; padding: 20px; text-align: center;">
    <h1>TaxRise</h1>
    <p>We rise by lifting others.</p>
  </div>
  <div style="padding: 30px; background-color: #f9f9f9;">
    %s
    <div style="background-color: white; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #0c68a7;">
      <p><strong>%s:</strong> <a href="%s" style="color: #0c68a7;">%s</a></p>
    </div>
    <p>Thank you for choosing TaxRise!</p>
  </div>
</div>`, body.String(), html.EscapeString(linkLabel), link, html.EscapeString(linkLabel))
}
