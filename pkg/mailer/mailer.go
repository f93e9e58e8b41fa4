package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

var (
	ErrHostRequired = errors.New("smtp host is required")
	ErrFromRequired = errors.New("smtp from address is required")
)

type Config struct {
	Host     string        `split_words:"true" required:"true"`
	Port     int           `split_words:"true" default:"587"`
	Username string        `split_words:"true" required:"true"`
	Password string        `split_words:"true" required:"true"`
	From     string        `split_words:"true" required:"true"`
	Timeout  time.Duration `split_words:"true" default:"15s"`
}

// Mailer sends HTML+plain-text email through the SMTP relay.
type Mailer struct {
	client *mail.Client
	from   string
}

func New(cfg Config) (*Mailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, ErrHostRequired
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, ErrFromRequired
	}

	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(strings.TrimSpace(cfg.Username)),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, from: from}, nil
}

func MustNew(cfg Config) *Mailer {
	m, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// Send delivers one message with an HTML body and a plain-text alternative.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("destination address is required")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if strings.TrimSpace(htmlBody) != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
