package heymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const maxResponseSizeBytes = 1 << 20

var (
	ErrURLRequired       = errors.New("heymarket api url is required")
	ErrSecretIDRequired  = errors.New("heymarket secret id is required")
	ErrSecretKeyRequired = errors.New("heymarket secret key is required")
	ErrSendRejected      = errors.New("heymarket rejected the message")
)

type Config struct {
	URL       string        `split_words:"true" default:"https://api.heymarket.com/v1"`
	SecretID  string        `split_words:"true" required:"true"`
	SecretKey string        `split_words:"true" required:"true"`
	UserID    int           `split_words:"true" required:"true"`
	InboxID   int           `split_words:"true" required:"true"`
	TokenTTL  time.Duration `split_words:"true" default:"1h"`
	Timeout   time.Duration `split_words:"true" default:"10s"`
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client sends SMS through the Hey Market REST API. Authentication is a
// short-lived HS256 bearer token minted per request.
type Client struct {
	baseURL    string
	secretID   string
	secretKey  []byte
	userID     int
	inboxID    int
	tokenTTL   time.Duration
	httpClient *http.Client

	now func() time.Time
}

type sendRequest struct {
	To     string `json:"to"`
	Text   string `json:"text"`
	UserID int    `json:"user_id"`
	Inbox  int    `json:"inbox"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// SendResult reports an accepted message.
type SendResult struct {
	MessageID string
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, ErrURLRequired
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid heymarket url: %w", err)
	}
	if strings.TrimSpace(cfg.SecretID) == "" {
		return nil, ErrSecretIDRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrSecretKeyRequired
	}

	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:   baseURL,
		secretID:  strings.TrimSpace(cfg.SecretID),
		secretKey: []byte(strings.TrimSpace(cfg.SecretKey)),
		userID:    cfg.UserID,
		inboxID:   cfg.InboxID,
		tokenTTL:  tokenTTL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Send delivers one SMS and returns the provider message id.
func (c *Client) Send(ctx context.Context, toPhone, text string) (SendResult, error) {
	toPhone = strings.TrimSpace(toPhone)
	if toPhone == "" {
		return SendResult{}, errors.New("destination phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return SendResult{}, errors.New("message text is required")
	}

	token, err := c.bearerToken()
	if err != nil {
		return SendResult{}, err
	}

	body, err := json.Marshal(sendRequest{
		To:     toPhone,
		Text:   text,
		UserID: c.userID,
		Inbox:  c.inboxID,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message/send", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("execute sms request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return SendResult{}, fmt.Errorf("read sms response: %w", err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return SendResult{}, fmt.Errorf("decode sms response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return SendResult{}, fmt.Errorf("%w: status=%d error=%s", ErrSendRejected, resp.StatusCode, parsed.Error)
	}
	if parsed.MessageID == "" {
		if parsed.Error != "" {
			return SendResult{}, fmt.Errorf("%w: %s", ErrSendRejected, parsed.Error)
		}
		return SendResult{}, fmt.Errorf("%w: missing message_id", ErrSendRejected)
	}

	return SendResult{MessageID: parsed.MessageID}, nil
}

func (c *Client) bearerToken() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.secretID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign heymarket token: %w", err)
	}
	return signed, nil
}
