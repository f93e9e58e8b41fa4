package salesforce

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

	contractx "github.com/miadvg/taxrise-gateway/gateway/contract"
)

const (
	defaultAPIVersion    = "v59.0"
	maxResponseSizeBytes = 4 << 20
)

var (
	ErrInstanceURLRequired = errors.New("salesforce instance url is required")
	ErrAccessTokenRequired = errors.New("salesforce access token is required")
)

type Config struct {
	InstanceURL string        `split_words:"true" required:"true"`
	AccessToken string        `split_words:"true" required:"true"`
	APIVersion  string        `envconfig:"API_VERSION" default:"v59.0"`
	Timeout     time.Duration `split_words:"true" default:"15s"`
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

// Client talks to the Salesforce REST API. It is the concrete RecordStore:
// query-by-SOQL and create-sobject, nothing more.
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpClient *http.Client
}

var _ contractx.RecordStore = (*Client)(nil)

type queryResponse struct {
	TotalSize int              `json:"totalSize"`
	Done      bool             `json:"done"`
	Records   []map[string]any `json:"records"`
}

type saveResponse struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Errors  []saveError `json:"errors"`
}

type saveError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.InstanceURL), "/")
	if baseURL == "" {
		return nil, ErrInstanceURLRequired
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid salesforce instance url: %w", err)
	}

	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, ErrAccessTokenRequired
	}

	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		token:      token,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: timeout,
		},
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

// Query runs a SOQL query and returns the raw record maps. Callers build the
// query through the soql builder; this method never touches the filter text.
func (c *Client) Query(ctx context.Context, soql string) ([]map[string]any, error) {
	if strings.TrimSpace(soql) == "" {
		return nil, errors.New("empty soql query")
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s", c.baseURL, c.apiVersion, url.QueryEscape(soql))
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var parsed queryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return parsed.Records, nil
}

// Create inserts one sobject record and reports the new id.
func (c *Client) Create(ctx context.Context, object string, fields map[string]any) (contractx.CreateResult, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return contractx.CreateResult{}, errors.New("sobject name is required")
	}
	if len(fields) == 0 {
		return contractx.CreateResult{}, errors.New("at least one field is required")
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return contractx.CreateResult{}, fmt.Errorf("marshal %s fields: %w", object, err)
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s", c.baseURL, c.apiVersion, url.PathEscape(object))
	raw, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return contractx.CreateResult{}, err
	}

	var parsed saveResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.CreateResult{}, fmt.Errorf("decode create response: %w", err)
	}

	result := contractx.CreateResult{ID: parsed.ID, Success: parsed.Success}
	for _, e := range parsed.Errors {
		result.Errors = append(result.Errors, e.Message)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build salesforce request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute salesforce request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read salesforce response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Error bodies are a JSON array of {message, errorCode}.
		var apiErrs []apiError
		if json.Unmarshal(raw, &apiErrs) == nil && len(apiErrs) > 0 {
			return nil, fmt.Errorf("salesforce %s: %s (status=%d)", apiErrs[0].ErrorCode, apiErrs[0].Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("salesforce http status=%d body=%s", resp.StatusCode, string(raw))
	}

	return raw, nil
}

// Str digs a string field out of a record map, following nested relationship
// maps (e.g. Str(rec, "Contact", "Name")).
func Str(record map[string]any, path ...string) string {
	cur := any(record)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

// Num digs a numeric field out of a record map.
func Num(record map[string]any, path ...string) float64 {
	cur := any(record)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0
		}
		cur = m[key]
	}
	f, _ := cur.(float64)
	return f
}
