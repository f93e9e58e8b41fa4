package heymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig(url string) Config {
	return Config{
		URL:       url,
		SecretID:  "secret-id",
		SecretKey: "secret-key",
		UserID:    7,
		InboxID:   3,
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://api.heymarket.com/v1")

	noID := cfg
	noID.SecretID = ""
	if _, err := NewClient(noID); !errors.Is(err, ErrSecretIDRequired) {
		t.Fatalf("NewClient() error = %v, want ErrSecretIDRequired", err)
	}

	noKey := cfg
	noKey.SecretKey = " "
	if _, err := NewClient(noKey); !errors.Is(err, ErrSecretKeyRequired) {
		t.Fatalf("NewClient() error = %v, want ErrSecretKeyRequired", err)
	}

	noURL := cfg
	noURL.URL = ""
	if _, err := NewClient(noURL); !errors.Is(err, ErrURLRequired) {
		t.Fatalf("NewClient() error = %v, want ErrURLRequired", err)
	}
}

func TestSendPostsPayloadWithSignedToken(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"message_id":"msg-1"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return frozen }

	result, err := client.Send(context.Background(), "+15551234567", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.MessageID != "msg-1" {
		t.Fatalf("MessageID = %q, want msg-1", result.MessageID)
	}

	if gotPath != "/message/send" {
		t.Fatalf("path = %s, want /message/send", gotPath)
	}
	if gotBody.To != "+15551234567" || gotBody.Text != "hello" || gotBody.UserID != 7 || gotBody.Inbox != 3 {
		t.Fatalf("body = %#v", gotBody)
	}

	raw := strings.TrimPrefix(gotAuth, "Bearer ")
	if raw == gotAuth {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return []byte("secret-key"), nil
	}, jwt.WithTimeFunc(func() time.Time { return frozen }))
	if err != nil || !token.Valid {
		t.Fatalf("token parse: valid=%v err=%v", token != nil && token.Valid, err)
	}
	if claims.Issuer != "secret-id" {
		t.Fatalf("iss = %q, want secret-id", claims.Issuer)
	}
	if !claims.ExpiresAt.Time.Equal(frozen.Add(time.Hour)) {
		t.Fatalf("exp = %v, want %v", claims.ExpiresAt.Time, frozen.Add(time.Hour))
	}
}

func TestSendRejectionIsSurfaced(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"invalid destination"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Send(context.Background(), "+1555", "hi")
	if !errors.Is(err, ErrSendRejected) {
		t.Fatalf("Send() error = %v, want ErrSendRejected", err)
	}
	if !strings.Contains(err.Error(), "invalid destination") {
		t.Fatalf("Send() error = %v, want provider message included", err)
	}
}

func TestSendRequiresDestinationAndText(t *testing.T) {
	t.Parallel()

	client, err := NewClient(testConfig("https://api.heymarket.com/v1"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Send(context.Background(), "", "hi"); err == nil {
		t.Fatal("Send() with empty destination, want error")
	}
	if _, err := client.Send(context.Background(), "+1555", "  "); err == nil {
		t.Fatal("Send() with blank text, want error")
	}
}

func TestSendMissingMessageIDIsRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(testConfig(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Send(context.Background(), "+1555", "hi"); !errors.Is(err, ErrSendRejected) {
		t.Fatalf("Send() error = %v, want ErrSendRejected", err)
	}
}
