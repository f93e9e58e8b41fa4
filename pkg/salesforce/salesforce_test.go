package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{AccessToken: "tok"}); err == nil {
		t.Fatal("NewClient() with no instance url, want error")
	}
	if _, err := NewClient(Config{InstanceURL: "https://example.my.salesforce.com"}); err == nil {
		t.Fatal("NewClient() with no token, want error")
	}
	if _, err := NewClient(Config{InstanceURL: "not a url", AccessToken: "tok"}); err == nil {
		t.Fatal("NewClient() with malformed url, want error")
	}
}

func TestQuerySendsSOQLWithBearerToken(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"totalSize":1,"done":true,"records":[{"Id":"001","Name":"Jane Doe"}]}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(
		Config{InstanceURL: server.URL, AccessToken: "tok"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	records, err := client.Query(context.Background(), "SELECT Id FROM Account LIMIT 1")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if gotPath != "/services/data/v59.0/query" {
		t.Fatalf("path = %s, want /services/data/v59.0/query", gotPath)
	}
	if gotQuery != "SELECT Id FROM Account LIMIT 1" {
		t.Fatalf("q = %s", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %s, want Bearer tok", gotAuth)
	}
	if len(records) != 1 || records[0]["Id"] != "001" {
		t.Fatalf("records = %#v", records)
	}
}

func TestCreatePostsFieldsAndReturnsID(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"a0B123","success":true,"errors":[]}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(
		Config{InstanceURL: server.URL, AccessToken: "tok"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	result, err := client.Create(context.Background(), "Document__c", map[string]any{"Name": "CP2000 Notice"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if gotPath != "/services/data/v59.0/sobjects/Document__c" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotBody["Name"] != "CP2000 Notice" {
		t.Fatalf("body = %#v", gotBody)
	}
	if !result.Success || result.ID != "a0B123" {
		t.Fatalf("result = %#v", result)
	}
}

func TestDoSurfacesAPIErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `[{"message":"unexpected token","errorCode":"MALFORMED_QUERY"}]`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(
		Config{InstanceURL: server.URL, AccessToken: "tok"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Query(context.Background(), "SELECT bogus")
	if err == nil {
		t.Fatal("Query() error = nil, want MALFORMED_QUERY")
	}
	if !strings.Contains(err.Error(), "MALFORMED_QUERY") {
		t.Fatalf("Query() error = %v, want MALFORMED_QUERY in message", err)
	}
}

func TestStrFollowsRelationshipPath(t *testing.T) {
	t.Parallel()

	rec := map[string]any{
		"Id": "001",
		"Contact": map[string]any{
			"Name": "Jane Doe",
		},
	}

	if got := Str(rec, "Contact", "Name"); got != "Jane Doe" {
		t.Fatalf("Str() = %q, want Jane Doe", got)
	}
	if got := Str(rec, "Contact", "Missing"); got != "" {
		t.Fatalf("Str() = %q, want empty", got)
	}
	if got := Str(rec, "Id", "Nested"); got != "" {
		t.Fatalf("Str() through non-map = %q, want empty", got)
	}
}

func TestNumReadsFloatFields(t *testing.T) {
	t.Parallel()

	rec := map[string]any{"talkdesk__Talk_Time_sec__c": float64(42)}
	if got := Num(rec, "talkdesk__Talk_Time_sec__c"); got != 42 {
		t.Fatalf("Num() = %v, want 42", got)
	}
	if got := Num(rec, "missing"); got != 0 {
		t.Fatalf("Num() = %v, want 0", got)
	}
}
