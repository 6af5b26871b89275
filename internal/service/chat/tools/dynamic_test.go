package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chatModels "parley/internal/domain/models/chat"
)

// mockExtensionRepo serves canned extensions and header secrets.
type mockExtensionRepo struct {
	extensions []chatModels.Extension
	listErr    error
	headers    map[string]string
	headerErr  error
}

func (m *mockExtensionRepo) GetExtension(ctx context.Context, extensionID, userID string) (*chatModels.Extension, error) {
	for i := range m.extensions {
		if m.extensions[i].ID == extensionID {
			return &m.extensions[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockExtensionRepo) ListExtensions(ctx context.Context, extensionIDs []string, userID string) ([]chatModels.Extension, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.extensions, nil
}

func (m *mockExtensionRepo) SecureHeaderValue(ctx context.Context, headerID string) (string, error) {
	if m.headerErr != nil {
		return "", m.headerErr
	}
	return m.headers[headerID], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func weatherExtension(endpoint string) chatModels.Extension {
	return chatModels.Extension{
		ID:     "weather",
		UserID: "user-1",
		Headers: []chatModels.SecuredHeader{
			{ID: "h1", Key: "x-api-key"},
		},
		Functions: []chatModels.ExtensionFunction{
			{
				ID:          "fn-1",
				Name:        "get_weather",
				Description: "Look up the weather",
				Parameters:  json.RawMessage(`{"type":"object"}`),
				Endpoint:    endpoint,
				Method:      http.MethodGet,
			},
		},
	}
}

func resolveOne(t *testing.T, d *DynamicTools, ext chatModels.Extension) Definition {
	t.Helper()
	thread := &chatModels.Thread{ID: "thread-1", UserID: "user-1", ExtensionIDs: []string{ext.ID}}
	defs, err := d.Resolve(context.Background(), thread, "hashed-user")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("got %d definitions, want 1", len(defs))
	}
	return defs[0]
}

func TestDynamicTools_EndpointSubstitutionAndHeaders(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotHeaders = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temp": 12}`))
	}))
	defer server.Close()

	repo := &mockExtensionRepo{
		extensions: []chatModels.Extension{weatherExtension(server.URL + "/weather/city?format=j1")},
		headers:    map[string]string{"h1": "secret-value"},
	}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, repo.extensions[0])
	if def.Name != "get_weather" {
		t.Errorf("definition name = %q", def.Name)
	}

	result := def.Execute(context.Background(), `{"query":{"city":"Paris"}}`)

	if gotPath != "/weather/Paris?format=j1" {
		t.Errorf("request path = %q, query key not substituted", gotPath)
	}
	if got := gotHeaders.Get("x-api-key"); got != "secret-value" {
		t.Errorf("secured header = %q", got)
	}
	if got := gotHeaders.Get("authorization"); got != "hashed-user" {
		t.Errorf("authorization header = %q, want forced hashed user id", got)
	}

	var payload struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		t.Fatalf("result is not the JSON envelope: %v\n%s", err, result)
	}
	if payload.ID != "fn-1" {
		t.Errorf("result envelope id = %q", payload.ID)
	}
}

func TestDynamicTools_AuthorizationOverridesStoredHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ext := weatherExtension(server.URL)
	ext.Headers = append(ext.Headers, chatModels.SecuredHeader{ID: "h2", Key: "authorization"})
	repo := &mockExtensionRepo{
		extensions: []chatModels.Extension{ext},
		headers:    map[string]string{"h1": "key", "h2": "stored-bearer-token"},
	}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, ext)
	_ = def.Execute(context.Background(), `{}`)

	if gotAuth != "hashed-user" {
		t.Errorf("authorization = %q, stored header was not overridden", gotAuth)
	}
}

func TestDynamicTools_SecuredHeaderLookupFailureRedacts(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	repo := &mockExtensionRepo{
		extensions: []chatModels.Extension{weatherExtension(server.URL)},
		headerErr:  errors.New("vault unavailable"),
	}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, repo.extensions[0])
	_ = def.Execute(context.Background(), `{}`)

	if gotHeader != "***" {
		t.Errorf("x-api-key = %q, want redaction placeholder", gotHeader)
	}
}

func TestDynamicTools_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	repo := &mockExtensionRepo{extensions: []chatModels.Extension{weatherExtension(server.URL)}}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, repo.extensions[0])
	result := def.Execute(context.Background(), `{}`)

	if !strings.HasPrefix(result, "Error calling API: 403") {
		t.Errorf("result = %q, want status error payload", result)
	}
}

func TestDynamicTools_BodyForwardedAsJSON(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ext := weatherExtension(server.URL)
	ext.Functions[0].Method = http.MethodPost
	repo := &mockExtensionRepo{extensions: []chatModels.Extension{ext}}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, ext)
	_ = def.Execute(context.Background(), `{"body":{"city":"Paris","days":3}}`)

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(gotBody, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body["city"] != "Paris" {
		t.Errorf("body = %v", body)
	}
}

func TestDynamicTools_InvalidArguments(t *testing.T) {
	repo := &mockExtensionRepo{extensions: []chatModels.Extension{weatherExtension("http://unused")}}
	d := NewDynamicTools(repo, nil, discardLogger())

	def := resolveOne(t, d, repo.extensions[0])
	result := def.Execute(context.Background(), `{not json`)

	if !strings.HasPrefix(result, "Error: invalid arguments") {
		t.Errorf("result = %q", result)
	}
}
