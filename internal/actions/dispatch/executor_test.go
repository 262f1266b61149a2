package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-engine/internal/actions/intent"
	"action-engine/internal/common/errors"
	httpclient "action-engine/internal/common/http"
	"action-engine/internal/common/logger"
)

func testConfig(url string) *Config {
	return &Config{
		BaseURL:     url,
		ExecutePath: "/api/actions/execute",
		PreviewPath: "/api/actions/preview",
		APIKey:      "k",
		Timeout:     time.Second,
	}
}

func jsonServer(t *testing.T, status int, body string, inspect func(req map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			var req map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

var smsIntent = intent.New(intent.SendTextMessage, 0.8, map[string]string{"phone": "15550101"}, "text +15550101 about the 2pm appointment")

var platform = intent.PlatformContext{
	Platform:     "gohighlevel",
	TenantID:     "tenant-1",
	BrandContext: map[string]interface{}{"tone": "warm"},
}

func TestExecute_Success(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"success":true,"message":"queued","data":{"id":"m1"}}`, func(req map[string]interface{}) {
		assert.Equal(t, "send_text_message", req["action"])
		assert.Equal(t, map[string]interface{}{"phone": "15550101", "message": "we'll confirm shortly"}, req["entities"])
		assert.Equal(t, "gohighlevel", req["platform"])
		assert.Equal(t, "tenant-1", req["tenantId"])
		assert.Equal(t, "text +15550101 about the 2pm appointment", req["rawText"])
		assert.Equal(t, map[string]interface{}{"tone": "warm"}, req["brandContext"])
	})
	defer server.Close()

	e := NewExecutor(testConfig(server.URL), logger.NewTestLogger(t))
	got := e.Execute(context.Background(), smsIntent, platform, map[string]string{"message": "we'll confirm shortly"})

	assert.True(t, got.Succeeded)
	assert.Equal(t, intent.SendTextMessage, got.Kind)
	assert.Equal(t, "queued", got.Message)
	assert.JSONEq(t, `{"id":"m1"}`, string(got.Payload))
	assert.False(t, got.NeedsMoreInfo)
	assert.Equal(t, map[string]string{"phone": "15550101", "message": "we'll confirm shortly"}, got.Entities)
}

func TestExecute_ExtraEntitiesWin(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"success":true}`, func(req map[string]interface{}) {
		assert.Equal(t, map[string]interface{}{"phone": "2", "message": "new"}, req["entities"])
	})
	defer server.Close()

	a := intent.New(intent.SendTextMessage, 0.8, map[string]string{"phone": "1", "message": "old"}, "")
	got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).
		Execute(context.Background(), a, platform, map[string]string{"phone": "2", "message": "new", "blank": ""})

	assert.True(t, got.Succeeded)
	assert.Nil(t, got.Payload)
}

func TestExecute_BusinessFailureIsVerbatim(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"success":false,"message":"Contact has opted out of SMS"}`, nil)
	defer server.Close()

	got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Execute(context.Background(), smsIntent, platform, nil)
	assert.False(t, got.Succeeded)
	assert.Equal(t, "Contact has opted out of SMS", got.Message)
	assert.False(t, got.NeedsMoreInfo)
}

func TestExecute_BackendNeedsConfirmation(t *testing.T) {
	server := jsonServer(t, http.StatusOK,
		`{"success":false,"message":"ambiguous","requiresConfirmation":true,"confirmationPrompt":"Which Sarah did you mean?","missingEntity":"recipient","data":null}`, nil)
	defer server.Close()

	got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Execute(context.Background(), smsIntent, platform, nil)
	assert.True(t, got.NeedsMoreInfo)
	assert.Equal(t, "Which Sarah did you mean?", got.Prompt)
	assert.Equal(t, "recipient", got.MissingEntity)
	assert.Nil(t, got.Payload)
}

func TestExecute_NeedsMoreInfoAlias(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"success":false,"needsMoreInfo":true,"message":"Which workflow?"}`, nil)
	defer server.Close()

	got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Execute(context.Background(), smsIntent, platform, nil)
	assert.True(t, got.NeedsMoreInfo)
	assert.Equal(t, "Which workflow?", got.Prompt)
}

func TestExecute_FailuresNeverError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "status 500"},
		{"unauthorized", http.StatusUnauthorized, ``, "status 401"},
		{"html body", http.StatusOK, `<html>oops</html>`, "unreadable"},
		{"missing success", http.StatusOK, `{"message":"hi"}`, "unreadable"},
		{"wrong types", http.StatusOK, `{"success":"yes"}`, "unreadable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, tt.status, tt.body, nil)
			defer server.Close()

			got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Execute(context.Background(), smsIntent, platform, nil)
			assert.False(t, got.Succeeded)
			assert.NotEmpty(t, got.Message)
			assert.Contains(t, got.Message, tt.contains)
			assert.Equal(t, intent.SendTextMessage, got.Kind)
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond

	got := NewExecutor(cfg, logger.NewNoOpLogger()).Execute(context.Background(), smsIntent, platform, nil)
	assert.False(t, got.Succeeded)
	assert.NotEmpty(t, got.Message)
}

type rejectingTransport struct{}

func (rejectingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, stderrors.New("connection reset by peer")
}

func TestExecute_RejectingTransport(t *testing.T) {
	hc := httpclient.NewClientWithHTTP(&http.Client{Transport: rejectingTransport{}}, "")
	e := NewExecutorWithHTTP(testConfig("http://actions.invalid"), hc, logger.NewNoOpLogger())

	got := e.Execute(context.Background(), smsIntent, platform, nil)
	assert.False(t, got.Succeeded)
	assert.Equal(t, "Could not reach the action service. Please try again.", got.Message)
	assert.Equal(t, map[string]string{"phone": "15550101"}, got.Entities)
}

func TestExecute_CancelledContext(t *testing.T) {
	server := jsonServer(t, http.StatusOK, `{"success":true}`, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Execute(ctx, smsIntent, platform, nil)
	assert.False(t, got.Succeeded)
	assert.NotEmpty(t, got.Message)
}

func TestPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/actions/preview", r.URL.Path)
		_, _ = w.Write([]byte(`{"description":"Send SMS to 15550101","estimatedImpact":"1 recipient","warnings":["after hours"],"canExecute":true}`))
	}))
	defer server.Close()

	got, err := NewExecutor(testConfig(server.URL), logger.NewNoOpLogger()).Preview(context.Background(), smsIntent, platform, nil)
	require.NoError(t, err)
	assert.Equal(t, Preview{
		Description:     "Send SMS to 15550101",
		EstimatedImpact: "1 recipient",
		Warnings:        []string{"after hours"},
		CanExecute:      true,
	}, got)
}

func TestPreview_Failures(t *testing.T) {
	bad := jsonServer(t, http.StatusOK, `{"canExecute":"maybe"}`, nil)
	defer bad.Close()
	down := jsonServer(t, http.StatusServiceUnavailable, ``, nil)
	defer down.Close()

	for _, url := range []string{bad.URL, down.URL} {
		_, err := NewExecutor(testConfig(url), logger.NewNoOpLogger()).Preview(context.Background(), smsIntent, platform, nil)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrPreviewFailed))
	}

	cfg := testConfig(bad.URL)
	cfg.PreviewPath = ""
	_, err := NewExecutor(cfg, logger.NewNoOpLogger()).Preview(context.Background(), smsIntent, platform, nil)
	assert.True(t, stderrors.Is(err, errors.ErrPreviewFailed))
}

func TestMergeEntities(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	got := MergeEntities(base, map[string]string{"b": "3", "c": "4"})

	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, got)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, base)
}
