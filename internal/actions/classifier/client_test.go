package classifier

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-engine/internal/actions/intent"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
)

func newTestClient(t *testing.T, url string, timeout time.Duration, retries int) *Client {
	return NewClient(&Config{
		BaseURL:    url,
		Path:       "/api/ai/classify-intent",
		APIKey:     "test-key",
		Timeout:    timeout,
		MaxRetries: retries,
	}, logger.NewTestLogger(t))
}

func TestClient_Classify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/classify-intent", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text sarah saying hi", body["input"])
		assert.Equal(t, "gohighlevel", body["platform"])
		assert.Equal(t, map[string]interface{}{"voice": "friendly"}, body["brandContext"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"send_text_message","confidence":0.92,"entities":{"recipient":"sarah","message":"hi","count":3,"urgent":true}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second, 0)
	got, err := client.Classify(context.Background(), "text sarah saying hi", intent.PlatformContext{
		Platform:     "gohighlevel",
		BrandContext: map[string]interface{}{"voice": "friendly"},
	})

	require.NoError(t, err)
	assert.Equal(t, intent.SendTextMessage, got.Kind)
	assert.Equal(t, 0.92, got.Confidence)
	assert.Equal(t, map[string]string{"recipient": "sarah", "message": "hi", "count": "3", "urgent": "true"}, got.Entities)
	assert.Equal(t, "text sarah saying hi", got.RawText)
}

func TestClient_Classify_MissingConfidenceDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"create_task","entities":{"title":"call back"}}`))
	}))
	defer server.Close()

	got, err := newTestClient(t, server.URL, time.Second, 0).Classify(context.Background(), "x", intent.PlatformContext{})
	require.NoError(t, err)
	assert.Equal(t, intent.DefaultRemoteConfidence, got.Confidence)
	assert.True(t, got.Resolved())
}

func TestClient_Classify_UnknownTypeIsUnresolved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"order_pizza","confidence":0.99}`))
	}))
	defer server.Close()

	got, err := newTestClient(t, server.URL, time.Second, 0).Classify(context.Background(), "x", intent.PlatformContext{})
	require.NoError(t, err)
	assert.Equal(t, intent.Unresolved, got.Kind)
	assert.Empty(t, got.Entities)
}

func TestClient_Classify_RetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"type":"search_contacts","confidence":0.9,"entities":{"query":"sarah"}}`))
	}))
	defer server.Close()

	got, err := newTestClient(t, server.URL, 2*time.Second, 2).Classify(context.Background(), "x", intent.PlatformContext{})
	require.NoError(t, err)
	assert.Equal(t, intent.SearchContacts, got.Kind)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_Classify_NonOKExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 2*time.Second, 2).Classify(context.Background(), "x", intent.PlatformContext{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIntentParsingFailed))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_Classify_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := newTestClient(t, server.URL, 50*time.Millisecond, 3).Classify(context.Background(), "x", intent.PlatformContext{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIntentAPITimeout))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestClient_Classify_InvalidPayloads(t *testing.T) {
	bodies := map[string]string{
		"not json":         `this is not json`,
		"missing type":     `{"confidence":0.9}`,
		"bad confidence":   `{"type":"create_task","confidence":"high"}`,
		"out of range":     `{"type":"create_task","confidence":1.5}`,
		"nested entity":    `{"type":"create_task","entities":{"title":{"text":"x"}}}`,
		"entities as list": `{"type":"create_task","entities":["x"]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL, time.Second, 0).Classify(context.Background(), "x", intent.PlatformContext{})
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrIntentParsingFailed))
		})
	}
}

func TestClient_Classify_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url, time.Second, 0).Classify(context.Background(), "x", intent.PlatformContext{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIntentParsingFailed))
}
