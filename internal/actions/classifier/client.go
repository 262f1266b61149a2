// Package classifier resolves operator text into an intent using the remote
// classification service, falling back to the local matcher.
package classifier

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"action-engine/internal/actions/intent"
	"action-engine/internal/common/errors"
	httpclient "action-engine/internal/common/http"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/observability"
	"action-engine/internal/common/validation"
)

// Classifier turns raw text into an intent.
type Classifier interface {
	Classify(ctx context.Context, rawText string, pc intent.PlatformContext) (intent.ActionIntent, error)
}

type Config struct {
	BaseURL    string
	Path       string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls the remote classification endpoint.
type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

var responseContract = validation.MustContract("classifier response", `{
	"type": "object",
	"required": ["type"],
	"properties": {
		"type": {"type": "string"},
		"confidence": {"type": ["number", "null"], "minimum": 0, "maximum": 1},
		"entities": {
			"type": ["object", "null"],
			"additionalProperties": {"type": ["string", "number", "boolean", "null"]}
		}
	}
}`)

type classifyRequest struct {
	Input        string                 `json:"input"`
	Platform     string                 `json:"platform"`
	BrandContext map[string]interface{} `json:"brandContext,omitempty"`
}

type classifyResponse struct {
	Type       string                 `json:"type"`
	Confidence *float64               `json:"confidence"`
	Entities   map[string]interface{} `json:"entities"`
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.APIKey),
		logger: log.With(map[string]interface{}{"component": "classifier"}),
	}
}

// NewClientWithHTTP is used by tests to inject a transport.
func NewClientWithHTTP(config *Config, hc *httpclient.Client, log logger.Logger) *Client {
	c := NewClient(config, log)
	c.http = hc
	return c
}

// Classify posts rawText and trusts the returned classification as-is.
// Retries with exponential backoff stay inside the configured timeout.
func (c *Client) Classify(ctx context.Context, rawText string, pc intent.PlatformContext) (result intent.ActionIntent, err error) {
	ctx, span := observability.StartClientSpan(ctx, "classifier.classify",
		attribute.String("platform", pc.Platform))
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := classifyRequest{Input: rawText, Platform: pc.Platform, BrandContext: pc.BrandContext}
	url := strings.TrimRight(c.config.BaseURL, "/") + c.config.Path

	var resp *httpclient.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return intent.ActionIntent{}, errors.NewIntentAPITimeoutError()
			}
		}

		resp, lastErr = c.http.PostJSON(ctx, url, payload)

		if ctx.Err() != nil ||
			stderrors.Is(lastErr, context.DeadlineExceeded) ||
			stderrors.Is(lastErr, context.Canceled) {
			return intent.ActionIntent{}, errors.NewIntentAPITimeoutError()
		}

		if lastErr == nil {
			if resp.OK() {
				break
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return intent.ActionIntent{}, errors.NewIntentParsingFailedError(lastErr)
	}

	if err := responseContract.ValidateBytes(resp.Body); err != nil {
		return intent.ActionIntent{}, errors.NewIntentParsingFailedError(err)
	}

	var body classifyResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return intent.ActionIntent{}, errors.NewIntentParsingFailedError(fmt.Errorf("decode error: %w", err))
	}

	confidence := intent.DefaultRemoteConfidence
	if body.Confidence != nil {
		confidence = *body.Confidence
	}

	result = intent.New(intent.ParseKind(body.Type), confidence, stringifyEntities(body.Entities), rawText)

	c.logger.WithContext(ctx).Debug("intent classified remotely", map[string]interface{}{
		"kind":        result.Kind,
		"confidence":  result.Confidence,
		"entityCount": len(result.Entities),
		"requestId":   resp.RequestID,
	})
	return result, nil
}

func stringifyEntities(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out
}
