// Package dispatch sends resolved intents to the backend action service and
// normalizes its heterogeneous responses.
package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"action-engine/internal/actions/intent"
	"action-engine/internal/common/errors"
	httpclient "action-engine/internal/common/http"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/metrics"
	"action-engine/internal/common/observability"
	"action-engine/internal/common/validation"
)

// Dispatcher executes and previews actions.
type Dispatcher interface {
	Execute(ctx context.Context, a intent.ActionIntent, pc intent.PlatformContext, extra map[string]string) ActionResult
	Preview(ctx context.Context, a intent.ActionIntent, pc intent.PlatformContext, extra map[string]string) (Preview, error)
}

type Config struct {
	BaseURL     string
	ExecutePath string
	PreviewPath string
	APIKey      string
	Timeout     time.Duration
}

type Executor struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

var executeContract = validation.MustContract("action response", `{
	"type": "object",
	"required": ["success"],
	"properties": {
		"success": {"type": "boolean"},
		"message": {"type": ["string", "null"]},
		"requiresConfirmation": {"type": ["boolean", "null"]},
		"confirmationPrompt": {"type": ["string", "null"]},
		"needsMoreInfo": {"type": ["boolean", "null"]},
		"prompt": {"type": ["string", "null"]},
		"missingEntity": {"type": ["string", "null"]}
	}
}`)

var previewContract = validation.MustContract("preview response", `{
	"type": "object",
	"required": ["description", "canExecute"],
	"properties": {
		"description": {"type": "string"},
		"estimatedImpact": {"type": ["string", "null"]},
		"warnings": {"type": ["array", "null"], "items": {"type": "string"}},
		"canExecute": {"type": "boolean"}
	}
}`)

type actionRequest struct {
	Action       intent.Kind            `json:"action"`
	Entities     map[string]string      `json:"entities"`
	Platform     string                 `json:"platform"`
	TenantID     string                 `json:"tenantId,omitempty"`
	RawText      string                 `json:"rawText"`
	BrandContext map[string]interface{} `json:"brandContext,omitempty"`
}

type actionResponse struct {
	Success              bool            `json:"success"`
	Message              string          `json:"message"`
	Data                 json.RawMessage `json:"data"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	ConfirmationPrompt   string          `json:"confirmationPrompt"`
	NeedsMoreInfo        bool            `json:"needsMoreInfo"`
	Prompt               string          `json:"prompt"`
	MissingEntity        string          `json:"missingEntity"`
}

func NewExecutor(config *Config, log logger.Logger) *Executor {
	return &Executor{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.APIKey),
		logger: log.With(map[string]interface{}{"component": "dispatcher"}),
	}
}

// NewExecutorWithHTTP is used by tests to inject a transport.
func NewExecutorWithHTTP(config *Config, hc *httpclient.Client, log logger.Logger) *Executor {
	e := NewExecutor(config, log)
	e.http = hc
	return e
}

// MergeEntities overlays extra onto base. Values from extra win.
func MergeEntities(base, extra map[string]string) map[string]string {
	out := intent.CopyEntities(base)
	for k, v := range extra {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Execute dispatches one action. Every failure becomes an unsuccessful
// result; it never returns an error and never retries.
func (e *Executor) Execute(ctx context.Context, a intent.ActionIntent, pc intent.PlatformContext, extra map[string]string) (result ActionResult) {
	entities := MergeEntities(a.Entities, extra)
	start := time.Now()

	ctx, span := observability.StartClientSpan(ctx, "dispatch.execute",
		attribute.String("action", string(a.Kind)),
		attribute.String("platform", pc.Platform))

	var failure *errors.StandardError
	defer func() {
		if r := recover(); r != nil {
			failure = errors.Normalize(fmt.Errorf("panic during dispatch: %v", r))
			result = failed(a.Kind, entities, failure.Message+". Please try again.")
		}
		var spanErr error
		if failure != nil {
			spanErr = failure
		}
		observability.EndSpan(span, spanErr)
		metrics.ActionDispatchDuration.WithLabelValues(string(a.Kind)).Observe(time.Since(start).Seconds())
		metrics.ActionDispatches.WithLabelValues(string(a.Kind), outcome(result, failure)).Inc()
	}()

	body, failure := e.post(ctx, e.config.ExecutePath, a, pc, entities)
	if failure != nil {
		e.logger.WithContext(ctx).Warn("action dispatch failed", map[string]interface{}{
			"action":    a.Kind,
			"errorCode": failure.Code,
			"details":   failure.Details,
		})
		return failed(a.Kind, entities, failure.Message+". Please try again.")
	}

	if err := executeContract.ValidateBytes(body); err != nil {
		failure = errors.NewDispatchMalformedError(err)
		e.logger.WithContext(ctx).Warn("action response violated contract", map[string]interface{}{
			"action": a.Kind,
			"error":  err.Error(),
		})
		return failed(a.Kind, entities, failure.Message+".")
	}

	var resp actionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		failure = errors.NewDispatchMalformedError(err)
		return failed(a.Kind, entities, failure.Message+".")
	}

	result = ActionResult{
		Succeeded:     resp.Success,
		Kind:          a.Kind,
		Message:       resp.Message,
		Payload:       nullToEmpty(resp.Data),
		MissingEntity: resp.MissingEntity,
		Entities:      entities,
	}
	switch {
	case resp.RequiresConfirmation:
		result.NeedsMoreInfo = true
		result.Prompt = resp.ConfirmationPrompt
	case resp.NeedsMoreInfo:
		result.NeedsMoreInfo = true
		result.Prompt = resp.Prompt
	}
	if result.NeedsMoreInfo && result.Prompt == "" {
		result.Prompt = resp.Message
	}

	e.logger.WithContext(ctx).Info("action dispatched", map[string]interface{}{
		"action":        a.Kind,
		"succeeded":     result.Succeeded,
		"needsMoreInfo": result.NeedsMoreInfo,
	})
	return result
}

// Preview asks the backend for a side-effect free summary of the action.
func (e *Executor) Preview(ctx context.Context, a intent.ActionIntent, pc intent.PlatformContext, extra map[string]string) (preview Preview, err error) {
	ctx, span := observability.StartClientSpan(ctx, "dispatch.preview",
		attribute.String("action", string(a.Kind)))
	defer func() { observability.EndSpan(span, err) }()

	if e.config.PreviewPath == "" {
		return Preview{}, errors.NewPreviewFailedError(stderrors.New("preview endpoint not configured"))
	}

	body, failure := e.post(ctx, e.config.PreviewPath, a, pc, MergeEntities(a.Entities, extra))
	if failure != nil {
		return Preview{}, errors.NewPreviewFailedError(failure)
	}
	if err := previewContract.ValidateBytes(body); err != nil {
		return Preview{}, errors.NewPreviewFailedError(err)
	}
	if err := json.Unmarshal(body, &preview); err != nil {
		return Preview{}, errors.NewPreviewFailedError(err)
	}
	return preview, nil
}

// post sends the shared request shape and returns a 2xx body.
func (e *Executor) post(ctx context.Context, path string, a intent.ActionIntent, pc intent.PlatformContext, entities map[string]string) ([]byte, *errors.StandardError) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := actionRequest{
		Action:       a.Kind,
		Entities:     entities,
		Platform:     pc.Platform,
		TenantID:     pc.TenantID,
		RawText:      a.RawText,
		BrandContext: pc.BrandContext,
	}
	url := strings.TrimRight(e.config.BaseURL, "/") + path

	resp, err := e.http.PostJSON(ctx, url, req)
	if err != nil {
		if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewDispatchTimeoutError()
		}
		return nil, errors.NewDispatchTransportError(err)
	}
	if !resp.OK() {
		return nil, errors.NewDispatchBadStatusError(resp.StatusCode, string(resp.Body))
	}
	return resp.Body, nil
}

func outcome(r ActionResult, failure *errors.StandardError) string {
	switch {
	case failure != nil:
		return strings.ToLower(string(failure.Code))
	case r.NeedsMoreInfo:
		return "needs_more_info"
	case r.Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
