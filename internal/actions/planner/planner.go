// Package planner produces free-form replies for turns that do not resolve
// to an action.
package planner

import (
	"context"
	"encoding/json"
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

// Planner answers an unresolved operator message.
type Planner interface {
	Reply(ctx context.Context, rawText string, pc intent.PlatformContext) (string, error)
}

type Config struct {
	BaseURL string
	Path    string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
}

var replyContract = validation.MustContract("planner response", `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string", "minLength": 1}
	}
}`)

type replyRequest struct {
	Message      string                 `json:"message"`
	Platform     string                 `json:"platform"`
	BrandContext map[string]interface{} `json:"brandContext,omitempty"`
	Persona      string                 `json:"persona,omitempty"`
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.APIKey),
		logger: log.With(map[string]interface{}{"component": "planner"}),
	}
}

func (c *Client) Reply(ctx context.Context, rawText string, pc intent.PlatformContext) (reply string, err error) {
	ctx, span := observability.StartClientSpan(ctx, "planner.reply",
		attribute.String("persona", pc.Persona))
	defer func() { observability.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := strings.TrimRight(c.config.BaseURL, "/") + c.config.Path
	resp, err := c.http.PostJSON(ctx, url, replyRequest{
		Message:      rawText,
		Platform:     pc.Platform,
		BrandContext: pc.BrandContext,
		Persona:      pc.Persona,
	})
	if err != nil {
		return "", errors.NewPlannerFailedError(err)
	}
	if !resp.OK() {
		return "", errors.NewPlannerFailedError(errors.NewDispatchBadStatusError(resp.StatusCode, string(resp.Body)))
	}
	if err := replyContract.ValidateBytes(resp.Body); err != nil {
		return "", errors.NewPlannerFailedError(err)
	}

	var body struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", errors.NewPlannerFailedError(err)
	}
	return strings.TrimSpace(body.Reply), nil
}

// HelpReply is the canned answer used when no planner reply is available.
func HelpReply() string {
	return "I couldn't match that to an action. Try something like: " +
		"\"text +15550101 saying running late\", " +
		"\"find contacts named sarah\", " +
		"\"create task follow up with Acme\" or " +
		"\"book a meeting with sarah tomorrow at 3pm\"."
}
