package classifier

import (
	"context"
	stderrors "errors"

	"action-engine/internal/actions/intent"
	"action-engine/internal/actions/matcher"
	"action-engine/internal/common/circuitbreaker"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/metrics"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Resolution is a resolved intent and where it came from.
type Resolution struct {
	Intent intent.ActionIntent
	Source string
	// Local is the matcher result, always computed.
	Local intent.ActionIntent
	// FallbackReason is set when the remote classifier was skipped or failed.
	FallbackReason string
}

// Resolver prefers the remote classifier and never surfaces its failures.
type Resolver struct {
	remote  Classifier
	breaker *circuitbreaker.CircuitBreaker
	logger  logger.Logger
}

// NewResolver builds a resolver. A nil remote resolves locally only.
func NewResolver(remote Classifier, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *Resolver {
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	return &Resolver{
		remote:  remote,
		breaker: breaker,
		logger:  log.With(map[string]interface{}{"component": "resolver"}),
	}
}

// Resolve classifies rawText. It never fails.
func (r *Resolver) Resolve(ctx context.Context, rawText string, pc intent.PlatformContext) Resolution {
	local := matcher.Match(rawText)
	res := Resolution{Intent: local, Source: SourceLocal, Local: local}

	if r.remote == nil {
		metrics.IntentResolutions.WithLabelValues(string(local.EffectiveKind()), SourceLocal).Inc()
		return res
	}

	var remote intent.ActionIntent
	err := r.breaker.Execute(func() error {
		var cerr error
		remote, cerr = r.remote.Classify(ctx, rawText, pc)
		return cerr
	})
	if err != nil {
		res.FallbackReason = fallbackReason(err)
		metrics.ClassifierFallbacks.WithLabelValues(res.FallbackReason).Inc()
		metrics.IntentResolutions.WithLabelValues(string(local.EffectiveKind()), SourceLocal).Inc()
		r.logger.WithContext(ctx).Warn("remote classification failed, using local matcher", map[string]interface{}{
			"reason":    res.FallbackReason,
			"error":     err.Error(),
			"localKind": local.Kind,
		})
		return res
	}

	res.Intent = remote
	res.Source = SourceRemote
	metrics.IntentResolutions.WithLabelValues(string(remote.EffectiveKind()), SourceRemote).Inc()
	return res
}

func fallbackReason(err error) string {
	switch {
	case stderrors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case stderrors.Is(err, errors.ErrIntentAPITimeout):
		return "timeout"
	case stderrors.Is(err, errors.ErrIntentParsingFailed):
		return "parsing_failed"
	default:
		return "error"
	}
}
