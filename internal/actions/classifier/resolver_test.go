package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"action-engine/internal/actions/intent"
	"action-engine/internal/common/circuitbreaker"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
)

type fakeClassifier struct {
	result intent.ActionIntent
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, rawText string, _ intent.PlatformContext) (intent.ActionIntent, error) {
	f.calls++
	if f.err != nil {
		return intent.ActionIntent{}, f.err
	}
	r := f.result
	r.RawText = rawText
	return r, nil
}

func TestResolver_LocalOnly(t *testing.T) {
	r := NewResolver(nil, nil, logger.NewNoOpLogger())
	res := r.Resolve(context.Background(), "find contacts named sarah", intent.PlatformContext{})

	assert.Equal(t, SourceLocal, res.Source)
	assert.Equal(t, intent.SearchContacts, res.Intent.Kind)
	assert.Equal(t, res.Local, res.Intent)
	assert.Empty(t, res.FallbackReason)
}

func TestResolver_RemoteIsTrusted(t *testing.T) {
	remote := &fakeClassifier{result: intent.New(intent.CreateTask, 0.95, map[string]string{"title": "renewals"}, "")}
	r := NewResolver(remote, nil, logger.NewNoOpLogger())

	res := r.Resolve(context.Background(), "find contacts named sarah", intent.PlatformContext{})
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, intent.CreateTask, res.Intent.Kind)
	assert.Equal(t, intent.SearchContacts, res.Local.Kind)
}

func TestResolver_FallsBackOnFailure(t *testing.T) {
	tests := []struct {
		err    error
		reason string
	}{
		{errors.NewIntentAPITimeoutError(), "timeout"},
		{errors.NewIntentParsingFailedError(assert.AnError), "parsing_failed"},
		{assert.AnError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			r := NewResolver(&fakeClassifier{err: tt.err}, nil, logger.NewTestLogger(t))
			res := r.Resolve(context.Background(), "text +15550101 about the 2pm appointment", intent.PlatformContext{})

			assert.Equal(t, SourceLocal, res.Source)
			assert.Equal(t, tt.reason, res.FallbackReason)
			assert.Equal(t, intent.SendTextMessage, res.Intent.Kind)
			assert.Equal(t, map[string]string{"phone": "15550101"}, res.Intent.Entities)
		})
	}
}

func TestResolver_CircuitOpenSkipsRemote(t *testing.T) {
	remote := &fakeClassifier{err: errors.NewIntentAPITimeoutError()}
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, Cooldown: time.Hour})
	r := NewResolver(remote, breaker, logger.NewNoOpLogger())

	for i := 0; i < 2; i++ {
		assert.Equal(t, "timeout", r.Resolve(context.Background(), "create task x", intent.PlatformContext{}).FallbackReason)
	}
	res := r.Resolve(context.Background(), "create task x", intent.PlatformContext{})

	assert.Equal(t, "circuit_open", res.FallbackReason)
	assert.Equal(t, 2, remote.calls)
	assert.Equal(t, intent.CreateTask, res.Intent.Kind)
}
