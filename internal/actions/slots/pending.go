// Package slots implements the per-conversation slot-filling state machine.
// It is pure: callers persist PendingAction between turns.
package slots

import (
	"time"

	"action-engine/internal/actions/intent"
)

// Source identifies who asked for more information.
type Source string

const (
	SourceClient  Source = "client"
	SourceBackend Source = "backend"
)

// State names used in metrics and API payloads.
const (
	StateIdle                 = "idle"
	StateAwaitingEntity       = "awaiting_entity"
	StateAwaitingConfirmation = "awaiting_confirmation"
)

// PendingAction is an intent waiting for entities or confirmation.
type PendingAction struct {
	Intent               intent.ActionIntent `json:"intent"`
	Collected            map[string]string   `json:"collected"`
	AwaitingKey          string              `json:"awaitingKey,omitempty"`
	AwaitingConfirmation bool                `json:"awaitingConfirmation"`
	Confirmed            bool                `json:"confirmed"`
	Source               Source              `json:"source"`
	Prompt               string              `json:"prompt"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// Kind is the kind of the pending intent.
func (p *PendingAction) Kind() intent.Kind {
	return p.Intent.Kind
}

// Clone returns a deep copy.
func (p *PendingAction) Clone() *PendingAction {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Collected = make(map[string]string, len(p.Collected))
	for k, v := range p.Collected {
		cp.Collected[k] = v
	}
	cp.Intent.Entities = intent.CopyEntities(p.Intent.Entities)
	return &cp
}

// StateOf reports the coordinator state for p.
func StateOf(p *PendingAction) string {
	switch {
	case p == nil:
		return StateIdle
	case p.AwaitingConfirmation:
		return StateAwaitingConfirmation
	default:
		return StateAwaitingEntity
	}
}

// Merge sets key to value on a copy of collected. Blank values are ignored.
func Merge(collected map[string]string, key, value string) map[string]string {
	out := intent.CopyEntities(collected)
	if key == "" || value == "" {
		return out
	}
	out[key] = value
	return out
}

// MergeAll adds the entries of extra that collected does not already hold.
func MergeAll(collected, extra map[string]string) map[string]string {
	out := intent.CopyEntities(collected)
	for k, v := range extra {
		if _, ok := out[k]; ok || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
