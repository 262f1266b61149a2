package dispatch

import (
	"encoding/json"

	"action-engine/internal/actions/intent"
)

// ActionResult is the normalized outcome of one dispatch attempt.
type ActionResult struct {
	Succeeded     bool              `json:"succeeded"`
	Kind          intent.Kind       `json:"kind"`
	Message       string            `json:"message"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	NeedsMoreInfo bool              `json:"needsMoreInfo"`
	Prompt        string            `json:"prompt,omitempty"`
	MissingEntity string            `json:"missingEntity,omitempty"`
	Entities      map[string]string `json:"entities,omitempty"`
}

// Preview is a read-only dry run of an action.
type Preview struct {
	Description     string   `json:"description"`
	EstimatedImpact string   `json:"estimatedImpact"`
	Warnings        []string `json:"warnings,omitempty"`
	CanExecute      bool     `json:"canExecute"`
}

func failed(kind intent.Kind, entities map[string]string, message string) ActionResult {
	return ActionResult{
		Succeeded: false,
		Kind:      kind,
		Message:   message,
		Entities:  entities,
	}
}
