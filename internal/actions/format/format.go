// Package format renders action results and confirmation summaries as short
// operator-facing lines.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/intent"
)

const (
	genericSuccess = "Action completed successfully."
	genericFailure = "Action failed. Please try again."
)

type template func(e entities, payload json.RawMessage) (string, bool)

type entities map[string]string

// first returns the first non-empty value among keys.
func (e entities) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e[k]); v != "" {
			return v
		}
	}
	return ""
}

var successTemplates = map[intent.Kind]template{
	intent.SendMessage: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Sent message to %s", e.first("recipient"))
	},
	intent.SendTextMessage: func(e entities, _ json.RawMessage) (string, bool) {
		return with("SMS sent to %s", e.first("phone", "recipient", "contact"))
	},
	intent.ScheduleSocialPost: func(e entities, _ json.RawMessage) (string, bool) {
		switch {
		case e.first("platform") != "" && e.first("scheduledFor") != "":
			return fmt.Sprintf("Post scheduled on %s for %s", e["platform"], e["scheduledFor"]), true
		case e.first("scheduledFor") != "":
			return fmt.Sprintf("Post scheduled for %s", e["scheduledFor"]), true
		case e.first("platform") != "":
			return fmt.Sprintf("Post scheduled on %s", e["platform"]), true
		}
		return "Social post scheduled", true
	},
	intent.CreateContact: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Created contact %s", e.first("name"))
	},
	intent.PlaceCall: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Calling %s", e.first("phone", "contact", "recipient"))
	},
	intent.CreateTask: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Created task: %s", e.first("title"))
	},
	intent.SearchContacts: func(_ entities, payload json.RawMessage) (string, bool) {
		n, ok := countResults(payload, "contacts")
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Found %d contact(s)", n), true
	},
	intent.TriggerAutomation: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Triggered automation %s", e.first("workflow"))
	},
	intent.CreateOpportunity: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Created opportunity %s", e.first("name"))
	},
	intent.BookAppointment: func(e entities, _ json.RawMessage) (string, bool) {
		contact, when := e.first("contact"), e.first("datetime")
		if contact == "" || when == "" {
			return "", false
		}
		return fmt.Sprintf("Booked appointment with %s for %s", contact, when), true
	},
	intent.GenerateContent: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Generated content about %s", e.first("topic"))
	},
	intent.SwitchAgent: func(e entities, _ json.RawMessage) (string, bool) {
		return with("Switched to the %s agent", e.first("role"))
	},
}

func with(pattern, value string) (string, bool) {
	if value == "" {
		return "", false
	}
	return fmt.Sprintf(pattern, value), true
}

// Format renders result as one status line.
func Format(result dispatch.ActionResult) string {
	if result.NeedsMoreInfo && result.Prompt != "" {
		return result.Prompt
	}
	if !result.Succeeded {
		if msg := strings.TrimSpace(result.Message); msg != "" {
			return msg
		}
		return genericFailure
	}
	if tpl, ok := successTemplates[result.Kind]; ok {
		if line, ok := tpl(entities(result.Entities), result.Payload); ok {
			return line
		}
	}
	if msg := strings.TrimSpace(result.Message); msg != "" {
		return msg
	}
	return genericSuccess
}

// countResults counts records in a payload that is either an array, an
// object holding an array under key, or an object with a numeric count.
func countResults(payload json.RawMessage, key string) (int, bool) {
	if len(payload) == 0 {
		return 0, false
	}

	var list []json.RawMessage
	if err := json.Unmarshal(payload, &list); err == nil {
		return len(list), true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return 0, false
	}
	for _, k := range []string{key, "results", "items"} {
		if raw, ok := obj[k]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return len(list), true
			}
		}
	}
	for _, k := range []string{"count", "total"} {
		if raw, ok := obj[k]; ok {
			var n float64
			if err := json.Unmarshal(raw, &n); err == nil && n >= 0 {
				return int(n), true
			}
		}
	}
	return 0, false
}
