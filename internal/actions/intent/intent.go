// Package intent holds the closed vocabulary of operator actions and the
// per-kind required entity table.
package intent

import (
	"strings"
)

// Kind is the wire value of an action kind.
type Kind string

const (
	SendMessage        Kind = "send_message"
	SendTextMessage    Kind = "send_text_message"
	ScheduleSocialPost Kind = "schedule_social_post"
	CreateContact      Kind = "create_contact"
	PlaceCall          Kind = "place_call"
	CreateTask         Kind = "create_task"
	SearchContacts     Kind = "search_contacts"
	FetchAnalytics     Kind = "fetch_analytics"
	TriggerAutomation  Kind = "trigger_automation"
	CreateOpportunity  Kind = "create_opportunity"
	BookAppointment    Kind = "book_appointment"
	GenerateContent    Kind = "generate_content"
	SwitchAgent        Kind = "switch_agent"
	Unresolved         Kind = "unresolved"
)

const (
	// ResolvedThreshold is the confidence below which any intent is unresolved.
	ResolvedThreshold = 0.5
	// ReplacementThreshold is the confidence a new intent needs to replace a pending one.
	ReplacementThreshold = 0.7
	// MatchedConfidence is the flat confidence of a local rule match.
	MatchedConfidence = 0.8
	// UnmatchedConfidence is reported when no local rule matches.
	UnmatchedConfidence = 0.3
	// DefaultRemoteConfidence is used when the classifier omits a confidence.
	DefaultRemoteConfidence = 0.5
)

var kinds = []Kind{
	SendMessage, SendTextMessage, ScheduleSocialPost, CreateContact, PlaceCall,
	CreateTask, SearchContacts, FetchAnalytics, TriggerAutomation, CreateOpportunity,
	BookAppointment, GenerateContent, SwitchAgent, Unresolved,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind maps a wire value to a Kind. Unknown values are Unresolved.
// Hyphenated and upper-case spellings are accepted.
func ParseKind(s string) Kind {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, k := range kinds {
		if string(k) == norm {
			return k
		}
	}
	if norm == "switch_active_agent" {
		return SwitchAgent
	}
	return Unresolved
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k belongs to the vocabulary.
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActionIntent is the classification of one operator utterance.
type ActionIntent struct {
	Kind       Kind              `json:"kind"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
	RawText    string            `json:"rawText"`
}

// New builds an intent with a copy of entities.
func New(kind Kind, confidence float64, entities map[string]string, rawText string) ActionIntent {
	return ActionIntent{
		Kind:       kind,
		Confidence: clamp(confidence),
		Entities:   CopyEntities(entities),
		RawText:    rawText,
	}
}

// EffectiveKind applies the resolution threshold.
func (a ActionIntent) EffectiveKind() Kind {
	if a.Confidence < ResolvedThreshold || !a.Kind.Valid() {
		return Unresolved
	}
	return a.Kind
}

// Resolved reports whether the intent can be acted on.
func (a ActionIntent) Resolved() bool {
	return a.EffectiveKind() != Unresolved
}

// Strong reports whether the intent is confident enough to replace a pending action.
func (a ActionIntent) Strong() bool {
	return a.Resolved() && a.Confidence >= ReplacementThreshold
}

// CopyEntities returns an independent copy, dropping blank values.
func CopyEntities(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// PlatformContext selects the CRM integration and carries brand context
// through to collaborators unmodified.
type PlatformContext struct {
	Platform     string                 `json:"platform"`
	TenantID     string                 `json:"tenantId,omitempty"`
	BrandContext map[string]interface{} `json:"brandContext,omitempty"`
	Persona      string                 `json:"persona,omitempty"`
}
