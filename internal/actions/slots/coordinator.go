package slots

import (
	"fmt"
	"strings"
	"time"

	"action-engine/internal/actions/format"
	"action-engine/internal/actions/gate"
	"action-engine/internal/actions/intent"
)

// Outcome is the result of one coordinator step.
type Outcome int

const (
	// OutcomeAwaiting keeps the conversation in slot filling.
	OutcomeAwaiting Outcome = iota
	// OutcomeReady means Pending.Collected can be dispatched.
	OutcomeReady
	// OutcomeCancelled discards the pending action.
	OutcomeCancelled
	// OutcomeReplaced means the reply is a new intent that supersedes the pending one.
	OutcomeReplaced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeReplaced:
		return "replaced"
	default:
		return "awaiting"
	}
}

// Step is the coordinator's decision for one turn.
type Step struct {
	Outcome Outcome
	// Pending is the updated action for OutcomeAwaiting and OutcomeReady.
	Pending *PendingAction
}

// Policy tunes intent replacement while slot filling.
type Policy struct {
	// ReplaceRequiresPersona allows replacement only when a staff persona is active.
	ReplaceRequiresPersona bool
}

// Input is one operator turn against a pending action.
type Input struct {
	Text string
	// Candidate is the local classification of Text.
	Candidate intent.ActionIntent
	Persona   string
}

type Coordinator struct {
	policy Policy
	now    func() time.Time
}

func NewCoordinator(policy Policy) *Coordinator {
	return &Coordinator{policy: policy, now: time.Now}
}

// Begin evaluates a freshly resolved intent. Sensitive kinds always pause for
// confirmation; incomplete kinds pause for their first missing entity.
func (c *Coordinator) Begin(a intent.ActionIntent) Step {
	p := &PendingAction{
		Intent:    a,
		Collected: intent.CopyEntities(a.Entities),
		Source:    SourceClient,
		CreatedAt: c.now().UTC(),
	}
	return c.evaluate(p)
}

// FromBackend opens a pending action for a need reported by the executor.
// An empty missingEntity means the backend asks for a yes/no confirmation.
func (c *Coordinator) FromBackend(a intent.ActionIntent, collected map[string]string, prompt, missingEntity string) Step {
	p := &PendingAction{
		Intent:               a,
		Collected:            intent.CopyEntities(collected),
		AwaitingKey:          missingEntity,
		AwaitingConfirmation: missingEntity == "",
		Source:               SourceBackend,
		Prompt:               prompt,
		CreatedAt:            c.now().UTC(),
	}
	if p.Prompt == "" {
		p.Prompt = c.prompt(p)
	}
	return Step{Outcome: OutcomeAwaiting, Pending: p}
}

// Advance applies one operator reply to pending.
func (c *Coordinator) Advance(pending *PendingAction, in Input) Step {
	if pending == nil {
		return Step{Outcome: OutcomeReplaced}
	}
	if c.replaces(pending, in) {
		return Step{Outcome: OutcomeReplaced}
	}

	p := pending.Clone()
	if p.Source == SourceClient && restates(p, in.Candidate) {
		p.Collected = MergeAll(p.Collected, in.Candidate.Entities)
		return c.evaluate(p)
	}
	reply := ParseReply(in.Text, p.AwaitingConfirmation)

	switch reply.Kind {
	case ReplyCancel, ReplyNegate:
		return Step{Outcome: OutcomeCancelled}
	case ReplyAffirm:
		p.AwaitingConfirmation = false
		p.Confirmed = true
		if p.AwaitingKey != "" && reply.Remainder != "" {
			p.Collected = Merge(p.Collected, p.AwaitingKey, normalizeValue(p.AwaitingKey, reply.Remainder))
			p.AwaitingKey = ""
		}
	case ReplyValue:
		if p.AwaitingKey == "" {
			// Unclear answer to a yes/no question: ask again.
			return Step{Outcome: OutcomeAwaiting, Pending: p}
		}
		p.Collected = Merge(p.Collected, p.AwaitingKey, normalizeValue(p.AwaitingKey, reply.Remainder))
		p.AwaitingKey = ""
	}

	if p.Source == SourceBackend {
		if p.AwaitingConfirmation || p.AwaitingKey != "" {
			return Step{Outcome: OutcomeAwaiting, Pending: p}
		}
		return Step{Outcome: OutcomeReady, Pending: p}
	}
	return c.evaluate(p)
}

// evaluate re-checks client-side requirements.
func (c *Coordinator) evaluate(p *PendingAction) Step {
	kind := p.Intent.Kind
	p.AwaitingKey = intent.NextMissing(kind, p.Collected)
	p.AwaitingConfirmation = gate.RequiresConfirmation(kind) && !p.Confirmed

	if p.AwaitingKey == "" && !p.AwaitingConfirmation {
		p.Prompt = ""
		return Step{Outcome: OutcomeReady, Pending: p}
	}
	p.Prompt = c.prompt(p)
	return Step{Outcome: OutcomeAwaiting, Pending: p}
}

// replaces reports whether the turn is a different strong intent.
func (c *Coordinator) replaces(p *PendingAction, in Input) bool {
	cand := in.Candidate
	if !cand.Strong() || cand.EffectiveKind() == p.Intent.Kind {
		return false
	}
	if c.policy.ReplaceRequiresPersona && strings.TrimSpace(in.Persona) == "" {
		return false
	}
	return true
}

// restates reports whether the turn is a strong intent of the pending kind
// that answers the solicited key itself. Anything else is read as the value.
func restates(p *PendingAction, cand intent.ActionIntent) bool {
	if p.AwaitingKey == "" || !cand.Strong() || cand.EffectiveKind() != p.Intent.Kind {
		return false
	}
	return strings.TrimSpace(cand.Entities[p.AwaitingKey]) != ""
}

func (c *Coordinator) prompt(p *PendingAction) string {
	kind := p.Intent.Kind
	switch {
	case p.AwaitingConfirmation && p.AwaitingKey != "":
		return fmt.Sprintf("%s. %s Reply yes with your answer to confirm, or no to cancel.",
			format.Describe(kind, p.Collected), format.Question(kind, p.AwaitingKey))
	case p.AwaitingConfirmation:
		return fmt.Sprintf("%s? Reply yes to confirm or no to cancel.", format.Describe(kind, p.Collected))
	default:
		return format.Question(kind, p.AwaitingKey)
	}
}

func normalizeValue(key, value string) string {
	if key == "phone" && intent.LooksLikePhone(value) {
		return intent.NormalizePhone(value)
	}
	return value
}
