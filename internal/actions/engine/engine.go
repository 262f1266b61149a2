// Package engine runs one operator turn through resolution, slot filling,
// confirmation and dispatch.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"action-engine/internal/actions/classifier"
	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/format"
	"action-engine/internal/actions/intent"
	"action-engine/internal/actions/matcher"
	"action-engine/internal/actions/planner"
	"action-engine/internal/actions/slots"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/metrics"
	"action-engine/internal/common/observability"
)

// Stage is where a turn left the conversation.
type Stage string

const (
	StageDispatched           Stage = "dispatched"
	StageAwaitingEntity       Stage = "awaiting_entity"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageCancelled            Stage = "cancelled"
	StageConversation         Stage = "conversation"
	StageAgentSwitched        Stage = "agent_switched"
)

const (
	cancelledReply  = "Okay, I've cancelled that."
	emptyTurnReply  = "What would you like me to do?"
	internalFailure = "Something went wrong while handling that. Please try again."
)

// Turn is one operator message plus the conversation's pending action.
type Turn struct {
	Text     string
	Pending  *slots.PendingAction
	Platform intent.PlatformContext
	Persona  string
}

// TurnOutcome is what the caller shows and persists. A nil Pending clears
// the conversation's pending action.
type TurnOutcome struct {
	Reply   string                 `json:"reply"`
	Stage   Stage                  `json:"stage"`
	Intent  *intent.ActionIntent   `json:"intent,omitempty"`
	Pending *slots.PendingAction   `json:"pending,omitempty"`
	Result  *dispatch.ActionResult `json:"result,omitempty"`
	Source  string                 `json:"source,omitempty"`
}

// Resolver classifies fresh commands.
type Resolver interface {
	Resolve(ctx context.Context, rawText string, pc intent.PlatformContext) classifier.Resolution
}

type Config struct {
	Policy          slots.Policy
	DefaultPlatform string
}

// Dependencies are the engine's collaborators. Planner and Observability may be nil.
type Dependencies struct {
	Resolver      Resolver
	Dispatcher    dispatch.Dispatcher
	Planner       planner.Planner
	Observability *observability.Observability
}

type Engine struct {
	config      Config
	resolver    Resolver
	dispatcher  dispatch.Dispatcher
	planner     planner.Planner
	coordinator *slots.Coordinator
	obs         *observability.Observability
	logger      logger.Logger
}

func New(config Config, deps Dependencies, log logger.Logger) *Engine {
	return &Engine{
		config:      config,
		resolver:    deps.Resolver,
		dispatcher:  deps.Dispatcher,
		planner:     deps.Planner,
		coordinator: slots.NewCoordinator(config.Policy),
		obs:         deps.Observability,
		logger:      log.With(map[string]interface{}{"component": "engine"}),
	}
}

// HandleTurn processes one turn. It never fails; every error path resolves
// to a reply.
func (e *Engine) HandleTurn(ctx context.Context, turn Turn) (out TurnOutcome) {
	start := time.Now()
	log := e.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn handling panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			out = TurnOutcome{Reply: internalFailure, Stage: stageOf(turn.Pending), Pending: turn.Pending}
		}
		metrics.SlotFillingTransitions.WithLabelValues(slots.StateOf(turn.Pending), slots.StateOf(out.Pending)).Inc()
		e.obs.RecordTurn(ctx, string(out.Stage), time.Since(start))
		log.Info("turn handled", map[string]interface{}{
			"stage":      out.Stage,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}()

	pc := e.platformContext(turn)
	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return TurnOutcome{Reply: emptyTurnReply, Stage: stageOf(turn.Pending), Pending: turn.Pending}
	}

	if turn.Pending != nil {
		step := e.coordinator.Advance(turn.Pending, slots.Input{
			Text:      text,
			Candidate: matcher.Match(text),
			Persona:   pc.Persona,
		})
		switch step.Outcome {
		case slots.OutcomeAwaiting:
			return awaiting(step.Pending, nil)
		case slots.OutcomeCancelled:
			return TurnOutcome{Reply: cancelledReply, Stage: StageCancelled, Intent: intentPtr(turn.Pending.Intent)}
		case slots.OutcomeReady:
			return e.perform(ctx, step.Pending, pc)
		case slots.OutcomeReplaced:
			log.Debug("pending action replaced", map[string]interface{}{"previousKind": turn.Pending.Kind()})
		}
	}

	res := e.resolver.Resolve(ctx, text, pc)
	a := res.Intent
	if !a.Resolved() {
		out = e.converse(ctx, text, pc)
		out.Intent = intentPtr(a)
		out.Source = res.Source
		return out
	}

	step := e.coordinator.Begin(withEffectiveKind(a))
	if step.Outcome == slots.OutcomeAwaiting {
		out = awaiting(step.Pending, nil)
	} else {
		out = e.perform(ctx, step.Pending, pc)
	}
	out.Source = res.Source
	return out
}

// perform acts on a pending action whose requirements are met.
func (e *Engine) perform(ctx context.Context, p *slots.PendingAction, pc intent.PlatformContext) TurnOutcome {
	if p.Kind() == intent.SwitchAgent {
		return switchAgent(p)
	}

	extra := intent.CopyEntities(p.Collected)
	if p.Source == slots.SourceBackend && p.Confirmed {
		extra["confirmed"] = "true"
	}

	result := e.dispatcher.Execute(ctx, p.Intent, pc, extra)
	if result.Entities == nil {
		result.Entities = dispatch.MergeEntities(p.Intent.Entities, extra)
	}

	if result.NeedsMoreInfo {
		step := e.coordinator.FromBackend(p.Intent, result.Entities, result.Prompt, result.MissingEntity)
		return awaiting(step.Pending, &result)
	}

	return TurnOutcome{
		Reply:  format.Format(result),
		Stage:  StageDispatched,
		Intent: intentPtr(p.Intent),
		Result: &result,
	}
}

func (e *Engine) converse(ctx context.Context, text string, pc intent.PlatformContext) TurnOutcome {
	reply := planner.HelpReply()
	if e.planner != nil {
		if r, err := e.planner.Reply(ctx, text, pc); err != nil {
			e.logger.WithContext(ctx).Warn("planner reply failed, using help text", map[string]interface{}{
				"error": err.Error(),
			})
		} else if r != "" {
			reply = r
		}
	}
	return TurnOutcome{Reply: reply, Stage: StageConversation}
}

func switchAgent(p *slots.PendingAction) TurnOutcome {
	role := strings.ToLower(strings.TrimSpace(p.Collected["role"]))
	payload, _ := json.Marshal(map[string]string{"role": role})
	result := dispatch.ActionResult{
		Succeeded: true,
		Kind:      intent.SwitchAgent,
		Payload:   payload,
		Entities:  map[string]string{"role": role},
	}
	return TurnOutcome{
		Reply:  format.Format(result),
		Stage:  StageAgentSwitched,
		Intent: intentPtr(p.Intent),
		Result: &result,
	}
}

func awaiting(p *slots.PendingAction, result *dispatch.ActionResult) TurnOutcome {
	return TurnOutcome{
		Reply:   p.Prompt,
		Stage:   stageOf(p),
		Intent:  intentPtr(p.Intent),
		Pending: p,
		Result:  result,
	}
}

func stageOf(p *slots.PendingAction) Stage {
	switch slots.StateOf(p) {
	case slots.StateAwaitingConfirmation:
		return StageAwaitingConfirmation
	case slots.StateAwaitingEntity:
		return StageAwaitingEntity
	default:
		return StageConversation
	}
}

func (e *Engine) platformContext(turn Turn) intent.PlatformContext {
	pc := turn.Platform
	if pc.Platform == "" {
		pc.Platform = e.config.DefaultPlatform
	}
	if turn.Persona != "" {
		pc.Persona = turn.Persona
	}
	return pc
}

// withEffectiveKind pins the kind after thresholding so downstream tables
// see a vocabulary kind.
func withEffectiveKind(a intent.ActionIntent) intent.ActionIntent {
	a.Kind = a.EffectiveKind()
	return a
}

func intentPtr(a intent.ActionIntent) *intent.ActionIntent {
	return &a
}
