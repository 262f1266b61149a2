// Package session runs engine turns against persisted conversation state.
package session

import (
	"context"

	"action-engine/internal/actions/audit"
	"action-engine/internal/actions/engine"
	"action-engine/internal/actions/slots"
	"action-engine/internal/actions/store"
	"action-engine/internal/common/logger"
)

// TurnHandler runs one operator turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn engine.Turn) engine.TurnOutcome
}

type Options struct {
	Engine  TurnHandler
	Pending store.PendingStore
	Locker  store.Locker
	Audit   audit.Recorder
	Logger  logger.Logger
}

// Service serializes turns per conversation and persists what they leave behind.
type Service struct {
	engine  TurnHandler
	pending store.PendingStore
	locker  store.Locker
	audit   audit.Recorder
	logger  logger.Logger
}

// NewService fills missing stores with in-memory ones and disables auditing
// when no recorder is given.
func NewService(opts Options) *Service {
	s := &Service{
		engine:  opts.Engine,
		pending: opts.Pending,
		locker:  opts.Locker,
		audit:   opts.Audit,
		logger:  opts.Logger.With(map[string]interface{}{"component": "session"}),
	}
	if s.pending == nil {
		s.pending = store.NewMemoryStore()
	}
	if s.locker == nil {
		s.locker = store.NewMemoryLock()
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	return s
}

// Run loads the conversation's pending action, handles the turn and saves
// the new pending state. It fails only before the turn starts: when the
// conversation is busy or its state cannot be read.
func (s *Service) Run(ctx context.Context, conversationID string, turn engine.Turn) (engine.TurnOutcome, error) {
	log := s.logger.WithContext(ctx).With(map[string]interface{}{"conversationId": conversationID})

	unlock, err := s.locker.Acquire(ctx, conversationID)
	if err != nil {
		return engine.TurnOutcome{}, err
	}
	// Persistence outlives a cancelled caller; the turn already happened.
	persistCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := unlock(persistCtx); err != nil {
			log.WithError(err).Warn("turn lock release failed", nil)
		}
	}()

	pending, err := s.pending.Get(ctx, conversationID)
	if err != nil {
		return engine.TurnOutcome{}, err
	}
	turn.Pending = pending

	out := s.engine.HandleTurn(ctx, turn)

	if err := s.pending.Save(persistCtx, conversationID, out.Pending); err != nil {
		log.Error("pending action save failed", map[string]interface{}{
			"stage": out.Stage,
			"error": err.Error(),
		})
	}
	s.record(persistCtx, log, conversationID, turn, out)
	return out, nil
}

// record audits dispatcher results. Local agent switches never reach the
// action service.
func (s *Service) record(ctx context.Context, log logger.Logger, conversationID string, turn engine.Turn, out engine.TurnOutcome) {
	if out.Result == nil || out.Stage == engine.StageAgentSwitched {
		return
	}
	pc := turn.Platform
	if turn.Persona != "" {
		pc.Persona = turn.Persona
	}
	if err := s.audit.Record(ctx, audit.NewEntry(conversationID, pc, turn.Text, *out.Result)); err != nil {
		log.WithError(err).Warn("audit record failed", nil)
	}
}

// Pending returns the conversation's pending action or nil.
func (s *Service) Pending(ctx context.Context, conversationID string) (*slots.PendingAction, error) {
	return s.pending.Get(ctx, conversationID)
}

// Discard drops the conversation's pending action.
func (s *Service) Discard(ctx context.Context, conversationID string) error {
	return s.pending.Delete(ctx, conversationID)
}

// History lists audited dispatches for the conversation.
func (s *Service) History(ctx context.Context, conversationID string, filter HistoryFilter) ([]audit.Entry, error) {
	entries, err := s.audit.ListByConversation(ctx, conversationID, filter.Actions, filter.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}
