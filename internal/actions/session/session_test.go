package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-engine/internal/actions/audit"
	"action-engine/internal/actions/classifier"
	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/engine"
	"action-engine/internal/actions/intent"
	"action-engine/internal/actions/store"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
)

type countingDispatcher struct{ calls int }

func (d *countingDispatcher) Execute(_ context.Context, a intent.ActionIntent, _ intent.PlatformContext, extra map[string]string) dispatch.ActionResult {
	d.calls++
	return dispatch.ActionResult{Succeeded: true, Kind: a.Kind, Entities: dispatch.MergeEntities(a.Entities, extra)}
}

func (d *countingDispatcher) Preview(context.Context, intent.ActionIntent, intent.PlatformContext, map[string]string) (dispatch.Preview, error) {
	return dispatch.Preview{}, nil
}

type memoryRecorder struct{ entries []audit.Entry }

func (m *memoryRecorder) Record(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryRecorder) ListByConversation(context.Context, string, []intent.Kind, int) ([]audit.Entry, error) {
	return m.entries, nil
}

type brokenRecorder struct{ audit.Nop }

func (brokenRecorder) Record(context.Context, audit.Entry) error { return stderrors.New("db down") }

func newEngine(t *testing.T, d dispatch.Dispatcher) *engine.Engine {
	log := logger.NewTestLogger(t)
	return engine.New(engine.Config{DefaultPlatform: "gohighlevel"}, engine.Dependencies{
		Resolver:   classifier.NewResolver(nil, nil, log),
		Dispatcher: d,
	}, log)
}

func TestRun_PersistsPendingBetweenTurns(t *testing.T) {
	d := &countingDispatcher{}
	rec := &memoryRecorder{}
	pending := store.NewMemoryStore()
	s := NewService(Options{Engine: newEngine(t, d), Pending: pending, Audit: rec, Logger: logger.NewTestLogger(t)})
	ctx := context.Background()
	pc := intent.PlatformContext{Platform: "gohighlevel", TenantID: "tenant-1"}

	out, err := s.Run(ctx, "conv-1", engine.Turn{Text: "text +15550101 about the 2pm appointment", Platform: pc})
	require.NoError(t, err)
	assert.Equal(t, engine.StageAwaitingConfirmation, out.Stage)

	stored, err := s.Pending(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, stored)

	out, err = s.Run(ctx, "conv-1", engine.Turn{Text: "yes, say we'll confirm shortly", Platform: pc})
	require.NoError(t, err)
	assert.Equal(t, engine.StageDispatched, out.Stage)
	assert.Equal(t, 1, d.calls)

	stored, err = s.Pending(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, stored)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "tenant-1", rec.entries[0].TenantID)
	assert.Equal(t, "yes, say we'll confirm shortly", rec.entries[0].RawText)
	assert.Equal(t, map[string]string{"phone": "15550101", "message": "we'll confirm shortly"}, rec.entries[0].Entities)
}

func TestRun_ConversationsAreIndependent(t *testing.T) {
	s := NewService(Options{Engine: newEngine(t, &countingDispatcher{}), Logger: logger.NewTestLogger(t)})
	ctx := context.Background()

	_, err := s.Run(ctx, "conv-1", engine.Turn{Text: "book a meeting"})
	require.NoError(t, err)

	out, err := s.Run(ctx, "conv-2", engine.Turn{Text: "sarah"})
	require.NoError(t, err)
	assert.Equal(t, engine.StageConversation, out.Stage)

	p, err := s.Pending(ctx, "conv-1")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRun_Busy(t *testing.T) {
	locker := store.NewMemoryLock()
	d := &countingDispatcher{}
	s := NewService(Options{Engine: newEngine(t, d), Locker: locker, Logger: logger.NewTestLogger(t)})

	unlock, err := locker.Acquire(context.Background(), "conv-1")
	require.NoError(t, err)
	defer unlock(context.Background())

	_, err = s.Run(context.Background(), "conv-1", engine.Turn{Text: "find contacts named sarah"})
	assert.True(t, stderrors.Is(err, errors.ErrConversationBusy))
	assert.Zero(t, d.calls)
}

func TestRun_AuditFailureDoesNotFailTurn(t *testing.T) {
	s := NewService(Options{Engine: newEngine(t, &countingDispatcher{}), Audit: brokenRecorder{}, Logger: logger.NewTestLogger(t)})

	out, err := s.Run(context.Background(), "conv-1", engine.Turn{Text: "find contacts named sarah"})

	require.NoError(t, err)
	assert.Equal(t, engine.StageDispatched, out.Stage)
}

func TestRun_AgentSwitchNotAudited(t *testing.T) {
	rec := &memoryRecorder{}
	s := NewService(Options{Engine: newEngine(t, &countingDispatcher{}), Audit: rec, Logger: logger.NewTestLogger(t)})

	out, err := s.Run(context.Background(), "conv-1", engine.Turn{Text: "switch to marketing"})

	require.NoError(t, err)
	assert.Equal(t, engine.StageAgentSwitched, out.Stage)
	assert.Empty(t, rec.entries)
}

func TestRun_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewTestLogger(t)
	s := NewService(Options{
		Engine:  newEngine(t, &countingDispatcher{}),
		Pending: store.NewRedisPendingStore(client, time.Hour, log),
		Locker:  store.NewTurnLock(client, 5*time.Second),
		Logger:  log,
	})
	ctx := context.Background()

	out, err := s.Run(ctx, "conv-1", engine.Turn{Text: "book a meeting"})
	require.NoError(t, err)
	assert.Equal(t, engine.StageAwaitingEntity, out.Stage)
	assert.True(t, mr.Exists("pending:conv-1"))
	assert.False(t, mr.Exists("turnlock:conv-1"), "lock released after the turn")

	require.NoError(t, s.Discard(ctx, "conv-1"))
	assert.False(t, mr.Exists("pending:conv-1"))
}

func TestHistory_EmptyIsNotNil(t *testing.T) {
	s := NewService(Options{Engine: newEngine(t, &countingDispatcher{}), Logger: logger.NewTestLogger(t)})

	entries, err := s.History(context.Background(), "conv-1", HistoryFilter{})

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
