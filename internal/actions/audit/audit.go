// Package audit records dispatch outcomes in Postgres.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/intent"
	"action-engine/internal/common/logger"
)

const Schema = `
CREATE TABLE IF NOT EXISTS action_audit (
	id              UUID PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	tenant_id       TEXT NOT NULL DEFAULT '',
	platform        TEXT NOT NULL DEFAULT '',
	action          TEXT NOT NULL,
	succeeded       BOOLEAN NOT NULL,
	needs_more_info BOOLEAN NOT NULL DEFAULT FALSE,
	message         TEXT NOT NULL DEFAULT '',
	entities        JSONB NOT NULL DEFAULT '{}',
	raw_text        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS action_audit_conversation_idx ON action_audit (conversation_id, created_at DESC);
`

// Entry is one dispatch attempt.
type Entry struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversationId"`
	TenantID       string            `json:"tenantId,omitempty"`
	Platform       string            `json:"platform"`
	Action         intent.Kind       `json:"action"`
	Succeeded      bool              `json:"succeeded"`
	NeedsMoreInfo  bool              `json:"needsMoreInfo"`
	Message        string            `json:"message"`
	Entities       map[string]string `json:"entities"`
	RawText        string            `json:"rawText"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Recorder persists entries. Recording failures never affect the turn.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	ListByConversation(ctx context.Context, conversationID string, actions []intent.Kind, limit int) ([]Entry, error)
}

// NewEntry builds an entry from a dispatch result.
func NewEntry(conversationID string, pc intent.PlatformContext, rawText string, r dispatch.ActionResult) Entry {
	return Entry{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		TenantID:       pc.TenantID,
		Platform:       pc.Platform,
		Action:         r.Kind,
		Succeeded:      r.Succeeded,
		NeedsMoreInfo:  r.NeedsMoreInfo,
		Message:        r.Message,
		Entities:       intent.CopyEntities(r.Entities),
		RawText:        rawText,
		CreatedAt:      time.Now().UTC(),
	}
}

type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{db: db, logger: log.With(map[string]interface{}{"component": "audit"})}
}

// EnsureSchema creates the audit table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	entities, err := json.Marshal(e.Entities)
	if err != nil {
		return fmt.Errorf("marshal audit entities: %w", err)
	}
	if e.Entities == nil {
		entities = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO action_audit (
			id, conversation_id, tenant_id, platform, action,
			succeeded, needs_more_info, message, entities, raw_text, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID,
		e.ConversationID,
		e.TenantID,
		e.Platform,
		string(e.Action),
		e.Succeeded,
		e.NeedsMoreInfo,
		e.Message,
		entities,
		e.RawText,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByConversation returns the newest entries first. An empty actions
// filter matches every kind.
func (r *Repository) ListByConversation(ctx context.Context, conversationID string, actions []intent.Kind, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var filter interface{}
	if len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		filter = pq.Array(names)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, tenant_id, platform, action,
		       succeeded, needs_more_info, message, entities, raw_text, created_at
		FROM action_audit
		WHERE conversation_id = $1 AND ($2::text[] IS NULL OR action = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3`,
		conversationID, filter, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			action   string
			entities []byte
		)
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.TenantID, &e.Platform, &action,
			&e.Succeeded, &e.NeedsMoreInfo, &e.Message, &entities, &e.RawText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = intent.ParseKind(action)
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &e.Entities); err != nil {
				r.logger.WithContext(ctx).Warn("unreadable audit entities", map[string]interface{}{
					"auditId": e.ID,
					"error":   err.Error(),
				})
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

// Nop discards entries. Used when auditing is disabled.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) ListByConversation(context.Context, string, []intent.Kind, int) ([]Entry, error) {
	return nil, nil
}
