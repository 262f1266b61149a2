package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"action-engine/internal/actions/dispatch"
	"action-engine/internal/actions/engine"
	"action-engine/internal/actions/format"
	"action-engine/internal/actions/intent"
	"action-engine/internal/actions/session"
	"action-engine/internal/actions/slots"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/validation"
)

const maxBodyBytes = 64 << 10

var turnContract = validation.MustContract("turn request", `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string", "maxLength": 4000},
		"platform": {"type": "string"},
		"tenantId": {"type": "string"},
		"brandContext": {"type": ["object", "null"]},
		"persona": {"type": "string"}
	}
}`)

var platformContract = validation.MustContract("platform context", `{
	"type": "object",
	"properties": {
		"platform": {"type": "string"},
		"tenantId": {"type": "string"},
		"brandContext": {"type": ["object", "null"]},
		"persona": {"type": "string"}
	}
}`)

type platformFields struct {
	Platform     string                 `json:"platform"`
	TenantID     string                 `json:"tenantId"`
	BrandContext map[string]interface{} `json:"brandContext"`
	Persona      string                 `json:"persona"`
}

func (p platformFields) platformContext(defaultPlatform string) intent.PlatformContext {
	pc := intent.PlatformContext{
		Platform:     p.Platform,
		TenantID:     p.TenantID,
		BrandContext: p.BrandContext,
		Persona:      p.Persona,
	}
	if pc.Platform == "" {
		pc.Platform = defaultPlatform
	}
	return pc
}

type turnRequest struct {
	Text string `json:"text"`
	platformFields
}

type turnResponse struct {
	ConversationID string                 `json:"conversationId"`
	Reply          string                 `json:"reply"`
	Stage          engine.Stage           `json:"stage"`
	Intent         *intent.ActionIntent   `json:"intent,omitempty"`
	Result         *dispatch.ActionResult `json:"result,omitempty"`
	Pending        *slots.PendingAction   `json:"pending,omitempty"`
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"conversationId": uuid.NewString()})
}

func (s *Server) handleTurn(c *gin.Context) {
	conversationID := c.Param("id")

	var req turnRequest
	if err := decode(c.Request, turnContract, false, &req); err != nil {
		s.writeError(c, err)
		return
	}

	out, err := s.sessions.Run(c.Request.Context(), conversationID, engine.Turn{
		Text:     req.Text,
		Platform: req.platformContext(s.defaultPlatform),
		Persona:  req.Persona,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, turnResponse{
		ConversationID: conversationID,
		Reply:          out.Reply,
		Stage:          out.Stage,
		Intent:         out.Intent,
		Result:         out.Result,
		Pending:        out.Pending,
	})
}

func (s *Server) handlePreview(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	var req platformFields
	if err := decode(c.Request, platformContract, true, &req); err != nil {
		s.writeError(c, err)
		return
	}

	pending, err := s.sessions.Pending(ctx, conversationID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if pending == nil {
		s.writeError(c, errors.NewNoPendingActionError(conversationID))
		return
	}

	preview, err := s.dispatcher.Preview(ctx, pending.Intent, req.platformContext(s.defaultPlatform), pending.Collected)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleDeletePending(c *gin.Context) {
	if err := s.sessions.Discard(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(c, errors.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	var kinds []intent.Kind
	for _, raw := range c.QueryArray("action") {
		k := intent.ParseKind(raw)
		if k == intent.Unresolved {
			s.writeError(c, errors.NewInvalidRequestError("unknown action: "+raw))
			return
		}
		kinds = append(kinds, k)
	}

	entries, err := s.sessions.History(c.Request.Context(), c.Param("id"), session.HistoryFilter{Actions: kinds, Limit: limit})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleSuggestions(c *gin.Context) {
	role := strings.ToLower(strings.TrimSpace(c.Query("role")))
	c.JSON(http.StatusOK, gin.H{
		"role":        role,
		"suggestions": format.SuggestionsFor(role),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for _, check := range s.checks {
		if err := check.Probe(ctx); err != nil {
			failures[check.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"failures": failures,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decode validates the body against contract before unmarshalling it.
// An empty body is accepted when optional is set.
func decode(r *http.Request, contract *validation.Contract, optional bool, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewInvalidRequestError("unreadable body: " + err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if optional {
			return nil
		}
		return errors.NewInvalidRequestError("request body is required")
	}
	if err := contract.ValidateBytes(body); err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewInvalidRequestError("malformed JSON: " + err.Error())
	}
	return nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)
	status := errors.HTTPStatus(stdErr.Code)
	fields := map[string]interface{}{
		"requestId": c.GetString(requestIDKey),
		"route":     c.FullPath(),
		"status":    status,
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
	}
	log := s.logger.WithContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields)
	} else {
		log.Warn("request rejected", fields)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": stdErr})
}
