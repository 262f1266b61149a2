package resolveoperatorcommand

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"action-engine/internal/actions/engine"
	"action-engine/internal/actions/intent"
	"action-engine/internal/common/errors"
	"action-engine/internal/common/logger"
	"action-engine/internal/common/validation"
)

const (
	TaskType = "resolve-operator-command"
)

var inputContract = validation.MustContract("resolve-operator-command input", `{
	"type": "object",
	"required": ["conversationId", "text"],
	"properties": {
		"conversationId": {"type": "string", "minLength": 1},
		"text": {"type": "string", "maxLength": 4000},
		"platform": {"type": "string"},
		"tenantId": {"type": "string"},
		"brandContext": {"type": ["object", "null"]},
		"persona": {"type": "string"}
	}
}`)

// Sessions runs a turn against persisted conversation state.
type Sessions interface {
	Run(ctx context.Context, conversationID string, turn engine.Turn) (engine.TurnOutcome, error)
}

type Handler struct {
	config     *Config
	sessions   Sessions
	errHandler *errors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, sessions Sessions, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:     config,
		sessions:   sessions,
		errHandler: errors.NewJobErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := decodeInput(job.Variables)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func decodeInput(variables string) (*Input, error) {
	if err := inputContract.ValidateBytes([]byte(variables)); err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidRequestError("parse input: " + err.Error())
	}
	return &input, nil
}

// Execute runs one turn for the conversation named in input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	pc := intent.PlatformContext{
		Platform:     input.Platform,
		TenantID:     input.TenantID,
		BrandContext: input.BrandContext,
		Persona:      input.Persona,
	}
	if pc.Platform == "" {
		pc.Platform = h.config.DefaultPlatform
	}

	out, err := h.sessions.Run(ctx, input.ConversationID, engine.Turn{
		Text:     input.Text,
		Platform: pc,
		Persona:  input.Persona,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		Reply:         out.Reply,
		Stage:         string(out.Stage),
		Succeeded:     succeeded(out),
		AwaitingInput: out.Pending != nil,
	}
	if out.Intent != nil && out.Intent.Kind != intent.Unresolved {
		output.Action = string(out.Intent.Kind)
	}

	h.logger.Info("operator command resolved", map[string]interface{}{
		"conversationId": input.ConversationID,
		"stage":          output.Stage,
		"action":         output.Action,
		"succeeded":      output.Succeeded,
	})
	return output, nil
}

func succeeded(out engine.TurnOutcome) bool {
	switch out.Stage {
	case engine.StageDispatched, engine.StageAgentSwitched:
		return out.Result != nil && out.Result.Succeeded
	default:
		return false
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(ctx)
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
