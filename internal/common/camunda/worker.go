// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"action-engine/internal/common/config"
	"action-engine/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Connect creates a plaintext Zeebe client, retrying with exponential backoff.
func Connect(ctx context.Context, cfg config.CamundaConfig, log logger.Logger) (zbc.Client, error) {
	var client zbc.Client
	delay := 2 * time.Second
	const attempts = 10

	var err error
	for i := 0; i < attempts; i++ {
		client, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.BrokerAddress,
			UsePlaintextConnection: true,
		})
		if err == nil {
			return client, nil
		}

		if i < attempts-1 {
			log.Warn("zeebe client initialization failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("zeebe client initialization failed after %d attempts: %w", attempts, err)
}

// StartWorker opens a job worker for taskType unless it is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler func(worker.JobClient, entities.Job), log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}
