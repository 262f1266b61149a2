// internal/workers/ai-conversation/resolve-operator-command/config.go
package resolveoperatorcommand

import (
	"time"

	"action-engine/internal/common/config"
)

type Config struct {
	Timeout         time.Duration
	DefaultPlatform string
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:         30 * time.Second,
		DefaultPlatform: cfg.Engine.DefaultPlatform,
	}
	if wcfg := config.GetWorkerConfig(cfg, TaskType); wcfg.Timeout > 0 {
		c.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return c
}
