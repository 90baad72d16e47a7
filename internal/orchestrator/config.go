package orchestrator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/curricula-backend/internal/platform/envutil"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

// Config bounds one generation cycle. Loaded from an optional YAML file with
// env overrides on top.
type Config struct {
	AgentTimeout    time.Duration `yaml:"agent_timeout"`
	AuditTimeout    time.Duration `yaml:"audit_timeout"`
	CycleTimeout    time.Duration `yaml:"cycle_timeout"`
	MaxAgentRetries int           `yaml:"max_agent_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	LTMLimit        int           `yaml:"ltm_limit"`
}

func DefaultConfig() Config {
	return Config{
		AgentTimeout:    60 * time.Second,
		AuditTimeout:    60 * time.Second,
		CycleTimeout:    5 * time.Minute,
		MaxAgentRetries: 2,
		RetryBackoff:    2 * time.Second,
		LTMLimit:        10,
	}
}

// LoadConfig starts from defaults, merges ORCHESTRATOR_CONFIG (YAML path) if
// set, then applies env overrides.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()

	if path := strings.TrimSpace(os.Getenv("ORCHESTRATOR_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read orchestrator config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse orchestrator config: %w", err)
		}
		log.Info("loaded orchestrator config file", "path", path)
	}

	cfg.AgentTimeout = envutil.Duration("CYCLE_AGENT_TIMEOUT", cfg.AgentTimeout)
	cfg.AuditTimeout = envutil.Duration("CYCLE_AUDIT_TIMEOUT", cfg.AuditTimeout)
	cfg.CycleTimeout = envutil.Duration("CYCLE_TIMEOUT", cfg.CycleTimeout)
	cfg.MaxAgentRetries = envutil.Int("CYCLE_MAX_AGENT_RETRIES", cfg.MaxAgentRetries)
	cfg.RetryBackoff = envutil.Duration("CYCLE_RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.LTMLimit = envutil.Int("CYCLE_LTM_LIMIT", cfg.LTMLimit)

	if cfg.MaxAgentRetries < 0 {
		cfg.MaxAgentRetries = 0
	}
	if cfg.LTMLimit <= 0 {
		cfg.LTMLimit = 10
	}
	return cfg, nil
}
