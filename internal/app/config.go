package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds everything an App needs to run one workflow.
type Config struct {
	WorkflowPath string // .hcl/.yaml file or a directory of them
	Workflow     string // empty selects the only workflow, or "main"
	Inputs       map[string]string

	Interactive  bool
	MaxRetry     int
	PollInterval time.Duration

	LogFormat string
	LogLevel  string

	// ControlAddr enables the HTTP control surface, e.g. ":8080".
	ControlAddr string
	Metrics     bool

	NATSURL      string
	NATSSubject  string
	RedisAddr    string
	RedisChannel string
	SocketIOURL  string

	AWSRegion   string
	AWSEndpoint string
	S3Endpoint  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.Metrics && cfg.ControlAddr == "" {
		return nil, errors.New("metrics are served on the control address, which is not set")
	}
	if cfg.Interactive && cfg.ControlAddr == "" {
		return nil, errors.New("interactive runs are controlled through the control address, which is not set")
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("poll interval must not be negative, got %s", cfg.PollInterval)
	}
	return &cfg, nil
}
