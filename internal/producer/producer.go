// Package producer drives the external collaborator that performs the
// research and emits the recording stream consumed by the accumulator. All
// backends return the same thing: raw JSON Lines, one recording call per
// line, ready for stream.Replay.
package producer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/praxislabs/vetta/internal/config"
)

const defaultTimeout = 300 * time.Second

// Request carries the assessment inputs handed to the collaborator.
type Request struct {
	Idea        string   `json:"idea"`
	CustomerJob string   `json:"customer_job,omitempty"`
	StageTags   []string `json:"allowed_stage_tags"`
	RunDir      string   `json:"-"`
}

// Runner produces a recording stream for one assessment request.
type Runner interface {
	Produce(ctx context.Context, req Request) ([]byte, error)
	Describe() string
}

// New constructs a runner for the configured backend.
func New(cfg config.ProducerConfig) (Runner, error) {
	switch cfg.Type {
	case "gemini":
		return newGeminiRunner(cfg)
	case "openai":
		return newOpenAIRunner(cfg)
	case "exec":
		return newExecRunner(cfg)
	default:
		return nil, fmt.Errorf("unknown producer type %q", cfg.Type)
	}
}

// resolveAPIKey returns the explicit key, or reads it from the configured
// environment variable, falling back to defaultEnv.
func resolveAPIKey(cfg config.ProducerConfig, defaultEnv string) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}
	envKey := strings.TrimSpace(cfg.APIKeyEnv)
	if envKey == "" {
		envKey = defaultEnv
	}
	if key := strings.TrimSpace(os.Getenv(envKey)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("api key is required (set api_key or %s)", envKey)
}

func timeoutOf(cfg config.ProducerConfig) time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	return defaultTimeout
}
