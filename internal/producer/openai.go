package producer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/praxislabs/vetta/internal/config"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIKeyEnv  = "OPENAI_API_KEY"
)

// openaiRunner produces the recording stream through the Responses API.
type openaiRunner struct {
	model  string
	client openai.Client
}

func newOpenAIRunner(cfg config.ProducerConfig) (*openaiRunner, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openai producer requires model")
	}
	apiKey, err := resolveAPIKey(cfg, defaultOpenAIKeyEnv)
	if err != nil {
		return nil, fmt.Errorf("openai producer: %w", err)
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &openaiRunner{
		model: model,
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithRequestTimeout(timeoutOf(cfg)),
		),
	}, nil
}

func (r *openaiRunner) Produce(ctx context.Context, req Request) ([]byte, error) {
	resp, err := r.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        r.model,
		Instructions: openai.String(instructions(req)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String("Idea under assessment: " + req.Idea),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai responses.create: %w", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return nil, fmt.Errorf("openai response failed: %s", msg)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return nil, fmt.Errorf("openai response did not contain output text")
	}
	return []byte(output), nil
}

func (r *openaiRunner) Describe() string {
	return "openai/" + r.model
}
