package producer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/praxislabs/vetta/internal/config"
)

const defaultGeminiKeyEnv = "GEMINI_API_KEY"

// geminiRunner produces the recording stream with the Gemini API. A new
// client is created per Produce call so the caller's context governs the
// connection.
type geminiRunner struct {
	model   string
	apiKey  string
	timeout time.Duration
}

func newGeminiRunner(cfg config.ProducerConfig) (*geminiRunner, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("gemini producer requires model")
	}
	apiKey, err := resolveAPIKey(cfg, defaultGeminiKeyEnv)
	if err != nil {
		return nil, fmt.Errorf("gemini producer: %w", err)
	}
	return &geminiRunner{
		model:   model,
		apiKey:  apiKey,
		timeout: timeoutOf(cfg),
	}, nil
}

func (r *geminiRunner) Produce(ctx context.Context, req Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, r.model,
		genai.Text("Idea under assessment: "+req.Idea),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instructions(req), genai.RoleUser),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini response contained no text")
	}
	return []byte(text), nil
}

func (r *geminiRunner) Describe() string {
	return "gemini/" + r.model
}
