package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiCompleter calls the Gemini API. The client is created on first use and
// shared by all requests afterwards.
type GeminiCompleter struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiCompleter(apiKey, model string) *GeminiCompleter {
	return &GeminiCompleter{apiKey: apiKey, model: model}
}

func (g *GeminiCompleter) init(ctx context.Context) error {
	g.once.Do(func() {
		if g.apiKey == "" {
			g.initErr = fmt.Errorf("gemini: api key not configured")
			return
		}
		// the client must outlive the request that happened to create it
		g.client, g.initErr = genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := g.init(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
