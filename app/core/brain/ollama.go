package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	inner *api.Client
	model string
}

// NewOllamaProvider builds a local-model provider against the Ollama host
// from OLLAMA_HOST (default http://127.0.0.1:11434).
func NewOllamaProvider(model string) (*OllamaProvider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaProvider{inner: client, model: model}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	stream := false
	var sb strings.Builder
	err := p.inner.Generate(ctx, &api.GenerateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("ollama generate: empty response")
	}
	return sb.String(), nil
}
