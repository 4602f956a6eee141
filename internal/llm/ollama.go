package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaModel is the local reasoning model used when the profile
	// does not name one.
	DefaultOllamaModel = "gemma3:4b"
	// DefaultEmbedModel is the recommended embedding model.
	DefaultEmbedModel = "nomic-embed-text"
)

// OllamaClient is the local reasoning and embedding backend. The endpoint is
// taken from the OLLAMA_HOST environment, matching the ollama CLI.
type OllamaClient struct {
	client     *api.Client
	model      string
	embedModel string
}

// NewOllamaClient creates an Ollama-backed collaborator.
func NewOllamaClient(model, embedModel string) (*OllamaClient, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	if embedModel == "" {
		embedModel = DefaultEmbedModel
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &OllamaClient{
		client:     client,
		model:      model,
		embedModel: embedModel,
	}, nil
}

func (c *OllamaClient) Name() string {
	return "ollama/" + c.model
}

// Complete sends a chat request and collects the streamed response.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream: &stream,
	}
	if req.JSONMode {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var sb strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama chat: %v", ErrUnavailable, err)
	}

	return sb.String(), nil
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.embedModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", ErrUnavailable, err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	// Convert from []float32 to []float64
	embedding32 := resp.Embeddings[0]
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}

	return embedding64, nil
}
