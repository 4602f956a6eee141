package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the hosted reasoning model used when the profile
// does not name one.
const DefaultGeminiModel = "gemini-2.5-pro"

// GeminiClient is the hosted reasoning backend. It rotates through its API
// keys when a key hits a rate limit or quota error.
type GeminiClient struct {
	apiKeys []string
	model   string

	mu         sync.Mutex
	currentKey int
}

// NewGeminiClient creates a Gemini-backed collaborator.
func NewGeminiClient(apiKeys []string, model string) (*GeminiClient, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{apiKeys: apiKeys, model: model}, nil
}

func (c *GeminiClient) Name() string {
	return "gemini/" + c.model
}

// Complete sends the prompt to Gemini and returns the response text.
// Rotates API keys on 429 / quota errors.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	prompt := req.System + "\n\n" + req.User

	var cfg *genai.GenerateContentConfig
	if req.JSONMode {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	attempts := len(c.apiKeys)
	var lastErr error

	for range attempts {
		key := c.nextKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			c.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				c.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("%w: gemini generate: %v", ErrUnavailable, err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
				}
			}
			return text, nil
		}

		return "", fmt.Errorf("%w: empty response from gemini", ErrSchemaViolation)
	}

	return "", fmt.Errorf("%w: all API keys exhausted: %v", ErrUnavailable, lastErr)
}

func (c *GeminiClient) nextKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKeys[c.currentKey]
}

func (c *GeminiClient) rotateKey() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentKey = (c.currentKey + 1) % len(c.apiKeys)
}
