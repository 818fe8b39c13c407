package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaProvider calls a locally hosted Ollama instance. It is the fallback
// backend tried when the primary call errors, times out, or returns nothing
// usable. The same prompt contract applies, but the output is plain text the
// chain parses leniently.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider creates a provider targeting an Ollama server.
func NewOllamaProvider(baseURL, modelName string, httpClient *http.Client) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      modelName,
		httpClient: httpClient,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// generateRequest mirrors the Ollama /api/generate request body.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends the prompt to /api/generate and returns the raw response
// text. Small local models do not reliably emit strict JSON, so no schema is
// enforced here; the chain extracts labels from whatever comes back.
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.1,
			"top_p":       0.1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	url := p.baseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}
	return genResp.Response, nil
}
