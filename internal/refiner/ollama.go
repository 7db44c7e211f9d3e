package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaCompleter talks to a local Ollama server.
type OllamaCompleter struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func NewOllamaCompleter(model, baseURL string) *OllamaCompleter {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaCompleter{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (c *OllamaCompleter) Name() string {
	return "ollama:" + c.model
}

func (c *OllamaCompleter) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	reqBody := ollamaRequest{
		Model:   c.model,
		System:  system,
		Prompt:  user,
		Stream:  false,
		Options: ollamaOptions{Temperature: temperature},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	var ollamaResp ollamaResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&ollamaResp)
		if ollamaResp.Error != "" {
			return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, ollamaResp.Error)
		}
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return ollamaResp.Response, nil
}
