package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TobiSchelling/ChannelReports/internal/config"
)

// ErrNoResponse is returned when the endpoint answers without a response field.
var ErrNoResponse = errors.New("no response field in generation result")

// Provider is the interface for text-generation backends.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
}

// OllamaProvider talks to an Ollama-compatible /api/generate endpoint.
type OllamaProvider struct {
	URL          string
	Model        string
	Temperature  float64
	TopP         float64
	ProbeTimeout time.Duration
	client       *http.Client
}

// NewOllamaProvider creates a provider from the narrative config section.
func NewOllamaProvider(cfg config.Narrative) *OllamaProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = 5 * time.Second
	}
	return &OllamaProvider{
		URL:          cfg.URL,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		ProbeTimeout: probe,
		client:       &http.Client{Timeout: timeout},
	}
}

// Ping checks that the endpoint accepts connections. Any HTTP answer counts,
// whatever its status.
func (o *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.URL, nil)
	if err != nil {
		return fmt.Errorf("creating probe request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", o.URL, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Generate sends a non-streaming prompt and returns the generated text.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: o.Temperature,
			TopP:        o.TopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response *string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Response == nil {
		return "", ErrNoResponse
	}
	return *result.Response, nil
}
