package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TGIConfig configures the primary TGI client.
type TGIConfig struct {
	BaseURL string
	Params  Params
}

// TGIClient talks to a text-generation-inference server. It is the primary
// generation collaborator.
type TGIClient struct {
	baseURL    string
	params     Params
	httpClient *http.Client
}

// NewTGIClient constructs a TGI client. A nil httpClient falls back to a
// pooled client with the default timeout.
func NewTGIClient(cfg TGIConfig, httpClient *http.Client) (*TGIClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("tgi base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &TGIClient{
		baseURL:    baseURL,
		params:     cfg.Params,
		httpClient: httpClient,
	}, nil
}

type tgiGenerateRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters tgiParameters `json:"parameters"`
}

type tgiParameters struct {
	MaxNewTokens int      `json:"max_new_tokens"`
	Temperature  float32  `json:"temperature"`
	TopP         float32  `json:"top_p"`
	Stop         []string `json:"stop,omitempty"`
}

type tgiGenerateResponse struct {
	// Pointer so an empty generated_text is distinguishable from a response
	// shape that lacks the field.
	GeneratedText *string `json:"generated_text"`
}

// Health reports whether GET /health answers 200.
func (c *TGIClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Generate posts the prompt to /generate and returns the generated text.
// Both the single-object and one-element-array response shapes are accepted.
func (c *TGIClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := tgiGenerateRequest{
		Inputs: prompt,
		Parameters: tgiParameters{
			MaxNewTokens: c.params.MaxNewTokens,
			Temperature:  c.params.Temperature,
			TopP:         c.params.TopP,
			Stop:         c.params.Stop,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal tgi request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build tgi request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tgi generate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read tgi response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tgi generate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var single tgiGenerateResponse
	if err := json.Unmarshal(respBody, &single); err == nil && single.GeneratedText != nil {
		return *single.GeneratedText, nil
	}
	var many []tgiGenerateResponse
	if err := json.Unmarshal(respBody, &many); err == nil && len(many) > 0 && many[0].GeneratedText != nil {
		return *many[0].GeneratedText, nil
	}
	// Unrecognized 200 shape: hand the raw body downstream. The parser
	// rejects it as malformed, which keeps the failure inside the retry
	// budget instead of surfacing as a transport error.
	return string(respBody), nil
}
