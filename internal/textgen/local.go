package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultLocalTimeout   = 30 * time.Second
	defaultLocalMaxTokens = 800
)

// Local talks to the self-hosted model server's /generate endpoint
type Local struct {
	baseURL    string
	httpClient *http.Client
	opts       Options
}

type localRequest struct {
	Query       string  `json:"query"`
	Context     string  `json:"context,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

type localResponse struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
	Error  string `json:"error"`
}

// NewLocal creates a client for a local model server
func NewLocal(baseURL string, timeout time.Duration, opts Options) *Local {
	if timeout <= 0 {
		timeout = defaultLocalTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultLocalMaxTokens
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &Local{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		opts:       opts,
	}
}

func (l *Local) Name() string { return ProviderLocal }

// Generate posts the prompt as the query with the system prompt as context
func (l *Local) Generate(ctx context.Context, prompt string) Result {
	body, err := json.Marshal(localRequest{
		Query:       prompt,
		Context:     l.opts.SystemPrompt,
		MaxTokens:   l.opts.MaxTokens,
		Temperature: l.opts.Temperature,
	})
	if err != nil {
		return Failed(l.opts.Model, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return Failed(l.opts.Model, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Failed(l.opts.Model, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(l.opts.Model, fmt.Errorf("failed to read response: %w", err))
	}

	var out localResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Failed(l.opts.Model, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = string(raw)
		}
		return Failed(l.opts.Model, fmt.Errorf("model server error (status %d): %s", resp.StatusCode, msg))
	}
	if strings.TrimSpace(out.Answer) == "" {
		return Failed(l.opts.Model, fmt.Errorf("model server returned an empty answer"))
	}

	model := out.Model
	if model == "" {
		model = l.opts.Model
	}
	if model == "" {
		model = ProviderLocal
	}
	return Result{Success: true, Content: out.Answer, Model: model}
}
