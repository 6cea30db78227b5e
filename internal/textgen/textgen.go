// Package textgen wraps the external text-generation services used for
// natural-language insights. Every provider makes a single attempt; callers
// bound the call with a context deadline and fall back on failure.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wellnessgrid/backend/internal/metrics"
)

// Result is the outcome of one generation call
type Result struct {
	Success bool
	Content string
	Error   string
	Model   string
}

// Failed builds an unsuccessful Result from an error
func Failed(model string, err error) Result {
	return Result{Success: false, Error: err.Error(), Model: model}
}

// Generator turns a prompt into raw text
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
	Name() string
}

// Options tune a generation request
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// DefaultSystemPrompt frames the model as a health data analyst
const DefaultSystemPrompt = "You are a careful health data analyst. You summarize tracked health data and never diagnose. Respond only with JSON."

// Provider names accepted by New
const (
	ProviderOpenAI   = "openai"
	ProviderLocal    = "local"
	ProviderDisabled = "disabled"
)

// Config selects and configures a provider
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Options  Options
}

// New builds the configured Generator wrapped with metrics
func New(cfg Config) (Generator, error) {
	var gen Generator
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		gen = NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Options)
	case ProviderLocal:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("local provider requires a base URL")
		}
		gen = NewLocal(cfg.BaseURL, cfg.Timeout, cfg.Options)
	case ProviderDisabled, "":
		gen = Disabled{}
	default:
		return nil, fmt.Errorf("unknown text generation provider %q", cfg.Provider)
	}
	return Instrument(gen), nil
}

type instrumented struct {
	next Generator
}

// Instrument records call counts and latency for a Generator
func Instrument(g Generator) Generator {
	return &instrumented{next: g}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Generate(ctx context.Context, prompt string) Result {
	start := time.Now()
	res := i.next.Generate(ctx, prompt)

	status := "success"
	if !res.Success {
		status = "failure"
	}
	metrics.TextGenRequests.WithLabelValues(i.next.Name(), status).Inc()
	metrics.TextGenDuration.WithLabelValues(i.next.Name()).Observe(time.Since(start).Seconds())
	return res
}

// Disabled always fails so callers take their fallback path
type Disabled struct{}

func (Disabled) Name() string { return ProviderDisabled }

func (Disabled) Generate(_ context.Context, _ string) Result {
	return Result{Success: false, Error: "text generation is disabled", Model: ProviderDisabled}
}
