package textgen

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI generates text with the chat completions API
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI creates an OpenAI generator. baseURL may be empty to use the
// public endpoint.
func NewOpenAI(apiKey, baseURL string, opts Options) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

// Generate sends a single chat completion request
func (o *OpenAI) Generate(ctx context.Context, prompt string) Result {
	req := openai.ChatCompletionRequest{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.opts.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.opts.Temperature,
	}
	if o.opts.MaxTokens > 0 {
		req.MaxCompletionTokens = o.opts.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Failed(o.opts.Model, fmt.Errorf("openai chat completion failed: %w", err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Failed(o.opts.Model, fmt.Errorf("openai returned no content"))
	}

	model := resp.Model
	if model == "" {
		model = o.opts.Model
	}
	return Result{Success: true, Content: resp.Choices[0].Message.Content, Model: model}
}
