package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"

	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/llm")

// OpenAIProvider implements Provider for OpenAI and API-compatible servers.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates an OpenAI provider with the given API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

// NewOpenAIProviderWithBaseURL creates an OpenAI provider with a custom base
// URL (a self-hosted compatible server, or a mock in tests). baseURL is
// scheme+host without path; the client appends /v1 as needed.
func NewOpenAIProviderWithBaseURL(apiKey, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(config)}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Generate sends a chat completion request.
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "gen_ai.generate",
		trace.WithAttributes(
			anonotel.GenAISystem.String("openai"),
			anonotel.GenAIRequestModel.String(req.Model),
			anonotel.GenAIRequestTemperature.Float64(req.Temperature),
			anonotel.GenAIRequestMaxTokens.Int(req.MaxTokens),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: openai: %v", ErrProviderNotAvailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api call: no choices returned")
	}

	span.SetAttributes(
		anonotel.GenAIUsageInputTokens.Int(resp.Usage.PromptTokens),
		anonotel.GenAIUsageOutputTokens.Int(resp.Usage.CompletionTokens),
		anonotel.GenAIResponseFinish.String(string(resp.Choices[0].FinishReason)),
	)

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}
