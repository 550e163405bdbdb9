package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/cychuang/campusbot/internal/prompt"
	"github.com/cychuang/campusbot/internal/transport"
)

// OpenAIGateway is the OpenAI-backed completion gateway.
type OpenAIGateway struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIGateway creates a gateway using the given API key and model. An
// empty model falls back to gpt-4o.
func NewOpenAIGateway(apiKey, model string) *OpenAIGateway {
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	httpClient := &http.Client{Transport: transport.WithRateLimiting(nil)}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)
	return &OpenAIGateway{
		client: &client,
		model:  openai.ChatModel(model),
	}
}

func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (Result, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Result{}, fmt.Errorf("no response choices returned")
	}

	choice := completion.Choices[0]
	return Result{
		Text:         choice.Message.Content,
		FinishReason: finishReasonFromOpenAI(choice.FinishReason),
	}, nil
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessageParamUnion {
	if m.Role == prompt.RoleAssistant {
		return openai.AssistantMessage(m.Content)
	}
	if m.ImageRef != "" {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: m.ImageRef}),
		}
		if m.Content != "" {
			parts = append(parts, openai.TextContentPart(m.Content))
		}
		return openai.UserMessage(parts)
	}
	return openai.UserMessage(m.Content)
}

func finishReasonFromOpenAI(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishStop
	case "length":
		return FinishLength
	default:
		return FinishOther
	}
}
