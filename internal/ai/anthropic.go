package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cychuang/campusbot/internal/prompt"
	"github.com/cychuang/campusbot/internal/transport"
)

// AnthropicGateway is the Anthropic-backed completion gateway.
type AnthropicGateway struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicGateway creates a gateway using the given API key and model.
// An empty model falls back to a current default.
func NewAnthropicGateway(apiKey, model string, maxTokens int64) *AnthropicGateway {
	if model == "" {
		model = string(anthropic.ModelClaude3_5SonnetLatest)
	}
	httpClient := &http.Client{Transport: transport.WithRateLimiting(nil)}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)
	return &AnthropicGateway{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

func (g *AnthropicGateway) Complete(ctx context.Context, req Request) (Result, error) {
	params := anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	// Stream and accumulate rather than waiting on the blocking endpoint;
	// long completions would otherwise trip intermediary timeouts
	stream := g.client.Messages.NewStreaming(ctx, params)
	response := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := response.Accumulate(event); err != nil {
			return Result{}, fmt.Errorf("failed to accumulate response content stream: %w", err)
		}
	}
	if stream.Err() != nil {
		return Result{}, fmt.Errorf("failed to stream response: %w", stream.Err())
	}
	if response.StopReason == "" {
		return Result{}, fmt.Errorf("malformed message: empty stop reason")
	}

	var text strings.Builder
	for _, contentBlock := range response.Content {
		if block, ok := contentBlock.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	return Result{
		Text:         text.String(),
		FinishReason: finishReasonFromAnthropic(response.StopReason),
	}, nil
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := []anthropic.ContentBlockParamUnion{}
		if m.ImageRef != "" {
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: m.ImageRef}))
		}
		if m.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == prompt.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		} else {
			params = append(params, anthropic.NewUserMessage(blocks...))
		}
	}
	return params
}

func finishReasonFromAnthropic(reason anthropic.StopReason) FinishReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return FinishStop
	case anthropic.StopReasonMaxTokens:
		return FinishLength
	default:
		return FinishOther
	}
}
