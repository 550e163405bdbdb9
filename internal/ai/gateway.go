// Package ai provides the completion gateway: a provider-neutral contract for
// turning an ordered list of role-tagged messages into generated text plus a
// stop/continue signal, with Anthropic and OpenAI implementations.
package ai

import (
	"context"

	"github.com/cychuang/campusbot/internal/prompt"
)

// FinishReason normalizes the provider's continuation signal. Stop means the
// provider considers the turn complete; Length means the reply was truncated
// and a continuation should be offered; Other covers everything else a
// provider may report.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishOther  FinishReason = "other"
)

// Message is one role-tagged entry of a completion request. A non-empty
// ImageRef marks an image message; Content then holds the caption.
type Message struct {
	Role     prompt.Role
	Content  string
	ImageRef string
}

// Request is one completion call: an optional system instruction plus the
// ordered messages.
type Request struct {
	System   string
	Messages []Message
}

// Result is the provider's reply.
type Result struct {
	Text         string
	FinishReason FinishReason
}

// IsStop reports whether the provider considers the turn complete.
func (r Result) IsStop() bool { return r.FinishReason == FinishStop }

// Gateway sends completion requests to a remote provider.
type Gateway interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// FromBuffer converts a conversation buffer into request messages, skipping
// the trailing empty assistant placeholder, which exists only as the slot the
// reply will be patched into.
func FromBuffer(buf *prompt.Buffer) []Message {
	turns := buf.Turns()
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		if t.Role == prompt.RoleAssistant && t.Content == "" && !t.IsImage() {
			continue
		}
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content, ImageRef: t.ImageRef})
	}
	return msgs
}
