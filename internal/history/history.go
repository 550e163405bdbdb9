// Package history provides the append-only conversation transcript log. The
// dialogue core only ever writes to it; reading is for operators and offline
// tooling.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one logged line of a conversation transcript.
type Entry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Speaker        string    `json:"speaker"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Log records transcript entries.
type Log interface {
	Append(ctx context.Context, conversationID, speaker, text string) error
}

// MemoryLog is an in-process Log, used in tests and when no durable store is
// configured.
type MemoryLog struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: map[string][]Entry{}}
}

func (l *MemoryLog) Append(_ context.Context, conversationID, speaker, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[conversationID] = append(l.entries[conversationID], Entry{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Speaker:        speaker,
		Text:           text,
		CreatedAt:      time.Now(),
	})
	return nil
}

// Entries returns the transcript of one conversation in append order.
func (l *MemoryLog) Entries(conversationID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries[conversationID]))
	copy(out, l.entries[conversationID])
	return out
}
