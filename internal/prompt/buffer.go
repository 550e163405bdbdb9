// Package prompt provides the per-user conversation buffer and its keyed
// store.
package prompt

// Role tags a conversation turn. The values match the wire roles used by the
// completion providers.
type Role string

const (
	RoleHuman     Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation buffer. A turn with a non-empty
// ImageRef is an image turn; Content then holds the caption. An assistant
// turn with empty content is a placeholder awaiting Patch.
type Turn struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageRef string `json:"imageRef,omitempty"`
}

// IsImage reports whether the turn carries an image reference.
func (t Turn) IsImage() bool { return t.ImageRef != "" }

// State describes where a buffer is in the per-user turn cycle.
type State int

const (
	// StateIdle is the empty buffer; also the terminal state after a forget.
	StateIdle State = iota
	// StateAwaitingReply means a placeholder assistant turn is pending.
	StateAwaitingReply
	// StateActive means the last assistant turn has been filled in.
	StateActive
)

// Buffer is an ordered sequence of turns owned by exactly one user. Turns
// alternate human/assistant, but a trailing unanswered human turn is
// tolerated. Buffer is not safe for concurrent use; Store.Do serializes
// access per user.
type Buffer struct {
	maxTurns int
	turns    []Turn
}

// NewBuffer creates an empty buffer. maxTurns bounds the window: when the
// buffer would exceed it, the oldest turns are dropped in pairs so the
// human/assistant cadence is preserved. maxTurns <= 0 keeps every turn.
func NewBuffer(maxTurns int) *Buffer {
	return &Buffer{maxTurns: maxTurns}
}

// Reset clears the buffer to empty. Idempotent.
func (b *Buffer) Reset() {
	b.turns = b.turns[:0]
}

// Write appends a turn. An empty content with RoleAssistant reserves the
// placeholder slot filled by Patch. Returns the buffer for chaining.
func (b *Buffer) Write(role Role, content string) *Buffer {
	b.turns = append(b.turns, Turn{Role: role, Content: content})
	b.trim()
	return b
}

// WriteImage appends an image-tagged turn with an optional caption.
func (b *Buffer) WriteImage(role Role, ref, caption string) *Buffer {
	b.turns = append(b.turns, Turn{Role: role, Content: caption, ImageRef: ref})
	b.trim()
	return b
}

// Patch fills the most recent empty assistant slot with text. A buffer with
// no pending placeholder is left unchanged.
func (b *Buffer) Patch(text string) {
	for i := len(b.turns) - 1; i >= 0; i-- {
		if b.turns[i].Role == RoleAssistant && b.turns[i].Content == "" && !b.turns[i].IsImage() {
			b.turns[i].Content = text
			return
		}
	}
}

// Turns returns the buffer contents in order. The returned slice must not be
// mutated.
func (b *Buffer) Turns() []Turn { return b.turns }

// Len returns the number of turns.
func (b *Buffer) Len() int { return len(b.turns) }

// State derives the buffer's position in the turn cycle.
func (b *Buffer) State() State {
	if len(b.turns) == 0 {
		return StateIdle
	}
	last := b.turns[len(b.turns)-1]
	if last.Role == RoleAssistant && last.Content == "" && !last.IsImage() {
		return StateAwaitingReply
	}
	return StateActive
}

// Clone returns an independent copy of the buffer. Mutating the clone leaves
// the original untouched, which is how a failed turn is rolled back.
func (b *Buffer) Clone() *Buffer {
	turns := make([]Turn, len(b.turns))
	copy(turns, b.turns)
	return &Buffer{maxTurns: b.maxTurns, turns: turns}
}

func (b *Buffer) trim() {
	if b.maxTurns <= 0 || len(b.turns) <= b.maxTurns {
		return
	}
	drop := len(b.turns) - b.maxTurns
	if drop%2 != 0 {
		drop++ // Drop whole exchanges only
	}
	if drop >= len(b.turns) {
		// A window below one exchange must still keep the turns just written
		drop = len(b.turns) - 2
	}
	if drop <= 0 {
		return
	}
	b.turns = append(b.turns[:0], b.turns[drop:]...)
}
