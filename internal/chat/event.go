// Package chat defines the narrow contract between the dialogue core and the
// chat transport: inbound events, the per-message context, command tokens and
// reply actions. The transport itself (LINE, console, tests) lives elsewhere.
package chat

// Event is an inbound message payload. Exactly one of the concrete types
// below is carried per message.
type Event interface {
	isEvent()
}

// TextEvent is a plain text message.
type TextEvent struct {
	Text string
}

// ImageEvent is an image message, referenced by URL or provider handle, with
// an optional caption.
type ImageEvent struct {
	Ref     string
	Caption string
}

func (TextEvent) isEvent()  {}
func (ImageEvent) isEvent() {}
