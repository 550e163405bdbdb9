package chat

import "strings"

// Source identifies where a message came from. Activated is the externally
// owned activation flag: true when the bot is already engaged for this
// conversation.
type Source struct {
	UserID         string
	ConversationID string
	Activated      bool
}

// Replier is the outbound half of the transport. PushText attaches
// quick-reply actions to the message; PushError reports a failure to the user
// in whatever form the transport supports.
type Replier interface {
	SendText(text string) error
	PushText(text string, actions []Command) error
	PushError(err error) error
}

// Context carries one inbound message through the dialogue core.
type Context struct {
	Event   Event
	Source  Source
	botName string
	replier Replier
}

// NewContext builds a Context for one inbound event. botName is the
// assistant's configured display name, used for mention detection.
func NewContext(event Event, source Source, botName string, replier Replier) *Context {
	return &Context{
		Event:   event,
		Source:  source,
		botName: botName,
		replier: replier,
	}
}

// Text returns the raw text of the event: the message text for text events,
// the caption for image events.
func (c *Context) Text() string {
	switch e := c.Event.(type) {
	case TextEvent:
		return e.Text
	case ImageEvent:
		return e.Caption
	default:
		return ""
	}
}

// TrimmedText returns the event text with any leading command token and any
// bot name mention removed, whitespace-trimmed.
func (c *Context) TrimmedText() string {
	text := c.Text()
	for _, cmd := range []Command{CommandTalk, CommandForget, CommandContinue} {
		if cmd.Match(text) {
			text = cmd.Strip(text)
			break
		}
	}
	if c.botName != "" {
		text = strings.ReplaceAll(text, "@"+c.botName, "")
		text = strings.ReplaceAll(text, c.botName, "")
	}
	return strings.TrimSpace(text)
}

// HasCommand reports whether the message invokes the given command.
func (c *Context) HasCommand(cmd Command) bool {
	return cmd.Match(c.Text())
}

// MentionsBotName reports whether the message text mentions the assistant's
// configured name.
func (c *Context) MentionsBotName() bool {
	return c.botName != "" && strings.Contains(c.Text(), c.botName)
}

// IsText reports whether the event is a plain text message.
func (c *Context) IsText() bool {
	_, ok := c.Event.(TextEvent)
	return ok
}

// IsImage reports whether the event is an image message.
func (c *Context) IsImage() bool {
	_, ok := c.Event.(ImageEvent)
	return ok
}

func (c *Context) SendText(text string) error {
	return c.replier.SendText(text)
}

func (c *Context) PushText(text string, actions []Command) error {
	return c.replier.PushText(text, actions)
}

func (c *Context) PushError(err error) error {
	return c.replier.PushError(err)
}
