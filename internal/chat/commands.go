package chat

import "strings"

// Command is a reserved token a user can send, or that the bot can offer back
// as a quick-reply action.
type Command string

const (
	CommandTalk     Command = "聊天"
	CommandForget   Command = "忘記"
	CommandContinue Command = "繼續"
)

// Label returns the user-facing text for the command.
func (c Command) Label() string { return string(c) }

// Match reports whether text invokes the command. A command matches when it
// is the leading token of the message, with or without a "/" prefix.
func (c Command) Match(text string) bool {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/")
	if !strings.HasPrefix(text, string(c)) {
		return false
	}
	rest := strings.TrimPrefix(text, string(c))
	return rest == "" || strings.HasPrefix(rest, " ")
}

// Strip removes a leading invocation of the command from text, if present.
func (c Command) Strip(text string) string {
	trimmed := strings.TrimSpace(text)
	withoutSlash := strings.TrimPrefix(trimmed, "/")
	if !c.Match(text) {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(withoutSlash, string(c)))
}
