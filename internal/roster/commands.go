package roster

import "strings"

// Command is a global command recognised in any state.
type Command int

const (
	CommandNone Command = iota
	CommandStart
	CommandCancel
	CommandDelete
	CommandView
	CommandList
	CommandMe
	CommandHelp
)

var commandTokens = map[string]Command{
	"/start":  CommandStart,
	"/cancel": CommandCancel,
	"/delete": CommandDelete,
	"/view":   CommandView,
	"/list":   CommandList,
	"/me":     CommandMe,
	"/help":   CommandHelp,
}

// MatchCommand recognises text that is exactly one command token, with no
// surrounding whitespace. Matching is case-sensitive; "/start now" or
// "/Start" are plain text.
func MatchCommand(text string) (Command, bool) {
	cmd, ok := commandTokens[text]
	return cmd, ok
}

// Token returns the slash-prefixed command text.
func (c Command) Token() string {
	for tok, cmd := range commandTokens {
		if cmd == c {
			return tok
		}
	}
	return ""
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if tok := c.Token(); tok != "" {
		return strings.TrimPrefix(tok, "/")
	}
	return "none"
}

// mutatesSession reports whether the command writes the caller's session.
func (c Command) mutatesSession() bool {
	switch c {
	case CommandStart, CommandCancel, CommandDelete:
		return true
	}
	return false
}
