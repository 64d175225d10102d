package commands

import (
	"strings"
	"unicode"
)

const (
	VerbAddTask  = "!addtask"
	VerbTask     = "!task"
	VerbStatus   = "!status"
	VerbApprove  = "!approve"
	VerbReject   = "!reject"
	VerbDoneTask = "!donetask"
	VerbHelp     = "!help"
)

var knownVerbs = map[string]struct{}{
	VerbAddTask:  {},
	VerbTask:     {},
	VerbStatus:   {},
	VerbApprove:  {},
	VerbReject:   {},
	VerbDoneTask: {},
	VerbHelp:     {},
}

// Command is a parsed chat command. Verb is lowercased; Args are the
// whitespace separated tokens after it.
type Command struct {
	Verb string
	Args []string

	// raw is the line after the verb as typed.
	raw string
}

// Rest returns the text after the first i arguments as typed, so inner
// spacing survives. It is "" when there are no more arguments.
func (c Command) Rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.TrimSpace(skipTokens(c.raw, i))
}

func (c Command) Arg(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse splits a chat line into a command. ok is false for blank lines and
// for anything that is not a known verb.
func Parse(text string) (Command, bool) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Command{}, false
	}
	verb := strings.ToLower(parts[0])
	if _, ok := knownVerbs[verb]; !ok {
		return Command{}, false
	}
	return Command{Verb: verb, Args: parts[1:], raw: skipTokens(text, 1)}, true
}

func skipTokens(s string, n int) string {
	for ; n > 0; n-- {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		s = s[end:]
	}
	return s
}

// normalizeUser strips the @ chat clients put in front of mentions.
func normalizeUser(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}
