package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command describes one slash command. Usage is the argument synopsis,
// e.g. "SYMBOL [INTERVAL]".
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Usage       string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Endpoint lowercases name and adds the leading slash if missing.
func Endpoint(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name[0] == '/' {
		return name
	}
	return "/" + name
}

// Endpoints lists name followed by every non-empty alias, all normalized.
func (c Command) Endpoints(name string) []string {
	out := []string{Endpoint(name)}
	for _, alias := range c.Aliases {
		if ep := Endpoint(alias); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// Synopsis renders "/name USAGE" for help and usage replies.
func (c Command) Synopsis(name string) string {
	line := Endpoint(name)
	if c.Usage != "" {
		line += " " + c.Usage
	}
	return line
}
