package tui

import "strings"

// Command represents a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command bar entry such as "/stop web" or "restart db".
// The leading slash is optional. Returns nil for blank input.
func ParseCommand(input string) *Command {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	return &Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}
