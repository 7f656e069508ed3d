package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// actionDoneMsg is sent when a start, stop or restart finishes.
type actionDoneMsg struct {
	action string
	name   string
	err    error
}

// statusMsg carries a fresh poll of running containers per service.
type statusMsg struct {
	running map[string]int
	errs    map[string]error
}

// describedMsg carries the compose services defined by one service.
type describedMsg struct {
	name     string
	services []string
	err      error
}

// statusTickMsg triggers a status refresh poll.
type statusTickMsg time.Time

// confirmStopExpiredMsg clears a pending stop confirmation.
type confirmStopExpiredMsg struct{}

// tickCmd returns a command that sends a tick every 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}
