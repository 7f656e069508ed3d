package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/berth/internal/service"
)

var progressVerbs = map[string]string{
	"start":   "Starting",
	"stop":    "Stopping",
	"restart": "Restarting",
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6 // account for "  > /" prefix
		return m, nil

	case statusTickMsg:
		return m, tea.Batch(m.pollCmd(), tickCmd())

	case statusMsg:
		m.running = msg.running
		m.statusErr = msg.errs
		m.polled = true
		return m, nil

	case describedMsg:
		if msg.err == nil {
			m.composed[msg.name] = msg.services
		}
		return m, nil

	case actionDoneMsg:
		delete(m.busy, msg.name)
		if msg.err != nil {
			m.message = fmt.Sprintf("%s %s failed: %v", msg.action, msg.name, msg.err)
			m.isError = true
		} else {
			m.message = fmt.Sprintf("%s %s done", msg.action, msg.name)
			m.isError = false
		}
		return m, m.pollCmd()

	case confirmStopExpiredMsg:
		m.confirmStop = false
		m.confirmStopName = ""
		return m, nil

	case tea.KeyMsg:
		if m.commanding {
			return m.handleCommandMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	// Forward to input if in command mode
	if m.commanding {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNormalMode handles keys when navigating the service list.
func (m model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// If confirming a stop, second x confirms, anything else cancels
	if m.confirmStop {
		m.confirmStop = false
		name := m.confirmStopName
		m.confirmStopName = ""
		if msg.String() == "x" {
			return m.act("stop", name)
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.commanding = true
		m.input.Focus()
		m.input.SetValue("")
		return m, textinput.Blink

	case "?":
		m.showHelp = true
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		} else if len(m.services) > 0 {
			m.cursor = len(m.services) - 1
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.services)-1 {
			m.cursor++
		}
		return m, nil
	}

	svc, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "s":
		return m.act("start", svc.Name)

	case "r":
		return m.act("restart", svc.Name)

	case "x":
		m.confirmStop = true
		m.confirmStopName = svc.Name
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
			return confirmStopExpiredMsg{}
		})

	case "enter":
		return m.handOff("shell", svc.Name)

	case "l":
		return m.handOff("logs", svc.Name)
	}

	return m, nil
}

// handleCommandMode handles keys when the command input is active.
func (m model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.commanding = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case "enter":
		m.commanding = false
		m.input.Blur()
		return m.processInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) processInput() (tea.Model, tea.Cmd) {
	cmd := ParseCommand(m.input.Value())
	m.input.SetValue("")
	if cmd == nil {
		return m, nil
	}

	switch cmd.Name {
	case "quit":
		m.quitting = true
		return m, tea.Quit

	case "start", "stop", "restart", "shell", "logs":
		name := ""
		if len(cmd.Args) > 0 {
			name = cmd.Args[0]
		} else if svc, ok := m.selected(); ok {
			name = svc.Name
		}
		if name == "" {
			m.message = fmt.Sprintf("Usage: /%s <service>", cmd.Name)
			m.isError = true
			return m, nil
		}
		if cmd.Name == "shell" || cmd.Name == "logs" {
			return m.handOff(cmd.Name, name)
		}
		return m.act(cmd.Name, name)

	default:
		m.message = fmt.Sprintf("Unknown command: %s", cmd.Name)
		m.isError = true
		return m, nil
	}
}

// act runs a start, stop or restart of one service in the background.
func (m model) act(action, name string) (tea.Model, tea.Cmd) {
	svc, ok := m.lookup(name)
	if !ok {
		m.message = fmt.Sprintf("Service %q not found", name)
		m.isError = true
		return m, nil
	}
	if inFlight, busy := m.busy[name]; busy {
		m.message = fmt.Sprintf("%s is busy (%s)", name, inFlight)
		m.isError = true
		return m, nil
	}

	m.busy[name] = action
	m.message = fmt.Sprintf("%s %s...", progressVerbs[action], name)
	m.isError = false

	ctx, runner := m.ctx, m.runner
	targets := []service.Service{svc}
	return m, func() tea.Msg {
		var err error
		switch action {
		case "start":
			err = runner.Start(ctx, targets)
		case "stop":
			err = runner.Stop(ctx, targets, false)
		case "restart":
			err = runner.Restart(ctx, targets, false)
		}
		return actionDoneMsg{action: action, name: name, err: err}
	}
}

// handOff quits the program so an interactive command can use the terminal.
// A service with an action in flight is refused.
func (m model) handOff(action, name string) (tea.Model, tea.Cmd) {
	svc, ok := m.lookup(name)
	if !ok {
		m.message = fmt.Sprintf("Service %q not found", name)
		m.isError = true
		return m, nil
	}
	if inFlight, busy := m.busy[name]; busy {
		m.message = fmt.Sprintf("%s is busy (%s), wait for it to finish", name, inFlight)
		m.isError = true
		return m, nil
	}
	m.next = &handoff{action: action, svc: svc}
	return m, tea.Quit
}
