package tui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/zpdzap/berth/internal/lifecycle"
	"github.com/zpdzap/berth/internal/service"
)

// Runner is the part of the lifecycle controller the dashboard drives in
// the background while it owns the screen.
type Runner interface {
	Start(ctx context.Context, services []service.Service) error
	Stop(ctx context.Context, services []service.Service, force bool) error
	Restart(ctx context.Context, services []service.Service, force bool) error
	RunningIDs(ctx context.Context, svc service.Service) ([]string, error)
}

var _ Runner = (*lifecycle.Controller)(nil)

// handoff is an interactive command to run on the real terminal once the
// program has quit.
type handoff struct {
	action string // "shell" or "logs"
	svc    service.Service
}

// model is the Bubble Tea model for the berth dashboard.
type model struct {
	ctx      context.Context
	runner   Runner
	services []service.Service
	describe func(context.Context, service.Service) ([]string, error)

	running   map[string]int
	statusErr map[string]error
	polled    bool
	composed  map[string][]string // compose services defined per berth service
	busy      map[string]string   // action in flight per service

	input      textinput.Model
	cursor     int
	message    string
	isError    bool
	commanding bool // true when in command mode (/ pressed)
	quitting   bool
	next       *handoff
	width      int
	height     int

	// Help modal
	showHelp bool

	// Double-press stop confirmation
	confirmStop     bool
	confirmStopName string
}

func newModel(ctx context.Context, runner Runner, services []service.Service) model {
	ti := textinput.New()
	ti.Placeholder = "start, stop, restart, shell, logs <service> | quit"
	ti.CharLimit = 256
	ti.Width = 80
	ti.Blur()

	// Initial size so the first render isn't at width=0
	w, h, _ := term.GetSize(int(os.Stdout.Fd()))
	if w == 0 {
		w = 80
	}
	if h == 0 {
		h = 24
	}

	return model{
		ctx:       ctx,
		runner:    runner,
		services:  services,
		describe:  service.Describe,
		running:   make(map[string]int),
		statusErr: make(map[string]error),
		composed:  make(map[string][]string),
		busy:      make(map[string]string),
		input:     ti,
		width:     w,
		height:    h,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.pollCmd(), tickCmd()}
	for _, svc := range m.services {
		cmds = append(cmds, m.describeCmd(svc))
	}
	return tea.Batch(cmds...)
}

// pollCmd counts running containers for every service.
func (m model) pollCmd() tea.Cmd {
	ctx, runner, services := m.ctx, m.runner, m.services
	return func() tea.Msg {
		msg := statusMsg{running: make(map[string]int), errs: make(map[string]error)}
		for _, svc := range services {
			ids, err := runner.RunningIDs(ctx, svc)
			if err != nil {
				msg.errs[svc.Name] = err
				continue
			}
			msg.running[svc.Name] = len(ids)
		}
		return msg
	}
}

func (m model) describeCmd(svc service.Service) tea.Cmd {
	ctx, describe := m.ctx, m.describe
	return func() tea.Msg {
		names, err := describe(ctx, svc)
		return describedMsg{name: svc.Name, services: names, err: err}
	}
}

// lookup finds a resolved service by name.
func (m model) lookup(name string) (service.Service, bool) {
	for _, svc := range m.services {
		if svc.Name == name {
			return svc, true
		}
	}
	return service.Service{}, false
}

// selected returns the service under the cursor.
func (m model) selected() (service.Service, bool) {
	if m.cursor < 0 || m.cursor >= len(m.services) {
		return service.Service{}, false
	}
	return m.services[m.cursor], true
}
