package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/berth/internal/service"
)

type fakeRunner struct {
	calls   []string
	running map[string][]string
	err     error
}

func (f *fakeRunner) record(action string, services []service.Service) error {
	for _, svc := range services {
		f.calls = append(f.calls, action+" "+svc.Name)
	}
	return f.err
}

func (f *fakeRunner) Start(_ context.Context, services []service.Service) error {
	return f.record("start", services)
}

func (f *fakeRunner) Stop(_ context.Context, services []service.Service, _ bool) error {
	return f.record("stop", services)
}

func (f *fakeRunner) Restart(_ context.Context, services []service.Service, _ bool) error {
	return f.record("restart", services)
}

func (f *fakeRunner) RunningIDs(_ context.Context, svc service.Service) ([]string, error) {
	if svc.Name == "broken" {
		return nil, errors.New("compose exited with status 1")
	}
	return f.running[svc.Name], nil
}

func testModel(names ...string) (model, *fakeRunner) {
	services := make([]service.Service, len(names))
	for i, n := range names {
		services[i] = service.Service{Name: n, Dir: "/srv/" + n}
	}
	r := &fakeRunner{running: map[string][]string{}}
	m := newModel(context.Background(), r, services)
	m.describe = func(_ context.Context, svc service.Service) ([]string, error) {
		return []string{svc.Name + "-app"}, nil
	}
	return m, r
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(model)
	}
	return m, cmd
}

func TestStatusPollUpdatesRows(t *testing.T) {
	m, r := testModel("web", "broken", "db")
	r.running["web"] = []string{"c1", "c2"}

	msg := m.pollCmd()()
	next, _ := m.Update(msg)
	m = next.(model)

	view := m.View()
	if !strings.Contains(view, "2 running") {
		t.Errorf("expected running count in view:\n%s", view)
	}
	if !strings.Contains(view, "status unavailable") {
		t.Errorf("expected broken service to be flagged:\n%s", view)
	}
	if !strings.Contains(view, "1/3 up") {
		t.Errorf("expected summary in view:\n%s", view)
	}
}

func TestDescribedServicesShown(t *testing.T) {
	m, _ := testModel("web")
	next, _ := m.Update(m.describeCmd(m.services[0])())
	m = next.(model)

	if got := m.composed["web"]; len(got) != 1 || got[0] != "web-app" {
		t.Fatalf("composed = %v", got)
	}
	if !strings.Contains(m.View(), "web-app") {
		t.Error("expected compose services in view")
	}
}

func TestStartRunsInBackground(t *testing.T) {
	m, r := testModel("web", "db")
	m, cmd := press(t, m, "j", "s")
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if m.busy["db"] != "start" {
		t.Errorf("busy = %v, want db starting", m.busy)
	}

	done := cmd()
	if len(r.calls) != 1 || r.calls[0] != "start db" {
		t.Fatalf("calls = %v", r.calls)
	}

	next, _ := m.Update(done)
	m = next.(model)
	if _, busy := m.busy["db"]; busy {
		t.Error("expected db to be idle after the action finished")
	}
	if m.isError {
		t.Errorf("unexpected error message %q", m.message)
	}
}

func TestActionFailureIsShown(t *testing.T) {
	m, r := testModel("web")
	r.err = errors.New("up exited with status 1")
	m, cmd := press(t, m, "r")

	next, _ := m.Update(cmd())
	m = next.(model)
	if !m.isError || !strings.Contains(m.message, "restart web failed") {
		t.Errorf("message = %q", m.message)
	}
}

func TestBusyServiceRejectsSecondAction(t *testing.T) {
	m, r := testModel("web")
	m, _ = press(t, m, "s")
	m, cmd := press(t, m, "r")

	if cmd != nil {
		t.Error("expected no command while busy")
	}
	if !m.isError || !strings.Contains(m.message, "busy") {
		t.Errorf("message = %q", m.message)
	}
	if len(r.calls) != 0 {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestStopNeedsConfirmation(t *testing.T) {
	m, r := testModel("web")

	m, _ = press(t, m, "x")
	if !m.confirmStop || m.confirmStopName != "web" {
		t.Fatalf("expected pending confirmation, got %+v", m.confirmStopName)
	}
	if !strings.Contains(m.View(), "Press x again") {
		t.Error("expected confirmation prompt in view")
	}

	m, cmd := press(t, m, "x")
	if m.confirmStop {
		t.Error("confirmation should be cleared")
	}
	cmd()
	if len(r.calls) != 1 || r.calls[0] != "stop web" {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestStopConfirmationCancels(t *testing.T) {
	m, r := testModel("web")

	m, _ = press(t, m, "x", "j")
	if m.confirmStop {
		t.Error("any other key should cancel")
	}

	m, _ = press(t, m, "x")
	next, _ := m.Update(confirmStopExpiredMsg{})
	m = next.(model)
	if m.confirmStop {
		t.Error("confirmation should expire")
	}
	if len(r.calls) != 0 {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestShellAndLogsHandOff(t *testing.T) {
	tests := []struct {
		keys   []string
		action string
	}{
		{[]string{"enter"}, "shell"},
		{[]string{"l"}, "logs"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			m, _ := testModel("web")
			m, cmd := press(t, m, tt.keys...)
			if m.next == nil || m.next.action != tt.action || m.next.svc.Name != "web" {
				t.Fatalf("next = %+v", m.next)
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected the program to quit")
			}
			if m.View() != "" {
				t.Error("view should be blank while handing off")
			}
		})
	}
}

func TestCommandBar(t *testing.T) {
	m, r := testModel("web", "db")

	m.commanding = true
	m.input.SetValue("/restart db")
	m, cmd := press(t, m, "enter")
	if m.commanding {
		t.Error("command mode should end on enter")
	}
	cmd()
	if len(r.calls) != 1 || r.calls[0] != "restart db" {
		t.Errorf("calls = %v", r.calls)
	}

	m.commanding = true
	m.input.SetValue("/shell nope")
	m, _ = press(t, m, "enter")
	if !m.isError || !strings.Contains(m.message, `"nope" not found`) {
		t.Errorf("message = %q", m.message)
	}

	m.commanding = true
	m.input.SetValue("/frobnicate")
	m, _ = press(t, m, "enter")
	if !strings.Contains(m.message, "Unknown command: frobnicate") {
		t.Errorf("message = %q", m.message)
	}

	m.commanding = true
	m.input.SetValue("/quit")
	m, _ = press(t, m, "enter")
	if !m.quitting {
		t.Error("expected quit")
	}
}

func TestCursorWraps(t *testing.T) {
	m, _ := testModel("a", "b", "c")

	m, _ = press(t, m, "k")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
	m, _ = press(t, m, "j")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want to stay at 2", m.cursor)
	}
}

func TestHelpOverlay(t *testing.T) {
	m, r := testModel("web")
	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "Navigation") {
		t.Error("expected help in view")
	}

	m, _ = press(t, m, "s")
	if len(m.busy) != 0 || len(r.calls) != 0 {
		t.Error("keys should be ignored while help is open")
	}

	m, _ = press(t, m, "esc")
	if m.showHelp {
		t.Error("esc should close help")
	}
}

func TestHandOffRefusedWhileBusy(t *testing.T) {
	m, _ := testModel("web")
	m, _ = press(t, m, "s")

	m, cmd := press(t, m, "enter")
	if m.next != nil || cmd != nil {
		t.Fatalf("expected the shell to be refused, next = %+v", m.next)
	}
	if !m.isError || !strings.Contains(m.message, "busy") {
		t.Errorf("message = %q", m.message)
	}

	m.commanding = true
	m.input.SetValue("/logs web")
	m, _ = press(t, m, "enter")
	if m.next != nil {
		t.Errorf("expected logs to be refused, next = %+v", m.next)
	}
}
