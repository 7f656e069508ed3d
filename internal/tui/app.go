// Package tui is the interactive services dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zpdzap/berth/internal/compose"
	"github.com/zpdzap/berth/internal/lifecycle"
	"github.com/zpdzap/berth/internal/service"
)

// Run starts the dashboard loop. It cycles between the Bubble Tea program
// and interactive shell or log sessions until the user quits. Background
// actions go through quiet so they do not write over the screen; shell and
// logs go through loud on the real terminal.
func Run(ctx context.Context, loud *lifecycle.Controller, quiet Runner, services []service.Service) error {
	for {
		m := newModel(ctx, quiet, services)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		result, err := p.Run()
		if err != nil {
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("TUI error: %w", err)
		}

		final := result.(model)
		if final.quitting || final.next == nil {
			return nil
		}

		if err := runHandoff(ctx, loud, *final.next, os.Stdout); err != nil {
			return err
		}

		// Reset terminal so Bubble Tea starts clean
		fmt.Print("\033c")
	}
}

// runHandoff runs a shell or log session. Errors that only concern the
// session are printed and the dashboard resumes; a missing compose tool
// ends the loop.
func runHandoff(ctx context.Context, ctrl *lifecycle.Controller, h handoff, out io.Writer) error {
	targets := []service.Service{h.svc}

	var err error
	switch h.action {
	case "shell":
		err = ctrl.Shell(ctx, targets)
	case "logs":
		logCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		err = ctrl.Logs(logCtx, targets, false)
		stop()
	}

	switch {
	case err == nil, errors.Is(err, lifecycle.ErrCancelled), errors.Is(err, lifecycle.ErrNoContainers):
		return nil
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, compose.ErrUnavailable):
		return err
	}
	fmt.Fprintf(out, "%s %s: %v\n", h.action, h.svc.Name, err)
	return nil
}
