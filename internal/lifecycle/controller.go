// Package lifecycle drives start, stop, restart, status, shell and logs
// across resolved services through a compose.Executor.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/zpdzap/berth/internal/compose"
	"github.com/zpdzap/berth/internal/config"
	"github.com/zpdzap/berth/internal/service"
)

// Action is one of the bulk operations Apply understands.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionStatus  Action = "status"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Options carries the optional collaborators of a Controller.
type Options struct {
	Out      io.Writer   // command output; defaults to stdout
	Log      *log.Logger // defaults to the package logger
	Names    NameLookup  // container ID to name; IDs are shown when nil
	Prompter Prompter    // container selection; reads stdin when nil
}

// Controller applies lifecycle actions to services one at a time.
type Controller struct {
	exec    compose.Executor
	cfg     *config.Config
	out     io.Writer
	log     *log.Logger
	names   NameLookup
	prompt  Prompter
	runtime string
}

// New returns a Controller running commands through exec.
func New(exec compose.Executor, cfg *config.Config, opts Options) *Controller {
	c := &Controller{
		exec:    exec,
		cfg:     cfg,
		out:     opts.Out,
		log:     opts.Log,
		names:   opts.Names,
		prompt:  opts.Prompter,
		runtime: cfg.RuntimeCommand,
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.log == nil {
		c.log = log.Default()
	}
	if c.prompt == nil {
		c.prompt = NewLinePrompter(os.Stdin, c.out)
	}
	if c.runtime == "" {
		c.runtime = config.DefaultRuntime
	}
	return c
}

// Apply runs action over services and logs what it is doing. Per-service
// failures only fail the call when a single service was targeted; with
// several they are logged and the run still succeeds.
func (c *Controller) Apply(ctx context.Context, action Action, services []service.Service, force bool) error {
	if len(services) == 0 {
		c.log.Warn("no services to act on", "action", action)
		return nil
	}
	c.log.Infof("Applying action '%s' to the following services: %s",
		action, strings.Join(service.Names(services), ", "))

	var err error
	switch action {
	case ActionStart:
		err = c.Start(ctx, services)
	case ActionStop:
		err = c.Stop(ctx, services, force)
	case ActionRestart:
		err = c.Restart(ctx, services, force)
	case ActionStatus:
		err = c.Status(ctx, services)
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	if err == nil || fatal(err) || len(services) == 1 {
		return err
	}
	c.log.Warn("some services failed", "action", action)
	return nil
}

// Start pulls and brings up each service in order. A failed pull is not
// fatal since a cached image may still satisfy the compose file; a failed
// up is recorded and the loop moves on.
func (c *Controller) Start(ctx context.Context, services []service.Service) error {
	var errs []error
	for _, svc := range services {
		c.log.Info("Updating image", "service", svc.Name)
		if err := c.run(ctx, svc, "pull"); err != nil {
			if fatal(err) {
				return err
			}
			c.log.Warn("pull failed, using cached image", "service", svc.Name, "err", err)
		}

		c.log.Info("Starting", "service", svc.Name)
		if err := c.run(ctx, svc, "up", "-d", "--build", "-t", c.timeout(), "--no-recreate"); err != nil {
			if fatal(err) {
				return err
			}
			c.log.Warn("start failed", "service", svc.Name, "err", err)
			errs = append(errs, fmt.Errorf("start %s: %w", svc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Stop stops each service's containers and tears down its compose
// resources. The shared network is external to every project, so down
// never removes it. force kills instead of waiting for the shutdown timeout.
func (c *Controller) Stop(ctx context.Context, services []service.Service, force bool) error {
	var errs []error
	for _, svc := range services {
		c.log.Info("Stopping", "service", svc.Name, "force", force)

		stopArgs := []string{"stop", "-t", c.timeout()}
		if force {
			stopArgs = []string{"kill"}
		}
		if err := c.run(ctx, svc, stopArgs...); err != nil {
			if fatal(err) {
				return err
			}
			c.log.Warn("stop failed", "service", svc.Name, "err", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name, err))
		}
		if err := c.run(ctx, svc, "down"); err != nil {
			if fatal(err) {
				return err
			}
			c.log.Warn("down failed", "service", svc.Name, "err", err)
			errs = append(errs, fmt.Errorf("down %s: %w", svc.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Restart is a full Stop pass followed by a full Start pass.
func (c *Controller) Restart(ctx context.Context, services []service.Service, force bool) error {
	stopErr := c.Stop(ctx, services, force)
	if fatal(stopErr) {
		return stopErr
	}
	return errors.Join(stopErr, c.Start(ctx, services))
}

// Status lists each service's containers, with a header per service when
// more than one is shown. Failures are only warnings.
func (c *Controller) Status(ctx context.Context, services []service.Service) error {
	for _, svc := range services {
		if len(services) > 1 {
			fmt.Fprintf(c.out, "\n%s\n", headerStyle.Render("Showing containers for "+svc.Name))
		}
		if err := c.run(ctx, svc, "ps"); err != nil {
			if fatal(err) {
				return err
			}
			c.log.Warn("status failed", "service", svc.Name, "err", err)
		}
		fmt.Fprintln(c.out)
	}
	return nil
}

func (c *Controller) run(ctx context.Context, svc service.Service, args ...string) error {
	res, err := c.exec.Run(ctx, svc, args, false)
	if err != nil {
		return err
	}
	return res.Err(args)
}

func (c *Controller) timeout() string {
	return strconv.Itoa(int(c.cfg.ShutdownTimeout() / time.Second))
}

func single(services []service.Service) (service.Service, error) {
	switch len(services) {
	case 1:
		return services[0], nil
	case 0:
		return service.Service{}, fmt.Errorf("%w: none given", ErrSingleService)
	default:
		return service.Service{}, fmt.Errorf("%w: got %s", ErrSingleService, strings.Join(service.Names(services), ", "))
	}
}
