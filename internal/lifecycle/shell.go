package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/zpdzap/berth/internal/service"
)

// Container is a running container of a service, looked up fresh every run.
type Container struct {
	ID   string
	Name string
}

// NameLookup resolves container IDs to their human names.
type NameLookup interface {
	ContainerName(ctx context.Context, id string) (string, error)
}

// Shell opens an interactive shell in one of the service's running
// containers. With several running it asks which one; 0 backs out.
func (c *Controller) Shell(ctx context.Context, services []service.Service) error {
	svc, err := single(services)
	if err != nil {
		return err
	}

	containers, err := c.Containers(ctx, svc)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		fmt.Fprintln(c.out, "No containers running! Exiting")
		return fmt.Errorf("%w for %s", ErrNoContainers, svc.Name)
	}

	choice := 1
	if len(containers) > 1 {
		fmt.Fprintln(c.out, "Multiple containers running, select from the following:")
		fmt.Fprintln(c.out, "0 : Exit")
		for i, ct := range containers {
			fmt.Fprintf(c.out, "%d : %s\n", i+1, ct.Name)
		}
		choice, err = c.prompt.Choose(ctx, len(containers))
		if err != nil {
			return err
		}
		if choice == 0 {
			fmt.Fprintln(c.out, "Exiting")
			return ErrCancelled
		}
	}

	return c.Attach(ctx, containers[choice-1])
}

// Attach execs the configured shell in ct, attached to the terminal.
func (c *Controller) Attach(ctx context.Context, ct Container) error {
	fmt.Fprintf(c.out, "Entering container %s\n", ct.Name)
	return c.exec.Interactive(ctx, c.attachCommand(ct))
}

// attachCommand is the argv that opens a shell in ct.
func (c *Controller) attachCommand(ct Container) []string {
	return []string{c.runtime, "exec", "-it", ct.ID, c.cfg.Shell}
}

// RunningIDs returns the IDs of the service's running containers.
func (c *Controller) RunningIDs(ctx context.Context, svc service.Service) ([]string, error) {
	args := []string{"ps", "-q"}
	res, err := c.exec.Run(ctx, svc, args, true)
	if err != nil {
		return nil, err
	}
	if err := res.Err(args); err != nil {
		return nil, fmt.Errorf("list containers for %s: %w", svc.Name, err)
	}
	return parseIDs(res.Stdout), nil
}

// Containers lists the service's running containers in compose order.
func (c *Controller) Containers(ctx context.Context, svc service.Service) ([]Container, error) {
	ids, err := c.RunningIDs(ctx, svc)
	if err != nil {
		return nil, err
	}
	containers := make([]Container, len(ids))
	for i, id := range ids {
		containers[i] = Container{ID: id, Name: c.containerName(ctx, id)}
	}
	return containers, nil
}

func (c *Controller) containerName(ctx context.Context, id string) string {
	if c.names != nil {
		name, err := c.names.ContainerName(ctx, id)
		if err == nil && name != "" {
			return name
		}
		c.log.Debug("container name lookup failed", "id", id, "err", err)
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func parseIDs(out []byte) []string {
	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
