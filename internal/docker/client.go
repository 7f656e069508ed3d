// Package docker talks to the Docker Engine API for the pieces of a run that
// are not scoped to one service: the shared network, pruning and container
// lookups.
package docker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
)

// ErrNoSuchContainer is returned when a container disappeared between listing and lookup.
var ErrNoSuchContainer = errors.New("no such container")

// Client wraps the Docker API client.
type Client struct {
	api client.APIClient
	log *log.Logger
}

// New connects to the daemon described by the environment (DOCKER_HOST etc.).
func New(logger *log.Logger) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewFromAPI(cli, logger), nil
}

// NewFromAPI wraps an existing API client.
func NewFromAPI(api client.APIClient, logger *log.Logger) *Client {
	return &Client{api: api, log: logger}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// ContainerName returns the human name of the container with the given ID.
func (c *Client) ContainerName(ctx context.Context, id string) (string, error) {
	info, err := c.api.ContainerInspect(ctx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchContainer, id)
		}
		return "", fmt.Errorf("inspect container %s: %w", id, err)
	}
	if info.ContainerJSONBase == nil {
		return "", fmt.Errorf("inspect container %s: empty response", id)
	}
	return strings.TrimPrefix(info.Name, "/"), nil
}
