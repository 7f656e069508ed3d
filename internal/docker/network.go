package docker

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"

	"github.com/zpdzap/berth/internal/config"
)

const macvlanDriver = "macvlan"

// ErrNetworkCreate marks a failure to provision the shared network. Nothing
// can start without it, so callers treat it as fatal.
var ErrNetworkCreate = errors.New("network provisioning failed")

// EnsureNetwork creates the shared macvlan network unless a network with the
// same name already exists. Only the name is compared: an existing network
// with different parameters is kept as is and reported as a warning.
func (c *Client) EnsureNetwork(ctx context.Context, spec config.Network) (bool, error) {
	existing, err := c.api.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", spec.Name)),
	})
	if err != nil {
		return false, fmt.Errorf("%w: listing networks: %w", ErrNetworkCreate, err)
	}

	// The name filter matches substrings, so compare exactly.
	for _, n := range existing {
		if n.Name != spec.Name {
			continue
		}
		if drift := networkDrift(n, spec); len(drift) > 0 {
			c.log.Warn("existing network differs from config, leaving it unchanged",
				"network", spec.Name, "differences", drift)
		}
		c.log.Debug("network already present", "network", spec.Name, "id", n.ID)
		return false, nil
	}

	resp, err := c.api.NetworkCreate(ctx, spec.Name, network.CreateOptions{
		Driver:  macvlanDriver,
		Options: map[string]string{"parent": spec.Parent},
		IPAM: &network.IPAM{
			Config: []network.IPAMConfig{{Subnet: spec.Subnet, Gateway: spec.Gateway}},
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: create %s: %w", ErrNetworkCreate, spec.Name, err)
	}
	if resp.Warning != "" {
		c.log.Warn(resp.Warning, "network", spec.Name)
	}
	c.log.Info("created network", "network", spec.Name, "driver", macvlanDriver,
		"subnet", spec.Subnet, "gateway", spec.Gateway, "parent", spec.Parent)
	return true, nil
}

func networkDrift(n network.Summary, spec config.Network) []string {
	var drift []string
	if n.Driver != macvlanDriver {
		drift = append(drift, fmt.Sprintf("driver %s", n.Driver))
	}
	if parent := n.Options["parent"]; parent != spec.Parent {
		drift = append(drift, fmt.Sprintf("parent %q", parent))
	}
	var subnet, gateway string
	if len(n.IPAM.Config) > 0 {
		subnet, gateway = n.IPAM.Config[0].Subnet, n.IPAM.Config[0].Gateway
	}
	if subnet != spec.Subnet {
		drift = append(drift, fmt.Sprintf("subnet %q", subnet))
	}
	if gateway != spec.Gateway {
		drift = append(drift, fmt.Sprintf("gateway %q", gateway))
	}
	return drift
}
