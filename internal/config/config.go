package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFile    = "config.yml"
	DefaultShell   = "sh"
	DefaultRuntime = "docker"
)

// DefaultComposeCommand is the compose tool used when the config does not name one.
var DefaultComposeCommand = []string{"docker", "compose"}

// ErrInvalid marks configuration that is missing, unreadable or malformed.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	BaseDirectory   string   `yaml:"base-directory"`
	ShutdownSeconds *int     `yaml:"shutdown-timeout"`
	Prune           *bool    `yaml:"prune"`
	Network         Network  `yaml:"macvlan-network"`
	ComposeCommand  []string `yaml:"compose-command,omitempty"`
	Shell           string   `yaml:"shell,omitempty"`
	// RuntimeCommand is the container CLI that execs shells by container ID.
	// It is separate from ComposeCommand, whose exec takes service names.
	RuntimeCommand string `yaml:"runtime-command,omitempty"`
}

// Network describes the shared macvlan network every service attaches to.
type Network struct {
	Name    string `yaml:"name"`
	Subnet  string `yaml:"subnet"`
	Gateway string `yaml:"gateway"`
	Parent  string `yaml:"parent"`
}

// ShutdownTimeout is the grace period handed to the compose tool on up and stop.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownSeconds == nil {
		return 0
	}
	return time.Duration(*c.ShutdownSeconds) * time.Second
}

// PruneEnabled reports whether unused images, volumes and containers are reclaimed before each run.
func (c *Config) PruneEnabled() bool { return c.Prune != nil && *c.Prune }

// Load reads the config at path, fills defaults and validates it.
// A relative base-directory is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config: %w", ErrInvalid, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", ErrInvalid, err)
	}

	if cfg.BaseDirectory != "" && !filepath.IsAbs(cfg.BaseDirectory) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(path), cfg.BaseDirectory))
		if err != nil {
			return nil, fmt.Errorf("%w: resolving base-directory: %w", ErrInvalid, err)
		}
		cfg.BaseDirectory = abs
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults() {
	if len(c.ComposeCommand) == 0 {
		c.ComposeCommand = append([]string(nil), DefaultComposeCommand...)
	}
	if strings.TrimSpace(c.Shell) == "" {
		c.Shell = DefaultShell
	}
	if strings.TrimSpace(c.RuntimeCommand) == "" {
		c.RuntimeCommand = DefaultRuntime
	}
}

// Validate checks that every required key is present and well formed.
func (c *Config) Validate() error {
	var problems []string
	if c.BaseDirectory == "" {
		problems = append(problems, "base-directory is required")
	} else if fi, err := os.Stat(c.BaseDirectory); err != nil || !fi.IsDir() {
		problems = append(problems, fmt.Sprintf("base-directory %q is not a directory", c.BaseDirectory))
	}
	if c.ShutdownSeconds == nil {
		problems = append(problems, "shutdown-timeout is required")
	} else if *c.ShutdownSeconds < 0 {
		problems = append(problems, "shutdown-timeout must not be negative")
	}
	if c.Prune == nil {
		problems = append(problems, "prune is required")
	}
	problems = append(problems, c.Network.problems()...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func (n Network) problems() []string {
	var out []string
	if n.Name == "" {
		out = append(out, "macvlan-network.name is required")
	}
	if n.Parent == "" {
		out = append(out, "macvlan-network.parent is required")
	}
	prefix, err := netip.ParsePrefix(n.Subnet)
	if err != nil {
		out = append(out, fmt.Sprintf("macvlan-network.subnet %q is not a CIDR", n.Subnet))
	}
	gw, gwErr := netip.ParseAddr(n.Gateway)
	if gwErr != nil {
		out = append(out, fmt.Sprintf("macvlan-network.gateway %q is not an IP address", n.Gateway))
	}
	if err == nil && gwErr == nil && !prefix.Contains(gw) {
		out = append(out, fmt.Sprintf("macvlan-network.gateway %s is outside subnet %s", gw, prefix))
	}
	return out
}
