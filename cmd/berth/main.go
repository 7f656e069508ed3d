package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zpdzap/berth/internal/compose"
	"github.com/zpdzap/berth/internal/config"
	"github.com/zpdzap/berth/internal/docker"
	"github.com/zpdzap/berth/internal/lifecycle"
	"github.com/zpdzap/berth/internal/logging"
	"github.com/zpdzap/berth/internal/service"
	"github.com/zpdzap/berth/internal/tui"
)

type rootOptions struct {
	configPath string
	logLevel   string
	log        *log.Logger

	// Collaborator constructors; nil means the real docker daemon and
	// compose CLI.
	newDocker   func(*log.Logger) (*docker.Client, error)
	newExecutor func(command []string, quiet bool) compose.Executor
}

func (o *rootOptions) dockerClient() (*docker.Client, error) {
	if o.newDocker != nil {
		return o.newDocker(o.log)
	}
	return docker.New(o.log)
}

func (o *rootOptions) executor(command []string, quiet bool) compose.Executor {
	if o.newExecutor != nil {
		return o.newExecutor(command, quiet)
	}
	cli := compose.NewCLI(command)
	if quiet {
		cli.Stdin = nil
		cli.Stdout, cli.Stderr = io.Discard, io.Discard
	}
	return cli
}

func main() {
	opts := &rootOptions{}
	err := rootCmd(opts).Execute()
	code := exitCode(err)
	if err != nil && code != 0 {
		logger := opts.log
		if logger == nil {
			logger = log.Default()
		}
		logger.Error(err)
	}
	os.Exit(code)
}

func rootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "berth",
		Short:         "Berth - start, stop and inspect a directory of docker compose services",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = logging.Setup(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultFile, "path to the settings file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to $"+logging.EnvLevel)

	root.AddCommand(
		actionCmd(opts, lifecycle.ActionStart, "Pull and bring up services"),
		actionCmd(opts, lifecycle.ActionStop, "Stop and tear down services"),
		actionCmd(opts, lifecycle.ActionRestart, "Stop, then start services"),
		actionCmd(opts, lifecycle.ActionStatus, "Show the containers of services"),
		shellCmd(opts),
		logsCmd(opts),
		dashboardCmd(opts),
		initCmd(opts),
	)
	return root
}

func actionCmd(opts *rootOptions, action lifecycle.Action, short string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   string(action) + " <service|all|a,b,...>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			s, err := openSession(ctx, opts, args[0])
			if err != nil {
				return err
			}
			defer s.close()
			return s.controller(false).Apply(ctx, action, s.services, force)
		},
	}
	if action == lifecycle.ActionStop || action == lifecycle.ActionRestart {
		cmd.Flags().BoolVarP(&force, "force", "f", false, "kill containers instead of waiting for a graceful stop")
	}
	return cmd
}

func shellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <service>",
		Short: "Open a shell in a running container of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			s, err := openSession(ctx, opts, args[0])
			if err != nil {
				return err
			}
			defer s.close()
			return s.controller(false).Shell(ctx, s.services)
		},
	}
}

func logsCmd(opts *rootOptions) *cobra.Command {
	var noFollow bool
	cmd := &cobra.Command{
		Use:   "logs <service>",
		Short: "Show and follow the logs of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			s, err := openSession(ctx, opts, args[0])
			if err != nil {
				return err
			}
			defer s.close()
			return s.controller(false).Logs(ctx, s.services, noFollow)
		},
	}
	cmd.Flags().BoolVarP(&noFollow, "no-follow", "n", false, "print the logs and exit")
	return cmd
}

func dashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard [service|all]",
		Short: "Interactive dashboard over services",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := service.All
			if len(args) == 1 {
				token = args[0]
			}

			// Ctrl-C is a key inside the dashboard; log sessions install
			// their own signal handling.
			ctx := cmd.Context()
			s, err := openSession(ctx, opts, token)
			if err != nil {
				return err
			}
			defer s.close()
			return tui.Run(ctx, s.controller(false), s.controller(true), s.services)
		},
	}
}

func initCmd(opts *rootOptions) *cobra.Command {
	var (
		baseDir string
		network config.Network
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configPath); err == nil {
				fmt.Printf("%s already exists, leaving it alone.\n", opts.configPath)
				return nil
			}

			timeout, prune := 30, false
			cfg := &config.Config{
				BaseDirectory:   baseDir,
				ShutdownSeconds: &timeout,
				Prune:           &prune,
				Network:         network,
				ComposeCommand:  config.DefaultComposeCommand,
				Shell:           config.DefaultShell,
			}
			if err := config.Save(opts.configPath, cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Printf("Wrote %s\n", opts.configPath)
			if err := cfg.Validate(); err != nil {
				fmt.Printf("  Edit it before use: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseDir, "base-directory", ".", "directory holding one sub-directory per service")
	cmd.Flags().StringVar(&network.Name, "network", "services", "macvlan network name")
	cmd.Flags().StringVar(&network.Subnet, "subnet", "192.168.1.0/24", "macvlan subnet (CIDR)")
	cmd.Flags().StringVar(&network.Gateway, "gateway", "192.168.1.1", "macvlan gateway")
	cmd.Flags().StringVar(&network.Parent, "parent", "eth0", "host interface the macvlan network hangs off")
	return cmd
}

// session is everything a command needs once the preamble has run.
type session struct {
	cfg      *config.Config
	docker   *docker.Client
	services []service.Service
	log      *log.Logger
	opts     *rootOptions
}

// openSession loads the config, provisions the network, optionally
// reclaims space, then resolves token. Any failure aborts before a
// lifecycle action runs.
func openSession(ctx context.Context, opts *rootOptions, token string) (*session, error) {
	logger := opts.log
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	dc, err := opts.dockerClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", docker.ErrNetworkCreate, err)
	}
	if _, err := dc.EnsureNetwork(ctx, cfg.Network); err != nil {
		dc.Close()
		return nil, err
	}
	if cfg.PruneEnabled() {
		logger.Infof("Reclaimed %s", docker.MegaBytes(dc.Reclaim(ctx)))
	}

	services, err := service.Resolve(token, cfg.BaseDirectory)
	if err != nil {
		dc.Close()
		return nil, err
	}
	logger.Debug("resolved services", "token", token, "services", service.Names(services))

	return &session{cfg: cfg, docker: dc, services: services, log: logger, opts: opts}, nil
}

func (s *session) close() {
	if err := s.docker.Close(); err != nil {
		s.log.Debug("closing docker client", "err", err)
	}
}

// controller builds a lifecycle controller. A quiet one discards all
// output so it can run under the dashboard.
func (s *session) controller(quiet bool) *lifecycle.Controller {
	opts := lifecycle.Options{
		Log:      s.log,
		Names:    s.docker,
		Prompter: prompter(),
	}
	if quiet {
		opts.Out = io.Discard
		opts.Log = logging.Discard()
	}
	return lifecycle.New(s.opts.executor(s.cfg.ComposeCommand, quiet), s.cfg, opts)
}

// prompter asks with survey on a terminal and falls back to numbered
// lines on stdin otherwise.
func prompter() lifecycle.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return lifecycle.NewSurveyPrompter()
	}
	return lifecycle.NewLinePrompter(os.Stdin, os.Stdout)
}

func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled), errors.Is(err, lifecycle.ErrCancelled):
		return 0
	case errors.Is(err, lifecycle.ErrSingleService):
		return 2
	case errors.Is(err, lifecycle.ErrNoContainers):
		return 3
	default:
		// config, resolution, network, executor and compose failures
		return 1
	}
}
