package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/bgrun"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	c := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(c, globalFlags),
		createStopCommand(c, globalFlags),
		createStatusCommand(c, globalFlags),
		createLogsCommand(c, globalFlags),
		createServeCommand(globalFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "bgrun",
		Short: "Background process registry",
		Long: `Bgrun launches long-running commands detached from the controller,
tracks them per project directory, and inspects or stops them later
from any process, including after a controller restart.

Examples:
  bgrun start --name=dev-server --cmd="npm run dev"
  bgrun status
  bgrun logs --name=dev-server --lines=100
  bgrun stop --name=dev-server
  bgrun serve                       # Start the HTTP daemon`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createStartCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	f := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch a detached background process",
		Long: `Launch a command detached from this controller and record it.
The process keeps running after bgrun exits; its output is captured
to a per-process log file under the base directory.

Examples:
  bgrun start --name=web --cmd="python app.py"
  bgrun start --name=worker --cmd="./worker" --scope=/srv/proj --env=QUEUE=jobs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			return c.Start(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "process name (required)")
	cmd.Flags().StringVar(&f.Cmd, "cmd", "", "shell command to run (required)")
	cmd.Flags().StringVar(&f.WorkDir, "work-dir", "", "working directory (defaults to scope)")
	cmd.Flags().StringVar(&f.Scope, "scope", "", "project directory (defaults to cwd)")
	cmd.Flags().StringArrayVar(&f.EnvKVs, "env", nil, "extra KEY=VALUE environment entries")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	mustMarkRequired(cmd, "name", "cmd")
	return cmd
}

func createStopCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	f := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a tracked process and remove its record",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			return c.Stop(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "process name (required)")
	cmd.Flags().StringVar(&f.Scope, "scope", "", "project directory (defaults to cwd)")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	mustMarkRequired(cmd, "name")
	return cmd
}

func createStatusCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	f := &StatusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List processes tracked for the scope",
		Long: `List processes visible from the scope, including those started in
ancestor project directories. Liveness is probed at call time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			return c.Status(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Scope, "scope", "", "project directory (defaults to cwd)")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print machine-readable JSON")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	return cmd
}

func createLogsCommand(c command, globalFlags *GlobalFlags) *cobra.Command {
	f := &LogsFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print a process's captured output",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			return c.Logs(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "process name (required)")
	cmd.Flags().StringVar(&f.Scope, "scope", "", "project directory (defaults to cwd)")
	cmd.Flags().IntVar(&f.Lines, "lines", 0, "limit to the last N lines (0 = whole file)")
	addAPIFlags(cmd, &f.APIUrl, &f.APITimeout)
	mustMarkRequired(cmd, "name")
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	f := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the bgrun HTTP daemon",
		Long: `Start the bgrun daemon exposing the registry over HTTP.

Examples:
  bgrun serve                       # defaults, listens on :8943
  bgrun serve config.toml           # with specific config file
  bgrun serve --daemonize           # run in background`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(f, args)
		},
	}
	cmd.Flags().BoolVar(&f.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&f.PidFile, "pidfile", "", "write the daemon pid to this file")
	cmd.Flags().StringVar(&f.LogFile, "logfile", "", "redirect daemon logs to file")
	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	fc, err := bgrun.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if flags.Daemonize {
		return daemonize(flags.PidFile, flags.LogFile)
	}

	mgr, err := bgrun.NewFromConfig(fc)
	if err != nil {
		return err
	}
	logCfg := fc.Log
	if flags.LogFile != "" {
		logCfg.File = flags.LogFile
	}
	mgr.SetLogger(logCfg.NewLogger())

	var srvOpts []bgrun.ServerOption
	if fc.Server.Metrics {
		if err := bgrun.RegisterMetricsDefault(); err != nil {
			fmt.Printf("Warning: failed to register metrics: %v\n", err)
		} else {
			srvOpts = append(srvOpts, bgrun.WithMetricsEndpoint())
		}
	}

	server, err := bgrun.NewHTTPServer(fc.Server.Listen, fc.Server.BasePath, mgr, srvOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	fmt.Printf("Starting bgrun server on %s%s\n", fc.Server.Listen, fc.Server.BasePath)

	if flags.PidFile != "" {
		if err := writePidFile(flags.PidFile, os.Getpid()); err != nil {
			return fmt.Errorf("failed to write pid file: %w", err)
		}
		defer func() { _ = removePidFile(flags.PidFile) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	return server.Close()
}

func addAPIFlags(cmd *cobra.Command, apiURL *string, timeout *time.Duration) {
	cmd.Flags().StringVar(apiURL, "api-url", "", "remote daemon URL (e.g. http://host:8943/api)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 10*time.Second, "request timeout")
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		if err := cmd.MarkFlagRequired(n); err != nil {
			panic(err)
		}
	}
}
