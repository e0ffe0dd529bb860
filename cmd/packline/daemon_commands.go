package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"packline/internal/daemonctl"
	"packline/internal/daemonrun"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newServeCommand(ctx),
		newStartCommand(ctx),
		newStopCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", true, "Mirror log output to standard output")
	return cmd
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the kiosk daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath}, startWaitTimeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Daemon started (pid %d) on %s\n", result.PID, cfg.Paths.APIBind)
			}
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background kiosk daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cfg, stopGracePeriod)
			out := cmd.OutOrStdout()
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon (pid %d) did not stop in %s and was killed\n", result.PID, stopGracePeriod)
				return nil
			}
			fmt.Fprintf(out, "Daemon (pid %d) stopped\n", result.PID)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and preflight status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, snap, func(out io.Writer) error {
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Daemon", colorize)
				if snap.Running {
					lines = append(lines, renderStatusLine("Process", statusOK, fmt.Sprintf("running (pid %d)", snap.PID), colorize))
					apiKind, apiText := statusError, "not answering"
					if snap.APIReachable {
						apiKind, apiText = statusOK, "answering"
					}
					lines = append(lines, renderStatusLine("API", apiKind, cfg.Paths.APIBind+" "+apiText, colorize))
				} else {
					lines = append(lines, renderStatusLine("Process", statusInfo, "not running", colorize))
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				for _, r := range snap.Checks {
					lines = append(lines, renderCheck(r, colorize))
				}
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}
