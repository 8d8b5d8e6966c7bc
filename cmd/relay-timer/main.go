// Command relay-timer drives a relay for an operator-adjustable delay,
// triggered and cancelled by push buttons, and reports its state over a
// serial text display, MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweeney/relay-timer/internal/config"
	"github.com/sweeney/relay-timer/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "relay-timer",
		Short:        "Timed relay controller",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the controller until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted delay and current input levels, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			dev, err := openDevices(cfg)
			if err != nil {
				return err
			}
			defer dev.Close()
			return show(cmd.OutOrStdout(), cfg, dev)
		},
	}

	root.AddCommand(runCmd, showCmd)
	root.RunE = runCmd.RunE
	return root
}

// loadConfig reads path. A missing file at the default location means
// "run with defaults"; anywhere else it is an error.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		configureLogging(cfg)
		return cfg, nil
	}
	if path != config.DefaultPath || !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, err
	}

	cfg = config.Default().ApplyProfile()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("default config: %w", err)
	}
	configureLogging(cfg)
	base := log.Base()
	base.Info().Str("path", path).Msg("no config file, using defaults")
	return cfg, nil
}

func configureLogging(cfg config.Config) {
	log.Reconfigure(log.Config{Level: cfg.Log.Level, Service: "relay-timer"})
}

// signalError records which signal stopped the daemon.
type signalError struct {
	sig os.Signal
}

func (e signalError) Error() string {
	return "received " + e.sig.String()
}

// signalName maps a context cause to the reason reported in SHUTDOWN events.
func signalName(cause error) string {
	var se signalError
	if !errors.As(cause, &se) {
		return "UNKNOWN"
	}
	switch se.sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return se.sig.String()
}

// withSignals returns a context cancelled with a signalError on SIGINT or
// SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case s := <-sigCh:
			cancel(signalError{sig: s})
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, func() { cancel(context.Canceled) }
}
