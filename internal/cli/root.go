// Package cli implements the airplanectl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/micro-ha/airplane-scheduler/internal/app"
	"github.com/micro-ha/airplane-scheduler/internal/config"
	"github.com/micro-ha/airplane-scheduler/internal/logging"
)

type globalOptions struct {
	backend     string
	rootBackend string
	timeout     time.Duration
	jsonOutput  bool
	logLevel    string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "airplanectl",
		Short: "Inspect and toggle airplane mode using the best available privilege tier",
		Long: `airplanectl talks to the device directly, without the scheduler daemon.

Privilege tiers are tried in order: elevated settings write, root shell,
then manual fallback (opens the settings screen for the user).

Examples:
  airplanectl state
  airplanectl probe
  airplanectl toggle on --schedule-name "Night Mode"
  airplanectl schedules --file /data/schedules.json
  airplanectl events --server http://127.0.0.1:8099`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SuggestionsMinimumDistance = 2

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "", "device backend: android or simulated (default from BACKEND)")
	flags.StringVar(&opts.rootBackend, "root-backend", "", "root executor: subprocess or session (default from ROOT_BACKEND)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-command timeout (default from COMMAND_TIMEOUT)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		newStateCmd(opts),
		newProbeCmd(opts),
		newToggleCmd(opts),
		newSettingsCmd(opts),
		newSchedulesCmd(opts),
		newEventsCmd(opts),
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *globalOptions) config() config.Config {
	cfg := config.Load()
	if o.backend != "" {
		cfg.Backend = strings.ToLower(o.backend)
	}
	if o.rootBackend != "" {
		cfg.RootBackend = strings.ToLower(o.rootBackend)
	}
	if o.timeout > 0 {
		cfg.CommandTimeout = o.timeout
	}
	return cfg
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewCLI(cmd.ErrOrStderr(), config.ParseLogLevel(o.logLevel))
}

func (o *globalOptions) core(cmd *cobra.Command) (*app.Core, *slog.Logger, error) {
	cfg := o.config()
	if cfg.Backend != config.BackendAndroid && cfg.Backend != config.BackendSimulated {
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	logger := o.logger(cmd)
	core, err := app.NewCore(cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return core, logger, nil
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
