package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
	"github.com/micro-ha/airplane-scheduler/internal/reporting"
	"github.com/micro-ha/airplane-scheduler/internal/services/actuator"
)

// ErrToggleFailed is returned when an outcome did not succeed.
var ErrToggleFailed = errors.New("toggle did not succeed")

func newStateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print whether airplane mode is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := opts.core(cmd)
			if err != nil {
				return err
			}
			enabled := core.Settings.ReadState(cmd.Context())
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"enabled": enabled})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "airplane mode: %s\n", onOff(enabled))
			return nil
		},
	}
}

func newProbeCmd(opts *globalOptions) *cobra.Command {
	var skipRoot bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe privilege tiers and permissions",
		Long: `Probe reports which privilege tiers are usable right now.

The root check runs "id" through su and may trigger a superuser consent
prompt on the device. Use --skip-root to avoid it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := opts.core(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			host := core.Probe.HostCapabilities(ctx, !skipRoot)
			best := host.Snapshot(time.Now()).Best()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"host": host, "best_tier": best})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "elevated settings write: %t\n", host.ElevatedPermission)
			if host.Root != nil {
				fmt.Fprintf(out, "root shell:              %t (%s)\n", *host.Root, core.Executor.Name())
			} else {
				fmt.Fprintf(out, "root shell:              not probed\n")
			}
			fmt.Fprintf(out, "exact scheduling:        %t\n", host.ExactSchedulingPermission)
			fmt.Fprintf(out, "battery exemption:       %t\n", host.BatteryOptimizationExempt)
			fmt.Fprintf(out, "selected tier:           %s\n", best)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipRoot, "skip-root", false, "do not run the root check")
	return cmd
}

func newToggleCmd(opts *globalOptions) *cobra.Command {
	var scheduleID, scheduleName string
	cmd := &cobra.Command{
		Use:       "toggle on|off",
		Short:     "Set airplane mode using the best available tier",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var desired airplane.DesiredState
			switch strings.ToLower(args[0]) {
			case "on", "enable", "true", "1":
				desired = airplane.On
			case "off", "disable", "false", "0":
				desired = airplane.Off
			default:
				return fmt.Errorf("invalid state %q: expected on or off", args[0])
			}

			core, logger, err := opts.core(cmd)
			if err != nil {
				return err
			}
			var event *airplane.ScheduleEvent
			if scheduleID != "" || scheduleName != "" {
				event = &airplane.ScheduleEvent{ScheduleID: scheduleID, ScheduleName: scheduleName, Desired: desired}
			}
			toggler := actuator.NewPipeline(core.Gate, reporting.LogReporter{Logger: logger}, nil)
			outcome := toggler.Apply(cmd.Context(), desired, event)

			if opts.jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
					return err
				}
			} else {
				printOutcome(cmd, outcome)
			}
			if !outcome.Success {
				return fmt.Errorf("%w: %s", ErrToggleFailed, outcome.Failure)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scheduleID, "schedule-id", "", "schedule id recorded in the outcome")
	cmd.Flags().StringVar(&scheduleName, "schedule-name", "", "schedule name recorded in the outcome")
	return cmd
}

func printOutcome(cmd *cobra.Command, outcome airplane.ToggleOutcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "requested: %s\ntier:      %s\nsuccess:   %t\n", outcome.Requested, outcome.Tier, outcome.Success)
	for _, result := range outcome.Commands {
		status := "ok"
		switch {
		case result.TimedOut:
			status = "timeout"
		case !result.Succeeded:
			status = fmt.Sprintf("exit %d", result.ExitCode)
		}
		fmt.Fprintf(out, "  %-8s %s\n", status, result.Command)
	}
	if outcome.Message != "" {
		fmt.Fprintf(out, "note:      %s\n", outcome.Message)
	}
	notification := reporting.Render(outcome, outcome.FinishedAt)
	fmt.Fprintf(out, "%s: %s\n", notification.Title, notification.Message)
}

func newSettingsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Open the airplane mode settings screen on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, _, err := opts.core(cmd)
			if err != nil {
				return err
			}
			if err := core.Surface.OpenSettings(cmd.Context()); err != nil {
				return fmt.Errorf("open settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings screen opened")
			return nil
		},
	}
}
