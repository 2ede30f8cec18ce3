package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/micro-ha/airplane-scheduler/internal/reporting"
	"github.com/micro-ha/airplane-scheduler/internal/scheduler"
)

func newSchedulesCmd(opts *globalOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Validate the schedules file and show next firings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = opts.config().SchedulesPath
			}
			defs, err := scheduler.LoadDefinitions(afero.NewOsFs(), path)
			if err != nil {
				return err
			}
			sched := scheduler.New(nil, afero.NewOsFs(), path, nil)
			sched.Replace(defs)
			entries := sched.List()

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "items": entries})
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "no schedules in %s\n", path)
				return nil
			}
			now := time.Now()
			for _, entry := range entries {
				fmt.Fprintf(out, "%-12s %-20s airplane %-3s %s\n", entry.ID, entry.Name, onOff(entry.Enable), describeNext(entry, now))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "schedules file (default from SCHEDULES_PATH)")
	return cmd
}

func describeNext(entry scheduler.Entry, now time.Time) string {
	switch {
	case !entry.IsEnabled():
		return "disabled"
	case entry.Missed:
		return "missed " + humanize.RelTime(*entry.At, now, "ago", "from now")
	case entry.NextFire == nil:
		return "not scheduled"
	default:
		return fmt.Sprintf("next %s (%s)", humanize.RelTime(*entry.NextFire, now, "ago", "from now"), entry.NextFire.Local().Format(time.RFC1123))
	}
}

func newEventsCmd(opts *globalOptions) *cobra.Command {
	var server, token string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow toggle outcomes and state changes from a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			sub := reporting.NewSubscriber(server, token, opts.logger(cmd))
			sub.Run(ctx, func(event reporting.Event) {
				if opts.jsonOutput {
					_ = writeJSON(out, event)
					return
				}
				fmt.Fprintf(out, "%s %-15s %s\n", event.At.Local().Format(time.TimeOnly), event.Type, string(event.Data))
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8099", "daemon base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token sent with the subscription")
	return cmd
}
