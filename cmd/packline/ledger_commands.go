package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"packline/internal/api"
	"packline/internal/clock"
	"packline/internal/config"
	"packline/internal/kiosk"
	"packline/internal/ledger"
	"packline/internal/logging"
	"packline/internal/timer"
)

const timestampLayout = "2006-01-02 15:04:05"

func newShiftCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Open, close and list worker shifts",
	}
	cmd.AddCommand(newShiftStartCommand(ctx))
	cmd.AddCommand(newShiftEndCommand(ctx))
	cmd.AddCommand(newShiftListCommand(ctx))
	return cmd
}

func newShiftStartCommand(ctx *commandContext) *cobra.Command {
	var worker, center string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a shift for a worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				if strings.TrimSpace(center) == "" {
					center = cfg.Kiosk.WorkCenter
				}
				id, err := store.StartShift(cmd.Context(), worker, center, clock.System{}.Now())
				if err != nil {
					return err
				}
				payload := map[string]any{"shiftId": id, "workerId": worker, "workCenter": center}
				return ctx.emit(cmd, payload, func(out io.Writer) error {
					_, err := fmt.Fprintf(out, "Shift %d opened for %s at %s\n", id, worker, center)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&worker, "worker", "", "Worker identifier")
	cmd.Flags().StringVar(&center, "center", "", "Work centre (defaults to the configured one)")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func newShiftEndCommand(ctx *commandContext) *cobra.Command {
	var worker string
	var centers []string
	cmd := &cobra.Command{
		Use:   "end",
		Short: "Close a worker's open shifts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				closed, err := store.EndShift(cmd.Context(), worker, centers, clock.System{}.Now())
				if err != nil {
					return err
				}
				payload := map[string]any{"workerId": worker, "closed": closed}
				return ctx.emit(cmd, payload, func(out io.Writer) error {
					if closed == 0 {
						_, err := fmt.Fprintf(out, "No open shift for %s\n", worker)
						return err
					}
					_, err := fmt.Fprintf(out, "Closed %d shift(s) for %s\n", closed, worker)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&worker, "worker", "", "Worker identifier")
	cmd.Flags().StringSliceVar(&centers, "center", nil, "Only close shifts on these work centres")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func newShiftListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent shifts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				shifts, err := store.RecentShifts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.FromShifts(shifts), func(out io.Writer) error {
					if len(shifts) == 0 {
						_, err := fmt.Fprintln(out, "No shifts recorded")
						return err
					}
					rows := make([][]string, 0, len(shifts))
					for _, s := range shifts {
						rows = append(rows, []string{
							strconv.FormatInt(s.ID, 10),
							s.WorkerID,
							s.WorkCenter,
							formatTimestamp(s.StartTime),
							formatOptionalTimestamp(s.EndTime),
							yesNo(s.Active),
						})
					}
					_, err := fmt.Fprintln(out, renderTable(tableSpec{
						Headers:  []string{"ID", "Worker", "Centre", "Started", "Ended", "Open"},
						Rows:     rows,
						Aligns:   []columnAlignment{alignRight},
						Colorize: shouldColorize(out),
					}))
					return err
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of shifts to list")
	return cmd
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var shiftID int64
	var limit int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show work and idle totals per shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				reporter := kiosk.NewReporter(store, clock.System{}, logging.NewNop(),
					cfg.Kiosk.HeartbeatTimeoutSeconds)
				var reports []kiosk.ShiftReport
				if shiftID > 0 {
					report, err := reporter.Shift(cmd.Context(), shiftID)
					if err != nil {
						return err
					}
					reports = []kiosk.ShiftReport{report}
				} else {
					recent, err := reporter.Recent(cmd.Context(), limit)
					if err != nil {
						return err
					}
					reports = recent
				}
				payload := make([]api.ShiftReport, 0, len(reports))
				for _, r := range reports {
					payload = append(payload, api.FromShiftReport(r))
				}
				return ctx.emit(cmd, payload, func(out io.Writer) error {
					return renderReports(out, reports)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&shiftID, "shift", 0, "Report a single shift")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent shifts to report")
	return cmd
}

func renderReports(out io.Writer, reports []kiosk.ShiftReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(out, "No shifts recorded")
		return err
	}
	rows := make([][]string, 0, len(reports))
	var work, idle int64
	var packed int
	for _, r := range reports {
		work += r.Totals.WorkSeconds
		idle += r.Totals.IdleSeconds
		packed += r.Packed
		rows = append(rows, []string{
			strconv.FormatInt(r.Shift.ID, 10),
			r.Shift.WorkerID,
			r.Shift.WorkCenter,
			formatTimestamp(r.Shift.StartTime),
			stateLabel(r.Totals, r.Shift.Active),
			formatDuration(r.Totals.WorkSeconds),
			formatDuration(r.Totals.IdleSeconds),
			strconv.Itoa(r.Attempts),
			strconv.Itoa(r.Packed),
		})
	}
	_, err := fmt.Fprintln(out, renderTable(tableSpec{
		Title:    "Shift report",
		Headers:  []string{"ID", "Worker", "Centre", "Started", "State", "Work", "Idle", "Attempts", "Packed"},
		Rows:     rows,
		Aligns:   []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		Footer:   []string{"", "", "", "", "Total", formatDuration(work), formatDuration(idle), "", strconv.Itoa(packed)},
		Colorize: shouldColorize(out),
	}))
	return err
}

func stateLabel(t timer.Totals, active bool) string {
	if !active {
		return "closed"
	}
	label := strings.ToLower(string(t.State))
	if t.AutoIdle {
		label += " (auto)"
	}
	return label
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var shiftID int64
	var types []string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List ledger events for a shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shiftID <= 0 {
				return fmt.Errorf("--shift is required")
			}
			filter := make([]ledger.EventType, 0, len(types))
			for _, raw := range types {
				typ, err := ledger.ParseEventType(raw)
				if err != nil {
					return err
				}
				filter = append(filter, typ)
			}
			return ctx.withStore(func(_ *config.Config, store *ledger.Store) error {
				events, err := store.Query(cmd.Context(), shiftID, filter...)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, events, func(out io.Writer) error {
					if len(events) == 0 {
						_, err := fmt.Fprintf(out, "No events for shift %d\n", shiftID)
						return err
					}
					rows := make([][]string, 0, len(events))
					for _, ev := range events {
						rows = append(rows, []string{
							strconv.FormatInt(ev.ID, 10),
							formatTimestamp(ev.Timestamp),
							string(ev.Type),
							ev.WorkerID,
							ev.Payload,
						})
					}
					_, err := fmt.Fprintln(out, renderTable(tableSpec{
						Title:    fmt.Sprintf("Shift %d events", shiftID),
						Headers:  []string{"ID", "Time", "Type", "Worker", "Payload"},
						Rows:     rows,
						Aligns:   []columnAlignment{alignRight},
						Colorize: shouldColorize(out),
					}))
					return err
				})
			})
		},
	}
	cmd.Flags().Int64Var(&shiftID, "shift", 0, "Shift identifier")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Only show these event types")
	return cmd
}

func formatTimestamp(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return clock.Time(seconds).Local().Format(timestampLayout)
}

func formatOptionalTimestamp(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	return formatTimestamp(*seconds)
}

func formatDuration(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
