package internal

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/mcpserver"
	"github.com/starford/planner/internal/taskview"
)

// RunMCP serves the planner tools over MCP on stdin/stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	be, store, _, err := app.openPlanner(logger)
	if err != nil {
		return err
	}
	defer be.Close()

	logger.Info("MCP server starting", slog.String("storage_backend", app.config.Storage.Backend))
	srv := mcpserver.New(store, app.version,
		mcpserver.WithLocale(app.locale()),
		mcpserver.WithClock(app.now))
	return srv.ServeStdio()
}

// Show prints one day's plan and its statistics. An empty date means today.
func Show(ctx context.Context, date, filter string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	today := app.now()
	if date == "" {
		date = format.DateKey(today)
	}
	d, err := format.ParseDate(date)
	if err != nil {
		return err
	}
	mode, err := taskview.ParseFilter(filter)
	if err != nil {
		return err
	}

	be, store, _, err := app.openPlanner(logger)
	if err != nil {
		return err
	}
	defer be.Close()

	tasks, err := store.Load(ctx, date)
	if err != nil && !apperr.IsReadFailure(err) {
		return err
	}

	out := app.out
	fmt.Fprintln(out, format.FormatRelativeDate(d, today, app.locale()))
	if err != nil {
		fmt.Fprintln(out, "warning: stored tasks could not be read")
	}
	visible := taskview.Apply(tasks, mode)
	if len(visible) == 0 {
		fmt.Fprintln(out, "  (no tasks)")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range visible {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(tw, "  [%s]\t%s\t%s\n", mark, t.Text, t.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	st := taskview.Stats(tasks)
	fmt.Fprintf(out, "%d total, %d completed, %d pending, %d%%\n", st.Total, st.Completed, st.Pending, st.CompletionRate)
	return nil
}
