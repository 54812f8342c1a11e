package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect search run history",
	Long:  "Commands for listing, viewing, summarizing and copying recorded searches.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine, _ := cmd.Flags().GetString("engine")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Engine: engine,
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-engine run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

// -- runs copy --

var runsCopyCmd = &cobra.Command{
	Use:   "copy <postgres-url>",
	Short: "Copy the run history into a Postgres database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, err := initStore(cmd)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		runs, err := src.ListRuns(ctx, store.RunFilter{Limit: 1 << 30})
		if err != nil {
			return eris.Wrap(err, "runs copy: list")
		}

		dst, err := store.NewPostgres(ctx, args[0], nil)
		if err != nil {
			return err
		}
		defer dst.Close() //nolint:errcheck
		if err := dst.Migrate(ctx); err != nil {
			return err
		}

		n, err := dst.ImportRuns(ctx, runs)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Copied %d runs.\n", n)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("engine", "", "filter by engine name")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCopyCmd)
	rootCmd.AddCommand(runsCmd)
}

// initStore opens the configured run store.
func initStore(cmd *cobra.Command) (store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, eris.New("run history is disabled (store.enabled=false)")
	}
	return store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// engineStats aggregates the runs of one engine.
type engineStats struct {
	Engine    string
	Total     int
	Complete  int
	Failed    int
	Results   int
	AvgDurSec float64
}

// computeRunStats groups runs by engine, in first-seen order.
func computeRunStats(runs []model.SearchRun) []engineStats {
	var out []engineStats
	index := make(map[string]int)
	durations := make(map[string]int64)

	for _, r := range runs {
		i, ok := index[r.Engine]
		if !ok {
			i = len(out)
			index[r.Engine] = i
			out = append(out, engineStats{Engine: r.Engine})
		}
		s := &out[i]
		s.Total++
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusFailed:
			s.Failed++
		}
		s.Results += r.Results
		durations[r.Engine] += r.DurationMs
	}

	for i := range out {
		if out[i].Total > 0 {
			out[i].AvgDurSec = float64(durations[out[i].Engine]) / float64(out[i].Total) / 1000
		}
	}
	return out
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.SearchRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tENGINE\tQUERY\tSTATUS\tRESULTS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := (time.Duration(r.DurationMs) * time.Millisecond).Round(time.Millisecond).String()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Engine,
			truncate(r.Query, 30),
			r.Status,
			r.Results,
			r.MaxResults,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes per-engine stats to w.
func formatRunStats(out io.Writer, stats []engineStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENGINE\tRUNS\tCOMPLETE\tFAILED\tRESULTS\tAVG_DURATION")
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2fs\n", s.Engine, s.Total, s.Complete, s.Failed, s.Results, s.AvgDurSec)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
