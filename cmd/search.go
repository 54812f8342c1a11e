package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/registry"
	"github.com/sells-group/websearch/internal/store"
)

const engineAll = "all"

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search one engine, or all of them",
	Long:  "Fetches result pages from the chosen engine until --max records are collected or the engine runs out, then prints them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		engine, _ := cmd.Flags().GetString("engine")
		maxResults, _ := cmd.Flags().GetInt("max")
		nonBlocking, _ := cmd.Flags().GetBool("nonblocking")
		format, _ := cmd.Flags().GetString("format")
		if maxResults < 0 {
			maxResults = cfg.Search.DefaultMaxResults
		}
		query := strings.Join(args, " ")

		var outs []searchOutcome
		if engine == engineAll {
			outs, err = searchAll(ctx, env.Registry, env.Store, query, maxResults)
		} else {
			outs, err = searchOne(ctx, env.Registry, env.Store, engine, query, maxResults, nonBlocking)
		}
		if err != nil {
			return err
		}

		if err := writeOutcomes(os.Stdout, format, outs); err != nil {
			return err
		}
		for _, o := range outs {
			if o.Err != nil {
				return eris.Wrapf(o.Err, "search %s", o.Engine)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("engine", "google", "engine name, or \"all\" to query every engine")
	searchCmd.Flags().Int("max", -1, "maximum records per engine (default from config)")
	searchCmd.Flags().Bool("nonblocking", false, "drive the search from a background worker and poll for records")
	searchCmd.Flags().String("format", "table", "output format (table, json)")
	rootCmd.AddCommand(searchCmd)
}

func searchOne(ctx context.Context, reg *registry.Registry, st store.Store, name, query string, maxResults int, nonBlocking bool) ([]searchOutcome, error) {
	e, err := reg.Get(name)
	if err != nil {
		return nil, err
	}
	run := model.SearchRun{Engine: name, Query: query, MaxResults: maxResults, Mode: searchMode(nonBlocking)}
	out := recordRun(ctx, st, run, func() searchOutcome {
		return runEngine(ctx, e, query, maxResults, nonBlocking, cfg.Search.PollInterval())
	})
	return []searchOutcome{out}, nil
}

func searchAll(ctx context.Context, reg *registry.Registry, st store.Store, query string, maxResults int) ([]searchOutcome, error) {
	names := reg.Names()
	runIDs := make([]string, len(names))
	for i, name := range names {
		runIDs[i] = startRun(ctx, st, model.SearchRun{Engine: name, Query: query, MaxResults: maxResults, Mode: model.SearchModeBlocking})
	}

	start := time.Now()
	results, err := reg.SearchAll(ctx, names, query, maxResults)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	outs := make([]searchOutcome, len(results))
	for i, r := range results {
		outs[i] = searchOutcome{Engine: r.Engine, Results: r.Results, Stats: r.Stats, Err: r.Err, RunID: runIDs[i]}
		finishRun(ctx, st, runIDs[i], outs[i], elapsed)
	}
	return outs, nil
}

// writeOutcomes prints the outcomes as a table or as JSON.
func writeOutcomes(w io.Writer, format string, outs []searchOutcome) error {
	switch format {
	case "json":
		type jsonOutcome struct {
			searchOutcome
			Error string `json:"error,omitempty"`
		}
		payload := make([]jsonOutcome, len(outs))
		for i, o := range outs {
			payload[i] = jsonOutcome{searchOutcome: o}
			if o.Err != nil {
				payload[i].Error = o.Err.Error()
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(payload)
	case "table", "":
		formatResultsTable(w, outs)
		return nil
	default:
		return eris.Errorf("unknown format %q (table, json)", format)
	}
}

// formatResultsTable writes one row per record to w.
func formatResultsTable(out io.Writer, outs []searchOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENGINE\t#\tTITLE\tURL")
	_, _ = fmt.Fprintln(w, "------\t-\t-----\t---")
	for _, o := range outs {
		for i, r := range o.Results {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", o.Engine, i+1, truncate(r.Name, 60), r.URL)
		}
		if o.Err != nil {
			_, _ = fmt.Fprintf(w, "%s\t-\terror: %s\t\n", o.Engine, o.Err)
		}
	}
	_ = w.Flush()
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
