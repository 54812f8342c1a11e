package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/search"
	"github.com/sells-group/websearch/internal/store"
)

// searchOutcome is what one engine produced for a recorded search.
type searchOutcome struct {
	Engine  string               `json:"engine"`
	Results []model.SearchResult `json:"results"`
	Stats   search.Stats         `json:"stats"`
	Err     error                `json:"-"`
	RunID   string               `json:"run_id,omitempty"`
}

// recordRun brackets fn with a run history entry. Store failures are logged
// and never fail the search; st may be nil.
func recordRun(ctx context.Context, st store.Store, run model.SearchRun, fn func() searchOutcome) searchOutcome {
	runID := startRun(ctx, st, run)
	start := time.Now()
	out := fn()
	out.RunID = runID
	finishRun(ctx, st, runID, out, time.Since(start))
	return out
}

func startRun(ctx context.Context, st store.Store, run model.SearchRun) string {
	if st == nil {
		return ""
	}
	created, err := st.CreateRun(ctx, run)
	if err != nil {
		zap.L().Warn("record run: create", zap.String("engine", run.Engine), zap.Error(err))
		return ""
	}
	return created.ID
}

func finishRun(ctx context.Context, st store.Store, runID string, out searchOutcome, elapsed time.Duration) {
	if st == nil || runID == "" {
		return
	}
	outcome := model.RunOutcome{
		Status:     model.RunStatusComplete,
		Results:    len(out.Results),
		Pages:      out.Stats.Pages,
		DurationMs: elapsed.Milliseconds(),
	}
	if out.Err != nil {
		outcome.Status = model.RunStatusFailed
		outcome.Error = out.Err.Error()
	}
	if err := st.CompleteRun(ctx, runID, outcome); err != nil {
		zap.L().Warn("record run: complete", zap.String("run_id", runID), zap.Error(err))
	}
}

// runEngine searches one engine and drains the results. Non-blocking mode
// polls the handle at interval.
func runEngine(ctx context.Context, e *search.Engine, query string, maxResults int, nonBlocking bool, interval time.Duration) searchOutcome {
	opts := []search.Option{search.WithMaxResults(maxResults)}
	if nonBlocking {
		opts = append(opts, search.NonBlocking())
	}
	res := e.Search(ctx, query, opts...)
	defer res.Close() //nolint:errcheck

	records, err := search.Collect(ctx, res, interval)
	return searchOutcome{
		Engine:  e.Name(),
		Results: records,
		Stats:   res.Stats(),
		Err:     err,
	}
}

func searchMode(nonBlocking bool) model.SearchMode {
	if nonBlocking {
		return model.SearchModeNonBlocking
	}
	return model.SearchModeBlocking
}
