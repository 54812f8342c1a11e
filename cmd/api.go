package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"

	"github.com/sells-group/websearch/internal/model"
	"github.com/sells-group/websearch/internal/registry"
	"github.com/sells-group/websearch/internal/store"
)

// apiHandler serves the search API.
type apiHandler struct {
	reg        *registry.Registry
	st         store.Store // may be nil
	defaultMax int
	maxResults int // upper bound for the max parameter; 0 means none
	poll       time.Duration
}

// buildRouter mounts h behind request IDs, panic recovery and CORS.
func buildRouter(h *apiHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	h.Attach(r)
	return r
}

func (h *apiHandler) Attach(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/engines", h.handleEngines)
		r.Get("/search", h.handleSearch)
		r.Get("/runs", h.handleRuns)
		r.Get("/runs/{id}", h.handleRun)
	})
}

func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	circuits := map[string]string{}
	for name, state := range h.reg.CircuitStates() {
		circuits[name] = state.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"engines":  len(h.reg.Names()),
		"circuits": circuits,
		"history":  h.st != nil,
	})
}

func (h *apiHandler) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engineDefinitions(h.reg))
}

type searchResponse struct {
	Query   string           `json:"query"`
	Engines []engineResponse `json:"engines"`
}

type engineResponse struct {
	Engine  string               `json:"engine"`
	RunID   string               `json:"run_id,omitempty"`
	Results []model.SearchResult `json:"results"`
	Pages   int                  `json:"pages"`
	State   string               `json:"state"`
	Error   string               `json:"error,omitempty"`
}

func newEngineResponse(o searchOutcome) engineResponse {
	resp := engineResponse{
		Engine:  o.Engine,
		RunID:   o.RunID,
		Results: o.Results,
		Pages:   o.Stats.Pages,
		State:   o.Stats.State.String(),
	}
	if resp.Results == nil {
		resp.Results = []model.SearchResult{}
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

func (h *apiHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, eris.New("q is required"))
		return
	}
	engine := q.Get("engine")
	if engine == "" {
		engine = "google"
	}
	maxResults := h.defaultMax
	if raw := q.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, eris.New("max must be a non-negative integer"))
			return
		}
		if h.maxResults > 0 && n > h.maxResults {
			writeError(w, http.StatusBadRequest, eris.Errorf("max must be <= %d", h.maxResults))
			return
		}
		maxResults = n
	}
	nonBlocking, _ := strconv.ParseBool(q.Get("nonblocking"))

	ctx := r.Context()
	var (
		outs []searchOutcome
		err  error
	)
	if engine == engineAll {
		outs, err = searchAll(ctx, h.reg, h.st, query, maxResults)
	} else {
		e, gerr := h.reg.Get(engine)
		if gerr != nil {
			writeError(w, http.StatusNotFound, gerr)
			return
		}
		run := model.SearchRun{Engine: engine, Query: query, MaxResults: maxResults, Mode: searchMode(nonBlocking)}
		outs = []searchOutcome{recordRun(ctx, h.st, run, func() searchOutcome {
			return runEngine(ctx, e, query, maxResults, nonBlocking, h.poll)
		})}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := searchResponse{Query: query, Engines: make([]engineResponse, len(outs))}
	status := http.StatusOK
	for i, o := range outs {
		resp.Engines[i] = newEngineResponse(o)
	}
	// A single engine that failed outright is an upstream error.
	if len(outs) == 1 && outs[0].Err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (h *apiHandler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if h.st == nil {
		writeError(w, http.StatusNotFound, eris.New("run history is disabled"))
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	runs, err := h.st.ListRuns(r.Context(), store.RunFilter{
		Engine: q.Get("engine"),
		Status: model.RunStatus(q.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []model.SearchRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *apiHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	if h.st == nil {
		writeError(w, http.StatusNotFound, eris.New("run history is disabled"))
		return
	}
	run, err := h.st.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
