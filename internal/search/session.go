package search

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/websearch/internal/model"
)

// State is the lifecycle position of a search.
type State int

const (
	StateInit State = iota
	StateFetchingFirstPage
	StateDraining
	StateFetchingNextPage
	StateExhausted
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetchingFirstPage:
		return "fetching_first_page"
	case StateDraining:
		return "draining"
	case StateFetchingNextPage:
		return "fetching_next_page"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Done reports whether no further records will be produced.
func (s State) Done() bool {
	return s == StateExhausted || s == StateFailed || s == StateClosed
}

// Stats is a snapshot of a search's progress.
type Stats struct {
	Engine  string `json:"engine"`
	Pages   int    `json:"pages"`
	Yielded int    `json:"yielded"`
	State   State  `json:"state"`
}

// Session is a blocking, single-goroutine search over one provider. It is
// not safe for concurrent use.
type Session struct {
	engine     *Engine
	ctx        context.Context
	query      string
	headers    http.Header
	maxResults int

	pagesFetched int
	lastPage     []model.SearchResult
	buffer       []model.SearchResult
	yielded      int
	state        State
	err          error

	// onState, when set, observes every state change.
	onState func(State)
}

func (e *Engine) newSession(ctx context.Context, query string, o callOptions) *Session {
	return &Session{
		engine:     e,
		ctx:        ctx,
		query:      query,
		headers:    o.headers,
		maxResults: o.maxResults,
		state:      StateInit,
	}
}

func (s *Session) setState(st State) {
	s.state = st
	if s.onState != nil {
		s.onState(st)
	}
}

// Next returns the next record, fetching a page when the buffer is empty.
// Once the session fails, every later call returns the same error.
func (s *Session) Next() (model.SearchResult, error) {
	for {
		switch s.state {
		case StateExhausted:
			return model.SearchResult{}, ErrExhausted
		case StateFailed:
			return model.SearchResult{}, s.err
		case StateClosed:
			return model.SearchResult{}, ErrClosed
		}

		if s.yielded >= s.maxResults {
			s.setState(StateExhausted)
			continue
		}
		if len(s.buffer) > 0 {
			r := s.buffer[0]
			s.buffer = s.buffer[1:]
			s.yielded++
			return r, nil
		}
		if err := s.fetchPage(); err != nil {
			s.err = err
			s.setState(StateFailed)
			zap.L().Debug("search failed",
				zap.String("engine", s.engine.Name()),
				zap.Int("page", s.pagesFetched),
				zap.Error(err),
			)
		}
	}
}

// fetchPage retrieves and extracts the next page. It leaves the session
// Draining with a refilled buffer, or Exhausted when the page ends the
// sequence.
func (s *Session) fetchPage() error {
	p := s.engine.provider

	var url string
	if s.pagesFetched == 0 {
		s.setState(StateFetchingFirstPage)
		url = p.QueryURL(s.query)
	} else {
		s.setState(StateFetchingNextPage)
		var err error
		url, err = p.PageURL(s.query, s.pagesFetched)
		if err != nil {
			return err
		}
	}

	page, err := s.engine.fetch(s.ctx, url, s.headers)
	if err != nil {
		return err
	}
	records := p.Extract(page)
	s.pagesFetched++

	zap.L().Debug("search page fetched",
		zap.String("engine", p.Name()),
		zap.String("url", url),
		zap.Int("page", s.pagesFetched),
		zap.Int("records", len(records)),
	)

	// An engine that ignores the page parameter serves the same page again.
	if len(records) == 0 || slices.Equal(records, s.lastPage) {
		s.setState(StateExhausted)
		return nil
	}
	s.lastPage = records
	s.buffer = records
	s.setState(StateDraining)
	return nil
}

// All returns the remaining records as a range-over-func sequence. The
// sequence ends at exhaustion; a failure is yielded once as the final pair.
func (s *Session) All() iter.Seq2[model.SearchResult, error] {
	return func(yield func(model.SearchResult, error) bool) {
		for {
			r, err := s.Next()
			if errors.Is(err, ErrExhausted) || errors.Is(err, ErrClosed) {
				return
			}
			if err != nil {
				yield(model.SearchResult{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Stats returns the session's progress.
func (s *Session) Stats() Stats {
	return Stats{
		Engine:  s.engine.Name(),
		Pages:   s.pagesFetched,
		Yielded: s.yielded,
		State:   s.state,
	}
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error { return s.err }

// Close ends the session. Later calls to Next return ErrClosed.
func (s *Session) Close() error {
	s.setState(StateClosed)
	return nil
}
