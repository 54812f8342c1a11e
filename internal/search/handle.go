package search

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/websearch/internal/model"
)

// Handle is a non-blocking view of a search. A background worker owns the
// session and queues at most one record at a time; Next never blocks.
//
// Dropping the last reference to a Handle stops its worker once the garbage
// collector notices. Close stops it immediately.
type Handle struct {
	st *handleState
}

// handleState is shared by the Handle and its worker. The worker must never
// hold a reference to the Handle itself.
type handleState struct {
	engine string
	poll   time.Duration
	cancel context.CancelFunc

	ch   chan model.SearchResult
	done chan struct{}

	wanted atomic.Bool
	closed atomic.Bool

	pages   atomic.Int64
	yielded atomic.Int64
	ticks   atomic.Int64
	state   atomic.Int32 // last State published by the session

	mu  sync.Mutex
	err error
}

func (e *Engine) startHandle(parent context.Context, query string, o callOptions) *Handle {
	ctx, cancel := context.WithCancel(parent)
	st := &handleState{
		engine: e.Name(),
		poll:   o.pollInterval,
		cancel: cancel,
		ch:     make(chan model.SearchResult, 1),
		done:   make(chan struct{}),
	}
	st.wanted.Store(true)

	s := e.newSession(ctx, query, o)
	s.onState = func(state State) { st.state.Store(int32(state)) }
	go st.run(ctx, s)

	h := &Handle{st: st}
	runtime.AddCleanup(h, func(st *handleState) { st.stop() }, st)
	return h
}

func (st *handleState) stop() {
	st.wanted.Store(false)
	st.cancel()
}

// run advances the session only while the queue is empty. The error slot is
// written and done is closed before the channel is closed, so a reader that
// sees the close also sees the error and the final state.
func (st *handleState) run(ctx context.Context, s *Session) {
	var err error
	defer func() {
		st.mu.Lock()
		st.err = err
		st.mu.Unlock()
		st.cancel()
		close(st.done)
		close(st.ch)
	}()

	for {
		st.ticks.Add(1)
		if !st.wanted.Load() {
			err = ErrClosed
			return
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}

		if len(st.ch) > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(st.poll):
			}
			continue
		}

		r, nerr := s.Next()
		st.pages.Store(int64(s.pagesFetched))
		if nerr != nil {
			err = nerr
			if !st.wanted.Load() {
				err = ErrClosed
			}
			return
		}
		// Sole producer and the queue is empty, so this cannot block.
		st.ch <- r
	}
}

func (st *handleState) failure() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Next returns a queued record, ErrNotReady when the worker has not produced
// one yet, or the error that ended the search.
func (h *Handle) Next() (model.SearchResult, error) {
	st := h.st
	if st.closed.Load() {
		return model.SearchResult{}, ErrClosed
	}
	select {
	case r, ok := <-st.ch:
		if !ok {
			return model.SearchResult{}, st.failure()
		}
		st.yielded.Add(1)
		return r, nil
	default:
		return model.SearchResult{}, ErrNotReady
	}
}

// Stats returns the progress seen so far. Yielded counts records handed to
// the caller, not records produced by the worker.
func (h *Handle) Stats() Stats {
	st := h.st
	stats := Stats{
		Engine:  st.engine,
		Pages:   int(st.pages.Load()),
		Yielded: int(st.yielded.Load()),
		State:   State(st.state.Load()),
	}
	if st.closed.Load() {
		stats.State = StateClosed
		return stats
	}
	select {
	case <-st.done:
		switch err := st.failure(); {
		case errors.Is(err, ErrExhausted):
			stats.State = StateExhausted
		case errors.Is(err, ErrClosed):
			stats.State = StateClosed
		default:
			stats.State = StateFailed
		}
	default:
	}
	return stats
}

// Done is closed when the worker has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.st.done
}

// Close stops the worker. Later calls to Next return ErrClosed.
func (h *Handle) Close() error {
	h.st.closed.Store(true)
	h.st.stop()
	return nil
}

// Collect drains r, sleeping interval whenever a non-blocking result is not
// ready. It returns the records gathered before exhaustion or failure.
func Collect(ctx context.Context, r Results, interval time.Duration) ([]model.SearchResult, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	var out []model.SearchResult
	for {
		rec, err := r.Next()
		switch {
		case err == nil:
			out = append(out, rec)
		case errors.Is(err, ErrExhausted):
			return out, nil
		case errors.Is(err, ErrNotReady):
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(interval):
			}
		default:
			return out, err
		}
	}
}
