package model

import "time"

// RunStatus represents the outcome of a recorded search invocation.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// SearchMode records how the results were consumed.
type SearchMode string

const (
	SearchModeBlocking    SearchMode = "blocking"
	SearchModeNonBlocking SearchMode = "nonblocking"
)

// SearchRun is an audit record of one search call. It deliberately carries
// counts only, never the records themselves.
type SearchRun struct {
	ID         string     `json:"id"`
	Engine     string     `json:"engine"`
	Query      string     `json:"query"`
	MaxResults int        `json:"max_results"`
	Mode       SearchMode `json:"mode"`
	Status     RunStatus  `json:"status"`
	Results    int        `json:"results"`
	Pages      int        `json:"pages"`
	Error      string     `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RunOutcome is written back to a run once the search has finished.
type RunOutcome struct {
	Status     RunStatus `json:"status"`
	Results    int       `json:"results"`
	Pages      int       `json:"pages"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}
