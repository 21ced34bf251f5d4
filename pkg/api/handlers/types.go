package handlers

import "time"

// StatusResponse is the body of GET /status
type StatusResponse struct {
	Running bool         `json:"running"`
	Leader  bool         `json:"leader"`
	NextRun *time.Time   `json:"next_run,omitempty"`
	LastRun *RunResponse `json:"last_run,omitempty"`
}

// RunResponse describes a finished run
type RunResponse struct {
	FinishedAt      time.Time `json:"finished_at"`
	Error           string    `json:"error,omitempty"`
	RunID           string    `json:"run_id,omitempty"`
	Considered      int       `json:"considered"`
	Selected        int       `json:"selected"`
	Optimized       int       `json:"optimized"`
	Enqueued        int       `json:"enqueued"`
	Failed          int       `json:"failed"`
	Skipped         int       `json:"skipped"`
	DryRun          bool      `json:"dry_run"`
	FailedIndices   []string  `json:"failed_indices,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// DecisionResponse describes the decision made for one index
type DecisionResponse struct {
	Index         string     `json:"index"`
	Outcome       string     `json:"outcome"`
	Granularity   string     `json:"granularity,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Cutoff        *time.Time `json:"cutoff,omitempty"`
	OffsetSeconds *float64   `json:"offset_seconds,omitempty"`
	Message       string     `json:"message"`
}
