// Package status records run outcomes: the current status file and the
// append-only, bounded run history.
package status

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/retea-se/pag/internal/arena"
	"github.com/retea-se/pag/internal/logger"
	"github.com/retea-se/pag/internal/reconcile"
	"github.com/retea-se/pag/internal/storage"
)

// Classification of one run.
const (
	StatusSuccess = "success" // everything fetched and scraped
	StatusWarning = "warning" // some detail scrapes failed
	StatusError   = "error"   // a listing failed or the run aborted
)

// HistoryCap bounds the run history; oldest entries are trimmed.
const HistoryCap = 50

// RunStatus summarizes one execution.
type RunStatus struct {
	RunID        string                 `json:"runId"`
	StartedAt    string                 `json:"startedAt"`
	FinishedAt   string                 `json:"finishedAt"`
	DurationMS   int64                  `json:"durationMs"`
	Status       string                 `json:"status"`
	EventCount   int                    `json:"eventCount"`
	ArenaCounts  map[string]int         `json:"arenaCounts,omitempty"`
	AddedCount   int                    `json:"addedCount"`
	UpdatedCount int                    `json:"updatedCount"`
	RemovedCount int                    `json:"removedCount"`
	Changes      *reconcile.DiffResult  `json:"changes,omitempty"`
	ScrapeIssues []arena.ScrapeIssue    `json:"scrapeIssues,omitempty"`
	ScrapeStats  map[string]interface{} `json:"scrapeStats,omitempty"`
	Errors       []string               `json:"errors,omitempty"`
}

// NewRunStatus starts a status record for a run beginning at start.
func NewRunStatus(start time.Time) *RunStatus {
	return &RunStatus{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC().Format(time.RFC3339),
		Status:    StatusSuccess,
	}
}

// Finish stamps the end time and duration.
func (st *RunStatus) Finish(start, end time.Time) {
	st.FinishedAt = end.UTC().Format(time.RFC3339)
	st.DurationMS = end.Sub(start).Milliseconds()
}

// Recorder writes status and history files.
type Recorder struct {
	store *storage.Storage
}

// NewRecorder creates a Recorder on top of the run's storage.
func NewRecorder(store *storage.Storage) *Recorder {
	return &Recorder{store: store}
}

// Record writes status.json and appends the entry to history.json,
// trimming the history to the newest HistoryCap entries.
func (r *Recorder) Record(st *RunStatus) error {
	if err := r.store.WriteJSON(storage.StatusFile, st); err != nil {
		return err
	}
	return r.appendHistory(st)
}

// RecordFailure is the best-effort variant used when the run is
// already failing: it never returns an error and never panics, so the
// primary failure stays the one that gets reported.
func (r *Recorder) RecordFailure(st *RunStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("status write panicked", logger.Fields{"panic": rec}, nil)
		}
	}()
	if r == nil || r.store == nil || st == nil {
		return
	}
	if err := r.Record(st); err != nil {
		logger.Error("best-effort status write failed", nil, err)
	}
}

func (r *Recorder) appendHistory(st *RunStatus) error {
	var history []*RunStatus
	if err := r.store.ReadJSON(storage.HistoryFile, &history); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("run history unreadable, starting fresh", logger.Fields{"error": err.Error()})
		}
		history = nil
	}

	// History entries keep the counts but not the bulky per-run detail.
	entry := *st
	entry.Changes = nil
	entry.ScrapeIssues = nil

	history = append(history, &entry)
	if len(history) > HistoryCap {
		history = history[len(history)-HistoryCap:]
	}

	return r.store.WriteJSON(storage.HistoryFile, history)
}
