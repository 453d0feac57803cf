// Package reconcile merges per-arena records into one snapshot:
// cross-arena deduplication, carry-forward of recently passed events,
// deterministic ordering, and diffing against the previous run.
package reconcile

import (
	"sort"
	"time"

	"github.com/retea-se/pag/internal/config"
	"github.com/retea-se/pag/internal/event"
	"github.com/retea-se/pag/internal/logger"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Engine applies the reconciliation rules configured for a run.
type Engine struct {
	retention time.Duration
	preferred string
	wOpponent int
	wTime     int
	wArena    int
	loc       *time.Location
}

// New creates an Engine from the reconciliation configuration. loc is
// the arenas' timezone; dedup keys are computed on its calendar days.
func New(cfg config.ReconcileConfig, loc *time.Location) *Engine {
	return &Engine{
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		preferred: cfg.PreferredArenaID,
		wOpponent: cfg.OpponentWeight,
		wTime:     cfg.TimeWeight,
		wArena:    cfg.PreferredWeight,
		loc:       loc,
	}
}

// Reconcile produces the run's final event list: deduplicated across
// arenas, topped up with retained events from the previous snapshot,
// and sorted. now anchors the retention window.
func (e *Engine) Reconcile(current []*event.EventRecord, previous *event.Snapshot, now time.Time) []*event.EventRecord {
	events := e.Dedupe(current)
	events = append(events, e.Retained(events, previous, now)...)
	Sort(events)
	return events
}

// Dedupe collapses records sharing a dedup key, keeping the one with
// the highest completeness score.
func (e *Engine) Dedupe(records []*event.EventRecord) []*event.EventRecord {
	best := make(map[string]*event.EventRecord)
	order := make([]string, 0, len(records))

	for _, rec := range records {
		key := rec.DedupKey(e.loc)
		existing, ok := best[key]
		if !ok {
			best[key] = rec
			order = append(order, key)
			continue
		}
		if e.score(rec) > e.score(existing) {
			best[key] = rec
		}
	}

	unique := make([]*event.EventRecord, 0, len(order))
	for _, key := range order {
		unique = append(unique, best[key])
	}

	if dropped := len(records) - len(unique); dropped > 0 {
		logger.Info("deduplicated cross-arena records", logger.Fields{"dropped": dropped})
	}
	return unique
}

// score ranks record completeness. Opponent data outweighs a confirmed
// time, which outweighs the preferred-arena tiebreak.
func (e *Engine) score(rec *event.EventRecord) int {
	score := 0
	if rec.Opponent != "" {
		score += e.wOpponent
	}
	if rec.EventTime != "" {
		score += e.wTime
	}
	if rec.ArenaID == e.preferred {
		score += e.wArena
	}
	return score
}

// Retained returns previous-snapshot events that already took place
// within the retention window and are absent from the current run.
// The source sites drop events the day after they happen; carrying
// them forward keeps a "yesterday" view populated.
func (e *Engine) Retained(current []*event.EventRecord, previous *event.Snapshot, now time.Time) []*event.EventRecord {
	if previous == nil {
		return nil
	}

	seen := make(map[string]bool, len(current))
	for _, rec := range current {
		seen[rec.DedupKey(e.loc)] = true
	}

	var retained []*event.EventRecord
	for _, rec := range previous.Events {
		if seen[rec.DedupKey(e.loc)] {
			continue
		}
		start, ok := rec.Start()
		if !ok {
			continue
		}
		if !start.Before(now) {
			continue
		}
		if now.Sub(start) >= e.retention {
			continue
		}
		retained = append(retained, rec)
	}

	if len(retained) > 0 {
		logger.Info("retained recently passed events", logger.Fields{"count": len(retained)})
	}
	return retained
}

// Sort orders events with dates ascending; dateless events follow,
// alphabetically by title under Swedish collation (å and ä invert
// under byte order).
func Sort(events []*event.EventRecord) {
	// The collator buffers internally and is not safe for concurrent
	// use, so each Sort gets its own.
	col := collate.New(language.Swedish, collate.IgnoreCase)
	titleLess := func(a, b string) bool {
		if c := col.CompareString(a, b); c != 0 {
			return c < 0
		}
		return a < b
	}

	sort.SliceStable(events, func(i, j int) bool {
		ti, iOK := events[i].Start()
		tj, jOK := events[j].Start()
		switch {
		case iOK && jOK:
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return titleLess(events[i].Title, events[j].Title)
		case iOK:
			return true
		case jOK:
			return false
		default:
			return titleLess(events[i].Title, events[j].Title)
		}
	})
}
