// Package pipeline orchestrates one run: fetch every arena's listing,
// scrape details, reconcile against the previous snapshot, emit feeds,
// and record the run's outcome. Arenas are processed sequentially;
// detail scrapes within an arena run concurrently.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/retea-se/pag/internal/arena"
	"github.com/retea-se/pag/internal/config"
	"github.com/retea-se/pag/internal/event"
	"github.com/retea-se/pag/internal/feed"
	"github.com/retea-se/pag/internal/fetch"
	"github.com/retea-se/pag/internal/logger"
	"github.com/retea-se/pag/internal/reconcile"
	"github.com/retea-se/pag/internal/status"
	"github.com/retea-se/pag/internal/storage"
	"github.com/retea-se/pag/internal/ticketmaster"
	"github.com/retea-se/pag/internal/urlcheck"
)

// Process exit codes.
const (
	ExitSuccess = 0 // full success
	ExitFatal   = 1 // listing failure or run timeout
	ExitPartial = 2 // some detail scrapes failed
)

// Pipeline wires the run's collaborators.
type Pipeline struct {
	cfg      *config.Config
	store    *storage.Storage
	recorder *status.Recorder
	mapper   *arena.Mapper
	engine   *reconcile.Engine
	emitter  *feed.Emitter
	tm       *ticketmaster.Client
	metrics  *logger.Metrics
}

// New builds a Pipeline from the run configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	metrics := logger.NewMetrics()
	client := fetch.New(cfg.FetchTimeout(), cfg.Fetch.Retries)
	validator := urlcheck.New(cfg.AllowedDomains())
	loc := cfg.Location()

	return &Pipeline{
		cfg:      cfg,
		store:    store,
		recorder: status.NewRecorder(store),
		mapper:   arena.NewMapper(cfg, client, validator, metrics),
		engine:   reconcile.New(cfg.Reconcile, loc),
		emitter:  feed.NewEmitter(cfg.BaseURL, loc),
		tm:       ticketmaster.New(client, cfg.TicketmasterKey, loc),
		metrics:  metrics,
	}, nil
}

// collected is the outcome of the fetch+scrape phase.
type collected struct {
	records []*event.EventRecord
	issues  []arena.ScrapeIssue
	errors  []string // per-arena critical failures
}

// Run executes one full pipeline pass and returns the process exit
// code. The run races a wall-clock ceiling; on timeout it is abandoned
// and the failure is still recorded best-effort.
func (p *Pipeline) Run(ctx context.Context) int {
	start := time.Now()
	st := status.NewRunStatus(start)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout())
	defer cancel()

	logger.Info("run started", logger.Fields{
		"runId":  st.RunID,
		"arenas": len(p.cfg.Arenas),
	})

	previous, err := p.store.LoadSnapshot()
	if err != nil {
		logger.Warn("previous snapshot unreadable, starting from empty state", logger.Fields{"error": err.Error()})
		previous = &event.Snapshot{}
	}

	done := make(chan *collected, 1)
	go func() { done <- p.collect(ctx) }()

	var col *collected
	select {
	case col = <-done:
	case <-ctx.Done():
		logger.Error("run timeout exceeded, abandoning", logger.Fields{"runId": st.RunID}, ctx.Err())
		st.Status = status.StatusError
		st.Errors = append(st.Errors, fmt.Sprintf("run timeout after %s", p.cfg.RunTimeout()))
		st.Finish(start, time.Now())
		p.recorder.RecordFailure(st)
		return ExitFatal
	}

	now := time.Now()
	reconciled := p.engine.Reconcile(col.records, previous, now)
	diff := reconcile.Diff(previous, reconciled)

	if err := p.emit(reconciled, diff, now); err != nil {
		logger.Error("writing outputs failed", logger.Fields{"runId": st.RunID}, err)
		st.Status = status.StatusError
		st.Errors = append(st.Errors, err.Error())
		st.Finish(start, time.Now())
		p.recorder.RecordFailure(st)
		return ExitFatal
	}

	p.fillStatus(st, reconciled, diff, col)
	st.Finish(start, time.Now())

	exit := ExitSuccess
	switch {
	case len(col.errors) > 0:
		st.Status = status.StatusError
		exit = ExitFatal
	case len(col.issues) > 0:
		st.Status = status.StatusWarning
		exit = ExitPartial
	}

	if err := p.recorder.Record(st); err != nil {
		logger.Error("recording run status failed", logger.Fields{"runId": st.RunID}, err)
		return ExitFatal
	}

	p.logSummary(st, reconciled)
	return exit
}

// collect runs the sequential per-arena fetch+scrape phase. A failing
// arena contributes zero events; the remaining arenas still process.
func (p *Pipeline) collect(ctx context.Context) *collected {
	col := &collected{}

	for _, a := range p.cfg.Arenas {
		records, issues, err := p.mapper.MapArena(ctx, a)
		if err != nil {
			msg := fmt.Sprintf("arena %s: %v", a.ID, err)
			if fetch.IsKind(err, fetch.KindParse) {
				msg = fmt.Sprintf("arena %s: listing returned malformed JSON: %v", a.ID, err)
			}
			logger.Error("arena listing failed", logger.Fields{"arena": a.ID}, err)
			col.errors = append(col.errors, msg)
			continue
		}

		p.tm.Enrich(ctx, a, records)

		col.records = append(col.records, records...)
		col.issues = append(col.issues, issues...)
	}

	return col
}

// emit writes the snapshot and the twelve period×format feed files.
func (p *Pipeline) emit(events []*event.EventRecord, diff *reconcile.DiffResult, now time.Time) error {
	if err := p.store.SaveSnapshot(event.NewSnapshot(events, now)); err != nil {
		return err
	}

	for _, period := range feed.Periods() {
		visible := p.emitter.Filter(events, period, now)
		removed := p.emitter.Filter(diff.RemovedRecords, period, now)

		rss := p.emitter.RSS(visible, period, now)
		if err := p.store.WriteFile(fmt.Sprintf("rss-%s.xml", period), []byte(rss)); err != nil {
			return err
		}

		ics := p.emitter.ICS(visible, removed, period, now)
		if err := p.store.WriteFile(fmt.Sprintf("calendar-%s.ics", period), []byte(ics)); err != nil {
			return err
		}

		jf, err := p.emitter.JSONFeed(visible, period)
		if err != nil {
			return err
		}
		if err := p.store.WriteFile(fmt.Sprintf("feed-%s.json", period), jf); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) fillStatus(st *status.RunStatus, events []*event.EventRecord, diff *reconcile.DiffResult, col *collected) {
	st.EventCount = len(events)
	st.AddedCount = diff.AddedCount
	st.UpdatedCount = diff.UpdatedCount
	st.RemovedCount = diff.RemovedCount
	st.Changes = diff
	st.ScrapeIssues = col.issues
	st.ScrapeStats = p.metrics.Snapshot()
	st.Errors = append(st.Errors, col.errors...)

	st.ArenaCounts = make(map[string]int)
	for _, rec := range events {
		st.ArenaCounts[rec.ArenaID]++
	}
}

func (p *Pipeline) logSummary(st *status.RunStatus, events []*event.EventRecord) {
	withDate := 0
	titles := make(map[string]bool)
	multiShow := make(map[string]bool)
	for _, rec := range events {
		if rec.EventDate != "" {
			withDate++
		}
		titles[strings.ToLower(rec.Title)] = true
		if rec.TotalPerformances > 1 {
			multiShow[strings.ToLower(rec.Title)] = true
		}
	}

	logger.Info("run finished", logger.Fields{
		"runId":        st.RunID,
		"status":       st.Status,
		"durationMs":   st.DurationMS,
		"events":       len(events),
		"uniqueTitles": len(titles),
		"withDate":     withDate,
		"withoutDate":  len(events) - withDate,
		"multiShow":    len(multiShow),
		"added":        st.AddedCount,
		"updated":      st.UpdatedCount,
		"removed":      st.RemovedCount,
		"arenaCounts":  st.ArenaCounts,
	})
}
