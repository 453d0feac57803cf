// Package arena turns one arena's listing API response into normalized
// event records, enriching each entry with dates, times and opponents
// scraped from its detail page.
package arena

import (
	"context"
	"strings"
	"time"

	"github.com/retea-se/pag/internal/config"
	"github.com/retea-se/pag/internal/event"
	"github.com/retea-se/pag/internal/fetch"
	"github.com/retea-se/pag/internal/logger"
	"github.com/retea-se/pag/internal/pool"
	"github.com/retea-se/pag/internal/scrape"
)

// LinkValidator is the pre-flight check applied to detail-page URLs
// before scraping. Satisfied by urlcheck.Validator.
type LinkValidator interface {
	Validate(rawURL string) bool
}

// DefaultCategoryID is assigned when a listing carries no category.
const DefaultCategoryID = 26

// ScrapeIssue records one non-fatal detail-scrape failure. Issues are
// accumulated and reported after the arena pass settles; they never
// abort the run.
type ScrapeIssue struct {
	ArenaID string `json:"arenaId"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Mapper maps raw listing entries to event records for one run.
type Mapper struct {
	client     *fetch.Client
	validator  LinkValidator
	extractor  *scrape.Extractor
	categories map[int64]event.Category
	filter     config.FilterConfig
	parallel   int
	delay      time.Duration
	metrics    *logger.Metrics
	loc        *time.Location
}

// NewMapper wires a Mapper from the run configuration and shared
// collaborators.
func NewMapper(cfg *config.Config, client *fetch.Client, validator LinkValidator, metrics *logger.Metrics) *Mapper {
	loc := cfg.Location()
	return &Mapper{
		client:     client,
		validator:  validator,
		extractor:  scrape.New(loc),
		categories: cfg.Categories,
		filter:     cfg.Filter,
		parallel:   cfg.Fetch.MaxParallel,
		delay:      cfg.ScrapeDelay(),
		metrics:    metrics,
		loc:        loc,
	}
}

// MapArena fetches an arena's listing and expands it into records.
// A listing-level failure is returned as an error (the arena
// contributes nothing); individual detail-scrape failures come back as
// issues alongside the dateless records they produced.
func (m *Mapper) MapArena(ctx context.Context, a event.Arena) ([]*event.EventRecord, []ScrapeIssue, error) {
	var raw []event.RawListingEntry
	if err := m.client.GetJSON(ctx, a.APIURL, &raw); err != nil {
		return nil, nil, err
	}

	entries := m.filterEntries(raw)
	logger.Info("fetched arena listing", logger.Fields{
		"arena":    a.ID,
		"total":    len(raw),
		"filtered": len(entries),
	})

	type scraped struct {
		entry        event.RawListingEntry
		title        string
		performances []event.Performance
		issue        *ScrapeIssue
	}

	results := pool.Map(entries, m.parallel, func(entry event.RawListingEntry) (scraped, error) {
		title := event.DecodeTitle(entry.Title.Rendered)
		out := scraped{entry: entry, title: title}

		if !m.validator.Validate(entry.Link) {
			// Blocked URL: no detail available, keep the entry dateless.
			return out, nil
		}

		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			// The run is being abandoned; surface the skipped scrape so
			// a partial timeout is visible in the status record.
			out.issue = &ScrapeIssue{
				ArenaID: a.ID,
				Title:   title,
				URL:     entry.Link,
				Message: "scrape skipped: " + ctx.Err().Error(),
			}
			return out, nil
		}

		start := time.Now()
		res, err := m.client.GetRetry(ctx, entry.Link)
		m.metrics.RecordTiming("scrape.fetch", time.Since(start))
		if err != nil {
			m.metrics.IncrCounter("scrape.fail")
			out.issue = &ScrapeIssue{
				ArenaID: a.ID,
				Title:   title,
				URL:     entry.Link,
				Message: err.Error(),
			}
			return out, nil
		}

		m.metrics.IncrCounter("scrape.ok")
		out.performances = m.extractor.Performances(string(res.Body), a.HomeTeams)
		return out, nil
	})

	var records []*event.EventRecord
	var issues []ScrapeIssue

	for _, r := range results {
		s := r.Value
		if s.issue != nil {
			issues = append(issues, *s.issue)
		}
		records = append(records, m.expand(a, s.entry, s.title, s.performances)...)
	}

	return records, issues, nil
}

// filterEntries drops upsell SKUs the listing APIs mix in with real
// events.
func (m *Mapper) filterEntries(raw []event.RawListingEntry) []event.RawListingEntry {
	entries := make([]event.RawListingEntry, 0, len(raw))
	for _, entry := range raw {
		if m.isUpsell(event.DecodeTitle(entry.Title.Rendered)) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (m *Mapper) isUpsell(title string) bool {
	lower := strings.ToLower(title)
	for _, exact := range m.filter.ExactTitles {
		if lower == strings.ToLower(exact) {
			return true
		}
	}
	for _, sub := range m.filter.TitleContains {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// expand emits one record per performance, or a single dateless record
// when the detail page yielded nothing.
func (m *Mapper) expand(a event.Arena, entry event.RawListingEntry, title string, performances []event.Performance) []*event.EventRecord {
	catID, cat := m.resolveCategory(entry)

	base := func() *event.EventRecord {
		return &event.EventRecord{
			Title:        title,
			Arena:        a.Name,
			ArenaID:      a.ID,
			ArenaColor:   a.Color,
			Link:         entry.Link,
			Category:     catID,
			CategoryName: cat.Name,
			CategoryIcon: cat.Icon,
			Slug:         entry.Slug,
		}
	}

	if len(performances) == 0 {
		rec := base()
		rec.ID = event.RecordID(a.ID, entry.ID, 0, 0)
		return []*event.EventRecord{rec}
	}

	records := make([]*event.EventRecord, 0, len(performances))
	for i, perf := range performances {
		rec := base()
		rec.ID = event.RecordID(a.ID, entry.ID, i+1, len(performances))
		rec.EventDate = m.instant(perf)
		rec.EventTime = perf.Time
		rec.TimeConfirmed = perf.TimeConfirmed()
		rec.Opponent = perf.Opponent
		if len(performances) > 1 {
			rec.PerformanceNumber = i + 1
			rec.TotalPerformances = len(performances)
		}
		records = append(records, rec)
	}
	return records
}

// instant combines a performance's calendar date and wall-clock time
// into an RFC3339 instant.
func (m *Mapper) instant(perf event.Performance) string {
	if !perf.HasDate {
		return ""
	}
	t := perf.Date
	if perf.Time != "" {
		if tm, err := time.Parse("15:04", perf.Time); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), tm.Hour(), tm.Minute(), 0, 0, m.loc)
		}
	}
	return t.UTC().Format(time.RFC3339)
}

// resolveCategory maps the listing's first category id through the
// table, falling back to Sport for hockey slugs and a generic Event
// bucket otherwise.
func (m *Mapper) resolveCategory(entry event.RawListingEntry) (int64, event.Category) {
	catID := int64(DefaultCategoryID)
	if len(entry.EventsCategory) > 0 {
		catID = entry.EventsCategory[0]
	}
	if cat, ok := m.categories[catID]; ok {
		return catID, cat
	}
	if strings.Contains(strings.ToLower(entry.Slug), "hockey") {
		return catID, event.Category{Name: "Sport", Icon: "sport"}
	}
	return catID, event.Category{Name: "Event", Icon: "calendar"}
}
