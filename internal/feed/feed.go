// Package feed renders the reconciled event set into the published
// feed formats (RSS 2.0, iCalendar, JSON Feed 1.1) for each time
// period view.
package feed

import (
	"fmt"
	"time"

	"github.com/retea-se/pag/internal/event"
)

// Period selects a time window over the event set.
type Period string

const (
	PeriodToday    Period = "today"
	PeriodTomorrow Period = "tomorrow"
	PeriodWeek     Period = "week"
	PeriodUpcoming Period = "upcoming"
)

// Periods lists every published period view.
func Periods() []Period {
	return []Period{PeriodToday, PeriodTomorrow, PeriodWeek, PeriodUpcoming}
}

// MaxItems caps each feed to bound file size.
const MaxItems = 100

// channelInfo carries the Swedish presentation strings per period.
var channelInfo = map[Period]struct {
	Title       string
	Description string
}{
	PeriodToday:    {"På G - Idag", "Evenemang i Globenområdet idag"},
	PeriodTomorrow: {"På G - Imorgon", "Evenemang i Globenområdet imorgon"},
	PeriodWeek:     {"På G - Denna vecka", "Evenemang i Globenområdet denna vecka"},
	PeriodUpcoming: {"På G - Kommande", "Kommande evenemang i Globenområdet"},
}

// Emitter renders feeds. It is pure aside from reading the clock the
// caller passes in.
type Emitter struct {
	baseURL string
	loc     *time.Location
}

// NewEmitter creates an Emitter. baseURL is the public URL the feeds
// are served under; loc defines the calendar days for period filters.
func NewEmitter(baseURL string, loc *time.Location) *Emitter {
	return &Emitter{baseURL: baseURL, loc: loc}
}

// Filter returns the events visible in the given period, capped at
// MaxItems. Events are assumed already sorted. Dateless events appear
// only in the upcoming view.
func (em *Emitter) Filter(events []*event.EventRecord, period Period, now time.Time) []*event.EventRecord {
	today := dayOf(now.In(em.loc), em.loc)
	tomorrow := today.AddDate(0, 0, 1)
	weekEnd := today.AddDate(0, 0, 7)

	var out []*event.EventRecord
	for _, rec := range events {
		day, ok := rec.Day(em.loc)
		if !ok {
			if period == PeriodUpcoming {
				out = append(out, rec)
			}
			continue
		}

		include := false
		switch period {
		case PeriodToday:
			include = day.Equal(today)
		case PeriodTomorrow:
			include = day.Equal(tomorrow)
		case PeriodWeek:
			include = !day.Before(today) && day.Before(weekEnd)
		case PeriodUpcoming:
			include = !day.Before(today)
		}
		if include {
			out = append(out, rec)
		}
	}

	if len(out) > MaxItems {
		out = out[:MaxItems]
	}
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// displayTitle builds the presentation title: opponent and
// multi-performance index appended when present.
func displayTitle(rec *event.EventRecord) string {
	title := rec.Title
	if rec.Opponent != "" {
		title += " vs " + rec.Opponent
	}
	if rec.TotalPerformances > 1 {
		title += fmt.Sprintf(" (%d/%d)", rec.PerformanceNumber, rec.TotalPerformances)
	}
	return title
}

var svWeekdays = [...]string{"söndag", "måndag", "tisdag", "onsdag", "torsdag", "fredag", "lördag"}

var svMonths = [...]string{"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december"}

// svDate renders a date the way the arena sites do: "fredag 9 januari
// 2026".
func svDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d", svWeekdays[t.Weekday()], t.Day(), svMonths[t.Month()-1], t.Year())
}
