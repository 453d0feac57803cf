// Package scrape extracts performance dates and times from venue
// detail pages. The pages are WordPress themes with a list of show
// dates; each list item is scanned independently so multi-show
// listings expand into one performance per date/time pair.
package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/retea-se/pag/internal/event"
)

// swedishMonths maps the local-language month names the venue sites
// publish to calendar months. Matching is case-insensitive.
var swedishMonths = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"mars":      time.March,
	"april":     time.April,
	"maj":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"augusti":   time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"december":  time.December,
}

var (
	dateRe     = regexp.MustCompile(`(\d{1,2})\s+([a-zåäöA-ZÅÄÖ]+)\s+(\d{4})`)
	timeRe     = regexp.MustCompile(`\b(\d{1,2})[.:](\d{2})\b`)
	fallbackRe = regexp.MustCompile(`(?i)(?:showstart|kl\.?)\s*(\d{1,2}[.:]\d{2})`)
)

// Extractor parses detail-page HTML into performances. Dates are
// produced as midnight in loc; the caller combines them with times.
type Extractor struct {
	loc *time.Location
}

// New creates an Extractor producing dates in loc.
func New(loc *time.Location) *Extractor {
	return &Extractor{loc: loc}
}

// Performances extracts every date/time occurrence from html.
// homeTeams enables opponent capture for arenas hosting team sports:
// a list item reading "<home team> - <opponent>" attaches the opponent
// to each performance from that item.
//
// A time of 00:00 is the sites' "not yet announced" placeholder and is
// kept as an unconfirmed time rather than discarded.
func (e *Extractor) Performances(html string, homeTeams []string) []event.Performance {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return e.fallback(html, homeTeams)
	}

	var performances []event.Performance

	doc.Find("li").Each(func(i int, sel *goquery.Selection) {
		// Nested lists would double-count; only leaf items carry dates.
		if sel.Find("li").Length() > 0 {
			return
		}

		text := sel.Text()
		date, ok := e.parseDate(text)
		if !ok {
			return
		}

		opponent := findOpponent(text, homeTeams)

		times := e.itemTimes(sel)
		if len(times) == 0 {
			performances = append(performances, event.Performance{
				Date:     date,
				HasDate:  true,
				Opponent: opponent,
			})
			return
		}
		for _, tm := range times {
			performances = append(performances, event.Performance{
				Date:     date,
				HasDate:  true,
				Time:     tm,
				Opponent: opponent,
			})
		}
	})

	if len(performances) == 0 {
		return e.fallback(html, homeTeams)
	}
	return performances
}

// itemTimes collects the time markers inside one list item. The themes
// wrap announced times in span.time; older pages leave them inline in
// the text, so both are scanned.
func (e *Extractor) itemTimes(sel *goquery.Selection) []string {
	var times []string
	seen := make(map[string]bool)

	add := func(raw string) {
		if tm, ok := normalizeTime(raw); ok && !seen[tm] {
			seen[tm] = true
			times = append(times, tm)
		}
	}

	sel.Find("span.time").Each(func(i int, ts *goquery.Selection) {
		if m := timeRe.FindString(ts.Text()); m != "" {
			add(m)
		}
	})
	if len(times) > 0 {
		return times
	}

	// No structured markers: scan the item's text, skipping anything
	// inside the date phrase itself.
	text := dateRe.ReplaceAllString(sel.Text(), "")
	for _, m := range timeRe.FindAllString(text, -1) {
		add(m)
	}
	return times
}

// fallback is the coarse single-performance path for pages without a
// recognizable date list: the first parseable date inside emphasis
// markup, optionally paired with one "kl. HH:MM"-style marker found
// anywhere in the document.
func (e *Extractor) fallback(html string, homeTeams []string) []event.Performance {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var perf []event.Performance
	doc.Find("strong, b, em").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		date, ok := e.parseDate(sel.Text())
		if !ok {
			return true
		}

		p := event.Performance{Date: date, HasDate: true, Opponent: findOpponent(html, homeTeams)}
		if m := fallbackRe.FindStringSubmatch(html); m != nil {
			if tm, ok := normalizeTime(m[1]); ok {
				p.Time = tm
			}
		}
		perf = append(perf, p)
		return false
	})
	return perf
}

// parseDate finds the first "<day> <month-name> <year>" phrase in text
// and resolves it against the Swedish month table.
func (e *Extractor) parseDate(text string) (time.Time, bool) {
	for _, m := range dateRe.FindAllStringSubmatch(text, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		month, ok := swedishMonths[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		year, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		return time.Date(year, month, day, 0, 0, 0, 0, e.loc), true
	}
	return time.Time{}, false
}

// normalizeTime turns "19.30", "9:00" etc into zero-padded "HH:MM".
func normalizeTime(raw string) (string, bool) {
	m := timeRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return "", false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// findOpponent captures the away team from "<home team> - <opponent>"
// markup, using any dash variant the sites publish.
func findOpponent(text string, homeTeams []string) string {
	for _, team := range homeTeams {
		if team == "" {
			continue
		}
		re, err := opponentRe(team)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func opponentRe(team string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + regexp.QuoteMeta(team) + `\s*[–—-]\s*([^<>\n,.!?]+)`)
}
