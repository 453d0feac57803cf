package event

import (
	"fmt"
	"strings"
	"time"
)

// Arena describes one of the venues whose listings are aggregated.
// The set of arenas is fixed at process start and never mutated.
type Arena struct {
	ID                   string   `yaml:"id" json:"id"`
	Name                 string   `yaml:"name" json:"name"`
	APIURL               string   `yaml:"api_url" json:"apiUrl"`
	Website              string   `yaml:"website" json:"website"`
	Color                string   `yaml:"color" json:"color"`
	AllowedHosts         []string `yaml:"allowed_hosts" json:"allowedHosts"`
	HomeTeams            []string `yaml:"home_teams,omitempty" json:"homeTeams,omitempty"`
	TicketmasterVenueIDs []string `yaml:"ticketmaster_venue_ids,omitempty" json:"ticketmasterVenueIds,omitempty"`
}

// Category maps a venue API numeric category id to display data.
type Category struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon" json:"icon"`
}

// RawListingEntry is the venue API representation of one logical event.
// Only the fields the pipeline consumes are decoded.
type RawListingEntry struct {
	ID    int64 `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Link           string  `json:"link"`
	Slug           string  `json:"slug"`
	EventsCategory []int64 `json:"events_category"`
}

// Performance is one concrete occurrence scraped from a detail page.
// Date is midnight in the arena's local zone; Time is "HH:MM" or empty.
type Performance struct {
	Date     time.Time
	HasDate  bool
	Time     string
	Opponent string
}

// UnconfirmedTime is the sentinel the venue sites publish before a
// start time is announced. It must be kept, flagged as unconfirmed,
// rather than dropped.
const UnconfirmedTime = "00:00"

// TimeConfirmed reports whether the performance carries a real,
// announced start time.
func (p Performance) TimeConfirmed() bool {
	return p.Time != "" && p.Time != UnconfirmedTime
}

// EventRecord is the persisted unit: one performance of one listing.
type EventRecord struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Arena             string `json:"arena"`
	ArenaID           string `json:"arenaId"`
	ArenaColor        string `json:"arenaColor"`
	Link              string `json:"link"`
	Category          int64  `json:"category"`
	CategoryName      string `json:"categoryName"`
	CategoryIcon      string `json:"categoryIcon"`
	Slug              string `json:"slug"`
	EventDate         string `json:"eventDate"` // RFC3339 instant or empty
	EventTime         string `json:"eventTime"` // "HH:MM" or empty
	TimeConfirmed     bool   `json:"timeConfirmed"`
	Opponent          string `json:"opponent,omitempty"`
	PerformanceNumber int    `json:"performanceNumber,omitempty"`
	TotalPerformances int    `json:"totalPerformances,omitempty"`
}

// RecordID builds the deterministic record id. The id is stable across
// runs for the same logical performance: arena id + source id, with a
// 1-based performance suffix when a listing expands to several shows.
func RecordID(arenaID string, sourceID int64, perfIndex, totalPerfs int) string {
	if totalPerfs > 1 {
		return fmt.Sprintf("%s-%d-%d", arenaID, sourceID, perfIndex)
	}
	return fmt.Sprintf("%s-%d", arenaID, sourceID)
}

// DedupKey identifies "the same event" across independently scraped
// arena sources: lowercased title plus the calendar day in loc.
// The day must be taken in the arenas' timezone, not UTC: a timeless
// performance is stored as local midnight, which lands on the previous
// UTC day and would otherwise never collide with a timed record of the
// same show.
func (e *EventRecord) DedupKey(loc *time.Location) string {
	date := "no-date"
	if day, ok := e.Day(loc); ok {
		date = day.Format("2006-01-02")
	}
	return strings.ToLower(strings.TrimSpace(e.Title)) + "-" + date
}

// DiffKey identifies a record across runs for change detection.
func (e *EventRecord) DiffKey() string {
	return e.ID + "|" + e.EventDate
}

// Day returns the record's calendar day in loc, or false when dateless.
func (e *EventRecord) Day(loc *time.Location) (time.Time, bool) {
	t, ok := e.Start()
	if !ok {
		return time.Time{}, false
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

// Start returns the record's start instant, or false when dateless.
func (e *EventRecord) Start() (time.Time, bool) {
	if e.EventDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, e.EventDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Snapshot is the full persisted state of one run, and the input for
// the next run's reconciliation.
type Snapshot struct {
	LastUpdated string         `json:"lastUpdated"`
	EventCount  int            `json:"eventCount"`
	Events      []*EventRecord `json:"events"`
}

// NewSnapshot wraps a reconciled event list with its metadata.
func NewSnapshot(events []*EventRecord, now time.Time) *Snapshot {
	return &Snapshot{
		LastUpdated: now.UTC().Format(time.RFC3339),
		EventCount:  len(events),
		Events:      events,
	}
}
