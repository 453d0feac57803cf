package reconcile

import (
	"testing"
	"time"

	"github.com/retea-se/pag/internal/config"
	"github.com/retea-se/pag/internal/event"
)

var stockholm = mustLoc("Europe/Stockholm")

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func testEngine() *Engine {
	return New(config.ReconcileConfig{
		RetentionDays:    2,
		PreferredArenaID: "hovet",
		OpponentWeight:   10,
		TimeWeight:       5,
		PreferredWeight:  1,
	}, stockholm)
}

func TestDedupeKeepsMostComplete(t *testing.T) {
	// The end-to-end scenario: two arenas list the same hockey night;
	// the one with opponent and time data must win.
	sparse := &event.EventRecord{
		ID: "avicii-arena-1", Title: "Hockey Night", ArenaID: "avicii-arena",
		EventDate: "2026-02-01T12:00:00Z",
	}
	rich := &event.EventRecord{
		ID: "hovet-2", Title: "Hockey Night", ArenaID: "hovet",
		EventDate: "2026-02-01T18:00:00Z", EventTime: "19:00",
		TimeConfirmed: true, Opponent: "Rögle",
	}
	other := &event.EventRecord{
		ID: "annexet-3", Title: "Standup", ArenaID: "annexet",
		EventDate: "2026-02-01T19:00:00Z",
	}

	unique := testEngine().Dedupe([]*event.EventRecord{sparse, rich, other})

	if len(unique) != 2 {
		t.Fatalf("Dedupe() kept %d records, want 2", len(unique))
	}
	for _, rec := range unique {
		if rec.Title == "Hockey Night" && rec.ID != "hovet-2" {
			t.Errorf("Dedupe() kept %s, want the hovet record with opponent data", rec.ID)
		}
	}
}

func TestDedupeLocalMidnightMatchesTimedRecord(t *testing.T) {
	// A listing without an announced time is stored as local midnight,
	// 23:00 UTC the previous day. It must still collapse against a
	// timed record of the same show on the same Stockholm day.
	timeless := &event.EventRecord{
		ID: "avicii-arena-1", Title: "Hockey Night", ArenaID: "avicii-arena",
		EventDate: "2026-01-31T23:00:00Z",
	}
	timed := &event.EventRecord{
		ID: "hovet-2", Title: "Hockey Night", ArenaID: "hovet",
		EventDate: "2026-02-01T18:00:00Z", EventTime: "19:00",
		TimeConfirmed: true, Opponent: "Rögle",
	}

	unique := testEngine().Dedupe([]*event.EventRecord{timeless, timed})
	if len(unique) != 1 {
		t.Fatalf("Dedupe() kept %d records, want 1", len(unique))
	}
	if unique[0].ID != "hovet-2" {
		t.Errorf("Dedupe() kept %s, want the timed hovet record", unique[0].ID)
	}
}

func TestDedupePreferredArenaBreaksTies(t *testing.T) {
	a := &event.EventRecord{ID: "annexet-1", Title: "Gala", ArenaID: "annexet", EventDate: "2026-03-01T18:00:00Z"}
	b := &event.EventRecord{ID: "hovet-1", Title: "Gala", ArenaID: "hovet", EventDate: "2026-03-01T18:00:00Z"}

	unique := testEngine().Dedupe([]*event.EventRecord{a, b})
	if len(unique) != 1 || unique[0].ID != "hovet-1" {
		t.Errorf("Dedupe() = %+v, want only the preferred-arena record", unique)
	}
}

func TestDedupeDistinctDatesKept(t *testing.T) {
	a := &event.EventRecord{ID: "x-1", Title: "Tour", EventDate: "2026-03-01T18:00:00Z"}
	b := &event.EventRecord{ID: "x-2", Title: "Tour", EventDate: "2026-03-02T18:00:00Z"}

	if unique := testEngine().Dedupe([]*event.EventRecord{a, b}); len(unique) != 2 {
		t.Errorf("Dedupe() collapsed records with different dates, want both kept")
	}
}

func TestRetainedWithinWindow(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	yesterday := &event.EventRecord{ID: "hovet-1", Title: "Yesterday Show",
		EventDate: now.AddDate(0, 0, -1).Format(time.RFC3339)}
	threeDaysAgo := &event.EventRecord{ID: "hovet-2", Title: "Old Show",
		EventDate: now.AddDate(0, 0, -3).Format(time.RFC3339)}
	future := &event.EventRecord{ID: "hovet-3", Title: "Future Show",
		EventDate: now.AddDate(0, 0, 5).Format(time.RFC3339)}
	dateless := &event.EventRecord{ID: "hovet-4", Title: "Dateless Show"}

	previous := &event.Snapshot{Events: []*event.EventRecord{yesterday, threeDaysAgo, future, dateless}}

	retained := testEngine().Retained(nil, previous, now)

	if len(retained) != 1 {
		t.Fatalf("Retained() kept %d records, want 1", len(retained))
	}
	if retained[0].ID != "hovet-1" {
		t.Errorf("Retained() kept %s, want the within-window record hovet-1", retained[0].ID)
	}
}

func TestRetainedSkipsPresentKeys(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	prevRec := &event.EventRecord{ID: "hovet-1", Title: "Show",
		EventDate: now.AddDate(0, 0, -1).Format(time.RFC3339)}
	// Same dedup key still present in the current run.
	current := []*event.EventRecord{{ID: "hovet-1-x", Title: "Show",
		EventDate: prevRec.EventDate}}

	previous := &event.Snapshot{Events: []*event.EventRecord{prevRec}}
	if retained := testEngine().Retained(current, previous, now); len(retained) != 0 {
		t.Errorf("Retained() carried forward a record whose key is still current")
	}
}

func TestRetainedMatchesTimelessAgainstTimed(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	// Previous run scraped no time (stored as Stockholm midnight);
	// this run found the real one. Same show, same local day: the old
	// record must not be carried forward alongside the new one.
	previous := &event.Snapshot{Events: []*event.EventRecord{
		{ID: "hovet-1", Title: "Hockey Night", EventDate: "2026-01-31T23:00:00Z"},
	}}
	current := []*event.EventRecord{
		{ID: "hovet-1-x", Title: "Hockey Night", EventDate: "2026-02-01T18:00:00Z", EventTime: "19:00"},
	}

	if retained := testEngine().Retained(current, previous, now); len(retained) != 0 {
		t.Errorf("Retained() = %+v, want the timeless record matched and dropped", retained)
	}
}

func TestSortOrder(t *testing.T) {
	events := []*event.EventRecord{
		{ID: "1", Title: "Zebra"},
		{ID: "2", Title: "Late", EventDate: "2026-05-01T18:00:00Z"},
		{ID: "3", Title: "alpha"},
		{ID: "4", Title: "Early", EventDate: "2026-01-01T18:00:00Z"},
	}

	Sort(events)

	wantIDs := []string{"4", "2", "3", "1"}
	for i, want := range wantIDs {
		if events[i].ID != want {
			t.Errorf("events[%d].ID = %s, want %s (dated ascending, then dateless by title)", i, events[i].ID, want)
		}
	}
}

func TestSortSwedishCollation(t *testing.T) {
	// Swedish alphabet ends z, å, ä, ö; å and ä invert under byte
	// comparison of their code points.
	events := []*event.EventRecord{
		{ID: "1", Title: "Örnen"},
		{ID: "2", Title: "Änglagård"},
		{ID: "3", Title: "Årsfest"},
		{ID: "4", Title: "Zebra"},
	}

	Sort(events)

	wantTitles := []string{"Zebra", "Årsfest", "Änglagård", "Örnen"}
	for i, want := range wantTitles {
		if events[i].Title != want {
			t.Errorf("events[%d].Title = %s, want %s", i, events[i].Title, want)
		}
	}
}

func TestReconcileEndToEnd(t *testing.T) {
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	current := []*event.EventRecord{
		{ID: "avicii-arena-1", Title: "Hockey Night", ArenaID: "avicii-arena", EventDate: "2026-02-05T18:00:00Z"},
		{ID: "hovet-2", Title: "Hockey Night", ArenaID: "hovet", EventDate: "2026-02-05T18:00:00Z",
			EventTime: "19:00", TimeConfirmed: true, Opponent: "Rögle"},
	}
	previous := &event.Snapshot{Events: []*event.EventRecord{
		{ID: "annexet-9", Title: "Gone Show", EventDate: "2026-02-01T19:00:00Z"},
	}}

	events := testEngine().Reconcile(current, previous, now)

	if len(events) != 2 {
		t.Fatalf("Reconcile() = %d events, want 2 (deduped pair plus retained)", len(events))
	}
	// Retained passed event sorts first by date.
	if events[0].ID != "annexet-9" {
		t.Errorf("events[0].ID = %s, want the retained annexet-9", events[0].ID)
	}
	if events[1].ID != "hovet-2" {
		t.Errorf("events[1].ID = %s, want the complete hovet-2 record", events[1].ID)
	}
}
