package ticketmaster

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/retea-se/pag/internal/event"
	"github.com/retea-se/pag/internal/fetch"
)

var stockholm = mustLoc("Europe/Stockholm")

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

const discoveryJSON = `{
	"_embedded": {
		"events": [
			{"name": "Concert", "dates": {"start": {"localDate": "2026-03-05", "localTime": "19:30:00"}}},
			{"name": "No Time Yet", "dates": {"start": {"localDate": "2026-03-06"}}}
		]
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(fetch.New(2*time.Second, 0), "test-key", stockholm)
	c.baseURL = srv.URL
	return c
}

func TestEnabled(t *testing.T) {
	if New(nil, "", stockholm).Enabled() {
		t.Error("Enabled() = true without an API key")
	}
	if !New(nil, "key", stockholm).Enabled() {
		t.Error("Enabled() = false with an API key")
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("Enabled() = true on nil client")
	}
}

func TestVenueEventsRequest(t *testing.T) {
	var gotQuery map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"apikey":      r.URL.Query().Get("apikey"),
			"venueId":     r.URL.Query().Get("venueId"),
			"countryCode": r.URL.Query().Get("countryCode"),
		}
		io.WriteString(w, discoveryJSON)
	})

	matches, err := c.VenueEvents(context.Background(), []string{"v1", "v2"})
	if err != nil {
		t.Fatalf("VenueEvents() error = %v", err)
	}

	if gotQuery["apikey"] != "test-key" || gotQuery["venueId"] != "v1,v2" || gotQuery["countryCode"] != "SE" {
		t.Errorf("request query = %+v", gotQuery)
	}
	if len(matches) != 2 {
		t.Fatalf("VenueEvents() = %d matches, want 2", len(matches))
	}
	if matches[0].LocalTime != "19:30" {
		t.Errorf("LocalTime = %q, want seconds stripped", matches[0].LocalTime)
	}
}

func TestEnrichBackfillsUnconfirmedTimes(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, discoveryJSON)
	})

	a := event.Arena{ID: "hovet", TicketmasterVenueIDs: []string{"v1"}}
	unconfirmed := &event.EventRecord{
		ID: "hovet-1", ArenaID: "hovet", Title: "Concert",
		EventDate: "2026-03-05T11:00:00Z", EventTime: "00:00",
	}
	confirmed := &event.EventRecord{
		ID: "hovet-2", ArenaID: "hovet", Title: "Concert",
		EventDate: "2026-03-05T17:00:00Z", EventTime: "18:00", TimeConfirmed: true,
	}

	updated := c.Enrich(context.Background(), a, []*event.EventRecord{unconfirmed, confirmed})
	if updated != 1 {
		t.Fatalf("Enrich() = %d, want 1", updated)
	}

	// 19:30 Stockholm in March (CET) is 18:30 UTC.
	if unconfirmed.EventDate != "2026-03-05T18:30:00Z" || unconfirmed.EventTime != "19:30" || !unconfirmed.TimeConfirmed {
		t.Errorf("backfilled record = %+v", unconfirmed)
	}
	if confirmed.EventTime != "18:00" {
		t.Errorf("confirmed record was touched: %+v", confirmed)
	}
}

func TestEnrichSwallowsLookupFailure(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	a := event.Arena{ID: "hovet", TicketmasterVenueIDs: []string{"v1"}}
	rec := &event.EventRecord{ID: "hovet-1", ArenaID: "hovet", Title: "Concert", EventDate: "2026-03-05T11:00:00Z"}

	if updated := c.Enrich(context.Background(), a, []*event.EventRecord{rec}); updated != 0 {
		t.Errorf("Enrich() = %d on lookup failure, want 0", updated)
	}
	if rec.TimeConfirmed {
		t.Error("record mutated despite the failed lookup")
	}
}

func TestEnrichDisabledWithoutKey(t *testing.T) {
	c := New(fetch.New(time.Second, 0), "", stockholm)
	a := event.Arena{ID: "hovet", TicketmasterVenueIDs: []string{"v1"}}
	if updated := c.Enrich(context.Background(), a, nil); updated != 0 {
		t.Errorf("Enrich() = %d without a key, want 0", updated)
	}
}
