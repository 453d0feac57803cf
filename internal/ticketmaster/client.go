// Package ticketmaster backfills unconfirmed start times from the
// Ticketmaster Discovery API. Enrichment is optional: without an API
// key the client is disabled and the pipeline skips it entirely.
package ticketmaster

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/retea-se/pag/internal/event"
	"github.com/retea-se/pag/internal/fetch"
	"github.com/retea-se/pag/internal/logger"
)

const defaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

// Client queries the Discovery API.
type Client struct {
	client  *fetch.Client
	apiKey  string
	baseURL string
	loc     *time.Location
}

// New creates a Client. An empty apiKey disables enrichment.
func New(client *fetch.Client, apiKey string, loc *time.Location) *Client {
	return &Client{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		loc:     loc,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type discoveryResponse struct {
	Embedded struct {
		Events []struct {
			Name  string `json:"name"`
			Dates struct {
				Start struct {
					LocalDate string `json:"localDate"`
					LocalTime string `json:"localTime"`
				} `json:"start"`
			} `json:"dates"`
		} `json:"events"`
	} `json:"_embedded"`
}

// Match is one Discovery event reduced to the fields enrichment needs.
type Match struct {
	Name      string
	LocalDate string // YYYY-MM-DD
	LocalTime string // HH:MM or empty
}

// VenueEvents lists Discovery events for the given venue ids.
func (c *Client) VenueEvents(ctx context.Context, venueIDs []string) ([]Match, error) {
	if !c.Enabled() || len(venueIDs) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("venueId", strings.Join(venueIDs, ","))
	q.Set("size", "100")
	q.Set("countryCode", "SE")
	reqURL := fmt.Sprintf("%s/events.json?%s", c.baseURL, q.Encode())

	var resp discoveryResponse
	if err := c.client.GetJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Embedded.Events))
	for _, ev := range resp.Embedded.Events {
		m := Match{Name: ev.Name, LocalDate: ev.Dates.Start.LocalDate}
		if len(ev.Dates.Start.LocalTime) >= 5 {
			m.LocalTime = ev.Dates.Start.LocalTime[:5]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Enrich backfills unconfirmed times on an arena's records from
// Discovery events matching on title and calendar day. Returns the
// number of records updated. Failures are logged and swallowed; the
// scraped data stands on its own.
func (c *Client) Enrich(ctx context.Context, a event.Arena, records []*event.EventRecord) int {
	if !c.Enabled() || len(a.TicketmasterVenueIDs) == 0 {
		return 0
	}

	matches, err := c.VenueEvents(ctx, a.TicketmasterVenueIDs)
	if err != nil {
		logger.Warn("ticketmaster lookup failed", logger.Fields{"arena": a.ID, "error": err.Error()})
		return 0
	}
	if len(matches) == 0 {
		return 0
	}

	byKey := make(map[string]Match, len(matches))
	for _, m := range matches {
		if m.LocalDate == "" || m.LocalTime == "" {
			continue
		}
		byKey[strings.ToLower(m.Name)+"|"+m.LocalDate] = m
	}

	updated := 0
	for _, rec := range records {
		if rec.ArenaID != a.ID || rec.TimeConfirmed {
			continue
		}
		day, ok := rec.Day(c.loc)
		if !ok {
			continue
		}

		m, found := byKey[strings.ToLower(rec.Title)+"|"+day.Format("2006-01-02")]
		if !found {
			continue
		}

		tm, err := time.Parse("15:04", m.LocalTime)
		if err != nil {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), tm.Hour(), tm.Minute(), 0, 0, c.loc)
		rec.EventDate = start.UTC().Format(time.RFC3339)
		rec.EventTime = m.LocalTime
		rec.TimeConfirmed = true
		updated++
	}

	if updated > 0 {
		logger.Info("backfilled times from ticketmaster", logger.Fields{"arena": a.ID, "count": updated})
	}
	return updated
}
