package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/retea-se/pag/internal/event"
)

// jsonFeed is the JSON Feed 1.1 document shape.
type jsonFeed struct {
	Version     string         `json:"version"`
	Title       string         `json:"title"`
	HomePageURL string         `json:"home_page_url"`
	FeedURL     string         `json:"feed_url"`
	Description string         `json:"description"`
	Language    string         `json:"language"`
	Items       []jsonFeedItem `json:"items"`
}

type jsonFeedItem struct {
	ID            string        `json:"id"`
	URL           string        `json:"url,omitempty"`
	Title         string        `json:"title"`
	ContentText   string        `json:"content_text"`
	DatePublished string        `json:"date_published,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Meta          *jsonFeedMeta `json:"_meta,omitempty"`
}

// jsonFeedMeta is the extension block for fields the base format has
// no slot for.
type jsonFeedMeta struct {
	ArenaID           string `json:"arenaId"`
	Arena             string `json:"arena"`
	ArenaColor        string `json:"arenaColor"`
	CategoryID        int64  `json:"categoryId"`
	CategoryName      string `json:"categoryName"`
	CategoryIcon      string `json:"categoryIcon"`
	EventTime         string `json:"eventTime,omitempty"`
	TimeConfirmed     bool   `json:"timeConfirmed"`
	Opponent          string `json:"opponent,omitempty"`
	PerformanceNumber int    `json:"performanceNumber,omitempty"`
	TotalPerformances int    `json:"totalPerformances,omitempty"`
}

// JSONFeed renders a JSON Feed 1.1 document for one period.
func (em *Emitter) JSONFeed(events []*event.EventRecord, period Period) ([]byte, error) {
	info := channelInfo[period]

	doc := jsonFeed{
		Version:     "https://jsonfeed.org/version/1.1",
		Title:       info.Title,
		HomePageURL: em.baseURL,
		FeedURL:     fmt.Sprintf("%s/feed-%s.json", em.baseURL, period),
		Description: info.Description,
		Language:    "sv",
		Items:       make([]jsonFeedItem, 0, len(events)),
	}

	for _, rec := range events {
		content := "Datum ej angivet"
		published := ""
		if start, ok := rec.Start(); ok {
			content = svDate(start.In(em.loc))
			published = start.UTC().Format(time.RFC3339)
		}
		if rec.EventTime != "" {
			content += " kl. " + rec.EventTime
		}
		content += " på " + rec.Arena

		doc.Items = append(doc.Items, jsonFeedItem{
			ID:            rec.ID,
			URL:           rec.Link,
			Title:         displayTitle(rec),
			ContentText:   content,
			DatePublished: published,
			Tags:          []string{rec.CategoryName},
			Meta: &jsonFeedMeta{
				ArenaID:           rec.ArenaID,
				Arena:             rec.Arena,
				ArenaColor:        rec.ArenaColor,
				CategoryID:        rec.Category,
				CategoryName:      rec.CategoryName,
				CategoryIcon:      rec.CategoryIcon,
				EventTime:         rec.EventTime,
				TimeConfirmed:     rec.TimeConfirmed,
				Opponent:          rec.Opponent,
				PerformanceNumber: rec.PerformanceNumber,
				TotalPerformances: rec.TotalPerformances,
			},
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}
