package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/retea-se/pag/internal/event"
)

// DefaultDuration is assumed when a source never publishes an end time.
const DefaultDuration = 2 * time.Hour

// ICS renders an iCalendar document for one period. removed carries
// previously published events that vanished from the sources; they are
// emitted with STATUS:CANCELLED under their original UID so calendar
// clients retract them.
func (em *Emitter) ICS(events, removed []*event.EventRecord, period Period, now time.Time) string {
	info := channelInfo[period]

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//Pa G//pag-fetch//SV\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("METHOD:PUBLISH\r\n")
	fmt.Fprintf(&b, "X-WR-CALNAME:%s\r\n", escapeICS(info.Title))

	for _, rec := range events {
		em.writeVEvent(&b, rec, now, "CONFIRMED")
	}
	for _, rec := range removed {
		em.writeVEvent(&b, rec, now, "CANCELLED")
	}

	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func (em *Emitter) writeVEvent(b *strings.Builder, rec *event.EventRecord, now time.Time, status string) {
	start, ok := rec.Start()
	if !ok {
		// A calendar entry without a date would render at an arbitrary
		// position; dateless events stay in the RSS/JSON views only.
		return
	}
	end := start.Add(DefaultDuration)

	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(b, "UID:%s@retea.se\r\n", rec.ID)
	fmt.Fprintf(b, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(b, "DTSTART:%s\r\n", formatICSTime(start))
	fmt.Fprintf(b, "DTEND:%s\r\n", formatICSTime(end))
	fmt.Fprintf(b, "SUMMARY:%s\r\n", escapeICS(displayTitle(rec)))

	desc := rec.Arena + ". Kategori: " + rec.CategoryName
	if !rec.TimeConfirmed {
		desc += "\nTid ej bekräftad"
	}
	fmt.Fprintf(b, "DESCRIPTION:%s\r\n", escapeICS(desc))
	fmt.Fprintf(b, "LOCATION:%s\r\n", escapeICS(rec.Arena))
	if rec.Link != "" {
		fmt.Fprintf(b, "URL:%s\r\n", rec.Link)
	}
	fmt.Fprintf(b, "STATUS:%s\r\n", status)
	fmt.Fprintf(b, "CATEGORIES:%s\r\n", escapeICS(rec.CategoryName))
	b.WriteString("SEQUENCE:0\r\n")
	b.WriteString("TRANSP:OPAQUE\r\n")
	b.WriteString("END:VEVENT\r\n")
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime.
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes text values per RFC 5545.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
