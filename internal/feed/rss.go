package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/retea-se/pag/internal/event"
)

// RSS renders an RSS 2.0 feed for one period. events must already be
// filtered and sorted; now stamps lastBuildDate and the pubDate of
// dateless items.
func (em *Emitter) RSS(events []*event.EventRecord, period Period, now time.Time) string {
	info := channelInfo[period]
	nowStr := now.UTC().Format(time.RFC1123Z)
	feedURL := fmt.Sprintf("%s/rss-%s.xml", em.baseURL, period)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">` + "\n")
	b.WriteString("  <channel>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", xmlEscape(info.Title))
	fmt.Fprintf(&b, "    <link>%s</link>\n", xmlEscape(em.baseURL))
	fmt.Fprintf(&b, "    <description>%s</description>\n", xmlEscape(info.Description))
	b.WriteString("    <language>sv</language>\n")
	fmt.Fprintf(&b, "    <lastBuildDate>%s</lastBuildDate>\n", nowStr)
	fmt.Fprintf(&b, "    <atom:link href=%q rel=\"self\" type=\"application/rss+xml\"/>\n", feedURL)

	for _, rec := range events {
		pubDate := nowStr
		dateStr := "Datum ej angivet"
		if start, ok := rec.Start(); ok {
			pubDate = start.UTC().Format(time.RFC1123Z)
			dateStr = svDate(start.In(em.loc))
		}

		desc := dateStr
		if rec.EventTime != "" {
			desc += " kl. " + rec.EventTime
		}
		desc += " på " + rec.Arena + ". Kategori: " + rec.CategoryName

		b.WriteString("    <item>\n")
		fmt.Fprintf(&b, "      <title><![CDATA[%s - %s]]></title>\n", cdataEscape(displayTitle(rec)), cdataEscape(rec.Arena))
		fmt.Fprintf(&b, "      <link>%s</link>\n", xmlEscape(rec.Link))
		fmt.Fprintf(&b, "      <guid isPermaLink=\"false\">%s</guid>\n", xmlEscape(rec.ID))
		fmt.Fprintf(&b, "      <pubDate>%s</pubDate>\n", pubDate)
		fmt.Fprintf(&b, "      <description><![CDATA[%s]]></description>\n", cdataEscape(desc))
		fmt.Fprintf(&b, "      <category>%s</category>\n", xmlEscape(rec.CategoryName))
		b.WriteString("    </item>\n")
	}

	b.WriteString("  </channel>\n")
	b.WriteString("</rss>\n")
	return b.String()
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// cdataEscape keeps CDATA sections well-formed if a title ever
// contains the terminator sequence.
func cdataEscape(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
