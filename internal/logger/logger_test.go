package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	l.Info("arena fetched", Fields{"arena": "hovet", "count": 12})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not a JSON line: %v\n%s", err, buf.String())
	}
	if entry.Level != "INFO" || entry.Message != "arena fetched" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["arena"] != "hovet" {
		t.Errorf("fields = %+v", entry.Fields)
	}
	if entry.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	l.Warn("shown", nil)

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if buf.Len() == 0 || lines != 1 {
		t.Errorf("output = %q, want only the warning", buf.String())
	}
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelError, &buf)

	l.Error("fetch failed", nil, errors.New("connection refused"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Error != "connection refused" {
		t.Errorf("error field = %q", entry.Error)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("scrape.ok")
	m.IncrCounter("scrape.ok")
	m.IncrCounter("scrape.fail")

	if got := m.Counter("scrape.ok"); got != 2 {
		t.Errorf("Counter(scrape.ok) = %d, want 2", got)
	}
	if got := m.Counter("missing"); got != 0 {
		t.Errorf("Counter(missing) = %d, want 0", got)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("scrape.ok")
	m.RecordTiming("scrape.fetch", 100*time.Millisecond)
	m.RecordTiming("scrape.fetch", 300*time.Millisecond)

	snap := m.Snapshot()

	counters, ok := snap["counters"].(map[string]int64)
	if !ok || counters["scrape.ok"] != 1 {
		t.Errorf("counters = %+v", snap["counters"])
	}

	timings, ok := snap["timings"].(map[string]map[string]interface{})
	if !ok {
		t.Fatalf("timings = %+v", snap["timings"])
	}
	fetchStats := timings["scrape.fetch"]
	if fetchStats["count"] != 2 {
		t.Errorf("count = %v, want 2", fetchStats["count"])
	}
	if fetchStats["average"] != "200ms" {
		t.Errorf("average = %v, want 200ms", fetchStats["average"])
	}
}
