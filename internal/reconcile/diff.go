package reconcile

import (
	"github.com/retea-se/pag/internal/event"
)

// SampleCap bounds the change details kept per category in the run
// status. Counts stay exact; only the samples are capped.
const SampleCap = 10

// ChangeDetail is one sampled change for run reporting.
type ChangeDetail struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	ArenaID   string   `json:"arenaId"`
	EventDate string   `json:"eventDate,omitempty"`
	Fields    []string `json:"fields,omitempty"`
}

// DiffResult classifies the current snapshot against the previous one.
// RemovedRecords carries the full previous records so the iCal
// emitters can publish cancellations.
type DiffResult struct {
	AddedCount   int            `json:"addedCount"`
	UpdatedCount int            `json:"updatedCount"`
	RemovedCount int            `json:"removedCount"`
	Added        []ChangeDetail `json:"added,omitempty"`
	Updated      []ChangeDetail `json:"updated,omitempty"`
	Removed      []ChangeDetail `json:"removed,omitempty"`

	RemovedRecords []*event.EventRecord `json:"-"`
}

// Diff compares the reconciled events against the previous snapshot.
// Records match on id plus date, so a rescheduled performance shows up
// as one removal and one addition rather than a silent mutation.
func Diff(previous *event.Snapshot, current []*event.EventRecord) *DiffResult {
	result := &DiffResult{}

	prevByKey := make(map[string]*event.EventRecord)
	if previous != nil {
		for _, rec := range previous.Events {
			prevByKey[rec.DiffKey()] = rec
		}
	}

	currentKeys := make(map[string]bool, len(current))
	for _, rec := range current {
		key := rec.DiffKey()
		currentKeys[key] = true

		prev, existed := prevByKey[key]
		if !existed {
			result.AddedCount++
			if len(result.Added) < SampleCap {
				result.Added = append(result.Added, detail(rec, nil))
			}
			continue
		}

		fields := changedFields(prev, rec)
		if len(fields) > 0 {
			result.UpdatedCount++
			if len(result.Updated) < SampleCap {
				result.Updated = append(result.Updated, detail(rec, fields))
			}
		}
	}

	if previous != nil {
		for _, rec := range previous.Events {
			if currentKeys[rec.DiffKey()] {
				continue
			}
			result.RemovedCount++
			result.RemovedRecords = append(result.RemovedRecords, rec)
			if len(result.Removed) < SampleCap {
				result.Removed = append(result.Removed, detail(rec, nil))
			}
		}
	}

	return result
}

func detail(rec *event.EventRecord, fields []string) ChangeDetail {
	return ChangeDetail{
		ID:        rec.ID,
		Title:     rec.Title,
		ArenaID:   rec.ArenaID,
		EventDate: rec.EventDate,
		Fields:    fields,
	}
}

func changedFields(prev, cur *event.EventRecord) []string {
	var fields []string
	if prev.EventTime != cur.EventTime {
		fields = append(fields, "time")
	}
	if prev.Title != cur.Title {
		fields = append(fields, "title")
	}
	if prev.Opponent != cur.Opponent {
		fields = append(fields, "opponent")
	}
	return fields
}
