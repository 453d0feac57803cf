// Package event defines the data model shared across the pipeline:
// arenas, raw listing entries, scraped performances, persisted event
// records and run snapshots.
package event
