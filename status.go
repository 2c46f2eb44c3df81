package transit

import (
	"os"
	"time"

	"github.com/openmetro/transit/storage"
)

// Status describes the health of the embedded store. It is meant for
// surfacing in diagnostics, so the checks behind it never fail the
// caller: any problem reads as Available=false.
type Status struct {
	// Available is true when the store exists and passes a schema
	// check.
	Available bool `json:"available"`

	// HasCalendar is true when the feed shipped calendar data.
	// Without it every schedule query resolves to an empty day.
	HasCalendar bool `json:"hasCalendar"`

	// ImportedAt is when the store was last rebuilt. Zero when
	// unknown.
	ImportedAt time.Time `json:"importedAt"`

	// AgeDays is full days since ImportedAt.
	AgeDays int `json:"ageDays"`

	// Stale is true once AgeDays reaches the refresh interval.
	Stale bool `json:"stale"`
}

// CheckStore inspects the store at path against a refresh interval in
// days. It never returns an error; an unreadable or malformed store
// is reported as unavailable.
func CheckStore(path string, refreshDays int) Status {
	var st Status

	info, err := os.Stat(path)
	if err != nil {
		return st
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		return st
	}
	defer store.Close()

	st.Available = true
	st.HasCalendar, _ = store.HasCalendar()

	st.ImportedAt = info.ModTime()
	if v, err := store.Metadata(storage.MetaImportedAt); err == nil && v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			st.ImportedAt = t
		}
	}

	st.AgeDays = int(time.Since(st.ImportedAt).Hours() / 24)
	st.Stale = refreshDays > 0 && st.AgeDays >= refreshDays
	return st
}
