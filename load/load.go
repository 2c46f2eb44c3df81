package load

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/openmetro/transit/storage"
)

// fileSpec binds a tabular file to its target table and row loader.
// The slice is ordered so referenced entities load before their
// referrers; the store itself enforces no foreign keys.
type fileSpec struct {
	name     string
	table    string
	required bool
	load     func(storage.Writer, io.Reader) (int, error)
}

var fileSpecs = []fileSpec{
	{"agency.txt", "agency", true, loadAgency},
	{"routes.txt", "routes", true, loadRoutes},
	{"calendar.txt", "calendar", false, loadCalendar},
	{"calendar_dates.txt", "calendar_dates", false, loadCalendarDates},
	{"stops.txt", "stops", true, loadStops},
	{"trips.txt", "trips", true, loadTrips},
	{"stop_times.txt", "stop_times", true, loadStopTimes},
	{"shapes.txt", "shapes", false, loadShapes},
	{"frequencies.txt", "frequencies", false, loadFrequencies},
}

func init() {
	gocsv.SetCSVReader(newPaddedCSVReader)
}

// Run streams every tabular file in feedDir into the writer, builds
// indexes after all rows are in and commits the run. A missing
// required file aborts the run; missing optional files are logged. A store loaded without calendar data resolves every date
// to an empty active service set.
func Run(feedDir string, w storage.Writer, logger *slog.Logger) error {
	calendarRows := 0

	for _, spec := range fileSpecs {
		path := filepath.Join(feedDir, spec.name)

		f, err := os.Open(path)
		if os.IsNotExist(err) {
			if spec.required {
				return fmt.Errorf("required file %s missing from %s", spec.name, feedDir)
			}
			logger.Warn("optional file missing, skipping", "file", spec.name)
			continue
		}
		if err != nil {
			return fmt.Errorf("opening %s: %w", spec.name, err)
		}

		n, err := loadFile(spec, w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading %s: %w", spec.name, err)
		}

		if spec.table == "calendar" || spec.table == "calendar_dates" {
			calendarRows += n
		}
		logger.Info("loaded file", "file", spec.name, "rows", n)
	}

	if err := w.BuildIndexes(); err != nil {
		return fmt.Errorf("building indexes: %w", err)
	}

	if err := w.SetMetadata(storage.MetaImportedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := w.SetMetadata(storage.MetaHasCalendar, strconv.FormatBool(calendarRows > 0)); err != nil {
		return err
	}

	return w.Commit()
}

func loadFile(spec fileSpec, w storage.Writer, f *os.File) (int, error) {
	if err := w.BeginFile(spec.table); err != nil {
		return 0, err
	}

	n, err := spec.load(w, f)
	if err != nil {
		return n, err
	}

	return n, w.EndFile()
}

// ImportSQLite builds a fresh embedded store from feedDir. The store
// is assembled at a temporary path and renamed over storePath only on
// success, so a failed run leaves the previous good store untouched.
func ImportSQLite(feedDir, storePath string, logger *slog.Logger) error {
	tmpPath := storePath + ".tmp"
	defer os.Remove(tmpPath)

	store, err := storage.CreateSQLite(tmpPath)
	if err != nil {
		return err
	}

	if err := runImport(store, feedDir, logger); err != nil {
		store.Close()
		return err
	}

	if err := store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	if err := os.Rename(tmpPath, storePath); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}

	logger.Info("store replaced", "path", storePath)
	return nil
}

// ImportPostgres rebuilds a server-database store in place. The whole
// run, schema recreate through index build, happens inside a single
// transaction committed only on success, so a failed run leaves the
// previous good store untouched.
func ImportPostgres(feedDir, connStr string, logger *slog.Logger) error {
	store, err := storage.CreatePostgres(connStr)
	if err != nil {
		return err
	}
	defer store.Close()

	return runImport(store, feedDir, logger)
}

func runImport(store *storage.RelationalStore, feedDir string, logger *slog.Logger) error {
	start := time.Now()

	w, err := store.NewWriter()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := Run(feedDir, w, logger); err != nil {
		return err
	}

	logger.Info("import complete", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
