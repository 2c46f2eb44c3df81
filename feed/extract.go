package feed

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RequiredFiles must all be present after extraction for an import to
// proceed.
var RequiredFiles = []string{
	"agency.txt",
	"stops.txt",
	"routes.txt",
	"trips.txt",
	"stop_times.txt",
}

// OptionalFiles are loaded when present; their absence is logged, not
// fatal.
var OptionalFiles = []string{
	"calendar.txt",
	"calendar_dates.txt",
	"shapes.txt",
	"frequencies.txt",
}

// Extract unpacks the archive into destDir, overwriting prior
// contents. When the archive cannot be read but a usable set of
// tabular files from a prior run is already in destDir, that counts
// as success. Otherwise the error names every required file still
// missing.
func Extract(archivePath, destDir string, logger *slog.Logger) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating feed dir: %w", err)
	}

	if err := unpack(archivePath, destDir, logger); err != nil {
		if missing := missingRequired(destDir); len(missing) > 0 {
			return fmt.Errorf("extracting %s: %w; still missing: %s",
				archivePath, err, strings.Join(missing, ", "))
		}
		// Prior run left a complete file set behind; run with it.
		logger.Warn("archive unusable, reusing extracted files",
			"archive", archivePath,
			"error", err,
		)
		return nil
	}

	if missing := missingRequired(destDir); len(missing) > 0 {
		return fmt.Errorf("archive %s is missing required files: %s",
			archivePath, strings.Join(missing, ", "))
	}

	return nil
}

func unpack(archivePath, destDir string, logger *slog.Logger) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	extracted := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Some agencies nest the tabular files in a
		// subdirectory; flatten to base names.
		name := filepath.Base(f.Name)

		if err := extractFile(f, filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}
		extracted++
	}

	logger.Info("archive extracted", "files", extracted, "dir", destDir)
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	return err
}

func missingRequired(dir string) []string {
	missing := []string{}
	for _, name := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
