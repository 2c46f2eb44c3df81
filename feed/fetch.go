package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads the schedule feed archive to a fixed local path.
// Hosts are allowed to redirect (the client follows chains up to the
// net/http limit of ten hops).
type Fetcher struct {
	Client *http.Client

	// MaxAge is the freshness threshold: when the archive on disk
	// is younger than this, the network fetch is skipped entirely.
	MaxAge time.Duration

	logger *slog.Logger
}

func NewFetcher(maxAge time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: 5 * time.Minute},
		MaxAge: maxAge,
		logger: logger,
	}
}

// Fetch writes the archive at url to dest. A fresh-enough archive
// already on disk is reported as success without a download. On any
// failure no partial output is left behind: bytes stream to a
// temporary file that is only renamed into place once the response
// body has been fully consumed.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	if info, err := os.Stat(dest); err == nil {
		age := time.Since(info.ModTime())
		if age < f.MaxAge {
			f.logger.Info("archive is fresh, skipping download",
				"path", dest,
				"age", age.Round(time.Hour),
			)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	f.logger.Info("downloading feed archive", "url", url)
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetching archive: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "archive-*.zip")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	written, err := io.Copy(tmp, f.progressReader(resp.Body, resp.ContentLength))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing archive: %w", err)
	}

	f.logger.Info("feed archive downloaded",
		"path", dest,
		"size_mb", fmt.Sprintf("%.1f", float64(written)/(1024*1024)),
	)
	return nil
}

// progressReader logs download progress in 10% steps when the
// response declares a content length.
func (f *Fetcher) progressReader(r io.Reader, total int64) io.Reader {
	if total <= 0 {
		return r
	}
	return &progressReader{r: r, total: total, logger: f.logger}
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	logged int
	logger *slog.Logger
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	pct := int(p.read * 100 / p.total)
	if pct/10 > p.logged {
		p.logged = pct / 10
		p.logger.Info("downloading", "percent", p.logged*10)
	}

	return n, err
}
