package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Fetcher downloads the dataset when no local copy exists.
type Fetcher struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for url with the given download timeout.
func NewFetcher(url string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// EnsureLocal makes sure path exists, downloading it on first run. It reports
// whether a download happened. The file is written to a temporary name in the
// same directory and renamed into place once complete.
func (f *Fetcher) EnsureLocal(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, &domain.DataLoadError{Path: path, Err: err}
	}
	if f.url == "" {
		return false, &domain.DataLoadError{Path: path, Err: fmt.Errorf("no local copy and no download URL: %w", fs.ErrNotExist)}
	}

	start := time.Now()
	f.logger.Info("downloading dataset", "url", f.url, "path", path)
	n, err := f.download(ctx, path)
	if err != nil {
		return false, &domain.DataLoadError{Path: path, Err: err}
	}
	f.logger.Info("dataset downloaded", "path", path, "bytes", n, "duration", time.Since(start))
	return true, nil
}

func (f *Fetcher) download(ctx context.Context, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("download: status %d: %s", resp.StatusCode, body)
	}
	// Drive answers large files with an HTML confirmation page and status 200.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(strings.ToLower(ct), "text/html") {
		return 0, fmt.Errorf("download: got %s page instead of CSV", ct)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := checkHeader(tmp.Name()); err != nil {
		return 0, fmt.Errorf("downloaded file is not the dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename dataset: %w", err)
	}
	return n, nil
}

// checkHeader reads the first record of the file at path and requires the
// columns the loader needs.
func checkHeader(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty file", domain.ErrMissingColumn)
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	_, err = resolveColumns(header)
	return err
}
