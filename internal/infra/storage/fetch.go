package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// maxFetchBytes bounds a single download.
const maxFetchBytes = 512 << 20

// Fetcher downloads resolved locations over HTTP or reads them from disk.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetcher creates a new Fetcher. timeout bounds each HTTP request; zero
// leaves it to the caller's context.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "soundbridge/1.0",
	}
}

// Fetch returns the bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain paths, including Windows drive letters.
		return f.readFile(location)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, location)
	case "file":
		return f.readFile(u.Path)
	default:
		return nil, errors.Newf("unsupported location scheme %q", u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if len(data) > maxFetchBytes {
		return nil, errors.Newf("response exceeds %d bytes", maxFetchBytes)
	}

	zlog.Debug().Msgf("fetched %s (%s) in %s", redactQuery(location), humanBytes(len(data)), time.Since(start))
	return data, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrObjectNotFound, "%s", path)
		}
		return nil, errors.Wrap(err, "failed to read file")
	}
	return data, nil
}

// redactQuery strips signatures from presigned URLs before logging.
func redactQuery(location string) string {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		return location[:i]
	}
	return location
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
