// Package fetch downloads reference files (boundary shapefile archives) over
// HTTP or FTP and extracts ZIP archives.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/resilience"
)

// Options configures the downloader.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
}

// Downloader retrieves files over HTTP or FTP, choosing by URL scheme.
type Downloader struct {
	httpClient *http.Client
	opts       Options
}

// NewDownloader creates a Downloader with the given options.
func NewDownloader(opts Options) *Downloader {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

// Download fetches rawURL into destPath, creating parent directories.
// HTTP(S) and FTP URLs are supported.
func (d *Downloader) Download(ctx context.Context, rawURL, destPath string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return eris.Wrap(err, "fetch: create dest dir")
	}

	switch u.Scheme {
	case "http", "https":
		return resilience.Do(ctx, d.opts.Retry, func(ctx context.Context) error {
			return d.downloadHTTP(ctx, rawURL, destPath)
		})
	case "ftp":
		return resilience.Do(ctx, d.opts.Retry, func(ctx context.Context) error {
			return d.downloadFTP(ctx, u, destPath)
		})
	default:
		return eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
}

func (d *Downloader) downloadHTTP(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "fetch: build request")
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "fetch: http request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("fetch: %s returned status %d", rawURL, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	written, err := writeToFile(destPath, resp.Body)
	if err != nil {
		return err
	}

	zap.L().Debug("fetch: downloaded",
		zap.String("url", rawURL),
		zap.String("dest", destPath),
		zap.Int64("bytes", written),
	)
	return nil
}

func writeToFile(destPath string, r io.Reader) (int64, error) {
	f, err := os.Create(destPath)
	if err != nil {
		return 0, eris.Wrap(err, "fetch: create dest file")
	}
	defer f.Close() //nolint:errcheck

	written, err := io.Copy(f, r)
	if err != nil {
		return written, eris.Wrap(err, "fetch: write dest file")
	}
	return written, nil
}
