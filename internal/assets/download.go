package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// progressWriter wraps an io.Writer to track download progress
type progressWriter struct {
	total      int64
	downloaded int64
	lastLog    time.Time
	name       string
	log        zerolog.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	// Log progress every 2 seconds or when complete
	now := time.Now()
	if now.Sub(pw.lastLog) >= 2*time.Second || pw.downloaded >= pw.total {
		pw.lastLog = now
		pw.log.Info().
			Str("asset", pw.name).
			Float64("percent", float64(pw.downloaded)/float64(pw.total)*100).
			Float64("downloaded_mb", float64(pw.downloaded)/1024/1024).
			Msg("Downloading asset")
	}

	return n, nil
}

// Fetcher downloads asset files into the working directory.
type Fetcher struct {
	Root   string
	Client *http.Client
	Log    zerolog.Logger
}

// FetchAll downloads every source (relative asset path → URL) that is not
// already present under Root. Existing files are left untouched.
func (f *Fetcher) FetchAll(ctx context.Context, sources map[string]string) ([]string, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var fetched []string
	for _, name := range names {
		dest := filepath.Join(f.Root, name)
		if _, err := os.Stat(dest); err == nil {
			f.Log.Debug().Str("asset", name).Msg("Asset present, skipping")
			continue
		}
		if err := f.Fetch(ctx, sources[name], dest); err != nil {
			return fetched, fmt.Errorf("asset %s: %w", name, err)
		}
		fetched = append(fetched, dest)
	}
	return fetched, nil
}

// Fetch downloads url to destPath via a temporary file.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	f.Log.Info().Str("url", url).Str("dest", destPath).Msg("Starting asset download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download asset: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var writer io.Writer = out
	if resp.ContentLength > 0 {
		writer = io.MultiWriter(out, &progressWriter{
			total:   resp.ContentLength,
			name:    filepath.Base(destPath),
			lastLog: time.Now(),
			log:     f.Log,
		})
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write asset file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move asset file: %w", err)
	}
	return nil
}
