package spatialext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ArchiveSource makes a source archive available on local disk.
type ArchiveSource interface {
	EnsureArchive(ctx context.Context, release SourceRelease) (string, error)
}

// Fetcher downloads release archives into Dir.
//
// An archive already present in Dir is returned as-is without touching the
// network. Downloads go to a temporary file next to the target and are
// renamed into place only after the body has been fully written, so an
// interrupted transfer is retried on the next run instead of being mistaken
// for a complete archive. Failures are not retried.
type Fetcher struct {
	Dir         string
	URLTemplate string
	Client      *http.Client
	Logger      *zap.Logger
}

// EnsureArchive returns the path of the release archive, downloading it first
// when it is absent.
func (f *Fetcher) EnsureArchive(ctx context.Context, release SourceRelease) (path string, err error) {
	log := loggerOrNop(f.Logger).With(zap.String("stage", "fetch"), zap.String("version", release.Version))
	path = filepath.Join(f.Dir, release.ArchiveName())

	if pathExists(path) {
		log.Info("archive already downloaded", zap.String("path", path))
		return path, nil
	}

	url := release.URL(f.URLTemplate)
	ctx, span := startStage(ctx, "fetch", attribute.String("url", url))
	defer func() { endStage(span, err) }()

	log.Info("downloading source archive", zap.String("url", url), zap.String("path", path))
	if err := f.download(ctx, url, path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
