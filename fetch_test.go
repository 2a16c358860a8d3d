package spatialext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestSourceRelease(t *testing.T) {
	release := SourceRelease{Version: "1.8.5"}

	if got := release.ArchiveName(); got != "spatialindex-1.8.5.tar.gz" {
		t.Errorf("unexpected archive name %s", got)
	}
	if got := release.DirName(); got != "spatialindex-1.8.5" {
		t.Errorf("unexpected dir name %s", got)
	}
	if got := release.URL(""); got != "https://github.com/libspatialindex/libspatialindex/archive/1.8.5.tar.gz" {
		t.Errorf("unexpected default url %s", got)
	}
	if got := release.URL("https://mirror.example/%s.tgz"); got != "https://mirror.example/1.8.5.tgz" {
		t.Errorf("unexpected templated url %s", got)
	}
}

func TestFetcherDownloads(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/archive/1.8.5.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("archive-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := &Fetcher{Dir: dir, URLTemplate: server.URL + "/archive/%s.tar.gz", Client: server.Client()}

	path, err := fetcher.EnsureArchive(context.Background(), SourceRelease{Version: "1.8.5"})
	if err != nil {
		t.Fatalf("EnsureArchive failed: %v", err)
	}
	if path != filepath.Join(dir, "spatialindex-1.8.5.tar.gz") {
		t.Errorf("unexpected path %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "archive-bytes" {
		t.Errorf("unexpected content %q", content)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.part-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}

	// A second call must not touch the network.
	if _, err := fetcher.EnsureArchive(context.Background(), SourceRelease{Version: "1.8.5"}); err != nil {
		t.Fatalf("second EnsureArchive failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly 1 request, got %d", hits.Load())
	}
}

func TestFetcherSkipsExistingArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request for %s", r.URL.Path)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeTree(t, dir, "spatialindex-1.8.5.tar.gz")

	fetcher := &Fetcher{Dir: dir, URLTemplate: server.URL + "/%s.tar.gz", Client: server.Client()}
	if _, err := fetcher.EnsureArchive(context.Background(), SourceRelease{Version: "1.8.5"}); err != nil {
		t.Fatalf("EnsureArchive failed: %v", err)
	}
}

func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := &Fetcher{Dir: dir, URLTemplate: server.URL + "/%s.tar.gz", Client: server.Client()}

	_, err := fetcher.EnsureArchive(context.Background(), SourceRelease{Version: "9.9.9"})
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if pathExists(filepath.Join(dir, "spatialindex-9.9.9.tar.gz")) {
		t.Error("failed download must not leave an archive behind")
	}
}

func TestFetcherCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("never"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &Fetcher{Dir: t.TempDir(), URLTemplate: server.URL + "/%s.tar.gz", Client: server.Client()}
	if _, err := fetcher.EnsureArchive(ctx, SourceRelease{Version: "1.8.5"}); !errors.Is(err, ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition for cancelled context, got %v", err)
	}
}
