package spatialext

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// extractedMarker is written into a tree once it has been fully unpacked.
const extractedMarker = ".spatialext-extracted"

// ArchiveUnpacker makes an archive's contents available under dest.
type ArchiveUnpacker interface {
	EnsureExtracted(ctx context.Context, archive, dest string) (string, error)
}

// Extractor unpacks .tar.gz, .tgz, .tar.xz and plain .tar archives.
//
// An existing dest is never touched: it may hold a previous run's partial
// build state or a tree the user unpacked by hand. New extractions land in a
// sibling temporary directory that is renamed to dest only after every entry
// and the completion marker have been written.
type Extractor struct {
	Logger *zap.Logger
}

// EnsureExtracted unpacks archive into dest unless dest already exists.
func (e *Extractor) EnsureExtracted(ctx context.Context, archive, dest string) (dir string, err error) {
	log := loggerOrNop(e.Logger).With(zap.String("stage", "extract"), zap.String("path", dest))

	if pathExists(dest) {
		if !pathExists(filepath.Join(dest, extractedMarker)) {
			log.Warn("using existing directory without extraction marker")
		}
		log.Info("archive already unzipped", zap.String("archive", archive))
		return dest, nil
	}

	_, span := startStage(ctx, "extract", attribute.String("archive", archive))
	defer func() { endStage(span, err) }()

	log.Info("unpacking source archive", zap.String("archive", archive))

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	tmp, err := os.MkdirTemp(parent, filepath.Base(dest)+".partial-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	if err := untar(archive, tmp); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("%w: extract %s: %w", ErrAcquisition, archive, err)
	}

	if err := os.WriteFile(filepath.Join(tmp, extractedMarker), []byte(archive+"\n"), 0o644); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	return dest, nil
}

func untar(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, err := decompressor(archive, f)
	if err != nil {
		return err
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkParents(dest, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlinkEntry(dest, target, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := linkEntry(dest, target, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeXGlobalHeader:
		default:
			return fmt.Errorf("archive entry %q has unsupported type %q", hdr.Name, hdr.Typeflag)
		}
	}
}

func decompressor(archive string, r io.Reader) (io.Reader, error) {
	name := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return xz.NewReader(r)
	case strings.HasSuffix(name, ".tar"):
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(archive))
	}
}

// entryPath resolves a tar entry name under dest, rejecting entries that
// would escape it.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !within(dest, target) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func within(dest, path string) bool {
	rel, err := filepath.Rel(dest, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// noSymlinkParents refuses to write through a symlink already unpacked under
// dest, which could point anywhere.
func noSymlinkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return err
	}
	path := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		path = filepath.Join(path, part)
		info, err := os.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive entry %q is written through symlink %s", rel, path)
		}
	}
	return nil
}

func symlinkEntry(dest, target, linkname string) error {
	if filepath.IsAbs(linkname) || !within(dest, filepath.Join(filepath.Dir(target), linkname)) {
		return fmt.Errorf("symlink %s -> %s escapes destination", target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("symlink %s -> %s: %w", target, linkname, err)
	}
	return nil
}

// linkEntry recreates a hard link; linkname is an archive path.
func linkEntry(dest, target, linkname string) error {
	source, err := entryPath(dest, linkname)
	if err != nil {
		return err
	}
	if err := noSymlinkParents(dest, source); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.Link(source, target); err != nil {
		return fmt.Errorf("hard link %s -> %s: %w", target, linkname, err)
	}
	return nil
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}
