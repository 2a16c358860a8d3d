package spatialext

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
	"go.uber.org/zap"
)

// StagingDirName is the directory inside the package that receives the
// shared libraries.
const StagingDirName = ".libs"

// ArtifactStager copies built libraries into the package tree.
type ArtifactStager interface {
	Stage(set LibraryArtifactSet, srcDir, dstDir string) ([]string, error)
}

// Stager creates dstDir and copies the artifact set into it.
//
// dstDir must not exist yet: the gate only stages when it is absent, so a
// pre-existing directory is reported rather than merged into. Every failure
// is surfaced as ErrLibraryNotFound. If a copy fails after dstDir was
// created, dstDir is removed again so the next run starts from needs_build.
type Stager struct {
	Logger *zap.Logger
}

// Stage copies set.Core and set.CAPI from srcDir to a new dstDir and returns
// the staged paths.
func (s *Stager) Stage(set LibraryArtifactSet, srcDir, dstDir string) ([]string, error) {
	log := loggerOrNop(s.Logger).With(zap.String("stage", "stage"))

	for _, name := range set.Names() {
		if info, err := os.Stat(filepath.Join(srcDir, name)); err != nil {
			return nil, libraryNotFound(set, err)
		} else if info.IsDir() {
			return nil, libraryNotFound(set, fmt.Errorf("%s is a directory", filepath.Join(srcDir, name)))
		}
	}

	if err := os.Mkdir(dstDir, 0o755); err != nil {
		return nil, libraryNotFound(set, err)
	}

	log.Info("copying shared libraries", zap.String("from", srcDir), zap.String("to", dstDir))

	var staged []string
	for _, name := range set.Names() {
		dst := filepath.Join(dstDir, name)
		if err := sh.Copy(dst, filepath.Join(srcDir, name)); err != nil {
			os.RemoveAll(dstDir)
			return nil, libraryNotFound(set, err)
		}
		staged = append(staged, dst)
	}

	return staged, nil
}
