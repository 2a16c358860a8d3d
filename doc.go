// Package spatialext stages the libspatialindex shared libraries into a
// language extension's package tree before the extension is bundled.
//
// The R-tree wrapper extension is a thin binding; the work is getting the
// native library built the same way on every host and every rerun.
//
// # Pipeline
//
// The Gate is satisfied when <package>/.libs exists. Otherwise it runs, in
// order:
//
//	Gate
//	├── Fetcher         spatialindex-<version>.tar.gz (skipped when present)
//	├── Extractor       spatialindex-<version>/       (skipped when present)
//	├── StrategyFactory first strategy whose sentinel is in the tree
//	│   ├── AutotoolsStrategy  autogen.sh → configure --disable-static → make
//	│   └── CMakeStrategy      cmake . → make
//	├── FindBuildRoot   post-order search for the sentinel
//	└── Stager          <package>/.libs/{core, C API} library
//
// and re-checks the staging directory afterwards. Every stage skips work a
// previous run already completed, so an interrupted build resumes instead of
// starting over.
//
// # Basic Usage
//
//	cfg, err := spatialext.LoadConfig(nil)
//	if err != nil {
//	    return err
//	}
//	result, err := spatialext.NewGate(cfg, logger).Ensure(ctx)
//
// # Platform Support
//
// Linux and macOS build from source (macOS as an x86_64/i386 fat build).
// Windows uses libraries supplied out of band through SPATIALINDEX_LIBRARY
// and SPATIALINDEX_C_LIBRARY.
package spatialext
