package spatialext

import "fmt"

// Platform identifies the host family the native library is built for.
type Platform int

// Supported platforms. Anything unrecognised resolves to PlatformLinux.
const (
	PlatformLinux Platform = iota
	PlatformMacOS
	PlatformWindows
)

// Platform constants
const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
)

// macOSArchFlags forces a fat x86_64/i386 build on macOS.
const macOSArchFlags = "-arch x86_64 -arch i386"

// LibraryArtifactSet is the ordered pair of shared libraries produced by a
// libspatialindex build: the core library and its C-ABI wrapper.
type LibraryArtifactSet struct {
	Core string
	CAPI string
}

// Names returns the artifact file names in staging order.
func (s LibraryArtifactSet) Names() []string {
	return []string{s.Core, s.CAPI}
}

// ResolvePlatform maps a GOOS value to a Platform.
func ResolvePlatform(goos string) Platform {
	switch goos {
	case platformDarwin:
		return PlatformMacOS
	case platformWindows:
		return PlatformWindows
	default:
		return PlatformLinux
	}
}

// String returns the platform name.
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macos"
	case PlatformWindows:
		return "windows"
	default:
		return "linux"
	}
}

// Artifacts returns the shared-library names expected on this platform.
func (p Platform) Artifacts() LibraryArtifactSet {
	switch p {
	case PlatformMacOS:
		return LibraryArtifactSet{Core: "libspatialindex.dylib", CAPI: "libspatialindex_c.dylib"}
	case PlatformWindows:
		return LibraryArtifactSet{Core: "libspatialindex.dll", CAPI: "libspatialindex_c.dll"}
	default:
		return LibraryArtifactSet{Core: "libspatialindex.so", CAPI: "libspatialindex_c.so"}
	}
}

// ToolchainEnv returns the environment overlay every toolchain subprocess
// must run with on this platform. The overlay is passed explicitly through
// BuildConfig.Env; the process environment is never modified.
func (p Platform) ToolchainEnv() map[string]string {
	if p == PlatformMacOS {
		return map[string]string{"CFLAGS": macOSArchFlags}
	}
	return map[string]string{}
}

// PlatformTag renders the distutils-style platform tag for the given GOARCH,
// e.g. "linux-x86_64", "macosx-10.9-x86_64", "win-amd64".
func (p Platform) PlatformTag(goarch string) string {
	switch p {
	case PlatformWindows:
		if goarch == "386" {
			return "win32"
		}
		return "win-" + goarch
	case PlatformMacOS:
		if goarch == "arm64" {
			return "macosx-11.0-arm64"
		}
		return fmt.Sprintf("macosx-10.9-%s", machineName(goarch))
	default:
		return fmt.Sprintf("linux-%s", machineName(goarch))
	}
}

func machineName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}
