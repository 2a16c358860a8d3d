package spatialext

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the orchestrator reads,
// e.g. SPATIALINDEX_VERSION, SPATIALINDEX_LIBRARY, SPATIALINDEX_C_LIBRARY.
const EnvPrefix = "SPATIALINDEX"

// Windows installs the libraries shipped out-of-band under this prefix.
const (
	windowsDefaultLibrary  = `D:\libspatialindex\bin\spatialindex.dll`
	windowsDefaultCLibrary = `D:\libspatialindex\bin\spatialindex_c.dll`
)

// Config captures everything the gate needs for one packaging run.
type Config struct {
	Version     string `mapstructure:"version"`
	URLTemplate string `mapstructure:"url_template"`
	WorkDir     string `mapstructure:"work_dir"`
	PackageDir  string `mapstructure:"package_dir"`

	// Toolchain forces "autotools" or "cmake"; empty selects by sentinel.
	Toolchain       string            `mapstructure:"toolchain"`
	Sentinel        string            `mapstructure:"sentinel"`
	CMakeDescriptor string            `mapstructure:"cmake_descriptor"`
	ConfigureArgs   []string          `mapstructure:"configure_args"`
	Env             map[string]string `mapstructure:"env"`
	Jobs            int               `mapstructure:"jobs"`

	// Platform overrides the host platform ("linux", "macos", "windows").
	Platform string `mapstructure:"platform"`

	// Library and CLibrary point at prebuilt libraries; when set the
	// pipeline is bypassed and they are declared as data files instead.
	Library  string `mapstructure:"library"`
	CLibrary string `mapstructure:"c_library"`

	CheckTools bool `mapstructure:"check_tools"`
	Verbose    bool `mapstructure:"verbose"`
	Trace      bool `mapstructure:"trace"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Version:     DefaultVersion,
		URLTemplate: DefaultURLTemplate,
		WorkDir:     ".",
		PackageDir:  "rtree",
		Env:         map[string]string{},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"version":          "version",
	"url-template":     "url_template",
	"work-dir":         "work_dir",
	"package-dir":      "package_dir",
	"toolchain":        "toolchain",
	"sentinel":         "sentinel",
	"cmake-descriptor": "cmake_descriptor",
	"configure-arg":    "configure_args",
	"jobs":             "jobs",
	"platform":         "platform",
	"library":          "library",
	"c-library":        "c_library",
	"check-tools":      "check_tools",
	"verbose":          "verbose",
	"trace":            "trace",
}

// LoadConfig loads configuration from defaults, an optional spatialindex.yaml
// in . or ./configs, SPATIALINDEX_* environment variables and, when flags is
// non-nil, the command line (highest precedence).
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName("spatialindex")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("url_template", defaults.URLTemplate)
	v.SetDefault("work_dir", defaults.WorkDir)
	v.SetDefault("package_dir", defaults.PackageDir)
	v.SetDefault("toolchain", "")
	v.SetDefault("sentinel", "")
	v.SetDefault("cmake_descriptor", "")
	v.SetDefault("configure_args", []string{})
	v.SetDefault("env", map[string]string{})
	v.SetDefault("jobs", 0)
	v.SetDefault("platform", "")
	v.SetDefault("library", "")
	v.SetDefault("c_library", "")
	v.SetDefault("check_tools", true)
	v.SetDefault("verbose", false)
	v.SetDefault("trace", false)

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper lowercases map keys; environment names are upper case.
	cfg.Env = lo.MapKeys(cfg.Env, func(_ string, key string) string {
		return strings.ToUpper(key)
	})

	cfg.applyPlatformDefaults(runtime.GOOS)
	return cfg, cfg.Validate()
}

// applyPlatformDefaults fills in the out-of-band library locations on
// Windows, where the native library is never built from source.
func (c *Config) applyPlatformDefaults(goos string) {
	if c.TargetPlatform(goos) != PlatformWindows {
		return
	}
	if c.Library == "" {
		c.Library = windowsDefaultLibrary
	}
	if c.CLibrary == "" {
		c.CLibrary = windowsDefaultCLibrary
	}
}

// TargetPlatform resolves the configured platform override, falling back to goos.
func (c Config) TargetPlatform(goos string) Platform {
	switch strings.ToLower(c.Platform) {
	case "":
		return ResolvePlatform(goos)
	case "macos", "macosx", "osx":
		return PlatformMacOS
	default:
		return ResolvePlatform(strings.ToLower(c.Platform))
	}
}

// Prebuilt reports whether out-of-band libraries are configured.
func (c Config) Prebuilt() bool {
	return c.Library != "" || c.CLibrary != ""
}

// Validate rejects configurations the gate cannot act on.
func (c Config) Validate() error {
	if c.Version == "" && !c.Prebuilt() {
		return errors.New("version must not be empty")
	}
	if c.PackageDir == "" {
		return errors.New("package_dir must not be empty")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	switch strings.ToLower(c.Toolchain) {
	case "", "autotools", "cmake":
	default:
		return fmt.Errorf("unknown toolchain %q (known: autotools, cmake)", c.Toolchain)
	}
	if (c.Library == "") != (c.CLibrary == "") {
		return errors.New("library and c_library must be set together")
	}
	return nil
}
