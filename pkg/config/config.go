package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/mkincludes/pkg/errors"
	"github.com/arthur-debert/mkincludes/pkg/logging"
)

const (
	// ProjectConfigFile is looked up in the working directory
	ProjectConfigFile = ".mkincludes.toml"

	// UserConfigFile is resolved against the XDG config directories
	UserConfigFile = "mkincludes/config.toml"
)

// RemapEntry is one extra destination file name substitution.
type RemapEntry struct {
	From string `koanf:"from"`
	To   string `koanf:"to"`
}

// Config is the resolved tool configuration. It is read once at start-up
// and treated as immutable afterwards.
type Config struct {
	SourcesDir string       `koanf:"sources_dir"`
	Keywords   []string     `koanf:"keywords"`
	Exclude    []string     `koanf:"exclude"`
	Remap      []RemapEntry `koanf:"remap"`

	// Files lists the configuration files that were loaded, in order.
	Files []string `koanf:"-"`
}

// LoadOptions controls which layers Load reads.
type LoadOptions struct {
	// WorkDir is searched for ProjectConfigFile. Empty means the current directory.
	WorkDir string

	// ExplicitFile, when set, must exist and is loaded last.
	ExplicitFile string

	// SkipUserConfig disables the XDG user configuration layer.
	SkipUserConfig bool
}

// Load resolves the configuration layers and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	var loaded []string
	loadFile := func(path string) error {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path).
				WithDetail("path", path)
		}
		logger.Debug().Str("path", path).Msg("Loaded config file")
		loaded = append(loaded, path)
		return nil
	}

	if !opts.SkipUserConfig {
		if path, err := xdg.SearchConfigFile(UserConfigFile); err == nil {
			if err := loadFile(path); err != nil {
				return nil, err
			}
		}
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	projectPath := filepath.Join(workDir, ProjectConfigFile)
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFile(projectPath); err != nil {
			return nil, err
		}
	}

	if opts.ExplicitFile != "" {
		if _, err := os.Stat(opts.ExplicitFile); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", opts.ExplicitFile)
		}
		if err := loadFile(opts.ExplicitFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode configuration")
	}
	cfg.Files = loaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.SourcesDir == "" {
		return errors.New(errors.ErrConfigParse, "sources_dir must not be empty")
	}
	if len(c.Keywords) == 0 {
		return errors.New(errors.ErrConfigParse, "keywords must list at least one directive")
	}
	for _, kw := range c.Keywords {
		if kw == "" {
			return errors.New(errors.ErrConfigParse, "keywords must not contain empty entries")
		}
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Newf(errors.ErrConfigParse, "invalid exclude pattern %q", pattern)
		}
	}
	for _, entry := range c.Remap {
		if entry.From == "" || entry.To == "" {
			return errors.New(errors.ErrConfigParse, "remap entries need both from and to")
		}
		if filepath.Base(entry.From) != entry.From || filepath.Base(entry.To) != entry.To {
			return errors.Newf(errors.ErrConfigParse, "remap entry %s -> %s must name base file names", entry.From, entry.To)
		}
	}
	return nil
}

// RemapPairs returns the configured remap entries as a map.
func (c *Config) RemapPairs() map[string]string {
	pairs := make(map[string]string, len(c.Remap))
	for _, entry := range c.Remap {
		pairs[entry.From] = entry.To
	}
	return pairs
}
