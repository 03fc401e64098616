// Package config handles glulx.toml interpreter configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for by FindAndLoad.
const FileName = "glulx.toml"

// Config represents a glulx.toml file.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	Log         Log         `toml:"log"`
	Display     Display     `toml:"display"`
	Saves       Saves       `toml:"saves"`

	// Dir is the directory containing the file (set at load time). Relative
	// paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Interpreter configures the virtual machine.
type Interpreter struct {
	RandomSeed uint32 `toml:"random-seed"` // 0 seeds from the clock
	Accel      bool   `toml:"accel"`
	Trace      bool   `toml:"trace"`
	Profile    bool   `toml:"profile"`
	StackLimit int    `toml:"stack-limit"` // words; 0 uses the image header
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Display configures the terminal.
type Display struct {
	Width int  `toml:"width"` // 0 detects the terminal width
	Wrap  bool `toml:"wrap"`
}

// Saves configures where files written by games go.
type Saves struct {
	Dir      string `toml:"dir"`
	Database string `toml:"database"` // when set, files go to this SQLite database
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Interpreter: Interpreter{Accel: true},
		Display:     Display{Wrap: true},
		Saves:       Saves{Dir: "."},
		Dir:         ".",
	}
}

// Load parses glulx.toml from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses the configuration file at path. Keys missing from the
// file keep their defaults; unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a glulx.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Interpreter.StackLimit < 0 {
		errs = append(errs, fmt.Errorf("interpreter.stack-limit must not be negative (got %d)", c.Interpreter.StackLimit))
	}
	if c.Display.Width < 0 {
		errs = append(errs, fmt.Errorf("display.width must not be negative (got %d)", c.Display.Width))
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 2 {
		errs = append(errs, fmt.Errorf("log.verbosity must be between -4 and 2 (got %d)", c.Log.Verbosity))
	}
	return errors.Join(errs...)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// SavesDir returns the absolute or config-relative directory for files.
func (c *Config) SavesDir() string {
	return c.resolve(c.Saves.Dir)
}

// DatabasePath returns the save database path, or "" when unset.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Saves.Database)
}

// LogFile returns the log file path, or "" for standard error.
func (c *Config) LogFile() string {
	return c.resolve(c.Log.File)
}
