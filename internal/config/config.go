// Package config discovers and decodes the optional project configuration file,
// .codegen.toml or .codegen.yaml, found by walking up from the transformed path.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jscodegen/go-codegen/internal/execute"
	"github.com/jscodegen/go-codegen/internal/marker"
	"github.com/jscodegen/go-codegen/internal/value"
)

// File names searched for, in order of preference within one directory.
const (
	TOMLFile = ".codegen.toml"
	YAMLFile = ".codegen.yaml"
)

// DefaultJobs is the number of files transformed concurrently.
const DefaultJobs = 4

// Telemetry configures reporting of transforms to New Relic.
type Telemetry struct {
	AppName string `toml:"app_name" yaml:"app_name"`
	License string `toml:"license" yaml:"license"`
	Enabled bool   `toml:"enabled" yaml:"enabled"`
}

// Config is the project configuration.
type Config struct {
	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-" yaml:"-"`

	Keyword    string    `toml:"keyword" yaml:"keyword"`
	Extensions []string  `toml:"extensions" yaml:"extensions"`
	Exclude    []string  `toml:"exclude" yaml:"exclude"`
	Jobs       int       `toml:"jobs" yaml:"jobs"`
	Target     string    `toml:"target" yaml:"target"`
	Telemetry  Telemetry `toml:"telemetry" yaml:"telemetry"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Keyword:    marker.DefaultKeyword,
		Extensions: []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
		Exclude:    []string{"node_modules"},
		Jobs:       DefaultJobs,
		Target:     execute.DefaultTarget,
		Telemetry:  Telemetry{AppName: "go-codegen"},
	}
}

// Find walks up from startDir to the first directory holding a config file.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range []string{TOMLFile, YAMLFile} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the config file found from startDir, or the defaults when there is
// none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads the config at path over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var file Config
		meta, err := toml.DecodeFile(path, &file)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
		}
		merge(&cfg, file, meta.IsDefined)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
		var file Config
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
		merge(&cfg, file, yamlDefined(raw))
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// merge copies the keys defined in the file onto cfg.
func merge(cfg *Config, file Config, defined func(key ...string) bool) {
	if defined("keyword") {
		cfg.Keyword = file.Keyword
	}
	if defined("extensions") {
		cfg.Extensions = file.Extensions
	}
	if defined("exclude") {
		cfg.Exclude = file.Exclude
	}
	if defined("jobs") {
		cfg.Jobs = file.Jobs
	}
	if defined("target") {
		cfg.Target = file.Target
	}
	if defined("telemetry", "app_name") {
		cfg.Telemetry.AppName = file.Telemetry.AppName
	}
	if defined("telemetry", "license") {
		cfg.Telemetry.License = file.Telemetry.License
	}
	if defined("telemetry", "enabled") {
		cfg.Telemetry.Enabled = file.Telemetry.Enabled
	}
}

func yamlDefined(raw map[string]any) func(key ...string) bool {
	return func(key ...string) bool {
		var cur any = raw
		for _, k := range key {
			m, ok := cur.(map[string]any)
			if !ok {
				return false
			}
			if cur, ok = m[k]; !ok {
				return false
			}
		}
		return true
	}
}

// Validate checks the values of a merged config.
func (c Config) Validate() error {
	if !value.IsIdentifier(c.Keyword) {
		return fmt.Errorf("keyword %q is not a valid identifier", c.Keyword)
	}
	if len(c.Extensions) == 0 {
		return errors.New("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if _, err := execute.ParseTarget(c.Target); err != nil {
		return err
	}
	if c.Telemetry.Enabled && c.Telemetry.License == "" {
		return errors.New("telemetry is enabled but has no license")
	}
	return nil
}

// Excluded reports whether an exclude pattern matches rel as a whole, its base name
// or one of its directory names.
func (c Config) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
		for dir := filepath.Dir(rel); dir != "." && dir != "/"; dir = filepath.Dir(dir) {
			if ok, _ := filepath.Match(pattern, filepath.Base(dir)); ok {
				return true
			}
		}
	}
	return false
}

// Included reports whether a file with this name is transformed.
func (c Config) Included(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
