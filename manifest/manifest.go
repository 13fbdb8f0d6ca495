// Package manifest handles wsi.toml interpreter configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/wsi/compiler"
	"github.com/chazu/wsi/vm"
)

// FileName is the manifest file looked up next to programs.
const FileName = "wsi.toml"

var log = commonlog.GetLogger("wsi.manifest")

// Manifest represents a wsi.toml configuration.
type Manifest struct {
	Limits Limits      `toml:"limits" json:"limits"`
	Parser Parser      `toml:"parser" json:"parser"`
	Debug  Debug       `toml:"debug" json:"debug"`
	Cache  CacheConfig `toml:"cache" json:"cache"`

	// Dir is the directory containing the wsi.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Limits bounds the machine and the parameter decoder.
type Limits struct {
	StackDepth  int    `toml:"stack-depth" json:"stack-depth"`
	CallDepth   int    `toml:"call-depth" json:"call-depth"`
	MaxParamLen int    `toml:"max-param-len" json:"max-param-len"`
	MaxSteps    uint64 `toml:"max-steps" json:"max-steps"`
}

// Parser configures compilation.
type Parser struct {
	StrictParams bool `toml:"strict-params" json:"strict-params"`
}

// Debug enables per-instruction tracing.
type Debug struct {
	TraceInstructions bool `toml:"trace-instructions" json:"trace-instructions"`
	TraceStack        bool `toml:"trace-stack" json:"trace-stack"`
}

// CacheConfig configures the compiled-program cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Default returns the configuration used when no wsi.toml exists.
func Default() *Manifest {
	return &Manifest{
		Limits: Limits{
			StackDepth:  vm.DefaultStackDepth,
			CallDepth:   vm.DefaultCallDepth,
			MaxParamLen: compiler.DefaultMaxParamLen,
		},
	}
}

// Load parses a wsi.toml file from the given directory. Keys that are not
// present keep their defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest text.
func Parse(data []byte) (*Manifest, error) {
	m := Default()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("unknown manifest key %q", key.String())
	}

	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a wsi.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CompilerOptions returns the parser settings.
func (m *Manifest) CompilerOptions() compiler.Options {
	return compiler.Options{
		StrictParams: m.Parser.StrictParams,
		MaxParamLen:  m.Limits.MaxParamLen,
	}
}

// VMConfig returns the machine limits and tracing switches.
func (m *Manifest) VMConfig() vm.Config {
	return vm.Config{
		StackDepth:        m.Limits.StackDepth,
		CallDepth:         m.Limits.CallDepth,
		MaxSteps:          m.Limits.MaxSteps,
		TraceInstructions: m.Debug.TraceInstructions,
		TraceStack:        m.Debug.TraceStack,
	}
}

// CachePath returns the cache database location. Relative paths are taken
// from the manifest's directory; an empty path means ~/.wsi/cache.db.
func (m *Manifest) CachePath() (string, error) {
	p := m.Cache.Path
	if p == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot locate home directory: %w", err)
		}
		return filepath.Join(home, ".wsi", "cache.db"), nil
	}
	if !filepath.IsAbs(p) && m.Dir != "" {
		p = filepath.Join(m.Dir, p)
	}
	return p, nil
}
