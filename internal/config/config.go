// Package config loads parser definitions from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
)

// File is the contents of a definitions file.
type File struct {
	Locale Locale `yaml:"locale" toml:"locale"`
	// Constants are substituted at compile time.
	Constants map[string]float64 `yaml:"constants" toml:"constants"`
	// Variables are scalar variables with their initial values.
	Variables map[string]float64 `yaml:"variables" toml:"variables"`
	// Arrays are variables with one value per bulk index.
	Arrays map[string][]float64 `yaml:"arrays" toml:"arrays"`
	// Expressions are evaluated in order by the command.
	Expressions []string `yaml:"expressions" toml:"expressions"`
	// Optimizer turns constant folding on or off. Unset leaves the
	// parser's setting alone.
	Optimizer *bool `yaml:"optimizer" toml:"optimizer"`
}

// Locale holds separator overrides. Each is a single character, or empty to
// keep the parser's current setting.
type Locale struct {
	Decimal   string `yaml:"decimal" toml:"decimal"`
	Argument  string `yaml:"argument" toml:"argument"`
	Thousands string `yaml:"thousands" toml:"thousands"`
}

// Format is the syntax of a definitions file.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ErrFormat is returned for files whose format can't be determined.
var ErrFormat = errors.New("config: unknown file format")

// FormatOf returns the format of a file by its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrFormat, path)
}

// Load reads a definitions file, choosing the format by extension.
func Load(path string) (*File, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(b, f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a definitions file.
func Parse(data []byte, format Format) (*File, error) {
	var cfg File
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case TOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	return &cfg, nil
}

// Bindings is the storage of the variables a File defines. The caller may
// write to it between evaluations.
type Bindings struct {
	Vars   map[string]*float64
	Arrays map[string][]float64
}

// Apply defines everything in cfg on p. Definitions are applied in sorted
// order, so the first error is the same on every run.
func (cfg *File) Apply(p *formula.Parser) (*Bindings, error) {
	if err := cfg.Locale.apply(p); err != nil {
		return nil, err
	}
	if cfg.Optimizer != nil {
		p.EnableOptimizer(*cfg.Optimizer)
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Constants)) {
		if err := p.DefineConst(name, cfg.Constants[name]); err != nil {
			return nil, fmt.Errorf("config: constant %s: %w", name, err)
		}
	}
	b := Bindings{
		Vars:   make(map[string]*float64, len(cfg.Variables)),
		Arrays: make(map[string][]float64, len(cfg.Arrays)),
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Variables)) {
		v := new(float64)
		*v = cfg.Variables[name]
		if err := p.DefineVar(name, v); err != nil {
			return nil, fmt.Errorf("config: variable %s: %w", name, err)
		}
		b.Vars[name] = v
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Arrays)) {
		arr := slices.Clone(cfg.Arrays[name])
		if err := p.DefineVarArray(name, arr); err != nil {
			return nil, fmt.Errorf("config: array %s: %w", name, err)
		}
		b.Arrays[name] = arr
	}
	return &b, nil
}

func (l Locale) apply(p *formula.Parser) error {
	seps := []struct {
		kind string
		s    string
		set  func(rune) error
	}{
		{"argument", l.Argument, p.SetArgSep},
		{"decimal", l.Decimal, p.SetDecSep},
		{"thousands", l.Thousands, p.SetThousandsSep},
	}
	for _, sep := range seps {
		if sep.s == "" {
			continue
		}
		r, err := Sep(sep.s)
		if err != nil {
			return fmt.Errorf("config: %s separator: %w", sep.kind, err)
		}
		if err := sep.set(r); err != nil {
			return fmt.Errorf("config: %s separator: %w", sep.kind, err)
		}
	}
	return nil
}

// Sep parses a separator setting, which must be exactly one character.
func Sep(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("separator must be one character, not %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
