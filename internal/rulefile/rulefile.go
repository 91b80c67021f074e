// Package rulefile loads rule databases from TOML or YAML files and turns
// file edits into add/delete requests against a live database.
package rulefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region load

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrFormat, path)
	}
}

// Load reads and parses the rule file at path.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data and checks it for structural errors.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) check() error {
	if f.MaxConds != nil && *f.MaxConds < 0 {
		return fmt.Errorf("%w: max_conds must be non-negative", ErrInvalidFile)
	}
	if f.Temperature < 0 {
		return fmt.Errorf("%w: temperature must be positive", ErrInvalidFile)
	}
	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: rule %d has no id", ErrInvalidFile, i)
		}
		if r.Conclusion == "" {
			return fmt.Errorf("%w: rule %q has no conclusion", ErrInvalidFile, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidFile, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// #endregion load

// #region build

// Forms converts every rule spec into a validated rule form.
func (f *File) Forms() (map[symbols.Symbol]rules.Rule, error) {
	forms := make(map[symbols.Symbol]rules.Rule, len(f.Rules))
	for _, spec := range f.Rules {
		id, form, err := spec.form()
		if err != nil {
			return nil, err
		}
		forms[id] = form
	}
	return forms, nil
}

// Build creates a fresh database holding the file's rules.
func (f *File) Build() (*rules.Rules, error) {
	forms, err := f.Forms()
	if err != nil {
		return nil, err
	}
	opts := []rules.Option{rules.WithData(forms)}
	if f.MaxConds != nil {
		opts = append(opts, rules.WithMaxConds(*f.MaxConds))
	}
	return rules.New(opts...)
}

func (s RuleSpec) form() (symbols.Symbol, rules.Rule, error) {
	id, err := symbols.ParseRef(s.ID, symbols.RuleType)
	if err != nil {
		return symbols.Symbol{}, rules.Rule{}, fmt.Errorf("%w: rule id: %v", ErrInvalidFile, err)
	}
	conc, err := symbols.ParseRef(s.Conclusion, symbols.ChunkType)
	if err != nil {
		return id, rules.Rule{}, fmt.Errorf("%w: rule %s conclusion: %v", ErrInvalidFile, id, err)
	}
	conds := make([]symbols.Symbol, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		sym, err := symbols.ParseRef(c, symbols.ChunkType)
		if err != nil {
			return id, rules.Rule{}, fmt.Errorf("%w: rule %s condition: %v", ErrInvalidFile, id, err)
		}
		conds = append(conds, sym)
	}
	var weights map[symbols.Symbol]float64
	if len(s.Weights) > 0 {
		weights = make(map[symbols.Symbol]float64, len(s.Weights))
		for k, w := range s.Weights {
			sym, err := symbols.ParseRef(k, symbols.ChunkType)
			if err != nil {
				return id, rules.Rule{}, fmt.Errorf("%w: rule %s weight: %v", ErrInvalidFile, id, err)
			}
			weights[sym] = w
		}
	}
	form, err := rules.NewRule(conc, conds, weights)
	if err != nil {
		return id, rules.Rule{}, fmt.Errorf("rule %s: %w", id, err)
	}
	return id, form, nil
}

// #endregion build
