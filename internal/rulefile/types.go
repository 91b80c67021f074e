package rulefile

import (
	"errors"

	"github.com/danielpatrickdp/rulenet/internal/rules"
	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

var (
	ErrFormat       = errors.New("unsupported rule file format")
	ErrInvalidFile  = errors.New("invalid rule file")
	ErrIncompatible = errors.New("rule file does not match database")
)

// Format identifies a rule file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// File is a declarative rule source.
type File struct {
	MaxConds    *int       `toml:"max_conds,omitempty" yaml:"max_conds,omitempty"`
	Temperature float64    `toml:"temperature,omitempty" yaml:"temperature,omitempty"`
	Rules       []RuleSpec `toml:"rules" yaml:"rules"`
}

// RuleSpec declares one rule. Plain names are chunk symbols for conditions
// and conclusions and rule symbols for ids; typed text such as chunk(x) is
// also accepted.
type RuleSpec struct {
	ID         string             `toml:"id" yaml:"id"`
	Conclusion string             `toml:"conclusion" yaml:"conclusion"`
	Conditions []string           `toml:"conditions" yaml:"conditions"`
	Weights    map[string]float64 `toml:"weights,omitempty" yaml:"weights,omitempty"`
}

// Changes is the request set that moves a database to a file's contents.
type Changes struct {
	Add map[symbols.Symbol]rules.Rule
	Del []symbols.Symbol
}

// Empty reports whether there is nothing to request.
func (c Changes) Empty() bool {
	return len(c.Add) == 0 && len(c.Del) == 0
}
