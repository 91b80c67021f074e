// Package numdict implements sparse numeric mappings from construct symbols
// to float64 values with a declared default.
//
// NumDict values are immutable: every operation returns a fresh NumDict and
// no NumDict shares its backing map with a mutable owner. MutableNumDict is
// the only type with in-place setters; Freeze copies it out.
package numdict

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// #region types

// NumDict is an immutable symbol→float mapping. Absent keys read as the default.
type NumDict struct {
	m   map[symbols.Symbol]float64
	def float64
}

// MutableNumDict is a NumDict that can be edited in place.
type MutableNumDict struct {
	NumDict
}

// #endregion types

// #region constructors

// New copies m into a NumDict with the given default.
func New(m map[symbols.Symbol]float64, def float64) NumDict {
	cp := make(map[symbols.Symbol]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return NumDict{m: cp, def: def}
}

// Empty returns a NumDict with no explicit entries.
func Empty(def float64) NumDict {
	return NumDict{m: map[symbols.Symbol]float64{}, def: def}
}

// NewMutable returns an empty mutable mapping with the given default.
func NewMutable(def float64) *MutableNumDict {
	return &MutableNumDict{NumDict: Empty(def)}
}

// Thaw returns a mutable copy of d.
func Thaw(d NumDict) *MutableNumDict {
	return &MutableNumDict{NumDict: New(d.m, d.def)}
}

// #endregion constructors

// #region accessors

// Get returns the value for k, or the default when k is absent.
func (d NumDict) Get(k symbols.Symbol) float64 {
	if v, ok := d.m[k]; ok {
		return v
	}
	return d.def
}

// Has reports whether k has an explicit entry.
func (d NumDict) Has(k symbols.Symbol) bool {
	_, ok := d.m[k]
	return ok
}

// Default returns the declared default.
func (d NumDict) Default() float64 { return d.def }

// Len returns the number of explicit entries.
func (d NumDict) Len() int { return len(d.m) }

// Keys returns the explicit keys in symbols.Less order.
func (d NumDict) Keys() []symbols.Symbol {
	keys := make([]symbols.Symbol, 0, len(d.m))
	for k := range d.m {
		keys = append(keys, k)
	}
	symbols.Sort(keys)
	return keys
}

// Each calls fn for every explicit entry in key order.
func (d NumDict) Each(fn func(k symbols.Symbol, v float64)) {
	for _, k := range d.Keys() {
		fn(k, d.m[k])
	}
}

// Map returns a copy of the explicit entries.
func (d NumDict) Map() map[symbols.Symbol]float64 {
	cp := make(map[symbols.Symbol]float64, len(d.m))
	for k, v := range d.m {
		cp[k] = v
	}
	return cp
}

// String renders entries in key order.
func (d NumDict) String() string {
	var b strings.Builder
	b.WriteString("NumDict{")
	for i, k := range d.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %g", k, d.m[k])
	}
	fmt.Fprintf(&b, "; default=%g}", d.def)
	return b.String()
}

// #endregion accessors

// #region mutation

// Set assigns v to k.
func (d *MutableNumDict) Set(k symbols.Symbol, v float64) {
	d.m[k] = v
}

// Delete removes k's explicit entry.
func (d *MutableNumDict) Delete(k symbols.Symbol) {
	delete(d.m, k)
}

// Extend assigns v to every key in keys that has no explicit entry.
func (d *MutableNumDict) Extend(keys []symbols.Symbol, v float64) {
	for _, k := range keys {
		if _, ok := d.m[k]; !ok {
			d.m[k] = v
		}
	}
}

// SetMax raises k's value to v if v is larger than the current reading.
func (d *MutableNumDict) SetMax(k symbols.Symbol, v float64) {
	d.m[k] = math.Max(d.Get(k), v)
}

// Squeeze drops entries equal to the default.
func (d *MutableNumDict) Squeeze() {
	for k, v := range d.m {
		if v == d.def {
			delete(d.m, k)
		}
	}
}

// Freeze returns an immutable copy. Later edits to d do not affect it.
func (d *MutableNumDict) Freeze() NumDict {
	return New(d.m, d.def)
}

// #endregion mutation

// #region keys-helper
func unionKeys(a, b NumDict) []symbols.Symbol {
	seen := make(map[symbols.Symbol]struct{}, len(a.m)+len(b.m))
	for k := range a.m {
		seen[k] = struct{}{}
	}
	for k := range b.m {
		seen[k] = struct{}{}
	}
	keys := make([]symbols.Symbol, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	symbols.Sort(keys)
	return keys
}

// #endregion keys-helper
