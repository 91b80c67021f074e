package numdict

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/rulenet/internal/symbols"
)

// ErrDistribution is returned when a mapping cannot be used as a sampling distribution.
var ErrDistribution = errors.New("invalid distribution")

// #region elementwise

// binary applies op over the key union; the result default is op(a.def, b.def).
func binary(a, b NumDict, op func(x, y float64) float64) NumDict {
	out := Empty(op(a.def, b.def))
	for _, k := range unionKeys(a, b) {
		out.m[k] = op(a.Get(k), b.Get(k))
	}
	return out
}

// Mul multiplies a and b elementwise.
func Mul(a, b NumDict) NumDict {
	return binary(a, b, func(x, y float64) float64 { return x * y })
}

// Div divides a by b elementwise.
func Div(a, b NumDict) NumDict {
	return binary(a, b, func(x, y float64) float64 { return x / y })
}

// Max takes the elementwise maximum of a and b.
func Max(a, b NumDict) NumDict {
	return binary(a, b, math.Max)
}

// Scale multiplies every value, default included, by s.
func Scale(d NumDict, s float64) NumDict {
	out := Empty(d.def * s)
	for k, v := range d.m {
		out.m[k] = v * s
	}
	return out
}

// DivScalar divides every value, default included, by s.
func DivScalar(d NumDict, s float64) NumDict {
	out := Empty(d.def / s)
	for k, v := range d.m {
		out.m[k] = v / s
	}
	return out
}

// #endregion elementwise

// #region filtering

// Keep restricts d to the listed keys. Keys absent from d stay absent.
func Keep(d NumDict, keys []symbols.Symbol) NumDict {
	out := Empty(d.def)
	for _, k := range keys {
		if v, ok := d.m[k]; ok {
			out.m[k] = v
		}
	}
	return out
}

// Squeeze returns d without entries equal to its default.
func Squeeze(d NumDict) NumDict {
	m := Thaw(d)
	m.Squeeze()
	return m.NumDict
}

// TransformKeys remaps every key through fn. When two keys map to the same
// target their values are merged with combine.
func TransformKeys(d NumDict, fn func(symbols.Symbol) symbols.Symbol, combine func(x, y float64) float64) NumDict {
	out := Empty(d.def)
	for _, k := range d.Keys() {
		nk := fn(k)
		if prev, ok := out.m[nk]; ok {
			out.m[nk] = combine(prev, d.m[k])
			continue
		}
		out.m[nk] = d.m[k]
	}
	return out
}

// #endregion filtering

// #region reduction

// Sum adds the explicit values of d. The default does not contribute.
func Sum(d NumDict) float64 {
	var s float64
	for _, k := range d.Keys() {
		s += d.m[k]
	}
	return s
}

// IsClose reports whether a and b agree within tol on the default and on
// every key either of them defines.
func IsClose(a, b NumDict, tol float64) bool {
	if !near(a.def, b.def, tol) {
		return false
	}
	for _, k := range unionKeys(a, b) {
		if !near(a.Get(k), b.Get(k), tol) {
			return false
		}
	}
	return true
}

func near(x, y, tol float64) bool {
	if x == y {
		return true
	}
	diff := math.Abs(x - y)
	return diff <= tol || diff <= tol*math.Max(math.Abs(x), math.Abs(y))
}

// #endregion reduction

// #region selection

// Boltzmann converts d into a probability distribution with a
// temperature-scaled softmax over its explicit entries. Lower temperatures
// concentrate mass on the largest entries. The result default is 0.
func Boltzmann(d NumDict, temperature float64) (NumDict, error) {
	if temperature <= 0 || math.IsNaN(temperature) {
		return NumDict{}, fmt.Errorf("boltzmann: temperature must be positive, got %g", temperature)
	}
	out := Empty(0)
	if len(d.m) == 0 {
		return out, nil
	}

	keys := d.Keys()
	top := math.Inf(-1)
	for _, k := range keys {
		v := d.m[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NumDict{}, fmt.Errorf("boltzmann: non-finite value %g for %s: %w", v, k, ErrDistribution)
		}
		top = math.Max(top, v)
	}
	var z float64
	for _, k := range keys {
		e := math.Exp((d.m[k] - top) / temperature)
		out.m[k] = e
		z += e
	}
	for _, k := range keys {
		out.m[k] /= z
	}
	return out, nil
}

// Draw samples n distinct keys without replacement, each draw proportional
// to the remaining weights. The result maps selected keys to 1 with default 0.
// Keys are visited in sorted order so a seeded rng gives reproducible draws.
func Draw(d NumDict, n int, rng *rand.Rand) (NumDict, error) {
	if n < 0 || n > len(d.m) {
		return NumDict{}, fmt.Errorf("draw %d from %d entries: %w", n, len(d.m), ErrDistribution)
	}
	keys := d.Keys()
	weights := make([]float64, len(keys))
	for i, k := range keys {
		w := d.m[k]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return NumDict{}, fmt.Errorf("weight %g for %s: %w", w, k, ErrDistribution)
		}
		weights[i] = w
	}

	out := Empty(0)
	for draw := 0; draw < n; draw++ {
		var total float64
		for i, w := range weights {
			if _, taken := out.m[keys[i]]; !taken {
				total += w
			}
		}
		idx := -1
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range weights {
				if _, taken := out.m[keys[i]]; taken || w == 0 {
					continue
				}
				idx = i
				r -= w
				if r < 0 {
					break
				}
			}
		} else {
			// No mass left: pick uniformly among the remaining keys.
			var remaining []int
			for i := range keys {
				if _, taken := out.m[keys[i]]; !taken {
					remaining = append(remaining, i)
				}
			}
			idx = remaining[rng.IntN(len(remaining))]
		}
		out.m[keys[idx]] = 1
	}
	return out, nil
}

// #endregion selection
