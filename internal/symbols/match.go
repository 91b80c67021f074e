package symbols

// #region contains

// Contains reports whether sym satisfies the spec.
func (m MatchSpec) Contains(sym Symbol) bool {
	if m.Types&sym.Type != 0 {
		return true
	}
	for _, c := range m.Constructs {
		if c == sym {
			return true
		}
	}
	for _, pred := range m.Predicates {
		if pred(sym) {
			return true
		}
	}
	return false
}

// #endregion contains

// #region builders

// MatchAll returns a spec that accepts every construct.
func MatchAll() MatchSpec {
	return MatchSpec{Predicates: []func(Symbol) bool{func(Symbol) bool { return true }}}
}

// MatchTypes returns a spec that accepts any construct whose type intersects t.
func MatchTypes(t ConstructType) MatchSpec {
	return MatchSpec{Types: t}
}

// MatchConstructs returns a spec that accepts exactly the listed constructs.
func MatchConstructs(syms ...Symbol) MatchSpec {
	cs := make([]Symbol, len(syms))
	copy(cs, syms)
	return MatchSpec{Constructs: cs}
}

// Clone returns a copy whose slices can be appended to independently.
func (m MatchSpec) Clone() MatchSpec {
	out := MatchSpec{Types: m.Types}
	if m.Constructs != nil {
		out.Constructs = append([]Symbol(nil), m.Constructs...)
	}
	if m.Predicates != nil {
		out.Predicates = append([]func(Symbol) bool(nil), m.Predicates...)
	}
	return out
}

// #endregion builders
