package symbols

import (
	"fmt"
	"sort"
	"strings"
)

// #region constructors

// Chunk returns a chunk symbol.
func Chunk(id string) Symbol { return Symbol{Type: ChunkType, ID: id} }

// Feature returns a feature symbol.
func Feature(id string) Symbol { return Symbol{Type: FeatureType, ID: id} }

// Rule returns a rule symbol.
func Rule(id string) Symbol { return Symbol{Type: RuleType, ID: id} }

// Flow returns a flow symbol.
func Flow(id string) Symbol { return Symbol{Type: FlowType, ID: id} }

// Response returns a response symbol.
func Response(id string) Symbol { return Symbol{Type: ResponseType, ID: id} }

// Buffer returns a buffer symbol.
func Buffer(id string) Symbol { return Symbol{Type: BufferType, ID: id} }

// Subsystem returns a subsystem symbol.
func Subsystem(id string) Symbol { return Symbol{Type: SubsystemType, ID: id} }

// Agent returns an agent symbol.
func Agent(id string) Symbol { return Symbol{Type: AgentType, ID: id} }

// #endregion constructors

// #region type-names

// String renders a single flag by name, or a "|" joined list for composites.
func (t ConstructType) String() string {
	var parts []string
	for _, tn := range typeNames {
		if t&tn.t != 0 {
			parts = append(parts, tn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseType resolves a single construct type name.
func ParseType(name string) (ConstructType, error) {
	for _, tn := range typeNames {
		if tn.name == name {
			return tn.t, nil
		}
	}
	return 0, fmt.Errorf("unknown construct type %q", name)
}

// #endregion type-names

// #region text-form

// String renders the symbol as type(id), e.g. chunk(apple).
func (s Symbol) String() string {
	return fmt.Sprintf("%s(%s)", s.Type, s.ID)
}

// ParseSymbol is the inverse of Symbol.String for single-flag types.
func ParseSymbol(text string) (Symbol, error) {
	open := strings.IndexByte(text, '(')
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return Symbol{}, fmt.Errorf("malformed symbol %q", text)
	}
	t, err := ParseType(text[:open])
	if err != nil {
		return Symbol{}, err
	}
	return Symbol{Type: t, ID: text[open+1 : len(text)-1]}, nil
}

// ParseRef reads either typed text such as chunk(x) or a bare id, which is
// given type bare.
func ParseRef(text string, bare ConstructType) (Symbol, error) {
	if strings.ContainsRune(text, '(') {
		return ParseSymbol(text)
	}
	if text == "" {
		return Symbol{}, fmt.Errorf("empty symbol reference")
	}
	return Symbol{Type: bare, ID: text}, nil
}

// MarshalText implements encoding.TextMarshaler so symbols can key JSON objects.
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Symbol) UnmarshalText(b []byte) error {
	parsed, err := ParseSymbol(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// #endregion text-form

// #region ordering

// Less orders symbols by type, then by id.
func Less(a, b Symbol) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.ID < b.ID
}

// Sort sorts symbols in place using Less.
func Sort(syms []Symbol) {
	sort.Slice(syms, func(i, j int) bool { return Less(syms[i], syms[j]) })
}

// #endregion ordering

// #region set

// NewSet builds a set from the given symbols.
func NewSet(syms ...Symbol) Set {
	s := make(Set, len(syms))
	for _, sym := range syms {
		s[sym] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(sym Symbol) bool {
	_, ok := s[sym]
	return ok
}

// Sorted returns the members in Less order.
func (s Set) Sorted() []Symbol {
	out := make([]Symbol, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	Sort(out)
	return out
}

// #endregion set
