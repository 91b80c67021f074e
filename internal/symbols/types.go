package symbols

// #region construct-type

// ConstructType is a bit flag naming the category of a construct.
// Flags may be combined to describe families of constructs.
type ConstructType uint16

const (
	FeatureType ConstructType = 1 << iota
	ChunkType
	RuleType
	FlowType
	ResponseType
	BufferType
	SubsystemType
	AgentType
	UpdaterType
)

const (
	// NodeType covers the symbolic units that carry activation.
	NodeType = FeatureType | ChunkType
	// ContainerType covers constructs that own a sequence of propagators.
	ContainerType = SubsystemType | AgentType
	// BasicType covers every non-container construct.
	BasicType = FeatureType | ChunkType | RuleType | FlowType | ResponseType | BufferType | UpdaterType
)

var typeNames = []struct {
	t    ConstructType
	name string
}{
	{FeatureType, "feature"},
	{ChunkType, "chunk"},
	{RuleType, "rule"},
	{FlowType, "flow"},
	{ResponseType, "response"},
	{BufferType, "buffer"},
	{SubsystemType, "subsystem"},
	{AgentType, "agent"},
	{UpdaterType, "updater"},
}

// #endregion construct-type

// #region symbol

// Symbol is an opaque, hashable construct identifier.
// Two symbols are the same construct iff both fields are equal.
type Symbol struct {
	Type ConstructType
	ID   string
}

// Set is an unordered collection of symbols.
type Set map[Symbol]struct{}

// #endregion symbol

// #region match-spec

// MatchSpec is a membership predicate over constructs. A symbol matches if
// its type intersects Types, if it is listed in Constructs, or if any
// predicate accepts it. The zero MatchSpec matches nothing.
type MatchSpec struct {
	Types      ConstructType
	Constructs []Symbol
	Predicates []func(Symbol) bool
}

// #endregion match-spec
