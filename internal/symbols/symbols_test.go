package symbols

import (
	"encoding/json"
	"testing"
)

func TestSymbolTextRoundTrip(t *testing.T) {
	tests := []Symbol{
		Chunk("apple"),
		Rule("r1"),
		Flow("assoc"),
		Subsystem("nacs"),
	}
	for _, want := range tests {
		t.Run(want.String(), func(t *testing.T) {
			got, err := ParseSymbol(want.String())
			if err != nil {
				t.Fatalf("ParseSymbol(%q): %v", want.String(), err)
			}
			if got != want {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestParseSymbolRejectsMalformed(t *testing.T) {
	for _, text := range []string{"", "chunk", "(x)", "chunk(x", "widget(x)"} {
		if _, err := ParseSymbol(text); err == nil {
			t.Errorf("ParseSymbol(%q): expected error", text)
		}
	}
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		text string
		want Symbol
	}{
		{"a", Chunk("a")},
		{"chunk(a)", Chunk("a")},
		{"rule(r1)", Rule("r1")},
		{"feature(color)", Feature("color")},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, err := ParseRef(tc.text, ChunkType)
			if err != nil {
				t.Fatalf("ParseRef(%q): %v", tc.text, err)
			}
			if got != tc.want {
				t.Fatalf("ParseRef(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}

	if got, _ := ParseRef("r1", RuleType); got != Rule("r1") {
		t.Errorf("bare id with rule type = %v", got)
	}
	for _, bad := range []string{"", "widget(a)", "chunk(a"} {
		if _, err := ParseRef(bad, ChunkType); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestSymbolAsJSONKey(t *testing.T) {
	in := map[Symbol]float64{Chunk("a"): 0.5, Rule("r"): 1}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[Symbol]float64
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[Chunk("a")] != 0.5 || out[Rule("r")] != 1 {
		t.Fatalf("unexpected decode %v", out)
	}
}

func TestConstructTypeString(t *testing.T) {
	if got := ChunkType.String(); got != "chunk" {
		t.Errorf("ChunkType = %q", got)
	}
	if got := NodeType.String(); got != "feature|chunk" {
		t.Errorf("NodeType = %q", got)
	}
	if got := ConstructType(0).String(); got != "none" {
		t.Errorf("zero = %q", got)
	}
}

func TestSortOrdersByTypeThenID(t *testing.T) {
	syms := []Symbol{Rule("b"), Chunk("z"), Rule("a"), Chunk("a")}
	Sort(syms)
	want := []Symbol{Chunk("a"), Chunk("z"), Rule("a"), Rule("b")}
	for i := range want {
		if syms[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, syms[i], want[i])
		}
	}
}

func TestMatchSpec(t *testing.T) {
	var empty MatchSpec
	if empty.Contains(Chunk("a")) {
		t.Error("zero MatchSpec should match nothing")
	}
	if !MatchAll().Contains(Rule("x")) {
		t.Error("MatchAll should match everything")
	}

	m := MatchTypes(NodeType)
	if !m.Contains(Chunk("a")) || !m.Contains(Feature("f")) {
		t.Error("node spec should match chunks and features")
	}
	if m.Contains(Rule("r")) {
		t.Error("node spec should not match rules")
	}

	c := MatchConstructs(Flow("assoc"))
	if !c.Contains(Flow("assoc")) || c.Contains(Flow("other")) {
		t.Error("construct spec mismatch")
	}

	p := MatchSpec{Predicates: []func(Symbol) bool{func(s Symbol) bool { return s.ID == "x" }}}
	if !p.Contains(Buffer("x")) || p.Contains(Buffer("y")) {
		t.Error("predicate spec mismatch")
	}
}

func TestMatchSpecCloneIsIndependent(t *testing.T) {
	m := MatchConstructs(Chunk("a"))
	c := m.Clone()
	c.Constructs = append(c.Constructs, Chunk("b"))
	c.Constructs[0] = Chunk("z")
	if !m.Contains(Chunk("a")) || m.Contains(Chunk("b")) {
		t.Fatal("clone mutation leaked into original")
	}
}
