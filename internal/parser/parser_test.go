package parser

import (
	"testing"

	"github.com/kr/pretty"

	"gene/internal/value"
)

func TestParseScalars(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"1", value.IntVal(1)},
		{"-3", value.IntVal(-3)},
		{"3.5", value.FloatVal(3.5)},
		{"true", value.BoolVal(true)},
		{"false", value.BoolVal(false)},
		{"null", value.NullVal()},
		{`"hi\n"`, value.StringVal("hi\n")},
		{"foo", value.SymbolVal("foo")},
	}
	for _, c := range cases {
		got, err := Parse(c.src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.src, err)
		}
		if !value.Equal(got, c.want) {
			t.Errorf("Parse(%q) = %# v, want %# v", c.src, pretty.Formatter(got), pretty.Formatter(c.want))
		}
	}
}

func TestParseArray(t *testing.T) {
	got, err := Parse("[1 2 3]")
	if err != nil {
		t.Fatal(err)
	}
	want := value.ArrayVal([]value.Value{value.IntVal(1), value.IntVal(2), value.IntVal(3)})
	if !value.Equal(got, want) {
		t.Errorf("got %# v, want %# v", pretty.Formatter(got), pretty.Formatter(want))
	}
}

func TestParseEmptyContainers(t *testing.T) {
	for src, want := range map[string]value.Value{
		"[]": value.ArrayVal(nil),
		"{}": value.MapVal(nil),
	} {
		got, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if !value.Equal(got, want) {
			t.Errorf("Parse(%q) = %v, want %v", src, got, want)
		}
	}
}

func TestParseMapShorthand(t *testing.T) {
	got, err := Parse("{^^a ^!b ^c 1}")
	if err != nil {
		t.Fatal(err)
	}
	want := value.MapVal(map[string]value.Value{
		"a": value.BoolVal(true),
		"b": value.BoolVal(false),
		"c": value.IntVal(1),
	})
	if !value.Equal(got, want) {
		t.Errorf("got %# v, want %# v", pretty.Formatter(got), pretty.Formatter(want))
	}
}

func TestParseGeneWithProps(t *testing.T) {
	got, err := Parse("(f ^x 1 a b)")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsGene() {
		t.Fatalf("expected gene, got %v", got.Tag)
	}
	g := got.AsGene()
	if !value.Equal(g.Kind, value.SymbolVal("f")) {
		t.Errorf("kind = %v", g.Kind)
	}
	if !value.Equal(g.Props["x"], value.IntVal(1)) {
		t.Errorf("props[x] = %v", g.Props["x"])
	}
	wantData := []value.Value{value.SymbolVal("a"), value.SymbolVal("b")}
	if len(g.Data) != 2 || !value.Equal(g.Data[0], wantData[0]) || !value.Equal(g.Data[1], wantData[1]) {
		t.Errorf("data = %v", g.Data)
	}
}

func TestParseQuote(t *testing.T) {
	got, err := Parse("`a")
	if err != nil {
		t.Fatal(err)
	}
	want := value.GeneVal(value.SymbolVal("#QUOTE"), nil, []value.Value{value.SymbolVal("a")})
	if !value.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseStream(t *testing.T) {
	got, err := Parse("1 2 3")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsStream() {
		t.Fatalf("expected stream, got %v", got.Tag)
	}
	if len(got.AsStream()) != 3 {
		t.Fatalf("expected 3 forms, got %d", len(got.AsStream()))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"(1 2",
		"[1 2",
		`"unterminated`,
		")",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): expected error, got none", src)
		}
	}
}
