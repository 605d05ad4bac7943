package value

import "testing"

func TestEqualScalars(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{IntVal(1), IntVal(1), true},
		{IntVal(1), IntVal(2), false},
		{FloatVal(1.5), FloatVal(1.5), true},
		{StringVal("a"), StringVal("a"), true},
		{StringVal("a"), SymbolVal("a"), false},
		{BoolVal(true), BoolVal(false), false},
		{VoidVal(), VoidVal(), true},
		{NullVal(), VoidVal(), false},
	}
	for _, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestEqualMapsIgnoreOrderArraysDoNot(t *testing.T) {
	a := MapVal(map[string]Value{"x": IntVal(1), "y": IntVal(2)})
	b := MapVal(map[string]Value{"y": IntVal(2), "x": IntVal(1)})
	if !Equal(a, b) {
		t.Error("maps with the same entries in different insertion order should be equal")
	}

	arr1 := ArrayVal([]Value{IntVal(1), IntVal(2)})
	arr2 := ArrayVal([]Value{IntVal(2), IntVal(1)})
	if Equal(arr1, arr2) {
		t.Error("arrays are order-sensitive and should not compare equal when reordered")
	}
}

func TestEqualGeneStructural(t *testing.T) {
	g1 := GeneVal(SymbolVal("f"), map[string]Value{"x": IntVal(1)}, []Value{IntVal(2)})
	g2 := GeneVal(SymbolVal("f"), map[string]Value{"x": IntVal(1)}, []Value{IntVal(2)})
	g3 := GeneVal(SymbolVal("f"), map[string]Value{"x": IntVal(9)}, []Value{IntVal(2)})
	if !Equal(g1, g2) {
		t.Error("structurally identical genes should compare equal")
	}
	if Equal(g1, g3) {
		t.Error("genes with differing props should not compare equal")
	}
}

func TestIsLiteral(t *testing.T) {
	if !IntVal(1).IsLiteral() {
		t.Error("Integer should be literal")
	}
	if SymbolVal("a").IsLiteral() {
		t.Error("Symbol should never be literal")
	}
	if !ArrayVal([]Value{IntVal(1), IntVal(2)}).IsLiteral() {
		t.Error("an array of literals should be literal")
	}
	if ArrayVal([]Value{IntVal(1), SymbolVal("a")}).IsLiteral() {
		t.Error("an array containing a symbol should not be literal")
	}
	if GeneVal(SymbolVal("f"), nil, nil).IsLiteral() {
		t.Error("a Gene should never be literal")
	}
}

func TestIsTruthy(t *testing.T) {
	truthy := []Value{IntVal(0), BoolVal(true), StringVal(""), ArrayVal(nil)}
	for _, v := range truthy {
		if !v.IsTruthy() {
			t.Errorf("%v should be truthy", v)
		}
	}
	falsy := []Value{NullVal(), VoidVal(), BoolVal(false)}
	for _, v := range falsy {
		if v.IsTruthy() {
			t.Errorf("%v should not be truthy", v)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := ArrayVal([]Value{IntVal(1), MapVal(map[string]Value{"k": IntVal(2)})})
	cp := orig.Clone()
	if !Equal(orig, cp) {
		t.Fatal("clone should compare equal to the original")
	}
	cp.AsArray()[0] = IntVal(99)
	cp.AsArray()[1].AsMap()["k"] = IntVal(99)
	if !Equal(orig.AsArray()[0], IntVal(1)) {
		t.Error("mutating a cloned array element leaked into the original")
	}
	if !Equal(orig.AsArray()[1].AsMap()["k"], IntVal(2)) {
		t.Error("mutating a cloned nested map leaked into the original")
	}
}

func TestStringRendersLiteralSubsetAsSource(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{IntVal(42), "42"},
		{IntVal(-7), "-7"},
		{FloatVal(3.5), "3.5"},
		{FloatVal(2), "2.0"},
		{BoolVal(true), "true"},
		{NullVal(), "null"},
		{StringVal("hi\nthere"), `"hi\nthere"`},
		{SymbolVal("foo"), "foo"},
		{ArrayVal([]Value{IntVal(1), IntVal(2), IntVal(3)}), "[1 2 3]"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestGeneStringIncludesSortedProps(t *testing.T) {
	g := GeneVal(SymbolVal("f"), map[string]Value{"b": IntVal(2), "a": IntVal(1)}, []Value{SymbolVal("x")})
	got := g.String()
	want := "(f ^a 1 ^b 2 x)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
