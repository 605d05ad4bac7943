package compregister_test

import (
	"fmt"
	"testing"

	"github.com/kr/pretty"

	"gene/internal/compregister"
	"gene/internal/parser"
	"gene/internal/value"
	"gene/internal/vmregister"
)

// run parses, compiles and executes src, returning the entry frame's final
// default value.
func run(t *testing.T, src string) value.Value {
	t.Helper()
	parsed, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	module, err := compregister.Compile(parsed)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	result, err := vmregister.New(module).Run()
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return result
}

func expect(t *testing.T, src string, want value.Value) {
	t.Helper()
	got := run(t, src)
	if !value.Equal(got, want) {
		t.Errorf("run(%q) = %# v, want %# v", src, pretty.Formatter(got), pretty.Formatter(want))
	}
}

func TestVarBinding(t *testing.T) {
	expect(t, "(var a 1) a", value.IntVal(1))
}

func TestVarInArray(t *testing.T) {
	expect(t, "(var a 1) (var b 3) [a 2 b]", value.ArrayVal([]value.Value{
		value.IntVal(1), value.IntVal(2), value.IntVal(3),
	}))
}

func TestArithmetic(t *testing.T) {
	expect(t, "(1 + 2)", value.IntVal(3))
	expect(t, "(2 * 3)", value.IntVal(6))
	expect(t, "(10 - 4)", value.IntVal(6))
	expect(t, "(10 / 4)", value.IntVal(2))
}

func TestComparison(t *testing.T) {
	expect(t, "(1 < 2)", value.BoolVal(true))
	expect(t, "(2 < 1)", value.BoolVal(false))
	expect(t, "(2 <= 2)", value.BoolVal(true))
	expect(t, "(3 == 3)", value.BoolVal(true))
}

func TestIf(t *testing.T) {
	expect(t, "(if true 1 else 2)", value.IntVal(1))
	expect(t, "(if false 1 else 2)", value.IntVal(2))
	expect(t, "(if (1 < 2) 10 else 20)", value.IntVal(10))
}

func TestFunctionCall(t *testing.T) {
	expect(t, "(fn f [a b] (a + b)) (f 1 2)", value.IntVal(3))
}

func TestFunctionClosureOverOuterVar(t *testing.T) {
	expect(t, "(var x 10) (fn addx [a] (a + x)) (addx 5)", value.IntVal(15))
}

func TestRecursiveFunction(t *testing.T) {
	expect(t, `
		(fn fact [n]
			(if (n == 0) 1 else (n * (fact (n - 1)))))
		(fact 5)
	`, value.IntVal(120))
}

func TestFibonacci(t *testing.T) {
	const tmpl = `
		(fn fib [n]
			(if (n < 2) n else ((fib (n - 1)) + (fib (n - 2)))))
		(fib %d)
	`
	cases := map[int]int64{6: 8, 10: 55, 20: 6765}
	for n, want := range cases {
		got := run(t, fmt.Sprintf(tmpl, n))
		if !value.Equal(got, value.IntVal(want)) {
			t.Errorf("fib(%d) = %v, want %d", n, got, want)
		}
	}
}

func TestWhileLoop(t *testing.T) {
	expect(t, `
		(var i 0)
		(var sum 0)
		(while (i < 5)
			(sum = (sum + i))
			(i = (i + 1)))
		sum
	`, value.IntVal(10))
}

func TestLoopWithBreak(t *testing.T) {
	expect(t, `
		(var i 0)
		(loop
			(if (i == 3) (break))
			(i = (i + 1)))
		i
	`, value.IntVal(3))
}

func TestMapLiteralWithVar(t *testing.T) {
	got := run(t, `(var a 1) {^x a ^y 2}`)
	if !got.IsMap() {
		t.Fatalf("expected map, got %v", got.Tag)
	}
	m := got.AsMap()
	if !value.Equal(m["x"], value.IntVal(1)) || !value.Equal(m["y"], value.IntVal(2)) {
		t.Errorf("map = %v", m)
	}
}

// Each execution of a templated aggregate must produce an independent
// instance: two calls of f below must not share one backing array.
func TestTemplateInstancesAreIndependent(t *testing.T) {
	expect(t, `
		(fn f [a] [a 9])
		(var x (f 1))
		(var y (f 2))
		[x y]
	`, value.ArrayVal([]value.Value{
		value.ArrayVal([]value.Value{value.IntVal(1), value.IntVal(9)}),
		value.ArrayVal([]value.Value{value.IntVal(2), value.IntVal(9)}),
	}))
}

func TestIgnoredParameter(t *testing.T) {
	expect(t, "(fn f [_ b] b) (f 1 2)", value.IntVal(2))
}
