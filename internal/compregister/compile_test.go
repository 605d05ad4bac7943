package compregister_test

import (
	"testing"

	"gene/internal/compregister"
	"gene/internal/parser"
	"gene/internal/value"
	"gene/internal/vmregister"
)

func compile(t *testing.T, src string) *vmregister.Module {
	t.Helper()
	parsed, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	module, err := compregister.Compile(parsed)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return module
}

func TestEmptyProgramYieldsNull(t *testing.T) {
	expect(t, "", value.NullVal())
}

func TestSingleLiteral(t *testing.T) {
	expect(t, "1", value.IntVal(1))
}

func TestLiteralContainers(t *testing.T) {
	expect(t, "[]", value.ArrayVal(nil))
	expect(t, "{}", value.MapVal(nil))
	expect(t, "[1]", value.ArrayVal([]value.Value{value.IntVal(1)}))
	expect(t, "{^key 1}", value.MapVal(map[string]value.Value{"key": value.IntVal(1)}))
}

// A run of top-level literals compiles to a single Default: each dead write
// is elided by the emission peephole.
func TestConsecutiveLiteralsElide(t *testing.T) {
	module := compile(t, "1 2 3")
	entry, ok := module.Block(module.Default)
	if !ok {
		t.Fatal("module has no default block")
	}
	if got := entry.Len(); got != 2 {
		t.Fatalf("entry block has %d instructions, want 2 (Init + one Default): %v", got, entry.Instructions)
	}
	last := entry.Instructions[1]
	if last.Op != vmregister.OpDefault || !value.Equal(last.Value, value.IntVal(3)) {
		t.Errorf("surviving instruction = %v %v, want Default 3", last.Op, last.Value)
	}
}

func TestElisionStopsAtBranchBoundaries(t *testing.T) {
	expect(t, "(if true 1 else 2) 3", value.IntVal(3))
	expect(t, "(if false 1 else 2) 3", value.IntVal(3))
	expect(t, "(if true 1 else 2)", value.IntVal(1))
	expect(t, "(if false 1 else 2)", value.IntVal(2))
}

// Finalized blocks must never carry the forward-patching placeholders
// (JumpToElse, JumpToNextStatement, Dummy); every jump target must land
// within [0, len], len meaning fall-through past the end.
func TestFinalizedBlocksAreWellFormed(t *testing.T) {
	module := compile(t, `
		(fn f [a]
			(if (a < 2) a else (f (a - 1))))
		(var i 0)
		(while (i < 3)
			(i = (i + 1)))
		(loop (break))
		(f 5)
	`)
	for id, block := range module.Blocks {
		for pos, instr := range block.Instructions {
			if instr.Op.IsCompileTimeOnly() {
				t.Errorf("block %s pos %d: compile-time-only opcode %s survived emission", id, pos, instr.Op)
			}
			switch instr.Op {
			case vmregister.OpJump, vmregister.OpJumpIfFalse:
				if instr.Pos < 0 || instr.Pos > block.Len() {
					t.Errorf("block %s pos %d: jump target %d outside [0, %d]", id, pos, instr.Pos, block.Len())
				}
			}
		}
	}
}

func TestFunctionBodiesAreRegisteredBlocks(t *testing.T) {
	module := compile(t, "(fn f [a] a) (fn g [b] b) (f 1)")
	if len(module.Blocks) != 3 {
		t.Errorf("module has %d blocks, want 3 (entry + two function bodies)", len(module.Blocks))
	}
	if _, ok := module.Block(module.Default); !ok {
		t.Error("default block id is not registered in the module")
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []string{
		"(var 1 2)",
		"(1 = 2)",
		"(fn 1 [a] a)",
		"(fn f 1 a)",
	}
	for _, src := range cases {
		parsed, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if _, err := compregister.Compile(parsed); err == nil {
			t.Errorf("Compile(%q): expected a compile error, got none", src)
		}
	}
}
