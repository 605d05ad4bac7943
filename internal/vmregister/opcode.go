// Package vmregister is the register-based virtual machine: the Block/
// Module code table, the Context/Namespace/Scope binding chains, the
// pooled register Frame, and the instruction dispatch loop.
package vmregister

import "gene/internal/value"

// OpCode tags an Instruction's operation. Three opcodes here —
// OpJumpToElse, OpJumpToNextStatement and OpDummy — are compile-time-only
// placeholders patched out during emission; the dispatcher treats any of
// them surviving into a finalized Block as a fatal invariant violation.
type OpCode uint8

const (
	OpInit OpCode = iota
	OpDefault
	OpSave
	OpCopyFromDefault
	OpCopyToDefault
	OpDefMember
	OpDefMemberInScope
	OpGetMember
	OpGetMemberInScope
	OpSetMember
	OpSetMemberInScope
	OpGetItem
	OpSetItem
	OpSetProp
	OpJump
	OpJumpIfFalse
	OpLoopStart
	OpLoopEnd
	OpBreak
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpEq
	OpLt
	OpLe
	OpGt
	OpGe
	OpFunction
	OpCreateArguments
	OpCall
	OpCallEnd

	// Compile-time-only; must be patched out before a Block is finalized.
	OpJumpToElse
	OpJumpToNextStatement
	OpDummy
)

var opNames = map[OpCode]string{
	OpInit:                "Init",
	OpDefault:             "Default",
	OpSave:                "Save",
	OpCopyFromDefault:     "CopyFromDefault",
	OpCopyToDefault:       "CopyToDefault",
	OpDefMember:           "DefMember",
	OpDefMemberInScope:    "DefMemberInScope",
	OpGetMember:           "GetMember",
	OpGetMemberInScope:    "GetMemberInScope",
	OpSetMember:           "SetMember",
	OpSetMemberInScope:    "SetMemberInScope",
	OpGetItem:             "GetItem",
	OpSetItem:             "SetItem",
	OpSetProp:             "SetProp",
	OpJump:                "Jump",
	OpJumpIfFalse:         "JumpIfFalse",
	OpLoopStart:           "LoopStart",
	OpLoopEnd:             "LoopEnd",
	OpBreak:               "Break",
	OpAdd:                 "Add",
	OpSub:                 "Sub",
	OpMul:                 "Mul",
	OpDiv:                 "Div",
	OpEq:                  "Eq",
	OpLt:                  "Lt",
	OpLe:                  "Le",
	OpGt:                  "Gt",
	OpGe:                  "Ge",
	OpFunction:            "Function",
	OpCreateArguments:     "CreateArguments",
	OpCall:                "Call",
	OpCallEnd:             "CallEnd",
	OpJumpToElse:          "JumpToElse",
	OpJumpToNextStatement: "JumpToNextStatement",
	OpDummy:               "Dummy",
}

func (op OpCode) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "Unknown"
}

// IsCompileTimeOnly reports whether op is one of the forward-jump
// placeholders that must never reach the dispatcher.
func (op OpCode) IsCompileTimeOnly() bool {
	return op == OpJumpToElse || op == OpJumpToNextStatement || op == OpDummy
}

// Instruction is a single tagged operation. Only the fields relevant to Op
// are meaningful; this mirrors the "discriminated union, exhaustive match"
// guidance in the design notes while staying a flat struct since Go has no
// sum types — operand shapes are heterogeneous enough (names, Values,
// register indices, block ids) that a packed bitfield encoding would need a
// side table anyway.
type Instruction struct {
	Op OpCode

	Reg  int // primary register operand
	Reg2 int // secondary register operand (e.g. Call's arguments register)
	Pos  int // jump target / SetItem index

	Name string // member / prop name

	Value value.Value // literal operand (Default)

	BlockID  BlockID // Function's body block
	Matcher  *Matcher
	FuncName string
}
