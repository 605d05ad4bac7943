package compregister

import (
	geneerrors "gene/internal/errors"
	"gene/internal/value"
	"gene/internal/vmregister"
)

// Compile lowers a parsed Value to a Module whose default block, run on an
// empty Context, leaves the value of the last top-level form in the entry
// frame's default slot (Null for an empty program).
func Compile(v value.Value) (*vmregister.Module, error) {
	tree, err := TranslateProgram(v)
	if err != nil {
		return nil, geneerrors.Wrap(err, "translation")
	}
	module := vmregister.NewModule()
	entry, err := emitBlock(tree, module, "entry", false)
	if err != nil {
		return nil, geneerrors.Wrap(err, "emission")
	}
	module.Default = entry.ID
	return module, nil
}

type regBinding struct {
	reg int
}

// blockEmitter walks one Compilable subtree (the program root or one
// function body) and emits its instructions into a single Block. Each
// Block is an independent register-allocation domain: names are re-issued
// registers on every block entry, never shared across nested function
// bodies.
type blockEmitter struct {
	block     *vmregister.Block
	module    *vmregister.Module
	alloc     *RegisterAllocator
	nameRegs  map[string]*regBinding
	remaining map[string]int

	// lastDefaultIdx is the index of the previously emitted instruction
	// when that instruction was an OpDefault, else -1. Used by the peephole
	// in emit(): a Default whose value is immediately overwritten by the
	// next Default is elided in place. Control-structure emitters reset it
	// across any point a recorded jump target could land between two
	// literals.
	lastDefaultIdx int

	// loopDepth counts enclosing Loop/While bodies currently being emitted.
	// A name's register must not be released while loopDepth > 0: the
	// static usage count can reach zero on an instruction that itself sits
	// inside a loop body, but that instruction runs again on every
	// iteration, so releasing its register there would let a later-emitted
	// temporary reuse the same index and corrupt the value the next
	// iteration's jump-back reads (see emitSymbolRef).
	loopDepth int
}

// enterLoop/exitLoop bracket emission of a loop body (and, for while, its
// condition). exitLoop sweeps and releases any name registers whose static
// usage count was exhausted while the loop was being emitted, once there is
// no longer an enclosing loop for them to be read back inside of.
func (e *blockEmitter) enterLoop() { e.loopDepth++ }

func (e *blockEmitter) exitLoop() {
	e.loopDepth--
	if e.loopDepth == 0 {
		for name, b := range e.nameRegs {
			if e.remaining[name] <= 0 {
				e.alloc.Free(b.reg)
				delete(e.nameRegs, name)
			}
		}
	}
}

// emitBlock creates a fresh Block, emits seq's statements into it, and
// registers it in module. isFunctionBody controls whether a trailing
// CallEnd is emitted; the entry block instead terminates by falling off
// the end with no caller frame.
func emitBlock(seq *Compilable, module *vmregister.Module, name string, isFunctionBody bool) (*vmregister.Block, error) {
	block := vmregister.NewBlock(name)
	module.AddBlock(block)

	totals := countUsages(seq)
	remaining := make(map[string]int, len(totals))
	for name, n := range totals {
		remaining[name] = n
	}
	e := &blockEmitter{
		block:          block,
		module:         module,
		alloc:          NewRegisterAllocator(),
		nameRegs:       map[string]*regBinding{},
		remaining:      remaining,
		lastDefaultIdx: -1,
	}
	block.Emit(vmregister.Instruction{Op: vmregister.OpInit})
	for _, stmt := range seq.Statements {
		if err := e.emitNode(stmt); err != nil {
			return nil, err
		}
	}
	if isFunctionBody {
		block.Emit(vmregister.Instruction{Op: vmregister.OpCallEnd})
	}
	for name, count := range totals {
		usage := &vmregister.NameUsage{Count: count}
		if b, ok := e.nameRegs[name]; ok {
			usage.Register = b.reg
			usage.Bound = true
		}
		block.NameRegs[name] = usage
	}
	// Names bound by var/fn but never read back still hold a register.
	for name, b := range e.nameRegs {
		if _, ok := block.NameRegs[name]; !ok {
			block.NameRegs[name] = &vmregister.NameUsage{Register: b.reg, Bound: true}
		}
	}
	// Smallest-unused allocation hands out every index below MaxUsed.
	for reg := 0; reg < e.alloc.MaxUsed(); reg++ {
		block.RegsUsed[reg] = true
	}
	return block, nil
}

// countUsages precomputes, for every name referenced by a NodeSymbol
// within this block's domain, how many times it is used: the total a
// name's register-release counter must reach. Function bodies are a
// separate domain and are not descended into.
func countUsages(root *Compilable) map[string]int {
	counts := map[string]int{}
	var walk func(n *Compilable)
	walk = func(n *Compilable) {
		if n == nil {
			return
		}
		switch n.Kind {
		case NodeSymbol:
			counts[n.Name]++
		case NodeSequence:
			for _, s := range n.Statements {
				walk(s)
			}
		case NodeArrayTemplate:
			for _, c := range n.IndexedChildren {
				walk(c.Node)
			}
		case NodeMapTemplate:
			for _, c := range n.KeyedChildren {
				walk(c.Node)
			}
		case NodeBinaryOp:
			walk(n.Left)
			walk(n.Right)
		case NodeAssignment:
			walk(n.Value)
		case NodeVar:
			walk(n.Value)
		case NodeFunction:
			// Independent allocation domain; its body is counted when
			// that block is itself emitted.
		case NodeIf:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case NodeLoop:
			walk(n.Body)
		case NodeWhile:
			walk(n.Cond)
			walk(n.Body)
		case NodeInvocation:
			walk(n.Target)
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(root)
	return counts
}

// emit appends instr, eliding a directly preceding Default when instr is
// itself a Default: the earlier write is dead since nothing between the two
// could have observed it. Only Default-Default pairs are elided — a
// GetMember also writes the default slot but carries an undefined-name
// check that must still fire.
func (e *blockEmitter) emit(instr vmregister.Instruction) int {
	if instr.Op == vmregister.OpDefault && e.lastDefaultIdx == e.block.Len()-1 && e.lastDefaultIdx >= 0 {
		e.block.Instructions[e.lastDefaultIdx] = instr
		return e.lastDefaultIdx
	}
	idx := e.block.Emit(instr)
	if instr.Op == vmregister.OpDefault {
		e.lastDefaultIdx = idx
	} else {
		e.lastDefaultIdx = -1
	}
	return idx
}

// emitNode compiles one node, leaving its resulting value in the frame's
// default slot. The walk is post-order: operand values must exist before
// the opcode consuming them.
func (e *blockEmitter) emitNode(n *Compilable) error {
	switch n.Kind {
	case NodeLiteral, NodeArrayLiteral, NodeMapLiteral:
		e.emit(vmregister.Instruction{Op: vmregister.OpDefault, Value: n.Literal})

	case NodeSymbol:
		e.emitSymbolRef(n.Name)

	case NodeArrayTemplate:
		return e.emitArrayTemplate(n)

	case NodeMapTemplate:
		return e.emitMapTemplate(n)

	case NodeBinaryOp:
		return e.emitBinaryOp(n)

	case NodeAssignment:
		if err := e.emitNode(n.Value); err != nil {
			return err
		}
		if b, ok := e.nameRegs[n.Name]; ok {
			e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: b.reg})
		}
		e.emit(vmregister.Instruction{Op: vmregister.OpSetMember, Name: n.Name})

	case NodeVar:
		if err := e.emitNode(n.Value); err != nil {
			return err
		}
		if n.IsTopLevel {
			e.emit(vmregister.Instruction{Op: vmregister.OpDefMemberInScope, Name: n.Name})
		} else {
			e.emit(vmregister.Instruction{Op: vmregister.OpDefMember, Name: n.Name})
		}
		reg := e.alloc.Alloc()
		e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
		e.nameRegs[n.Name] = &regBinding{reg: reg}

	case NodeFunction:
		return e.emitFunction(n)

	case NodeIf:
		return e.emitIf(n)

	case NodeLoop:
		return e.emitLoop(n)

	case NodeWhile:
		return e.emitWhile(n)

	case NodeBreak:
		e.emit(vmregister.Instruction{Op: vmregister.OpBreak})

	case NodeInvocation:
		return e.emitInvocation(n)

	case NodeSequence:
		for _, s := range n.Statements {
			if err := e.emitNode(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitSymbolRef implements the "Symbol reference" rule: first use emits a
// scope lookup and caches it in a register; later uses copy straight from
// that register. The register is released once the precomputed usage
// count is exhausted.
func (e *blockEmitter) emitSymbolRef(name string) {
	if b, ok := e.nameRegs[name]; ok {
		e.emit(vmregister.Instruction{Op: vmregister.OpCopyToDefault, Reg: b.reg})
	} else {
		e.emit(vmregister.Instruction{Op: vmregister.OpGetMember, Name: name})
		reg := e.alloc.Alloc()
		e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
		e.nameRegs[name] = &regBinding{reg: reg}
	}
	e.remaining[name]--
	if e.remaining[name] <= 0 && e.loopDepth == 0 {
		if b, ok := e.nameRegs[name]; ok {
			e.alloc.Free(b.reg)
			delete(e.nameRegs, name)
		}
	}
}

func (e *blockEmitter) emitArrayTemplate(n *Compilable) error {
	reg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpDefault, Value: n.Template})
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
	for _, c := range n.IndexedChildren {
		if err := e.emitNode(c.Node); err != nil {
			return err
		}
		e.emit(vmregister.Instruction{Op: vmregister.OpSetItem, Reg: reg, Pos: c.Index})
	}
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyToDefault, Reg: reg})
	e.alloc.Free(reg)
	return nil
}

func (e *blockEmitter) emitMapTemplate(n *Compilable) error {
	reg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpDefault, Value: n.Template})
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
	for _, c := range n.KeyedChildren {
		if err := e.emitNode(c.Node); err != nil {
			return err
		}
		e.emit(vmregister.Instruction{Op: vmregister.OpSetProp, Reg: reg, Name: c.Key})
	}
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyToDefault, Reg: reg})
	e.alloc.Free(reg)
	return nil
}

func (e *blockEmitter) emitBinaryOp(n *Compilable) error {
	if err := e.emitNode(n.Left); err != nil {
		return err
	}
	reg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
	if err := e.emitNode(n.Right); err != nil {
		return err
	}
	e.emit(vmregister.Instruction{Op: n.Op, Reg: reg})
	e.alloc.Free(reg)
	return nil
}

func (e *blockEmitter) emitFunction(n *Compilable) error {
	funcBlock, err := emitBlock(n.Body, e.module, n.Name, true)
	if err != nil {
		return err
	}
	matcher, err := vmregister.BuildMatcher(n.MatcherSpec)
	if err != nil {
		return err
	}
	e.emit(vmregister.Instruction{
		Op:       vmregister.OpFunction,
		FuncName: n.Name,
		Matcher:  matcher,
		BlockID:  funcBlock.ID,
	})
	if n.IsTopLevel {
		e.emit(vmregister.Instruction{Op: vmregister.OpDefMemberInScope, Name: n.Name})
	} else {
		e.emit(vmregister.Instruction{Op: vmregister.OpDefMember, Name: n.Name})
	}
	reg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: reg})
	e.nameRegs[n.Name] = &regBinding{reg: reg}
	return nil
}

// emitIf emits a placeholder JumpToElse before the then-branch, a
// placeholder JumpToNextStatement after it, then the else-branch, and
// finally patches both placeholders to concrete Jump/JumpIfFalse targets.
func (e *blockEmitter) emitIf(n *Compilable) error {
	if err := e.emitNode(n.Cond); err != nil {
		return err
	}
	elseJumpPos := e.emit(vmregister.Instruction{Op: vmregister.OpJumpToElse})
	for _, s := range n.Then.Statements {
		if err := e.emitNode(s); err != nil {
			return err
		}
	}
	endJumpPos := e.emit(vmregister.Instruction{Op: vmregister.OpJumpToNextStatement})
	elseStart := e.block.Len()
	if n.Else != nil {
		for _, s := range n.Else.Statements {
			if err := e.emitNode(s); err != nil {
				return err
			}
		}
	}
	end := e.block.Len()
	e.block.Instructions[elseJumpPos] = vmregister.Instruction{Op: vmregister.OpJumpIfFalse, Pos: elseStart}
	e.block.Instructions[endJumpPos] = vmregister.Instruction{Op: vmregister.OpJump, Pos: end}
	// The then-branch's Jump targets the position right after the else
	// branch; a Default emitted there must not elide an else-ending Default
	// the true path jumps over.
	e.lastDefaultIdx = -1
	return nil
}

// emitLoop and emitWhile both bracket their body with LoopStart/LoopEnd,
// so Break has a single regular handling path: skip to the next LoopEnd.
func (e *blockEmitter) emitLoop(n *Compilable) error {
	startPos := e.block.Len()
	e.emit(vmregister.Instruction{Op: vmregister.OpLoopStart})
	e.enterLoop()
	for _, s := range n.Body.Statements {
		if err := e.emitNode(s); err != nil {
			e.exitLoop()
			return err
		}
	}
	e.exitLoop()
	e.emit(vmregister.Instruction{Op: vmregister.OpJump, Pos: startPos})
	e.emit(vmregister.Instruction{Op: vmregister.OpLoopEnd})
	return nil
}

func (e *blockEmitter) emitWhile(n *Compilable) error {
	startPos := e.block.Len()
	e.emit(vmregister.Instruction{Op: vmregister.OpLoopStart})
	e.enterLoop()
	if err := e.emitNode(n.Cond); err != nil {
		e.exitLoop()
		return err
	}
	condJumpPos := e.emit(vmregister.Instruction{Op: vmregister.OpJumpToNextStatement})
	for _, s := range n.Body.Statements {
		if err := e.emitNode(s); err != nil {
			e.exitLoop()
			return err
		}
	}
	e.exitLoop()
	e.emit(vmregister.Instruction{Op: vmregister.OpJump, Pos: startPos})
	endPos := e.block.Len()
	e.emit(vmregister.Instruction{Op: vmregister.OpLoopEnd})
	e.block.Instructions[condJumpPos] = vmregister.Instruction{Op: vmregister.OpJumpIfFalse, Pos: endPos}
	return nil
}

func (e *blockEmitter) emitInvocation(n *Compilable) error {
	if err := e.emitNode(n.Target); err != nil {
		return err
	}
	targetReg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpCopyFromDefault, Reg: targetReg})

	argsReg := e.alloc.Alloc()
	e.emit(vmregister.Instruction{Op: vmregister.OpCreateArguments, Reg: argsReg})
	for i, arg := range n.Args {
		if err := e.emitNode(arg); err != nil {
			return err
		}
		e.emit(vmregister.Instruction{Op: vmregister.OpSetItem, Reg: argsReg, Pos: i})
	}
	e.emit(vmregister.Instruction{Op: vmregister.OpCall, Reg: targetReg, Reg2: argsReg})
	e.alloc.Free(targetReg)
	e.alloc.Free(argsReg)
	return nil
}
