package vmregister

import (
	"fmt"

	geneerrors "gene/internal/errors"
	"gene/internal/value"
)

// VirtualMachine executes a Module's blocks under a single dispatch loop:
// single-threaded, single-frame, no preemption. Call/CallEnd switch which
// frame and block/pos pair the loop is reading from, rather than recursing
// through Go's own call stack.
type VirtualMachine struct {
	module *Module
	pool   *FramePool

	curFrame *Frame
	curBlock *Block
	pos      int

	breaking bool
}

// New creates a VirtualMachine over module with a 32-frame pool.
func New(module *Module) *VirtualMachine {
	return &VirtualMachine{module: module, pool: NewFramePool(32)}
}

// Run executes the module's default block to completion on an empty
// Context and returns the value left in the entry frame's default slot:
// for a compiled program, the value of its last top-level form.
func (vm *VirtualMachine) Run() (value.Value, error) {
	entry, ok := vm.module.Block(vm.module.Default)
	if !ok {
		return value.Value{}, geneerrors.NewInvariantViolation("module has no default block")
	}
	frame := vm.pool.Acquire()
	frame.Context = &Context{Namespace: NewNamespace(nil), Scope: NewScope(nil)}
	frame.Default = value.NullVal()

	vm.curFrame = frame
	vm.curBlock = entry
	vm.pos = 0

	if err := vm.dispatch(); err != nil {
		return value.Value{}, err
	}
	result, _ := vm.curFrame.Default.(value.Value)
	// The entry frame goes back to the pool on termination, so a completed
	// run leaves the live-frame set exactly as it found it.
	vm.pool.Free(vm.curFrame.ID)
	vm.curFrame = nil
	return result, nil
}

// dispatch is the tight instruction loop: read the next opcode, apply its
// effect, repeat until the entry block terminates.
func (vm *VirtualMachine) dispatch() error {
	for {
		if vm.pos >= vm.curBlock.Len() {
			// Fall-through past the end acts like CallEnd on the entry
			// block, or simply ends a non-entry block's execution.
			terminated, err := vm.callEnd()
			if err != nil {
				return err
			}
			if terminated {
				return nil
			}
			continue
		}
		instr := vm.curBlock.Instructions[vm.pos]

		if vm.breaking {
			if instr.Op == OpLoopEnd {
				vm.breaking = false
			}
			vm.pos++
			continue
		}

		if instr.Op.IsCompileTimeOnly() {
			return geneerrors.NewInvariantViolation(fmt.Sprintf("compile-time-only opcode %s reached the dispatcher", instr.Op))
		}

		done, err := vm.step(instr)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step applies one instruction's effect and advances pos (unless the
// instruction itself set pos, e.g. Jump). It returns done=true only when
// CallEnd terminates the entry block.
func (vm *VirtualMachine) step(instr Instruction) (bool, error) {
	f := vm.curFrame
	switch instr.Op {
	case OpInit:
		// No-op marker.
	case OpDefault:
		// Blocks are immutable after emission; aggregates are cloned so a
		// later SetItem/SetProp mutates this execution's instance, not the
		// template stored on the instruction (and shared by every other
		// execution of this block).
		f.Default = instr.Value.Clone()
	case OpSave:
		f.Set(instr.Reg, instr.Value.Clone())
	case OpCopyFromDefault:
		f.Set(instr.Reg, f.Default)
	case OpCopyToDefault:
		f.Default = f.Get(instr.Reg)
	case OpDefMember:
		f.Context.DefMember(instr.Name, f.Default)
	case OpDefMemberInScope:
		f.Context.DefMemberInNamespace(instr.Name, f.Default)
	case OpGetMember, OpGetMemberInScope:
		v, ok := f.Context.GetMember(instr.Name)
		if !ok {
			return false, geneerrors.NewUndefinedNameError(instr.Name)
		}
		f.Default = v
	case OpSetMember, OpSetMemberInScope:
		if err := f.Context.SetMember(instr.Name, f.Default); err != nil {
			return false, err
		}
	case OpGetItem:
		v, err := getIndexed(f.Get(instr.Reg), instr.Pos)
		if err != nil {
			return false, err
		}
		f.Default = v
	case OpSetItem:
		v, err := setIndexed(f.Get(instr.Reg), instr.Pos, f.Default)
		if err != nil {
			return false, err
		}
		f.Set(instr.Reg, v)
	case OpSetProp:
		v, err := setProp(f.Get(instr.Reg), instr.Name, f.Default)
		if err != nil {
			return false, err
		}
		f.Set(instr.Reg, v)
	case OpJump:
		return false, vm.jumpTo(instr.Pos)
	case OpJumpIfFalse:
		b, ok := f.Default.(value.Value)
		if !ok || !b.IsBool() {
			return false, geneerrors.NewTypeError("JumpIfFalse requires a Boolean default value")
		}
		if !b.AsBool() {
			return false, vm.jumpTo(instr.Pos)
		}
	case OpLoopStart, OpLoopEnd:
		// Markers only; Break consults the flag cleared at OpLoopEnd.
	case OpBreak:
		vm.breaking = true
	case OpAdd, OpSub, OpMul, OpDiv, OpEq, OpLt, OpLe, OpGt, OpGe:
		result, err := binaryOp(instr.Op, f.Get(instr.Reg), f.Default)
		if err != nil {
			return false, err
		}
		f.Default = result
	case OpFunction:
		f.Default = &Function{
			Name:            instr.FuncName,
			Matcher:         instr.Matcher,
			Body:            instr.BlockID,
			ParentNamespace: f.Context.Namespace,
			ParentScope:     f.Context.Scope,
		}
	case OpCreateArguments:
		f.Set(instr.Reg, NewArguments())
	case OpCall:
		return false, vm.call(instr)
	case OpCallEnd:
		terminated, err := vm.callEnd()
		if err != nil {
			return false, err
		}
		if terminated {
			return true, nil
		}
		return false, nil
	default:
		return false, geneerrors.NewInvariantViolation(fmt.Sprintf("unknown opcode %d", instr.Op))
	}
	vm.pos++
	return false, nil
}

func (vm *VirtualMachine) jumpTo(p int) error {
	if p < 0 || p > vm.curBlock.Len() {
		return geneerrors.NewInvariantViolation(fmt.Sprintf("jump target %d out of range for block of length %d", p, vm.curBlock.Len()))
	}
	vm.pos = p
	return nil
}

// call invokes the Function held in the target register: a fresh Scope
// parented by the closure's captured scope, parameters bound from the
// arguments container, and a new frame whose return address points past
// the Call instruction.
func (vm *VirtualMachine) call(instr Instruction) error {
	caller := vm.curFrame
	target, ok := caller.Get(instr.Reg).(*Function)
	if !ok {
		return geneerrors.NewTypeError("Call target register does not hold a Function")
	}
	var args *Arguments
	if instr.Reg2 >= 0 {
		args, ok = caller.Get(instr.Reg2).(*Arguments)
		if !ok {
			return geneerrors.NewTypeError("Call arguments register does not hold an Arguments value")
		}
	} else {
		args = NewArguments()
	}

	body, ok := vm.module.Block(target.Body)
	if !ok {
		return geneerrors.NewInvariantViolation("Function references a block id absent from the Module")
	}

	scope := NewScope(target.ParentScope)
	target.Matcher.Bind(scope, args)
	ns := NewNamespace(target.ParentNamespace)

	callee := vm.pool.Acquire()
	callee.Context = &Context{Namespace: ns, Scope: scope}
	callee.Default = value.VoidVal()
	callee.Return = &Address{Block: vm.curBlock.ID, Pos: vm.pos + 1}
	callee.ParentID = caller.ID

	vm.curFrame = callee
	vm.curBlock = body
	vm.pos = 0
	return nil
}

// callEnd restores the caller's block/pos, hands the callee's default
// slot to the caller, and releases the callee frame. It reports
// terminated=true when there is no caller to return to, meaning the
// entry block has finished running.
func (vm *VirtualMachine) callEnd() (terminated bool, err error) {
	callee := vm.curFrame
	if callee.Return == nil {
		return true, nil
	}
	callerBlock, ok := vm.module.Block(callee.Return.Block)
	if !ok {
		return false, geneerrors.NewInvariantViolation("return address references a block id absent from the Module")
	}
	caller := vm.pool.Find(callee.ParentID)
	if caller == nil {
		return false, geneerrors.NewInvariantViolation("CallEnd frame underflow: no caller frame in pool")
	}
	caller.Default = callee.Default
	vm.pool.Free(callee.ID)

	vm.curFrame = caller
	vm.curBlock = callerBlock
	vm.pos = callee.Return.Pos
	return false, nil
}

func asValue(v any) (value.Value, bool) {
	vv, ok := v.(value.Value)
	return vv, ok
}

// binaryOp applies an arithmetic or comparison opcode. All arithmetic is
// Integer-only; mixed or non-integer operands are a type error.
func binaryOp(op OpCode, left, right any) (value.Value, error) {
	lv, ok1 := asValue(left)
	rv, ok2 := asValue(right)
	if !ok1 || !ok2 || !lv.IsInt() || !rv.IsInt() {
		return value.Value{}, geneerrors.NewTypeError(fmt.Sprintf("%s requires Integer operands", op))
	}
	a, b := lv.AsInt(), rv.AsInt()
	switch op {
	case OpAdd:
		return value.IntVal(a + b), nil
	case OpSub:
		return value.IntVal(a - b), nil
	case OpMul:
		return value.IntVal(a * b), nil
	case OpDiv:
		if b == 0 {
			return value.Value{}, geneerrors.NewTypeError("integer division by zero")
		}
		return value.IntVal(a / b), nil
	case OpEq:
		return value.BoolVal(a == b), nil
	case OpLt:
		return value.BoolVal(a < b), nil
	case OpLe:
		return value.BoolVal(a <= b), nil
	case OpGt:
		return value.BoolVal(a > b), nil
	case OpGe:
		return value.BoolVal(a >= b), nil
	default:
		return value.Value{}, geneerrors.NewInvariantViolation(fmt.Sprintf("%s is not a binary operator", op))
	}
}

func getIndexed(container any, i int) (value.Value, error) {
	cv, ok := asValue(container)
	if !ok || !cv.IsArray() {
		return value.Value{}, geneerrors.NewTypeError("GetItem requires an Array register value")
	}
	elems := cv.AsArray()
	if i < 0 || i >= len(elems) {
		return value.NullVal(), nil
	}
	return elems[i], nil
}

// setIndexed mutates an Array or an Arguments container in place,
// extending with Void when the index is past the end, and returns the
// (possibly reallocated) container value to be written back into the
// register. Arguments is not itself a value.Value, so it is handled
// before the Array case.
func setIndexed(container any, i int, v any) (any, error) {
	if args, ok := container.(*Arguments); ok {
		args.Set(i, v)
		return args, nil
	}
	cv, ok := asValue(container)
	if !ok || !cv.IsArray() {
		return nil, geneerrors.NewTypeError("SetItem requires an Array or Arguments register value")
	}
	vv, ok := asValue(v)
	if !ok {
		return nil, geneerrors.NewTypeError("SetItem requires a Value default")
	}
	elems := cv.AsArray()
	for len(elems) <= i {
		elems = append(elems, value.VoidVal())
	}
	elems[i] = vv
	return value.ArrayVal(elems), nil
}

func setProp(container any, key string, v any) (any, error) {
	cv, ok := asValue(container)
	if !ok || !cv.IsMap() {
		return nil, geneerrors.NewTypeError("SetProp requires a Map register value")
	}
	vv, ok := asValue(v)
	if !ok {
		return nil, geneerrors.NewTypeError("SetProp requires a Value default")
	}
	m := cv.AsMap()
	m[key] = vv
	return value.MapVal(m), nil
}
