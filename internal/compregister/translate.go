package compregister

import (
	"sort"

	geneerrors "gene/internal/errors"
	"gene/internal/value"
	"gene/internal/vmregister"
)

var binaryOps = map[string]vmregister.OpCode{
	"+":  vmregister.OpAdd,
	"-":  vmregister.OpSub,
	"*":  vmregister.OpMul,
	"/":  vmregister.OpDiv,
	"==": vmregister.OpEq,
	"<":  vmregister.OpLt,
	"<=": vmregister.OpLe,
	">":  vmregister.OpGt,
	">=": vmregister.OpGe,
}

// TranslateProgram builds the IR tree for an entire parsed program. The
// result is always a NodeSequence whose direct var/fn statements are marked
// top-level, splicing a top-level Stream's forms directly in.
func TranslateProgram(v value.Value) (*Compilable, error) {
	root := newNode(NodeSequence)
	root.IsTopLevel = true
	forms := topLevelForms(v)
	for _, f := range forms {
		node, err := translateNode(f, true)
		if err != nil {
			return nil, err
		}
		root.Statements = append(root.Statements, node)
	}
	return root, nil
}

func topLevelForms(v value.Value) []value.Value {
	if v.IsStream() {
		return v.AsStream()
	}
	return []value.Value{v}
}

// translateNode maps one parsed Value to a Compilable node. isRoot records
// whether this node is a direct statement of the block root, which `var`
// and `fn` use to decide Namespace- vs Scope-binding.
func translateNode(v value.Value, isRoot bool) (*Compilable, error) {
	switch v.Tag {
	case value.Stream:
		// A nested Stream's children are wrapped in a NodeSequence, which
		// emission flattens into the parent's instruction stream.
		seq := newNode(NodeSequence)
		for _, f := range v.AsStream() {
			child, err := translateNode(f, isRoot)
			if err != nil {
				return nil, err
			}
			seq.Statements = append(seq.Statements, child)
		}
		return seq, nil
	case value.Void, value.Null, value.Bool, value.Int, value.Float, value.String:
		n := newNode(NodeLiteral)
		n.Literal = v
		return n, nil
	case value.Symbol:
		n := newNode(NodeSymbol)
		n.Name = v.AsSymbol()
		return n, nil
	case value.Array:
		return translateArray(v)
	case value.Map:
		return translateMap(v)
	case value.Gene:
		return translateGene(v, isRoot)
	default:
		return nil, geneerrors.NewCompileError("cannot translate value", v.String())
	}
}

func translateArray(v value.Value) (*Compilable, error) {
	if v.IsLiteral() {
		n := newNode(NodeArrayLiteral)
		n.Literal = v
		return n, nil
	}
	elems := v.AsArray()
	template := make([]value.Value, len(elems))
	n := newNode(NodeArrayTemplate)
	for i, e := range elems {
		if e.IsLiteral() {
			template[i] = e
			continue
		}
		template[i] = value.VoidVal()
		child, err := translateNode(e, false)
		if err != nil {
			return nil, err
		}
		n.IndexedChildren = append(n.IndexedChildren, IndexedChild{Index: i, Node: child})
	}
	n.Template = value.ArrayVal(template)
	return n, nil
}

func translateMap(v value.Value) (*Compilable, error) {
	if v.IsLiteral() {
		n := newNode(NodeMapLiteral)
		n.Literal = v
		return n, nil
	}
	entries := v.AsMap()
	template := make(map[string]value.Value, len(entries))
	n := newNode(NodeMapTemplate)
	for k, e := range entries {
		if e.IsLiteral() {
			template[k] = e
			continue
		}
		template[k] = value.VoidVal()
		child, err := translateNode(e, false)
		if err != nil {
			return nil, err
		}
		n.KeyedChildren = append(n.KeyedChildren, KeyedChild{Key: k, Node: child})
	}
	sort.Slice(n.KeyedChildren, func(i, j int) bool {
		return n.KeyedChildren[i].Key < n.KeyedChildren[j].Key
	})
	n.Template = value.MapVal(template)
	return n, nil
}

// normalizeGene rewrites `(a + b)` (kind=a, data=[+, b]) into the
// operator-kinded form `(+ a b)` (kind=+, data=[a, b]) whenever the data's
// first element names a binary operator or `=`.
func normalizeGene(g *value.GeneData) (kind value.Value, data []value.Value) {
	if len(g.Data) == 0 || !g.Data[0].IsSymbol() {
		return g.Kind, g.Data
	}
	sym := g.Data[0].AsSymbol()
	if _, isOp := binaryOps[sym]; !isOp && sym != "=" {
		return g.Kind, g.Data
	}
	newData := make([]value.Value, 0, len(g.Data))
	newData = append(newData, g.Kind)
	newData = append(newData, g.Data[1:]...)
	return g.Data[0], newData
}

func translateGene(v value.Value, isRoot bool) (*Compilable, error) {
	g := v.AsGene()
	kind, data := normalizeGene(g)

	if kind.IsSymbol() {
		sym := kind.AsSymbol()
		if op, ok := binaryOps[sym]; ok {
			return translateBinaryOp(op, data, v)
		}
		switch sym {
		case "=":
			return translateAssignment(data, v)
		case "var":
			return translateVar(data, v, isRoot)
		case "fn":
			return translateFunction(data, v, isRoot)
		case "if":
			return translateIf(data, v)
		case "loop":
			return translateLoop(data)
		case "while":
			return translateWhile(data, v)
		case "break":
			return newNode(NodeBreak), nil
		}
	}
	return translateInvocation(kind, data)
}

func translateBinaryOp(op vmregister.OpCode, data []value.Value, original value.Value) (*Compilable, error) {
	if len(data) != 2 {
		return nil, geneerrors.NewCompileError("binary operator requires exactly two operands", original.String())
	}
	left, err := translateNode(data[0], false)
	if err != nil {
		return nil, err
	}
	right, err := translateNode(data[1], false)
	if err != nil {
		return nil, err
	}
	n := newNode(NodeBinaryOp)
	n.Op = op
	n.Left = left
	n.Right = right
	return n, nil
}

func translateAssignment(data []value.Value, original value.Value) (*Compilable, error) {
	if len(data) != 2 || !data[0].IsSymbol() {
		return nil, geneerrors.NewCompileError("assignment requires a symbol target", original.String())
	}
	val, err := translateNode(data[1], false)
	if err != nil {
		return nil, err
	}
	n := newNode(NodeAssignment)
	n.Name = data[0].AsSymbol()
	n.Value = val
	return n, nil
}

func translateVar(data []value.Value, original value.Value, isRoot bool) (*Compilable, error) {
	if len(data) != 2 || !data[0].IsSymbol() {
		return nil, geneerrors.NewCompileError("var requires a symbol name and a value", original.String())
	}
	val, err := translateNode(data[1], false)
	if err != nil {
		return nil, err
	}
	n := newNode(NodeVar)
	n.Name = data[0].AsSymbol()
	n.Value = val
	n.IsTopLevel = isRoot
	return n, nil
}

func translateFunction(data []value.Value, original value.Value, isRoot bool) (*Compilable, error) {
	if len(data) < 2 || !data[0].IsSymbol() {
		return nil, geneerrors.NewCompileError("fn requires a symbol name and a parameter matcher", original.String())
	}
	n := newNode(NodeFunction)
	n.Name = data[0].AsSymbol()
	n.MatcherSpec = data[1]
	n.IsTopLevel = isRoot

	body := newNode(NodeSequence)
	for _, stmt := range data[2:] {
		child, err := translateNode(stmt, false)
		if err != nil {
			return nil, err
		}
		body.Statements = append(body.Statements, child)
	}
	n.Body = body
	return n, nil
}

// translateIf partitions data into condition, then-part and else-part by
// scanning for the symbols `then` and `else`.
func translateIf(data []value.Value, original value.Value) (*Compilable, error) {
	if len(data) < 1 {
		return nil, geneerrors.NewCompileError("if requires a condition", original.String())
	}
	cond, err := translateNode(data[0], false)
	if err != nil {
		return nil, err
	}
	rest := data[1:]
	i := 0
	if i < len(rest) && rest[i].IsSymbol() && rest[i].AsSymbol() == "then" {
		i++
	}
	thenStart := i
	elseIdx := -1
	for j := i; j < len(rest); j++ {
		if rest[j].IsSymbol() && rest[j].AsSymbol() == "else" {
			elseIdx = j
			break
		}
	}
	var thenPart, elsePart []value.Value
	if elseIdx >= 0 {
		thenPart = rest[thenStart:elseIdx]
		elsePart = rest[elseIdx+1:]
	} else {
		thenPart = rest[thenStart:]
	}

	thenSeq := newNode(NodeSequence)
	for _, f := range thenPart {
		child, err := translateNode(f, false)
		if err != nil {
			return nil, err
		}
		thenSeq.Statements = append(thenSeq.Statements, child)
	}

	n := newNode(NodeIf)
	n.Cond = cond
	n.Then = thenSeq
	if elseIdx >= 0 {
		elseSeq := newNode(NodeSequence)
		for _, f := range elsePart {
			child, err := translateNode(f, false)
			if err != nil {
				return nil, err
			}
			elseSeq.Statements = append(elseSeq.Statements, child)
		}
		n.Else = elseSeq
	}
	return n, nil
}

func translateLoop(data []value.Value) (*Compilable, error) {
	body := newNode(NodeSequence)
	for _, f := range data {
		child, err := translateNode(f, false)
		if err != nil {
			return nil, err
		}
		body.Statements = append(body.Statements, child)
	}
	n := newNode(NodeLoop)
	n.Body = body
	return n, nil
}

func translateWhile(data []value.Value, original value.Value) (*Compilable, error) {
	if len(data) < 1 {
		return nil, geneerrors.NewCompileError("while requires a condition", original.String())
	}
	cond, err := translateNode(data[0], false)
	if err != nil {
		return nil, err
	}
	body := newNode(NodeSequence)
	for _, f := range data[1:] {
		child, err := translateNode(f, false)
		if err != nil {
			return nil, err
		}
		body.Statements = append(body.Statements, child)
	}
	n := newNode(NodeWhile)
	n.Cond = cond
	n.Body = body
	return n, nil
}

func translateInvocation(kind value.Value, data []value.Value) (*Compilable, error) {
	target, err := translateNode(kind, false)
	if err != nil {
		return nil, err
	}
	n := newNode(NodeInvocation)
	n.Target = target
	for _, a := range data {
		arg, err := translateNode(a, false)
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, arg)
	}
	return n, nil
}
