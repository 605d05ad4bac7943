// Package value defines the runtime value model shared by every stage of the
// pipeline: the parser produces a Value tree, the compiler walks it, and the
// virtual machine stores Values in registers and scope bindings.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Void Kind = iota
	Null
	Bool
	Int
	Float
	String
	Symbol
	Array
	Map
	Gene
	Stream
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Array:
		return "array"
	case Map:
		return "map"
	case Gene:
		return "gene"
	case Stream:
		return "stream"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the language's data model: scalars, arrays,
// maps, Genes and the parser's top-level Stream. Only the field(s) matching
// Tag are meaningful.
type Value struct {
	Tag  Kind
	b    bool
	i    int64
	f    float64
	s    string // String and Symbol payload
	arr  []Value
	m    map[string]Value
	gene *GeneData
}

// GeneData is the triple backing a Gene value: kind, props and data.
// It lives behind a pointer so Genes stay cheap to copy and compare by
// identity is unambiguous during compilation.
type GeneData struct {
	Kind  Value
	Props map[string]Value
	Data  []Value
}

func VoidVal() Value           { return Value{Tag: Void} }
func NullVal() Value           { return Value{Tag: Null} }
func BoolVal(b bool) Value     { return Value{Tag: Bool, b: b} }
func IntVal(i int64) Value     { return Value{Tag: Int, i: i} }
func FloatVal(f float64) Value { return Value{Tag: Float, f: f} }
func StringVal(s string) Value { return Value{Tag: String, s: s} }
func SymbolVal(s string) Value { return Value{Tag: Symbol, s: s} }

func ArrayVal(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Tag: Array, arr: elems}
}

func MapVal(entries map[string]Value) Value {
	if entries == nil {
		entries = map[string]Value{}
	}
	return Value{Tag: Map, m: entries}
}

func GeneVal(kind Value, props map[string]Value, data []Value) Value {
	if props == nil {
		props = map[string]Value{}
	}
	if data == nil {
		data = []Value{}
	}
	return Value{Tag: Gene, gene: &GeneData{Kind: kind, Props: props, Data: data}}
}

func StreamVal(forms []Value) Value {
	if forms == nil {
		forms = []Value{}
	}
	return Value{Tag: Stream, arr: forms}
}

// Accessors. Callers are expected to have checked Tag first, mirroring the
// exhaustive-switch discipline used throughout the pipeline.

func (v Value) IsVoid() bool   { return v.Tag == Void }
func (v Value) IsNull() bool   { return v.Tag == Null }
func (v Value) IsBool() bool   { return v.Tag == Bool }
func (v Value) IsInt() bool    { return v.Tag == Int }
func (v Value) IsFloat() bool  { return v.Tag == Float }
func (v Value) IsString() bool { return v.Tag == String }
func (v Value) IsSymbol() bool { return v.Tag == Symbol }
func (v Value) IsArray() bool  { return v.Tag == Array }
func (v Value) IsMap() bool    { return v.Tag == Map }
func (v Value) IsGene() bool   { return v.Tag == Gene }
func (v Value) IsStream() bool { return v.Tag == Stream }

func (v Value) AsBool() bool            { return v.b }
func (v Value) AsInt() int64            { return v.i }
func (v Value) AsFloat() float64        { return v.f }
func (v Value) AsString() string        { return v.s }
func (v Value) AsSymbol() string        { return v.s }
func (v Value) AsArray() []Value        { return v.arr }
func (v Value) AsMap() map[string]Value { return v.m }
func (v Value) AsGene() *GeneData       { return v.gene }
func (v Value) AsStream() []Value       { return v.arr }

// IsTruthy follows Gene's boolean semantics: everything except Void, Null
// and Boolean(false) is truthy. JumpIfFalse requires a strict Boolean
// operand and does not consult this; no other stage of the pipeline calls
// it either.
func (v Value) IsTruthy() bool {
	switch v.Tag {
	case Null, Void:
		return false
	case Bool:
		return v.b
	default:
		return true
	}
}

// Clone returns a deep copy of v: aggregate payloads get fresh backing
// storage so the result can be mutated without affecting v. Scalars and
// symbols are returned as-is.
func (v Value) Clone() Value {
	switch v.Tag {
	case Array, Stream:
		elems := make([]Value, len(v.arr))
		for i, e := range v.arr {
			elems[i] = e.Clone()
		}
		return Value{Tag: v.Tag, arr: elems}
	case Map:
		m := make(map[string]Value, len(v.m))
		for k, e := range v.m {
			m[k] = e.Clone()
		}
		return Value{Tag: Map, m: m}
	case Gene:
		props := make(map[string]Value, len(v.gene.Props))
		for k, e := range v.gene.Props {
			props[k] = e.Clone()
		}
		data := make([]Value, len(v.gene.Data))
		for i, e := range v.gene.Data {
			data[i] = e.Clone()
		}
		return Value{Tag: Gene, gene: &GeneData{Kind: v.gene.Kind.Clone(), Props: props, Data: data}}
	default:
		return v
	}
}

// IsLiteral reports whether a Value can be folded directly into an
// aggregate container at translation time. Symbols and Genes are never
// literal since they require evaluation.
func (v Value) IsLiteral() bool {
	switch v.Tag {
	case Void, Null, Bool, Int, Float, String:
		return true
	case Array:
		for _, e := range v.arr {
			if !e.IsLiteral() {
				return false
			}
		}
		return true
	case Map:
		for _, e := range v.m {
			if !e.IsLiteral() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal compares two Values structurally: Maps compare by entries
// (insertion order is not observable), Arrays compare element-wise, Genes
// compare kind/props/data.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Void, Null:
		return true
	case Bool:
		return a.b == b.b
	case Int:
		return a.i == b.i
	case Float:
		return a.f == b.f
	case String, Symbol:
		return a.s == b.s
	case Array, Stream:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Gene:
		if !Equal(a.gene.Kind, b.gene.Kind) {
			return false
		}
		if len(a.gene.Data) != len(b.gene.Data) {
			return false
		}
		for i := range a.gene.Data {
			if !Equal(a.gene.Data[i], b.gene.Data[i]) {
				return false
			}
		}
		if len(a.gene.Props) != len(b.gene.Props) {
			return false
		}
		for k, av := range a.gene.Props {
			bv, ok := b.gene.Props[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v back into Gene surface syntax. Parsing the output
// yields an equal Value for the round-trippable subset; Streams and quoted
// sub-forms are not guaranteed to round-trip.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.Tag {
	case Void:
		sb.WriteString("void")
	case Null:
		sb.WriteString("null")
	case Bool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case Int:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		// Plain decimal with a point, so the lexer reads it back as a Float
		// rather than an Int (it has no exponent syntax).
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".IN") {
			s += ".0"
		}
		sb.WriteString(s)
	case String:
		sb.WriteByte('"')
		sb.WriteString(escapeString(v.s))
		sb.WriteByte('"')
	case Symbol:
		sb.WriteString(v.s)
	case Array:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(' ')
			}
			e.write(sb)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte('^')
			sb.WriteString(k)
			sb.WriteByte(' ')
			v.m[k].write(sb)
		}
		sb.WriteByte('}')
	case Gene:
		sb.WriteByte('(')
		v.gene.Kind.write(sb)
		keys := make([]string, 0, len(v.gene.Props))
		for k := range v.gene.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte(' ')
			sb.WriteByte('^')
			sb.WriteString(k)
			sb.WriteByte(' ')
			v.gene.Props[k].write(sb)
		}
		for _, d := range v.gene.Data {
			sb.WriteByte(' ')
			d.write(sb)
		}
		sb.WriteByte(')')
	case Stream:
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(' ')
			}
			e.write(sb)
		}
	default:
		sb.WriteString(fmt.Sprintf("<%s>", v.Tag))
	}
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
