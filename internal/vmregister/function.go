package vmregister

import (
	geneerrors "gene/internal/errors"
	"gene/internal/value"
)

// MatcherEntry is one (name, positional-index) pair in a parameter
// Matcher.
type MatcherEntry struct {
	Name  string
	Index int
}

// Matcher is an ordered list of (name, index) pairs plus a flag for the
// underscore "ignored arguments" placeholder.
type Matcher struct {
	Entries []MatcherEntry
	Ignored bool
}

// BuildMatcher builds a Matcher from the parameter-spec Value following a
// `fn` form: a single symbol becomes a one-parameter matcher (or an empty,
// ignored matcher for the underscore placeholder); an array of symbols
// becomes a positional matcher.
func BuildMatcher(spec value.Value) (*Matcher, error) {
	switch {
	case spec.IsSymbol():
		name := spec.AsSymbol()
		if name == "_" {
			return &Matcher{Ignored: true}, nil
		}
		return &Matcher{Entries: []MatcherEntry{{Name: name, Index: 0}}}, nil
	case spec.IsArray():
		elems := spec.AsArray()
		m := &Matcher{Entries: make([]MatcherEntry, 0, len(elems))}
		for i, e := range elems {
			if !e.IsSymbol() {
				return nil, geneerrors.NewCompileError("parameter matcher entries must be symbols", spec.String())
			}
			if e.AsSymbol() == "_" {
				continue
			}
			m.Entries = append(m.Entries, MatcherEntry{Name: e.AsSymbol(), Index: i})
		}
		return m, nil
	default:
		return nil, geneerrors.NewCompileError("invalid parameter matcher", spec.String())
	}
}

// Bind binds each matcher entry's name to the corresponding positional
// argument in scope. Names not covered by the matcher are not bound.
func (m *Matcher) Bind(scope *Scope, args *Arguments) {
	if m == nil || m.Ignored {
		return
	}
	for _, e := range m.Entries {
		if e.Index < len(args.Positional) {
			scope.Def(e.Name, args.Positional[e.Index])
		} else {
			scope.Def(e.Name, value.VoidVal())
		}
	}
}

// Function is a closure: it captures its defining namespace and scope so
// free references inside its body resolve against the environment where it
// was defined, not where it's called.
type Function struct {
	Name    string
	Matcher *Matcher
	Body    BlockID

	// InheritsCallerScope marks a function whose body resolves names
	// against the caller's scope instead of a fresh one. No surface form
	// the compiler emits (`fn`) sets it; every compiled Function opens a
	// fresh Scope parented by ParentScope on Call. The field is carried on
	// the value so a future caller-scope-inheriting surface form has
	// somewhere to record its choice without changing this struct's shape.
	InheritsCallerScope bool

	ParentNamespace *Namespace
	ParentScope     *Scope
}

// Arguments is the runtime-only positional arguments container. It is
// deliberately not a value.Value variant: keeping it out of internal/value
// keeps that package free of VM-layer concerns.
type Arguments struct {
	Positional []any
}

func NewArguments() *Arguments {
	return &Arguments{}
}

func (a *Arguments) Set(i int, v any) {
	for len(a.Positional) <= i {
		a.Positional = append(a.Positional, value.VoidVal())
	}
	a.Positional[i] = v
}
