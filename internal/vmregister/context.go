package vmregister

import geneerrors "gene/internal/errors"

// Namespace is a chain of name→value bindings representing module-level
// state (top-level `var`/`fn`). Values stored here are `any`: either a
// value.Value or a runtime-only object (*Function, *Arguments) that the
// base Value sum deliberately excludes.
type Namespace struct {
	parent  *Namespace
	members map[string]any
}

func NewNamespace(parent *Namespace) *Namespace {
	return &Namespace{parent: parent, members: map[string]any{}}
}

func (n *Namespace) Def(name string, v any) {
	n.members[name] = v
}

func (n *Namespace) Get(name string) (any, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if v, ok := cur.members[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set updates the nearest existing binding; it is an error if none exists.
func (n *Namespace) Set(name string, v any) error {
	for cur := n; cur != nil; cur = cur.parent {
		if _, ok := cur.members[name]; ok {
			cur.members[name] = v
			return nil
		}
	}
	return geneerrors.NewUndefinedNameError(name)
}

// Scope is structurally identical to Namespace but represents lexical
// block-local bindings (nested `var`, function parameters).
type Scope struct {
	parent  *Scope
	members map[string]any
}

func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, members: map[string]any{}}
}

func (s *Scope) Def(name string, v any) {
	s.members[name] = v
}

func (s *Scope) Get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.members[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *Scope) Set(name string, v any) error {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.members[name]; ok {
			cur.members[name] = v
			return nil
		}
	}
	return geneerrors.NewUndefinedNameError(name)
}

// Context is the (Namespace, Scope, optional self) triple naming what
// identifiers mean for a running frame.
type Context struct {
	Namespace *Namespace
	Scope     *Scope
	Self      any
}

// GetMember resolves a name by consulting the Scope chain first, then the
// Namespace chain.
func (c *Context) GetMember(name string) (any, bool) {
	if v, ok := c.Scope.Get(name); ok {
		return v, true
	}
	return c.Namespace.Get(name)
}

// SetMember assigns into whichever chain already binds name.
func (c *Context) SetMember(name string, v any) error {
	if _, ok := c.Scope.Get(name); ok {
		return c.Scope.Set(name, v)
	}
	if _, ok := c.Namespace.Get(name); ok {
		return c.Namespace.Set(name, v)
	}
	return geneerrors.NewUndefinedNameError(name)
}

// DefMember creates a binding in the innermost Scope.
func (c *Context) DefMember(name string, v any) {
	c.Scope.Def(name, v)
}

// DefMemberInNamespace is the Namespace-targeted counterpart used for
// top-level `var`/`fn`, so all call sites share one Namespace and mutual
// recursion resolves.
func (c *Context) DefMemberInNamespace(name string, v any) {
	c.Namespace.Def(name, v)
}
