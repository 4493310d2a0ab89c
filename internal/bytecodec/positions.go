package bytecodec

import (
	"fmt"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/target"
)

// MisplacedTargetError is a type annotation whose target kind cannot occur
// on the member that carries it, such as a local variable target on a field.
type MisplacedTargetError struct {
	Kind   target.Kind
	Member string
}

func (e *MisplacedTargetError) Error() string {
	return fmt.Sprintf("%s target on a %s", e.Kind, e.Member)
}

// Casts and type arguments keep TypeArg -1 for the first component so that
// "typecast #5" and a cast to the first intersection component are one key.
func relative(offset, typeArg int) location.RelativeLocation {
	l := location.Offset(offset)
	if typeArg > 0 {
		l = l.WithTypeArg(typeArg)
	}
	return l
}

func classElement(c *scene.AClass, ref target.TypeRef) (*scene.AElement, error) {
	switch t := ref.Target.(type) {
	case target.TypeParameterTarget:
		if t.K == target.ClassTypeParameter {
			return c.Bounds.Vivify(location.TypeParameter(t.Param)).At(ref.Path), nil
		}
	case target.BoundTarget:
		if t.K == target.ClassTypeParameterBound {
			return c.Bounds.Vivify(location.Bound(t.Param, t.Bound)).At(ref.Path), nil
		}
	case target.SupertypeTarget:
		return c.Extends.Vivify(location.TypeIndex(t.Index)).At(ref.Path), nil
	}
	return nil, &MisplacedTargetError{Kind: ref.Target.Kind(), Member: "class"}
}

func fieldElement(f *scene.AField, ref target.TypeRef) (*scene.AElement, error) {
	if ref.Target.Kind() != target.Field {
		return nil, &MisplacedTargetError{Kind: ref.Target.Kind(), Member: "field"}
	}
	return f.Type.At(ref.Path), nil
}

func methodElement(m *scene.AMethod, ref target.TypeRef) (*scene.AElement, error) {
	b := m.Body
	var te *scene.ATypeElement
	switch t := ref.Target.(type) {
	case target.TypeParameterTarget:
		if t.K == target.MethodTypeParameter {
			te = m.Bounds.Vivify(location.TypeParameter(t.Param))
		}
	case target.BoundTarget:
		if t.K == target.MethodTypeParameterBound {
			te = m.Bounds.Vivify(location.Bound(t.Param, t.Bound))
		}
	case target.EmptyTarget:
		switch t.K {
		case target.MethodReturn:
			te = m.Return
		case target.MethodReceiver:
			te = m.Receiver.Type
		}
	case target.FormalParameterTarget:
		te = m.Parameters.Vivify(t.Param).Type
	case target.ThrowsTarget:
		te = m.Throws.Vivify(location.TypeIndex(t.Index))
	case target.LocalVarTarget:
		loc := location.Local(t.Index, t.Start, t.Length)
		if t.K == target.ResourceVariable {
			te = b.Resources.Vivify(loc).Type
		} else {
			te = b.Locals.Vivify(loc).Type
		}
	case target.CatchTarget:
		te = b.Catches.Vivify(t.Index)
	case target.OffsetTarget:
		loc := location.Offset(t.Offset)
		switch t.K {
		case target.Instanceof:
			te = b.Instanceofs.Vivify(loc)
		case target.New:
			te = b.News.Vivify(loc)
		case target.ConstructorReference:
			te = b.NewRefs.Vivify(loc)
		case target.MethodReference:
			te = b.Refs.Vivify(loc)
		}
	case target.TypeArgumentTarget:
		// Type argument kinds share the table of their expression; a
		// non-negative TypeArg tells them apart from the expression itself.
		switch t.K {
		case target.Cast:
			te = b.Typecasts.Vivify(relative(t.Offset, t.TypeArg))
		case target.ConstructorInvocationTypeArgument:
			te = b.News.Vivify(location.Offset(t.Offset).WithTypeArg(t.TypeArg))
		case target.MethodInvocationTypeArgument:
			te = b.Calls.Vivify(location.Offset(t.Offset).WithTypeArg(t.TypeArg))
		case target.ConstructorReferenceTypeArgument:
			te = b.NewRefs.Vivify(location.Offset(t.Offset).WithTypeArg(t.TypeArg))
		case target.MethodReferenceTypeArgument:
			te = b.Refs.Vivify(location.Offset(t.Offset).WithTypeArg(t.TypeArg))
		}
	}
	if te == nil {
		return nil, &MisplacedTargetError{Kind: ref.Target.Kind(), Member: "method"}
	}
	return te.At(ref.Path), nil
}

// entry is one annotation the encoder writes.
type entry struct {
	slot slot
	ann  *annotation.Annotation
}

// slot identifies where an annotation sits on one member: a declaration
// (zero ref, param -1), a parameter declaration, or a type position.
type slot struct {
	param int
	ref   target.TypeRef
	name  string
}

func declSlot(name string) slot { return slot{param: -1, name: name} }

func paramSlot(p int, name string) slot { return slot{param: p, name: name} }

func typeSlot(ref target.TypeRef, name string) slot { return slot{param: -1, ref: ref, name: name} }

func (s slot) isType() bool { return s.ref.Target != nil }

// collector gathers the entries of one member in emission order.
type collector struct {
	entries []entry
	skipped int
}

func (c *collector) decl(e *scene.AElement) {
	for _, a := range e.Annotations() {
		c.entries = append(c.entries, entry{slot: declSlot(a.Name()), ann: a})
	}
}

func (c *collector) param(p int, e *scene.AElement) {
	for _, a := range e.Annotations() {
		c.entries = append(c.entries, entry{slot: paramSlot(p, a.Name()), ann: a})
	}
}

func (c *collector) typed(t target.Target, te *scene.ATypeElement) {
	add := func(path location.TypePath, e *scene.AElement) {
		for _, a := range e.Annotations() {
			ref := target.TypeRef{Target: t, Path: path}
			c.entries = append(c.entries, entry{slot: typeSlot(ref, a.Name()), ann: a})
		}
	}
	add(location.TypePath{}, &te.AElement)
	for path, e := range te.InnerTypes.All() {
		add(path, e)
	}
}

func (c *collector) bounds(t *scene.Table[location.BoundLocation, *scene.ATypeElement], param, bound target.Kind) {
	for loc, te := range t.All() {
		if loc.IsTypeParameter() {
			c.typed(target.TypeParameterTarget{K: param, Param: loc.Param}, te)
		} else {
			c.typed(target.BoundTarget{K: bound, Param: loc.Param, Bound: loc.Bound}, te)
		}
	}
}

func classEntries(cl *scene.AClass) []entry {
	var c collector
	c.decl(&cl.AElement)
	c.bounds(cl.Bounds, target.ClassTypeParameter, target.ClassTypeParameterBound)
	for loc, te := range cl.Extends.All() {
		c.typed(target.SupertypeTarget{Index: loc.Index}, te)
	}
	return c.entries
}

func fieldEntries(f *scene.AField) []entry {
	var c collector
	c.decl(&f.AElement)
	c.typed(target.EmptyTarget{K: target.Field}, f.Type)
	return c.entries
}

// methodEntries lists a method's annotations. Parameters and the receiver
// come between object creation and casts in the body. Source-form body
// locations and declaration annotations on locals have no class-file form
// and are counted in skipped.
func methodEntries(m *scene.AMethod) (entries []entry, skipped int) {
	var c collector
	c.decl(&m.AElement)
	c.typed(target.EmptyTarget{K: target.MethodReturn}, m.Return)
	c.bounds(m.Bounds, target.MethodTypeParameter, target.MethodTypeParameterBound)
	for loc, te := range m.Throws.All() {
		c.typed(target.ThrowsTarget{Index: loc.Index}, te)
	}
	exprs := bodyExprs(m.Body)
	c.blockVars(m.Body)
	c.exprs(exprs[:1])
	for p, f := range m.Parameters.All() {
		c.param(p, &f.AElement)
		c.typed(target.FormalParameterTarget{Param: p}, f.Type)
	}
	c.skipped += len(m.Receiver.Annotations())
	c.typed(target.EmptyTarget{K: target.MethodReceiver}, m.Receiver.Type)
	c.exprs(exprs[1:])
	return c.entries, c.skipped
}

func (c *collector) locals(t *scene.Table[location.LocalLocation, *scene.AField], k target.Kind) {
	for loc, f := range t.All() {
		c.skipped += len(f.Annotations())
		if !loc.IsBytecode() {
			c.skipped += countTyped(f.Type)
			continue
		}
		c.typed(target.LocalVarTarget{K: k, Index: loc.Index, Start: loc.ScopeStart, Length: loc.ScopeLength}, f.Type)
	}
}

func (c *collector) blockVars(b *scene.ABlock) {
	c.locals(b.Locals, target.LocalVariable)
	c.locals(b.Resources, target.ResourceVariable)
	for idx, te := range b.Catches.All() {
		c.typed(target.CatchTarget{Index: idx}, te)
	}
}

type exprTable struct {
	t          *scene.Table[location.RelativeLocation, *scene.ATypeElement]
	kind, targ target.Kind
}

// bodyExprs lists the expression tables of b in emission order, object
// creation first.
func bodyExprs(b *scene.ABlock) []exprTable {
	return []exprTable{
		{b.News, target.New, target.ConstructorInvocationTypeArgument},
		{b.Typecasts, target.Cast, target.Cast},
		{b.Instanceofs, target.Instanceof, target.Instanceof},
		{b.Refs, target.MethodReference, target.MethodReferenceTypeArgument},
		{b.NewRefs, target.ConstructorReference, target.ConstructorReferenceTypeArgument},
		{b.Calls, target.MethodInvocationTypeArgument, target.MethodInvocationTypeArgument},
	}
}

func (c *collector) exprs(tabs []exprTable) {
	for _, x := range tabs {
		for loc, te := range x.t.All() {
			if !loc.IsBytecode() {
				c.skipped += countTyped(te)
				continue
			}
			c.typed(exprTarget(x.kind, x.targ, loc), te)
		}
	}
}

func exprTarget(kind, withArg target.Kind, loc location.RelativeLocation) target.Target {
	switch {
	case kind == target.Cast || kind == target.MethodInvocationTypeArgument:
		return target.TypeArgumentTarget{K: kind, Offset: loc.Offset, TypeArg: max(loc.TypeArg, 0)}
	case loc.TypeArg >= 0 && withArg != kind:
		return target.TypeArgumentTarget{K: withArg, Offset: loc.Offset, TypeArg: loc.TypeArg}
	}
	return target.OffsetTarget{K: kind, Offset: loc.Offset}
}

func countTyped(te *scene.ATypeElement) int {
	n := len(te.Annotations())
	for _, e := range te.InnerTypes.All() {
		n += len(e.Annotations())
	}
	return n
}
