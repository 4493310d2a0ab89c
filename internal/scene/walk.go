package scene

import (
	"fmt"
	"strings"

	"github.com/funvibe/annoscene/internal/location"
)

// Path names an element for diagnostics, outermost first:
// ["class p.C", "method run()V", "return", "inner-type 1, 0"].
type Path []string

func (p Path) String() string { return strings.Join(p, " > ") }

func (p Path) with(seg string) Path {
	return append(p[:len(p):len(p)], seg)
}

// Walk calls fn for every element of s in emission order until fn returns
// false.
func Walk(s *Scene, fn func(Path, *AElement) bool) {
	w := walker{fn: fn}
	for name, e := range s.Packages.All() {
		if !w.visit(Path{"package " + name}, e) {
			return
		}
	}
	for name, c := range s.Classes.All() {
		if !w.class(Path{"class " + name}, c) {
			return
		}
	}
}

type walker struct {
	fn func(Path, *AElement) bool
}

func (w walker) visit(p Path, e *AElement) bool { return w.fn(p, e) }

func (w walker) typeElem(p Path, t *ATypeElement) bool {
	if !w.visit(p, &t.AElement) {
		return false
	}
	for path, e := range t.InnerTypes.All() {
		if !w.visit(p.with("inner-type "+path.String()), e) {
			return false
		}
	}
	return true
}

func (w walker) field(p Path, f *AField) bool {
	return w.visit(p, &f.AElement) && w.typeElem(p.with("type"), f.Type)
}

func (w walker) bounds(p Path, t *Table[location.BoundLocation, *ATypeElement]) bool {
	for loc, b := range t.All() {
		if !w.typeElem(p.with(loc.String()), b) {
			return false
		}
	}
	return true
}

func (w walker) class(p Path, c *AClass) bool {
	if !w.visit(p, &c.AElement) || !w.bounds(p, c.Bounds) {
		return false
	}
	for loc, t := range c.Extends.All() {
		if !w.typeElem(p.with(fmt.Sprintf("extends %d", loc.Index)), t) {
			return false
		}
	}
	for name, f := range c.Fields.All() {
		if !w.field(p.with("field "+name), f) {
			return false
		}
	}
	for key, m := range c.Methods.All() {
		if !w.method(p.with("method "+key), m) {
			return false
		}
	}
	for idx, b := range c.StaticInits.All() {
		if !w.block(p.with(fmt.Sprintf("staticinit *%d", idx)), b) {
			return false
		}
	}
	return true
}

// method follows the class-file emission order, where parameters and the
// receiver fall between object creation and casts in the body.
func (w walker) method(p Path, m *AMethod) bool {
	if !w.visit(p, &m.AElement) || !w.typeElem(p.with("return"), m.Return) || !w.bounds(p, m.Bounds) {
		return false
	}
	for loc, t := range m.Throws.All() {
		if !w.typeElem(p.with(fmt.Sprintf("throws %d", loc.Index)), t) {
			return false
		}
	}
	if !w.blockVars(p, m.Body) || !w.exprs(p, m.Body, 0, 1) {
		return false
	}
	for i, f := range m.Parameters.All() {
		if !w.field(p.with(fmt.Sprintf("parameter #%d", i)), f) {
			return false
		}
	}
	return w.field(p.with("receiver"), m.Receiver) && w.exprs(p, m.Body, 1, len(exprNames))
}

func (w walker) block(p Path, b *ABlock) bool {
	return w.blockVars(p, b) && w.exprs(p, b, 0, len(exprNames))
}

func (w walker) blockVars(p Path, b *ABlock) bool {
	for loc, f := range b.Locals.All() {
		if !w.field(p.with("local "+loc.String()), f) {
			return false
		}
	}
	for loc, f := range b.Resources.All() {
		if !w.field(p.with("resource "+loc.String()), f) {
			return false
		}
	}
	for idx, t := range b.Catches.All() {
		if !w.typeElem(p.with(fmt.Sprintf("catch %d", idx)), t) {
			return false
		}
	}
	return true
}

var exprNames = []string{"new", "typecast", "instanceof", "reference", "constructor-reference", "call"}

// exprs visits the expression tables from..to-1, in exprTables order.
func (w walker) exprs(p Path, b *ABlock, from, to int) bool {
	tabs := b.exprTables()
	for i := from; i < to; i++ {
		for loc, t := range tabs[i].All() {
			if !w.typeElem(p.with(exprNames[i]+" "+loc.String()), t) {
				return false
			}
		}
	}
	return true
}
