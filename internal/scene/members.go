package scene

import (
	"github.com/funvibe/annoscene/internal/location"
)

// ABlock holds the annotations inside a method body or static initializer.
type ABlock struct {
	Locals      *Table[location.LocalLocation, *AField]
	Resources   *Table[location.LocalLocation, *AField]
	Catches     *Table[int, *ATypeElement]
	Typecasts   *Table[location.RelativeLocation, *ATypeElement]
	Instanceofs *Table[location.RelativeLocation, *ATypeElement]
	News        *Table[location.RelativeLocation, *ATypeElement]
	Refs        *Table[location.RelativeLocation, *ATypeElement]
	NewRefs     *Table[location.RelativeLocation, *ATypeElement]
	Calls       *Table[location.RelativeLocation, *ATypeElement]
}

func NewBlock() *ABlock {
	return &ABlock{
		Locals:      NewTable[location.LocalLocation](NewField),
		Resources:   NewTable[location.LocalLocation](NewField),
		Catches:     NewTable[int](NewTypeElement),
		Typecasts:   NewTable[location.RelativeLocation](NewTypeElement),
		Instanceofs: NewTable[location.RelativeLocation](NewTypeElement),
		News:        NewTable[location.RelativeLocation](NewTypeElement),
		Refs:        NewTable[location.RelativeLocation](NewTypeElement),
		NewRefs:     NewTable[location.RelativeLocation](NewTypeElement),
		Calls:       NewTable[location.RelativeLocation](NewTypeElement),
	}
}

// exprTables lists the expression tables in emission order.
func (b *ABlock) exprTables() []*Table[location.RelativeLocation, *ATypeElement] {
	return []*Table[location.RelativeLocation, *ATypeElement]{
		b.News, b.Typecasts, b.Instanceofs, b.Refs, b.NewRefs, b.Calls,
	}
}

func (b *ABlock) IsEmpty() bool {
	if !tableEmpty(b.Locals, (*AField).IsEmpty) || !tableEmpty(b.Resources, (*AField).IsEmpty) ||
		!tableEmpty(b.Catches, (*ATypeElement).IsEmpty) {
		return false
	}
	for _, t := range b.exprTables() {
		if !tableEmpty(t, (*ATypeElement).IsEmpty) {
			return false
		}
	}
	return true
}

func (b *ABlock) equal(o *ABlock) bool {
	if !tablesEqual(b.Locals, o.Locals, (*AField).equal, (*AField).IsEmpty) ||
		!tablesEqual(b.Resources, o.Resources, (*AField).equal, (*AField).IsEmpty) ||
		!tablesEqual(b.Catches, o.Catches, (*ATypeElement).equal, (*ATypeElement).IsEmpty) {
		return false
	}
	ot := o.exprTables()
	for i, t := range b.exprTables() {
		if !tablesEqual(t, ot[i], (*ATypeElement).equal, (*ATypeElement).IsEmpty) {
			return false
		}
	}
	return true
}

func (b *ABlock) merge(src *ABlock, dry bool) error {
	if err := mergeTable(b.Locals, src.Locals, (*AField).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(b.Resources, src.Resources, (*AField).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(b.Catches, src.Catches, (*ATypeElement).merge, dry); err != nil {
		return err
	}
	st := src.exprTables()
	for i, t := range b.exprTables() {
		if err := mergeTable(t, st[i], (*ATypeElement).merge, dry); err != nil {
			return err
		}
	}
	return nil
}

func (b *ABlock) prune() {
	pruneTable(b.Locals, (*AField).prune, (*AField).IsEmpty)
	pruneTable(b.Resources, (*AField).prune, (*AField).IsEmpty)
	pruneTable(b.Catches, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	for _, t := range b.exprTables() {
		pruneTable(t, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	}
}

// AMethod is a method or constructor, keyed in its class by name and
// descriptor, e.g. "run()V".
type AMethod struct {
	AElement
	Bounds     *Table[location.BoundLocation, *ATypeElement]
	Return     *ATypeElement
	Receiver   *AField
	Parameters *Table[int, *AField]
	Throws     *Table[location.TypeIndexLocation, *ATypeElement]
	Body       *ABlock
}

func NewMethod() *AMethod {
	return &AMethod{
		Bounds:     NewTable[location.BoundLocation](NewTypeElement),
		Return:     NewTypeElement(),
		Receiver:   NewField(),
		Parameters: NewTable[int](NewField),
		Throws:     NewTable[location.TypeIndexLocation](NewTypeElement),
		Body:       NewBlock(),
	}
}

func (m *AMethod) IsEmpty() bool {
	return m.AElement.IsEmpty() &&
		tableEmpty(m.Bounds, (*ATypeElement).IsEmpty) &&
		m.Return.IsEmpty() && m.Receiver.IsEmpty() &&
		tableEmpty(m.Parameters, (*AField).IsEmpty) &&
		tableEmpty(m.Throws, (*ATypeElement).IsEmpty) &&
		m.Body.IsEmpty()
}

func (m *AMethod) equal(o *AMethod) bool {
	return m.AElement.equal(&o.AElement) &&
		tablesEqual(m.Bounds, o.Bounds, (*ATypeElement).equal, (*ATypeElement).IsEmpty) &&
		m.Return.equal(o.Return) &&
		m.Receiver.equal(o.Receiver) &&
		tablesEqual(m.Parameters, o.Parameters, (*AField).equal, (*AField).IsEmpty) &&
		tablesEqual(m.Throws, o.Throws, (*ATypeElement).equal, (*ATypeElement).IsEmpty) &&
		m.Body.equal(o.Body)
}

func (m *AMethod) merge(src *AMethod, dry bool) error {
	if err := m.AElement.merge(&src.AElement, dry); err != nil {
		return err
	}
	if err := mergeTable(m.Bounds, src.Bounds, (*ATypeElement).merge, dry); err != nil {
		return err
	}
	if err := m.Return.merge(src.Return, dry); err != nil {
		return err
	}
	if err := m.Receiver.merge(src.Receiver, dry); err != nil {
		return err
	}
	if err := mergeTable(m.Parameters, src.Parameters, (*AField).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(m.Throws, src.Throws, (*ATypeElement).merge, dry); err != nil {
		return err
	}
	return m.Body.merge(src.Body, dry)
}

func (m *AMethod) prune() {
	pruneTable(m.Bounds, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	m.Return.prune()
	m.Receiver.prune()
	pruneTable(m.Parameters, (*AField).prune, (*AField).IsEmpty)
	pruneTable(m.Throws, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	m.Body.prune()
}

// AClass is one class or interface, keyed in the scene by its binary name
// with dots ("p.Outer$Inner").
type AClass struct {
	AElement
	Bounds      *Table[location.BoundLocation, *ATypeElement]
	Extends     *Table[location.TypeIndexLocation, *ATypeElement]
	Fields      *Table[string, *AField]
	Methods     *Table[string, *AMethod]
	StaticInits *Table[int, *ABlock]
}

func NewClass() *AClass {
	return &AClass{
		Bounds:      NewTable[location.BoundLocation](NewTypeElement),
		Extends:     NewTable[location.TypeIndexLocation](NewTypeElement),
		Fields:      NewTable[string](NewField),
		Methods:     NewTable[string](NewMethod),
		StaticInits: NewTable[int](NewBlock),
	}
}

func (c *AClass) IsEmpty() bool {
	return c.AElement.IsEmpty() &&
		tableEmpty(c.Bounds, (*ATypeElement).IsEmpty) &&
		tableEmpty(c.Extends, (*ATypeElement).IsEmpty) &&
		tableEmpty(c.Fields, (*AField).IsEmpty) &&
		tableEmpty(c.Methods, (*AMethod).IsEmpty) &&
		tableEmpty(c.StaticInits, (*ABlock).IsEmpty)
}

func (c *AClass) equal(o *AClass) bool {
	return c.AElement.equal(&o.AElement) &&
		tablesEqual(c.Bounds, o.Bounds, (*ATypeElement).equal, (*ATypeElement).IsEmpty) &&
		tablesEqual(c.Extends, o.Extends, (*ATypeElement).equal, (*ATypeElement).IsEmpty) &&
		tablesEqual(c.Fields, o.Fields, (*AField).equal, (*AField).IsEmpty) &&
		tablesEqual(c.Methods, o.Methods, (*AMethod).equal, (*AMethod).IsEmpty) &&
		tablesEqual(c.StaticInits, o.StaticInits, (*ABlock).equal, (*ABlock).IsEmpty)
}

func (c *AClass) merge(src *AClass, dry bool) error {
	if err := c.AElement.merge(&src.AElement, dry); err != nil {
		return err
	}
	if err := mergeTable(c.Bounds, src.Bounds, (*ATypeElement).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(c.Extends, src.Extends, (*ATypeElement).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(c.Fields, src.Fields, (*AField).merge, dry); err != nil {
		return err
	}
	if err := mergeTable(c.Methods, src.Methods, (*AMethod).merge, dry); err != nil {
		return err
	}
	return mergeTable(c.StaticInits, src.StaticInits, (*ABlock).merge, dry)
}

func (c *AClass) prune() {
	pruneTable(c.Bounds, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	pruneTable(c.Extends, (*ATypeElement).prune, (*ATypeElement).IsEmpty)
	pruneTable(c.Fields, (*AField).prune, (*AField).IsEmpty)
	pruneTable(c.Methods, (*AMethod).prune, (*AMethod).IsEmpty)
	pruneTable(c.StaticInits, (*ABlock).prune, (*ABlock).IsEmpty)
}
