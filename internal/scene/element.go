// Package scene holds the annotation tree of one or more classes: classes,
// their fields and methods, method bodies, and positions nested inside types.
// Every table vivifies on lookup, so codecs navigate to a location and attach
// annotations in one step.
package scene

import (
	"fmt"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
)

// DuplicateAnnotationError reports a second annotation of one type on a
// single element.
type DuplicateAnnotationError struct {
	Name string
}

func (e *DuplicateAnnotationError) Error() string {
	return fmt.Sprintf("duplicate annotation @%s on one element", e.Name)
}

// AElement carries the annotations attached directly to one location.
type AElement struct {
	annotations []*annotation.Annotation
}

func NewElement() *AElement { return &AElement{} }

// Add attaches a. An element holds at most one annotation of each type.
func (e *AElement) Add(a *annotation.Annotation) error {
	if e.Lookup(a.Name()) != nil {
		return &DuplicateAnnotationError{Name: a.Name()}
	}
	e.annotations = append(e.annotations, a)
	return nil
}

// Annotations returns the attached annotations in the order added.
func (e *AElement) Annotations() []*annotation.Annotation {
	return append([]*annotation.Annotation(nil), e.annotations...)
}

// Lookup finds the annotation of the named type.
func (e *AElement) Lookup(name string) *annotation.Annotation {
	for _, a := range e.annotations {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

func (e *AElement) IsEmpty() bool { return len(e.annotations) == 0 }

func (e *AElement) equal(o *AElement) bool {
	if len(e.annotations) != len(o.annotations) {
		return false
	}
	for _, a := range e.annotations {
		if !a.Equal(o.Lookup(a.Name())) {
			return false
		}
	}
	return true
}

// merge adds src's annotations. An equal annotation already present is
// skipped; a different one of the same type is a duplicate. A dry merge
// only reports the error.
func (e *AElement) merge(src *AElement, dry bool) error {
	for _, a := range src.annotations {
		if old := e.Lookup(a.Name()); old != nil {
			if old.Equal(a) {
				continue
			}
			return &DuplicateAnnotationError{Name: a.Name()}
		}
		if !dry {
			e.annotations = append(e.annotations, a)
		}
	}
	return nil
}

// ATypeElement is an element that denotes a type use. Annotations on
// component types (type arguments, array elements, wildcard bounds) live in
// InnerTypes, keyed by the full path from this type.
type ATypeElement struct {
	AElement
	InnerTypes *Table[location.TypePath, *AElement]
}

func NewTypeElement() *ATypeElement {
	return &ATypeElement{InnerTypes: NewTable[location.TypePath](NewElement)}
}

// At returns the element for path, vivifying it. The empty path is the type
// itself.
func (t *ATypeElement) At(path location.TypePath) *AElement {
	if path.IsEmpty() {
		return &t.AElement
	}
	return t.InnerTypes.Vivify(path)
}

func (t *ATypeElement) IsEmpty() bool {
	if !t.AElement.IsEmpty() {
		return false
	}
	for _, e := range t.InnerTypes.All() {
		if !e.IsEmpty() {
			return false
		}
	}
	return true
}

func (t *ATypeElement) equal(o *ATypeElement) bool {
	return t.AElement.equal(&o.AElement) &&
		tablesEqual(t.InnerTypes, o.InnerTypes, (*AElement).equal, (*AElement).IsEmpty)
}

func (t *ATypeElement) merge(src *ATypeElement, dry bool) error {
	if err := t.AElement.merge(&src.AElement, dry); err != nil {
		return err
	}
	return mergeTable(t.InnerTypes, src.InnerTypes, (*AElement).merge, dry)
}

func (t *ATypeElement) prune() {
	t.InnerTypes.retain(func(_ location.TypePath, e *AElement) bool { return !e.IsEmpty() })
}

// AField is a field, parameter, receiver or local variable: declaration
// annotations on the element itself and type annotations on Type.
type AField struct {
	AElement
	Type *ATypeElement
}

func NewField() *AField { return &AField{Type: NewTypeElement()} }

func (f *AField) IsEmpty() bool { return f.AElement.IsEmpty() && f.Type.IsEmpty() }

func (f *AField) equal(o *AField) bool {
	return f.AElement.equal(&o.AElement) && f.Type.equal(o.Type)
}

func (f *AField) merge(src *AField, dry bool) error {
	if err := f.AElement.merge(&src.AElement, dry); err != nil {
		return err
	}
	return f.Type.merge(src.Type, dry)
}

func (f *AField) prune() { f.Type.prune() }
