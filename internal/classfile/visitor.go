package classfile

import (
	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/target"
)

// Header is the fixed part of a class file. Names are internal names
// ("java/lang/Object").
type Header struct {
	Minor, Major int
	Access       int
	Name         string
	Super        string
	Interfaces   []string
}

// Member is a field or method declaration.
type Member struct {
	Access     int
	Name       string
	Descriptor string
}

// Attribute is an attribute this package does not interpret, kept as raw
// bytes. Constant pool references inside Data stay valid because the Writer
// extends the source pool rather than rebuilding it.
type Attribute struct {
	Name string
	Data []byte
}

// Code is a method's Code attribute with its type annotations removed;
// those are reported through MethodVisitor.VisitTypeAnnotation instead.
type Code struct {
	MaxStack   int
	MaxLocals  int
	Bytecode   []byte
	Exceptions []byte // exception_table entries, 8 bytes each
	Attributes []Attribute
}

// AnnotationVisitor receives the element values of one annotation. Inside
// arrays the name is empty. Nested and Array may return nil to skip the
// value.
type AnnotationVisitor interface {
	// Scalar receives primitives, strings and class literals. Class literals
	// arrive as annotation.ClassValue holding a descriptor.
	Scalar(name string, v annotation.Value) error
	Enum(name, desc, constant string) error
	Nested(name, desc string) (AnnotationVisitor, error)
	Array(name string) (AnnotationVisitor, error)
	End() error
}

// TypeAnnotationVisitor is an AnnotationVisitor that also receives the
// position of the annotation. Position calls may be interleaved with value
// calls in any order.
type TypeAnnotationVisitor interface {
	AnnotationVisitor
	target.PositionSink
}

// ClassVisitor receives one class. Any visitor-returning method may return
// nil to skip that part.
type ClassVisitor interface {
	Visit(h Header) error
	VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error)
	VisitAttribute(a Attribute) error
	VisitField(m Member) (FieldVisitor, error)
	VisitMethod(m Member) (MethodVisitor, error)
	VisitEnd() error
}

type FieldVisitor interface {
	VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error)
	VisitAttribute(a Attribute) error
	VisitEnd() error
}

// MethodVisitor receives one method. Type annotations of every target kind,
// including those stored in the Code attribute, go to VisitTypeAnnotation.
type MethodVisitor interface {
	VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error)
	VisitParameterAnnotation(param int, desc string, visible bool) (AnnotationVisitor, error)
	VisitAnnotationDefault() (AnnotationVisitor, error)
	VisitAttribute(a Attribute) error
	VisitCode(c Code) error
	VisitEnd() error
}

// ClassAdapter forwards every call to Next, or does nothing when Next is
// nil. Embed it and override the calls of interest.
type ClassAdapter struct {
	Next ClassVisitor
}

func (a ClassAdapter) Visit(h Header) error {
	if a.Next == nil {
		return nil
	}
	return a.Next.Visit(h)
}

func (a ClassAdapter) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a ClassAdapter) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitTypeAnnotation(desc, visible)
}

func (a ClassAdapter) VisitAttribute(attr Attribute) error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAttribute(attr)
}

func (a ClassAdapter) VisitField(m Member) (FieldVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitField(m)
}

func (a ClassAdapter) VisitMethod(m Member) (MethodVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitMethod(m)
}

func (a ClassAdapter) VisitEnd() error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitEnd()
}

// FieldAdapter forwards to Next like ClassAdapter.
type FieldAdapter struct {
	Next FieldVisitor
}

func (a FieldAdapter) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a FieldAdapter) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitTypeAnnotation(desc, visible)
}

func (a FieldAdapter) VisitAttribute(attr Attribute) error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAttribute(attr)
}

func (a FieldAdapter) VisitEnd() error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitEnd()
}

// MethodAdapter forwards to Next like ClassAdapter.
type MethodAdapter struct {
	Next MethodVisitor
}

func (a MethodAdapter) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a MethodAdapter) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitTypeAnnotation(desc, visible)
}

func (a MethodAdapter) VisitParameterAnnotation(param int, desc string, visible bool) (AnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitParameterAnnotation(param, desc, visible)
}

func (a MethodAdapter) VisitAnnotationDefault() (AnnotationVisitor, error) {
	if a.Next == nil {
		return nil, nil
	}
	return a.Next.VisitAnnotationDefault()
}

func (a MethodAdapter) VisitAttribute(attr Attribute) error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAttribute(attr)
}

func (a MethodAdapter) VisitCode(c Code) error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitCode(c)
}

func (a MethodAdapter) VisitEnd() error {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitEnd()
}
