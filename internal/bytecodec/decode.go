// Package bytecodec moves annotations between a Scene and compiled classes.
// ReadInto decodes the annotations of a class into a Scene; WriteFrom writes
// a Scene's annotations into a copy of a class.
package bytecodec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/classfile"
	"github.com/funvibe/annoscene/internal/ctxlog"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/target"
)

// ClassName converts an internal class name to the dotted form used as a
// Scene key.
func ClassName(internal string) string { return strings.ReplaceAll(internal, "/", ".") }

// ReadInto decodes every annotation of the class read from src into s. The
// annotation definitions learned along the way live in a registry private
// to this call.
func ReadInto(ctx context.Context, s *scene.Scene, src io.Reader) error {
	r, err := classfile.ReadClass(src)
	if err != nil {
		return err
	}
	_, err = Decode(ctx, s, r)
	return err
}

// Decode is ReadInto for an already parsed class. It returns the session
// registry holding the definitions it learned. A class that fails to decode
// adds nothing to s.
func Decode(ctx context.Context, s *scene.Scene, r *classfile.Reader) (*annotation.Registry, error) {
	d := &decoder{
		scene:   scene.New(),
		reg:     annotation.NewRegistry(),
		returns: make(map[*scene.AElement]bool),
		origin:  make(map[*annotation.Annotation]bool),
	}
	name := ClassName(r.Header().Name)
	log := ctxlog.FromContext(ctx).With("session", d.reg.Session.String(), "class", name)
	if err := r.Accept(&classDecoder{d: d}); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	if err := scene.Merge(s, d.scene); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	log.Debug("decoded class", "annotations", d.count, "definitions", len(d.reg.Defs()))
	return d.reg, nil
}

type decoder struct {
	scene *scene.Scene
	reg   *annotation.Registry
	count int

	// returns holds the method return elements; origin records, for
	// annotations placed on them, whether they came from a declaration
	// table.
	returns map[*scene.AElement]bool
	origin  map[*annotation.Annotation]bool
}

// define registers the definition of a, marking how it was retained, and
// makes a share the registry's definition.
func (d *decoder) define(a *annotation.Annotation, visible, typeUse bool) error {
	if visible {
		a.Def.AddMeta(annotation.RetentionAnnotation(annotation.RetentionRuntime))
	} else {
		a.Def.AddMeta(annotation.RetentionAnnotation(annotation.RetentionClass))
	}
	if typeUse {
		a.Def.AddMeta(annotation.TypeUseTarget())
	}
	def, err := d.reg.Define(a.Def)
	if err != nil {
		return err
	}
	a.Def = def
	d.count++
	return nil
}

// attach adds a to e. The only repeat allowed is on a method return, where
// the compiler writes a type-use annotation once in the declaration table
// and once as METHOD_RETURN.
func (d *decoder) attach(e *scene.AElement, a *annotation.Annotation, fromDecl bool) error {
	if old := e.Lookup(a.Name()); old != nil && old.Equal(a) {
		if viaDecl, ok := d.origin[old]; ok && viaDecl != fromDecl {
			return nil
		}
	}
	if err := e.Add(a); err != nil {
		return err
	}
	if d.returns[e] {
		d.origin[a] = fromDecl
	}
	return nil
}

// annotation starts decoding a declaration annotation; place picks the
// element once the definition is known.
func (d *decoder) annotation(desc string, visible bool, place func(*annotation.AnnotationDef) *scene.AElement) classfile.AnnotationVisitor {
	b := annotation.NewLearningBuilder(annotation.TypeName(desc))
	return &valueDecoder{b: b, end: func() error {
		a, err := b.End()
		if err != nil {
			return err
		}
		if err := d.define(a, visible, false); err != nil {
			return err
		}
		return d.attach(place(a.Def), a, true)
	}}
}

// typeAnnotation starts decoding a type annotation. Without position data
// it is treated as a declaration annotation on decl.
func (d *decoder) typeAnnotation(desc string, visible bool, decl *scene.AElement, locate func(target.TypeRef) (*scene.AElement, error)) classfile.TypeAnnotationVisitor {
	td := &typeDecoder{}
	b := annotation.NewLearningBuilder(annotation.TypeName(desc))
	td.valueDecoder = valueDecoder{b: b, end: func() error {
		a, err := b.End()
		if err != nil {
			return err
		}
		if !td.Seen() {
			if err := d.define(a, visible, false); err != nil {
				return err
			}
			return d.attach(decl, a, true)
		}
		ref, err := td.Resolve()
		if err != nil {
			return fmt.Errorf("@%s: %w", a.Name(), err)
		}
		e, err := locate(ref)
		if err != nil {
			return err
		}
		if err := d.define(a, visible, true); err != nil {
			return err
		}
		return d.attach(e, a, false)
	}}
	return td
}

// valueDecoder adapts annotation.Builder to the class-file visitor. Exactly
// one of b and ab is set.
type valueDecoder struct {
	b   *annotation.Builder
	ab  *annotation.ArrayBuilder
	end func() error
}

var errArrayOfArrays = errors.New("arrays of arrays are not valid annotation values")

func (v *valueDecoder) Scalar(name string, val annotation.Value) error {
	if v.ab != nil {
		return v.ab.Scalar(val)
	}
	return v.b.Scalar(name, val)
}

func (v *valueDecoder) Enum(name, desc, constant string) error {
	if v.ab != nil {
		return v.ab.Enum(desc, constant)
	}
	return v.b.Enum(name, desc, constant)
}

func (v *valueDecoder) Nested(name, desc string) (classfile.AnnotationVisitor, error) {
	var child *annotation.Builder
	var err error
	if v.ab != nil {
		child, err = v.ab.Nested(annotation.TypeName(desc))
	} else {
		child, err = v.b.Nested(name, annotation.TypeName(desc))
	}
	if err != nil {
		return nil, err
	}
	return &valueDecoder{b: child, end: func() error {
		_, err := child.End()
		return err
	}}, nil
}

func (v *valueDecoder) Array(name string) (classfile.AnnotationVisitor, error) {
	if v.ab != nil {
		return nil, errArrayOfArrays
	}
	ab, err := v.b.Array(name)
	if err != nil {
		return nil, err
	}
	return &valueDecoder{ab: ab, end: ab.End}, nil
}

func (v *valueDecoder) End() error { return v.end() }

type typeDecoder struct {
	valueDecoder
	target.Accumulator
}

type classDecoder struct {
	classfile.ClassAdapter
	d *decoder
	c *scene.AClass
}

func (cd *classDecoder) Visit(h classfile.Header) error {
	cd.c = cd.d.scene.Classes.Vivify(ClassName(h.Name))
	return nil
}

func (cd *classDecoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	return cd.d.annotation(desc, visible, func(*annotation.AnnotationDef) *scene.AElement { return &cd.c.AElement }), nil
}

func (cd *classDecoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return cd.d.typeAnnotation(desc, visible, &cd.c.AElement, func(ref target.TypeRef) (*scene.AElement, error) {
		return classElement(cd.c, ref)
	}), nil
}

func (cd *classDecoder) VisitField(m classfile.Member) (classfile.FieldVisitor, error) {
	return &fieldDecoder{d: cd.d, f: cd.c.Fields.Vivify(m.Name)}, nil
}

func (cd *classDecoder) VisitMethod(m classfile.Member) (classfile.MethodVisitor, error) {
	am := cd.c.Methods.Vivify(m.Name + m.Descriptor)
	cd.d.returns[&am.Return.AElement] = true
	return &methodDecoder{d: cd.d, m: am}, nil
}

type fieldDecoder struct {
	classfile.FieldAdapter
	d *decoder
	f *scene.AField
}

func (fd *fieldDecoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	return fd.d.annotation(desc, visible, func(*annotation.AnnotationDef) *scene.AElement { return &fd.f.AElement }), nil
}

func (fd *fieldDecoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return fd.d.typeAnnotation(desc, visible, &fd.f.AElement, func(ref target.TypeRef) (*scene.AElement, error) {
		return fieldElement(fd.f, ref)
	}), nil
}

type methodDecoder struct {
	classfile.MethodAdapter
	d *decoder
	m *scene.AMethod
}

// VisitAnnotation puts declaration annotations whose type is a type
// annotation on the return type, where the compiler means them to apply.
func (md *methodDecoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	return md.d.annotation(desc, visible, func(def *annotation.AnnotationDef) *scene.AElement {
		if def.IsTypeAnnotation() {
			return &md.m.Return.AElement
		}
		return &md.m.AElement
	}), nil
}

func (md *methodDecoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return md.d.typeAnnotation(desc, visible, &md.m.AElement, func(ref target.TypeRef) (*scene.AElement, error) {
		return methodElement(md.m, ref)
	}), nil
}

func (md *methodDecoder) VisitParameterAnnotation(p int, desc string, visible bool) (classfile.AnnotationVisitor, error) {
	return md.d.annotation(desc, visible, func(*annotation.AnnotationDef) *scene.AElement {
		return &md.m.Parameters.Vivify(p).AElement
	}), nil
}
