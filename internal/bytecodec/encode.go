package bytecodec

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/classfile"
	"github.com/funvibe/annoscene/internal/ctxlog"
	"github.com/funvibe/annoscene/internal/scene"
	"github.com/funvibe/annoscene/internal/target"
)

// WriteFrom returns a copy of the class read from src carrying the
// annotations s holds for it. Where the class and s both annotate one
// element with the same annotation type, overwrite picks the scene's
// annotation and otherwise the class's. s is not modified.
func WriteFrom(ctx context.Context, s *scene.Scene, src io.Reader, overwrite bool) ([]byte, error) {
	r, err := classfile.ReadClass(src)
	if err != nil {
		return nil, err
	}
	return Encode(ctx, s, r, overwrite)
}

// Encode is WriteFrom for an already parsed class.
func Encode(ctx context.Context, s *scene.Scene, r *classfile.Reader, overwrite bool) ([]byte, error) {
	defs, err := scene.CollectDefs(s)
	if err != nil {
		return nil, fmt.Errorf("annotation definitions: %w", err)
	}
	name := ClassName(r.Header().Name)
	e := &encoder{
		scene:     s,
		defs:      defs,
		overwrite: overwrite,
		log:       ctxlog.FromContext(ctx).With("session", defs.Session.String(), "class", name),
	}
	w := classfile.NewWriter(r)
	if err := r.Accept(&classEncoder{ClassAdapter: classfile.ClassAdapter{Next: w}, e: e}); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}
	e.log.Debug("encoded class",
		"written", e.written, "replaced", e.replaced, "kept", e.kept, "skipped", e.skipped)
	return w.Bytes()
}

type encoder struct {
	scene     *scene.Scene
	defs      *annotation.Registry
	overwrite bool
	log       *slog.Logger

	written, replaced, kept, skipped int
}

// member is the encode state of one class, field or method.
type member struct {
	entries []entry
	filled  map[slot]bool // slots the scene writes
	kept    map[slot]bool // slots where the class's annotation stays
}

func newMember(entries []entry) *member {
	m := &member{entries: entries, filled: make(map[slot]bool), kept: make(map[slot]bool)}
	for _, en := range entries {
		m.filled[en.slot] = true
	}
	return m
}

// existing decides the fate of an annotation already in the class and
// reports whether it stays.
func (e *encoder) existing(m *member, s slot) bool {
	if !m.filled[s] {
		return true
	}
	if e.overwrite {
		e.replaced++
		return false
	}
	m.kept[s] = true
	e.kept++
	return true
}

type annotationSink interface {
	VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error)
	VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error)
}

type parameterSink interface {
	VisitParameterAnnotation(param int, desc string, visible bool) (classfile.AnnotationVisitor, error)
}

// emit writes the scene's annotations of m that the class does not keep.
func (e *encoder) emit(sink annotationSink, m *member) error {
	for _, en := range m.entries {
		if m.kept[en.slot] {
			continue
		}
		def := en.ann.Def
		if d, err := e.defs.Lookup(en.ann.Name()); err == nil && d != nil {
			def = d
		}
		ret := def.Retention()
		if ret == annotation.RetentionSource {
			e.skipped++
			continue
		}
		desc := annotation.Descriptor(en.ann.Name())
		visible := ret == annotation.RetentionRuntime
		var av classfile.AnnotationVisitor
		var err error
		switch {
		case en.slot.isType():
			var tv classfile.TypeAnnotationVisitor
			tv, err = sink.VisitTypeAnnotation(desc, visible)
			if err == nil && tv != nil {
				target.Emit(en.slot.ref, tv)
				av = tv
			}
		case en.slot.param >= 0:
			ps, ok := sink.(parameterSink)
			if !ok {
				return fmt.Errorf("@%s: parameter annotation outside a method", en.ann.Name())
			}
			av, err = ps.VisitParameterAnnotation(en.slot.param, desc, visible)
		default:
			av, err = sink.VisitAnnotation(desc, visible)
		}
		if err != nil {
			return fmt.Errorf("@%s: %w", en.ann.Name(), err)
		}
		if av == nil {
			continue
		}
		if err := writeValues(av, en.ann); err != nil {
			return fmt.Errorf("@%s: %w", en.ann.Name(), err)
		}
		if err := av.End(); err != nil {
			return fmt.Errorf("@%s: %w", en.ann.Name(), err)
		}
		e.written++
	}
	return nil
}

func writeValues(av classfile.AnnotationVisitor, a *annotation.Annotation) error {
	for _, name := range a.FieldNames() {
		v, _ := a.Get(name)
		if err := writeValue(av, name, v); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(av classfile.AnnotationVisitor, name string, v annotation.Value) error {
	switch v := v.(type) {
	case annotation.EnumValue:
		return av.Enum(name, annotation.Descriptor(v.Type), v.Name)
	case *annotation.Annotation:
		child, err := av.Nested(name, annotation.Descriptor(v.Name()))
		if err != nil || child == nil {
			return err
		}
		if err := writeValues(child, v); err != nil {
			return err
		}
		return child.End()
	case annotation.ArrayValue:
		child, err := av.Array(name)
		if err != nil || child == nil {
			return err
		}
		for _, it := range v.Items {
			if err := writeValue(child, "", it); err != nil {
				return err
			}
		}
		return child.End()
	}
	return av.Scalar(name, v)
}

// filterType decodes a type annotation already in the class and forwards
// it to next once its position shows whether it stays.
func (e *encoder) filterType(m *member, desc string, visible bool, next func(string, bool) (classfile.TypeAnnotationVisitor, error)) classfile.TypeAnnotationVisitor {
	td := &typeDecoder{}
	b := annotation.NewLearningBuilder(annotation.TypeName(desc))
	td.valueDecoder = valueDecoder{b: b, end: func() error {
		a, err := b.End()
		if err != nil {
			return err
		}
		ref, err := td.Resolve()
		if err != nil {
			return fmt.Errorf("@%s: %w", a.Name(), err)
		}
		if !e.existing(m, typeSlot(ref, a.Name())) {
			return nil
		}
		tv, err := next(desc, visible)
		if err != nil || tv == nil {
			return err
		}
		target.Emit(ref, tv)
		if err := writeValues(tv, a); err != nil {
			return err
		}
		return tv.End()
	}}
	return td
}

type classEncoder struct {
	classfile.ClassAdapter
	e     *encoder
	class *scene.AClass
	m     *member
}

func (ce *classEncoder) Visit(h classfile.Header) error {
	if c, ok := ce.e.scene.Classes.Get(ClassName(h.Name)); ok {
		ce.class = c
		ce.m = newMember(classEntries(c))
	} else {
		ce.m = newMember(nil)
	}
	return ce.Next.Visit(h)
}

func (ce *classEncoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	if !ce.e.existing(ce.m, declSlot(annotation.TypeName(desc))) {
		return nil, nil
	}
	return ce.Next.VisitAnnotation(desc, visible)
}

func (ce *classEncoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return ce.e.filterType(ce.m, desc, visible, ce.Next.VisitTypeAnnotation), nil
}

func (ce *classEncoder) VisitField(fm classfile.Member) (classfile.FieldVisitor, error) {
	next, err := ce.Next.VisitField(fm)
	if err != nil || next == nil {
		return next, err
	}
	var entries []entry
	if ce.class != nil {
		if f, ok := ce.class.Fields.Get(fm.Name); ok {
			entries = fieldEntries(f)
		}
	}
	return &fieldEncoder{FieldAdapter: classfile.FieldAdapter{Next: next}, e: ce.e, m: newMember(entries)}, nil
}

func (ce *classEncoder) VisitMethod(mm classfile.Member) (classfile.MethodVisitor, error) {
	next, err := ce.Next.VisitMethod(mm)
	if err != nil || next == nil {
		return next, err
	}
	var entries []entry
	if ce.class != nil {
		if m, ok := ce.class.Methods.Get(mm.Name + mm.Descriptor); ok {
			var skipped int
			entries, skipped = methodEntries(m)
			ce.e.skipped += skipped
		}
	}
	return &methodEncoder{MethodAdapter: classfile.MethodAdapter{Next: next}, e: ce.e, m: newMember(entries)}, nil
}

func (ce *classEncoder) VisitEnd() error {
	if err := ce.e.emit(ce.Next, ce.m); err != nil {
		return err
	}
	return ce.Next.VisitEnd()
}

type fieldEncoder struct {
	classfile.FieldAdapter
	e *encoder
	m *member
}

func (fe *fieldEncoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	if !fe.e.existing(fe.m, declSlot(annotation.TypeName(desc))) {
		return nil, nil
	}
	return fe.Next.VisitAnnotation(desc, visible)
}

func (fe *fieldEncoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return fe.e.filterType(fe.m, desc, visible, fe.Next.VisitTypeAnnotation), nil
}

func (fe *fieldEncoder) VisitEnd() error {
	if err := fe.e.emit(fe.Next, fe.m); err != nil {
		return err
	}
	return fe.Next.VisitEnd()
}

type methodEncoder struct {
	classfile.MethodAdapter
	e *encoder
	m *member
}

func (me *methodEncoder) VisitAnnotation(desc string, visible bool) (classfile.AnnotationVisitor, error) {
	if !me.e.existing(me.m, declSlot(annotation.TypeName(desc))) {
		return nil, nil
	}
	return me.Next.VisitAnnotation(desc, visible)
}

func (me *methodEncoder) VisitParameterAnnotation(p int, desc string, visible bool) (classfile.AnnotationVisitor, error) {
	if !me.e.existing(me.m, paramSlot(p, annotation.TypeName(desc))) {
		return nil, nil
	}
	return me.Next.VisitParameterAnnotation(p, desc, visible)
}

func (me *methodEncoder) VisitTypeAnnotation(desc string, visible bool) (classfile.TypeAnnotationVisitor, error) {
	return me.e.filterType(me.m, desc, visible, me.Next.VisitTypeAnnotation), nil
}

func (me *methodEncoder) VisitEnd() error {
	if err := me.e.emit(me.Next, me.m); err != nil {
		return err
	}
	return me.Next.VisitEnd()
}
