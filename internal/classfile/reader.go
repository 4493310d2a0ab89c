// Package classfile reads and writes the parts of JVM class files that carry
// annotations. Reader drives a push visitor over a class; Writer is a
// visitor that produces class bytes. Attributes this package does not
// interpret, and all bytecode, pass through unchanged.
package classfile

import (
	"fmt"
	"io"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/target"
)

const magic = 0xCAFEBABE

// Attribute names this package interprets.
const (
	AttrVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	AttrInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
	AttrAnnotationDefault             = "AnnotationDefault"
	AttrCode                          = "Code"
)

// Reader holds one parsed class file header. Accept may be called any
// number of times.
type Reader struct {
	b      []byte
	pool   *Pool
	header Header
	body   int // offset of fields_count
}

// ReadClass reads a whole class from r.
func ReadClass(r io.Reader) (*Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class: %w", err)
	}
	return NewReader(b)
}

// NewReader parses the header and constant pool of b.
func NewReader(b []byte) (*Reader, error) {
	in := &input{b: b}
	if in.u4() != magic {
		if in.err != nil {
			return nil, in.err
		}
		return nil, formatErr(0, "bad magic")
	}
	r := &Reader{b: b}
	r.header.Minor = in.u2()
	r.header.Major = in.u2()
	r.pool = readPool(in)
	r.header.Access = in.u2()
	r.header.Name = r.className(in)
	if sup := in.u2(); sup != 0 {
		in.off -= 2
		r.header.Super = r.className(in)
	}
	n := in.u2()
	for i := 0; i < n && in.err == nil; i++ {
		r.header.Interfaces = append(r.header.Interfaces, r.className(in))
	}
	if in.err != nil {
		return nil, in.err
	}
	r.body = in.off
	return r, nil
}

// Header returns the class header.
func (r *Reader) Header() Header { return r.header }

// Pool returns the class constant pool.
func (r *Reader) Pool() *Pool { return r.pool }

func (r *Reader) utf8(in *input) string {
	at := in.off
	s, err := r.pool.Utf8(in.u2())
	if err != nil && in.err == nil {
		in.err = &FormatError{Offset: at, Msg: "bad name reference", Err: err}
	}
	return s
}

func (r *Reader) className(in *input) string {
	at := in.off
	s, err := r.pool.ClassName(in.u2())
	if err != nil && in.err == nil {
		in.err = &FormatError{Offset: at, Msg: "bad class reference", Err: err}
	}
	return s
}

// attributeSink is the part shared by class, field and method visitors.
type attributeSink interface {
	VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error)
	VisitAttribute(a Attribute) error
}

// Accept drives v over the class.
func (r *Reader) Accept(v ClassVisitor) error {
	in := &input{b: r.b, off: r.body}
	if err := v.Visit(r.header); err != nil {
		return err
	}
	for range in.u2() {
		m := r.member(in)
		if in.err != nil {
			return in.err
		}
		fv, err := v.VisitField(m)
		if err != nil {
			return fmt.Errorf("field %s: %w", m.Name, err)
		}
		var sink attributeSink
		if fv != nil {
			sink = fv
		}
		if err := r.attributes(in, sink, nil); err != nil {
			return fmt.Errorf("field %s: %w", m.Name, err)
		}
		if fv != nil {
			if err := fv.VisitEnd(); err != nil {
				return fmt.Errorf("field %s: %w", m.Name, err)
			}
		}
	}
	for range in.u2() {
		m := r.member(in)
		if in.err != nil {
			return in.err
		}
		mv, err := v.VisitMethod(m)
		if err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
		var sink attributeSink
		if mv != nil {
			sink = mv
		}
		if err := r.attributes(in, sink, mv); err != nil {
			return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
		}
		if mv != nil {
			if err := mv.VisitEnd(); err != nil {
				return fmt.Errorf("method %s%s: %w", m.Name, m.Descriptor, err)
			}
		}
	}
	if err := r.attributes(in, v, nil); err != nil {
		return err
	}
	if in.err == nil && in.off != len(r.b) {
		in.fail("%d trailing bytes", len(r.b)-in.off)
	}
	if err := in.errOrNil(); err != nil {
		return err
	}
	return v.VisitEnd()
}

func (r *Reader) member(in *input) Member {
	return Member{Access: in.u2(), Name: r.utf8(in), Descriptor: r.utf8(in)}
}

// attributes reads an attribute table. sink may be nil to skip; mv is
// non-nil only for methods.
func (r *Reader) attributes(in *input, sink attributeSink, mv MethodVisitor) error {
	for range in.u2() {
		name := r.utf8(in)
		n := int(in.u4())
		start := in.off
		data := in.bytes(n)
		if in.err != nil {
			return in.err
		}
		if sink == nil {
			continue
		}
		sub := &input{b: in.b[:start+n], off: start}
		var err error
		switch {
		case name == AttrVisibleAnnotations || name == AttrInvisibleAnnotations:
			err = r.annotations(sub, sink.VisitAnnotation, name == AttrVisibleAnnotations)
		case name == AttrVisibleTypeAnnotations || name == AttrInvisibleTypeAnnotations:
			err = r.typeAnnotations(sub, sink.VisitTypeAnnotation, name == AttrVisibleTypeAnnotations)
		case mv != nil && (name == AttrVisibleParameterAnnotations || name == AttrInvisibleParameterAnnotations):
			err = r.parameterAnnotations(sub, mv, name == AttrVisibleParameterAnnotations)
		case mv != nil && name == AttrAnnotationDefault:
			err = r.annotationDefault(sub, mv)
		case mv != nil && name == AttrCode:
			err = r.code(sub, mv)
		default:
			err = sink.VisitAttribute(Attribute{Name: name, Data: data})
			sub.off = start + n
		}
		if err != nil {
			return err
		}
		if sub.err == nil && sub.off != start+n {
			return formatErr(sub.off, "attribute %s: length %d but %d bytes used", name, n, sub.off-start)
		}
	}
	return in.errOrNil()
}

func (r *Reader) annotations(in *input, open func(string, bool) (AnnotationVisitor, error), visible bool) error {
	for range in.u2() {
		desc := r.utf8(in)
		if in.err != nil {
			return in.err
		}
		av, err := open(desc, visible)
		if err != nil {
			return fmt.Errorf("@%s: %w", desc, err)
		}
		if err := r.annotationBody(in, av); err != nil {
			return fmt.Errorf("@%s: %w", desc, err)
		}
	}
	return in.errOrNil()
}

func (r *Reader) parameterAnnotations(in *input, mv MethodVisitor, visible bool) error {
	for p := range in.u1() {
		err := r.annotations(in, func(desc string, visible bool) (AnnotationVisitor, error) {
			return mv.VisitParameterAnnotation(p, desc, visible)
		}, visible)
		if err != nil {
			return fmt.Errorf("parameter %d: %w", p, err)
		}
	}
	return in.errOrNil()
}

func (r *Reader) annotationDefault(in *input, mv MethodVisitor) error {
	av, err := mv.VisitAnnotationDefault()
	if err != nil {
		return err
	}
	if err := r.elementValue(in, "", av); err != nil {
		return err
	}
	if av != nil {
		return av.End()
	}
	return nil
}

// annotationBody reads element_value_pairs and ends av. A nil av skips.
func (r *Reader) annotationBody(in *input, av AnnotationVisitor) error {
	for range in.u2() {
		name := r.utf8(in)
		if err := r.elementValue(in, name, av); err != nil {
			return err
		}
	}
	if in.err != nil {
		return in.err
	}
	if av == nil {
		return nil
	}
	return av.End()
}

func (r *Reader) constValue(in *input, tag byte) (annotation.Value, error) {
	at := in.off
	i := in.u2()
	if in.err != nil {
		return nil, in.err
	}
	var v annotation.Value
	var err error
	switch tag {
	case 'B', 'C', 'I', 'S', 'Z':
		var n int32
		n, err = r.pool.Int(i)
		switch tag {
		case 'B':
			v = annotation.ByteValue(int8(n))
		case 'C':
			v = annotation.CharValue(uint16(n))
		case 'I':
			v = annotation.IntValue(n)
		case 'S':
			v = annotation.ShortValue(int16(n))
		case 'Z':
			v = annotation.BoolValue(n != 0)
		}
	case 'J':
		var n int64
		n, err = r.pool.Long(i)
		v = annotation.LongValue(n)
	case 'F':
		var f float32
		f, err = r.pool.Float(i)
		v = annotation.FloatValue(f)
	case 'D':
		var f float64
		f, err = r.pool.Double(i)
		v = annotation.DoubleValue(f)
	case 's':
		var s string
		s, err = r.pool.Utf8(i)
		v = annotation.StringValue(s)
	case 'c':
		var s string
		s, err = r.pool.Utf8(i)
		v = annotation.ClassValue(s)
	}
	if err != nil {
		return nil, &FormatError{Offset: at, Msg: fmt.Sprintf("element value %c", tag), Err: err}
	}
	return v, nil
}

func (r *Reader) elementValue(in *input, name string, av AnnotationVisitor) error {
	tag := byte(in.u1())
	switch tag {
	case 'B', 'C', 'I', 'S', 'Z', 'J', 'F', 'D', 's', 'c':
		v, err := r.constValue(in, tag)
		if err != nil || av == nil {
			return err
		}
		return av.Scalar(name, v)
	case 'e':
		desc, c := r.utf8(in), r.utf8(in)
		if in.err != nil || av == nil {
			return in.errOrNil()
		}
		return av.Enum(name, desc, c)
	case '@':
		desc := r.utf8(in)
		if in.err != nil {
			return in.err
		}
		var child AnnotationVisitor
		if av != nil {
			var err error
			if child, err = av.Nested(name, desc); err != nil {
				return err
			}
		}
		return r.annotationBody(in, child)
	case '[':
		n := in.u2()
		var child AnnotationVisitor
		if av != nil {
			var err error
			if child, err = av.Array(name); err != nil {
				return err
			}
		}
		for range n {
			if err := r.elementValue(in, "", child); err != nil {
				return err
			}
		}
		if in.err != nil || child == nil {
			return in.errOrNil()
		}
		return child.End()
	}
	if in.err != nil {
		return in.err
	}
	return formatErr(in.off-1, "unknown element value tag %q", tag)
}

// typeAnnotations reads a type annotation table. A local variable target
// with several live ranges is reported once per range.
func (r *Reader) typeAnnotations(in *input, open func(string, bool) (TypeAnnotationVisitor, error), visible bool) error {
	for range in.u2() {
		refs := r.typeRefs(in)
		desc := r.utf8(in)
		if in.err != nil {
			return in.err
		}
		body := in.off
		if len(refs) == 0 {
			if err := r.annotationBody(in, nil); err != nil {
				return err
			}
		}
		for _, ref := range refs {
			in.off = body
			tv, err := open(desc, visible)
			if err != nil {
				return fmt.Errorf("@%s: %w", desc, err)
			}
			var av AnnotationVisitor
			if tv != nil {
				target.Emit(ref, tv)
				av = tv
			}
			if err := r.annotationBody(in, av); err != nil {
				return fmt.Errorf("@%s: %w", desc, err)
			}
		}
	}
	return in.errOrNil()
}

// typeRefs reads target_type, target_info and type_path.
func (r *Reader) typeRefs(in *input) []target.TypeRef {
	at := in.off
	k := target.Kind(in.u1())
	var ts []target.Target
	switch k {
	case target.ClassTypeParameter, target.MethodTypeParameter:
		ts = append(ts, target.TypeParameterTarget{K: k, Param: in.u1()})
	case target.ClassExtends:
		idx := in.u2()
		if idx == 0xFFFF {
			idx = -1
		}
		ts = append(ts, target.SupertypeTarget{Index: idx})
	case target.ClassTypeParameterBound, target.MethodTypeParameterBound:
		ts = append(ts, target.BoundTarget{K: k, Param: in.u1(), Bound: in.u1()})
	case target.Field, target.MethodReturn, target.MethodReceiver:
		ts = append(ts, target.EmptyTarget{K: k})
	case target.MethodFormalParameter:
		ts = append(ts, target.FormalParameterTarget{Param: in.u1()})
	case target.Throws:
		ts = append(ts, target.ThrowsTarget{Index: in.u2()})
	case target.LocalVariable, target.ResourceVariable:
		for range in.u2() {
			start, length, index := in.u2(), in.u2(), in.u2()
			ts = append(ts, target.LocalVarTarget{K: k, Index: index, Start: start, Length: length})
		}
	case target.ExceptionParameter:
		ts = append(ts, target.CatchTarget{Index: in.u2()})
	case target.Instanceof, target.New, target.ConstructorReference, target.MethodReference:
		ts = append(ts, target.OffsetTarget{K: k, Offset: in.u2()})
	case target.Cast, target.ConstructorInvocationTypeArgument, target.MethodInvocationTypeArgument,
		target.ConstructorReferenceTypeArgument, target.MethodReferenceTypeArgument:
		ts = append(ts, target.TypeArgumentTarget{K: k, Offset: in.u2(), TypeArg: in.u1()})
	default:
		if in.err == nil {
			in.err = formatErr(at, "unknown target type 0x%02X", uint8(k))
		}
		return nil
	}
	n := in.u1()
	steps := make([]location.Step, 0, n)
	for range n {
		kind, arg := in.u1(), in.u1()
		st, err := location.NewStep(kind, arg)
		if err != nil {
			if in.err == nil {
				in.err = &FormatError{Offset: in.off - 2, Msg: "type path", Err: err}
			}
			return nil
		}
		steps = append(steps, st)
	}
	path := location.Path(steps...)
	refs := make([]target.TypeRef, len(ts))
	for i, t := range ts {
		refs[i] = target.TypeRef{Target: t, Path: path}
	}
	return refs
}

func (r *Reader) code(in *input, mv MethodVisitor) error {
	var c Code
	c.MaxStack = in.u2()
	c.MaxLocals = in.u2()
	c.Bytecode = in.bytes(int(in.u4()))
	c.Exceptions = in.bytes(8 * in.u2())
	type pending struct {
		sub     *input
		visible bool
	}
	var typeAttrs []pending
	for range in.u2() {
		name := r.utf8(in)
		n := int(in.u4())
		start := in.off
		data := in.bytes(n)
		if in.err != nil {
			return in.err
		}
		if name == AttrVisibleTypeAnnotations || name == AttrInvisibleTypeAnnotations {
			typeAttrs = append(typeAttrs, pending{&input{b: in.b[:start+n], off: start}, name == AttrVisibleTypeAnnotations})
			continue
		}
		c.Attributes = append(c.Attributes, Attribute{Name: name, Data: data})
	}
	if err := mv.VisitCode(c); err != nil {
		return err
	}
	for _, p := range typeAttrs {
		if err := r.typeAnnotations(p.sub, mv.VisitTypeAnnotation, p.visible); err != nil {
			return err
		}
		if p.sub.off != len(p.sub.b) {
			return formatErr(p.sub.off, "code type annotations: trailing bytes")
		}
	}
	return nil
}
