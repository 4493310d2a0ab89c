package classfile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/target"
)

// Writer is a ClassVisitor that assembles a class file. Bytes is valid after
// VisitEnd.
type Writer struct {
	attrs
	header  Header
	fields  [][]byte
	methods [][]byte
	out     []byte
}

// NewWriter returns a writer. When src is non-nil its constant pool is
// extended instead of rebuilt, so attributes and code copied from src stay
// valid.
func NewWriter(src *Reader) *Writer {
	p := newPool()
	if src != nil {
		p = src.pool.clone()
	}
	return &Writer{attrs: newAttrs(p)}
}

// Bytes returns the class file.
func (w *Writer) Bytes() ([]byte, error) {
	if w.out == nil {
		return nil, errors.New("class writer: VisitEnd not called")
	}
	return w.out, nil
}

func (w *Writer) Visit(h Header) error {
	w.header = h
	return nil
}

func (w *Writer) VisitField(m Member) (FieldVisitor, error) {
	return &memberWriter{attrs: newAttrs(w.pool), m: m, done: func(b []byte) { w.fields = append(w.fields, b) }}, nil
}

func (w *Writer) VisitMethod(m Member) (MethodVisitor, error) {
	return &memberWriter{attrs: newAttrs(w.pool), m: m, done: func(b []byte) { w.methods = append(w.methods, b) }}, nil
}

func (w *Writer) VisitEnd() error {
	if len(w.code) > 0 {
		return errors.New("class writer: code type annotations outside a method")
	}
	var body output
	body.u2(w.header.Access)
	body.u2(w.pool.AddClass(w.header.Name))
	if w.header.Super == "" {
		body.u2(0)
	} else {
		body.u2(w.pool.AddClass(w.header.Super))
	}
	body.u2(len(w.header.Interfaces))
	for _, i := range w.header.Interfaces {
		body.u2(w.pool.AddClass(i))
	}
	for _, list := range [][][]byte{w.fields, w.methods} {
		body.u2(len(list))
		for _, b := range list {
			body.raw(b)
		}
	}
	if err := w.attrs.write(&body, ""); err != nil {
		return err
	}

	var o output
	o.u4(magic)
	o.u2(w.header.Minor)
	o.u2(w.header.Major)
	if err := w.pool.write(&o); err != nil {
		return err
	}
	o.raw(body.b)
	w.out = o.b
	return nil
}

// annotationList is the body of one annotation table attribute.
type annotationList struct {
	n   int
	buf []byte
}

func (l *annotationList) add(b []byte) {
	l.n++
	l.buf = append(l.buf, b...)
}

func (l *annotationList) bytes() []byte {
	var o output
	o.u2(l.n)
	o.raw(l.buf)
	return o.b
}

// attrs collects the attributes of a class, field or method.
type attrs struct {
	pool   *Pool
	tables map[string]*annotationList
	code   map[string]*annotationList // type annotations stored in Code
	params map[bool]map[int]*annotationList
	def    []byte
	body   *Code
	raw    []Attribute
}

func newAttrs(p *Pool) attrs {
	return attrs{
		pool:   p,
		tables: make(map[string]*annotationList),
		code:   make(map[string]*annotationList),
		params: map[bool]map[int]*annotationList{true: {}, false: {}},
	}
}

func list(m map[string]*annotationList, name string) *annotationList {
	l, ok := m[name]
	if !ok {
		l = &annotationList{}
		m[name] = l
	}
	return l
}

func annotationsAttr(visible bool) string {
	if visible {
		return AttrVisibleAnnotations
	}
	return AttrInvisibleAnnotations
}

func typeAnnotationsAttr(visible bool) string {
	if visible {
		return AttrVisibleTypeAnnotations
	}
	return AttrInvisibleTypeAnnotations
}

func (a *attrs) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	return a.newAnnotation(desc, func(b []byte) { list(a.tables, annotationsAttr(visible)).add(b) }), nil
}

func (a *attrs) VisitParameterAnnotation(param int, desc string, visible bool) (AnnotationVisitor, error) {
	if param < 0 || param > 255 {
		return nil, fmt.Errorf("parameter index %d out of range", param)
	}
	return a.newAnnotation(desc, func(b []byte) {
		m := a.params[visible]
		l, ok := m[param]
		if !ok {
			l = &annotationList{}
			m[param] = l
		}
		l.add(b)
	}), nil
}

func (a *attrs) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	name := typeAnnotationsAttr(visible)
	tw := &typeAnnotationWriter{desc: desc}
	tw.annotationWriter = annotationWriter{pool: a.pool, named: true}
	tw.place = func(k target.Kind, b []byte) {
		if isCodeKind(k) {
			list(a.code, name).add(b)
			return
		}
		list(a.tables, name).add(b)
	}
	return tw, nil
}

func (a *attrs) VisitAnnotationDefault() (AnnotationVisitor, error) {
	return &annotationWriter{pool: a.pool, bare: true, done: func(b []byte) error {
		a.def = b
		return nil
	}}, nil
}

func (a *attrs) VisitAttribute(attr Attribute) error {
	a.raw = append(a.raw, attr)
	return nil
}

func (a *attrs) VisitCode(c Code) error {
	a.body = &c
	return nil
}

func (a *attrs) newAnnotation(desc string, done func([]byte)) *annotationWriter {
	var head output
	head.u2(a.pool.AddUtf8(desc))
	return &annotationWriter{pool: a.pool, named: true, done: func(body []byte) error {
		done(append(head.b, body...))
		return nil
	}}
}

func isCodeKind(k target.Kind) bool { return k >= target.LocalVariable && k != target.Declaration }

var tableOrder = []string{
	AttrVisibleAnnotations, AttrInvisibleAnnotations,
	AttrVisibleTypeAnnotations, AttrInvisibleTypeAnnotations,
}

// write emits the attribute table. desc is the method descriptor, empty for
// classes and fields.
func (a *attrs) write(o *output, desc string) error {
	var out []Attribute
	if a.body != nil {
		b, err := a.codeBytes()
		if err != nil {
			return err
		}
		out = append(out, Attribute{Name: AttrCode, Data: b})
	} else if len(a.code) > 0 {
		return errors.New("type annotations on code positions but the method has no code")
	}
	out = append(out, a.raw...)
	for _, name := range tableOrder {
		if l, ok := a.tables[name]; ok && l.n > 0 {
			out = append(out, Attribute{Name: name, Data: l.bytes()})
		}
	}
	for _, visible := range []bool{true, false} {
		m := a.params[visible]
		if len(m) == 0 {
			continue
		}
		n := ParameterCount(desc)
		for p := range m {
			n = max(n, p+1)
		}
		var po output
		po.u1(n)
		for p := range n {
			if l, ok := m[p]; ok {
				po.raw(l.bytes())
			} else {
				po.u2(0)
			}
		}
		name := AttrInvisibleParameterAnnotations
		if visible {
			name = AttrVisibleParameterAnnotations
		}
		out = append(out, Attribute{Name: name, Data: po.b})
	}
	if a.def != nil {
		out = append(out, Attribute{Name: AttrAnnotationDefault, Data: a.def})
	}
	return writeAttributes(o, a.pool, out)
}

func (a *attrs) codeBytes() ([]byte, error) {
	c := a.body
	var o output
	o.u2(c.MaxStack)
	o.u2(c.MaxLocals)
	o.u4(uint32(len(c.Bytecode)))
	o.raw(c.Bytecode)
	if len(c.Exceptions)%8 != 0 {
		return nil, fmt.Errorf("exception table of %d bytes", len(c.Exceptions))
	}
	o.u2(len(c.Exceptions) / 8)
	o.raw(c.Exceptions)
	sub := append([]Attribute(nil), c.Attributes...)
	for _, name := range tableOrder[2:] {
		if l, ok := a.code[name]; ok && l.n > 0 {
			sub = append(sub, Attribute{Name: name, Data: l.bytes()})
		}
	}
	if err := writeAttributes(&o, a.pool, sub); err != nil {
		return nil, err
	}
	return o.b, nil
}

func writeAttributes(o *output, p *Pool, list []Attribute) error {
	o.u2(len(list))
	for _, at := range list {
		if uint64(len(at.Data)) > 0xFFFFFFFF {
			return fmt.Errorf("attribute %s too large", at.Name)
		}
		o.u2(p.AddUtf8(at.Name))
		o.u4(uint32(len(at.Data)))
		o.raw(at.Data)
	}
	return nil
}

type memberWriter struct {
	attrs
	m    Member
	done func([]byte)
}

func (w *memberWriter) VisitEnd() error {
	var o output
	o.u2(w.m.Access)
	o.u2(w.pool.AddUtf8(w.m.Name))
	o.u2(w.pool.AddUtf8(w.m.Descriptor))
	desc := ""
	if strings.HasPrefix(w.m.Descriptor, "(") {
		desc = w.m.Descriptor
	}
	if err := w.attrs.write(&o, desc); err != nil {
		return fmt.Errorf("%s%s: %w", w.m.Name, w.m.Descriptor, err)
	}
	w.done(o.b)
	return nil
}

// ParameterCount counts the parameters of a method descriptor.
func ParameterCount(desc string) int {
	if !strings.HasPrefix(desc, "(") {
		return 0
	}
	n := 0
	for i := 1; i < len(desc) && desc[i] != ')'; i++ {
		for i < len(desc) && desc[i] == '[' {
			i++
		}
		if i >= len(desc) {
			break
		}
		if desc[i] == 'L' {
			for i < len(desc) && desc[i] != ';' {
				i++
			}
		}
		n++
	}
	return n
}

// annotationWriter encodes element values. Named writers produce
// element_value_pairs, unnamed ones the values of an array, and bare ones
// the single value of AnnotationDefault.
type annotationWriter struct {
	pool  *Pool
	named bool
	bare  bool
	n     int
	buf   output
	ended bool
	done  func(body []byte) error
}

func (a *annotationWriter) begin(name string) error {
	if a.ended {
		return fmt.Errorf("value %q after end", name)
	}
	if a.bare && a.n > 0 {
		return errors.New("annotation default takes one value")
	}
	if a.named {
		a.buf.u2(a.pool.AddUtf8(name))
	}
	a.n++
	return nil
}

func (a *annotationWriter) Scalar(name string, v annotation.Value) error {
	if err := a.begin(name); err != nil {
		return err
	}
	p := a.pool
	switch v := v.(type) {
	case annotation.BoolValue:
		b := int32(0)
		if v {
			b = 1
		}
		a.constant('Z', p.AddInt(b))
	case annotation.ByteValue:
		a.constant('B', p.AddInt(int32(v)))
	case annotation.CharValue:
		a.constant('C', p.AddInt(int32(v)))
	case annotation.ShortValue:
		a.constant('S', p.AddInt(int32(v)))
	case annotation.IntValue:
		a.constant('I', p.AddInt(int32(v)))
	case annotation.LongValue:
		a.constant('J', p.AddLong(int64(v)))
	case annotation.FloatValue:
		a.constant('F', p.AddFloat(float32(v)))
	case annotation.DoubleValue:
		a.constant('D', p.AddDouble(float64(v)))
	case annotation.StringValue:
		a.constant('s', p.AddUtf8(string(v)))
	case annotation.ClassValue:
		a.constant('c', p.AddUtf8(annotation.Descriptor(annotation.TypeName(string(v)))))
	default:
		return fmt.Errorf("%q: %T is not a constant value", name, v)
	}
	return nil
}

func (a *annotationWriter) constant(tag byte, idx int) {
	a.buf.u1(int(tag))
	a.buf.u2(idx)
}

func (a *annotationWriter) Enum(name, desc, constant string) error {
	if err := a.begin(name); err != nil {
		return err
	}
	a.buf.u1('e')
	a.buf.u2(a.pool.AddUtf8(desc))
	a.buf.u2(a.pool.AddUtf8(constant))
	return nil
}

func (a *annotationWriter) Nested(name, desc string) (AnnotationVisitor, error) {
	if err := a.begin(name); err != nil {
		return nil, err
	}
	a.buf.u1('@')
	a.buf.u2(a.pool.AddUtf8(desc))
	return a.child(true), nil
}

func (a *annotationWriter) Array(name string) (AnnotationVisitor, error) {
	if err := a.begin(name); err != nil {
		return nil, err
	}
	a.buf.u1('[')
	return a.child(false), nil
}

// child writes into a's buffer when it ends; it must end before a receives
// another value.
func (a *annotationWriter) child(named bool) *annotationWriter {
	return &annotationWriter{pool: a.pool, named: named, done: func(body []byte) error {
		a.buf.raw(body)
		return nil
	}}
}

func (a *annotationWriter) body() []byte {
	if a.bare {
		return a.buf.b
	}
	var o output
	o.u2(a.n)
	o.raw(a.buf.b)
	return o.b
}

func (a *annotationWriter) End() error {
	if a.ended {
		return errors.New("annotation ended twice")
	}
	a.ended = true
	if a.bare && a.n != 1 {
		return errors.New("annotation default takes one value")
	}
	return a.done(a.body())
}

// typeAnnotationWriter buffers position calls and emits the type_annotation
// structure on End.
type typeAnnotationWriter struct {
	annotationWriter
	target.Accumulator
	desc  string
	place func(target.Kind, []byte)
}

func (t *typeAnnotationWriter) End() error {
	if t.ended {
		return errors.New("type annotation ended twice")
	}
	t.ended = true
	ref, err := t.Resolve()
	if err != nil {
		return fmt.Errorf("@%s: %w", t.desc, err)
	}
	var o output
	if err := writeTypeRef(&o, ref); err != nil {
		return fmt.Errorf("@%s: %w", t.desc, err)
	}
	o.u2(t.pool.AddUtf8(t.desc))
	o.raw(t.body())
	t.place(ref.Target.Kind(), o.b)
	return nil
}

func writeTypeRef(o *output, ref target.TypeRef) error {
	o.u1(int(ref.Target.Kind()))
	switch t := ref.Target.(type) {
	case target.TypeParameterTarget:
		o.u1(t.Param)
	case target.SupertypeTarget:
		if t.Index < 0 {
			o.u2(0xFFFF)
		} else {
			o.u2(t.Index)
		}
	case target.BoundTarget:
		o.u1(t.Param)
		o.u1(t.Bound)
	case target.EmptyTarget:
	case target.FormalParameterTarget:
		o.u1(t.Param)
	case target.ThrowsTarget:
		o.u2(t.Index)
	case target.LocalVarTarget:
		o.u2(1)
		o.u2(t.Start)
		o.u2(t.Length)
		o.u2(t.Index)
	case target.CatchTarget:
		o.u2(t.Index)
	case target.OffsetTarget:
		o.u2(t.Offset)
	case target.TypeArgumentTarget:
		o.u2(t.Offset)
		o.u1(t.TypeArg)
	default:
		return fmt.Errorf("cannot encode %s target", ref.Target.Kind())
	}
	steps := ref.Path.Steps()
	if len(steps) > 255 {
		return fmt.Errorf("type path of %d steps", len(steps))
	}
	o.u1(len(steps))
	for _, s := range steps {
		o.u1(int(s.Kind))
		o.u1(int(s.Arg))
	}
	return nil
}

// Pool returns the constant pool the writer extends.
func (w *Writer) Pool() *Pool { return w.pool }
