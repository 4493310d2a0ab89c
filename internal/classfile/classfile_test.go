package classfile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
	"github.com/funvibe/annoscene/internal/target"
)

// recorder flattens visitor calls into lines for comparison.
type recorder struct {
	lines []string
}

func (r *recorder) add(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

type recClass struct {
	ClassAdapter
	r *recorder
}

func (c recClass) Visit(h Header) error {
	c.r.add("class %s extends %s implements %s", h.Name, h.Super, strings.Join(h.Interfaces, ","))
	return nil
}

func (c recClass) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	c.r.add("annotation %s %t", desc, visible)
	return &recAnno{r: c.r}, nil
}

func (c recClass) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	c.r.add("type-annotation %s %t", desc, visible)
	return &recAnno{r: c.r}, nil
}

func (c recClass) VisitAttribute(a Attribute) error {
	c.r.add("attribute %s %d", a.Name, len(a.Data))
	return nil
}

func (c recClass) VisitField(m Member) (FieldVisitor, error) {
	c.r.add("field %s %s", m.Name, m.Descriptor)
	return &recMember{r: c.r}, nil
}

func (c recClass) VisitMethod(m Member) (MethodVisitor, error) {
	c.r.add("method %s%s", m.Name, m.Descriptor)
	return &recMember{r: c.r}, nil
}

func (c recClass) VisitEnd() error {
	c.r.add("end class")
	return nil
}

type recMember struct {
	MethodAdapter
	r *recorder
}

func (m *recMember) VisitAnnotation(desc string, visible bool) (AnnotationVisitor, error) {
	m.r.add("annotation %s %t", desc, visible)
	return &recAnno{r: m.r}, nil
}

func (m *recMember) VisitTypeAnnotation(desc string, visible bool) (TypeAnnotationVisitor, error) {
	m.r.add("type-annotation %s %t", desc, visible)
	return &recAnno{r: m.r}, nil
}

func (m *recMember) VisitParameterAnnotation(p int, desc string, visible bool) (AnnotationVisitor, error) {
	m.r.add("parameter %d annotation %s %t", p, desc, visible)
	return &recAnno{r: m.r}, nil
}

func (m *recMember) VisitAnnotationDefault() (AnnotationVisitor, error) {
	m.r.add("default")
	return &recAnno{r: m.r}, nil
}

func (m *recMember) VisitCode(c Code) error {
	m.r.add("code %d bytes, %d handlers", len(c.Bytecode), len(c.Exceptions)/8)
	return nil
}

func (m *recMember) VisitEnd() error {
	m.r.add("end member")
	return nil
}

type recAnno struct {
	r *recorder
}

func (a *recAnno) Scalar(name string, v annotation.Value) error {
	a.r.add("  %s = %T(%v)", name, v, v)
	return nil
}

func (a *recAnno) Enum(name, desc, c string) error {
	a.r.add("  %s = %s.%s", name, desc, c)
	return nil
}

func (a *recAnno) Nested(name, desc string) (AnnotationVisitor, error) {
	a.r.add("  %s = @%s", name, desc)
	return a, nil
}

func (a *recAnno) Array(name string) (AnnotationVisitor, error) {
	a.r.add("  %s = [", name)
	return a, nil
}

func (a *recAnno) End() error {
	a.r.add("  end")
	return nil
}

func (a *recAnno) TargetType(k target.Kind)   { a.r.add("  target %s", k) }
func (a *recAnno) Index(v int)                { a.r.add("  index %d", v) }
func (a *recAnno) Length(v int)               { a.r.add("  length %d", v) }
func (a *recAnno) StartOffset(v int)          { a.r.add("  start %d", v) }
func (a *recAnno) Offset(v int)               { a.r.add("  offset %d", v) }
func (a *recAnno) TypePathLength(n int)       { a.r.add("  path length %d", n) }
func (a *recAnno) TypePathStep(kind, arg int) { a.r.add("  step %d %d", kind, arg) }
func (a *recAnno) ParamIndex(v int)           { a.r.add("  param %d", v) }
func (a *recAnno) BoundIndex(v int)           { a.r.add("  bound %d", v) }
func (a *recAnno) TypeArgIndex(v int)         { a.r.add("  type arg %d", v) }

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// buildFixture writes a small class exercising every annotation attribute.
func buildFixture(t *testing.T) []byte {
	t.Helper()
	w := NewWriter(nil)
	must(t, w.Visit(Header{Major: 61, Access: 0x21, Name: "p/C", Super: "java/lang/Object", Interfaces: []string{"java/io/Serializable"}}))

	av, err := w.VisitAnnotation("Lp/A;", true)
	must(t, err)
	must(t, av.Scalar("n", annotation.IntValue(7)))
	must(t, av.Scalar("s", annotation.StringValue("hi\x00")))
	must(t, av.Enum("e", "Lp/E;", "ON"))
	arr, err := av.Array("xs")
	must(t, err)
	must(t, arr.Scalar("", annotation.LongValue(1)))
	must(t, arr.Scalar("", annotation.LongValue(2)))
	must(t, arr.End())
	nested, err := av.Nested("inner", "Lp/B;")
	must(t, err)
	must(t, nested.Scalar("c", annotation.ClassValue("java.lang.String[]")))
	must(t, nested.End())
	must(t, av.End())

	fv, err := w.VisitField(Member{Name: "f", Descriptor: "Ljava/util/Map;"})
	must(t, err)
	tv, err := fv.VisitTypeAnnotation("Lp/T;", false)
	must(t, err)
	must(t, tv.Scalar("ok", annotation.BoolValue(true)))
	target.Emit(target.TypeRef{Target: target.EmptyTarget{K: target.Field}, Path: location.Args(1, 0)}, tv)
	must(t, tv.End())
	must(t, fv.VisitEnd())

	mv, err := w.VisitMethod(Member{Access: 1, Name: "m", Descriptor: "(ILjava/lang/String;)V"})
	must(t, err)
	must(t, mv.VisitCode(Code{MaxStack: 1, MaxLocals: 3, Bytecode: []byte{0xB1}}))
	pv, err := mv.VisitParameterAnnotation(1, "Lp/A;", true)
	must(t, err)
	must(t, pv.End())
	tv, err = mv.VisitTypeAnnotation("Lp/T;", true)
	must(t, err)
	target.Emit(target.TypeRef{Target: target.LocalVarTarget{K: target.LocalVariable, Index: 2, Start: 0, Length: 1}}, tv)
	must(t, tv.End())
	tv, err = mv.VisitTypeAnnotation("Lp/T;", true)
	must(t, err)
	target.Emit(target.TypeRef{Target: target.EmptyTarget{K: target.MethodReturn}}, tv)
	must(t, tv.End())
	must(t, mv.VisitEnd())

	mv, err = w.VisitMethod(Member{Access: 0x401, Name: "v", Descriptor: "()I"})
	must(t, err)
	dv, err := mv.VisitAnnotationDefault()
	must(t, err)
	must(t, dv.Scalar("", annotation.IntValue(3)))
	must(t, dv.End())
	must(t, mv.VisitEnd())

	must(t, w.VisitEnd())
	b, err := w.Bytes()
	must(t, err)
	return b
}

func TestWriteThenRead(t *testing.T) {
	r, err := NewReader(buildFixture(t))
	must(t, err)
	rec := &recorder{}
	must(t, r.Accept(recClass{r: rec}))

	want := []string{
		"class p/C extends java/lang/Object implements java/io/Serializable",
		"field f Ljava/util/Map;",
		"type-annotation Lp/T; false",
		"  target field",
		"  path length 2",
		"  step 3 1",
		"  step 3 0",
		"  ok = annotation.BoolValue(true)",
		"  end",
		"end member",
		"method m(ILjava/lang/String;)V",
		"code 1 bytes, 0 handlers",
		"type-annotation Lp/T; true",
		"  target local variable",
		"  index 2",
		"  start 0",
		"  length 1",
		"  path length 0",
		"  end",
		"type-annotation Lp/T; true",
		"  target method return",
		"  path length 0",
		"  end",
		"parameter 1 annotation Lp/A; true",
		"  end",
		"end member",
		"method v()I",
		"default",
		"   = annotation.IntValue(3)",
		"  end",
		"end member",
		"annotation Lp/A; true",
		"  n = annotation.IntValue(7)",
		"  s = annotation.StringValue(hi\x00)",
		"  e = Lp/E;.ON",
		"  xs = [",
		"   = annotation.LongValue(1)",
		"   = annotation.LongValue(2)",
		"  end",
		"  inner = @Lp/B;",
		"  c = annotation.ClassValue([Ljava/lang/String;)",
		"  end",
		"  end",
		"end class",
	}
	if diff := cmp.Diff(want, rec.lines); diff != "" {
		t.Fatalf("visit sequence (-want +got):\n%s", diff)
	}
}

func TestIdentityRewriteKeepsBytes(t *testing.T) {
	src := buildFixture(t)
	r, err := NewReader(src)
	must(t, err)
	w := NewWriter(r)
	must(t, r.Accept(w))
	out, err := w.Bytes()
	must(t, err)
	if !bytes.Equal(src, out) {
		t.Fatalf("rewrite changed the class: %d bytes in, %d out", len(src), len(out))
	}
}

func TestRawAttributeSurvivesRewrite(t *testing.T) {
	w := NewWriter(nil)
	must(t, w.Visit(Header{Major: 61, Name: "p/S", Super: "java/lang/Object"}))
	var data output
	data.u2(w.Pool().AddUtf8("S.java"))
	must(t, w.VisitAttribute(Attribute{Name: "SourceFile", Data: data.b}))
	must(t, w.VisitEnd())
	b, err := w.Bytes()
	must(t, err)

	r, err := NewReader(b)
	must(t, err)
	w2 := NewWriter(r)
	// adding an annotation grows the pool but keeps old indices
	must(t, r.Accept(addAnnotation{ClassAdapter{Next: w2}}))
	out, err := w2.Bytes()
	must(t, err)

	r2, err := NewReader(out)
	must(t, err)
	var got []Attribute
	must(t, r2.Accept(attrCollector{&got}))
	if len(got) != 1 || got[0].Name != "SourceFile" {
		t.Fatalf("attributes after rewrite: %+v", got)
	}
	in := &input{b: got[0].Data}
	name, err := r2.Pool().Utf8(in.u2())
	must(t, err)
	if name != "S.java" {
		t.Errorf("SourceFile points at %q", name)
	}
}

type addAnnotation struct{ ClassAdapter }

func (a addAnnotation) VisitEnd() error {
	av, err := a.Next.VisitAnnotation("Lp/New;", false)
	if err != nil {
		return err
	}
	if err := av.Scalar("v", annotation.StringValue("fresh constant")); err != nil {
		return err
	}
	if err := av.End(); err != nil {
		return err
	}
	return a.Next.VisitEnd()
}

type attrCollector struct{ out *[]Attribute }

func (c attrCollector) Visit(Header) error { return nil }
func (c attrCollector) VisitAnnotation(string, bool) (AnnotationVisitor, error) {
	return nil, nil
}
func (c attrCollector) VisitTypeAnnotation(string, bool) (TypeAnnotationVisitor, error) {
	return nil, nil
}
func (c attrCollector) VisitAttribute(a Attribute) error {
	*c.out = append(*c.out, a)
	return nil
}
func (c attrCollector) VisitField(Member) (FieldVisitor, error)   { return nil, nil }
func (c attrCollector) VisitMethod(Member) (MethodVisitor, error) { return nil, nil }
func (c attrCollector) VisitEnd() error                           { return nil }

func TestTruncatedClassIsFormatError(t *testing.T) {
	src := buildFixture(t)
	for _, n := range []int{3, 9, len(src) / 2, len(src) - 1} {
		r, err := NewReader(src[:n])
		if err == nil {
			err = r.Accept(ClassAdapter{})
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("cut at %d: expected *FormatError, got %v", n, err)
		}
	}
}

func TestUnknownTargetTypeRejected(t *testing.T) {
	w := NewWriter(nil)
	must(t, w.Visit(Header{Major: 61, Name: "p/C", Super: "java/lang/Object"}))
	var body output
	body.u2(1)    // one annotation
	body.u1(0x30) // not a target type
	must(t, w.VisitAttribute(Attribute{Name: AttrVisibleTypeAnnotations, Data: body.b}))
	must(t, w.VisitEnd())
	b, err := w.Bytes()
	must(t, err)
	r, err := NewReader(b)
	must(t, err)
	err = r.Accept(ClassAdapter{})
	var fe *FormatError
	if !errors.As(err, &fe) || !strings.Contains(fe.Msg, "target type 0x30") {
		t.Fatalf("expected target type error, got %v", err)
	}
}

func TestModifiedUTF8(t *testing.T) {
	s := "a\x00bé\U0001F600"
	enc := encodeMUTF8(s)
	if bytes.IndexByte(enc, 0) >= 0 {
		t.Errorf("encoded form contains a NUL byte: % x", enc)
	}
	if !bytes.Contains(enc, []byte{0xC0, 0x80}) {
		t.Errorf("NUL not encoded as C0 80: % x", enc)
	}
	if bytes.Contains(enc, []byte{0xF0}) {
		t.Errorf("supplementary character not split into surrogates: % x", enc)
	}
	got, ok := decodeMUTF8(enc)
	if !ok || got != s {
		t.Fatalf("round trip: %q, %v", got, ok)
	}
	if _, ok := decodeMUTF8([]byte{0x00}); ok {
		t.Errorf("raw NUL must be rejected")
	}
}

func TestParameterCount(t *testing.T) {
	tests := map[string]int{
		"()V":                      0,
		"(I)V":                     1,
		"(IJ[Ljava/lang/String;)V": 3,
		"([[D[Lp/A;Lp/B;Z)Lp/C;":   4,
		"Ljava/lang/String;":       0,
		"(Ljava/util/Map;[I":       2,
	}
	for desc, want := range tests {
		if got := ParameterCount(desc); got != want {
			t.Errorf("ParameterCount(%q) = %d, want %d", desc, got, want)
		}
	}
}
