package scene

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/annoscene/internal/annotation"
	"github.com/funvibe/annoscene/internal/location"
)

func marker(t *testing.T, name string) *annotation.Annotation {
	t.Helper()
	return annotation.New(annotation.NewDef(name))
}

func withValue(t *testing.T, name, field string, v annotation.Value) *annotation.Annotation {
	t.Helper()
	d := annotation.NewDef(name)
	if err := d.AddField(field, v.Kind()); err != nil {
		t.Fatal(err)
	}
	a := annotation.New(d)
	if err := a.Set(field, v); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestTableKeepsVivifyOrder(t *testing.T) {
	s := New()
	for _, name := range []string{"p.Zeta", "p.Alpha", "p.Mid", "p.Alpha"} {
		s.Classes.Vivify(name)
	}
	want := []string{"p.Zeta", "p.Alpha", "p.Mid"}
	if diff := cmp.Diff(want, s.Classes.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if s.Classes.Vivify("p.Mid") != s.Classes.Vivify("p.Mid") {
		t.Errorf("vivify must return the same element for the same key")
	}
}

func TestDuplicateAnnotationRejected(t *testing.T) {
	e := NewElement()
	if err := e.Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}
	err := e.Add(marker(t, "p.A"))
	var dup *DuplicateAnnotationError
	if !errors.As(err, &dup) || dup.Name != "p.A" {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestEqualIgnoresEmptyVivifiedEntries(t *testing.T) {
	a, b := New(), New()
	c := a.Classes.Vivify("p.C")
	if err := c.Fields.Vivify("f").Type.At(location.Args(1, 0)).Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}
	a.Classes.Vivify("p.Empty").Methods.Vivify("m()V")

	if err := b.Classes.Vivify("p.C").Fields.Vivify("f").Type.At(location.Args(1, 0)).Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}
	if !Equal(a, b) {
		t.Fatalf("scenes should be equal")
	}

	if err := b.Classes.Vivify("p.C").Fields.Vivify("f").Add(marker(t, "p.B")); err != nil {
		t.Fatal(err)
	}
	if Equal(a, b) {
		t.Fatalf("scenes differ in a field annotation")
	}
}

func TestPruneDropsEmptyEntries(t *testing.T) {
	s := New()
	s.Classes.Vivify("p.Empty").Fields.Vivify("x")
	m := s.Classes.Vivify("p.C").Methods.Vivify("m()V")
	m.Body.Locals.Vivify(location.Local(1, 0, 4))
	if err := m.Return.Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}

	s.Prune()
	if diff := cmp.Diff([]string{"p.C"}, s.Classes.Keys()); diff != "" {
		t.Fatalf("classes after prune (-want +got):\n%s", diff)
	}
	if m.Body.Locals.Len() != 0 {
		t.Errorf("empty local survived prune")
	}
}

func TestMergeCombinesScenes(t *testing.T) {
	a, b := New(), New()
	if err := a.Classes.Vivify("p.C").Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}
	if err := b.Classes.Vivify("p.C").Add(marker(t, "p.A")); err != nil {
		t.Fatal(err)
	}
	if err := b.Classes.Vivify("p.D").Add(marker(t, "p.B")); err != nil {
		t.Fatal(err)
	}
	if err := Merge(a, b); err != nil {
		t.Fatal(err)
	}
	if a.Classes.Len() != 2 {
		t.Fatalf("expected both classes, got %v", a.Classes.Keys())
	}

	c := New()
	if err := c.Classes.Vivify("p.C").Add(withValue(t, "p.A", "value", annotation.IntValue(1))); err != nil {
		t.Fatal(err)
	}
	var dup *DuplicateAnnotationError
	if err := Merge(a, c); !errors.As(err, &dup) {
		t.Fatalf("expected conflict on differing @p.A, got %v", err)
	}
}

func TestFailedMergeLeavesTargetUnchanged(t *testing.T) {
	dst := New()
	if err := dst.Classes.Vivify("p.C").Fields.Vivify("z").Add(withValue(t, "p.A", "v", annotation.IntValue(1))); err != nil {
		t.Fatal(err)
	}

	src := New()
	if err := src.Classes.Vivify("p.B").Add(withValue(t, "p.A", "v", annotation.IntValue(7))); err != nil {
		t.Fatal(err)
	}
	if err := src.Classes.Vivify("p.C").Add(marker(t, "p.M")); err != nil {
		t.Fatal(err)
	}
	if err := src.Classes.Vivify("p.C").Fields.Vivify("z").Add(withValue(t, "p.A", "v", annotation.IntValue(2))); err != nil {
		t.Fatal(err)
	}

	var dup *DuplicateAnnotationError
	if err := Merge(dst, src); !errors.As(err, &dup) {
		t.Fatalf("expected conflict on p.C.z, got %v", err)
	}
	if diff := cmp.Diff([]string{"p.C"}, dst.Classes.Keys()); diff != "" {
		t.Errorf("classes after failed merge (-want +got):\n%s", diff)
	}
	c, _ := dst.Classes.Get("p.C")
	if c.Lookup("p.M") != nil {
		t.Error("annotation from the failed merge was kept")
	}
	if _, ok := c.Fields.Get("z"); !ok || c.Fields.Len() != 1 {
		t.Errorf("fields after failed merge: %v", c.Fields.Keys())
	}
}

func emptyArray(t *testing.T, name string) *annotation.Annotation {
	t.Helper()
	b := annotation.NewLearningBuilder(name)
	ab, err := b.Array("xs")
	if err != nil {
		t.Fatal(err)
	}
	if err := ab.End(); err != nil {
		t.Fatal(err)
	}
	a, err := b.End()
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestCollectDefsUnifiesEmptyArrays(t *testing.T) {
	s := New()
	c := s.Classes.Vivify("p.C")
	if err := c.Fields.Vivify("a").Add(emptyArray(t, "p.Bar")); err != nil {
		t.Fatal(err)
	}
	ints := annotation.ArrayValue{Elem: annotation.Int, Items: []annotation.Value{annotation.IntValue(1)}}
	if err := c.Fields.Vivify("b").Add(withValue(t, "p.Bar", "xs", ints)); err != nil {
		t.Fatal(err)
	}

	reg, err := CollectDefs(s)
	if err != nil {
		t.Fatal(err)
	}
	d, err := reg.Lookup("p.Bar")
	if err != nil || d == nil {
		t.Fatalf("p.Bar not collected: %v", err)
	}
	if k, _ := d.Field("xs"); !k.Equal(annotation.ArrayOf(annotation.Int)) {
		t.Errorf("xs unified to %s, want int[]", k)
	}
	if k, _ := c.Fields.Vivify("a").Lookup("p.Bar").Def.Field("xs"); !k.Elem().IsUnknown() {
		t.Errorf("collecting must not modify the scene's definitions")
	}
}

func TestCollectDefsReportsConflicts(t *testing.T) {
	s := New()
	c := s.Classes.Vivify("p.C")
	ints := annotation.ArrayValue{Elem: annotation.Int, Items: []annotation.Value{annotation.IntValue(1)}}
	strs := annotation.ArrayValue{Elem: annotation.String, Items: []annotation.Value{annotation.StringValue("x")}}
	if err := c.Fields.Vivify("a").Add(withValue(t, "p.Bar", "xs", ints)); err != nil {
		t.Fatal(err)
	}
	if err := c.Fields.Vivify("b").Add(withValue(t, "p.Bar", "xs", strs)); err != nil {
		t.Fatal(err)
	}
	_, err := CollectDefs(s)
	var conflict *annotation.DefConflictError
	if !errors.As(err, &conflict) || conflict.Name != "p.Bar" {
		t.Fatalf("expected conflict for p.Bar, got %v", err)
	}
}

func TestWalkVisitsInEmissionOrder(t *testing.T) {
	s := New()
	c := s.Classes.Vivify("p.C")
	m := c.Methods.Vivify("m(I)V")
	m.Body.Typecasts.Vivify(location.Offset(3))
	m.Body.News.Vivify(location.Offset(1))
	m.Body.Locals.Vivify(location.Local(1, 0, 4))
	m.Parameters.Vivify(0)
	m.Return.At(location.Args(0))
	c.Fields.Vivify("f")

	var got []string
	Walk(s, func(p Path, _ *AElement) bool {
		got = append(got, p.String())
		return true
	})
	want := []string{
		"class p.C",
		"class p.C > field f",
		"class p.C > field f > type",
		"class p.C > method m(I)V",
		"class p.C > method m(I)V > return",
		"class p.C > method m(I)V > return > inner-type 0",
		"class p.C > method m(I)V > local 1 #0+4",
		"class p.C > method m(I)V > local 1 #0+4 > type",
		"class p.C > method m(I)V > new #1",
		"class p.C > method m(I)V > parameter #0",
		"class p.C > method m(I)V > parameter #0 > type",
		"class p.C > method m(I)V > receiver",
		"class p.C > method m(I)V > receiver > type",
		"class p.C > method m(I)V > typecast #3",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("walk order (-want +got):\n%s", diff)
	}
}
