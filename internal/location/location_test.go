package location

import "testing"

func TestKeysCompareStructurally(t *testing.T) {
	m := map[any]int{}
	m[Bound(0, 1)] = 1
	m[Local(2, 0, 10)] = 2
	m[Offset(7).WithTypeArg(1)] = 3
	m[Args(1, 0)] = 4

	if m[Bound(0, 1)] != 1 || m[Local(2, 0, 10)] != 2 || m[Offset(7).WithTypeArg(1)] != 3 || m[Args(1, 0)] != 4 {
		t.Fatalf("equal keys did not hit the same entries: %v", m)
	}
	if _, ok := m[Offset(7)]; ok {
		t.Errorf("Offset(7) must differ from Offset(7) with a type argument")
	}
}

func TestTypeParameterBound(t *testing.T) {
	if !TypeParameter(3).IsTypeParameter() {
		t.Errorf("TypeParameter(3) should address the declaration")
	}
	if Bound(3, 0).IsTypeParameter() {
		t.Errorf("Bound(3, 0) addresses a bound")
	}
}

func TestTypePathSpelling(t *testing.T) {
	p := Path(Step{Kind: StepArray}, Step{Kind: StepTypeArgument, Arg: 2}, Step{Kind: StepWildcard}, Step{Kind: StepNested})
	if got, want := p.String(), "[], 2, *, ."; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	var steps []Step
	for _, s := range []string{"[]", "2", "*", "."} {
		st, err := ParseStep(s)
		if err != nil {
			t.Fatal(err)
		}
		steps = append(steps, st)
	}
	if Path(steps...) != p {
		t.Errorf("parsed path differs from built path")
	}
	if p.Len() != 4 || p.Step(1).Arg != 2 {
		t.Errorf("unexpected steps %v", p.Steps())
	}
}

func TestNewStepRejectsBadPairs(t *testing.T) {
	for _, pair := range [][2]int{{4, 0}, {0, 1}, {3, 256}, {-1, 0}} {
		if _, err := NewStep(pair[0], pair[1]); err == nil {
			t.Errorf("NewStep(%d, %d) should fail", pair[0], pair[1])
		}
	}
}

func TestArgsRejectsOutOfRange(t *testing.T) {
	if got := Args(255).Step(0).Arg; got != 255 {
		t.Fatalf("Args(255) step arg = %d", got)
	}
	for _, a := range []int{256, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Args(%d) should panic", a)
				}
			}()
			Args(0, a)
		}()
	}
}

func TestRelativeLocationForms(t *testing.T) {
	if got := Offset(12).String(); got != "#12" {
		t.Errorf("got %q", got)
	}
	if got := SourceIndex(3).WithTypeArg(0).String(); got != "*3, 0" {
		t.Errorf("got %q", got)
	}
	if got := NamedLocal("i", 1).String(); got != "i *1" {
		t.Errorf("got %q", got)
	}
}
