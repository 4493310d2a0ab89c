package location

import (
	"fmt"
	"strconv"
	"strings"
)

// StepKind is the type_path_kind of JVMS 4.7.20.2.
type StepKind uint8

const (
	StepArray        StepKind = 0 // deeper in an array type
	StepNested       StepKind = 1 // deeper in a nested type
	StepWildcard     StepKind = 2 // on the bound of a wildcard
	StepTypeArgument StepKind = 3 // on a type argument of a parameterized type
)

// Step moves from a type to one of its component types. Arg is the type
// argument index for StepTypeArgument and zero otherwise.
type Step struct {
	Kind StepKind
	Arg  uint8
}

func (s Step) String() string {
	switch s.Kind {
	case StepArray:
		return "[]"
	case StepNested:
		return "."
	case StepWildcard:
		return "*"
	}
	return strconv.Itoa(int(s.Arg))
}

// TypePath locates a component of a possibly nested generic or array type.
// The empty TypePath is the type itself. TypePath is comparable: two paths
// with the same steps are ==.
type TypePath struct {
	enc string
}

// Path builds a TypePath from steps.
func Path(steps ...Step) TypePath {
	var b strings.Builder
	for _, s := range steps {
		b.WriteByte(byte(s.Kind))
		b.WriteByte(s.Arg)
	}
	return TypePath{enc: b.String()}
}

// Args builds a path made only of type-argument steps, so Args(1, 0) is the
// first argument of the second argument, e.g. Integer in
// Map<String, List<Integer>>. It panics on an index outside 0-255.
func Args(args ...int) TypePath {
	steps := make([]Step, len(args))
	for i, a := range args {
		s, err := NewStep(int(StepTypeArgument), a)
		if err != nil {
			panic("location.Args: " + err.Error())
		}
		steps[i] = s
	}
	return Path(steps...)
}

// Len is the number of steps.
func (p TypePath) Len() int { return len(p.enc) / 2 }

// IsEmpty reports whether p addresses the outermost type.
func (p TypePath) IsEmpty() bool { return p.enc == "" }

// Step returns the i-th step.
func (p TypePath) Step(i int) Step {
	return Step{Kind: StepKind(p.enc[2*i]), Arg: p.enc[2*i+1]}
}

// Steps returns a copy of the steps.
func (p TypePath) Steps() []Step {
	out := make([]Step, p.Len())
	for i := range out {
		out[i] = p.Step(i)
	}
	return out
}

// Append returns p extended by steps.
func (p TypePath) Append(steps ...Step) TypePath {
	return TypePath{enc: p.enc + Path(steps...).enc}
}

// String spells the path as in index files: "1, 0", "[], 2".
func (p TypePath) String() string {
	parts := make([]string, p.Len())
	for i := range parts {
		parts[i] = p.Step(i).String()
	}
	return strings.Join(parts, ", ")
}

// ParseStep reads one index-file step spelling.
func ParseStep(s string) (Step, error) {
	switch s {
	case "[]":
		return Step{Kind: StepArray}, nil
	case ".":
		return Step{Kind: StepNested}, nil
	case "*":
		return Step{Kind: StepWildcard}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return Step{}, fmt.Errorf("invalid type path step %q", s)
	}
	return Step{Kind: StepTypeArgument, Arg: uint8(n)}, nil
}

// NewStep validates a raw (kind, arg) pair as read from a class file.
func NewStep(kind, arg int) (Step, error) {
	if kind < int(StepArray) || kind > int(StepTypeArgument) {
		return Step{}, fmt.Errorf("invalid type path kind %d", kind)
	}
	if arg < 0 || arg > 255 || (StepKind(kind) != StepTypeArgument && arg != 0) {
		return Step{}, fmt.Errorf("invalid type argument index %d for path kind %d", arg, kind)
	}
	return Step{Kind: StepKind(kind), Arg: uint8(arg)}, nil
}
