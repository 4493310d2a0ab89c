package target

import (
	"fmt"
	"strings"
)

// PosField is one piece of position data a type annotation can carry.
type PosField int

const (
	FieldIndex PosField = iota
	FieldLength
	FieldStartOffset
	FieldOffset
	FieldTypePath
	FieldTypePathLength
	FieldParamIndex
	FieldBoundIndex
	FieldTypeArgIndex
	numFields
)

var fieldNames = [numFields]string{
	"index", "length", "start offset", "offset", "type path",
	"type path length", "parameter index", "bound index", "type argument index",
}

func (f PosField) String() string { return fieldNames[f] }

// Rule says how often a field may appear for a kind.
type Rule int

const (
	Forbidden Rule = iota
	Required       // exactly once
	Optional       // at most once
	Repeated       // any number of times
)

func (r Rule) String() string {
	switch r {
	case Required:
		return "required exactly once"
	case Optional:
		return "allowed at most once"
	case Repeated:
		return "repeatable"
	}
	return "forbidden"
}

func (r Rule) admits(n int) bool {
	switch r {
	case Required:
		return n == 1
	case Optional:
		return n <= 1
	case Repeated:
		return true
	}
	return n == 0
}

// Spec gives the rule for every position field of one kind.
type Spec [numFields]Rule

// Counts records how many times each position field was seen.
type Counts [numFields]int

func spec(fields ...PosField) Spec {
	var s Spec
	s[FieldTypePathLength] = Required
	s[FieldTypePath] = Repeated
	for _, f := range fields {
		s[f] = Required
	}
	return s
}

var schema = map[Kind]Spec{
	ClassTypeParameter:                spec(FieldParamIndex),
	MethodTypeParameter:               spec(FieldParamIndex),
	ClassExtends:                      spec(FieldIndex),
	ClassTypeParameterBound:           spec(FieldParamIndex, FieldBoundIndex),
	MethodTypeParameterBound:          spec(FieldParamIndex, FieldBoundIndex),
	Field:                             spec(),
	MethodReturn:                      spec(),
	MethodReceiver:                    spec(),
	MethodFormalParameter:             spec(FieldParamIndex),
	Throws:                            spec(FieldIndex),
	LocalVariable:                     spec(FieldIndex, FieldStartOffset, FieldLength),
	ResourceVariable:                  spec(FieldIndex, FieldStartOffset, FieldLength),
	ExceptionParameter:                spec(FieldIndex),
	Instanceof:                        spec(FieldOffset),
	New:                               spec(FieldOffset),
	ConstructorReference:              spec(FieldOffset),
	MethodReference:                   spec(FieldOffset),
	Cast:                              spec(FieldOffset, FieldTypeArgIndex),
	ConstructorInvocationTypeArgument: spec(FieldOffset, FieldTypeArgIndex),
	MethodInvocationTypeArgument:      spec(FieldOffset, FieldTypeArgIndex),
	ConstructorReferenceTypeArgument:  spec(FieldOffset, FieldTypeArgIndex),
	MethodReferenceTypeArgument:       spec(FieldOffset, FieldTypeArgIndex),
	Declaration:                       {},
}

// SchemaFor returns the field rules of k.
func SchemaFor(k Kind) (Spec, bool) {
	s, ok := schema[k]
	return s, ok
}

// Problem is one field whose count breaks its rule.
type Problem struct {
	Field PosField
	Rule  Rule
	Count int
}

// ValidationError lists every position field that does not match the
// schema of Kind.
type ValidationError struct {
	Kind     Kind
	Problems []Problem
	Detail   string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems)+1)
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s %s, got %d", p.Field, p.Rule, p.Count))
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return fmt.Sprintf("invalid position data for %s target: %s", e.Kind, strings.Join(parts, "; "))
}

// Validate checks field counts against the schema of k.
func Validate(k Kind, counts Counts) error {
	s, ok := schema[k]
	if !ok {
		return &ValidationError{Kind: k, Detail: "unknown target kind"}
	}
	var problems []Problem
	for f := PosField(0); f < numFields; f++ {
		if !s[f].admits(counts[f]) {
			problems = append(problems, Problem{Field: f, Rule: s[f], Count: counts[f]})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Kind: k, Problems: problems}
	}
	return nil
}
