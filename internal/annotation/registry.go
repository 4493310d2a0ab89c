package annotation

import (
	"sort"

	"github.com/google/uuid"
)

// Registry holds the annotation definitions seen during one decode or parse
// session. Definitions are reachable by qualified name and, while
// unambiguous, by their short name.
type Registry struct {
	// Session identifies the run that owns the registry in logs.
	Session uuid.UUID

	defs  map[string]*AnnotationDef
	order []string
	short map[string][]string
}

// NewRegistry returns an empty registry with a fresh session id.
func NewRegistry() *Registry {
	return &Registry{
		Session: uuid.New(),
		defs:    make(map[string]*AnnotationDef),
		short:   make(map[string][]string),
	}
}

// Define registers def. If a definition of the same qualified name exists,
// def is unified into it and the existing definition is returned, so every
// annotation of that type shares one definition.
func (r *Registry) Define(def *AnnotationDef) (*AnnotationDef, error) {
	if old, ok := r.defs[def.Name]; ok {
		if old == def {
			return old, nil
		}
		if err := old.UnifyWith(def); err != nil {
			return nil, err
		}
		return old, nil
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	s := ShortName(def.Name)
	if s != def.Name {
		r.short[s] = append(r.short[s], def.Name)
	}
	return def, nil
}

// Get returns the definition with exactly the qualified name name.
func (r *Registry) Get(name string) (*AnnotationDef, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Lookup finds a definition by qualified name, then by short name. A short
// name shared by several qualified definitions yields *AmbiguousNameError.
func (r *Registry) Lookup(name string) (*AnnotationDef, error) {
	if d, ok := r.defs[name]; ok {
		return d, nil
	}
	cands := r.short[name]
	switch len(cands) {
	case 0:
		return nil, nil
	case 1:
		return r.defs[cands[0]], nil
	}
	sorted := append([]string(nil), cands...)
	sort.Strings(sorted)
	return nil, &AmbiguousNameError{Name: name, Candidates: sorted}
}

// Defs returns every definition in registration order.
func (r *Registry) Defs() []*AnnotationDef {
	out := make([]*AnnotationDef, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.defs[n])
	}
	return out
}
