// Package jsonbind maps between JSON documents and the object shapes of the
// asset model. Shapes are declared up front as field tables; nothing is
// discovered at runtime.
package jsonbind

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Shape describes one object type: how to construct it and how each of its
// JSON fields is read and written.
type Shape struct {
	Name   string
	New    func() any
	Fields []Field

	// Breaking, when set, names fields that are written to a sibling
	// "<field>2" key of the parent object.
	Breaking *Breaking

	// Versioned, when set, gates binding on a schema version check.
	Versioned *Versioned

	index map[string]*Field
}

// Breaking declares the fields of a shape that old readers cannot handle.
// Moves decides per value whether a declared field is moved; a nil Moves
// always moves.
type Breaking struct {
	Fields []string
	Moves  func(field string, value any) bool
}

// Split removes the moved fields from primary and returns them.
func (b *Breaking) Split(primary map[string]any) map[string]any {
	sibling := make(map[string]any)
	for _, name := range b.Fields {
		v, ok := primary[name]
		if !ok {
			continue
		}
		if b.Moves == nil || b.Moves(name, v) {
			sibling[name] = v
			delete(primary, name)
		}
	}
	return sibling
}

// Merge returns a new map holding primary overlaid with sibling.
func (b *Breaking) Merge(primary, sibling map[string]any) map[string]any {
	merged := make(map[string]any, len(primary)+len(sibling))
	for k, v := range primary {
		merged[k] = v
	}
	for k, v := range sibling {
		merged[k] = v
	}
	return merged
}

// Versioned names a dotted attribute path holding a schema version and the
// check applied to it before an object is bound.
type Versioned struct {
	Path     string
	Validate func(version string) error
}

// EnumDef describes a string-backed enumeration. Variants are the canonical
// upper-case names. Wire maps a variant to its JSON form (nil means the
// variant name itself). Parse resolves strings that are not variant names.
type EnumDef struct {
	Name     string
	Variants []string
	Wire     func(variant string) string
	Parse    func(s string) (string, bool)
}

func (e *EnumDef) wire(variant string) string {
	if e.Wire == nil {
		return variant
	}
	return e.Wire(variant)
}

func (e *EnumDef) resolve(s string) (string, bool) {
	upper := strings.ToUpper(s)
	if slices.Contains(e.Variants, upper) {
		return upper, true
	}
	if e.Parse != nil {
		return e.Parse(s)
	}
	return "", false
}

// Registry holds the shapes and enums known to a codec.
// Registration is expected to complete before any encoding or decoding.
type Registry struct {
	shapes map[string]*Shape
	enums  map[string]*EnumDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shapes: make(map[string]*Shape),
		enums:  make(map[string]*EnumDef),
	}
}

// RegisterShape adds s to the registry. Registering a name twice panics.
func (r *Registry) RegisterShape(s Shape) {
	if _, exists := r.shapes[s.Name]; exists {
		panic(fmt.Sprintf("jsonbind: shape %s registered twice", s.Name))
	}
	fields := slices.Clone(s.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	s.Fields = fields
	s.index = make(map[string]*Field, len(fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("jsonbind: shape %s declares field %s twice", s.Name, f.Name))
		}
		s.index[f.Name] = f
	}
	r.shapes[s.Name] = &s
}

// RegisterEnum adds e to the registry. Registering a name twice panics.
func (r *Registry) RegisterEnum(e EnumDef) {
	if _, exists := r.enums[e.Name]; exists {
		panic(fmt.Sprintf("jsonbind: enum %s registered twice", e.Name))
	}
	r.enums[e.Name] = &e
}

// Shape returns the named shape, or nil.
func (r *Registry) Shape(name string) *Shape {
	return r.shapes[name]
}

// check verifies that every shape and enum reachable from root is registered.
func (r *Registry) check(root string) error {
	seen := map[string]bool{}
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		seen[name] = true
		s, ok := r.shapes[name]
		if !ok {
			return fmt.Errorf("shape %s is not registered", name)
		}
		for _, f := range s.Fields {
			switch f.Kind {
			case KindObject, KindObjectList:
				if err := visit(f.Ref); err != nil {
					return fmt.Errorf("%s.%s: %w", name, f.Name, err)
				}
			case KindEnum:
				if _, ok := r.enums[f.Ref]; !ok {
					return fmt.Errorf("%s.%s: enum %s is not registered", name, f.Name, f.Ref)
				}
			}
		}
		return nil
	}
	return visit(root)
}

// siblingOf reports whether key is the "<field>2" companion of an object
// field whose shape declares breaking changes.
func (r *Registry) siblingOf(s *Shape, key string) (*Field, bool) {
	base, ok := strings.CutSuffix(key, "2")
	if !ok {
		return nil, false
	}
	f := s.index[base]
	if f == nil || f.Kind != KindObject {
		return nil, false
	}
	if nested := r.shapes[f.Ref]; nested == nil || nested.Breaking == nil {
		return nil, false
	}
	return f, true
}
