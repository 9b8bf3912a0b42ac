// Package schema maintains the ordered, named, typed field definitions of
// one table, along with the closed datatype registry used to validate
// declared fields.
//
// A Schema is either "open" (fields are created lazily the first time data
// references them, with synthetic names when none is given) or "closed"
// (a header has been parsed; unknown field references are errors). Array
// shaped records built against a Schema always have Len()+1 slots with
// slot 0 reserved and empty, so that field ordinals index directly.
package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField indicates a reference to an undeclared field after
	// the schema was closed.
	ErrUnknownField = errors.New("tabio/schema: unknown field")

	// ErrDuplicateField indicates an Append of an already-declared name.
	ErrDuplicateField = errors.New("tabio/schema: duplicate field name")

	// ErrBadOrdinal indicates an out-of-range ordinal position.
	ErrBadOrdinal = errors.New("tabio/schema: ordinal out of range")
)

// Schema is the ordered set of fields a table is expected to have.
// It is not safe for concurrent use.
type Schema struct {
	byName map[string]*FieldDef
	fields []*FieldDef // ordinal order; fields[0] corresponds to ordinal 1

	closed bool
	diags  []error
}

// New returns an empty, open Schema.
func New() *Schema {
	return &Schema{byName: make(map[string]*FieldDef)}
}

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// Closed reports whether the schema has stopped auto-creating fields.
func (s *Schema) Closed() bool { return s.closed }

// Close switches the schema to validate-only mode: from now on unknown
// field references are errors instead of auto-creates.
func (s *Schema) Close() { s.closed = true }

// Reset discards every field definition and reopens the schema.
func (s *Schema) Reset() {
	s.byName = make(map[string]*FieldDef)
	s.fields = nil
	s.closed = false
	s.diags = nil
}

// Diagnostics returns the non-fatal problems reported so far (duplicate
// appends, unknown references, count mismatches). The slice is cleared on
// Reset but never by reads.
func (s *Schema) Diagnostics() []error { return s.diags }

func (s *Schema) report(err error) {
	s.diags = append(s.diags, err)
}

// Append declares a new field at the end of the schema and returns its
// definition. Appending an existing name is idempotent: the existing
// FieldDef is returned unchanged and a diagnostic is recorded.
func (s *Schema) Append(name string) *FieldDef {
	if f, ok := s.byName[name]; ok {
		s.report(fmt.Errorf("%w: %q already at position %d", ErrDuplicateField, name, f.Ordinal))
		return f
	}
	f := &FieldDef{Name: name, Ordinal: len(s.fields) + 1}
	s.byName[name] = f
	s.fields = append(s.fields, f)
	return f
}

// InsertAt declares a new field at the given 1-based ordinal, shifting
// later fields up by one. An ordinal beyond the end appends.
func (s *Schema) InsertAt(ordinal int, name string) (*FieldDef, error) {
	if f, ok := s.byName[name]; ok {
		s.report(fmt.Errorf("%w: %q already at position %d", ErrDuplicateField, name, f.Ordinal))
		return f, nil
	}
	if ordinal < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBadOrdinal, ordinal)
	}
	if ordinal > len(s.fields) {
		return s.Append(name), nil
	}
	f := &FieldDef{Name: name, Ordinal: ordinal}
	s.fields = append(s.fields, nil)
	copy(s.fields[ordinal:], s.fields[ordinal-1:])
	s.fields[ordinal-1] = f
	s.byName[name] = f
	for i := ordinal; i < len(s.fields); i++ {
		s.fields[i].Ordinal = i + 1
	}
	return f, nil
}

// Get returns the field with the given name. If the schema is still open,
// an unknown name is auto-created (appended); once closed, an unknown name
// reports ErrUnknownField.
func (s *Schema) Get(name string) (*FieldDef, error) {
	if f, ok := s.byName[name]; ok {
		return f, nil
	}
	if s.closed {
		err := fmt.Errorf("%w: %q", ErrUnknownField, name)
		s.report(err)
		return nil, err
	}
	f := &FieldDef{Name: name, Ordinal: len(s.fields) + 1, synthetic: true}
	s.byName[name] = f
	s.fields = append(s.fields, f)
	return f, nil
}

// Lookup returns the field with the given name without auto-creating.
func (s *Schema) Lookup(name string) (*FieldDef, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// At returns the field at the given 1-based ordinal. In an open schema,
// ordinals one past the end auto-create synthetic fields (F_1, F_2, …)
// up to and including the requested position.
func (s *Schema) At(ordinal int) (*FieldDef, error) {
	if ordinal >= 1 && ordinal <= len(s.fields) {
		return s.fields[ordinal-1], nil
	}
	if s.closed || ordinal < 1 {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadOrdinal, ordinal, len(s.fields))
	}
	var f *FieldDef
	for len(s.fields) < ordinal {
		f = s.appendSynthetic()
	}
	return f, nil
}

func (s *Schema) appendSynthetic() *FieldDef {
	name := fmt.Sprintf("F_%d", len(s.fields)+1)
	// step past any explicitly declared name that collides
	for _, taken := s.byName[name]; taken; _, taken = s.byName[name] {
		name += "_"
	}
	f := &FieldDef{Name: name, Ordinal: len(s.fields) + 1, synthetic: true}
	s.byName[name] = f
	s.fields = append(s.fields, f)
	return f
}

// Rename changes a field's name in place, keeping its ordinal.
func (s *Schema) Rename(old, new string) error {
	f, ok := s.byName[old]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, old)
	}
	if _, taken := s.byName[new]; taken {
		return fmt.Errorf("%w: %q", ErrDuplicateField, new)
	}
	delete(s.byName, old)
	f.Name = new
	s.byName[new] = f
	return nil
}

// Fields returns the field definitions in ordinal order. The returned
// slice is shared; callers must not modify it.
func (s *Schema) Fields() []*FieldDef { return s.fields }

// Names returns the field names in ordinal order, with the reserved empty
// slot 0 included, so that names[f.Ordinal] == f.Name.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields)+1)
	for i, f := range s.fields {
		names[i+1] = f.Name
	}
	return names
}

// PopulateFromHeader declares one field per header name in order and
// closes the schema.
func (s *Schema) PopulateFromHeader(names []string) {
	for _, name := range names {
		s.Append(name)
	}
	s.closed = true
}

// PopulateAnonymous declares n synthetic fields (F_1 … F_n) and closes
// the schema. It is used when the first data record arrives with no
// header to define the field count.
func (s *Schema) PopulateAnonymous(n int) {
	for len(s.fields) < n {
		s.appendSynthetic()
	}
	s.closed = true
}

// ArrayFromMap converts a name→value record into its array shape using
// the schema's ordinals: the result always has Len()+1 elements with
// index 0 empty. Unknown names auto-create fields only while the schema
// is open; otherwise they are reported and dropped.
func (s *Schema) ArrayFromMap(rec map[string]string) []string {
	// auto-create first so the final length is stable
	for name := range rec {
		s.Get(name)
	}
	out := make([]string, len(s.fields)+1)
	for name, value := range rec {
		if f, ok := s.byName[name]; ok {
			out[f.Ordinal] = value
		}
	}
	for _, f := range s.fields {
		if out[f.Ordinal] == "" && f.Default != "" {
			if _, present := rec[f.Name]; !present {
				out[f.Ordinal] = f.Default
			}
		}
	}
	return out
}

// MapFromArray converts an array-shaped record (slot 0 ignored) into its
// name→value shape. A length mismatch against the closed schema is
// reported; extra values are dropped and missing ones default.
func (s *Schema) MapFromArray(values []string) map[string]string {
	if s.closed && len(values) != len(s.fields)+1 {
		s.report(fmt.Errorf("tabio/schema: record has %d fields, schema declares %d",
			len(values)-1, len(s.fields)))
	}
	out := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		if f.Ordinal < len(values) {
			out[f.Name] = values[f.Ordinal]
		} else if f.Default != "" {
			out[f.Name] = f.Default
		} else {
			out[f.Name] = ""
		}
	}
	return out
}
