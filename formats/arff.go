package formats

import (
	"fmt"
	"io"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// arffStrategy reads and writes the WEKA-style attribute format: an
// @relation line, one @attribute declaration per field, then @data with
// one comma-separated record per line. Only the subset needed for
// tabular interchange is supported (no sparse records, no weights).
type arffStrategy struct {
	strategyBase

	relation     string
	pendingTypes []pendingType
}

func (s *arffStrategy) Name() string { return "arff" }

func (s *arffStrategy) Boundary() recio.Boundary { return recio.Line }

func (s *arffStrategy) cfg() recio.Config {
	// ARFF quotes values with single quotes and escapes with backslash
	return recio.Config{Quote: '\'', Escape: '\\'}
}

// ReadHeader consumes the declaration section through the @data marker.
func (s *arffStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	var names []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			if names == nil {
				return nil, nil
			}
			return nil, &recio.BoundaryError{Msg: "missing @data marker"}
		}
		if err != nil {
			return nil, err
		}
		line := strings.TrimSpace(rec)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "@relation"):
			s.relation = strings.Trim(strings.TrimSpace(line[len("@relation"):]), "'\"")
		case strings.HasPrefix(lower, "@attribute"):
			name, typ := splitAttributeDecl(strings.TrimSpace(line[len("@attribute"):]))
			if name == "" {
				s.report(fmt.Errorf("%w: bad @attribute line %q", errSyntax, line))
				continue
			}
			names = append(names, name)
			s.declareType(name, typ, len(names))
		case strings.HasPrefix(lower, "@data"):
			return names, nil
		default:
			s.report(fmt.Errorf("%w: unexpected declaration %q", errSyntax, line))
		}
	}
}

// splitAttributeDecl splits "@attribute" arguments into the attribute
// name (possibly quoted) and its type text.
func splitAttributeDecl(rest string) (name, typ string) {
	if rest == "" {
		return "", ""
	}
	if rest[0] == '\'' || rest[0] == '"' {
		q := rest[0]
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return strings.Trim(rest, string(q)), ""
		}
		return rest[1 : end+1], strings.TrimSpace(rest[end+2:])
	}
	i := strings.IndexAny(rest, " \t")
	if i < 0 {
		return rest, ""
	}
	return rest[:i], strings.TrimSpace(rest[i:])
}

// declareType records the ARFF attribute type on the matching FieldDef
// once the schema grows to hold it.
func (s *arffStrategy) declareType(name, typ string, ordinal int) {
	var t *schema.Type
	lower := strings.ToLower(typ)
	switch {
	case strings.HasPrefix(typ, "{"):
		members := strings.TrimSuffix(strings.TrimPrefix(typ, "{"), "}")
		var vals []string
		for _, m := range strings.Split(members, ",") {
			vals = append(vals, strings.Trim(strings.TrimSpace(m), "'"))
		}
		t = schema.EnumType(vals...)
	case lower == "numeric", lower == "real":
		t, _ = schema.LookupType("real")
	case lower == "integer":
		t, _ = schema.LookupType("int64")
	case strings.HasPrefix(lower, "date"):
		t, _ = schema.LookupType("date")
	case lower == "string", lower == "":
		// untyped
	default:
		s.report(fmt.Errorf("%w: unsupported attribute type %q", errSyntax, typ))
	}
	if t == nil {
		return
	}
	s.pendingTypes = append(s.pendingTypes, pendingType{name: name, t: t})
}

type pendingType struct {
	name string
	t    *schema.Type
}

func (s *arffStrategy) applyPendingTypes() {
	for _, p := range s.pendingTypes {
		if f, ok := s.sch.Lookup(p.name); ok {
			f.Type = p.t
		}
	}
	s.pendingTypes = nil
}

func (s *arffStrategy) ParseRecord(rec string) (map[string]string, error) {
	s.applyPendingTypes()
	fields, ferrs := recio.SplitDelimited(rec, ',', s.cfg())
	for _, fe := range ferrs {
		s.report(fe)
	}
	m := make(map[string]string, len(fields))
	for i, v := range fields {
		f, err := s.sch.At(i + 1)
		if err != nil {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "?" {
			v = "" // ARFF missing-value marker
		}
		m[f.Name] = v
	}
	return m, nil
}

func (s *arffStrategy) AssembleRecord(values []string) (string, error) {
	parts := make([]string, 0, len(values))
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, s.AssembleField(f, values[i]))
	}
	return strings.Join(parts, ","), nil
}

func (s *arffStrategy) AssembleField(_ *schema.FieldDef, v string) string {
	if v == "" {
		return "?"
	}
	if strings.ContainsAny(v, " ,'\"\t{}%") {
		return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
	}
	return v
}

func (s *arffStrategy) AssembleHeader() (string, bool) {
	rel := s.relation
	if rel == "" {
		rel = "table"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "@relation %s\n\n", s.AssembleField(nil, rel))
	for _, f := range s.sch.Fields() {
		fmt.Fprintf(&b, "@attribute %s %s\n", s.AssembleField(nil, f.Name), arffType(f.Type))
	}
	b.WriteString("\n@data")
	return b.String(), true
}

func arffType(t *schema.Type) string {
	name := t.String()
	if strings.HasPrefix(name, "enum(") {
		members := strings.TrimSuffix(strings.TrimPrefix(name, "enum("), ")")
		return "{" + strings.ReplaceAll(members, "|", ",") + "}"
	}
	switch name {
	case "real", "int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64":
		return "numeric"
	case "date", "datetime":
		return "date"
	}
	return "string"
}

func (s *arffStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *arffStrategy) AssembleComment(text string) (string, bool) {
	return "% " + text, true
}
