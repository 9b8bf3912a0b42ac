package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// xsvStrategy reads the XSV dialect: a constrained XML document whose
// <decl> element declares the fields (attribute values carry inline
// type/repetition/default declarations) and whose <row> elements carry
// one record each in their attributes. Values of a field declared with
// a base URI are stored factored and re-prefixed on parse.
type xsvStrategy struct {
	strategyBase
}

func (s *xsvStrategy) Name() string { return "xsv" }

func (s *xsvStrategy) Boundary() recio.Boundary { return recio.Markup }

// ReadHeader scans the document prolog for the declaration element and
// applies each attribute as a field declaration. Scanning stops at the
// first row element, which is pushed back as data.
func (s *xsvStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	src := r.Source()
	declElem := strings.ToLower(s.opts.Get(OptDeclElement))
	rowElem := strings.ToLower(s.opts.Get(OptRowElement))

	for {
		line, err := src.ReadLine()
		if err != nil {
			return nil, nil
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "<?") ||
			strings.HasPrefix(trimmed, "<!--") {
			continue
		}
		lt := strings.IndexByte(trimmed, '<')
		gt := strings.IndexByte(trimmed, '>')
		if lt < 0 || gt < lt {
			continue
		}
		tag := trimmed[lt : gt+1]
		name, isClose, _ := splitTag(tag)
		switch {
		case name == declElem && !isClose:
			s.applyDecls(tag)
			if rest := strings.TrimSpace(trimmed[gt+1:]); rest != "" {
				src.PushBack(rest)
			}
			// the fields carry their declarations already; closing here
			// keeps the schema validate-only from the first row on
			s.sch.Close()
			return nil, nil
		case name == rowElem:
			src.PushBack(line)
			return nil, nil
		}
		// the root element or other prolog markup
		if rest := strings.TrimSpace(trimmed[gt+1:]); rest != "" {
			src.PushBack(rest)
		}
	}
}

// applyDecls declares one field per attribute of the decl tag.
func (s *xsvStrategy) applyDecls(tag string) {
	_, attrs := parseTagAttrs(tag)
	for _, a := range attrs {
		f := s.sch.Append(a[0])
		if err := schema.ParseDecl(f, a[1]); err != nil {
			s.report(err)
		}
	}
}

func (s *xsvStrategy) ParseRecord(rec string) (map[string]string, error) {
	t := strings.TrimSpace(rec)
	lt := strings.IndexByte(t, '<')
	gt := strings.IndexByte(t, '>')
	if lt < 0 || gt < lt {
		return nil, errSkipRecord
	}
	name, attrs := parseTagAttrs(t[lt : gt+1])
	if name != strings.ToLower(s.opts.Get(OptRowElement)) {
		return nil, errSkipRecord
	}

	m := make(map[string]string)
	for _, a := range attrs {
		f, err := s.sch.Get(a[0])
		if err != nil {
			s.report(fmt.Errorf("%w: row attribute %q", err, a[0]))
			continue
		}
		m[a[0]] = stripValue(s.opts, f.ApplyPrefix(a[1]))
	}
	return m, nil
}

func (s *xsvStrategy) AssembleRecord(values []string) (string, error) {
	var b strings.Builder
	b.WriteString("<" + s.opts.Get(OptRowElement))
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		if values[i] == "" && !f.Repetition.Required() {
			continue
		}
		b.WriteString(" " + s.AssembleField(f, values[i]))
	}
	b.WriteString("/>")
	return b.String(), nil
}

// AssembleField renders one name="value" attribute, undoing base-URI
// factoring so that values stay compact on disk.
func (s *xsvStrategy) AssembleField(f *schema.FieldDef, v string) string {
	return f.Name + `="` + xmlEscape(f.TrimPrefix(v)) + `"`
}

// AssembleHeader opens the document with the root element and the field
// declarations.
func (s *xsvStrategy) AssembleHeader() (string, bool) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?>` + "\n")
	b.WriteString("<" + s.opts.Get(OptTableElement) + ">\n")
	b.WriteString("<" + s.opts.Get(OptDeclElement))
	for _, f := range s.sch.Fields() {
		b.WriteString(" " + f.Name + `="` + xmlEscape(declFor(f)) + `"`)
	}
	b.WriteString("/>")
	return b.String(), true
}

// declFor rebuilds the inline declaration string for one field. An
// untyped singleton field with no default declares as the empty string.
func declFor(f *schema.FieldDef) string {
	var b strings.Builder
	switch {
	case f.BaseURI != "":
		b.WriteString("baseuri(" + f.BaseURI + ")")
	case f.Type != nil:
		b.WriteString(f.Type.Name)
	}
	if f.Repetition != schema.One {
		b.WriteString(f.Repetition.String())
	}
	if b.Len() == 0 {
		return f.Default
	}
	decl := string(schema.DeclMarker) + b.String()
	if f.Default != "" {
		decl += string(schema.DeclMarker) + f.Default
	}
	return decl
}

func (s *xsvStrategy) AssembleTrailer() (string, bool) {
	return "</" + s.opts.Get(OptTableElement) + ">", true
}

func (s *xsvStrategy) AssembleComment(text string) (string, bool) {
	return "<!-- " + strings.ReplaceAll(text, "--", "- -") + " -->", true
}
