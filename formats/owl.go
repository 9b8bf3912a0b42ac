package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// owlStrategy reads a Manchester-OWL frame subset: one frame per record,
// introduced by "Individual: <subject>" (or another frame keyword), with
// indented "Facts: prop value, prop value" sections carrying the fields.
// Frames are separated by blank lines.
type owlStrategy struct {
	strategyBase
}

func (s *owlStrategy) Name() string { return "owl" }

func (s *owlStrategy) Boundary() recio.Boundary { return recio.Continuation }

func (s *owlStrategy) ReadHeader(*recio.Reader) ([]string, error) {
	return nil, nil
}

// the frame keywords this subset recognizes as record subjects
var owlFrameKeywords = map[string]bool{
	"Individual": true,
	"Class":      true,
	"Datatype":   true,
}

func (s *owlStrategy) ParseRecord(rec string) (map[string]string, error) {
	m := make(map[string]string)
	lines := unfoldIndented(rec)
	if len(lines) == 0 {
		return nil, errSkipRecord
	}

	for i, line := range lines {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			s.report(fmt.Errorf("%w: frame line without keyword: %q", errSyntax, line))
			continue
		}
		keyword := strings.TrimSpace(line[:colon])
		rest := strings.TrimSpace(line[colon+1:])

		if i == 0 {
			if !owlFrameKeywords[keyword] {
				s.report(fmt.Errorf("%w: unknown frame keyword %q", errSyntax, keyword))
			}
			s.sch.Get(keyword)
			m[keyword] = owlUnquote(rest)
			continue
		}

		switch keyword {
		case "Facts", "Annotations":
			for _, entry := range splitFactList(rest) {
				prop, value, ok := splitFact(entry)
				if !ok {
					s.report(fmt.Errorf("%w: malformed fact %q", errSyntax, entry))
					continue
				}
				f, err := s.sch.Get(prop)
				if err != nil {
					m[prop] = value
					continue
				}
				if prev, dup := m[f.Name]; dup && prev != "" {
					m[f.Name] = prev + joinSep(f) + value
				} else {
					m[f.Name] = value
				}
			}
		default:
			// Types: and other sections become one field apiece
			s.sch.Get(keyword)
			m[keyword] = owlUnquote(rest)
		}
	}
	return m, nil
}

// unfoldIndented joins indented continuation lines onto their section
// line, yielding one logical line per frame section.
func unfoldIndented(rec string) []string {
	var out []string
	for _, line := range strings.Split(rec, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'
		trimmed := strings.TrimSpace(line)
		if indented && len(out) > 1 && !isSection(trimmed) {
			// deeper indentation continues the open section
			out[len(out)-1] += " " + trimmed
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// isSection reports whether a line introduces a new frame section
// ("Facts:", "Types:", …) rather than continuing the previous one.
func isSection(line string) bool {
	i := strings.IndexByte(line, ':')
	if i < 1 {
		return false
	}
	keyword := line[:i]
	return !strings.ContainsAny(keyword, " \t\"")
}

// splitFactList splits a comma-separated fact list, ignoring commas
// inside double-quoted literals.
func splitFactList(s string) []string {
	var out []string
	var b strings.Builder
	quoted := false
	escaped := false
	for _, c := range s {
		switch {
		case escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			out = append(out, b.String())
			b.Reset()
			continue
		}
		b.WriteRune(c)
	}
	if b.Len() > 0 || len(out) > 0 {
		out = append(out, b.String())
	}
	return out
}

// splitFact splits "prop value" into its property name and (possibly
// quoted) value.
func splitFact(entry string) (prop, value string, ok bool) {
	entry = strings.TrimSpace(entry)
	i := strings.IndexAny(entry, " \t")
	if i < 0 {
		return entry, "", entry != ""
	}
	return entry[:i], owlUnquote(strings.TrimSpace(entry[i:])), true
}

func owlUnquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		inner := v[1 : len(v)-1]
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		return strings.ReplaceAll(inner, `\\`, `\`)
	}
	return v
}

func owlQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\r\n,\"\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func (s *owlStrategy) AssembleRecord(values []string) (string, error) {
	if len(values) < 2 {
		return "", fmt.Errorf("%w: empty record", errSyntax)
	}
	var b strings.Builder

	subject, err := s.sch.At(1)
	if err != nil {
		return "", err
	}
	keyword := subject.Name
	if !owlFrameKeywords[keyword] {
		keyword = "Individual"
	}
	fmt.Fprintf(&b, "%s: %s\n", keyword, owlQuote(values[1]))

	var facts []string
	for i := 2; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		if values[i] == "" {
			continue
		}
		facts = append(facts, s.AssembleField(f, values[i]))
	}
	if len(facts) > 0 {
		fmt.Fprintf(&b, "    Facts: %s\n", strings.Join(facts, ", "))
	}
	return b.String(), nil
}

func (s *owlStrategy) AssembleField(f *schema.FieldDef, v string) string {
	return f.Name + " " + owlQuote(v)
}

func (s *owlStrategy) AssembleHeader() (string, bool)  { return "", false }
func (s *owlStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *owlStrategy) AssembleComment(text string) (string, bool) {
	return "# " + text, true
}
