package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// hdrStrategy reads and writes mail-header style blocks: one
// "Name: value" field per line, lines beginning with whitespace
// continuing the previous field, records separated by blank lines.
type hdrStrategy struct {
	strategyBase
}

func (s *hdrStrategy) Name() string { return "hdr" }

func (s *hdrStrategy) Boundary() recio.Boundary { return recio.Continuation }

func (s *hdrStrategy) ReadHeader(*recio.Reader) ([]string, error) {
	// field names are carried on every record; there is no header
	return nil, nil
}

func (s *hdrStrategy) ParseRecord(rec string) (map[string]string, error) {
	m := make(map[string]string)
	var last string
	for _, line := range strings.Split(rec, "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last == "" {
				s.report(fmt.Errorf("%w: continuation line with no preceding field: %q", errSyntax, line))
				continue
			}
			// classic unfolding: continuation text joins with one space
			m[last] += " " + strings.TrimSpace(line)
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			s.report(fmt.Errorf("%w: line without a field separator: %q", errSyntax, line))
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		f, err := s.sch.Get(name)
		if err != nil {
			// unknown field after the schema closed: reported by the
			// schema; the value is still surfaced under its own name
			m[name] = value
			last = name
			continue
		}
		if prev, dup := m[f.Name]; dup && prev != "" {
			m[f.Name] = prev + joinSep(f) + value
		} else {
			m[f.Name] = value
		}
		last = f.Name
	}
	return m, nil
}

func (s *hdrStrategy) AssembleRecord(values []string) (string, error) {
	var b strings.Builder
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		if values[i] == "" {
			continue // absent fields are simply omitted
		}
		b.WriteString(s.AssembleField(f, values[i]))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func (s *hdrStrategy) AssembleField(f *schema.FieldDef, v string) string {
	// embedded newlines fold onto continuation lines
	v = strings.ReplaceAll(v, "\n", "\n\t")
	return f.Name + ": " + v
}

// joinSep is the delimiter used when the same field repeats within one
// block: the field's declared list delimiter when it has one.
func joinSep(f *schema.FieldDef) string {
	if f.Split != "" {
		return f.Split
	}
	return ", "
}

func (s *hdrStrategy) AssembleHeader() (string, bool)  { return "", false }
func (s *hdrStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *hdrStrategy) AssembleComment(text string) (string, bool) {
	prefix := s.opts.Get(OptCommentPrefix)
	if prefix == "" {
		return "", false
	}
	return prefix + " " + text, true
}
