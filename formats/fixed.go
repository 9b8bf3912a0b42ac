package formats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// fixedStrategy reads and writes fixed-width columns. Column widths come
// from the "widths" option (comma-separated) or from the schema's field
// definitions; the final column takes whatever remains of the line.
type fixedStrategy struct {
	strategyBase

	widths []int
}

func (s *fixedStrategy) Name() string { return "fixed" }

func (s *fixedStrategy) Boundary() recio.Boundary { return recio.Line }

// columnWidths resolves the widths once: the option wins, then the
// schema field definitions.
func (s *fixedStrategy) columnWidths() []int {
	if s.widths != nil {
		return s.widths
	}
	if spec := s.opts.Get(OptWidths); spec != "" {
		for _, part := range strings.Split(spec, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 {
				s.report(fmt.Errorf("%w: bad column width %q", errSyntax, part))
				n = 1
			}
			s.widths = append(s.widths, n)
		}
		return s.widths
	}
	for _, f := range s.sch.Fields() {
		if f.Width < 1 {
			return nil
		}
		s.widths = append(s.widths, f.Width)
	}
	return s.widths
}

// cut slices one physical line into its columns.
func (s *fixedStrategy) cut(line string) []string {
	widths := s.columnWidths()
	if len(widths) == 0 {
		// no widths known: the whole line is one field
		return []string{stripValue(s.opts, line)}
	}
	runes := []rune(line)
	fields := make([]string, 0, len(widths))
	pos := 0
	for i, w := range widths {
		if pos >= len(runes) {
			fields = append(fields, "")
			continue
		}
		end := pos + w
		if end > len(runes) || i == len(widths)-1 {
			// the final column takes the remainder of the line
			end = len(runes)
		}
		fields = append(fields, stripValue(s.opts, string(runes[pos:end])))
		pos = end
	}
	return fields
}

func (s *fixedStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	if !s.opts.GetBool(OptHeader) {
		return nil, nil
	}
	rec, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := s.cut(rec)
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	return names, nil
}

func (s *fixedStrategy) ParseRecord(rec string) (map[string]string, error) {
	fields := s.cut(rec)
	m := make(map[string]string, len(fields))
	for i, v := range fields {
		f, err := s.sch.At(i + 1)
		if err != nil {
			continue
		}
		m[f.Name] = v
	}
	if len(s.widths) > 0 {
		// remember the widths on the schema for symmetric output
		for i, w := range s.widths {
			if f, err := s.sch.At(i + 1); err == nil && f.Width == 0 {
				f.Width = w
			}
		}
	}
	return m, nil
}

func (s *fixedStrategy) AssembleRecord(values []string) (string, error) {
	var b strings.Builder
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		b.WriteString(s.AssembleField(f, values[i]))
	}
	return strings.TrimRight(b.String(), string(s.opts.GetChar(OptPad))), nil
}

func (s *fixedStrategy) AssembleField(f *schema.FieldDef, v string) string {
	width := f.Width
	if width == 0 {
		widths := s.columnWidths()
		if f.Ordinal >= 1 && f.Ordinal <= len(widths) {
			width = widths[f.Ordinal-1]
		}
	}
	if width == 0 {
		return v
	}
	runes := []rune(v)
	if len(runes) > width {
		s.report(fmt.Errorf("%w: value %q truncated to %d columns", errSyntax, v, width))
		return string(runes[:width])
	}
	pad := strings.Repeat(string(s.opts.GetChar(OptPad)), width-len(runes))
	switch f.Align {
	case schema.AlignRight:
		return pad + v
	case schema.AlignCenter:
		left := len(pad) / 2
		return pad[:left] + v + pad[left:]
	}
	return v + pad
}

func (s *fixedStrategy) AssembleHeader() (string, bool) {
	if !s.opts.GetBool(OptHeader) {
		return "", false
	}
	var b strings.Builder
	for _, f := range s.sch.Fields() {
		b.WriteString(s.AssembleField(f, f.Name))
	}
	return strings.TrimRight(b.String(), string(s.opts.GetChar(OptPad))), true
}

func (s *fixedStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *fixedStrategy) AssembleComment(text string) (string, bool) {
	prefix := s.opts.Get(OptCommentPrefix)
	if prefix == "" {
		return "", false
	}
	return prefix + " " + text, true
}
