package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// xhtmlStrategy reads the table subset of XHTML: each <tr> element is
// one record, its <td> children are the field values. A first row made
// entirely of <th> cells is taken as the header. Cells may carry the
// field name in a class attribute, which wins over cell position.
type xhtmlStrategy struct {
	strategyBase
}

func (s *xhtmlStrategy) Name() string { return "xhtml" }

func (s *xhtmlStrategy) Boundary() recio.Boundary { return recio.Markup }

// ReadHeader reads the first row and keeps it only if every cell is a
// header cell; otherwise the row is pushed back to be re-read as data.
func (s *xhtmlStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	rec, err := r.Read()
	if err != nil {
		return nil, nil
	}
	cells := parseCells(rec, s.cellElement())
	if len(cells) == 0 {
		r.Source().PushBack(rec)
		return nil, nil
	}
	names := make([]string, 0, len(cells))
	for _, c := range cells {
		if c.elem != "th" {
			r.Source().PushBack(rec)
			return nil, nil
		}
		names = append(names, stripValue(s.opts, c.text))
	}
	return names, nil
}

func (s *xhtmlStrategy) cellElement() string {
	return strings.ToLower(s.opts.Get(OptCellElement))
}

// markupCell is one parsed <td>/<th> cell.
type markupCell struct {
	elem  string
	class string
	text  string
}

// parseCells extracts the cells of one complete row element. Both the
// configured cell element and <th> are recognized; markup nested inside
// a cell is dropped, keeping only its character data.
func parseCells(rec, cellElem string) []markupCell {
	var (
		cells []markupCell
		cur   *markupCell
		text  strings.Builder
		depth int
	)
	rest := rec
	for rest != "" {
		lt := strings.IndexByte(rest, '<')
		if lt < 0 {
			if cur != nil {
				text.WriteString(rest)
			}
			break
		}
		if cur != nil {
			text.WriteString(rest[:lt])
		}
		rest = rest[lt:]

		if strings.HasPrefix(rest, "<!--") {
			if i := strings.Index(rest, "-->"); i >= 0 {
				rest = rest[i+3:]
				continue
			}
			break
		}
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			break
		}
		tag := rest[:gt+1]
		rest = rest[gt+1:]

		name, isClose, selfClose := splitTag(tag)
		if name != cellElem && name != "th" {
			// markup inside a cell (<a>, <b>, …) contributes no text
			continue
		}
		switch {
		case cur == nil && !isClose:
			cur = &markupCell{elem: name}
			if _, attrs := parseTagAttrs(tag); len(attrs) > 0 {
				for _, a := range attrs {
					if strings.EqualFold(a[0], "class") {
						cur.class = a[1]
					}
				}
			}
			depth = 1
			if selfClose {
				cells = append(cells, *cur)
				cur = nil
			}
		case cur != nil && !isClose && !selfClose:
			depth++
		case cur != nil && isClose:
			depth--
			if depth == 0 {
				cur.text = xmlUnescape(text.String())
				cells = append(cells, *cur)
				cur = nil
				text.Reset()
			}
		}
	}
	if cur != nil {
		cur.text = xmlUnescape(text.String())
		cells = append(cells, *cur)
	}
	return cells
}

func (s *xhtmlStrategy) ParseRecord(rec string) (map[string]string, error) {
	cells := parseCells(rec, s.cellElement())
	if len(cells) == 0 {
		return nil, errSkipRecord
	}
	m := make(map[string]string)
	for i, c := range cells {
		value := stripValue(s.opts, c.text)
		if c.class != "" {
			s.sch.Get(c.class)
			m[c.class] = value
			continue
		}
		f, err := s.sch.At(i + 1)
		if err != nil {
			s.report(fmt.Errorf("%w: cell %d has no field", errSyntax, i+1))
			continue
		}
		m[f.Name] = value
	}
	return m, nil
}

func (s *xhtmlStrategy) AssembleRecord(values []string) (string, error) {
	var b strings.Builder
	b.WriteString("<tr>")
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		b.WriteString(s.AssembleField(f, values[i]))
	}
	b.WriteString("</tr>")
	return b.String(), nil
}

func (s *xhtmlStrategy) AssembleField(f *schema.FieldDef, v string) string {
	cell := s.opts.Get(OptCellElement)
	if f != nil && !f.Synthetic() {
		return "<" + cell + ` class="` + xmlEscape(f.Name) + `">` +
			xmlEscape(v) + "</" + cell + ">"
	}
	return "<" + cell + ">" + xmlEscape(v) + "</" + cell + ">"
}

// AssembleHeader opens the table and emits a <th> row when the schema
// carries declared names.
func (s *xhtmlStrategy) AssembleHeader() (string, bool) {
	var b strings.Builder
	b.WriteString("<" + s.opts.Get(OptTableElement) + ">")
	named := false
	for _, f := range s.sch.Fields() {
		if !f.Synthetic() {
			named = true
			break
		}
	}
	if named {
		b.WriteString("\n<tr>")
		for _, f := range s.sch.Fields() {
			b.WriteString("<th>" + xmlEscape(f.Name) + "</th>")
		}
		b.WriteString("</tr>")
	}
	return b.String(), true
}

func (s *xhtmlStrategy) AssembleTrailer() (string, bool) {
	return "</" + s.opts.Get(OptTableElement) + ">", true
}

func (s *xhtmlStrategy) AssembleComment(text string) (string, bool) {
	return "<!-- " + strings.ReplaceAll(text, "--", "- -") + " -->", true
}
