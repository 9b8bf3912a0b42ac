package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// sexpStrategy reads a minimal S-expression subset. A record is one
// balanced list: either positional atoms, (v1 v2 "v three"), or
// name/value pairs, ((name v1) (other v2)). Output uses pairs when the
// schema carries declared names and positional atoms otherwise.
type sexpStrategy struct {
	strategyBase
}

func (s *sexpStrategy) Name() string { return "sexp" }

func (s *sexpStrategy) Boundary() recio.Boundary { return recio.BracketBalanced }

func (s *sexpStrategy) ReadHeader(*recio.Reader) ([]string, error) {
	return nil, nil
}

// sexpNode is one parsed expression: an atom/string leaf or a list.
type sexpNode struct {
	atom   string
	quoted bool
	list   []*sexpNode
	isList bool
}

// text renders a leaf's value; lists render back to their source form.
func (n *sexpNode) text() string {
	if !n.isList {
		return n.atom
	}
	parts := make([]string, len(n.list))
	for i, c := range n.list {
		if c.isList {
			parts[i] = c.text()
		} else if c.quoted {
			parts[i] = sexpQuote(c.atom)
		} else {
			parts[i] = c.atom
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// parseSexp parses one expression from s starting at i.
func parseSexp(s []rune, i int) (*sexpNode, int, error) {
	for i < len(s) && isSpaceRune(s[i]) {
		i++
	}
	if i >= len(s) {
		return nil, i, fmt.Errorf("%w: empty expression", errSyntax)
	}
	switch s[i] {
	case '(':
		n := &sexpNode{isList: true}
		i++
		for {
			for i < len(s) && isSpaceRune(s[i]) {
				i++
			}
			if i >= len(s) {
				return n, i, fmt.Errorf("%w: unterminated list", errSyntax)
			}
			if s[i] == ')' {
				return n, i + 1, nil
			}
			child, next, err := parseSexp(s, i)
			if err != nil {
				return n, next, err
			}
			n.list = append(n.list, child)
			i = next
		}
	case '"':
		var b strings.Builder
		i++
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				b.WriteRune(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				return &sexpNode{atom: b.String(), quoted: true}, i + 1, nil
			}
			b.WriteRune(c)
			i++
		}
		return &sexpNode{atom: b.String(), quoted: true}, i,
			fmt.Errorf("%w: unterminated string", errSyntax)
	case ')':
		return nil, i + 1, fmt.Errorf("%w: unexpected )", errSyntax)
	}
	start := i
	for i < len(s) && !isSpaceRune(s[i]) && s[i] != '(' && s[i] != ')' && s[i] != '"' {
		i++
	}
	return &sexpNode{atom: string(s[start:i])}, i, nil
}

func isSpaceRune(c rune) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func (s *sexpStrategy) ParseRecord(rec string) (map[string]string, error) {
	node, _, err := parseSexp([]rune(rec), 0)
	if err != nil {
		s.report(err)
	}
	if node == nil {
		return nil, errSkipRecord
	}
	m := make(map[string]string)
	if !node.isList {
		f, _ := s.sch.At(1)
		if f != nil {
			m[f.Name] = node.atom
		}
		return m, nil
	}

	if named := allPairs(node.list); named {
		for _, pair := range node.list {
			name := pair.list[0].atom
			s.sch.Get(name)
			m[name] = pair.list[1].text()
		}
		return m, nil
	}

	for i, child := range node.list {
		f, err := s.sch.At(i + 1)
		if err != nil {
			continue
		}
		m[f.Name] = child.text()
	}
	return m, nil
}

// allPairs reports whether every element is a (name value) pair with a
// bare-atom name.
func allPairs(list []*sexpNode) bool {
	if len(list) == 0 {
		return false
	}
	for _, n := range list {
		if !n.isList || len(n.list) != 2 || n.list[0].isList || n.list[0].quoted {
			return false
		}
	}
	return true
}

// named reports whether assembled records should carry field names.
func (s *sexpStrategy) named() bool {
	for _, f := range s.sch.Fields() {
		if !f.Synthetic() {
			return true
		}
	}
	return false
}

func (s *sexpStrategy) AssembleRecord(values []string) (string, error) {
	named := s.named()
	parts := make([]string, 0, len(values))
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, s.assembleOne(f, values[i], named))
	}
	return "(" + strings.Join(parts, " ") + ")", nil
}

func (s *sexpStrategy) assembleOne(f *schema.FieldDef, v string, named bool) string {
	if named {
		return "(" + f.Name + " " + s.AssembleField(f, v) + ")"
	}
	return s.AssembleField(f, v)
}

func (s *sexpStrategy) AssembleField(_ *schema.FieldDef, v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\r\n()\"\\;") {
		return v
	}
	return sexpQuote(v)
}

func sexpQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func (s *sexpStrategy) AssembleHeader() (string, bool)  { return "", false }
func (s *sexpStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *sexpStrategy) AssembleComment(text string) (string, bool) {
	return "; " + text, true
}
