package formats

import (
	"fmt"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// perlStrategy reads a minimal Perl data-literal subset: one anonymous
// hash `{ Name => 'value', ... },` or list `[ 'a', 'b' ],` per record,
// usually wrapped in a single `my @rows = ( ... );` assignment. Only
// flat scalar values are interpreted; nested structures are carried
// through as their source text. Output is one hash literal per line.
type perlStrategy struct {
	strategyBase
}

func (s *perlStrategy) Name() string { return "perl" }

func (s *perlStrategy) Boundary() recio.Boundary { return recio.BracketBalanced }

// ReadHeader consumes the leading assignment wrapper (everything
// through the opening parenthesis) so that the bracket reader yields
// one hash or list per logical record instead of the whole array.
func (s *perlStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	src := r.Source()
	for {
		line, err := src.ReadLine()
		if err != nil {
			return nil, nil
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed[0] == '{' || trimmed[0] == '[' {
			src.PushBack(line)
			return nil, nil
		}
		if i := strings.IndexByte(trimmed, '('); i >= 0 {
			if rest := trimmed[i+1:]; strings.TrimSpace(rest) != "" {
				src.PushBack(rest)
			}
			return nil, nil
		}
		// prelude such as "use strict;" or "my @rows ="
	}
}

func (s *perlStrategy) ParseRecord(rec string) (map[string]string, error) {
	t := strings.TrimSpace(rec)
	t = strings.TrimSpace(strings.TrimRight(t, ",;"))
	if t == "" || t == ")" || t == "]" || t == "}" {
		return nil, errSkipRecord
	}

	open := t[0]
	var want byte
	switch open {
	case '{':
		want = '}'
	case '[':
		want = ']'
	case '(':
		want = ')'
	default:
		s.report(fmt.Errorf("%w: record is not a hash or list literal: %q", errSyntax, t))
		return nil, errSkipRecord
	}
	if t[len(t)-1] != want {
		return nil, fmt.Errorf("%w: unbalanced literal: %q", errSyntax, t)
	}
	inner := t[1 : len(t)-1]

	m := make(map[string]string)
	items := splitPerlItems(inner)
	if open == '{' {
		for _, item := range items {
			key, value, ok := splitPerlPair(item)
			if !ok {
				s.report(fmt.Errorf("%w: hash entry without =>: %q", errSyntax, item))
				continue
			}
			name := perlScalar(key)
			// keys are seen in source order, so open schemas grow in order
			s.sch.Get(name)
			m[name] = perlScalar(value)
		}
		return m, nil
	}
	for i, item := range items {
		f, err := s.sch.At(i + 1)
		if err != nil {
			continue
		}
		m[f.Name] = perlScalar(item)
	}
	return m, nil
}

// splitPerlItems splits a literal body on top-level commas, ignoring
// commas inside quotes or nested brackets. The Perl "fat comma" =>
// survives intact for splitPerlPair.
func splitPerlItems(s string) []string {
	var out []string
	var b strings.Builder
	depth := 0
	var quote rune
	escaped := false
	for _, c := range s {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			if t := strings.TrimSpace(b.String()); t != "" {
				out = append(out, t)
			}
			b.Reset()
			continue
		}
		b.WriteRune(c)
	}
	if t := strings.TrimSpace(b.String()); t != "" {
		out = append(out, t)
	}
	return out
}

// splitPerlPair splits "Key => value" at the first top-level fat comma.
func splitPerlPair(item string) (key, value string, ok bool) {
	depth := 0
	var quote rune
	escaped := false
	for i := 0; i < len(item)-1; i++ {
		c := item[i]
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if c == '\\' {
				escaped = true
			} else if rune(c) == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = rune(c)
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == '=' && item[i+1] == '>' && depth == 0:
			return strings.TrimSpace(item[:i]), strings.TrimSpace(item[i+2:]), true
		}
	}
	return "", "", false
}

// perlScalar evaluates one scalar: single-quoted strings honor \' and
// \\ only, double-quoted strings honor the usual mnemonic escapes,
// undef becomes empty, and anything else (numbers, bare words, nested
// literals) keeps its source text.
func perlScalar(v string) string {
	v = strings.TrimSpace(v)
	if v == "undef" {
		return ""
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		inner := v[1 : len(v)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		return strings.ReplaceAll(inner, `\\`, `\`)
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return perlExpand(v[1 : len(v)-1])
	}
	return v
}

var perlMnemonics = map[byte]byte{
	'a': '\a', 'b': '\b', 'e': 0x1b, 'f': '\f',
	'n': '\n', 'r': '\r', 't': '\t', '0': 0,
}

func perlExpand(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		if m, ok := perlMnemonics[s[i]]; ok {
			b.WriteByte(m)
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// named reports whether assembled records should be hash literals.
func (s *perlStrategy) named() bool {
	for _, f := range s.sch.Fields() {
		if !f.Synthetic() {
			return true
		}
	}
	return false
}

func (s *perlStrategy) AssembleRecord(values []string) (string, error) {
	named := s.named()
	parts := make([]string, 0, len(values))
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		if named {
			parts = append(parts, f.Name+" => "+s.AssembleField(f, values[i]))
		} else {
			parts = append(parts, s.AssembleField(f, values[i]))
		}
	}
	if named {
		return "{ " + strings.Join(parts, ", ") + " },", nil
	}
	return "[ " + strings.Join(parts, ", ") + " ],", nil
}

// AssembleField writes every value single-quoted; single-quote
// semantics keep the quoting rules independent of the value's content.
func (s *perlStrategy) AssembleField(_ *schema.FieldDef, v string) string {
	if v == "" {
		return "undef"
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// AssembleHeader opens the wrapping array assignment.
func (s *perlStrategy) AssembleHeader() (string, bool) {
	return "my @rows = (", true
}

func (s *perlStrategy) AssembleTrailer() (string, bool) {
	return ");", true
}

func (s *perlStrategy) AssembleComment(text string) (string, bool) {
	return "# " + text, true
}
