package formats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// jsonStrategy reads a minimal JSON subset: a stream of flat objects,
// one per record, optionally wrapped in a single top-level array. Nested
// values are carried through as their raw JSON text. Output is one
// compact object per line.
type jsonStrategy struct {
	strategyBase
}

func (s *jsonStrategy) Name() string { return "json" }

func (s *jsonStrategy) Boundary() recio.Boundary { return recio.BracketBalanced }

// ReadHeader consumes an optional top-level '[' so that the bracket
// reader yields one object per logical record instead of the whole
// array at once.
func (s *jsonStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
	src := r.Source()
	for {
		line, err := src.ReadLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if trimmed[0] == '[' {
			if rest := trimmed[1:]; strings.TrimSpace(rest) != "" {
				src.PushBack(rest)
			}
			return nil, nil
		}
		src.PushBack(line)
		return nil, nil
	}
}

func (s *jsonStrategy) ParseRecord(rec string) (map[string]string, error) {
	t := strings.TrimSpace(rec)
	t = strings.TrimSpace(strings.Trim(t, ","))
	if t == "" || t == "]" || t == "}" {
		return nil, errSkipRecord
	}

	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSyntax, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: record is not an object: %q", errSyntax, t)
	}

	m := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			s.report(fmt.Errorf("%w: %v", errSyntax, err))
			break
		}
		key, ok := keyTok.(string)
		if !ok {
			s.report(fmt.Errorf("%w: non-string object key %v", errSyntax, keyTok))
			break
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			s.report(&recio.FieldError{Field: len(m) + 1, Msg: err.Error()})
			m[key] = "" // best-effort: field survives with an empty value
			break
		}
		// keys are seen in document order, so open schemas grow in order
		s.sch.Get(key)
		m[key] = rawValue(raw)
	}
	return m, nil
}

// rawValue converts one raw JSON value to its field text: strings are
// unquoted, null becomes empty, everything else keeps its JSON text.
func rawValue(raw json.RawMessage) string {
	t := strings.TrimSpace(string(raw))
	if t == "null" {
		return ""
	}
	if strings.HasPrefix(t, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	return t
}

func (s *jsonStrategy) AssembleRecord(values []string) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	n := 0
	for i := 1; i < len(values); i++ {
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		if n > 0 {
			b.WriteString(", ")
		}
		name, _ := json.Marshal(f.Name)
		b.Write(name)
		b.WriteString(": ")
		b.WriteString(s.AssembleField(f, values[i]))
		n++
	}
	b.WriteByte('}')
	return b.String(), nil
}

// AssembleField keeps values that already are valid JSON numbers,
// booleans or structures bare, and quotes everything else as a string.
func (s *jsonStrategy) AssembleField(_ *schema.FieldDef, v string) string {
	if v == "" {
		return "null"
	}
	if json.Valid([]byte(v)) && !needsJSONQuoting(v) {
		return v
	}
	out, err := json.Marshal(v)
	if err != nil {
		s.report(fmt.Errorf("%w: %v", errSyntax, err))
		return `""`
	}
	return string(out)
}

// needsJSONQuoting reports whether a value that happens to be valid JSON
// should still be written as a string: bare words like `true` or `12`
// keep their JSON type, but anything already quoted re-quotes so that
// the literal text round-trips.
func needsJSONQuoting(v string) bool {
	return strings.HasPrefix(v, `"`)
}

func (s *jsonStrategy) AssembleHeader() (string, bool)  { return "", false }
func (s *jsonStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *jsonStrategy) AssembleComment(string) (string, bool) {
	// JSON has no comment syntax
	return "", false
}
