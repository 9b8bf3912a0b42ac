package formats

import (
	"fmt"
	"io"
	"strings"

	"github.com/joiningdata/tabio/options"
	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// delimStrategy reads and writes separator-delimited text (CSV, TSV and
// every dialect in between): configurable separator, quote, escape
// character, doubled-quote convention and embedded newlines.
type delimStrategy struct {
	strategyBase
}

func (s *delimStrategy) Name() string { return "delim" }

func (s *delimStrategy) Boundary() recio.Boundary { return recio.QuoteBalanced }

func (s *delimStrategy) cfg() recio.Config {
	return recio.Config{
		Quote:            s.opts.GetChar(OptQuote),
		Escape:           s.opts.GetChar(OptEscape),
		DoubledQuote:     s.opts.GetBool(OptDoubledQuote),
		EmbeddedNewlines: s.opts.GetBool(OptEmbeddedNewlines),
	}
}

// split tokenizes one balanced record and post-processes each field:
// escape expansion when an escape character is configured, then the
// whitespace disposition.
func (s *delimStrategy) split(rec string) []string {
	cfg := s.cfg()
	fields, ferrs := recio.SplitDelimited(rec, s.opts.GetChar(OptSeparator), cfg)
	for _, fe := range ferrs {
		s.report(fe)
	}
	for i, f := range fields {
		if cfg.Escape != 0 {
			f = options.Unescape(f, cfg.Escape)
		}
		fields[i] = stripValue(s.opts, f)
	}
	return fields
}

func (s *delimStrategy) ReadHeader(r *recio.Reader) ([]string, error) {
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
	return s.split(rec), nil
}

func (s *delimStrategy) ParseRecord(rec string) (map[string]string, error) {
	fields := s.split(rec)
	if s.sch.Closed() && len(fields) != s.sch.Len() {
		s.report(fmt.Errorf("%w: %d fields, schema declares %d",
			errSyntax, len(fields), s.sch.Len()))
	}
	m := make(map[string]string, len(fields))
	for i, v := range fields {
		f, err := s.sch.At(i + 1)
		if err != nil {
			// extra fields beyond a closed schema are dropped
			continue
		}
		m[f.Name] = v
	}
	return m, nil
}

func (s *delimStrategy) AssembleRecord(values []string) (string, error) {
	parts := make([]string, 0, len(values))
	for i, v := range values {
		if i == 0 {
			continue // reserved slot
		}
		f, err := s.sch.At(i)
		if err != nil {
			return "", err
		}
		parts = append(parts, s.AssembleField(f, v))
	}
	return strings.Join(parts, string(s.opts.GetChar(OptSeparator))), nil
}

// needsQuoting reports whether a value must be wrapped in quotes to
// survive the round trip.
func (s *delimStrategy) needsQuoting(v string) bool {
	sep := s.opts.GetChar(OptSeparator)
	quote := s.opts.GetChar(OptQuote)
	if quote == 0 {
		return false
	}
	return strings.ContainsRune(v, sep) ||
		strings.ContainsRune(v, quote) ||
		strings.ContainsAny(v, "\r\n") ||
		strings.HasPrefix(v, " ") || strings.HasSuffix(v, " ")
}

func (s *delimStrategy) AssembleField(_ *schema.FieldDef, v string) string {
	return s.assembleField(v)
}

func (s *delimStrategy) assembleField(v string) string {
	quote := s.opts.GetChar(OptQuote)
	esc := s.opts.GetChar(OptEscape)
	if !s.needsQuoting(v) {
		return v
	}
	q := string(quote)
	switch {
	case s.opts.GetBool(OptDoubledQuote):
		v = strings.ReplaceAll(v, q, q+q)
	case esc != 0:
		v = strings.ReplaceAll(v, string(esc), string(esc)+string(esc))
		v = strings.ReplaceAll(v, q, string(esc)+q)
	default:
		// no escaping convention at all: the quote cannot be embedded
		s.report(fmt.Errorf("%w: embedded quote dropped from %q", errSyntax, v))
		v = strings.ReplaceAll(v, q, "")
	}
	return q + v + q
}

func (s *delimStrategy) AssembleHeader() (string, bool) {
	if !s.opts.GetBool(OptHeader) {
		return "", false
	}
	names := s.sch.Names()
	return s.assembleJoined(names[1:]), true
}

func (s *delimStrategy) assembleJoined(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = s.assembleField(v)
	}
	return strings.Join(parts, string(s.opts.GetChar(OptSeparator)))
}

func (s *delimStrategy) AssembleTrailer() (string, bool) { return "", false }

func (s *delimStrategy) AssembleComment(text string) (string, bool) {
	prefix := s.opts.Get(OptCommentPrefix)
	if prefix == "" {
		return "", false
	}
	return prefix + " " + text, true
}
