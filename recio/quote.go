package recio

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

func (r *Reader) readQuoteBalanced() (string, error) {
	buf, err := r.readDataLine()
	if err != nil {
		return "", err
	}
	if r.cfg.Quote == 0 || quoteBalanced(buf, r.cfg) {
		return buf, nil
	}
	if !r.cfg.EmbeddedNewlines {
		// quoted newlines are disallowed: report and hand the line back
		// unmodified instead of reading on
		r.Warn(fmt.Errorf("tabio/recio: line %d: unbalanced quote character %q",
			r.src.Line(), r.cfg.Quote))
		return buf, nil
	}

	start := r.src.Line()
	for {
		line, err := r.src.ReadLine()
		if err == io.EOF {
			return "", &BoundaryError{
				Line:    start,
				Msg:     fmt.Sprintf("unterminated quote %q", r.cfg.Quote),
				Partial: buf,
			}
		}
		if err != nil {
			return "", err
		}
		buf += "\n" + line
		if quoteBalanced(buf, r.cfg) {
			return buf, nil
		}
	}
}

// quoteBalanced reports whether s contains an even number of effective
// quote characters: doubled-quote pairs (when that convention is on) and
// escape-prefixed quotes are dropped first, then the rest are counted.
func quoteBalanced(s string, cfg Config) bool {
	runes := []rune(s)
	count := 0
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if cfg.Escape != 0 && c == cfg.Escape && i+1 < len(runes) {
			i++ // whatever follows the escape is literal
			continue
		}
		if c != cfg.Quote {
			continue
		}
		if cfg.DoubledQuote && i+1 < len(runes) && runes[i+1] == cfg.Quote {
			i++ // a doubled pair is an escaped literal quote
			continue
		}
		count++
	}
	return count%2 == 0
}

// A FieldError reports one malformed field inside an otherwise balanced
// record. The field's value is degraded to best-effort text and parsing
// continues; one bad field never aborts a table.
type FieldError struct {
	Field int // 1-based field position
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tabio/recio: field %d: %s", e.Field, e.Msg)
}

// SplitDelimited tokenizes one balanced logical record into raw fields.
// Quoted fields may contain the separator, escaped quotes and (with the
// doubled-quote convention) doubled literal quotes; the enclosing quotes
// and any whitespace before the opening quote are stripped. Escape
// sequences inside the fields are NOT expanded here; callers that
// configure an escape character unescape each field afterwards.
//
// Malformed fields are reported through the returned FieldErrors while
// tokenization continues with best-effort values.
func SplitDelimited(s string, sep rune, cfg Config) (fields []string, errs []*FieldError) {
	runes := []rune(s)
	pos := 0
	for {
		field, next, err := scanField(runes, pos, sep, cfg)
		if err != nil {
			err.Field = len(fields) + 1
			errs = append(errs, err)
		}
		fields = append(fields, field)
		if next < 0 {
			return fields, errs
		}
		pos = next
	}
}

// scanField consumes one field starting at pos and returns its raw value
// plus the position just after the following separator, or -1 when the
// record is exhausted.
func scanField(runes []rune, pos int, sep rune, cfg Config) (string, int, *FieldError) {
	// optional leading whitespace then a quote starts a quoted field
	i := pos
	for i < len(runes) && runes[i] != sep && unicode.IsSpace(runes[i]) {
		i++
	}
	if cfg.Quote != 0 && i < len(runes) && runes[i] == cfg.Quote {
		return scanQuotedField(runes, i, sep, cfg)
	}

	// unquoted: take everything up to the next unescaped separator
	var b strings.Builder
	for i = pos; i < len(runes); i++ {
		c := runes[i]
		if cfg.Escape != 0 && c == cfg.Escape && i+1 < len(runes) {
			b.WriteRune(c)
			i++
			b.WriteRune(runes[i])
			continue
		}
		if c == sep {
			return b.String(), i + 1, nil
		}
		b.WriteRune(c)
	}
	return b.String(), -1, nil
}

func scanQuotedField(runes []rune, open int, sep rune, cfg Config) (string, int, *FieldError) {
	var b strings.Builder
	i := open + 1
	for ; i < len(runes); i++ {
		c := runes[i]
		if cfg.Escape != 0 && c == cfg.Escape && i+1 < len(runes) {
			b.WriteRune(c)
			i++
			b.WriteRune(runes[i])
			continue
		}
		if c != cfg.Quote {
			b.WriteRune(c)
			continue
		}
		if cfg.DoubledQuote && i+1 < len(runes) && runes[i+1] == cfg.Quote {
			b.WriteRune(cfg.Quote)
			i++
			continue
		}
		// real closing quote: consume through the following separator
		next, ferr := consumeToSep(runes, i+1, sep, b.String())
		return b.String(), next, ferr
	}
	// no closing quote in a supposedly balanced record
	return b.String(), -1, &FieldError{Msg: fmt.Sprintf("unterminated quote %q", cfg.Quote)}
}

// consumeToSep skips from just after a closing quote to just after the
// next separator, reporting any non-whitespace text in between.
func consumeToSep(runes []rune, pos int, sep rune, value string) (int, *FieldError) {
	var ferr *FieldError
	for i := pos; i < len(runes); i++ {
		c := runes[i]
		if c == sep {
			return i + 1, ferr
		}
		if !unicode.IsSpace(c) && ferr == nil {
			ferr = &FieldError{Msg: fmt.Sprintf("text after closing quote in %q", value)}
		}
	}
	return -1, ferr
}
