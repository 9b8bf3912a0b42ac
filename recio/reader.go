package recio

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotSeekable indicates a Rewind over a stream with no Seeker.
	ErrNotSeekable = errors.New("tabio/recio: source is not seekable")
)

// A BoundaryError reports an unterminated balanced construct at end of
// input. It is fatal for the current table: the Reader returns no further
// records after reporting one.
type BoundaryError struct {
	// Line is the physical line where the record began.
	Line int

	// Msg describes the unterminated construct.
	Msg string

	// Partial is the text accumulated before input ended. It is retained
	// for diagnostics, never silently discarded.
	Partial string
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("tabio/recio: line %d: %s at end of input", e.Line, e.Msg)
}

// Boundary selects the rule that decides where one logical record ends.
type Boundary int

// The boundary kinds.
const (
	// Line: one physical line is one logical record.
	Line Boundary = iota

	// QuoteBalanced: append physical lines until the quote count is
	// balanced (CSV-like quoted newlines).
	QuoteBalanced

	// BracketBalanced: scan until ()/[]/{} nesting returns to zero
	// (JSON / S-expression style).
	BracketBalanced

	// Continuation: lines until a whitespace-only line; lines beginning
	// with whitespace continue the previous one (mail-header style).
	Continuation

	// Markup: read until the close tag of the configured row element
	// (XHTML-table style).
	Markup
)

// Config carries the syntax-level parameters the boundary scans honor.
// Zero values disable the matching feature.
type Config struct {
	// Quote is the quote character (QuoteBalanced, BracketBalanced).
	Quote rune

	// Escape is the escape character, 0 when escaping is off.
	Escape rune

	// DoubledQuote enables the doubled-quote-to-escape convention.
	DoubledQuote bool

	// EmbeddedNewlines allows quoted values to span physical lines. When
	// off, an unbalanced line is reported as a warning and returned
	// as-is rather than extended with further reads.
	EmbeddedNewlines bool

	// CommentPrefix, when non-empty, marks comment text: whole lines
	// beginning with it are skipped between records, and inside a
	// bracket-balanced record it kills the rest of the physical line
	// when it appears outside any quote or bracket.
	CommentPrefix string

	// RowElement is the element name whose close tag ends a Markup
	// record.
	RowElement string
}

// Reader produces logical records from a Source under one Boundary kind.
// After a BoundaryError every subsequent Read returns the same error.
type Reader struct {
	src  *Source
	kind Boundary
	cfg  Config

	warnings []error
	fatal    error
}

// NewReader returns a Reader over src using the given boundary kind.
func NewReader(src *Source, kind Boundary, cfg Config) *Reader {
	return &Reader{src: src, kind: kind, cfg: cfg}
}

// Source returns the underlying raw source.
func (r *Reader) Source() *Source { return r.src }

// Warn records a recoverable problem without interrupting the stream.
func (r *Reader) Warn(err error) { r.warnings = append(r.warnings, err) }

// TakeWarnings returns the warnings accumulated since the previous call
// and resets the list.
func (r *Reader) TakeWarnings() []error {
	w := r.warnings
	r.warnings = nil
	return w
}

// Read returns the next logical record. It returns io.EOF at the end of
// input and a *BoundaryError when input ends inside an unterminated
// balanced construct.
func (r *Reader) Read() (string, error) {
	if r.fatal != nil {
		return "", r.fatal
	}
	rec, err := r.read()
	if err != nil {
		var be *BoundaryError
		if errors.As(err, &be) {
			r.fatal = err
		}
	}
	return rec, err
}

func (r *Reader) read() (string, error) {
	switch r.kind {
	case QuoteBalanced:
		return r.readQuoteBalanced()
	case BracketBalanced:
		return r.readBracketBalanced()
	case Continuation:
		return r.readContinuation()
	case Markup:
		return r.readMarkup()
	}
	return r.readLine()
}

// readDataLine returns the next physical line that is not a comment.
func (r *Reader) readDataLine() (string, error) {
	for {
		line, err := r.src.ReadLine()
		if err != nil {
			return "", err
		}
		if r.cfg.CommentPrefix != "" && strings.HasPrefix(line, r.cfg.CommentPrefix) {
			continue
		}
		return line, nil
	}
}

func (r *Reader) readLine() (string, error) {
	return r.readDataLine()
}

func (r *Reader) readContinuation() (string, error) {
	// skip blank separators left over from the previous block
	var first string
	for {
		line, err := r.readDataLine()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}

	lines := []string{first}
	for {
		line, err := r.src.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
