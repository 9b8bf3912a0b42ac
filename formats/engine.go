package formats

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joiningdata/tabio/options"
	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// Names of the standard engine options.
const (
	// OptSyntax is the selected syntax name (read-only once configured).
	OptSyntax = "syntax"

	// OptSeparator is the field separator character (delim).
	OptSeparator = "separator"

	// OptQuote is the quote character; empty disables quoting.
	OptQuote = "quote"

	// OptEscape is the escape character; empty disables escaping.
	OptEscape = "escape"

	// OptDoubledQuote enables the doubled-quote-to-escape convention.
	OptDoubledQuote = "doubled-quote"

	// OptEmbeddedNewlines allows quoted values to span physical lines.
	OptEmbeddedNewlines = "embedded-newlines"

	// OptHeader declares that the input starts with a header record.
	OptHeader = "header"

	// OptCommentPrefix marks comment text; empty disables comments.
	OptCommentPrefix = "comment-prefix"

	// OptStripWhitespace is the whitespace disposition applied to parsed
	// field values: keep, leading, trailing or both.
	OptStripWhitespace = "strip-whitespace"

	// OptTableElement is the table element name (xhtml, xsv).
	OptTableElement = "table-element"

	// OptRowElement is the row element name (xhtml, xsv).
	OptRowElement = "row-element"

	// OptCellElement is the cell element name (xhtml).
	OptCellElement = "cell-element"

	// OptDeclElement is the schema-declaration element name (xsv).
	OptDeclElement = "decl-element"

	// OptWidths is a comma-separated list of column widths (fixed).
	OptWidths = "widths"

	// OptPad is the padding character for fixed-width columns.
	OptPad = "pad"

	// OptTerminator is the record terminator used when assembling.
	OptTerminator = "record-terminator"
)

// DefaultOptions returns a Store carrying every standard engine option
// with its default value.
func DefaultOptions() *options.Store {
	o := options.New()
	o.Define(OptSyntax, options.String, "")
	o.Define(OptSeparator, options.Char, ",")
	o.Define(OptQuote, options.Char, `"`)
	o.Define(OptEscape, options.Char, "")
	o.Define(OptDoubledQuote, options.Bool, "true")
	o.Define(OptEmbeddedNewlines, options.Bool, "false")
	o.Define(OptHeader, options.Bool, "false")
	o.Define(OptCommentPrefix, options.String, "")
	o.Define(OptStripWhitespace, options.Enum, "keep", "keep", "leading", "trailing", "both")
	o.Define(OptTableElement, options.String, "table")
	o.Define(OptRowElement, options.String, "tr")
	o.Define(OptCellElement, options.String, "td")
	o.Define(OptDeclElement, options.String, "decl")
	o.Define(OptWidths, options.String, "")
	o.Define(OptPad, options.Char, " ")
	o.Define(OptTerminator, options.String, "\n")
	return o
}

// State is the lifecycle phase of an Engine.
type State int

// Engine lifecycle states.
const (
	Unconfigured State = iota
	Configured
	HeaderPending
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case HeaderPending:
		return "header-pending"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	}
	return "unconfigured"
}

// Engine drives one syntax strategy over one input. Each Engine owns its
// Schema, Options and record-reader cursor; two Engines never share
// state. It is not safe for concurrent use.
type Engine struct {
	state  State
	syntax string

	opts  *options.Store
	sch   *schema.Schema
	strat Strategy
	rr    *recio.Reader

	recno      int
	lastRecord string

	diags     []error
	stickyErr error

	log *slog.Logger
}

// NewEngine returns an Unconfigured engine with default options.
func NewEngine() *Engine {
	return &Engine{
		opts: DefaultOptions(),
		sch:  schema.New(),
		log:  slog.Default(),
	}
}

// Options returns the engine's option store.
func (e *Engine) Options() *options.Store { return e.opts }

// Schema returns the engine's schema.
func (e *Engine) Schema() *schema.Schema { return e.sch }

// State returns the engine's lifecycle state.
func (e *Engine) State() State { return e.state }

// RecordNumber returns how many data records have been parsed so far.
func (e *Engine) RecordNumber() int { return e.recno }

// LastRecord returns the raw text of the most recent logical record,
// retained for diagnostics only.
func (e *Engine) LastRecord() string { return e.lastRecord }

// Diagnostics returns every non-fatal problem reported so far: field
// errors, schema mismatches, datatype violations, boundary warnings.
func (e *Engine) Diagnostics() []error { return e.diags }

func (e *Engine) report(err error) {
	e.diags = append(e.diags, err)
	e.log.Debug("tabio diagnostic", "syntax", e.syntax, "record", e.recno, "err", err)
}

// Configure selects a syntax and applies option settings. It may be
// called again before Start to reconfigure. Option values that fail
// their type grammar are reported and skipped; the remaining settings
// still apply.
func (e *Engine) Configure(syntax string, set map[string]string) error {
	if e.state != Unconfigured && e.state != Configured {
		return fmt.Errorf("tabio/formats: Configure in state %v", e.state)
	}
	strat, err := newStrategy(syntax, e.opts, e.sch, e.report)
	if err != nil {
		return err
	}
	e.syntax = syntax
	e.strat = strat
	e.opts.Set(OptSyntax, syntax)
	applySyntaxDefaults(syntax, e.opts)

	for name, value := range set {
		if err := e.opts.Set(name, value); err != nil {
			e.report(err)
		}
	}
	e.state = Configured
	return nil
}

// per-syntax option defaults applied at Configure time, before the
// caller's explicit settings
func applySyntaxDefaults(syntax string, o *options.Store) {
	switch syntax {
	case "arff":
		o.Set(OptCommentPrefix, "%")
	case "sexp":
		o.Set(OptCommentPrefix, ";")
	case "owl":
		o.Set(OptCommentPrefix, "#")
	case "perl":
		o.Set(OptCommentPrefix, "#")
		o.Set(OptQuote, "'")
		o.Set(OptEscape, `\\`)
	case "json":
		o.Set(OptEscape, `\\`)
		o.Set(OptDoubledQuote, "false")
	case "xsv":
		o.Set(OptTableElement, "xsv")
		o.Set(OptRowElement, "row")
	}
}

// Strategy returns the configured syntax strategy.
func (e *Engine) Strategy() Strategy { return e.strat }

func (e *Engine) boundaryConfig() recio.Config {
	return recio.Config{
		Quote:            e.opts.GetChar(OptQuote),
		Escape:           e.opts.GetChar(OptEscape),
		DoubledQuote:     e.opts.GetBool(OptDoubledQuote),
		EmbeddedNewlines: e.opts.GetBool(OptEmbeddedNewlines),
		CommentPrefix:    e.opts.Get(OptCommentPrefix),
		RowElement:       e.opts.Get(OptRowElement),
	}
}

// Start opens the raw source and consumes the header when the syntax
// declares one, leaving the engine in Streaming state.
func (e *Engine) Start(r io.Reader) error {
	if e.state != Configured {
		if e.state == Closed {
			return ErrClosed
		}
		return ErrNotConfigured
	}
	e.rr = recio.NewReader(recio.NewSource(r), e.strat.Boundary(), e.boundaryConfig())

	e.state = HeaderPending
	names, err := e.strat.ReadHeader(e.rr)
	e.takeWarnings()
	if err != nil {
		e.stickyErr = err
		return err
	}
	if names != nil {
		e.sch.PopulateFromHeader(names)
	}
	e.state = Streaming
	return nil
}

func (e *Engine) takeWarnings() {
	if e.rr == nil {
		return
	}
	for _, w := range e.rr.TakeWarnings() {
		e.report(w)
	}
}

// ReadMap returns the next record as a name→value map. At the end of
// input it returns io.EOF; a *recio.BoundaryError is fatal for the
// table and repeats on every subsequent call.
func (e *Engine) ReadMap() (map[string]string, error) {
	switch e.state {
	case Streaming:
	case Closed:
		return nil, ErrClosed
	default:
		return nil, ErrNotConfigured
	}
	if e.stickyErr != nil {
		return nil, e.stickyErr
	}

	var (
		m   map[string]string
		rec string
	)
	for {
		var err error
		rec, err = e.rr.Read()
		e.takeWarnings()
		if err != nil {
			if err != io.EOF {
				e.report(err)
				e.stickyErr = err
			}
			return nil, err
		}
		e.lastRecord = rec

		m, err = e.strat.ParseRecord(rec)
		if err == errSkipRecord {
			// structural filler between records (array commas, closing
			// brackets); not a data record
			continue
		}
		if err != nil {
			// a malformed record is recoverable; the caller decides
			e.report(err)
		}
		break
	}
	e.recno++
	if !e.sch.Closed() && e.recno == 1 {
		// first record defines the field count for header-less input
		e.sch.Close()
	}
	e.validate(m)
	return m, nil
}

// validate checks declared-type fields and applies base-URI factoring.
// Violations are reported; the offending values are still returned.
func (e *Engine) validate(m map[string]string) {
	for _, f := range e.sch.Fields() {
		v, ok := m[f.Name]
		if !ok {
			continue
		}
		if f.BaseURI != "" && v != "" && !strings.HasPrefix(v, f.BaseURI) {
			v = f.ApplyPrefix(v)
			m[f.Name] = v
		}
		if f.Type == nil || v == "" {
			continue
		}
		for _, one := range f.SplitValue(v) {
			if err := f.Type.Validate(one); err != nil {
				e.report(fmt.Errorf("record %d, field %q: %w", e.recno, f.Name, err))
			}
		}
	}
}

// ReadArray returns the next record in array shape: always
// Schema.Len()+1 elements with index 0 empty once the schema is closed.
// It is derived from ReadMap plus the schema's ordinal ordering.
func (e *Engine) ReadArray() ([]string, error) {
	m, err := e.ReadMap()
	if err != nil {
		return nil, err
	}
	return e.sch.ArrayFromMap(m), nil
}

// Next returns the next Record in the document.
// (Implements the formats.Reader interface)
func (e *Engine) Next() (*Record, error) {
	arr, err := e.ReadArray()
	if err != nil {
		return nil, err
	}
	names := e.sch.Names()
	return &Record{Fields: names[1:], Values: arr[1:]}, nil
}

// Err returns the last fatal error that occured.
func (e *Engine) Err() error { return e.stickyErr }

// Close moves the engine to its terminal state; all further reads
// report ErrClosed.
func (e *Engine) Close() error {
	if e.state == Closed {
		return nil
	}
	e.state = Closed
	if e.rr != nil {
		return e.rr.Source().Close()
	}
	return nil
}

var (
	errSyntax = errors.New("tabio/formats: malformed record")

	// errSkipRecord marks a logical record that is structural filler
	// rather than data; the engine reads on without counting it.
	errSkipRecord = errors.New("tabio/formats: skip record")
)
