package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joiningdata/tabio/options"
	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

var (
	// ErrUnknownSyntax indicates a syntax name outside the closed set.
	ErrUnknownSyntax = errors.New("tabio/formats: unknown syntax")

	// ErrClosed indicates a read or write on a Closed engine.
	ErrClosed = errors.New("tabio/formats: engine is closed")

	// ErrNotConfigured indicates a read before Configure/Start.
	ErrNotConfigured = errors.New("tabio/formats: engine is not configured")

	// ErrUnsupportedFormat indicates that the file format is not supported.
	ErrUnsupportedFormat = errors.New("tabio/formats: unsupported format")

	// ErrWriterNotSupported is returned when assembly is not implemented
	// for a syntax.
	ErrWriterNotSupported = errors.New("tabio/formats: Writer not supported for this syntax")
)

// Record represents a single record sourced from any syntax.
type Record struct {
	// Fields contains the field names for each value.
	Fields []string

	// Values contains the values of each corresponding Field.
	Values []string
}

// Map returns a map of fields and values for the Record.
func (r *Record) Map() map[string]string {
	res := make(map[string]string, len(r.Values))
	for i, f := range r.Fields {
		if i < len(r.Values) {
			res[f] = r.Values[i]
		}
	}
	return res
}

// Reader returns Records from a supported syntax.
type Reader interface {
	// Next returns the next Record in the document, io.EOF at the end.
	Next() (*Record, error)

	// Err returns the last error that occured.
	Err() error
}

// Writer serializes records to a supported syntax.
type Writer interface {
	// Write serializes the Record.
	Write(*Record) error

	// Err returns the last error that occured.
	Err() error
}

// Strategy is the syntax-specific implementation of parse/assemble
// operations. The set of strategies is closed: one per supported syntax,
// selected once at configure time by name.
type Strategy interface {
	// Name returns the syntax name.
	Name() string

	// Boundary returns the logical-record boundary kind of the syntax.
	Boundary() recio.Boundary

	// ReadHeader consumes the syntax's header, if it has one, and
	// returns the declared field names. Syntaxes with no header concept
	// return (nil, nil) without consuming input.
	ReadHeader(r *recio.Reader) ([]string, error)

	// ParseRecord parses one logical record into a name→value map.
	// Recoverable field problems are reported through the engine's
	// diagnostics; the map is always usable.
	ParseRecord(rec string) (map[string]string, error)

	// AssembleRecord renders an array-shaped record (slot 0 reserved)
	// as one logical record of the syntax, without its terminator.
	AssembleRecord(values []string) (string, error)

	// AssembleField renders a single value the way the syntax would
	// embed it in a record (quoting, padding, escaping).
	AssembleField(f *schema.FieldDef, value string) string

	// AssembleHeader renders the syntax's header; ok is false for
	// syntaxes with no header concept.
	AssembleHeader() (text string, ok bool)

	// AssembleTrailer renders closing text emitted after the last
	// record; ok is false when the syntax needs none.
	AssembleTrailer() (text string, ok bool)

	// AssembleComment renders text as a comment; ok is false for
	// syntaxes with no comment concept.
	AssembleComment(text string) (string, bool)
}

// state shared by every strategy implementation.
type strategyBase struct {
	opts *options.Store
	sch  *schema.Schema
	diag func(error)
}

func (b *strategyBase) report(err error) {
	if b.diag != nil {
		b.diag(err)
	}
}

// newStrategy constructs the named syntax strategy. The syntax set is
// fixed; there is no runtime registration.
func newStrategy(name string, opts *options.Store, sch *schema.Schema, diag func(error)) (Strategy, error) {
	base := strategyBase{opts: opts, sch: sch, diag: diag}
	switch name {
	case "delim":
		return &delimStrategy{strategyBase: base}, nil
	case "fixed":
		return &fixedStrategy{strategyBase: base}, nil
	case "arff":
		return &arffStrategy{strategyBase: base}, nil
	case "hdr":
		return &hdrStrategy{strategyBase: base}, nil
	case "json":
		return &jsonStrategy{strategyBase: base}, nil
	case "sexp":
		return &sexpStrategy{strategyBase: base}, nil
	case "owl":
		return &owlStrategy{strategyBase: base}, nil
	case "perl":
		return &perlStrategy{strategyBase: base}, nil
	case "xhtml":
		return &xhtmlStrategy{strategyBase: base}, nil
	case "xsv":
		return &xsvStrategy{strategyBase: base}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSyntax, name)
}

// Syntaxes lists the supported syntax names.
func Syntaxes() []string {
	return []string{"delim", "fixed", "arff", "hdr", "json", "sexp", "owl", "perl", "xhtml", "xsv"}
}

// SyntaxForExtension guesses a syntax name from a file extension
// (including the dot). It returns "" when nothing matches.
func SyntaxForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".csv", ".tsv", ".tab", ".txt":
		return "delim"
	case ".arff":
		return "arff"
	case ".json", ".js":
		return "json"
	case ".lisp", ".sexp", ".el":
		return "sexp"
	case ".omn", ".owl":
		return "owl"
	case ".pl", ".pm":
		return "perl"
	case ".html", ".xhtml", ".htm":
		return "xhtml"
	case ".xsv", ".xml":
		return "xsv"
	case ".hdr", ".mbox", ".eml":
		return "hdr"
	}
	return ""
}

// ExtensionForSyntax returns the conventional file extension (with the
// dot) for output in the named syntax, "" when the syntax is unknown.
func ExtensionForSyntax(syntax string) string {
	switch syntax {
	case "delim":
		return ".csv"
	case "fixed":
		return ".txt"
	case "arff":
		return ".arff"
	case "hdr":
		return ".hdr"
	case "json":
		return ".json"
	case "sexp":
		return ".sexp"
	case "owl":
		return ".omn"
	case "perl":
		return ".pl"
	case "xhtml":
		return ".html"
	case "xsv":
		return ".xsv"
	case "xlsx":
		return ".xlsx"
	}
	return ""
}

// Open configures and starts an Engine for the input file based on its
// extension. Returns ErrUnsupportedFormat when no syntax matches.
func Open(in *os.File) (*Engine, error) {
	info, err := in.Stat()
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(info.Name()))
	syntax := SyntaxForExtension(ext)
	if syntax == "" {
		return nil, ErrUnsupportedFormat
	}

	e := NewEngine()
	set := map[string]string{}
	if syntax == "delim" {
		set[OptHeader] = "true"
		if ext == ".tsv" || ext == ".tab" || ext == ".txt" {
			set[OptSeparator] = `\t`
		}
	}
	if err := e.Configure(syntax, set); err != nil {
		return nil, err
	}
	if err := e.Start(in); err != nil {
		return nil, err
	}
	return e, nil
}
