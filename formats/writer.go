package formats

import (
	"bufio"
	"fmt"
	"io"

	"github.com/joiningdata/tabio/schema"
)

// SyntaxWriter assembles records into one syntax. The header (when the
// syntax has one) is emitted lazily before the first record, once the
// schema is known; Close emits the trailer.
type SyntaxWriter struct {
	w     *bufio.Writer
	strat Strategy
	sch   *schema.Schema
	term  string

	headerDone bool
	stickyErr  error
	diags      []error
}

// NewWriter returns a SyntaxWriter assembling the named syntax with the
// given option settings.
func NewWriter(w io.Writer, syntax string, set map[string]string) (*SyntaxWriter, error) {
	sw := &SyntaxWriter{w: bufio.NewWriter(w), sch: schema.New()}
	opts := DefaultOptions()
	opts.Set(OptSyntax, syntax)
	applySyntaxDefaults(syntax, opts)
	for name, value := range set {
		if err := opts.Set(name, value); err != nil {
			return nil, err
		}
	}
	strat, err := newStrategy(syntax, opts, sw.sch, func(err error) {
		sw.diags = append(sw.diags, err)
	})
	if err != nil {
		return nil, err
	}
	sw.strat = strat
	sw.term = opts.Get(OptTerminator)
	return sw, nil
}

// Schema returns the writer's schema so callers can declare fields
// (widths, types, defaults) before the first record.
func (sw *SyntaxWriter) Schema() *schema.Schema { return sw.sch }

// Diagnostics returns the non-fatal problems reported while assembling.
func (sw *SyntaxWriter) Diagnostics() []error { return sw.diags }

func (sw *SyntaxWriter) emit(text string) error {
	if sw.stickyErr != nil {
		return sw.stickyErr
	}
	if _, err := sw.w.WriteString(text); err != nil {
		sw.stickyErr = err
		return err
	}
	if _, err := sw.w.WriteString(sw.term); err != nil {
		sw.stickyErr = err
		return err
	}
	return nil
}

func (sw *SyntaxWriter) ensureHeader() error {
	if sw.headerDone {
		return nil
	}
	sw.headerDone = true
	sw.sch.Close()
	if text, ok := sw.strat.AssembleHeader(); ok {
		return sw.emit(text)
	}
	return nil
}

// Write serializes the Record.
// (Implements the formats.Writer interface)
func (sw *SyntaxWriter) Write(rec *Record) error {
	if sw.stickyErr != nil {
		return sw.stickyErr
	}
	if !sw.headerDone && sw.sch.Len() == 0 {
		for _, name := range rec.Fields {
			sw.sch.Append(name)
		}
	}
	return sw.WriteArray(sw.sch.ArrayFromMap(rec.Map()))
}

// WriteArray serializes one array-shaped record (slot 0 reserved).
func (sw *SyntaxWriter) WriteArray(values []string) error {
	if err := sw.ensureHeader(); err != nil {
		return err
	}
	text, err := sw.strat.AssembleRecord(values)
	if err != nil {
		sw.stickyErr = err
		return err
	}
	return sw.emit(text)
}

// Comment emits text as a comment of the syntax. Syntaxes with no
// comment concept silently drop it.
func (sw *SyntaxWriter) Comment(text string) error {
	if sw.stickyErr != nil {
		return sw.stickyErr
	}
	if c, ok := sw.strat.AssembleComment(text); ok {
		return sw.emit(c)
	}
	return nil
}

// Close emits the trailer (and the header of an empty document) and
// flushes buffered output.
func (sw *SyntaxWriter) Close() error {
	if sw.stickyErr != nil {
		return sw.stickyErr
	}
	if err := sw.ensureHeader(); err != nil {
		return err
	}
	if text, ok := sw.strat.AssembleTrailer(); ok {
		if err := sw.emit(text); err != nil {
			return err
		}
	}
	if err := sw.w.Flush(); err != nil {
		sw.stickyErr = err
		return err
	}
	return nil
}

// Err returns the last error that occured.
func (sw *SyntaxWriter) Err() error { return sw.stickyErr }

// Convert pipes every record of r into w and closes w. It is the whole
// of cross-syntax conversion: read strategy A, write strategy B.
func Convert(r Reader, w Writer) error {
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tabio/formats: convert read: %w", err)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("tabio/formats: convert write: %w", err)
		}
	}
	if c, ok := w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
