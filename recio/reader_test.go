package recio

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSourceReadLine(t *testing.T) {
	src := NewStringSource("one\r\ntwo\nthree")
	for i, want := range []string{"one", "two", "three"} {
		got, err := src.ReadLine()
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if got != want {
			t.Errorf("line %d = %q, want %q", i, got, want)
		}
	}
	if _, err := src.ReadLine(); err != io.EOF {
		t.Errorf("err after last line = %v, want io.EOF", err)
	}
}

func TestSourcePushBack(t *testing.T) {
	src := NewStringSource("next\n")
	src.PushBack("restored")
	got, err := src.ReadLine()
	if err != nil || got != "restored" {
		t.Fatalf("ReadLine = %q, %v", got, err)
	}
	got, err = src.ReadLine()
	if err != nil || got != "next" {
		t.Fatalf("ReadLine = %q, %v", got, err)
	}
}

func TestSourceRewind(t *testing.T) {
	src := NewStringSource("a\nb\n")
	src.ReadLine()
	src.ReadLine()
	if err := src.Rewind(); err != nil {
		t.Fatal(err)
	}
	got, err := src.ReadLine()
	if err != nil || got != "a" {
		t.Fatalf("after Rewind = %q, %v", got, err)
	}

	plain := NewSource(onlyReader{strings.NewReader("x")})
	if err := plain.Rewind(); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Rewind on plain reader err = %v", err)
	}
}

type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestLineBoundary(t *testing.T) {
	src := NewStringSource("# heading\na,b\nc,d\n")
	r := NewReader(src, Line, Config{CommentPrefix: "#"})

	recs := drain(t, r)
	if len(recs) != 2 || recs[0] != "a,b" || recs[1] != "c,d" {
		t.Errorf("records = %q", recs)
	}
}

func TestQuoteBalancedSpansLines(t *testing.T) {
	in := "id,note\n1,\"line one\nline two\"\n2,plain\n"
	src := NewStringSource(in)
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', EmbeddedNewlines: true})

	recs := drain(t, r)
	want := []string{"id,note", "1,\"line one\nline two\"", "2,plain"}
	if len(recs) != len(want) {
		t.Fatalf("records = %q", recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, recs[i], want[i])
		}
	}
}

// Quote balance property: however the quoted spans fall across physical
// lines, each complete set of balanced quotes is one record.
func TestQuoteBalanceProperty(t *testing.T) {
	segments := []string{"a", "\"x\ny\"", "b", "\"p\nq\nr\"", "c"}
	in := strings.Join(segments, ",") + "\n"
	src := NewStringSource(in)
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', EmbeddedNewlines: true})

	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != strings.TrimSuffix(in, "\n") {
		t.Errorf("record = %q", rec)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("second Read err = %v, want io.EOF", err)
	}
}

func TestQuoteUnbalancedNoEmbeddedNewlines(t *testing.T) {
	// a,"b,c with an unterminated quote and embedded newlines off
	src := NewStringSource("a,\"b,c\n")
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', EmbeddedNewlines: false})

	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != `a,"b,c` {
		t.Errorf("record = %q, want the unbalanced text intact", rec)
	}
	if w := r.TakeWarnings(); len(w) != 1 {
		t.Errorf("warnings = %v, want one boundary warning", w)
	}
	if w := r.TakeWarnings(); len(w) != 0 {
		t.Errorf("warnings not drained: %v", w)
	}
}

func TestQuoteUnterminatedAtEOF(t *testing.T) {
	src := NewStringSource("a,\"b\nstill open\n")
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', EmbeddedNewlines: true})

	_, err := r.Read()
	var be *BoundaryError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BoundaryError", err)
	}
	if be.Partial == "" {
		t.Errorf("partial text was discarded")
	}

	// boundary errors are fatal for the table
	if _, err2 := r.Read(); !errors.As(err2, &be) {
		t.Errorf("subsequent Read err = %v, want the same boundary error", err2)
	}
}

func TestQuoteBalanceWithDoubledQuotes(t *testing.T) {
	// doubled quotes are escaped literals and must not flip the balance
	src := NewStringSource("a,\"he said \"\"hi\"\"\",b\n")
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', DoubledQuote: true, EmbeddedNewlines: true})
	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != `a,"he said ""hi""",b` {
		t.Errorf("record = %q", rec)
	}
}

func TestQuoteBalanceWithEscapeChar(t *testing.T) {
	src := NewStringSource(`a,"x \" y",b` + "\n")
	r := NewReader(src, QuoteBalanced, Config{Quote: '"', Escape: '\\', EmbeddedNewlines: true})
	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != `a,"x \" y",b` {
		t.Errorf("record = %q", rec)
	}
}

func TestBracketBalanced(t *testing.T) {
	// text after the balanced brackets stays unread
	src := NewStringSource(`{ "a": [1,2], "b": "x" } trailing`)
	r := NewReader(src, BracketBalanced, Config{Quote: '"'})

	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != `{ "a": [1,2], "b": "x" }` {
		t.Errorf("record = %q", rec)
	}

	rest, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rest != "trailing" {
		t.Errorf("pushed-back remainder = %q", rest)
	}
}

func TestBracketBalancedMultiline(t *testing.T) {
	in := "(define (f x)\n  (* x x)) ; comment\n(next)\n"
	src := NewStringSource(in)
	r := NewReader(src, BracketBalanced, Config{Quote: '"', CommentPrefix: ";"})

	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != "(define (f x)\n  (* x x))" {
		t.Errorf("record = %q", rec)
	}
	rec, err = r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != "(next)" {
		t.Errorf("second record = %q", rec)
	}
}

func TestBracketQuotedSpansIgnoreNesting(t *testing.T) {
	src := NewStringSource(`{"text": "open { [ ("}`)
	r := NewReader(src, BracketBalanced, Config{Quote: '"'})
	rec, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if rec != `{"text": "open { [ ("}` {
		t.Errorf("record = %q", rec)
	}
}

func TestBracketUnterminated(t *testing.T) {
	src := NewStringSource("{ \"a\": [1,\n")
	r := NewReader(src, BracketBalanced, Config{Quote: '"'})
	_, err := r.Read()
	var be *BoundaryError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BoundaryError", err)
	}
}

func TestContinuationBlocks(t *testing.T) {
	in := "From: alice\nSubject: greetings\n and salutations\n\nFrom: bob\n\n"
	src := NewStringSource(in)
	r := NewReader(src, Continuation, Config{})

	recs := drain(t, r)
	if len(recs) != 2 {
		t.Fatalf("records = %q", recs)
	}
	if recs[0] != "From: alice\nSubject: greetings\n and salutations" {
		t.Errorf("first block = %q", recs[0])
	}
	if recs[1] != "From: bob" {
		t.Errorf("second block = %q", recs[1])
	}
}

func TestMarkupRows(t *testing.T) {
	in := `<table><tr><td>a</td><td>b</td></tr>
<!-- a comment with </tr> inside -->
<tr>
  <td>c</td>
</tr></table>`
	src := NewStringSource(in)
	r := NewReader(src, Markup, Config{RowElement: "tr"})

	recs := drain(t, r)
	if len(recs) != 2 {
		t.Fatalf("records = %q", recs)
	}
	if recs[0] != "<tr><td>a</td><td>b</td></tr>" {
		t.Errorf("first row = %q", recs[0])
	}
	if !strings.Contains(recs[1], "<td>c</td>") {
		t.Errorf("second row = %q", recs[1])
	}
}

func TestMarkupUnterminatedRow(t *testing.T) {
	src := NewStringSource("<table><tr><td>a</td>")
	r := NewReader(src, Markup, Config{RowElement: "tr"})
	_, err := r.Read()
	var be *BoundaryError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BoundaryError", err)
	}
}

func drain(t *testing.T, r *Reader) []string {
	t.Helper()
	var recs []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return recs
		}
		if err != nil {
			t.Fatal(err)
		}
		recs = append(recs, rec)
	}
}
