package formats

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/joiningdata/tabio/recio"
	"github.com/joiningdata/tabio/schema"
)

// startEngine configures and starts an engine over input.
func startEngine(t *testing.T, syntax string, set map[string]string, input string) *Engine {
	t.Helper()
	e := NewEngine()
	if err := e.Configure(syntax, set); err != nil {
		t.Fatalf("Configure(%q): %v", syntax, err)
	}
	if err := e.Start(strings.NewReader(input)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e
}

// readAllArrays drains the engine in array shape.
func readAllArrays(t *testing.T, e *Engine) [][]string {
	t.Helper()
	var out [][]string
	for {
		arr, err := e.ReadArray()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadArray after %d records: %v", len(out), err)
		}
		out = append(out, arr)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDelimitedHeader(t *testing.T) {
	e := startEngine(t, "delim",
		map[string]string{OptHeader: "true", OptStripWhitespace: "both"},
		"Id, Fname, LName, State\nSigner01, John, Adams, MA\n")

	names := e.Schema().Names()
	if !equalStrings(names, []string{"", "Id", "Fname", "LName", "State"}) {
		t.Errorf("header names = %q", names)
	}
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if want := []string{"", "Signer01", "John", "Adams", "MA"}; !equalStrings(rows[0], want) {
		t.Errorf("record = %q, want %q", rows[0], want)
	}
}

func TestDelimitedAnonymousSchema(t *testing.T) {
	e := startEngine(t, "delim", nil, "a,b\nc,d\n")
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(e.Schema().Names(), []string{"", "F_1", "F_2"}) {
		t.Errorf("synthetic names = %q", e.Schema().Names())
	}
	if !e.Schema().Closed() {
		t.Error("schema still open after the first record")
	}
	if !equalStrings(rows[1], []string{"", "c", "d"}) {
		t.Errorf("second record = %q", rows[1])
	}
}

func TestArrayShapeInvariant(t *testing.T) {
	e := startEngine(t, "delim", nil, "a,b,c\nd\ne,f,g,h\n")
	for i, row := range readAllArrays(t, e) {
		if len(row) != e.Schema().Len()+1 {
			t.Errorf("record %d: %d elements, want %d", i, len(row), e.Schema().Len()+1)
		}
		if row[0] != "" {
			t.Errorf("record %d: slot 0 = %q, want empty", i, row[0])
		}
	}
}

func TestEngineStates(t *testing.T) {
	e := NewEngine()
	if e.State() != Unconfigured {
		t.Fatalf("initial state = %v", e.State())
	}
	if _, err := e.ReadMap(); err != ErrNotConfigured {
		t.Errorf("read before Configure = %v, want ErrNotConfigured", err)
	}
	if err := e.Configure("nope", nil); !errors.Is(err, ErrUnknownSyntax) {
		t.Errorf("Configure(nope) = %v, want ErrUnknownSyntax", err)
	}
	if err := e.Configure("delim", nil); err != nil {
		t.Fatal(err)
	}
	if e.State() != Configured {
		t.Fatalf("state after Configure = %v", e.State())
	}
	if err := e.Start(strings.NewReader("a,b\n")); err != nil {
		t.Fatal(err)
	}
	if e.State() != Streaming {
		t.Fatalf("state after Start = %v", e.State())
	}
	if err := e.Configure("delim", nil); err == nil {
		t.Error("Configure while streaming should fail")
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ReadMap(); err != ErrClosed {
		t.Errorf("read after Close = %v, want ErrClosed", err)
	}
	if err := e.Start(strings.NewReader("")); err != ErrClosed {
		t.Errorf("Start after Close = %v, want ErrClosed", err)
	}
}

func TestBadOptionRetainsPrior(t *testing.T) {
	e := NewEngine()
	if err := e.Configure("delim", map[string]string{OptSeparator: "toolong"}); err != nil {
		t.Fatal(err)
	}
	if got := e.Options().Get(OptSeparator); got != "," {
		t.Errorf("separator = %q, want default retained", got)
	}
	if len(e.Diagnostics()) == 0 {
		t.Error("bad option value not reported")
	}
}

func TestUnterminatedQuoteWithoutEmbeddedNewlines(t *testing.T) {
	e := startEngine(t, "delim", nil, "a,\"b,c\n")
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if rows[0][1] != "a" {
		t.Errorf("first field = %q, want a", rows[0][1])
	}
	if len(e.Diagnostics()) == 0 {
		t.Error("unbalanced quote not reported")
	}
}

func TestBoundaryErrorIsSticky(t *testing.T) {
	e := startEngine(t, "delim",
		map[string]string{OptEmbeddedNewlines: "true"},
		"a,\"b\n")
	_, err := e.ReadMap()
	var be *recio.BoundaryError
	if !errors.As(err, &be) {
		t.Fatalf("ReadMap = %v, want *recio.BoundaryError", err)
	}
	if _, again := e.ReadMap(); again != err {
		t.Errorf("second ReadMap = %v, want the same fatal error", again)
	}
	if e.Err() != err {
		t.Errorf("Err() = %v, want the fatal error", e.Err())
	}
}

func TestDatatypeViolationStillReturned(t *testing.T) {
	e := NewEngine()
	if err := e.Configure("delim", nil); err != nil {
		t.Fatal(err)
	}
	f := e.Schema().Append("Age")
	f.Type, _ = schema.LookupType("int64")
	if err := e.Start(strings.NewReader("abc\n12\n")); err != nil {
		t.Fatal(err)
	}
	m, err := e.ReadMap()
	if err != nil {
		t.Fatal(err)
	}
	if m["Age"] != "abc" {
		t.Errorf("offending value withheld: %q", m["Age"])
	}
	found := false
	for _, d := range e.Diagnostics() {
		if errors.Is(d, schema.ErrBadValue) {
			found = true
		}
	}
	if !found {
		t.Error("datatype violation not reported")
	}
	if m, err = e.ReadMap(); err != nil || m["Age"] != "12" {
		t.Errorf("second record = %v, %v", m, err)
	}
}

func TestEngineComments(t *testing.T) {
	e := startEngine(t, "delim",
		map[string]string{OptCommentPrefix: "#"},
		"# leading comment\na,b\n# middle\nc,d\n")
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
}
