package formats

import (
	"testing"
)

func TestFixedColumns(t *testing.T) {
	e := startEngine(t, "fixed",
		map[string]string{OptHeader: "true", OptWidths: "3,5", OptStripWhitespace: "both"},
		"Id Name\nA  Bob\nB  Sue X\n")
	if !equalStrings(e.Schema().Names(), []string{"", "Id", "Name"}) {
		t.Fatalf("names = %q", e.Schema().Names())
	}
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "A", "Bob"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
	// the final column takes the remainder of the line
	if rows[1][2] != "Sue X" {
		t.Errorf("final column = %q, want %q", rows[1][2], "Sue X")
	}
}

func TestARFF(t *testing.T) {
	const input = `% people sample
@relation people
@attribute Name string
@attribute Age numeric
@attribute Grade {a,b,c}
@data
John,23,a
'Mary Jane',?,b
`
	e := startEngine(t, "arff", nil, input)
	if !equalStrings(e.Schema().Names(), []string{"", "Name", "Age", "Grade"}) {
		t.Fatalf("names = %q", e.Schema().Names())
	}
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "John", "23", "a"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
	// quoted name, missing-value marker
	if !equalStrings(rows[1], []string{"", "Mary Jane", "", "b"}) {
		t.Errorf("record 2 = %q", rows[1])
	}
	if f, ok := e.Schema().Lookup("Age"); !ok || f.Type == nil {
		t.Error("attribute type not applied to the schema")
	}
	for _, d := range e.Diagnostics() {
		t.Errorf("unexpected diagnostic: %v", d)
	}
}

func TestMailHeaderBlocks(t *testing.T) {
	const input = `Name: John
Addr: 12 Main St,
  Boston MA
Tags: a
Tags: b

Name: Sue
`
	e := startEngine(t, "hdr", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	want := []string{"", "John", "12 Main St, Boston MA", "a, b"}
	if !equalStrings(rows[0], want) {
		t.Errorf("record 1 = %q, want %q", rows[0], want)
	}
	if rows[1][1] != "Sue" || rows[1][2] != "" {
		t.Errorf("record 2 = %q", rows[1])
	}
}

func TestJSONObjects(t *testing.T) {
	const input = `[
  { "id": 1, "name": "Ann" },
  { "id": 2, "name": "Bob" }
]
`
	e := startEngine(t, "json", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(e.Schema().Names(), []string{"", "id", "name"}) {
		t.Errorf("names = %q", e.Schema().Names())
	}
	if !equalStrings(rows[0], []string{"", "1", "Ann"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
	if !equalStrings(rows[1], []string{"", "2", "Bob"}) {
		t.Errorf("record 2 = %q", rows[1])
	}
}

func TestSexpPositional(t *testing.T) {
	e := startEngine(t, "sexp", nil, "(v1 v2 \"v three\")\n; comment\n(a b c)\n")
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "v1", "v2", "v three"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
}

func TestSexpNamedPairs(t *testing.T) {
	e := startEngine(t, "sexp", nil, "((name Ann) (age 30))\n((name Bob) (age 41))\n")
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(e.Schema().Names(), []string{"", "name", "age"}) {
		t.Errorf("names = %q", e.Schema().Names())
	}
	if !equalStrings(rows[1], []string{"", "Bob", "41"}) {
		t.Errorf("record 2 = %q", rows[1])
	}
}

func TestManchesterFrames(t *testing.T) {
	const input = `Individual: Signer01
    Facts: Fname "John", LName "Adams"

Individual: Signer02
    Facts: Fname "Sam", LName "Chase"
`
	e := startEngine(t, "owl", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(e.Schema().Names(), []string{"", "Individual", "Fname", "LName"}) {
		t.Errorf("names = %q", e.Schema().Names())
	}
	if !equalStrings(rows[0], []string{"", "Signer01", "John", "Adams"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
}

func TestPerlHashes(t *testing.T) {
	const input = `my @rows = (
  { Id => 'S1', Name => 'John Adams' },
  { Id => 'S2', Name => undef },
);
`
	e := startEngine(t, "perl", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(e.Schema().Names(), []string{"", "Id", "Name"}) {
		t.Errorf("names = %q", e.Schema().Names())
	}
	if !equalStrings(rows[0], []string{"", "S1", "John Adams"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
	if rows[1][2] != "" {
		t.Errorf("undef = %q, want empty", rows[1][2])
	}
}

func TestXHTMLTable(t *testing.T) {
	const input = `<table>
<tr><th>Id</th><th>Name</th></tr>
<tr><td>1</td><td>Ann &amp; Bo</td></tr>
<tr><td>2</td><td><b>X</b></td></tr>
</table>
`
	e := startEngine(t, "xhtml", nil, input)
	if !equalStrings(e.Schema().Names(), []string{"", "Id", "Name"}) {
		t.Fatalf("names = %q", e.Schema().Names())
	}
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "1", "Ann & Bo"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
	// markup inside a cell contributes only its character data
	if rows[1][2] != "X" {
		t.Errorf("cell with inner markup = %q, want X", rows[1][2])
	}
}

func TestXHTMLNoHeaderRow(t *testing.T) {
	const input = `<table>
<tr><td>1</td><td>Ann</td></tr>
</table>
`
	e := startEngine(t, "xhtml", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	// the first row was data, not a header: synthetic names
	if !equalStrings(e.Schema().Names(), []string{"", "F_1", "F_2"}) {
		t.Errorf("names = %q", e.Schema().Names())
	}
	if !equalStrings(rows[0], []string{"", "1", "Ann"}) {
		t.Errorf("record 1 = %q", rows[0])
	}
}

func TestXSVDeclarations(t *testing.T) {
	const input = `<?xml version="1.0"?>
<xsv>
<decl id="#int64!" name="" home="#baseuri(http://x/)?" grade="#enum(a|b)#a"/>
<row id="1" name="Ann" home="p1"/>
<row id="2" name="Bob" grade="b"/>
</xsv>
`
	e := startEngine(t, "xsv", nil, input)
	if !equalStrings(e.Schema().Names(), []string{"", "id", "name", "home", "grade"}) {
		t.Fatalf("names = %q", e.Schema().Names())
	}
	rows := readAllArrays(t, e)
	if len(rows) != 2 {
		t.Fatalf("got %d records, want 2", len(rows))
	}
	// base-URI factoring applied, enum default filled in
	want := []string{"", "1", "Ann", "http://x/p1", "a"}
	if !equalStrings(rows[0], want) {
		t.Errorf("record 1 = %q, want %q", rows[0], want)
	}
	if !equalStrings(rows[1], []string{"", "2", "Bob", "", "b"}) {
		t.Errorf("record 2 = %q", rows[1])
	}
	for _, d := range e.Diagnostics() {
		t.Errorf("unexpected diagnostic: %v", d)
	}
}

func TestXSVBadDatatypeReported(t *testing.T) {
	const input = `<xsv>
<decl id="#int64!"/>
<row id="notanumber"/>
</xsv>
`
	e := startEngine(t, "xsv", nil, input)
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if rows[0][1] != "notanumber" {
		t.Errorf("offending value withheld: %q", rows[0][1])
	}
	if len(e.Diagnostics()) == 0 {
		t.Error("datatype violation not reported")
	}
}

func TestSyntaxForExtension(t *testing.T) {
	for ext, want := range map[string]string{
		".csv":  "delim",
		".tsv":  "delim",
		".json": "json",
		".arff": "arff",
	} {
		if got := SyntaxForExtension(ext); got != want {
			t.Errorf("SyntaxForExtension(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestStrategyNamesMatchRegistry(t *testing.T) {
	for _, name := range Syntaxes() {
		strat, err := newStrategy(name, DefaultOptions(), nil, nil)
		if err != nil {
			t.Errorf("newStrategy(%q): %v", name, err)
			continue
		}
		if strat.Name() != name {
			t.Errorf("strategy %q reports name %q", name, strat.Name())
		}
	}
}

func TestDelimitedQuotedSeparator(t *testing.T) {
	e := startEngine(t, "delim", nil, "foo,\"bar,baz\",qux\n")
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "foo", "bar,baz", "qux"}) {
		t.Errorf("record = %q", rows[0])
	}
}

func TestDelimitedEmbeddedNewline(t *testing.T) {
	e := startEngine(t, "delim",
		map[string]string{OptEmbeddedNewlines: "true"},
		"a,\"line one\nline two\",b\n")
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if rows[0][2] != "line one\nline two" {
		t.Errorf("quoted newline field = %q", rows[0][2])
	}
}

func TestDelimitedEscapes(t *testing.T) {
	e := startEngine(t, "delim",
		map[string]string{OptEscape: `\\`, OptDoubledQuote: "false"},
		`a\,b,c\t d`+"\n")
	rows := readAllArrays(t, e)
	if len(rows) != 1 {
		t.Fatalf("got %d records, want 1", len(rows))
	}
	if !equalStrings(rows[0], []string{"", "a,b", "c\t d"}) {
		t.Errorf("record = %q", rows[0])
	}
}
