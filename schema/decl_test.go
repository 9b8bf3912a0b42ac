package schema

import (
	"errors"
	"testing"
)

func TestParseDecl(t *testing.T) {
	cases := []struct {
		in       string
		typename string
		rep      Repetition
		def      string
		baseURI  string
	}{
		{"", "untyped", One, "", ""},
		{"plain default", "untyped", One, "plain default", ""},
		{"#int32", "int32", One, "", ""},
		{"#int32!", "int32", One, "", ""},
		{"#string?", "string", ZeroOrOne, "", ""},
		{"#token*", "token", ZeroOrMore, "", ""},
		{"#uri+", "uri", OneOrMore, "", ""},
		{"#int32!#0", "int32", One, "0", ""},
		{"#enum(red|green|blue)?#red", "enum", ZeroOrOne, "red", ""},
		{"#regex([A-Z]+)", "regex", One, "", ""},
		{"#baseuri(http://example.org/id/)", "untyped", One, "", "http://example.org/id/"},
		{"##fallback", "untyped", One, "fallback", ""},
	}

	for _, c := range cases {
		f := &FieldDef{Name: "x"}
		if err := ParseDecl(f, c.in); err != nil {
			t.Errorf("ParseDecl(%q): %v", c.in, err)
			continue
		}
		if f.Type.String() != c.typename {
			t.Errorf("ParseDecl(%q) type = %s, want %s", c.in, f.Type, c.typename)
		}
		if f.Repetition != c.rep {
			t.Errorf("ParseDecl(%q) repetition = %v, want %v", c.in, f.Repetition, c.rep)
		}
		if f.Default != c.def {
			t.Errorf("ParseDecl(%q) default = %q, want %q", c.in, f.Default, c.def)
		}
		if f.BaseURI != c.baseURI {
			t.Errorf("ParseDecl(%q) baseURI = %q, want %q", c.in, f.BaseURI, c.baseURI)
		}
	}
}

func TestParseDeclErrors(t *testing.T) {
	bad := []string{
		"#nosuchtype",
		"#int32(12)", // int32 takes no argument
		"#enum",
		"#baseuri",
		"#regex([)",
		"#enum(a|b", // unbalanced
	}
	for _, in := range bad {
		f := &FieldDef{Name: "x"}
		if err := ParseDecl(f, in); err == nil {
			t.Errorf("ParseDecl(%q) accepted", in)
		}
	}
}

func TestParseDeclUnknownType(t *testing.T) {
	f := &FieldDef{Name: "x"}
	err := ParseDecl(f, "#flavor!")
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestBaseURIFactoring(t *testing.T) {
	f := &FieldDef{Name: "ref", BaseURI: "http://example.org/id/"}
	if got := f.ApplyPrefix("42"); got != "http://example.org/id/42" {
		t.Errorf("ApplyPrefix = %q", got)
	}
	// empty values stay empty
	if got := f.ApplyPrefix(""); got != "" {
		t.Errorf("ApplyPrefix(empty) = %q", got)
	}
	if got := f.TrimPrefix("http://example.org/id/42"); got != "42" {
		t.Errorf("TrimPrefix = %q", got)
	}
}
