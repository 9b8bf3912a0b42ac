package options

import (
	"errors"
	"testing"
)

func newTestStore() *Store {
	s := New()
	s.Define("separator", Char, ",")
	s.Define("quote", Char, `"`)
	s.Define("header", Bool, "false")
	s.Define("width", Int, "0")
	s.Define("comment", String, "")
	s.Define("whitespace", Enum, "keep", "keep", "delete", "unify")
	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore()

	if err := s.Set("separator", "|"); err != nil {
		t.Fatal(err)
	}
	if got := s.GetChar("separator"); got != '|' {
		t.Errorf("separator = %q", got)
	}

	if err := s.Set("header", "Yes"); err != nil {
		t.Fatal(err)
	}
	if !s.GetBool("header") {
		t.Errorf("header = false, want true")
	}

	if err := s.Set("width", "12"); err != nil {
		t.Fatal(err)
	}
	if got := s.GetInt("width"); got != 12 {
		t.Errorf("width = %d", got)
	}

	if err := s.Set("whitespace", "unify"); err != nil {
		t.Fatal(err)
	}
	if got := s.Get("whitespace"); got != "unify" {
		t.Errorf("whitespace = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	s := newTestStore()
	if got := s.GetChar("separator"); got != ',' {
		t.Errorf("default separator = %q", got)
	}
	if s.GetBool("header") {
		t.Errorf("default header = true")
	}
	if got := s.Get("whitespace"); got != "keep" {
		t.Errorf("default whitespace = %q", got)
	}
}

func TestSetRejections(t *testing.T) {
	s := newTestStore()

	if err := s.Set("nosuch", "x"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("unknown option err = %v", err)
	}

	cases := []struct{ name, value string }{
		{"header", "maybe"},
		{"width", "wide"},
		{"separator", "ab"},
		{"whitespace", "shred"},
	}
	for _, c := range cases {
		if err := s.Set(c.name, c.value); !errors.Is(err, ErrBadOptionValue) {
			t.Errorf("Set(%q, %q) err = %v, want ErrBadOptionValue", c.name, c.value, err)
		}
	}

	// a rejected Set leaves the prior value in place
	if err := s.Set("width", "7"); err != nil {
		t.Fatal(err)
	}
	s.Set("width", "wide")
	if got := s.GetInt("width"); got != 7 {
		t.Errorf("width after rejected Set = %d, want 7", got)
	}
}

func TestSetExpandsEscapes(t *testing.T) {
	s := newTestStore()
	if err := s.Set("separator", `\t`); err != nil {
		t.Fatal(err)
	}
	if got := s.GetChar("separator"); got != '\t' {
		t.Errorf("separator = %q, want tab", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestStore()
	s.Set("separator", ";")
	c := s.Clone()
	c.Set("separator", "|")
	if got := s.GetChar("separator"); got != ';' {
		t.Errorf("clone write leaked into original: %q", got)
	}
}
