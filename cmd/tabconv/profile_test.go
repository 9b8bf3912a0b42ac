package main

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleProfiles = `
profile "clean" {
  from         = "delim"
  from_options = { separator = tab, header = "true" }
  to           = "json"
}

profile "report" {
  to         = "xhtml"
  to_options = { terminator = "\n" }
}
`

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.hcl")
	if err := os.WriteFile(path, []byte(sampleProfiles), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := loadProfile(path, "clean")
	if err != nil {
		t.Fatal(err)
	}
	if p.From != "delim" || p.To != "json" {
		t.Errorf("profile = %+v", p)
	}
	if p.FromOptions["separator"] != `\t` {
		t.Errorf("separator = %q", p.FromOptions["separator"])
	}
	if p.FromOptions["header"] != "true" {
		t.Errorf("header = %q", p.FromOptions["header"])
	}

	if _, err := loadProfile(path, ""); err == nil {
		t.Error("expected an error when multiple profiles need a name")
	}
	if _, err := loadProfile(path, "missing"); err == nil {
		t.Error("expected an error for an unknown profile name")
	}
}

func TestLoadProfileSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.hcl")
	if err := os.WriteFile(path, []byte(`profile "only" { to = "xsv" }`), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := loadProfile(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "only" || p.To != "xsv" {
		t.Errorf("profile = %+v", p)
	}
}
