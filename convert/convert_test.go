package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joiningdata/tabio"
)

func setupDirs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	oldUp, oldRes, oldDown := tabio.UploadDirectory, tabio.ResultDirectory, tabio.DownloadDirectory
	tabio.UploadDirectory = dir
	tabio.ResultDirectory = dir
	tabio.DownloadDirectory = dir
	t.Cleanup(func() {
		tabio.UploadDirectory, tabio.ResultDirectory, tabio.DownloadDirectory = oldUp, oldRes, oldDown
	})
}

func pollStatus(t *testing.T, c *Converter, token string) *Result {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if res, done := c.Status(token); done {
			if res == nil {
				t.Fatal("conversion finished with an unreadable result")
			}
			return res
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("conversion did not finish in time")
	return nil
}

func TestConverterDelimToJSON(t *testing.T) {
	setupDirs(t)
	input := "Id,Name\n1,Ann\n1,Ann\n2,Bob\n"
	if err := os.WriteFile(filepath.Join(tabio.UploadDirectory, "in.csv"), []byte(input), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter()
	token := c.Start("in.csv", &Options{
		FromSyntax:     "delim",
		FromOptions:    map[string]string{"header": "true"},
		ToSyntax:       "json",
		SkipDuplicates: true,
	})
	res := pollStatus(t, c, token)

	if res.Error != "" {
		t.Fatalf("conversion failed: %s", res.Error)
	}
	if res.NewFilename != "in.converted.json" {
		t.Errorf("output name = %q", res.NewFilename)
	}
	if res.Stats.TotalRecords != 3 || res.Stats.DuplicateRecords != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}

	out, err := os.ReadFile(tabio.GetDownloadPath(res.NewFilename))
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	if !strings.Contains(text, `"Name": "Ann"`) || !strings.Contains(text, `"Name": "Bob"`) {
		t.Errorf("unexpected output:\n%s", text)
	}
	// the duplicate Ann row must not survive
	if n := strings.Count(text, `"Ann"`); n != 1 {
		t.Errorf("Ann appears %d times", n)
	}
}

func TestConverterUnknownSyntax(t *testing.T) {
	setupDirs(t)
	if err := os.WriteFile(filepath.Join(tabio.UploadDirectory, "in.csv"), []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter()
	token := c.Start("in.csv", &Options{FromSyntax: "delim", ToSyntax: "parquet"})
	res := pollStatus(t, c, token)
	if res.Error == "" {
		t.Errorf("expected an error result, got %+v", res)
	}
}

func TestConverterSyntaxFromExtension(t *testing.T) {
	setupDirs(t)
	input := "(r (Id \"S1\") (Name \"Ann\"))\n"
	if err := os.WriteFile(filepath.Join(tabio.UploadDirectory, "in.sexp"), []byte(input), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter()
	token := c.Start("in.sexp", &Options{ToSyntax: "delim", ToOptions: map[string]string{"header": "true"}})
	res := pollStatus(t, c, token)

	if res.Error != "" {
		t.Fatalf("conversion failed: %s", res.Error)
	}
	out, err := os.ReadFile(tabio.GetDownloadPath(res.NewFilename))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "S1,Ann") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
