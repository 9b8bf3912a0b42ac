package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joiningdata/tabio"
	"github.com/joiningdata/tabio/convert"
	"github.com/joiningdata/tabio/detection"
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

// The convert handler must carry the detection report's inferred reader
// settings into the conversion, otherwise a detected headered TSV would
// reparse with the default comma separator and keep its header record.
func TestConvertHandlerForwardsDetectedOptions(t *testing.T) {
	setupDirs(t)
	detector = detection.NewDetector()
	converter = convert.NewConverter()

	input := "Id\tName\n1\tAnn\n2\tBob\n"
	if err := os.WriteFile(filepath.Join(tabio.UploadDirectory, "in.tsv"), []byte(input), 0644); err != nil {
		t.Fatal(err)
	}

	detToken := "web-test-detection"
	err := tabio.PutResult(detToken, "detection", &detection.Result{
		Syntax:  "delim",
		Options: map[string]string{"separator": `\t`, "header": "true"},
	})
	if err != nil {
		t.Fatal(err)
	}

	seed := httptest.NewRequest("GET", "/convert", nil)
	rec := httptest.NewRecorder()
	session, _ := store.Get(seed, tabioSessionName)
	session.Values["documentKey"] = "in.tsv"
	session.Values["det_token"] = detToken
	if err := session.Save(seed, rec); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/convert?from=delim&to=json", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	convertHandler(rr, req)

	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/wait?k=") {
		t.Fatalf("redirect = %q, want /wait?k=...", loc)
	}
	token := strings.TrimPrefix(loc, "/wait?k=")

	var res *convert.Result
	deadline := time.Now().Add(5 * time.Second)
	for res == nil {
		if time.Now().After(deadline) {
			t.Fatal("conversion did not finish in time")
		}
		var done bool
		if res, done = converter.Status(token); done && res == nil {
			t.Fatal("conversion finished with an unreadable result")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if res.Error != "" {
		t.Fatalf("conversion failed: %s", res.Error)
	}
	if res.Stats.TotalRecords != 2 {
		t.Errorf("TotalRecords = %d, want the header excluded", res.Stats.TotalRecords)
	}

	out, err := os.ReadFile(tabio.GetDownloadPath(res.NewFilename))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"Name": "Ann"`) {
		t.Errorf("output missing tab-split fields:\n%s", out)
	}
	if strings.Contains(string(out), `"Id": "Id"`) {
		t.Errorf("output kept the header as a data record:\n%s", out)
	}
}
