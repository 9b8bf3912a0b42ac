package tabio

import (
	"path/filepath"
	"testing"
)

func setupDirs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	oldUp, oldRes, oldDown := UploadDirectory, ResultDirectory, DownloadDirectory
	UploadDirectory = filepath.Join(dir, "uploads")
	ResultDirectory = filepath.Join(dir, "results")
	DownloadDirectory = filepath.Join(dir, "downloads")
	t.Cleanup(func() {
		UploadDirectory, ResultDirectory, DownloadDirectory = oldUp, oldRes, oldDown
	})
	if err := CheckDirectories(); err != nil {
		t.Fatal(err)
	}
}

func TestResultRoundTrip(t *testing.T) {
	setupDirs(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "sample", Count: 42}
	if err := PutResult("tok1", "test", in); err != nil {
		t.Fatal(err)
	}

	var out payload
	notready, err := GetResult("tok1", "test", &out)
	if notready || err != nil {
		t.Fatalf("notready=%v err=%v", notready, err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestResultKeyValuePairs(t *testing.T) {
	setupDirs(t)

	if err := PutResult("tok2", "test", "error", "boom", "stage", 3); err != nil {
		t.Fatal(err)
	}
	out := map[string]interface{}{}
	notready, err := GetResult("tok2", "test", &out)
	if notready || err != nil {
		t.Fatalf("notready=%v err=%v", notready, err)
	}
	if out["error"] != "boom" {
		t.Errorf("error = %v", out["error"])
	}
	if out["stage"] != float64(3) {
		t.Errorf("stage = %v", out["stage"])
	}
}

func TestResultNotReady(t *testing.T) {
	setupDirs(t)

	var out struct{}
	notready, err := GetResult("no-such-token", "test", &out)
	if !notready {
		t.Errorf("notready=false err=%v", err)
	}
}

func TestPaths(t *testing.T) {
	setupDirs(t)

	if got := GetUploadPath("a.csv"); got != filepath.Join(UploadDirectory, "a.csv") {
		t.Errorf("upload path = %q", got)
	}
	if got := GetResultPath("tok.detection"); got != filepath.Join(ResultDirectory, "tok.detection.json") {
		t.Errorf("result path = %q", got)
	}
	if got := GetDownloadPath("b.json"); got != filepath.Join(DownloadDirectory, "b.json") {
		t.Errorf("download path = %q", got)
	}
}
