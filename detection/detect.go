// Package detection figures out what an uploaded tabular document is:
// which syntax it is written in, what datatype each column holds, and
// how many of its records are duplicates.
package detection

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joiningdata/tabio"
	"github.com/joiningdata/tabio/formats"
)

const (
	maxSamples = 5000

	// sniffWindow is how much of the file DetectSyntax gets to see.
	sniffWindow = 64 << 10
)

// Detector handles data format detection tasks.
type Detector struct {
	pump chan request
	log  *slog.Logger
}

// NewDetector starts a new background processor and returns
// the newly created Detector instance.
func NewDetector() *Detector {
	d := &Detector{
		pump: make(chan request, 4),
		log:  slog.Default(),
	}
	go d.run()
	return d
}

// FieldInfo describes a Field in a Record.
type FieldInfo struct {
	// Name of the Field (synthetic when the input carried none).
	Name string `json:"name"`

	// Type holds the detected datatype name, "" for free text.
	Type string `json:"type,omitempty"`

	// Order of the field in the record.
	Order int `json:"order"`

	// Samples counts the non-empty values seen for this field.
	Samples int `json:"samples"`
}

// Result encodes the results of a detection task on a data file.
type Result struct {
	// Token for retrieving result metadata.
	Token string `json:"token"`

	// InputFilename is the source filename (relative to upload directory).
	InputFilename string `json:"input_file"`

	// Syntax is the best-scoring syntax candidate.
	Syntax string `json:"syntax"`

	// Options holds the inferred reader settings for Syntax.
	Options map[string]string `json:"options,omitempty"`

	// Candidates lists every scored syntax, best first.
	Candidates []SyntaxHit `json:"candidates"`

	// Fields reports the detected data types of each field.
	Fields []*FieldInfo `json:"fields"`

	// Records counts the sampled records.
	Records int `json:"records"`

	// Duplicates counts sampled records whose values exactly repeated
	// an earlier record.
	Duplicates int `json:"duplicates"`

	// Problems counts the reader diagnostics raised while sampling.
	Problems int `json:"problems"`

	// Error holds the failure message when the task could not finish.
	Error string `json:"error,omitempty"`
}

type request struct {
	inputFilename string
	resultToken   string
}

///////////////

// Start a background detection process on the given filename.
// Returns a job token that can be used to check job status
func (d *Detector) Start(fname string) string {
	token := fmt.Sprintf("%x", sha256.Sum256([]byte(fname)))
	x := request{
		inputFilename: fname,
		resultToken:   token,
	}
	d.pump <- x
	return token
}

// Status checks for a Result using the given job-token.
func (d *Detector) Status(token string) (res *Result, done bool) {
	res = &Result{}
	notready, err := tabio.GetResult(token, "detection", res)
	if notready {
		return nil, false
	}
	if err != nil {
		log.Println(err)
		return nil, true
	}
	res.Token = token
	return res, true
}

func (d *Detector) run() {
	for req := range d.pump {
		d.runOne(req)
	}
}

func (d *Detector) runOne(req request) {
	res := &Result{
		InputFilename: req.inputFilename,
	}
	f, err := os.Open(tabio.GetUploadPath(req.inputFilename))
	if err != nil {
		d.log.Error("detection open", "file", req.inputFilename, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to read input")
		return
	}
	defer f.Close()

	///// sniff the syntax from the head of the file
	buf := make([]byte, sniffWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		d.log.Error("detection sniff", "file", req.inputFilename, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to read input")
		return
	}
	incomplete := n == sniffWindow
	res.Candidates = DetectSyntax(buf[:n], incomplete)
	if len(res.Candidates) == 0 {
		tabio.PutResult(req.resultToken, "detection",
			"error", "input does not look like tabular data")
		return
	}
	res.Syntax = res.Candidates[0].Syntax
	res.Options = res.Candidates[0].Options

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		d.log.Error("detection rewind", "file", req.inputFilename, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to read input")
		return
	}

	e := formats.NewEngine()
	if err := e.Configure(res.Syntax, res.Options); err != nil {
		d.log.Error("detection configure", "syntax", res.Syntax, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to parse input")
		return
	}
	if err := e.Start(f); err != nil {
		d.log.Error("detection start", "syntax", res.Syntax, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to parse input")
		return
	}

	///// collect a sample of the input records
	samples := make(map[string][]string)
	seen := &Set{}
	seen.Advise(maxSamples)
	rec, err := e.Next()
	for err == nil {
		res.Records++
		if res.Records > maxSamples {
			break
		}
		if seen.SeenRecord(rec.Values) {
			res.Duplicates++
		} else {
			seen.LearnRecord(rec.Values)
		}
		for i, colname := range rec.Fields {
			if i >= len(rec.Values) {
				break
			}
			v := strings.TrimSpace(rec.Values[i])
			if v != "" {
				samples[colname] = append(samples[colname], v)
			}
		}
		rec, err = e.Next()
	}
	if err != nil && err != io.EOF {
		d.log.Error("detection sample", "syntax", res.Syntax, "err", err)
		tabio.PutResult(req.resultToken, "detection",
			"error", "unable to parse input")
		return
	}
	res.Problems = len(e.Diagnostics())

	///// determine the datatype of each column
	for i := 1; i <= e.Schema().Len(); i++ {
		fd, err := e.Schema().At(i)
		if err != nil {
			continue
		}
		info := &FieldInfo{
			Name:    fd.Name,
			Order:   i,
			Samples: len(samples[fd.Name]),
		}
		if fd.Type != nil {
			// declared types win over inference
			info.Type = fd.Type.Name
		} else {
			info.Type = DetectFieldType(samples[fd.Name])
		}
		res.Fields = append(res.Fields, info)
	}

	tabio.PutResult(req.resultToken, "detection", res)
}
