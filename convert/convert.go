// Package convert runs background syntax-to-syntax conversion tasks
// over uploaded files, producing downloadable output plus a small
// result document describing how the conversion went.
package convert

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joiningdata/tabio"
	"github.com/joiningdata/tabio/detection"
	"github.com/joiningdata/tabio/formats"
)

// Converter handles conversion tasks.
type Converter struct {
	pump chan request
	log  *slog.Logger
}

// NewConverter starts a new background processor and returns
// the newly created Converter instance.
func NewConverter() *Converter {
	c := &Converter{
		pump: make(chan request, 4),
		log:  slog.Default(),
	}
	go c.run()
	return c
}

type request struct {
	inputFilename string
	resultToken   string
	options       *Options
}

// Options records the conversion parameters.
type Options struct {
	// FromSyntax names the input syntax. When empty, the input file
	// extension decides.
	FromSyntax string `json:"from_syntax"`

	// FromOptions holds reader settings for the input syntax.
	FromOptions map[string]string `json:"from_options,omitempty"`

	// ToSyntax names the output syntax.
	ToSyntax string `json:"to_syntax"`

	// ToOptions holds writer settings for the output syntax.
	ToOptions map[string]string `json:"to_options,omitempty"`

	// SkipDuplicates drops records whose values exactly repeat an
	// earlier record.
	SkipDuplicates bool `json:"skip_duplicates"`
}

// Result describes the conversion process and results.
type Result struct {
	// Token for retrieving result metadata.
	Token string `json:"token"`

	// Options that were used to drive the conversion.
	Options *Options `json:"options"`

	// Log of timestamps and sizes for the conversion.
	Log string `json:"log"`

	// NewFilename contains the filename of the converted output.
	NewFilename string `json:"newfilename"`

	// Stats for how the conversion went.
	Stats *Stats `json:"stats"`

	// Error holds the failure message when the task could not finish.
	Error string `json:"error,omitempty"`
}

// Stats describes various metrics for how the conversion went.
type Stats struct {
	// StartTime of the conversion.
	StartTime time.Time `json:"start_time"`

	// EndTime of the conversion.
	EndTime time.Time `json:"end_time"`

	// TotalRecords counts the records read from the input.
	TotalRecords int `json:"total_records"`

	// DuplicateRecords counts records whose values exactly repeated an
	// earlier record.
	DuplicateRecords int `json:"duplicate_records"`

	// Diagnostics counts the non-fatal reader and writer problems.
	Diagnostics int `json:"diagnostics"`
}

// Start a new conversion task in the background and return a job token.
func (c *Converter) Start(fname string, opts *Options) string {
	token := fmt.Sprintf("%x", sha256.Sum256([]byte(fname+":"+opts.ToSyntax)))
	c.pump <- request{
		inputFilename: fname,
		resultToken:   token,
		options:       opts,
	}
	return token
}

// Status checks for a Result using the given job-token.
func (c *Converter) Status(token string) (res *Result, done bool) {
	res = &Result{}
	notready, err := tabio.GetResult(token, "convert", res)
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

func (c *Converter) run() {
	for req := range c.pump {
		c.runOne(req)
	}
}

func (c *Converter) fail(req request, stage string, err error, msg string) {
	c.log.Error("convert "+stage, "file", req.inputFilename, "err", err)
	tabio.PutResult(req.resultToken, "convert", "error", msg)
}

func (c *Converter) runOne(req request) {
	opts := req.options
	res := &Result{Options: opts}
	stats := &Stats{StartTime: time.Now()}

	ext := filepath.Ext(req.inputFilename)
	outExt := formats.ExtensionForSyntax(opts.ToSyntax)
	if outExt == "" {
		c.fail(req, "syntax", formats.ErrUnknownSyntax, "unknown output syntax")
		return
	}
	res.NewFilename = strings.TrimSuffix(req.inputFilename, ext) + ".converted" + outExt

	fromSyntax := opts.FromSyntax
	if fromSyntax == "" {
		if strings.EqualFold(ext, ".xlsx") {
			fromSyntax = "xlsx"
		} else {
			fromSyntax = formats.SyntaxForExtension(strings.ToLower(ext))
		}
	}
	if fromSyntax == "" {
		c.fail(req, "syntax", formats.ErrUnsupportedFormat, "unknown input syntax")
		return
	}

	f, err := os.Open(tabio.GetUploadPath(req.inputFilename))
	if err != nil {
		c.fail(req, "open", err, "unable to read input")
		return
	}
	defer f.Close()

	var r formats.Reader
	var e *formats.Engine
	if fromSyntax == "xlsx" {
		r, err = formats.OpenXLSX(f)
		if err != nil {
			c.fail(req, "open", err, "unable to parse input")
			return
		}
	} else {
		e = formats.NewEngine()
		if err := e.Configure(fromSyntax, opts.FromOptions); err != nil {
			c.fail(req, "configure", err, "unable to parse input")
			return
		}
		if err := e.Start(f); err != nil {
			c.fail(req, "start", err, "unable to parse input")
			return
		}
		r = e
	}

	fout, err := os.Create(tabio.GetDownloadPath(res.NewFilename))
	if err != nil {
		c.fail(req, "create", err, "unable to create output")
		return
	}
	var w formats.Writer
	var sw *formats.SyntaxWriter
	if opts.ToSyntax == "xlsx" {
		w = formats.NewXLSXWriter(fout)
	} else {
		sw, err = formats.NewWriter(fout, opts.ToSyntax, opts.ToOptions)
		if err != nil {
			fout.Close()
			c.fail(req, "writer", err, "unable to create output")
			return
		}
		w = sw
	}

	var seen *detection.Set
	if opts.SkipDuplicates {
		seen = &detection.Set{}
		seen.Advise(detection.DefaultAdviseSize)
	}

	rec, err := r.Next()
	for err == nil {
		stats.TotalRecords++
		if seen != nil {
			if seen.SeenRecord(rec.Values) {
				stats.DuplicateRecords++
				rec, err = r.Next()
				continue
			}
			seen.LearnRecord(rec.Values)
		}
		if werr := w.Write(rec); werr != nil {
			fout.Close()
			c.fail(req, "write", werr, "unable to write output")
			return
		}
		rec, err = r.Next()
	}
	if err != io.EOF {
		fout.Close()
		c.fail(req, "read", err, "unable to parse input")
		return
	}
	if closer, ok := w.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			fout.Close()
			c.fail(req, "close", err, "unable to write output")
			return
		}
	}
	fout.Sync()

	uploadInfo, _ := f.Stat()
	convertedInfo, _ := fout.Stat()
	fout.Close()

	stats.EndTime = time.Now()
	if e != nil {
		stats.Diagnostics += len(e.Diagnostics())
	}
	if sw != nil {
		stats.Diagnostics += len(sw.Diagnostics())
	}
	res.Stats = stats

	logs := []string{
		"- date/times in UTC -",
		uploadInfo.ModTime().UTC().Format("2006-01-02 15:04:05") +
			fmt.Sprintf(" - source uploaded (%d byte %s)", uploadInfo.Size(), fromSyntax),
		stats.EndTime.UTC().Format("2006-01-02 15:04:05") +
			fmt.Sprintf(" - conversion completed (%d byte %s)", convertedInfo.Size(), opts.ToSyntax),
	}
	res.Log = strings.Join(logs, "\n")

	tabio.PutResult(req.resultToken, "convert", res)
}
