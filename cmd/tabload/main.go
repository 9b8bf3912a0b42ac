// Command tabload streams a tabular document of any supported syntax
// into a relational table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joiningdata/tabio/detection"
	"github.com/joiningdata/tabio/formats"
	"github.com/joiningdata/tabio/sink"
)

// optFlags collects repeated -o name=value settings.
type optFlags map[string]string

func (o optFlags) String() string {
	var parts []string
	for k, v := range o {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (o optFlags) Set(arg string) error {
	k, v, ok := strings.Cut(arg, "=")
	if !ok || k == "" {
		return fmt.Errorf("option must be name=value, got %q", arg)
	}
	o[k] = v
	return nil
}

// dedupReader counts (and optionally drops) records whose values
// exactly repeat an earlier record.
type dedupReader struct {
	r    formats.Reader
	seen *detection.Set
	skip bool
	dups int
}

func newDedupReader(r formats.Reader, skip bool) *dedupReader {
	seen := &detection.Set{}
	seen.Advise(detection.DefaultAdviseSize)
	return &dedupReader{r: r, seen: seen, skip: skip}
}

func (d *dedupReader) Next() (*formats.Record, error) {
	for {
		rec, err := d.r.Next()
		if err != nil {
			return rec, err
		}
		if d.seen.SeenRecord(rec.Values) {
			d.dups++
			if d.skip {
				continue
			}
		} else {
			d.seen.LearnRecord(rec.Values)
		}
		return rec, nil
	}
}

func (d *dedupReader) Err() error { return d.r.Err() }

// replayReader puts an already-read record back in front of a Reader.
type replayReader struct {
	first *formats.Record
	r     formats.Reader
}

func (p *replayReader) Next() (*formats.Record, error) {
	if p.first != nil {
		rec := p.first
		p.first = nil
		return rec, nil
	}
	return p.r.Next()
}

func (p *replayReader) Err() error { return p.r.Err() }

func main() {
	envDSN, ok := os.LookupEnv("TABIO_DSN")
	if !ok {
		envDSN = "tabio.sqlite"
	}
	logfilename, ok := os.LookupEnv("TABIO_LOGS")
	if ok {
		f, err := os.Create(logfilename)
		if err != nil {
			log.Fatal(err)
		}
		log.SetOutput(f)
		defer f.Close()
	}
	log.SetFlags(log.LstdFlags)

	driver := flag.String("driver", "sqlite", "database `driver` (sqlite, postgres, or mysql)")
	dsn := flag.String("dsn", envDSN, "database `connection` string for the driver")
	table := flag.String("table", "", "destination `table` name (default: input filename stem)")
	syntax := flag.String("s", "", "input `syntax` name (default: guessed from the file extension)")
	skipdups := flag.Bool("skipdups", false, "drop records that exactly repeat an earlier record")
	ropts := optFlags{}
	flag.Var(ropts, "o", "reader option as `name=value` (repeatable)")
	flag.Parse()

	fname := flag.Arg(0)
	if fname == "" {
		log.Fatal("usage: tabload [options] inputfile")
	}
	if *table == "" {
		base := filepath.Base(fname)
		*table = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if *syntax == "" {
		*syntax = formats.SyntaxForExtension(strings.ToLower(filepath.Ext(fname)))
		if *syntax == "" {
			log.Fatalf("cannot guess the syntax of %q, use -s", fname)
		}
	}

	f, err := os.Open(fname)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	e := formats.NewEngine()
	if err := e.Configure(*syntax, ropts); err != nil {
		log.Fatal(err)
	}
	if err := e.Start(f); err != nil {
		log.Fatal(err)
	}

	db, err := sink.Open(*driver, *dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Ping(ctx); err != nil {
		log.Fatal(err)
	}

	// the schema is not settled until the first record is parsed
	first, err := e.Next()
	if err == io.EOF {
		log.Printf("%s: no records", fname)
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := db.CreateTable(ctx, *table, e.Schema()); err != nil {
		log.Fatal(err)
	}

	dd := newDedupReader(&replayReader{first: first, r: e}, *skipdups)
	n, err := db.Load(ctx, *table, dd)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("%s => %s: %d rows loaded, %d duplicates", fname, *table, n, dd.dups)
	for _, diag := range e.Diagnostics() {
		log.Println("warning:", diag)
	}
}
