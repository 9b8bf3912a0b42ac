// Command tabconv converts tabular documents between syntaxes. Reader
// and writer settings come from flags, or from a named profile in an
// HCL file, and -watch keeps the output current as the input changes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/joiningdata/tabio/formats"
)

// optFlags collects repeated name=value settings.
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

func convertFile(input, output, from, to string, fromOpts, toOpts map[string]string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	e := formats.NewEngine()
	if err := e.Configure(from, fromOpts); err != nil {
		return err
	}
	if err := e.Start(f); err != nil {
		return err
	}

	fout, err := os.Create(output)
	if err != nil {
		return err
	}
	defer fout.Close()

	w, err := formats.NewWriter(fout, to, toOpts)
	if err != nil {
		return err
	}
	if err := formats.Convert(e, w); err != nil {
		return err
	}
	for _, diag := range e.Diagnostics() {
		log.Println("warning:", diag)
	}
	for _, diag := range w.Diagnostics() {
		log.Println("warning:", diag)
	}
	return nil
}

func watchAndConvert(input, output, from, to string, fromOpts, toOpts map[string]string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory: editors commonly replace the file, which
	// drops a watch held on the file itself
	if err := watcher.Add(filepath.Dir(input)); err != nil {
		return err
	}
	target := filepath.Base(input)

	log.Printf("watching %s", input)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := convertFile(input, output, from, to, fromOpts, toOpts); err != nil {
				log.Println("reconvert:", err)
				continue
			}
			log.Printf("%s => %s", input, output)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Println("watch:", err)
		}
	}
}

func main() {
	log.SetFlags(log.LstdFlags)

	from := flag.String("f", "", "input `syntax` name (default: guessed from the file extension)")
	to := flag.String("t", "delim", "output `syntax` name")
	profileFile := flag.String("p", "", "HCL profile `filename` supplying syntaxes and options")
	profileName := flag.String("profile", "", "profile `name` to use from the profile file")
	watch := flag.Bool("watch", false, "stay running and reconvert whenever the input changes")
	fromOpts := optFlags{}
	toOpts := optFlags{}
	flag.Var(fromOpts, "i", "reader option as `name=value` (repeatable)")
	flag.Var(toOpts, "o", "writer option as `name=value` (repeatable)")
	flag.Parse()

	input := flag.Arg(0)
	if input == "" {
		log.Fatal("usage: tabconv [options] inputfile [outputfile]")
	}

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if *profileFile != "" {
		p, err := loadProfile(*profileFile, *profileName)
		if err != nil {
			log.Fatal(err)
		}
		// explicit flags win over the profile
		if *from == "" {
			*from = p.From
		}
		if p.To != "" && !setFlags["t"] {
			*to = p.To
		}
		for k, v := range p.FromOptions {
			if _, ok := fromOpts[k]; !ok {
				fromOpts[k] = v
			}
		}
		for k, v := range p.ToOptions {
			if _, ok := toOpts[k]; !ok {
				toOpts[k] = v
			}
		}
	}

	if *from == "" {
		*from = formats.SyntaxForExtension(strings.ToLower(filepath.Ext(input)))
		if *from == "" {
			log.Fatalf("cannot guess the syntax of %q, use -f", input)
		}
	}

	output := flag.Arg(1)
	if output == "" {
		ext := formats.ExtensionForSyntax(*to)
		if ext == "" {
			log.Fatalf("unknown output syntax %q", *to)
		}
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ext
		if output == input {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + ".out" + ext
		}
	}

	if err := convertFile(input, output, *from, *to, fromOpts, toOpts); err != nil {
		log.Fatal(err)
	}
	log.Printf("%s => %s", input, output)

	if *watch {
		if err := watchAndConvert(input, output, *from, *to, fromOpts, toOpts); err != nil {
			log.Fatal(err)
		}
	}
}
