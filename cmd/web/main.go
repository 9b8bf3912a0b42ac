// Command web runs the web service that handles user interactions:
// uploads, syntax detection reporting, and conversion/downloads.
package main

import (
	"archive/zip"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/joiningdata/tabio"
	"github.com/joiningdata/tabio/convert"
	"github.com/joiningdata/tabio/detection"
	"github.com/joiningdata/tabio/formats"
)

const (
	tabioSessionName = "tabio-session"
	maxUploadBytes   = 32 << 20 // 32MB
)

var (
	store = sessions.NewCookieStore([]byte(os.Getenv("SESSION_KEY")))

	detector  *detection.Detector
	converter *convert.Converter
)

func indexHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("index", templates.ExecuteTemplate(w, "index.html", formats.Syntaxes()))
}

var extCleaner = regexp.MustCompile("[^a-z0-9]*")

func uploadHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := store.Get(r, tabioSessionName)

	if r.Method != http.MethodPost {
		http.Error(w, "upload missing", http.StatusBadRequest)
		return
	}

	err := r.ParseMultipartForm(maxUploadBytes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fhs, ok := r.MultipartForm.File["data"]
	if !ok {
		http.Error(w, "upload missing", http.StatusBadRequest)
		return
	}

	// sanitize the filename and extension
	fext := strings.ToLower(filepath.Ext(filepath.Base(fhs[0].Filename)))
	fext = extCleaner.ReplaceAllString(fext, "")
	fname := uuid.NewString()
	if fext != "" {
		fname += "." + fext
	}

	fin, err := fhs[0].Open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fout, err := os.Create(tabio.GetUploadPath(fname))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, err = io.Copy(fout, fin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fout.Close()
	fin.Close()

	session.Values["documentKey"] = fname
	token := detector.Start(fname)

	session.Save(r, w)
	http.Redirect(w, r, "/report?k="+token, http.StatusSeeOther)
}

type reportContext struct {
	*detection.Result
	Syntaxes []string
}

func reportHandler(w http.ResponseWriter, r *http.Request) {
	session, err := store.Get(r, tabioSessionName)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	token := r.URL.Query().Get("k")
	if token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	session.Values["det_token"] = token
	session.Save(r, w)

	res, done := detector.Status(token)
	if !done {
		w.Header().Set("Refresh", "1;url=/report?k="+token)
		fmt.Fprint(w, "Please wait...")
		return
	} else if res == nil {
		http.Error(w, "detection failed", http.StatusInternalServerError)
		return
	}
	if res.Error != "" {
		http.Error(w, res.Error, http.StatusUnprocessableEntity)
		return
	}

	ctx := &reportContext{Result: res, Syntaxes: formats.Syntaxes()}
	log.Println("report", templates.ExecuteTemplate(w, "report.html", ctx))
}

func convertHandler(w http.ResponseWriter, r *http.Request) {
	session, err := store.Get(r, tabioSessionName)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	fname, _ := session.Values["documentKey"].(string)
	if fname == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := r.URL.Query()

	opts := &convert.Options{
		FromSyntax:     q.Get("from"),
		ToSyntax:       q.Get("to"),
		SkipDuplicates: q.Get("skipdups") != "",
	}

	// carry the inferred reader settings over from the detection report
	if detToken, _ := session.Values["det_token"].(string); detToken != "" {
		if det, done := detector.Status(detToken); done && det != nil && det.Error == "" {
			if opts.FromSyntax == "" {
				opts.FromSyntax = det.Syntax
			}
			if opts.FromSyntax == det.Syntax {
				opts.FromOptions = det.Options
			}
		}
	}
	log.Println("convert", fname, "from", opts.FromSyntax, "to", opts.ToSyntax)

	token := converter.Start(fname, opts)
	http.Redirect(w, r, "/wait?k="+token, http.StatusSeeOther)
}

func waitHandler(w http.ResponseWriter, r *http.Request) {
	_, err := store.Get(r, tabioSessionName)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	token := r.URL.Query().Get("k")
	if token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	res, done := converter.Status(token)
	if !done {
		w.Header().Set("Refresh", "1;url=/wait?k="+token)
		fmt.Fprint(w, "Please wait...")
		return
	} else if res == nil {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
		return
	}
	if res.Error != "" {
		http.Error(w, res.Error, http.StatusUnprocessableEntity)
		return
	}

	log.Println("ready", templates.ExecuteTemplate(w, "ready.html", res))
}

func downloadHandler(w http.ResponseWriter, r *http.Request) {
	_, err := store.Get(r, tabioSessionName)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	token := r.URL.Query().Get("k")
	if token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	info, done := converter.Status(token)
	if !done {
		http.Redirect(w, r, "/wait?k="+token, http.StatusSeeOther)
		return
	} else if info == nil {
		http.Error(w, "conversion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-type", "application/zip")

	zw := zip.NewWriter(w)
	zwf, err := zw.Create("tabio.log")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprintln(zwf, info.Log)
	zwf, err = zw.Create("stats.json")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jb, _ := json.MarshalIndent(info.Stats, "", "    ")
	zwf.Write(jb)

	zwf, err = zw.Create(info.NewFilename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(tabio.GetDownloadPath(info.NewFilename))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, err = io.Copy(zwf, f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	f.Close()
	zw.Close()
}

func main() {
	addr := flag.String("i", ":8080", "`address:port` to listen for web requests")
	flag.Parse()

	err := tabio.CheckDirectories()
	if err != nil {
		log.Fatal(err)
	}

	detector = detection.NewDetector()
	converter = convert.NewConverter()

	http.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("./static"))))

	http.HandleFunc("/", indexHandler)            // index.html => POST to /upload
	http.HandleFunc("/upload", uploadHandler)     // file upload => redirect to /report
	http.HandleFunc("/report", reportHandler)     // report.html => GET to /convert
	http.HandleFunc("/convert", convertHandler)   // begin conversion => redirect to /wait
	http.HandleFunc("/wait", waitHandler)         // ready.html => GET to /download
	http.HandleFunc("/download", downloadHandler) // package ZIP file
	log.Println(http.ListenAndServe(*addr, nil))
}
