package main

import (
	"fmt"
	"html/template"
)

var templates = template.Must(template.New("tabio").Funcs(template.FuncMap{
	"pct": func(v float64) string {
		return fmt.Sprintf("%0.2f%%", v*100.0)
	},
}).Parse(indexHTML))

func init() {
	template.Must(templates.New("report.html").Parse(reportHTML))
	template.Must(templates.New("ready.html").Parse(readyHTML))
}

const indexHTML = `{{define "index.html"}}<!DOCTYPE html>
<html><head><title>tabio</title></head><body>
<h1>tabio</h1>
<p>Upload a tabular document ({{range $i, $s := .}}{{if $i}}, {{end}}{{$s}}{{end}}) to inspect and convert it.</p>
<form action="/upload" method="post" enctype="multipart/form-data">
  <input type="file" name="data">
  <input type="submit" value="Upload">
</form>
</body></html>{{end}}`

const reportHTML = `<!DOCTYPE html>
<html><head><title>tabio - detection report</title></head><body>
<h1>{{.InputFilename}}</h1>
<p>Detected syntax: <b>{{.Syntax}}</b>
   ({{.Records}} records sampled, {{.Duplicates}} duplicates, {{.Problems}} problems)</p>

<h2>Fields</h2>
<table border="1">
<tr><th>#</th><th>Name</th><th>Type</th><th>Samples</th></tr>
{{range .Fields}}<tr><td>{{.Order}}</td><td>{{.Name}}</td><td>{{if .Type}}{{.Type}}{{else}}text{{end}}</td><td>{{.Samples}}</td></tr>
{{end}}</table>

<h2>Candidates</h2>
<table border="1">
<tr><th>Syntax</th><th>Score</th></tr>
{{range .Candidates}}<tr><td>{{.Syntax}}</td><td>{{pct .Score}}</td></tr>
{{end}}</table>

<h2>Convert</h2>
<form action="/convert" method="get">
  <input type="hidden" name="from" value="{{.Syntax}}">
  <label>Output syntax:
    <select name="to">{{$def := .Syntax}}{{range .Syntaxes}}<option{{if eq . $def}} selected{{end}}>{{.}}</option>{{end}}</select>
  </label>
  <label><input type="checkbox" name="skipdups"> drop duplicate records</label>
  <input type="submit" value="Convert">
</form>
</body></html>`

const readyHTML = `<!DOCTYPE html>
<html><head><title>tabio - ready</title></head><body>
<h1>Conversion complete</h1>
<p>{{.Stats.TotalRecords}} records converted to {{.Options.ToSyntax}}
  {{if .Stats.DuplicateRecords}}({{.Stats.DuplicateRecords}} duplicates dropped){{end}}</p>
<pre>{{.Log}}</pre>
<p><a href="/download?k={{.Token}}">Download results</a></p>
</body></html>`
