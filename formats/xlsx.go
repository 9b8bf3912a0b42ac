package formats

import (
	"io"
	"os"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
)

const (
	// check at most 5000 rows for header content
	xlsxHeaderCheckMaxRows = 5000
)

// XLSX reads tabular records from an excel workbook. Unlike the text
// syntaxes it needs no boundary detection, so it implements the Reader
// interface directly instead of going through an Engine.
type XLSX struct {
	f *excelize.File

	currentSheet int
	sheetMap     map[int]string

	head []string
	rows *excelize.Rows

	stickyErr error
}

// OpenXLSX opens an excel workbook and returns a formats.Reader
// positioned after the header row of the first sheet.
func OpenXLSX(in *os.File) (*XLSX, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, ErrUnsupportedFormat
	}

	x := &XLSX{
		f:            f,
		currentSheet: 1,
		sheetMap:     f.GetSheetMap(),
	}
	x.skipHeaders()
	return x, x.stickyErr
}

// NextSheet moves to the next sheet in the workbook.
func (x *XLSX) NextSheet() error {
	x.currentSheet++
	if _, ok := x.sheetMap[x.currentSheet]; !ok {
		return io.EOF
	}
	x.head = nil
	x.skipHeaders()
	return x.stickyErr
}

func (x *XLSX) skipHeaders() {
	// if there are descriptive lines etc at the top we try to skip over them
	x.rows, x.stickyErr = x.f.Rows(x.sheetMap[x.currentSheet])
	if x.stickyErr != nil {
		return
	}

	// out of the first N rows, which number of columns is the most frequent?
	bestcols := 0
	nr := 0
	colcounts := make(map[int]int)
	for x.rows.Next() {
		cols := x.rows.Columns()
		nr++
		colcounts[len(cols)]++
		if colcounts[len(cols)] > colcounts[bestcols] {
			bestcols = len(cols)
		}
		if nr > xlsxHeaderCheckMaxRows {
			break
		}
	}

	// reset the row iterator and move until we hit first row with that number of columns
	// assume that that row is the header (TODO: be smarter about this)
	x.rows, x.stickyErr = x.f.Rows(x.sheetMap[x.currentSheet])
	if x.stickyErr != nil {
		return
	}
	for x.rows.Next() {
		cols := x.rows.Columns()
		if len(cols) == bestcols {
			x.head = cols
			return
		}
	}
}

// Next returns the next Record in the workbook.
// (Implements the formats.Reader interface)
func (x *XLSX) Next() (*Record, error) {
	if !x.rows.Next() {
		x.stickyErr = x.rows.Error()
		if x.stickyErr == nil {
			return nil, io.EOF
		}
		return nil, x.stickyErr
	}

	cols := x.rows.Columns()
	return &Record{
		Fields: x.head,
		Values: cols,
	}, nil
}

// Err returns the last error that occured.
func (x *XLSX) Err() error {
	return x.stickyErr
}

/////

// XLSXWriter assembles records into a single-sheet excel workbook. The
// header row is written from the first record's field names; the
// workbook is serialized on Close.
type XLSXWriter struct {
	f     *excelize.File
	out   io.Writer
	sheet string
	row   int

	head      []string
	stickyErr error
}

// NewXLSXWriter returns a formats.Writer producing an excel workbook
// on w when closed.
func NewXLSXWriter(w io.Writer) *XLSXWriter {
	f := excelize.NewFile()
	return &XLSXWriter{f: f, out: w, sheet: "Sheet1"}
}

func (x *XLSXWriter) setRow(rowno int, values []string) {
	for i, v := range values {
		axis := excelize.ToAlphaString(i) + strconv.Itoa(rowno)
		x.f.SetCellStr(x.sheet, axis, v)
	}
}

// Write serializes the Record as one sheet row.
// (Implements the formats.Writer interface)
func (x *XLSXWriter) Write(rec *Record) error {
	if x.stickyErr != nil {
		return x.stickyErr
	}
	if x.head == nil {
		x.head = rec.Fields
		x.row = 1
		x.setRow(x.row, x.head)
	}
	x.row++
	x.setRow(x.row, rec.Values)
	return nil
}

// Close serializes the workbook to the underlying writer.
func (x *XLSXWriter) Close() error {
	if x.stickyErr != nil {
		return x.stickyErr
	}
	x.stickyErr = x.f.Write(x.out)
	return x.stickyErr
}

// Err returns the last error that occured.
func (x *XLSXWriter) Err() error {
	return x.stickyErr
}
