// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package sheet reads the tabular inputs of the survival pipeline
// (clinical and aneuploidy spreadsheets, mutation call tables) into a
// header + rows form, regardless of whether they were delivered as
// .xlsx, .xls, or delimited text.
package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/extrame/xls"
	"github.com/klauspost/pgzip"
	"github.com/xuri/excelize/v2"
)

// Extensions lists the file name suffixes Read understands, in the
// order Find tries them.
var Extensions = []string{".xlsx", ".xls", ".tsv", ".tsv.gz", ".csv", ".csv.gz", ".maf", ".maf.gz", ".txt", ".txt.gz"}

var ErrNoHeader = errors.New("no header row")

type Options struct {
	// Sheet name for workbook formats. Empty means the first
	// sheet.
	Sheet string
	// 0-based index of the header row. Rows above it are
	// discarded.
	HeaderRow int
	// Field delimiter for text formats. Zero means infer from
	// the extension, or detect from the content.
	Comma rune
}

// Table is a header row plus data rows. Every row has exactly
// len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if t.index == nil {
		t.index = make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			if _, dup := t.index[h]; !dup {
				t.index[h] = i
			}
		}
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}
	col := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		col[r] = row[i]
	}
	return col, true
}

// Find returns the first existing file dir/base+ext for ext in
// Extensions.
func Find(dir, base string) (string, error) {
	for _, ext := range Extensions {
		fnm := filepath.Join(dir, base+ext)
		if fi, err := os.Stat(fnm); err == nil && !fi.IsDir() {
			return fnm, nil
		}
	}
	return "", fmt.Errorf("%s: no %s{%s} found", dir, base, strings.Join(Extensions, ","))
}

// Read loads the file at fnm, choosing a decoder by extension.
func Read(fnm string, opts Options) (*Table, error) {
	var (
		cells [][]string
		err   error
	)
	lower := strings.ToLower(fnm)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		cells, err = readXLSX(fnm, opts.Sheet)
	case strings.HasSuffix(lower, ".xls"):
		cells, err = readXLS(fnm, opts.Sheet)
	default:
		cells, err = readDelimited(fnm, opts.Comma)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	t, err := newTable(cells, opts.HeaderRow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return t, nil
}

func newTable(cells [][]string, headerRow int) (*Table, error) {
	if headerRow < 0 || len(cells) <= headerRow {
		return nil, ErrNoHeader
	}
	header := trimRow(cells[headerRow])
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrNoHeader
	}
	t := &Table{Header: header}
	for _, row := range cells[headerRow+1:] {
		row = trimRow(row)
		if isBlank(row) {
			continue
		}
		if len(row) < len(header) {
			row = append(row, make([]string, len(header)-len(row))...)
		}
		t.Rows = append(t.Rows, row[:len(header)])
	}
	return t, nil
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func readXLSX(fnm, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheetName = sheets[0]
	}
	// stored values, not the text a number format would display
	return f.GetRows(sheetName, excelize.Options{RawCellValue: true})
}

func readXLS(fnm, sheetName string) ([][]string, error) {
	wb, err := xls.Open(fnm, "utf-8")
	if err != nil {
		return nil, err
	}
	var sheet *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s != nil && (sheetName == "" || s.Name == sheetName) {
			sheet = s
			break
		}
	}
	if sheet == nil {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}
	var cells [][]string
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			cells = append(cells, nil)
			continue
		}
		var out []string
		for c := 0; c <= row.LastCol(); c++ {
			out = append(out, row.Col(c))
		}
		cells = append(cells, out)
	}
	return cells, nil
}

// zopen returns a reader for the given file, transparently
// decompressing the input if fnm ends with ".gz".
func zopen(fnm string) (io.ReadCloser, error) {
	f, err := os.Open(fnm)
	if err != nil || !strings.HasSuffix(fnm, ".gz") {
		return f, err
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipr{rdr, f}, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

func readDelimited(fnm string, comma rune) ([][]string, error) {
	f, err := zopen(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	br := bufio.NewReaderSize(f, 1<<20)
	if comma == 0 {
		comma = commaFor(fnm, br)
	}
	rdr := csv.NewReader(br)
	rdr.Comma = comma
	rdr.Comment = '#'
	rdr.LazyQuotes = true
	rdr.FieldsPerRecord = -1
	return rdr.ReadAll()
}

func commaFor(fnm string, br *bufio.Reader) rune {
	name := strings.TrimSuffix(strings.ToLower(fnm), ".gz")
	switch filepath.Ext(name) {
	case ".tsv", ".maf":
		return '\t'
	case ".csv":
		return ','
	}
	// Peek returns whatever is buffered along with io.EOF when the
	// file is shorter than the request; that is enough to sniff.
	head, _ := br.Peek(64 * 1024)
	return DetermineDelimiter(bytes.NewReader(head))
}

// DetermineDelimiter returns the single most likely rune that would
// delimit the values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')
	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}
	return ','
}
