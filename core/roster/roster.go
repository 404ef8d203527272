// Package roster reads student rosters from spreadsheets.
//
// The first row holds the column headers; every following non-blank row becomes a Row keyed
// by header. Empty cells are left out of their row.
package roster

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// MaxRows caps the rows of one upload.
const MaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("unsupported roster format, use .xlsx or .csv")
	ErrEmpty             = errors.New("roster has no student rows")
	ErrTooLarge          = errors.Errorf("roster has more than %d rows", MaxRows)
	ErrContentMismatch   = errors.New("roster content does not match its file extension")
)

// Unzipped workbook limits, sized for MaxRows rows of a few dozen short columns. Worksheets
// larger than the XML limit are unzipped to temporary files instead of memory.
var (
	unzipSizeLimit    int64 = 64 << 20 // mockable
	unzipXMLSizeLimit int64 = 16 << 20 // mockable
)

// sniffLen is how much of a file is read to detect its content type.
const sniffLen = 3072

type Row map[string]string

type Sheet struct {
	Headers []string
	Rows    []Row
}

// Cells returns the values of r in header order, for display.
func (s Sheet) Cells(r Row) []string {
	cells := make([]string, len(s.Headers))
	for i, h := range s.Headers {
		cells[i] = r[h]
	}
	return cells
}

// Records returns the rows in the shape of the upload payload.
func (s Sheet) Records() []map[string]string {
	recs := make([]map[string]string, len(s.Rows))
	for i, r := range s.Rows {
		recs[i] = r
	}
	return recs
}

// Parse reads the roster in r, picking the format from filename's extension.
func Parse(filename string, r io.Reader) (Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		if r, err = sniff(r, "application/zip"); err == nil {
			rows, err = readXLSX(r)
		}
	case ".csv":
		if r, err = sniff(r, "text/plain"); err == nil {
			rows, err = readCSV(r)
		}
	default:
		return Sheet{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Sheet{}, err
	}
	return build(rows)
}

// sniff checks that the content of r is of type want or one of its subtypes, and returns
// a reader yielding the whole content again.
func sniff(r io.Reader, want string) (io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "reading roster")
	}
	head = head[:n]

	for mt := mimetype.Detect(head); mt != nil; mt = mt.Parent() {
		if mt.Is(want) {
			return io.MultiReader(bytes.NewReader(head), r), nil
		}
	}
	return nil, ErrContentMismatch
}

// readXLSX reads the first worksheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r, excelize.Options{
		UnzipSizeLimit:    unzipSizeLimit,
		UnzipXMLSizeLimit: unzipXMLSizeLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	return rows, nil
}

func build(rows [][]string) (Sheet, error) {
	// skip leading blank rows to find the headers
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) < 2 {
		return Sheet{}, ErrEmpty
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = columnName(i)
		}
		headers[i] = h
	}

	sheet := Sheet{Headers: headers}
	for _, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(headers))
		for i, cell := range cells {
			if i >= len(headers) {
				break
			}
			if cell = strings.TrimSpace(cell); cell != "" {
				row[headers[i]] = cell
			}
		}
		sheet.Rows = append(sheet.Rows, row)
		if len(sheet.Rows) > MaxRows {
			return Sheet{}, ErrTooLarge
		}
	}
	if len(sheet.Rows) == 0 {
		return Sheet{}, ErrEmpty
	}
	return sheet, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnName names a header-less column the way spreadsheets do: A, B, ..., AA.
func columnName(i int) string {
	name, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return "column"
	}
	return name
}
