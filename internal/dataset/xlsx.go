package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Read decodes the selected sheet: SheetName when set, else the 1-based
// SheetIndex, else the first sheet. The first row is the header.
func (xlsxReader) Read(src io.Reader, name string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return New(name)
	}
	sheet := ""
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.SheetName, name, strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheets", idx, name, len(sheets))
		}
		sheet = sheets[idx-1]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return New(name)
	}
	records := rows[1:]
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
	}
	dates := newDateCells(f, sheet)
	for i, rec := range records {
		for j, v := range rec {
			// records[i] is sheet row i+2 (row 1 is the header)
			if s, ok := dates.text(i+2, j+1, v); ok {
				rec[j] = s
			}
		}
	}
	return FromRecords(name, rows[0], records, opt)
}

type dateKind int

const (
	notDate dateKind = iota
	dateValue
	timeValue
)

// dateCells rewrites date-formatted serial numbers as ISO text so date
// columns are not read as numbers. Style lookups are cached per style id.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	kinds    map[int]dateKind
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, kinds: map[int]dateKind{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// text returns the ISO form of a raw cell value when the cell at the 1-based
// row and column carries a date or time number format.
func (d *dateCells) text(row, col int, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", false
	}
	id, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return "", false
	}
	kind, ok := d.kinds[id]
	if !ok {
		kind = d.styleKind(id)
		d.kinds[id] = kind
	}
	if kind == notDate {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	switch {
	case kind == timeValue:
		return t.Format("15:04:05"), true
	case t.Equal(t.Truncate(24 * time.Hour)):
		return t.Format("2006-01-02"), true
	}
	return t.Format("2006-01-02 15:04:05"), true
}

func (d *dateCells) styleKind(id int) dateKind {
	style, err := d.f.GetStyle(id)
	if err != nil || style == nil {
		return notDate
	}
	if style.CustomNumFmt != nil {
		return customFormatKind(*style.CustomNumFmt)
	}
	return builtinFormatKind(style.NumFmt)
}

// builtinFormatKind classifies the built-in number format ids, including the
// CJK locale date formats.
func builtinFormatKind(id int) dateKind {
	switch {
	case id >= 14 && id <= 17, id == 22, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return dateValue
	case id >= 18 && id <= 21, id >= 45 && id <= 47:
		return timeValue
	}
	return notDate
}

// customFormatKind inspects a format code with quoted text, escapes and
// bracketed sections removed: y or d means a date; h or s without them a
// time; a lone m is a month.
func customFormatKind(code string) dateKind {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	// only the positive section decides
	clean := strings.ToLower(strings.SplitN(b.String(), ";", 2)[0])
	switch {
	case strings.ContainsAny(clean, "yd"):
		return dateValue
	case strings.ContainsAny(clean, "hs"):
		return timeValue
	case strings.Contains(clean, "m"):
		return dateValue
	}
	return notDate
}

// ReadXLSX decodes a workbook sheet.
func ReadXLSX(r io.Reader, name string, opt Options) (*Dataset, error) {
	return xlsxReader{}.Read(r, name, opt)
}

// WriteXLSX writes ds as a single-sheet workbook. Numbers are stored as
// numeric cells, text as strings, missing cells stay empty.
func WriteXLSX(w io.Writer, ds *Dataset, sheet string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}
	header := make([]any, ds.NumCols())
	for j, n := range ds.Names() {
		header[j] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := ds.Columns()
	for i := 0; i < ds.NumRows(); i++ {
		row := make([]any, len(cols))
		for j := range cols {
			row[j] = cols[j].Value(i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
