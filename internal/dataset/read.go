package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options controls how raw tabular files are decoded.
type Options struct {
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, detected from extension and header line among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. DecimalSeparator 0 means '.'.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; removed before parsing when set
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for reading datasets.
func DefaultOptions() Options {
	return Options{
		MaxRows:    100000,
		SheetIndex: 1,
	}
}

// ErrUnsupportedFormat indicates no reader accepts the file extension.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Reader decodes one file format into a Dataset.
type Reader interface {
	CanRead(filename string) bool
	Read(r io.Reader, name string, opt Options) (*Dataset, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// Load opens path and decodes it with the reader matching its extension.
func Load(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opt)
}

// Read decodes r using the reader registered for filename's extension.
func Read(r io.Reader, filename string, opt Options) (*Dataset, error) {
	for _, rd := range registry {
		if rd.CanRead(filename) {
			return rd.Read(r, filename, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvReader) Read(src io.Reader, name string, opt Options) (*Dataset, error) {
	br := bufio.NewReader(src)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, br)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			break
		}
		rows = append(rows, rec)
	}
	return FromRecords(name, header, rows, opt)
}

// ReadCSV decodes delimited text.
func ReadCSV(r io.Reader, name string, opt Options) (*Dataset, error) {
	return csvReader{}.Read(r, name, opt)
}

func sniffDelimiter(name string, br *bufio.Reader) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	// Peek at the header line only; the reader keeps the bytes buffered.
	line, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// FromRecords infers column kinds from raw string records.
// Short records are padded with missing cells; extra cells are ignored.
func FromRecords(name string, header []string, records [][]string, opt Options) (*Dataset, error) {
	names := uniqueHeader(header)
	cols := make([]Column, len(names))
	for j, colName := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		cols[j] = inferColumn(colName, raw, opt)
	}
	return New(name, cols...)
}

// uniqueHeader names blank headers by position and suffixes duplicates.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		base := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if base == "" {
			base = fmt.Sprintf("Unnamed: %d", i)
		}
		name := base
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#NA": {}, "<NA>": {}, "#N/A N/A": {},
}

// IsMissing reports whether a trimmed raw cell counts as missing.
func IsMissing(s string) bool {
	_, ok := naTokens[s]
	return ok
}

func inferColumn(name string, raw []string, opt Options) Column {
	n := len(raw)
	nulls := make([]bool, n)
	nums := make([]float64, n)
	allInt, allNum := true, true
	for i, v := range raw {
		if IsMissing(v) {
			nulls[i] = true
			nums[i] = math.NaN()
			continue
		}
		if allInt {
			if iv, err := strconv.ParseInt(v, 10, 64); err == nil {
				nums[i] = float64(iv)
				continue
			}
			allInt = false
		}
		f, ok := parseNumeric(v, opt)
		if !ok {
			allNum = false
			break
		}
		nums[i] = f
	}
	if allNum {
		kind := KindFloat
		hasValue := false
		for _, isNull := range nulls {
			if !isNull {
				hasValue = true
				break
			}
		}
		if allInt && hasValue {
			kind = KindInteger
		}
		// Re-parse cells seen before allInt flipped so every value uses the float path.
		if !allInt {
			for i, v := range raw {
				if !nulls[i] {
					nums[i], _ = parseNumeric(v, opt)
				}
			}
		}
		return Column{Name: name, Kind: kind, Num: nums, Null: nulls}
	}
	text := make([]string, n)
	for i, v := range raw {
		if IsMissing(v) {
			nulls[i] = true
			continue
		}
		nulls[i] = false
		text[i] = v
	}
	return Column{Name: name, Kind: KindText, Text: text, Null: nulls}
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if thou := opt.ThousandsSeparator; thou != 0 && thou != opt.DecimalSeparator {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec := opt.DecimalSeparator; dec != 0 && dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
