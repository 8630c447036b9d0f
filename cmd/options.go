package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/spf13/cobra"
)

// readFlags are the dataset reading flags shared by commands that load files.
type readFlags struct {
	delimiter string
	decimal   string
	thousands string
	sheet     string
	sheetIdx  int
}

func (r *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (auto-detect if omitted)")
	cmd.Flags().StringVar(&r.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (default '.')")
	cmd.Flags().StringVar(&r.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (none if omitted)")
	cmd.Flags().StringVar(&r.sheet, "sheet", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&r.sheetIdx, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet not provided)")
}

// options layers the flags over the configured reader options.
func (r *readFlags) options() (dataset.Options, error) {
	opt := settings().DatasetOptions()
	switch r.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", r.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(r.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", r.decimal)
	}
	switch strings.ToLower(r.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", r.thousands)
	}
	if r.sheet != "" {
		opt.SheetName = r.sheet
	}
	if r.sheetIdx > 0 {
		opt.SheetIndex = r.sheetIdx
	}
	return opt, nil
}

// load reads path with the flag-adjusted options.
func (r *readFlags) load(path string) (*dataset.Dataset, error) {
	opt, err := r.options()
	if err != nil {
		return nil, err
	}
	return dataset.Load(path, opt)
}
