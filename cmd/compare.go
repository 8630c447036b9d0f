package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/compare"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/KaramelBytes/flowviz-cli/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cmpRead   readFlags
	cmpExport string
	cmpChart  string
	cmpOut    string
)

var compareCmd = &cobra.Command{
	Use:   "compare <current> <previous>",
	Short: "Compare the numeric column totals of two periods",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cur, err := cmpRead.load(args[0])
		if err != nil {
			return fmt.Errorf("current: %w", err)
		}
		prev, err := cmpRead.load(args[1])
		if err != nil {
			return fmt.Errorf("previous: %w", err)
		}
		cols, sum := compare.Summarize(cur, prev)
		log.Info().Str("current", cur.Name).Str("previous", prev.Name).Strs("columns", cols).Msg("comparison computed")
		if sum.Empty() {
			fmt.Println("No shared numeric columns to compare.")
			return nil
		}
		fmt.Print(comparisonMarkdown(cur.Name, prev.Name, sum,
			compare.OverallChange(cur, prev, cols),
			compare.AverageDifference(cur, prev, cols)))

		if cmpExport != "" {
			if err := exportTable(cmpExport, sum.Table(), "Comparison"); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote comparison to %s\n", cmpExport)
		}
		if cmpChart != "" {
			if !containsString(cols, cmpChart) {
				return fmt.Errorf("%q is not a numeric column of both files (shared: %s)", cmpChart, strings.Join(cols, ", "))
			}
			out := cmpOut
			if out == "" {
				out = utils.OutputPath(settings().OutputDir, args[0], "."+chartFileStem(cmpChart)+".compare.html")
			}
			fig := compare.Chart(cur, prev, cmpChart)
			var buf bytes.Buffer
			note := fmt.Sprintf("Change: %.2f%%", compare.MetricChange(cur, prev, cmpChart))
			if err := chart.WriteHTML(&buf, fig, chart.HTMLOptions{PlotlyURL: settings().PlotlyURL, Notes: []string{note}}); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Printf("✓ Wrote chart to %s\n", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	cmpRead.register(compareCmd)
	compareCmd.Flags().StringVar(&cmpExport, "export", "", "write the summary table to a .csv or .xlsx file")
	compareCmd.Flags().StringVar(&cmpChart, "chart", "", "shared numeric column to chart month over month")
	compareCmd.Flags().StringVar(&cmpOut, "out", "", "HTML path for --chart (default next to <current>)")
}

func comparisonMarkdown(curName, prevName string, sum compare.Summary, overall, avgDiff float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[COMPARISON] %s vs %s\n", curName, prevName))
	b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", compare.ColMetric, compare.ColPrevious, compare.ColCurrent, compare.ColChange))
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, r := range sum.Rows {
		b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f |\n", r.Metric, r.Previous, r.Current, r.ChangePct))
	}
	b.WriteString(fmt.Sprintf("\nOverall change: %.2f%%\n", overall))
	b.WriteString(fmt.Sprintf("Average difference: %.2f\n", avgDiff))
	return b.String()
}

// exportTable writes ds as CSV or XLSX depending on the extension of path.
func exportTable(path string, ds *dataset.Dataset, sheet string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := dataset.WriteCSV(&buf, ds); err != nil {
			return err
		}
	case ".xlsx":
		if err := dataset.WriteXLSX(&buf, ds, sheet); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// chartFileStem makes a column name safe for a file name.
func chartFileStem(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
