package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/KaramelBytes/flowviz-cli/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	anaRead       readFlags
	anaOutDir     string
	anaFormat     string
	anaSampleRows int
	anaNoHTML     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify a dataset, recommend charts and render them",
	Long: `Analyze classifies the columns of a CSV/TSV/XLSX file, runs the chart
recommendation rules and renders every recommended chart.

Without --out-dir (and no output_dir in config) the report is printed to stdout.
With it, <name>.report.md (or .json) and <name>.charts.html are written there.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ds, err := anaRead.load(path)
		if err != nil {
			return err
		}
		out, err := analyzeDataset(ds, anaFormat, anaSampleRows)
		if err != nil {
			return err
		}

		outDir := anaOutDir
		if outDir == "" {
			outDir = settings().OutputDir
		}
		if outDir == "" {
			fmt.Println(string(out.report))
			return nil
		}
		if err := writeAnalysis(outDir, path, out, !anaNoHTML); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaRead.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutDir, "out-dir", "o", "", "directory for the report and chart document")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "report format: markdown|json")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().BoolVar(&anaNoHTML, "no-html", false, "skip the HTML chart document")
}

// analysisOutput is one analyzed dataset ready to be written.
type analysisOutput struct {
	report []byte
	ext    string
	html   []byte
}

func analyzeDataset(ds *dataset.Dataset, format string, sampleRows int) (*analysisOutput, error) {
	rep := analysis.Analyze(ds, sampleRows)
	specs := make([]analysis.Spec, len(rep.Recommendations))
	for i, r := range rep.Recommendations {
		specs[i] = r.Spec
	}
	figs := chart.RenderAll(ds, specs)
	log.Info().Str("file", ds.Name).Int("rows", ds.NumRows()).Int("charts", len(figs)).Msg("dataset analyzed")

	out := &analysisOutput{}
	switch strings.ToLower(format) {
	case "markdown", "md":
		out.report, out.ext = []byte(reportMarkdown(rep, figs)), ".report.md"
	case "json":
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return nil, err
		}
		out.report, out.ext = b, ".report.json"
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use markdown|json)", format)
	}

	var buf bytes.Buffer
	notes := []string{fmt.Sprintf("%s: %d rows, %d columns", ds.Name, ds.NumRows(), ds.NumCols())}
	if len(figs) == 0 {
		notes = append(notes, "No chart rule matched this dataset.")
	}
	if err := chart.WriteDocument(&buf, figs, chart.HTMLOptions{
		Title:     "FlowViz: " + ds.Name,
		PlotlyURL: settings().PlotlyURL,
		Notes:     notes,
	}); err != nil {
		return nil, err
	}
	out.html = buf.Bytes()
	return out, nil
}

// reportMarkdown appends a [CHARTS] section with Mermaid previews.
func reportMarkdown(rep *analysis.Report, figs []*chart.Figure) string {
	var b strings.Builder
	b.WriteString(rep.Markdown())
	if len(figs) == 0 {
		return b.String()
	}
	b.WriteString("\n[CHARTS]\n")
	for _, f := range figs {
		b.WriteString(fmt.Sprintf("### %s\n", f.Title()))
		if m := chart.Mermaid(f); m != "" {
			b.WriteString(m)
			b.WriteString("\n\n")
		} else {
			b.WriteString("(see HTML document)\n\n")
		}
	}
	return b.String()
}

func writeAnalysis(outDir, source string, out *analysisOutput, withHTML bool) error {
	if err := utils.EnsureDir(outDir); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	reportPath := utils.OutputPath(outDir, source, out.ext)
	if err := utils.SafeWriteFile(reportPath, out.report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("✓ Wrote report to %s\n", reportPath)
	if !withHTML {
		return nil
	}
	htmlPath := utils.OutputPath(outDir, source, ".charts.html")
	if err := utils.SafeWriteFile(htmlPath, out.html); err != nil {
		return fmt.Errorf("write charts: %w", err)
	}
	fmt.Printf("✓ Wrote charts to %s\n", htmlPath)
	return nil
}
