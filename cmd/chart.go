package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	chRead        readFlags
	chType        string
	chTitle       string
	chX           string
	chY           []string
	chColor       string
	chSize        string
	chOrientation string
	chColumns     []string
	chBins        int
	chRecommended int
	chOut         string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Build a custom chart, or render one recommended chart",
	Long: fmt.Sprintf(`Chart builds one chart from a dataset.

With --type it builds a custom chart (%s).
With --recommended N it renders the N-th (0-based) recommended chart instead.

The output format follows the --out extension: .html (standalone page),
.json (figure), .md (Mermaid), .csv/.xlsx (chart data). Without --out the
figure JSON is printed.`, chartTypeList()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := chRead.load(args[0])
		if err != nil {
			return err
		}

		var fig *chart.Figure
		switch {
		case chType != "":
			fig, err = chart.BuildCustom(ds, chart.CustomRequest{
				Type:        chart.ChartType(chType),
				Title:       chTitle,
				X:           chX,
				Y:           chY,
				Color:       chColor,
				Size:        chSize,
				Orientation: chOrientation,
				Columns:     chColumns,
				Bins:        chBins,
			})
		case chRecommended >= 0:
			specs := analysis.Recommend(ds)
			if chRecommended >= len(specs) {
				return fmt.Errorf("--recommended %d out of range: %d chart(s) recommended", chRecommended, len(specs))
			}
			fig, err = chart.Render(ds, specs[chRecommended])
		default:
			return fmt.Errorf("either --type or --recommended is required")
		}
		if err != nil {
			return err
		}
		log.Info().Str("file", ds.Name).Str("chart", fig.Title()).Int("traces", len(fig.Data)).Msg("chart built")

		if chOut == "" {
			b, err := utils.PrettyJSON(fig)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		if err := writeFigure(chOut, fig); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote chart to %s\n", chOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chRead.register(chartCmd)
	chartCmd.Flags().StringVarP(&chType, "type", "t", "", "custom chart type: "+chartTypeList())
	chartCmd.Flags().StringVar(&chTitle, "title", "", "chart title")
	chartCmd.Flags().StringVar(&chX, "x", "", "x column (pie names, box category, histogram column)")
	chartCmd.Flags().StringSliceVar(&chY, "y", nil, "y column(s); comma-separated or repeatable")
	chartCmd.Flags().StringVar(&chColor, "color", "", "scatter: column splitting points into traces")
	chartCmd.Flags().StringVar(&chSize, "size", "", "scatter: numeric column for marker size")
	chartCmd.Flags().StringVar(&chOrientation, "orientation", "v", "bar: 'v' or 'h'")
	chartCmd.Flags().StringSliceVar(&chColumns, "columns", nil, "heatmap: numeric columns to correlate")
	chartCmd.Flags().IntVar(&chBins, "bins", 0, "histogram: number of bins (default 30)")
	chartCmd.Flags().IntVar(&chRecommended, "recommended", -1, "render the N-th recommended chart instead of a custom one")
	chartCmd.Flags().StringVar(&chOut, "out", "", "output file (.html|.json|.md|.csv|.xlsx)")
}

func writeFigure(path string, fig *chart.Figure) error {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".html", ".htm":
		if err := chart.WriteHTML(&buf, fig, chart.HTMLOptions{PlotlyURL: settings().PlotlyURL}); err != nil {
			return err
		}
	case ".json":
		b, err := utils.PrettyJSON(fig)
		if err != nil {
			return err
		}
		buf.Write(b)
	case ".md":
		m := chart.Mermaid(fig)
		if m == "" {
			return fmt.Errorf("chart %q has no Mermaid form; use .html", fig.Title())
		}
		buf.WriteString(m + "\n")
	case ".csv", ".xlsx":
		return exportTable(path, fig.Table(), "Chart")
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func chartTypeList() string {
	names := make([]string, len(chart.ChartTypes))
	for i, t := range chart.ChartTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
