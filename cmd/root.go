package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/flowviz-cli/internal/config"
	"github.com/KaramelBytes/flowviz-cli/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	// Overrides (take precedence over config if set)
	flagMaxRows   int
	flagPlotlyURL string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "flowviz",
	Short: "FlowViz CLI: classify datasets and recommend charts",
	Long: `FlowViz reads CSV/TSV/XLSX datasets, classifies their columns, recommends
charts with a fixed rule table and renders them as standalone HTML, Mermaid or
tables. It can also compare two periods and serve everything over a JSON API.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.flowviz/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().IntVar(&flagMaxRows, "max-rows", 0, "maximum rows to read per file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagPlotlyURL, "plotly-url", "", "plotly.js script URL for HTML output (overrides config)")
}

func loadConfig() {
	dir, _ := cfgpkg.Dir()
	if err := logging.Init(verbose, dir); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: file logging disabled: %v\n", err)
	}

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("max-rows") && flagMaxRows > 0 {
		cfg.MaxRows = flagMaxRows
	}
	if f.Changed("plotly-url") && flagPlotlyURL != "" {
		cfg.PlotlyURL = flagPlotlyURL
	}
	log.Debug().Str("config", cfgFile).Int("max_rows", cfg.MaxRows).Msg("config loaded")
}

// settings returns the loaded config, or defaults when loading failed.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{Users: map[string]string{}}
}
