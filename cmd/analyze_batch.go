package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	abRead       readFlags
	abOutDir     string
	abFormat     string
	abSampleRows int
	abNoHTML     bool
	abQuiet      bool
	abKeepGoing  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		outDir := abOutDir
		if outDir == "" {
			outDir = settings().OutputDir
		}
		if outDir == "" {
			return fmt.Errorf("--out-dir is required (or set output_dir in config)")
		}

		used := map[string]int{}
		total := len(files)
		failed := 0
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			err := func() error {
				ds, err := abRead.load(path)
				if err != nil {
					return err
				}
				out, err := analyzeDataset(ds, abFormat, abSampleRows)
				if err != nil {
					return err
				}
				return writeAnalysis(outDir, uniqueSource(used, path), out, !abNoHTML)
			}()
			if err != nil {
				if !abKeepGoing {
					return fmt.Errorf("%s: %w", path, err)
				}
				failed++
				log.Warn().Err(err).Str("file", path).Msg("analysis failed")
				fmt.Fprintf(os.Stderr, "⚠ Skipped %s: %v\n", path, err)
			}
		}
		if !abQuiet {
			fmt.Printf("✓ Analyzed %d of %d files\n", total-failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abRead.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abOutDir, "out-dir", "o", "", "directory for reports and chart documents")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "markdown", "report format: markdown|json")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows per report (0 disables)")
	analyzeBatchCmd.Flags().BoolVar(&abNoHTML, "no-html", false, "skip the HTML chart documents")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress progress output")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "continue with the next file after a failure")
}

// expandInputs resolves globs, drops duplicates and sorts.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// uniqueSource renames repeated base names so outputs do not overwrite each
// other: the second "metrics.csv" becomes "metrics__2.csv".
func uniqueSource(used map[string]int, path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	used[stem]++
	if n := used[stem]; n > 1 {
		return fmt.Sprintf("%s__%d%s", stem, n, ext)
	}
	return base
}
