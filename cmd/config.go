package cmd

import (
	"fmt"
	"sort"
	"strconv"

	cfgpkg "github.com/KaramelBytes/flowviz-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set FlowViz configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("delimiter: %q\n", cfg.Delimiter)
		fmt.Printf("decimal_separator: %q\n", cfg.DecimalSeparator)
		fmt.Printf("thousands_separator: %q\n", cfg.ThousandsSeparator)
		fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		if cfg.SheetName != "" {
			fmt.Printf("sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Printf("output_dir: %s\n", cfg.OutputDir)
		fmt.Printf("plotly_url: %s\n", cfg.PlotlyURL)
		fmt.Printf("server_addr: %s\n", cfg.ServerAddr)
		names := make([]string, 0, len(cfg.Users))
		for n := range cfg.Users {
			names = append(names, n)
		}
		sort.Strings(names)
		fmt.Printf("users: %d\n", len(names))
		for _, n := range names {
			fmt.Printf("  %s: %s\n", n, mask(cfg.Users[n]))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

Keys: delimiter, decimal_separator, thousands_separator, max_rows, sheet_name,
output_dir, plotly_url, server_addr. Users are managed with 'flowviz user'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := editableConfig()
		if err != nil {
			return err
		}
		switch key {
		case "delimiter", "decimal_separator", "thousands_separator":
			if len([]rune(val)) > 1 && val != `\t` && val != "tab" {
				return fmt.Errorf("invalid %s: %q (use a single character or 'tab')", key, val)
			}
			switch key {
			case "delimiter":
				c.Delimiter = val
			case "decimal_separator":
				c.DecimalSeparator = val
			default:
				c.ThousandsSeparator = val
			}
		case "max_rows":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid int for max_rows: %s", val)
			}
			c.MaxRows = n
		case "sheet_name":
			c.SheetName = val
		case "output_dir":
			c.OutputDir = val
		case "plotly_url":
			c.PlotlyURL = val
		case "server_addr":
			c.ServerAddr = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
