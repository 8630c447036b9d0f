package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/flowviz-cli/internal/config"
	"github.com/KaramelBytes/flowviz-cli/internal/session"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userHashCmd = &cobra.Command{
	Use:   "hash <password>",
	Short: "Print the bcrypt hash of a password for the users config map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := session.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <username> <password>",
	Short: "Add or replace a user and save the config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// viper folds map keys to lower case on load
		name := strings.ToLower(args[0])
		h, err := session.HashPassword(args[1])
		if err != nil {
			return err
		}
		c, err := editableConfig()
		if err != nil {
			return err
		}
		c.Users[name] = h
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ Saved user '%s'\n", name)
		return nil
	},
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a user and save the config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := editableConfig()
		if err != nil {
			return err
		}
		name := strings.ToLower(args[0])
		if _, ok := c.Users[name]; !ok {
			return fmt.Errorf("user not found: %s", name)
		}
		delete(c.Users, name)
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ Removed user '%s'\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userHashCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRemoveCmd)
}

// editableConfig returns the loaded config, loading it if startup failed.
func editableConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if cfg.Users == nil {
		cfg.Users = map[string]string{}
	}
	return cfg, nil
}
