// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-contacts/internal/contacts"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Manage filter presets",
	Long: `Filters writes and inspects YAML filter presets. A preset is passed to
search with --filters-file (or filters_file in the config file); individual
flags and PUBMED_CONTACTS_FILTERS_* variables still override its values.`,
}

var filtersInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the default filter preset to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		desc, _ := cmd.Flags().GetString("description")
		if err := contacts.WriteFilterFile(path, desc, types.DefaultFilterConfig()); err != nil {
			return err
		}
		fmt.Printf("Wrote default filters to %s\n", path)
		return nil
	},
}

var filtersShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective filter configuration",
	Long: `Show resolves the filter configuration the search command would use
(defaults, preset file, config file, environment) and prints it as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("filters-file")
		if path != "" {
			viper.Set("filters_file", path)
		}
		cfg, err := buildFilterConfig(viper.GetViper())
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(contacts.FilterFile{Filters: cfg}); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	filtersInitCmd.Flags().String("description", "Default food-addiction contact filters", "description stored in the preset")
	filtersInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	filtersShowCmd.Flags().String("filters-file", "", "YAML filter preset to resolve")

	filtersCmd.AddCommand(filtersInitCmd)
	filtersCmd.AddCommand(filtersShowCmd)
	rootCmd.AddCommand(filtersCmd)
}
