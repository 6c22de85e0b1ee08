// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubmed-contacts CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pubmed-contacts/internal/logging"
	"github.com/pdiddy/pubmed-contacts/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds keys loaded from the secrets directory at startup.
	loadedSecrets map[string]string
	// dotEnv holds variables read from the .env file at startup.
	dotEnv map[string]string
	// logger is the process logger; commands pass it down to library code.
	logger = zap.NewNop()
)

// rootCmd is the base command for the pubmed-contacts CLI.
var rootCmd = &cobra.Command{
	Use:   "pubmed-contacts",
	Short: "Extract author contact details from PubMed search results",
	Long: `pubmed-contacts searches PubMed through the NCBI E-utilities API, filters
the matching articles, and extracts (title, author, email) rows from author
affiliations. Results are deduplicated and exported as CSV, JSON, or YAML.

Runs can be stored in a local SQLite database, listed with history, and
re-exported later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("log_level"), os.Stderr)
		if err != nil {
			return err
		}
		logger = l

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Info("loaded secrets", zap.Strings("keys", keys))
		}

		envFile, _ := cmd.Flags().GetString("env-file")
		env, err := secrets.LoadDotEnv(envFile)
		if err != nil {
			return err
		}
		dotEnv = env
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pubmed-contacts.yaml or ~/.config/pubmed-contacts/pubmed-contacts.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret files (pubmed-api-key, pubmed-email)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file read for PUBMED_API_KEY and PUBMED_EMAIL")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("db", "", "SQLite database for stored runs (empty disables storing)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubmed-contacts")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubmed-contacts"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("PUBMED_CONTACTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
