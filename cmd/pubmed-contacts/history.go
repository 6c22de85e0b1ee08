// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-contacts/internal/export"
	"github.com/pdiddy/pubmed-contacts/internal/store"
	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored search runs",
	Long: `History lists the runs saved in the SQLite database (--db), most recent
first, with their row counts and outcome.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatHistory(os.Stdout, runs, jsonOutput)
}

func formatHistory(w io.Writer, runs []store.Run, jsonOutput bool) error {
	if jsonOutput {
		if runs == nil {
			runs = []store.Run{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No stored runs.")
		return nil
	}

	fmt.Fprintf(w, "%-8s  %-16s  %-30s  %-12s  %8s  %6s  %6s\n",
		"ID", "Started", "Term", "Status", "Articles", "Rows", "Emails")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-16s  %-30s  %-12s  %8d  %6d  %6d\n",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Term, 30), r.Status, r.Articles, r.Rows, r.WithEmail)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export the rows of a stored run",
	Long: `Export writes the rows of a stored run to <term>_authors.csv (or .json/.yaml)
in the output directory. A unique prefix of the run ID is enough.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	name := viper.GetString("format")
	if cmd.Flags().Changed("format") {
		name, _ = cmd.Flags().GetString("format")
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	outputDir, _ := cmd.Flags().GetString("output-dir")

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	run, err := s.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	rows, err := s.Rows(ctx, run.ID)
	if err != nil {
		return err
	}

	stdout, _ := cmd.Flags().GetBool("stdout")
	if stdout {
		return export.Write(os.Stdout, format, rows)
	}

	path, err := export.WriteFile(outputDir, run.Term, format, rows)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d rows of run %s to %s\n", len(rows), shortID(run.ID), path)
	return nil
}

// --- forget ---

var forgetCmd = &cobra.Command{
	Use:   "forget <run-id>",
	Short: "Delete a stored run and its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		run, err := s.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if err := s.DeleteRun(ctx, run.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s (%q, %d rows)\n", shortID(run.ID), run.Term, run.Rows)
		return nil
	},
}

// openStore opens the configured run database. The history and export
// commands need one, so an unset path falls back to the default file.
func openStore() (*store.Store, error) {
	path := viper.GetString("db")
	if path == "" {
		path = store.DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no run database at %s: run search with --db first", path)
		}
		return nil, err
	}
	return store.Open(types.StoreConfig{Path: path})
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	exportCmd.Flags().String("output-dir", ".", "directory the export file is written to")
	exportCmd.Flags().String("format", "csv", "export format: csv, json, or yaml")
	exportCmd.Flags().Bool("stdout", false, "write to standard output instead of a file")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(forgetCmd)
}
