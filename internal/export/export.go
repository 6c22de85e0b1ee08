// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes contact rows to CSV, JSON, or YAML files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// Header is the CSV header row.
var Header = []string{"title", "author", "email"}

// ParseFormat validates a format name. An empty name selects CSV.
func ParseFormat(name string) (types.ExportFormat, error) {
	switch f := types.ExportFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return types.FormatCSV, nil
	case types.FormatCSV, types.FormatJSON, types.FormatYAML:
		return f, nil
	case "yml":
		return types.FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, json, or yaml)", name)
}

// Filename derives the export file name from the search term: whitespace
// and path separators become underscores and "_authors.<ext>" is appended.
func Filename(term string, format types.ExportFormat) string {
	if format == "" {
		format = types.FormatCSV
	}
	base := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(term))
	return base + "_authors." + string(format)
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format types.ExportFormat, rows []types.ResultRow) error {
	switch format {
	case "", types.FormatCSV:
		return WriteCSV(w, rows)
	case types.FormatJSON:
		return WriteJSON(w, rows)
	case types.FormatYAML:
		return WriteYAML(w, rows)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, rows []types.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Title, r.Author, r.Email}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array. No rows encode as [].
func WriteJSON(w io.Writer, rows []types.ResultRow) error {
	if rows == nil {
		rows = []types.ResultRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteYAML writes rows as a YAML sequence.
func WriteYAML(w io.Writer, rows []types.ResultRow) error {
	if rows == nil {
		rows = []types.ResultRow{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// WriteFile writes rows into dir under the name derived from term and
// returns the file path.
func WriteFile(dir, term string, format types.ExportFormat, rows []types.ResultRow) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, Filename(term, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}

	if err := Write(f, format, rows); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
