// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

var testRows = []types.ResultRow{
	{Title: "Food addiction, a review", Author: "Jane Smith", Email: "jane@uni.edu"},
	{Title: `The "hedonic" brain`, Author: "Unknown Author", Email: "No email found"},
}

func TestFilename(t *testing.T) {
	tests := []struct {
		term   string
		format types.ExportFormat
		want   string
	}{
		{"food addiction", types.FormatCSV, "food_addiction_authors.csv"},
		{"obesity", "", "obesity_authors.csv"},
		{"  binge eating  ", types.FormatJSON, "binge_eating_authors.json"},
		{"a/b\\c", types.FormatYAML, "a_b_c_authors.yaml"},
		{"obesity[MeSH] AND 2020:2024[dp]", types.FormatCSV, "obesity[MeSH]_AND_2020:2024[dp]_authors.csv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.term, tt.format), "Filename(%q)", tt.term)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    types.ExportFormat
		wantErr bool
	}{
		{"", types.FormatCSV, false},
		{"CSV", types.FormatCSV, false},
		{"json", types.FormatJSON, false},
		{"yml", types.FormatYAML, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testRows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"title", "author", "email"},
		{"Food addiction, a review", "Jane Smith", "jane@uni.edu"},
		{`The "hedonic" brain`, "Unknown Author", "No email found"},
	}, records)
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "title,author,email\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testRows))

	var got []types.ResultRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testRows, got)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, testRows))
	assert.Contains(t, buf.String(), "author: Jane Smith")

	var got []types.ResultRow
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testRows, got)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xlsx", testRows))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteFile(dir, "food addiction", types.FormatCSV, testRows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "food_addiction_authors.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title,author,email\n")
	assert.Contains(t, string(data), `"Food addiction, a review",Jane Smith,jane@uni.edu`)
}
