// Copyright © 2025 svoctl authors
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"facility": "Keck", "entries": 7},
		{"facility": "HST", "entries": 42},
	}
}

func TestSpitJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Spit(&buf, "json", []string{"facility", "entries"}, sampleRows()))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Keck", got[0]["facility"])
}

func TestSpitYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Spit(&buf, "yaml", []string{"facility", "entries"}, sampleRows()))
	assert.Contains(t, buf.String(), "facility: Keck")
}

func TestSpitText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Spit(&buf, "text", []string{"facility", "entries"}, sampleRows()))
	assert.Contains(t, buf.String(), "facility")
	assert.Contains(t, buf.String(), "Keck")

	// The empty format defaults to text.
	buf.Reset()
	require.NoError(t, Spit(&buf, "", []string{"facility"}, sampleRows()))
	assert.Contains(t, buf.String(), "HST")
}

func TestSpitUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Spit(&buf, "csv", nil, nil)
	assert.ErrorContains(t, err, `unsupported output format "csv"`)
}

func TestSortRows(t *testing.T) {
	rows := []map[string]interface{}{
		{"facility": "Keck", "instrument": "NIRC2"},
		{"facility": "HST", "instrument": "WFC3"},
		{"facility": "HST", "instrument": "ACS"},
	}

	SortRows(rows, "facility", "instrument")

	assert.Equal(t, "ACS", rows[0]["instrument"])
	assert.Equal(t, "WFC3", rows[1]["instrument"])
	assert.Equal(t, "Keck", rows[2]["facility"])
}
