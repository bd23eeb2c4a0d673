// Copyright © 2025 svoctl authors
// SPDX-License-Identifier: Apache-2.0

// Package output renders command results as text tables, JSON, or YAML per
// the --output flag.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"gopkg.in/yaml.v2"
)

// Formats supported by Spit.
var Formats = []string{"text", "json", "yaml"}

// Spit renders rows to w. Column order is fixed by headers; rows missing a
// column render as an empty cell.
func Spit(w io.Writer, format string, headers []string, rows []map[string]interface{}) error {
	if w == nil {
		w = os.Stdout
	}

	switch format {
	case "json":
		doc, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(doc))
		return nil

	case "yaml":
		// yaml.v2 keeps map keys sorted, which reads better for humans.
		doc, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(doc))
		return nil

	case "text", "":
		spitTable(w, headers, rows)
		return nil
	}

	return fmt.Errorf("unsupported output format %q", format)
}

func spitTable(w io.Writer, headers []string, rows []map[string]interface{}) {
	var cells [][]string
	for _, row := range rows {
		line := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := row[h]; ok {
				line[i] = fmt.Sprintf("%v", v)
			}
		}
		cells = append(cells, line)
	}

	t := table.New().
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Headers(headers...).
		Rows(cells...)

	fmt.Fprintln(w, t)
}

// SortRows orders rows by the given keys, string-wise. Used before Spit so
// table output is stable across runs.
func SortRows(rows []map[string]interface{}, keys ...string) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a := fmt.Sprintf("%v", rows[i][k])
			b := fmt.Sprintf("%v", rows[j][k])
			if a != b {
				return a < b
			}
		}
		return false
	})
	log.Debugf("sorted %d rows by %v", len(rows), keys)
}
