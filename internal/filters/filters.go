// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

// Package filters parses --filter expressions and applies them to result
// rows before output.
package filters

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/apex/log"
)

// filterRegex is the pattern used to parse filter expressions into key,
// operator, and target components. Operators are one of = ^ ~, optionally
// prefixed with '!' for negation, allowing forms like '=', '!=', '^', '!^'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~])(.*)$`)

// Filter represents a single parsed --filter expression including the key,
// operand, optional negation and target value.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a filter specification string into a slice of Filter.
// Invalid specs (unsupported operand or malformed expression) are skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	// If there are no filters specified, go home early.
	if spec == "" {
		return filters
	}

	// Default delimiter is ",", allow an override.
	delim := ","
	if d, ok := os.LookupEnv("SVOCTL_FILTER_DELIM"); ok {
		delim = d
	}

	filterSpecs := strings.Split(spec, delim)
	for _, filterSpec := range filterSpecs {
		parts := filterRegex.FindStringSubmatch(filterSpec)

		// If a supported operand was not found, log an error and throw it away.
		if parts == nil {
			log.Error("invalid filter: " + filterSpec)
			continue
		}

		negate := strings.HasPrefix(parts[2], "!")
		if negate {
			parts[2] = strings.TrimPrefix(parts[2], "!")
		}

		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: parts[2],
			Target:  parts[3],
		})
	}

	return filters
}

// FilterRows returns the rows matching every filter in spec. Row values
// are stringified with fmt before comparison.
func FilterRows(rows []map[string]interface{}, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return rows
	}

	//nolint:prealloc
	var out []map[string]interface{}
	for _, row := range rows {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		raw, ok := row[f.Key]
		if !ok {
			return false
		}
		value := fmt.Sprintf("%v", raw)

		var hit bool
		switch f.Operand {
		case "=":
			hit = value == f.Target
		case "^":
			hit = strings.HasPrefix(value, f.Target)
		case "~":
			hit = strings.Contains(value, f.Target)
		}

		if hit == f.Negate {
			return false
		}
	}
	return true
}
