// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package svo

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// idSplit accepts '/' and '.' interchangeably as delimiters, so both the
// SVO form 'facility/instrument.band' and the path form
// 'facility/instrument/band' parse to the same ID.
var idSplit = regexp.MustCompile(`[/.]`)

// ID identifies one filter: a facility, instrument, band tuple.
type ID struct {
	Facility   string
	Instrument string
	Band       string
}

// ParseID parses a filter ID in either delimiter form.
func ParseID(s string) (ID, error) {
	parts := idSplit.Split(s, -1)
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("invalid filter ID %q: want facility/instrument.band", s)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return ID{}, fmt.Errorf("invalid filter ID %q: empty component", s)
		}
	}
	return ID{Facility: parts[0], Instrument: parts[1], Band: parts[2]}, nil
}

// String renders the all-slash form used as the canonical store key.
func (id ID) String() string {
	return id.Facility + "/" + id.Instrument + "/" + id.Band
}

// SVO renders the ID the way the filter profile service expects it.
func (id ID) SVO() string {
	return id.Facility + "/" + id.Instrument + "." + id.Band
}

// RelPath is the slash-separated path of the entry payload below a store
// generation root.
func (id ID) RelPath() string {
	return path.Join(id.Facility, id.Instrument, id.Band+".vot")
}

// IDFromRelPath recovers an ID from a payload path relative to a generation
// root.
func IDFromRelPath(rel string) (ID, error) {
	rel = strings.TrimSuffix(path.Clean(rel), ".vot")
	return ParseID(rel)
}
