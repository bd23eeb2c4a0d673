// Copyright (c) 2025 svoctl authors.
// SPDX-License-Identifier: Apache-2.0

package svo

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// DetectorType is carried as a PARAM in every transmission VOTable.
type DetectorType int

const (
	EnergyCounter DetectorType = 0
	PhotonCounter DetectorType = 1
)

func (d DetectorType) String() string {
	if d == PhotonCounter {
		return "photon"
	}
	return "energy"
}

// VOTable is the subset of the VOTable XML schema the SVO service emits
// that we actually consume: flat tables of TD cells plus PARAM metadata.
type VOTable struct {
	XMLName   xml.Name   `xml:"VOTABLE"`
	Resources []Resource `xml:"RESOURCE"`
}

type Resource struct {
	Params []Param `xml:"PARAM"`
	Tables []Table `xml:"TABLE"`
}

type Table struct {
	Fields []Field `xml:"FIELD"`
	Params []Param `xml:"PARAM"`
	Rows   []Row   `xml:"DATA>TABLEDATA>TR"`
}

type Field struct {
	ID       string `xml:"ID,attr"`
	Name     string `xml:"name,attr"`
	Datatype string `xml:"datatype,attr"`
	Unit     string `xml:"unit,attr"`
}

type Param struct {
	ID    string `xml:"ID,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type Row struct {
	Cells []string `xml:"TD"`
}

// ErrNoTable means the document parsed but contained no TABLE element. The
// service answers queries with an empty RESOURCE instead of an HTTP error.
var ErrNoTable = errors.New("votable contains no table element")

// ParseVOTable decodes a VOTable document from r.
func ParseVOTable(r io.Reader) (*VOTable, error) {
	var vot VOTable
	if err := xml.NewDecoder(r).Decode(&vot); err != nil {
		return nil, fmt.Errorf("malformed votable: %w", err)
	}
	return &vot, nil
}

// Table returns the single table element, or ErrNoTable.
func (v *VOTable) Table() (*Table, error) {
	for i := range v.Resources {
		if len(v.Resources[i].Tables) > 0 {
			return &v.Resources[i].Tables[0], nil
		}
	}
	return nil, ErrNoTable
}

// Param looks up a PARAM by ID (or name) across resource and table scope.
func (v *VOTable) Param(id string) (string, bool) {
	for i := range v.Resources {
		for _, p := range v.Resources[i].Params {
			if p.ID == id || p.Name == id {
				return p.Value, true
			}
		}
		for _, t := range v.Resources[i].Tables {
			for _, p := range t.Params {
				if p.ID == id || p.Name == id {
					return p.Value, true
				}
			}
		}
	}
	return "", false
}

// DetectorType extracts the detector type PARAM. Defaults to energy counter
// when absent, matching how downstream photometry treats unknown filters.
func (v *VOTable) DetectorType() DetectorType {
	raw, ok := v.Param("DetectorType")
	if !ok {
		return EnergyCounter
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n != int(PhotonCounter) {
		return EnergyCounter
	}
	return PhotonCounter
}

// columnIndex matches a FIELD by ID first, then by name.
func (t *Table) columnIndex(name string) int {
	for i, f := range t.Fields {
		if f.ID == name {
			return i
		}
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Column returns all cell values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.columnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("votable has no column %q", name)
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row.Cells) {
			return nil, fmt.Errorf("votable row too short for column %q", name)
		}
		out = append(out, row.Cells[idx])
	}
	return out, nil
}

// Floats returns the named column parsed as float64.
func (t *Table) Floats(name string) ([]float64, error) {
	raw, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(raw))
	for _, cell := range raw {
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q cell %q: %w", name, cell, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Point is one sample of a transmission curve.
type Point struct {
	Wavelength   float64 // Angstrom
	Transmission float64
}

// TransmissionCurve extracts the (Wavelength, Transmission) columns of a
// filter VOTable.
func (v *VOTable) TransmissionCurve() ([]Point, error) {
	table, err := v.Table()
	if err != nil {
		return nil, err
	}
	waves, err := table.Floats("Wavelength")
	if err != nil {
		return nil, err
	}
	trans, err := table.Floats("Transmission")
	if err != nil {
		return nil, err
	}
	if len(waves) != len(trans) {
		return nil, fmt.Errorf("column length mismatch: %d wavelengths, %d transmissions", len(waves), len(trans))
	}
	points := make([]Point, len(waves))
	for i := range waves {
		points[i] = Point{Wavelength: waves[i], Transmission: trans[i]}
	}
	return points, nil
}
