// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aneuploidy/survival/sheet"
	"gopkg.in/guregu/null.v3"
)

const (
	clinicalBasename   = "TCGA_clinical_data"
	aneuploidyBasename = "TCGA_aneuploidy_data"
	mutationBasename   = "mutation.mc3.v0.2.8"

	patientColumn = "bcr_patient_barcode"
	typeColumn    = "type"
	sampleColumn  = "Sample"
	// aneuploidy tables capitalize the cancer type column
	aneuploidyTypeColumn = "Type"
)

type endpointID int

const (
	OS endpointID = iota
	DSS
	DFI
	PFI
	numEndpoints
)

var endpointNames = [numEndpoints]string{"OS", "DSS", "DFI", "PFI"}

// Name returns the event column name, e.g., "OS".
func (e endpointID) Name() string { return endpointNames[e] }

// TimeName returns the time-to-event column name, e.g., "OS.time".
func (e endpointID) TimeName() string { return endpointNames[e] + ".time" }

// Endpoint is one (event, time-to-event) pair. Either may be null.
type Endpoint struct {
	Event null.Float
	Time  null.Float
}

type ClinicalRecord struct {
	Patient   string
	Type      string
	Endpoints [numEndpoints]Endpoint
}

type AneuploidySample struct {
	Sample string
	Type   string
	Values []null.Float // same order as AneuploidyTable.Features
}

type AneuploidyTable struct {
	Features []string
	Samples  []AneuploidySample
}

// Types returns the distinct, non-empty cancer types in order of
// first appearance.
func (t *AneuploidyTable) Types() []string {
	var types []string
	seen := map[string]bool{}
	for _, s := range t.Samples {
		if s.Type != "" && !seen[s.Type] {
			seen[s.Type] = true
			types = append(types, s.Type)
		}
	}
	return types
}

// parseValue converts a spreadsheet cell to a nullable float. Blank
// cells and placeholders like "#N/A" or "[Not Available]" are null.
func parseValue(s string) null.Float {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

func requireColumns(fnm string, t *sheet.Table, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.Index(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%s: no column named %q in header row %q", fnm, name, t.Header)
		}
	}
	return idx, nil
}

func loadClinical(fnm string) ([]ClinicalRecord, error) {
	t, err := sheet.Read(fnm, sheet.Options{})
	if err != nil {
		return nil, err
	}
	names := []string{patientColumn, typeColumn}
	for e := endpointID(0); e < numEndpoints; e++ {
		names = append(names, e.Name(), e.TimeName())
	}
	idx, err := requireColumns(fnm, t, names...)
	if err != nil {
		return nil, err
	}
	records := make([]ClinicalRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := ClinicalRecord{
			Patient: row[idx[0]],
			Type:    row[idx[1]],
		}
		for e := endpointID(0); e < numEndpoints; e++ {
			rec.Endpoints[e] = Endpoint{
				Event: parseValue(row[idx[2+2*int(e)]]),
				Time:  parseValue(row[idx[3+2*int(e)]]),
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func loadAneuploidy(fnm string) (*AneuploidyTable, error) {
	opts := sheet.Options{}
	if lower := strings.ToLower(fnm); strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		// the published workbook has a title line above the header
		opts.HeaderRow = 1
	}
	t, err := sheet.Read(fnm, opts)
	if err != nil {
		return nil, err
	}
	idx, err := requireColumns(fnm, t, sampleColumn, aneuploidyTypeColumn)
	if err != nil {
		return nil, err
	}
	var featureCols []int
	at := &AneuploidyTable{}
	for col, name := range t.Header {
		if col == idx[0] || col == idx[1] || name == "" {
			continue
		}
		featureCols = append(featureCols, col)
		at.Features = append(at.Features, name)
	}
	for _, row := range t.Rows {
		s := AneuploidySample{
			Sample: row[idx[0]],
			Type:   strings.TrimSpace(row[idx[1]]),
			Values: make([]null.Float, len(featureCols)),
		}
		for i, col := range featureCols {
			s.Values[i] = parseValue(row[col])
		}
		at.Samples = append(at.Samples, s)
	}
	return at, nil
}
