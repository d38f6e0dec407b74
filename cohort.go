// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Cohort is the per-patient feature matrix of one cancer type.
type Cohort struct {
	Features []string
	Patients []string // first-occurrence order
	Values   map[string][]null.Float
}

// primarySampleType returns the TCGA sample type code that identifies
// the primary tumor of the given cancer type.
func primarySampleType(ctype string) string {
	if ctype == "LAML" {
		// primary blood derived cancer, peripheral blood
		return "03"
	}
	return "01"
}

// parseBarcode splits a TCGA sample barcode such as
// "TCGA-OR-A5J1-01A-11D-A29I-10" (or the dotted form
// "TCGA.OR.A5J1.01") into the patient barcode "TCGA-OR-A5J1" and the
// two-digit sample type "01".
func parseBarcode(barcode string) (patient, sampleType string, ok bool) {
	fields := strings.Split(strings.ReplaceAll(strings.TrimSpace(barcode), ".", "-"), "-")
	if len(fields) < 4 || len(fields[3]) < 2 {
		return "", "", false
	}
	for _, f := range fields[:3] {
		if f == "" {
			return "", "", false
		}
	}
	return strings.Join(fields[:3], "-"), fields[3][:2], true
}

// cleanCohort selects the primary tumor samples of ctype and reduces
// them to one row per patient. When a patient has more than one
// primary sample, the first one in the table wins.
func cleanCohort(t *AneuploidyTable, ctype string) *Cohort {
	want := primarySampleType(ctype)
	cohort := &Cohort{
		Features: t.Features,
		Values:   map[string][]null.Float{},
	}
	for _, s := range t.Samples {
		if s.Type != ctype {
			continue
		}
		patient, sampleType, ok := parseBarcode(s.Sample)
		if !ok || sampleType != want {
			continue
		}
		if _, dup := cohort.Values[patient]; dup {
			continue
		}
		cohort.Patients = append(cohort.Patients, patient)
		cohort.Values[patient] = s.Values
	}
	return cohort
}

// Select returns a cohort restricted to the named features, in the
// given order. Unknown names are ignored.
func (c *Cohort) Select(features []string) *Cohort {
	pos := make(map[string]int, len(c.Features))
	for i, f := range c.Features {
		pos[f] = i
	}
	var keep []int
	out := &Cohort{
		Patients: c.Patients,
		Values:   make(map[string][]null.Float, len(c.Values)),
	}
	for _, f := range features {
		if i, ok := pos[f]; ok {
			keep = append(keep, i)
			out.Features = append(out.Features, f)
		}
	}
	for patient, vals := range c.Values {
		sel := make([]null.Float, len(keep))
		for j, i := range keep {
			sel[j] = vals[i]
		}
		out.Values[patient] = sel
	}
	return out
}

// Value returns the named feature for a patient (null if either is
// unknown).
func (c *Cohort) Value(patient, feature string) null.Float {
	vals, ok := c.Values[patient]
	if !ok {
		return null.Float{}
	}
	for i, f := range c.Features {
		if f == feature {
			return vals[i]
		}
	}
	return null.Float{}
}
