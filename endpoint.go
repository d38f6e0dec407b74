// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
)

const endpointSummaryFilename = "endpoint_data.csv"

// endpointSummary holds, per cancer type, the number of events and
// the number of known times to event for each endpoint. Columns are
// in name order.
type endpointSummary struct {
	Type    string `csv:"type"`
	DFI     int    `csv:"DFI"`
	DFITime int    `csv:"DFI.time"`
	DSS     int    `csv:"DSS"`
	DSSTime int    `csv:"DSS.time"`
	OS      int    `csv:"OS"`
	OSTime  int    `csv:"OS.time"`
	PFI     int    `csv:"PFI"`
	PFITime int    `csv:"PFI.time"`
}

func (s *endpointSummary) set(e endpointID, events, times int) {
	switch e {
	case OS:
		s.OS, s.OSTime = events, times
	case DSS:
		s.DSS, s.DSSTime = events, times
	case DFI:
		s.DFI, s.DFITime = events, times
	case PFI:
		s.PFI, s.PFITime = events, times
	}
}

// sumOf returns the sum of data, or 0 if data is empty.
func sumOf(data stats.Float64Data) float64 {
	if data.Len() == 0 {
		return 0
	}
	sum, err := data.Sum()
	if err != nil {
		return 0
	}
	return sum
}

// extractEndpoints drops records without a patient or cancer type and
// summarizes the remaining ones per type. The summary is sorted by
// type.
func extractEndpoints(records []ClinicalRecord) ([]ClinicalRecord, []endpointSummary) {
	kept := make([]ClinicalRecord, 0, len(records))
	events := map[string]*[numEndpoints]stats.Float64Data{}
	for _, rec := range records {
		if rec.Patient == "" || rec.Type == "" {
			continue
		}
		kept = append(kept, rec)
		ev, ok := events[rec.Type]
		if !ok {
			ev = &[numEndpoints]stats.Float64Data{}
			events[rec.Type] = ev
		}
		for e, ep := range rec.Endpoints {
			if !ep.Time.Valid {
				continue
			}
			// a counted time with an unknown event adds nothing
			// to the event sum
			ev[e] = append(ev[e], ep.Event.ValueOrZero())
		}
	}
	types := make([]string, 0, len(events))
	for ctype := range events {
		types = append(types, ctype)
	}
	sort.Strings(types)
	summary := make([]endpointSummary, 0, len(types))
	for _, ctype := range types {
		s := endpointSummary{Type: ctype}
		for e := endpointID(0); e < numEndpoints; e++ {
			data := events[ctype][e]
			s.set(e, int(sumOf(data)), data.Len())
		}
		summary = append(summary, s)
	}
	return kept, summary
}

func writeEndpointSummary(outdir string, summary []endpointSummary) error {
	fnm := filepath.Join(outdir, endpointSummaryFilename)
	log.Infof("writing endpoint summary to %s", fnm)
	return writeCSV(fnm, &summary)
}

// writeCSV marshals a slice of csv-tagged structs to fnm.
func writeCSV(fnm string, rows interface{}) error {
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	err = gocsv.Marshal(rows, f)
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", fnm, err)
	}
	return nil
}

// maybeMkdir creates dir unless it already exists.
func maybeMkdir(dir string) error {
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return nil
	}
	return os.MkdirAll(dir, 0777)
}
