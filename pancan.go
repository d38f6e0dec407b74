// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/aneuploidy/survival/coxph"
	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// pancanTable holds per-type z-scores for each variable.
type pancanTable struct {
	Types []string
	Vars  []string
	Z     map[string]map[string]float64 // var => type => z
}

func readResultRows(fnm string) ([]resultRow, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows []resultRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return rows, nil
}

// collectPancan reads the per-type result files of one endpoint. Each
// subdirectory of dataDir is a cancer type.
func collectPancan(analysisName, dataDir string, e endpointID) (*pancanTable, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, err
	}
	tbl := &pancanTable{Z: map[string]map[string]float64{}}
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		ctype := ent.Name()
		fnm := filepath.Join(dataDir, ctype, resultFilename(analysisName, e))
		if _, err := os.Stat(fnm); os.IsNotExist(err) {
			continue
		}
		rows, err := readResultRows(fnm)
		if err != nil {
			return nil, err
		}
		tbl.Types = append(tbl.Types, ctype)
		for _, row := range rows {
			byType, ok := tbl.Z[row.Var]
			if !ok {
				byType = map[string]float64{}
				tbl.Z[row.Var] = byType
				tbl.Vars = append(tbl.Vars, row.Var)
			}
			byType[ctype] = row.Z
		}
	}
	sort.Strings(tbl.Types)
	return tbl, nil
}

// Stouffer returns the combined z-score of each variable across the
// types that have one.
func (tbl *pancanTable) Stouffer() []float64 {
	out := make([]float64, len(tbl.Vars))
	for i, v := range tbl.Vars {
		z := make([]float64, 0, len(tbl.Types))
		for _, ctype := range tbl.Types {
			if val, ok := tbl.Z[v][ctype]; ok {
				z = append(z, val)
			}
		}
		out[i] = coxph.StoufferUnweighted(z)
	}
	return out
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (tbl *pancanTable) write(fnm string) error {
	f, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	header := append(append([]string{"var"}, tbl.Types...), "stouffer")
	w.Write(header)
	stouffer := tbl.Stouffer()
	for i, v := range tbl.Vars {
		rec := make([]string, 0, len(header))
		rec = append(rec, v)
		for _, ctype := range tbl.Types {
			if z, ok := tbl.Z[v][ctype]; ok {
				rec = append(rec, formatFloat(z))
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, formatFloat(stouffer[i]))
		w.Write(rec)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	return f.Close()
}

// pancan combines, for each endpoint, the per-type results written
// under dataDir into <pancanDir>/<analysis>_pancan_<endpoint>.csv.
func pancan(analysisName, dataDir, pancanDir string) error {
	for e := endpointID(0); e < numEndpoints; e++ {
		tbl, err := collectPancan(analysisName, dataDir, e)
		if err != nil {
			return err
		}
		if len(tbl.Types) == 0 {
			log.Infof("%s: no per-type results for %s, skipping pan-cancer table", analysisName, e.Name())
			continue
		}
		fnm := filepath.Join(pancanDir, fmt.Sprintf("%s_pancan_%s.csv", analysisName, e.Name()))
		log.Infof("writing %s (%d types, %d variables)", fnm, len(tbl.Types), len(tbl.Vars))
		if err := tbl.write(fnm); err != nil {
			return err
		}
	}
	return nil
}
