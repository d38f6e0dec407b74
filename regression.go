// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/aneuploidy/survival/coxph"
	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Regressions with fewer complete observations than this are not
// attempted.
const minObservations = 11

// Regressor fits a proportional hazards model with one result per
// covariate.
type Regressor interface {
	Cox(time, event []float64, covariates [][]float64, names []string) ([]coxph.Result, error)
}

type coxRegressor struct{}

func (coxRegressor) Cox(time, event []float64, covariates [][]float64, names []string) ([]coxph.Result, error) {
	return coxph.Fit(time, event, covariates, names)
}

// resultRow is one line of a per-type regression output file.
type resultRow struct {
	Var         string  `csv:"var"`
	N           int     `csv:"n"`
	Z           float64 `csv:"z"`
	P           float64 `csv:"p"`
	HazardRatio float64 `csv:"hazard_ratio"`
	LowerConf   float64 `csv:"lower_conf"`
	UpperConf   float64 `csv:"upper_conf"`
	CensorCount int     `csv:"censor count"`
}

func newResultRow(varname string, res coxph.Result, events []float64) resultRow {
	return resultRow{
		Var:         varname,
		N:           res.N,
		Z:           res.Z,
		P:           res.P,
		HazardRatio: res.HazardRatio,
		LowerConf:   res.LowerConf,
		UpperConf:   res.UpperConf,
		CensorCount: int(sumOf(stats.Float64Data(events))),
	}
}

func resultFilename(analysisName string, e endpointID) string {
	return fmt.Sprintf("%s_%s_and_%s.csv", analysisName, e.Name(), e.TimeName())
}

// clinicalByType indexes clinical records by cancer type and patient.
// The first record of a patient wins.
func clinicalByType(records []ClinicalRecord) map[string]map[string]*ClinicalRecord {
	idx := map[string]map[string]*ClinicalRecord{}
	for i := range records {
		rec := &records[i]
		byPatient, ok := idx[rec.Type]
		if !ok {
			byPatient = map[string]*ClinicalRecord{}
			idx[rec.Type] = byPatient
		}
		if _, dup := byPatient[rec.Patient]; !dup {
			byPatient[rec.Patient] = rec
		}
	}
	return idx
}

type regressionRunner struct {
	analysis  analysis
	regressor Regressor
	dataDir   string
	clinical  map[string]map[string]*ClinicalRecord

	mtx     sync.Mutex
	written map[string]int // cancer type => result files
}

// observations returns the complete cases of (time, event, feature)
// for the given endpoint.
func observations(cohort *Cohort, featureIdx int, clinical map[string]*ClinicalRecord, e endpointID) []Observation {
	var obs []Observation
	for _, patient := range cohort.Patients {
		rec, ok := clinical[patient]
		if !ok {
			continue
		}
		ep := rec.Endpoints[e]
		val := cohort.Values[patient][featureIdx]
		if !ep.Time.Valid || !ep.Event.Valid || !val.Valid {
			continue
		}
		obs = append(obs, Observation{Time: ep.Time.Float64, Event: ep.Event.Float64, Value: val.Float64})
	}
	return obs
}

// runType runs every (endpoint, feature) regression of one cancer type
// and writes one file per endpoint that produced any result.
func (r *regressionRunner) runType(anu *AneuploidyTable, ctype string) error {
	log.Infof("%s: cancer type %s", r.analysis.Name, ctype)
	typeDir := filepath.Join(r.dataDir, ctype)
	cohort := cleanCohort(anu, ctype)
	cohort = cohort.Select(r.analysis.Columns(cohort.Features))
	clinical := r.clinical[ctype]

	for e := endpointID(0); e < numEndpoints; e++ {
		var rows []resultRow
		for fi, feature := range cohort.Features {
			obs := r.analysis.Transform(observations(cohort, fi, clinical, e))
			if len(obs) < minObservations {
				log.Debugf("%s: %s %s %s: %d observations, skipping", r.analysis.Name, ctype, e.Name(), feature, len(obs))
				continue
			}
			time := make([]float64, len(obs))
			event := make([]float64, len(obs))
			value := make([]float64, len(obs))
			for i, o := range obs {
				time[i], event[i], value[i] = o.Time, o.Event, o.Value
			}
			res, err := r.regressor.Cox(time, event, [][]float64{value}, []string{feature})
			if err != nil {
				log.Warnf("%s: %s %s %s: %s", r.analysis.Name, ctype, e.Name(), feature, err)
				continue
			} else if len(res) == 0 {
				log.Warnf("%s: %s %s %s: regression returned no result", r.analysis.Name, ctype, e.Name(), feature)
				continue
			}
			rows = append(rows, newResultRow(feature, res[0], event))
		}
		if len(rows) == 0 {
			continue
		}
		if err := maybeMkdir(typeDir); err != nil {
			return err
		}
		fnm := filepath.Join(typeDir, resultFilename(r.analysis.Name, e))
		if err := writeCSV(fnm, &rows); err != nil {
			return err
		}
		r.mtx.Lock()
		r.written[ctype]++
		r.mtx.Unlock()
	}
	return nil
}

// logSummary reports the number of result files per cancer type, in
// type order.
func (r *regressionRunner) logSummary(types []string) {
	sorted := append([]string(nil), types...)
	sort.Strings(sorted)
	for _, ctype := range sorted {
		log.Infof("%s: %s: %d result files", r.analysis.Name, ctype, r.written[ctype])
	}
}

// runAnalysis runs one named analysis over every cancer type in the
// aneuploidy table, then aggregates the per-type results. A failure in
// one cancer type does not stop the others; all failures are returned
// together.
func runAnalysis(a analysis, anu *AneuploidyTable, clinical []ClinicalRecord, regressor Regressor, outdir string) error {
	log.Infof("analysis %s", a.Name)
	dataDir := filepath.Join(outdir, a.Name)
	pancanDir := filepath.Join(outdir, a.Name+"_pancan")
	for _, dir := range []string{dataDir, pancanDir} {
		if err := maybeMkdir(dir); err != nil {
			return err
		}
	}
	runner := &regressionRunner{
		analysis:  a,
		regressor: regressor,
		dataDir:   dataDir,
		clinical:  clinicalByType(clinical),
		written:   map[string]int{},
	}
	throttle := &throttle{Max: runtime.NumCPU()}
	types := anu.Types()
	for _, ctype := range types {
		ctype := ctype
		throttle.Acquire()
		go func() {
			defer throttle.Release()
			if err := runner.runType(anu, ctype); err != nil {
				throttle.Report(fmt.Errorf("%s: cancer type %s: %w", a.Name, ctype, err))
			}
		}()
	}
	err := throttle.Wait()
	runner.logSummary(types)
	if perr := pancan(a.Name, dataDir, pancanDir); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: pan-cancer: %w", a.Name, perr))
	}
	return err
}
