// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"path/filepath"

	"github.com/aneuploidy/survival/sheet"
	log "github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

const (
	geneColumn           = "Hugo_Symbol"
	tumorSampleColumn    = "Tumor_Sample_Barcode"
	classificationColumn = "Variant_Classification"

	tp53Gene    = "TP53"
	tp53Feature = "TP53"

	mutationZscoresFilename     = "p53_mutation_zscores.csv"
	multivariateZscoresFilename = "p53_aneuploidy_multivariate_zscores.csv"
)

// Variant classifications that do not alter the protein.
var silentClassifications = map[string]bool{
	"Silent":  true,
	"Intron":  true,
	"3'UTR":   true,
	"5'UTR":   true,
	"3'Flank": true,
	"5'Flank": true,
	"IGR":     true,
	"RNA":     true,
}

// mutationEndpoints is the endpoint order of the TP53 outputs.
var mutationEndpoints = []endpointID{OS, PFI, DFI, DSS}

// MutationTable records, for each sequenced (patient, sample type),
// whether a protein-altering TP53 call was seen.
type MutationTable struct {
	tp53 map[string]map[string]bool // patient => sample type => carrier
}

func loadMutations(fnm string) (*MutationTable, error) {
	t, err := sheet.Read(fnm, sheet.Options{})
	if err != nil {
		return nil, err
	}
	idx, err := requireColumns(fnm, t, geneColumn, tumorSampleColumn, classificationColumn)
	if err != nil {
		return nil, err
	}
	mt := &MutationTable{tp53: map[string]map[string]bool{}}
	skipped := 0
	for _, row := range t.Rows {
		patient, sampleType, ok := parseBarcode(row[idx[1]])
		if !ok {
			skipped++
			continue
		}
		bySample, ok := mt.tp53[patient]
		if !ok {
			bySample = map[string]bool{}
			mt.tp53[patient] = bySample
		}
		carrier := row[idx[0]] == tp53Gene && !silentClassifications[row[idx[2]]]
		bySample[sampleType] = bySample[sampleType] || carrier
	}
	if skipped > 0 {
		log.Warnf("%s: skipped %d rows with unparseable sample barcodes", fnm, skipped)
	}
	log.Infof("%s: %d profiled patients", fnm, len(mt.tp53))
	return mt, nil
}

// TP53 returns 1 if the patient's primary tumor (for cancer type
// ctype) carries a protein-altering TP53 call, 0 if it was profiled
// without one, and null if it was not profiled.
func (mt *MutationTable) TP53(patient, ctype string) null.Float {
	carrier, ok := mt.tp53[patient][primarySampleType(ctype)]
	if !ok {
		return null.Float{}
	}
	if carrier {
		return null.FloatFrom(1)
	}
	return null.FloatFrom(0)
}

// mutationRow is one line of the TP53 outputs.
type mutationRow struct {
	Type        string  `csv:"Type"`
	Endpoint    string  `csv:"Endpoint"`
	Var         string  `csv:"var"`
	N           int     `csv:"n"`
	Z           float64 `csv:"z"`
	P           float64 `csv:"p"`
	HazardRatio float64 `csv:"hazard_ratio"`
	LowerConf   float64 `csv:"lower_conf"`
	UpperConf   float64 `csv:"upper_conf"`
	CensorCount int     `csv:"censor count"`
}

func newMutationRow(ctype string, e endpointID, r resultRow) mutationRow {
	return mutationRow{
		Type:        ctype,
		Endpoint:    e.Name(),
		Var:         r.Var,
		N:           r.N,
		Z:           r.Z,
		P:           r.P,
		HazardRatio: r.HazardRatio,
		LowerConf:   r.LowerConf,
		UpperConf:   r.UpperConf,
		CensorCount: r.CensorCount,
	}
}

// clinicalTypes returns the cancer types of records in order of first
// appearance, and each type's records with duplicate patients removed.
func clinicalTypes(records []ClinicalRecord) ([]string, map[string][]*ClinicalRecord) {
	var types []string
	byType := map[string][]*ClinicalRecord{}
	seen := map[string]map[string]bool{}
	for i := range records {
		rec := &records[i]
		if seen[rec.Type] == nil {
			seen[rec.Type] = map[string]bool{}
			types = append(types, rec.Type)
		}
		if seen[rec.Type][rec.Patient] {
			continue
		}
		seen[rec.Type][rec.Patient] = true
		byType[rec.Type] = append(byType[rec.Type], rec)
	}
	return types, byType
}

type mutationAnalysis struct {
	regressor Regressor
	mutations *MutationTable
	// nil if the multivariate analysis is not wanted
	aneuploidy *AneuploidyTable
}

// fit runs one regression over the complete cases of the given
// covariate columns, returning nil if there are too few of them or
// the fit fails.
func (ma *mutationAnalysis) fit(ctype string, e endpointID, records []*ClinicalRecord, names []string, covariate func(rec *ClinicalRecord, i int) null.Float) []resultRow {
	var time, event []float64
	covariates := make([][]float64, len(names))
	for _, rec := range records {
		ep := rec.Endpoints[e]
		if !ep.Time.Valid || !ep.Event.Valid {
			continue
		}
		vals := make([]float64, len(names))
		complete := true
		for i := range names {
			v := covariate(rec, i)
			if !v.Valid {
				complete = false
				break
			}
			vals[i] = v.Float64
		}
		if !complete {
			continue
		}
		time = append(time, ep.Time.Float64)
		event = append(event, ep.Event.Float64)
		for i, v := range vals {
			covariates[i] = append(covariates[i], v)
		}
	}
	if len(time) < minObservations {
		log.Debugf("TP53: %s %s %v: %d observations, skipping", ctype, e.Name(), names, len(time))
		return nil
	}
	results, err := ma.regressor.Cox(time, event, covariates, names)
	if err != nil {
		log.Warnf("TP53: %s %s %v: %s", ctype, e.Name(), names, err)
		return nil
	}
	if len(results) != len(names) {
		log.Warnf("TP53: %s %s %v: regression returned %d results", ctype, e.Name(), names, len(results))
		return nil
	}
	rows := make([]resultRow, len(results))
	for i, res := range results {
		rows[i] = newResultRow(names[i], res, event)
	}
	return rows
}

// run returns the univariate TP53 rows and the TP53 + aneuploidy
// score rows for every cancer type in the clinical records.
func (ma *mutationAnalysis) run(records []ClinicalRecord) (univariate, multivariate []mutationRow) {
	types, byType := clinicalTypes(records)
	for _, ctype := range types {
		recs := byType[ctype]
		carriers := 0
		for _, rec := range recs {
			if ma.mutations.TP53(rec.Patient, ctype).ValueOrZero() == 1 {
				carriers++
			}
		}
		if carriers == 0 {
			log.Debugf("TP53: %s: no carriers, skipping", ctype)
			continue
		}
		log.Infof("TP53: cancer type %s (%d carriers)", ctype, carriers)
		var cohort *Cohort
		if ma.aneuploidy != nil {
			cohort = cleanCohort(ma.aneuploidy, ctype)
		}
		for _, e := range mutationEndpoints {
			rows := ma.fit(ctype, e, recs, []string{tp53Feature}, func(rec *ClinicalRecord, _ int) null.Float {
				return ma.mutations.TP53(rec.Patient, ctype)
			})
			for _, r := range rows {
				univariate = append(univariate, newMutationRow(ctype, e, r))
			}
			if cohort == nil {
				continue
			}
			rows = ma.fit(ctype, e, recs, []string{tp53Feature, aneuploidyScoreFeature}, func(rec *ClinicalRecord, i int) null.Float {
				if i == 0 {
					return ma.mutations.TP53(rec.Patient, ctype)
				}
				return cohort.Value(rec.Patient, aneuploidyScoreFeature)
			})
			for _, r := range rows {
				multivariate = append(multivariate, newMutationRow(ctype, e, r))
			}
		}
	}
	return univariate, multivariate
}

// runMutationAnalysis writes the TP53 outputs to outdir. The
// multivariate file is written only when anu is not nil.
func runMutationAnalysis(mutations *MutationTable, anu *AneuploidyTable, clinical []ClinicalRecord, regressor Regressor, outdir string) error {
	ma := &mutationAnalysis{
		regressor:  regressor,
		mutations:  mutations,
		aneuploidy: anu,
	}
	univariate, multivariate := ma.run(clinical)
	fnm := filepath.Join(outdir, mutationZscoresFilename)
	log.Infof("writing %d TP53 results to %s", len(univariate), fnm)
	if err := writeCSV(fnm, &univariate); err != nil {
		return err
	}
	if anu == nil {
		return nil
	}
	fnm = filepath.Join(outdir, multivariateZscoresFilename)
	log.Infof("writing %d TP53 + aneuploidy score results to %s", len(multivariate), fnm)
	return writeCSV(fnm, &multivariate)
}
