// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/check.v1"
	"gopkg.in/guregu/null.v3"
)

type mutationSuite struct{}

var _ = check.Suite(&mutationSuite{})

func writeMAF(c *check.C, fnm string, rows [][3]string) {
	var buf strings.Builder
	buf.WriteString("#version 2.4\n")
	buf.WriteString("Hugo_Symbol\tChromosome\tVariant_Classification\tTumor_Sample_Barcode\n")
	for _, row := range rows {
		fmt.Fprintf(&buf, "%s\t17\t%s\t%s\n", row[0], row[1], row[2])
	}
	c.Assert(ioutil.WriteFile(fnm, []byte(buf.String()), 0666), check.IsNil)
}

func (s *mutationSuite) TestLoadMutations(c *check.C) {
	fnm := filepath.Join(c.MkDir(), "mutation.mc3.v0.2.8.maf")
	writeMAF(c, fnm, [][3]string{
		{"TP53", "Missense_Mutation", "TCGA-AA-0001-01A-11D-A29I-10"},
		{"TP53", "Silent", "TCGA-AA-0002-01A-11D-A29I-10"},
		{"KRAS", "Missense_Mutation", "TCGA-AA-0003-01A-11D-A29I-10"},
		{"TP53", "Nonsense_Mutation", "TCGA-AB-0001-03A-11D-A29I-10"},
		{"TP53", "3'UTR", "TCGA-AA-0001-01A-11D-A29I-10"},
		{"TP53", "Missense_Mutation", "bogus"},
	})
	mt, err := loadMutations(fnm)
	c.Assert(err, check.IsNil)
	c.Check(mt.TP53("TCGA-AA-0001", "BRCA"), check.Equals, null.FloatFrom(1))
	c.Check(mt.TP53("TCGA-AA-0002", "BRCA"), check.Equals, null.FloatFrom(0))
	c.Check(mt.TP53("TCGA-AA-0003", "BRCA"), check.Equals, null.FloatFrom(0))
	c.Check(mt.TP53("TCGA-AA-0004", "BRCA").Valid, check.Equals, false)
	c.Check(mt.TP53("TCGA-AB-0001", "LAML"), check.Equals, null.FloatFrom(1))
	// not a primary sample for any type but LAML
	c.Check(mt.TP53("TCGA-AB-0001", "BRCA").Valid, check.Equals, false)
}

func (s *mutationSuite) TestMissingColumn(c *check.C) {
	fnm := filepath.Join(c.MkDir(), "muts.tsv")
	c.Assert(ioutil.WriteFile(fnm, []byte("Hugo_Symbol\tTumor_Sample_Barcode\nTP53\tTCGA-AA-0001-01A\n"), 0666), check.IsNil)
	_, err := loadMutations(fnm)
	c.Check(err, check.ErrorMatches, `.*no column named "Variant_Classification".*`)
}

func (s *mutationSuite) TestClinicalTypes(c *check.C) {
	types, byType := clinicalTypes([]ClinicalRecord{
		{Patient: "p1", Type: "OV"},
		{Patient: "p2", Type: "BRCA"},
		{Patient: "p1", Type: "OV"},
		{Patient: "p3", Type: "OV"},
	})
	c.Check(types, check.DeepEquals, []string{"OV", "BRCA"})
	c.Check(byType["OV"], check.HasLen, 2)
	c.Check(byType["BRCA"], check.HasLen, 1)
}

func (s *mutationSuite) TestRunMutationAnalysis(c *check.C) {
	tmpdir := c.MkDir()
	anu, clinical := fakeCohort(14)
	// a type with profiled patients but no TP53 carriers
	for i := 0; i < 12; i++ {
		rec := ClinicalRecord{Patient: fmt.Sprintf("TCGA-OV-%04d", i), Type: "OV"}
		rec.Endpoints[OS] = Endpoint{Event: null.FloatFrom(1), Time: null.FloatFrom(10)}
		clinical = append(clinical, rec)
	}
	// PFI known for 10 BRCA patients only
	for i := 0; i < 10; i++ {
		clinical[i].Endpoints[PFI] = Endpoint{Event: null.FloatFrom(0), Time: null.FloatFrom(50)}
	}
	// no aneuploidy score for one patient
	anu.Samples[13].Values[0] = null.Float{}

	var maf [][3]string
	for i := 0; i < 14; i++ {
		gene := "KRAS"
		if i%4 == 0 {
			gene = "TP53"
		}
		maf = append(maf, [3]string{gene, "Missense_Mutation", fmt.Sprintf("TCGA-AA-%04d-01A-11D", i)})
	}
	for i := 0; i < 12; i++ {
		maf = append(maf, [3]string{"KRAS", "Missense_Mutation", fmt.Sprintf("TCGA-OV-%04d-01A-11D", i)})
	}
	maffile := filepath.Join(tmpdir, "mutation.mc3.v0.2.8.tsv")
	writeMAF(c, maffile, maf)
	mt, err := loadMutations(maffile)
	c.Assert(err, check.IsNil)

	regressor := &stubRegressor{}
	c.Assert(runMutationAnalysis(mt, anu, clinical, regressor, tmpdir), check.IsNil)

	var univariate []mutationRow
	readMutationRows(c, filepath.Join(tmpdir, mutationZscoresFilename), &univariate)
	c.Assert(univariate, check.HasLen, 1)
	c.Check(univariate[0].Type, check.Equals, "BRCA")
	c.Check(univariate[0].Endpoint, check.Equals, "OS")
	c.Check(univariate[0].Var, check.Equals, "TP53")
	c.Check(univariate[0].N, check.Equals, 14)

	var multivariate []mutationRow
	readMutationRows(c, filepath.Join(tmpdir, multivariateZscoresFilename), &multivariate)
	c.Assert(multivariate, check.HasLen, 2)
	c.Check(multivariate[0].Var, check.Equals, "TP53")
	c.Check(multivariate[1].Var, check.Equals, "AneuploidyScore(AS)")
	c.Check(multivariate[1].N, check.Equals, 13)
}

func (s *mutationSuite) TestNoAneuploidy(c *check.C) {
	tmpdir := c.MkDir()
	_, clinical := fakeCohort(12)
	var maf [][3]string
	for i := 0; i < 12; i++ {
		maf = append(maf, [3]string{"TP53", "Frame_Shift_Del", fmt.Sprintf("TCGA-AA-%04d-01A", i)})
	}
	maffile := filepath.Join(tmpdir, "muts.tsv")
	writeMAF(c, maffile, maf)
	mt, err := loadMutations(maffile)
	c.Assert(err, check.IsNil)
	regressor := &stubRegressor{}
	c.Assert(runMutationAnalysis(mt, nil, clinical, regressor, tmpdir), check.IsNil)
	// every patient carries TP53 but the regression is still attempted
	c.Check(regressor.fits, check.DeepEquals, [][]string{{"TP53"}})
	_, err = os.Stat(filepath.Join(tmpdir, multivariateZscoresFilename))
	c.Check(os.IsNotExist(err), check.Equals, true)
}

func readMutationRows(c *check.C, fnm string, rows *[]mutationRow) {
	f, err := os.Open(fnm)
	c.Assert(err, check.IsNil)
	defer f.Close()
	c.Assert(gocsv.Unmarshal(f, rows), check.IsNil)
}

func (s *mutationSuite) TestEmptyRegressionResult(c *check.C) {
	tmpdir := c.MkDir()
	anu, clinical := fakeCohort(12)
	var maf [][3]string
	for i := 0; i < 12; i++ {
		maf = append(maf, [3]string{"TP53", "Nonsense_Mutation", fmt.Sprintf("TCGA-AA-%04d-01A", i)})
	}
	maffile := filepath.Join(tmpdir, "muts.tsv")
	writeMAF(c, maffile, maf)
	mt, err := loadMutations(maffile)
	c.Assert(err, check.IsNil)
	c.Assert(runMutationAnalysis(mt, anu, clinical, emptyRegressor{}, tmpdir), check.IsNil)
	var univariate, multivariate []mutationRow
	readMutationRows(c, filepath.Join(tmpdir, mutationZscoresFilename), &univariate)
	readMutationRows(c, filepath.Join(tmpdir, multivariateZscoresFilename), &multivariate)
	c.Check(univariate, check.HasLen, 0)
	c.Check(multivariate, check.HasLen, 0)
}
