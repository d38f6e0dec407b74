// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/check.v1"
)

type pancanSuite struct{}

var _ = check.Suite(&pancanSuite{})

func writeResults(c *check.C, dataDir, ctype, fnm string, rows []resultRow) {
	dir := filepath.Join(dataDir, ctype)
	c.Assert(os.MkdirAll(dir, 0777), check.IsNil)
	c.Assert(writeCSV(filepath.Join(dir, fnm), &rows), check.IsNil)
}

func (s *pancanSuite) TestResultRoundTrip(c *check.C) {
	tmpdir := c.MkDir()
	in := []resultRow{{Var: "1p", N: 40, Z: -1.25, P: 0.21, HazardRatio: 0.8, LowerConf: 0.5, UpperConf: 1.1, CensorCount: 12}}
	writeResults(c, tmpdir, "BRCA", "x.csv", in)
	out, err := readResultRows(filepath.Join(tmpdir, "BRCA", "x.csv"))
	c.Assert(err, check.IsNil)
	c.Check(out, check.DeepEquals, in)

	buf, err := ioutil.ReadFile(filepath.Join(tmpdir, "BRCA", "x.csv"))
	c.Assert(err, check.IsNil)
	c.Check(strings.SplitN(string(buf), "\n", 2)[0], check.Equals, "var,n,z,p,hazard_ratio,lower_conf,upper_conf,censor count")
}

func (s *pancanSuite) TestPancan(c *check.C) {
	tmpdir := c.MkDir()
	dataDir := filepath.Join(tmpdir, "zscores")
	pancanDir := filepath.Join(tmpdir, "zscores_pancan")
	c.Assert(os.MkdirAll(pancanDir, 0777), check.IsNil)
	fnm := resultFilename("zscores", OS)
	c.Check(fnm, check.Equals, "zscores_OS_and_OS.time.csv")
	writeResults(c, dataDir, "OV", fnm, []resultRow{{Var: "1p", Z: -1}, {Var: "2q", Z: 3}})
	writeResults(c, dataDir, "BRCA", fnm, []resultRow{{Var: "1p", Z: 2}})
	// a type directory with no results for this endpoint
	c.Assert(os.MkdirAll(filepath.Join(dataDir, "ACC"), 0777), check.IsNil)

	c.Assert(pancan("zscores", dataDir, pancanDir), check.IsNil)

	tbl, err := collectPancan("zscores", dataDir, OS)
	c.Assert(err, check.IsNil)
	c.Check(tbl.Types, check.DeepEquals, []string{"BRCA", "OV"})
	stouffer := tbl.Stouffer()
	c.Assert(stouffer, check.HasLen, 2)
	c.Check(math.Abs(stouffer[0]-1/math.Sqrt2) < 1e-12, check.Equals, true)
	c.Check(stouffer[1], check.Equals, 3.0)

	buf, err := ioutil.ReadFile(filepath.Join(pancanDir, "zscores_pancan_OS.csv"))
	c.Assert(err, check.IsNil)
	lines := strings.Split(strings.TrimSpace(string(buf)), "\n")
	c.Assert(lines, check.HasLen, 3)
	c.Check(lines[0], check.Equals, "var,BRCA,OV,stouffer")
	c.Check(lines[1], check.Equals, fmt.Sprintf("1p,2,-1,%s", formatFloat((2.0+-1.0)/math.Sqrt(2))))
	c.Check(lines[2], check.Equals, "2q,,3,3")

	for _, e := range []endpointID{DSS, DFI, PFI} {
		_, err := os.Stat(filepath.Join(pancanDir, "zscores_pancan_"+e.Name()+".csv"))
		c.Check(os.IsNotExist(err), check.Equals, true)
	}
}
