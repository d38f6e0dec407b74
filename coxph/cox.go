// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package coxph fits proportional hazards models and combines
// z-scores across independent studies.
package coxph

import (
	"errors"
	"fmt"
	"math"

	"github.com/kshedden/statmodel/duration"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerate is returned when the data cannot support a fit:
// no rows, no events, or a covariate without variance.
var ErrDegenerate = errors.New("degenerate data")

// Result holds the fitted effect of one covariate.
type Result struct {
	Var         string
	N           int
	Z           float64
	P           float64
	HazardRatio float64
	LowerConf   float64
	UpperConf   float64
}

// two-sided 95% interval
var confQuantile = distuv.UnitNormal.Quantile(0.975)

// Univariate fits a model with a single covariate.
func Univariate(time, status, covariate []float64) (Result, error) {
	res, err := Fit(time, status, [][]float64{covariate}, []string{"x"})
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

// Fit fits a Cox proportional hazards model of (time, status) on the
// given covariates, returning one Result per covariate in the order
// of names.
func Fit(time, status []float64, covariates [][]float64, names []string) (results []Result, err error) {
	n := len(time)
	if n == 0 || len(status) != n {
		return nil, fmt.Errorf("%w: %d times, %d statuses", ErrDegenerate, n, len(status))
	}
	if len(covariates) == 0 || len(covariates) != len(names) {
		return nil, fmt.Errorf("%d covariates, %d names", len(covariates), len(names))
	}
	if floats.Sum(status) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrDegenerate)
	}
	for i, x := range covariates {
		if len(x) != n {
			return nil, fmt.Errorf("covariate %s: %d values, want %d", names[i], len(x), n)
		}
		if floats.Min(x) == floats.Max(x) {
			return nil, fmt.Errorf("%w: covariate %s is constant", ErrDegenerate, names[i])
		}
	}

	data := make([][]statmodel.Dtype, 0, 2+len(covariates))
	data = append(data, time, status)
	data = append(data, covariates...)
	dnames := append([]string{"time", "status"}, names...)
	dataset := statmodel.NewDataset(data, dnames)

	defer func() {
		if r := recover(); r != nil {
			// typically "matrix singular or near-singular"
			results, err = nil, fmt.Errorf("proportional hazards fit failed: %v", r)
		}
	}()
	model, err := duration.NewPHReg(dataset, "time", "status", names, nil)
	if err != nil {
		return nil, err
	}
	fit, err := model.Fit()
	if err != nil {
		return nil, err
	}
	params := fit.Params()
	stderr := fit.StdErr()
	if len(params) != len(names) || len(stderr) != len(names) {
		return nil, fmt.Errorf("fit returned %d parameters for %d covariates", len(params), len(names))
	}
	for i, name := range names {
		results = append(results, summarize(name, n, params[i], stderr[i]))
	}
	return results, nil
}

func summarize(name string, n int, beta, se float64) Result {
	z := beta / se
	return Result{
		Var:         name,
		N:           n,
		Z:           z,
		P:           2 * distuv.UnitNormal.Survival(math.Abs(z)),
		HazardRatio: math.Exp(beta),
		LowerConf:   math.Exp(beta - confQuantile*se),
		UpperConf:   math.Exp(beta + confQuantile*se),
	}
}
