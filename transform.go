// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package survival

import (
	"math"
	"sort"
	"unicode"
)

// Observation is one patient's complete (time, event, feature) case
// for a single regression.
type Observation struct {
	Time  float64
	Event float64
	Value float64
}

// A Transform recodes the feature values of a set of complete cases
// before regression. It may drop observations but must not modify
// its input.
type Transform func([]Observation) []Observation

// A ColumnSelector picks the features an analysis regresses on.
type ColumnSelector func(features []string) []string

type analysis struct {
	Name      string
	Transform Transform
	Columns   ColumnSelector
}

const aneuploidyScoreFeature = "AneuploidyScore(AS)"

var analyses = []analysis{
	// every feature, as is
	{Name: "zscores", Transform: identity, Columns: allColumns},
	// loss binned with neutral
	{Name: "-1s_are_0", Transform: collapseToZero(-1), Columns: chromosomeColumns},
	// gain binned with neutral
	{Name: "1s_are_0", Transform: collapseToZero(1), Columns: chromosomeColumns},
	// bulk aneuploidy, top vs. bottom quintile
	{Name: "as_20p_v_80p", Transform: percentileSplit(20, 80), Columns: aneuploidyScoreColumn},
}

func identity(obs []Observation) []Observation { return obs }

// collapseToZero replaces feature value v with 0.
func collapseToZero(v float64) Transform {
	return func(obs []Observation) []Observation {
		out := make([]Observation, len(obs))
		for i, o := range obs {
			if o.Value == v {
				o.Value = 0
			}
			out[i] = o
		}
		return out
	}
}

// percentileSplit dichotomizes the feature at its lower and upper
// percentiles: values <= the lower threshold become 0, values >= the
// upper threshold become 1, and observations strictly between the two
// are dropped.
func percentileSplit(lower, upper float64) Transform {
	return func(obs []Observation) []Observation {
		if len(obs) == 0 {
			return obs
		}
		values := make([]float64, len(obs))
		for i, o := range obs {
			values[i] = o.Value
		}
		sort.Float64s(values)
		lo := percentile(values, lower)
		hi := percentile(values, upper)
		out := make([]Observation, 0, len(obs))
		for _, o := range obs {
			switch {
			case o.Value <= lo:
				o.Value = 0
			case o.Value >= hi:
				o.Value = 1
			default:
				continue
			}
			out = append(out, o)
		}
		return out
	}
}

// percentile returns the pct-th percentile (0-100) of sorted values,
// interpolating linearly between the two nearest ranks.
func percentile(sorted []float64, pct float64) float64 {
	h := float64(len(sorted)-1) * pct / 100
	i := int(math.Floor(h))
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}

func allColumns(features []string) []string { return features }

// chromosomeColumns keeps arm- and chromosome-level calls ("1p",
// "13q", ...), whose names start with a digit.
func chromosomeColumns(features []string) []string {
	var out []string
	for _, f := range features {
		for _, r := range f {
			if unicode.IsDigit(r) {
				out = append(out, f)
			}
			break
		}
	}
	return out
}

func aneuploidyScoreColumn(features []string) []string {
	for _, f := range features {
		if f == aneuploidyScoreFeature {
			return []string{f}
		}
	}
	return nil
}
