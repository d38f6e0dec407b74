// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package coxph

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// StoufferUnweighted combines independent z-scores as
// sum(z)/sqrt(k). NaN entries are treated as missing. Returns NaN if
// nothing is left.
func StoufferUnweighted(z []float64) float64 {
	kept := make([]float64, 0, len(z))
	for _, v := range z {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return floats.Sum(kept) / math.Sqrt(float64(len(kept)))
}
