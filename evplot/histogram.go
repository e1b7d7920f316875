/*
 * histogram.go, part of porousmaterials.
 *
 *
 * Copyright 2026 The porousmaterials authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

//Package evplot draws the distribution of the interaction energies of the
//accessible Voronoi nodes of a framework.
package evplot

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram counts values in consecutive bins.
type Histogram struct {
	normalized bool
	total      int
	dividers   []float64
	counts     []float64
}

// Dividers returns bins+1 evenly spaced bin limits covering the values in data.
// The last limit is just over the largest value, so it falls into the last bin.
func Dividers(data []float64, bins int) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no data to bin")
	}
	if bins < 1 {
		return nil, fmt.Errorf("need at least one bin, got %d", bins)
	}
	min, max := floats.Min(data), floats.Max(data)
	if min == max {
		min, max = min-0.5, max+0.5
	}
	d := floats.Span(make([]float64, bins+1), min, max)
	d[bins] = math.Nextafter(max, math.Inf(1))
	return d, nil
}

// NewHistogram returns a histogram of data with the given dividers. Values
// outside the dividers are not counted.
func NewHistogram(dividers, data []float64) *Histogram {
	H := &Histogram{dividers: append([]float64(nil), dividers...)}
	H.rebin(data)
	return H
}

// EvenHistogram returns a histogram of data with bins bins of the same width.
func EvenHistogram(data []float64, bins int) (*Histogram, error) {
	d, err := Dividers(data, bins)
	if err != nil {
		return nil, err
	}
	return NewHistogram(d, data), nil
}

func (H *Histogram) rebin(data []float64) {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	//stat.Histogram panics on values out of the dividers
	lo := sort.SearchFloat64s(sorted, H.dividers[0])
	hi := sort.SearchFloat64s(sorted, H.dividers[len(H.dividers)-1])
	sorted = sorted[lo:hi]
	H.total = len(sorted)
	H.counts = stat.Histogram(nil, H.dividers, sorted, nil)
}

// Total returns the number of values counted.
func (H *Histogram) Total() int { return H.total }

// Dividers returns a copy of the bin limits.
func (H *Histogram) Dividers() []float64 { return append([]float64(nil), H.dividers...) }

// Counts returns a copy of the bin counts, or fractions if the histogram is normalized.
func (H *Histogram) Counts() []float64 { return append([]float64(nil), H.counts...) }

// Max returns the largest bin.
func (H *Histogram) Max() float64 {
	if len(H.counts) == 0 {
		return 0
	}
	return floats.Max(H.counts)
}

func (H *Histogram) Normalized() bool { return H.normalized }

// Normalize turns counts into fractions of the total.
func (H *Histogram) Normalize() {
	if H.normalized || H.total == 0 {
		return
	}
	floats.Scale(1/float64(H.total), H.counts)
	H.normalized = true
}

// String returns a two line table: bin limits and counts.
func (H *Histogram) String() string {
	d := make([]string, 0, len(H.counts))
	c := make([]string, 0, len(H.counts))
	for i, v := range H.counts {
		d = append(d, fmt.Sprintf("%9.2f:%-9.2f", H.dividers[i], H.dividers[i+1]))
		c = append(c, fmt.Sprintf("%19.3f", v))
	}
	return strings.Join(d, " ") + "\n" + strings.Join(c, " ")
}
