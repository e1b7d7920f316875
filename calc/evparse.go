/*
 * evparse.go, part of porousmaterials.
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

package calc

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	porous "github.com/ezpzbz/porousmaterials"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Column names of the Ev tables written by the PorousMaterials.jl templates.
const (
	ColEv = "Ev(kJ/mol)"
	ColRv = "Rv(A)"
	ColX  = "x"
	ColY  = "y"
	ColZ  = "z"
)

// DefaultEvSetting are the percentages of the minimum energy used to select
// the low energy nodes when the parameters don't set ev_setting.
var DefaultEvSetting = []int{90, 80, 50}

// EvTable holds the columns of an Ev table, one row per accessible Voronoi node.
type EvTable struct {
	Ev []float64
	Rv []float64
	X  []float64
	Y  []float64
	Z  []float64
}

// Len returns the number of nodes in the table.
func (T *EvTable) Len() int { return len(T.Ev) }

// ReadEvTable reads a comma separated Ev table. The header must contain the
// Ev(kJ/mol), Rv(A), x, y and z columns, in any order. Other columns are ignored.
// Malformed files and missing columns are errors.
func ReadEvTable(r io.Reader) (*EvTable, error) {
	in := csv.NewReader(r)
	in.TrimLeadingSpace = true
	header, err := in.Read()
	if err != nil {
		return nil, fmt.Errorf("can't read Ev table header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	T := new(EvTable)
	cols := []struct {
		name string
		dest *[]float64
	}{{ColEv, &T.Ev}, {ColRv, &T.Rv}, {ColX, &T.X}, {ColY, &T.Y}, {ColZ, &T.Z}}
	for _, c := range cols {
		if _, ok := index[c.name]; !ok {
			return nil, fmt.Errorf("Ev table has no %q column", c.name)
		}
	}
	line := 1
	for {
		record, err := in.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("Ev table line %d: %w", line, err)
		}
		for _, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[index[c.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("Ev table line %d, column %s: %w", line, c.name, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("Ev table line %d, column %s: non-finite value %v", line, c.name, v)
			}
			*c.dest = append(*c.dest, v)
		}
	}
	return T, nil
}

// EvPercentileKey and EvCountKey return the names of the result entries for
// the nodes within percent of the minimum energy.
func EvPercentileKey(percent int) string { return "Ev_p" + strconv.Itoa(percent) }

func EvCountKey(percent int) string { return "number_of_Voronoi_nodes_in_p" + strconv.Itoa(percent) }

// EvStatistics returns the aggregates of an Ev table: average, minimum and maximum
// energies, the radius and cartesian coordinates of the lowest energy node (the
// first one, if several share the minimum) and, for each percentage p in
// evSetting, the average and number of the nodes whose energy is at most p/100
// times the minimum. If no node qualifies, only the number (0) is set.
func EvStatistics(T *EvTable, evSetting []int) (porous.Parameters, error) {
	if T.Len() == 0 {
		return nil, fmt.Errorf("Ev table has no nodes")
	}
	minimum := floats.Min(T.Ev)
	imin := floats.MinIdx(T.Ev)
	R := porous.Parameters{
		"Ev_unit":                                  "kJ/mol",
		"Ev_average":                               stat.Mean(T.Ev, nil),
		"Ev_minimum":                               minimum,
		"Ev_maximum":                               floats.Max(T.Ev),
		"minimum_node_radius":                      T.Rv[imin],
		"minimum_node_coord_x":                     T.X[imin],
		"minimum_node_coord_y":                     T.Y[imin],
		"minimum_node_coord_z":                     T.Z[imin],
		"coordinates":                              "Cartesian",
		"minimum_node_radius_unit":                 "angstrom",
		"total_number_of_accessible_Voronoi_nodes": T.Len(),
	}
	for _, p := range evSetting {
		selected := EvSelect(T.Ev, p)
		R[EvCountKey(p)] = len(selected)
		if len(selected) > 0 {
			R[EvPercentileKey(p)] = stat.Mean(selected, nil)
		}
	}
	return R, nil
}

// EvThreshold returns the energy below which a node counts as within percent
// of the minimum energy.
func EvThreshold(minimum float64, percent int) float64 {
	return (float64(percent) / 100) * minimum
}

// EvSelect returns the energies that are at most percent/100 times the minimum of ev.
func EvSelect(ev []float64, percent int) []float64 {
	if len(ev) == 0 {
		return nil
	}
	threshold := EvThreshold(floats.Min(ev), percent)
	ret := make([]float64, 0, len(ev))
	for _, v := range ev {
		if v <= threshold {
			ret = append(ret, v)
		}
	}
	return ret
}

// ParseEvFile reads the Ev table in path and returns its statistics.
func ParseEvFile(path string, evSetting []int) (porous.Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	T, err := ReadEvTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return EvStatistics(T, evSetting)
}
