/*
 * atomicdata.go, part of porousmaterials.
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

package porous

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

//A map for assigning van der Waals radii to elements, in angstrom.
//Values from 10.1021/j100785a001 and 10.1021/jp8111556
//metal radii from 10.1023/A:1011625728803
//Note that just the elements common in porous frameworks are present
var symbolVdwrad = map[string]float64{
	"H":  1.10,
	"B":  1.92,
	"C":  1.70,
	"N":  1.55,
	"O":  1.52,
	"F":  1.47,
	"Na": 2.27,
	"Mg": 1.73,
	"Al": 1.84,
	"Si": 2.10,
	"P":  1.80,
	"S":  1.80,
	"Cl": 1.75,
	"K":  2.75,
	"Ca": 2.31,
	"Ti": 2.11,
	"V":  2.07,
	"Cr": 1.97,
	"Mn": 1.96,
	"Fe": 1.96,
	"Co": 1.95,
	"Ni": 1.63,
	"Cu": 2.00,
	"Zn": 2.02,
	"Ga": 1.87,
	"Ge": 2.11,
	"Se": 1.90,
	"Br": 1.83,
	"Sr": 2.49,
	"Zr": 2.23,
	"Ag": 1.72,
	"Cd": 1.58,
	"In": 1.93,
	"Sn": 2.17,
	"I":  1.98,
	"Ba": 2.68,
	"La": 2.43,
	"Ce": 2.42,
}

// VdwRadius returns the van der Waals radius of the element symbol, and false
// if the element is not in the table.
func VdwRadius(symbol string) (float64, bool) {
	r, ok := symbolVdwrad[symbol]
	return r, ok
}

// WriteRadFile writes a Zeo++ radii file (one "Symbol radius" line per element) for
// the given element symbols. The elements are written sorted. Custom radii in
// overrides take precedence over the default table. It fails if an element has no radius.
func WriteRadFile(w io.Writer, elements []string, overrides map[string]float64) error {
	els := append([]string(nil), elements...)
	sort.Strings(els)
	var b strings.Builder
	prev := ""
	for _, e := range els {
		if e == prev {
			continue
		}
		prev = e
		r, ok := overrides[e]
		if !ok {
			r, ok = symbolVdwrad[e]
		}
		if !ok {
			return &FileError{message: fmt.Sprintf("no radius for element %s", e), format: "Zeo++ radii", deco: []string{"WriteRadFile"}, critical: true}
		}
		fmt.Fprintf(&b, "%s %.3f\n", e, r)
	}
	_, err := io.WriteString(w, b.String())
	if err != nil {
		return &FileError{message: err.Error(), format: "Zeo++ radii", deco: []string{"io.WriteString", "WriteRadFile"}, critical: true}
	}
	return nil
}
