/*
 * cif.go, part of porousmaterials.
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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/mat"
)

var tl func(string) string = strings.ToLower

// Site is an atom site in the asymmetric unit of a framework,
// in fractional coordinates.
type Site struct {
	Label  string
	Symbol string
	Frac   [3]float64
}

// Structure is a framework read from a CIF file.
type Structure struct {
	Path     string
	Filename string
	Label    string
	Lengths  [3]float64 //a, b, c in angstrom
	Angles   [3]float64 //alpha, beta, gamma in degrees
	Sites    []Site
}

// Name returns the filename without its extension (and without .gz, if compressed).
// PorousMaterials.jl and Zeo++ outputs are named after it.
func (S *Structure) Name() string {
	return trimExt(S.Filename)
}

func trimExt(name string) string {
	if strings.HasSuffix(tl(name), ".gz") {
		name = name[:len(name)-3]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Compressed returns true if the structure file is gzip-compressed.
func (S *Structure) Compressed() bool {
	return strings.HasSuffix(tl(S.Filename), ".gz")
}

// StagedName is the name under which the structure is given to the external
// programs: the filename itself, or Name() plus .cif for compressed files.
func (S *Structure) StagedName() string {
	if S.Compressed() {
		return S.Name() + ".cif"
	}
	return S.Filename
}

// Content returns the text of the structure file, decompressed if needed.
func (S *Structure) Content() ([]byte, error) {
	f, err := os.Open(S.Path)
	if err != nil {
		return nil, &FileError{message: err.Error(), filename: S.Path, format: "CIF", deco: []string{"os.Open", "Content"}, critical: true}
	}
	defer f.Close()
	var r io.Reader = f
	if S.Compressed() {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &FileError{message: err.Error(), filename: S.Path, format: "CIF", deco: []string{"gzip.NewReader", "Content"}, critical: true}
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FileError{message: err.Error(), filename: S.Path, format: "CIF", deco: []string{"io.ReadAll", "Content"}, critical: true}
	}
	return data, nil
}

// Elements returns the sorted, unique element symbols of the structure.
func (S *Structure) Elements() []string {
	seen := make(map[string]bool)
	ret := make([]string, 0, 4)
	for _, s := range S.Sites {
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			ret = append(ret, s.Symbol)
		}
	}
	sort.Strings(ret)
	return ret
}

// CellMatrix returns the lattice vectors as the rows of a 3x3 matrix, with a along x
// and b in the xy plane.
func (S *Structure) CellMatrix() *mat.Dense {
	a, b, c := S.Lengths[0], S.Lengths[1], S.Lengths[2]
	ca := math.Cos(Deg2Rad(S.Angles[0]))
	cb := math.Cos(Deg2Rad(S.Angles[1]))
	cg := math.Cos(Deg2Rad(S.Angles[2]))
	sg := math.Sin(Deg2Rad(S.Angles[2]))
	cy := (ca - cb*cg) / sg
	cz := math.Sqrt(1 - cb*cb - cy*cy)
	return mat.NewDense(3, 3, []float64{
		a, 0, 0,
		b * cg, b * sg, 0,
		c * cb, c * cy, c * cz,
	})
}

// Volume returns the cell volume in cubic angstrom.
func (S *Structure) Volume() float64 {
	return math.Abs(mat.Det(S.CellMatrix()))
}

// Cartesian returns the cartesian coordinates of a site.
func (S *Structure) Cartesian(s Site) [3]float64 {
	var ret mat.VecDense
	frac := mat.NewVecDense(3, s.Frac[:])
	ret.MulVec(S.CellMatrix().T(), frac)
	return [3]float64{ret.AtVec(0), ret.AtVec(1), ret.AtVec(2)}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(f float64) float64 {
	return f * math.Pi / 180
}

// ReadCIF reads the cell and the atom sites of the CIF file in path. Files ending
// in .gz are decompressed on the fly.
func ReadCIF(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{message: err.Error(), filename: path, format: "CIF", deco: []string{"os.Open", "ReadCIF"}, critical: true}
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(tl(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, &FileError{message: err.Error(), filename: path, format: "CIF", deco: []string{"gzip.NewReader", "ReadCIF"}, critical: true}
		}
		defer gz.Close()
		r = gz
	}
	S, err := CIFRead(r)
	if err != nil {
		if e, ok := err.(*FileError); ok {
			e.filename = path
		}
		return nil, errDecorate(err, "ReadCIF")
	}
	S.Path, _ = filepath.Abs(path)
	S.Filename = filepath.Base(path)
	S.Label = tl(trimExt(S.Filename))
	return S, nil
}

// CIFRead reads a CIF file from an io.Reader. Only the cell parameters and the
// atom_site loop are read, everything else is skipped.
func CIFRead(r io.Reader) (*Structure, error) {
	S := new(Structure)
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	cellKeys := map[string]*float64{
		"_cell_length_a":    &S.Lengths[0],
		"_cell_length_b":    &S.Lengths[1],
		"_cell_length_c":    &S.Lengths[2],
		"_cell_angle_alpha": &S.Angles[0],
		"_cell_angle_beta":  &S.Angles[1],
		"_cell_angle_gamma": &S.Angles[2],
	}
	found := 0
	var header []string
	inLoop, inText := false, false
	lineno := 0
	for in.Scan() {
		lineno++
		line := in.Text()
		if strings.HasPrefix(line, ";") {
			inText = !inText
			continue
		}
		trimmed := strings.TrimSpace(line)
		if inText || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lower := tl(trimmed)
		if strings.HasPrefix(lower, "loop_") {
			inLoop = true
			header = header[:0]
			continue
		}
		if strings.HasPrefix(lower, "_") {
			fields := cifFields(trimmed)
			tag := strings.Replace(tl(fields[0]), ".", "_", 1)
			if inLoop && len(fields) == 1 && (len(header) == 0 || !loopHasData(header)) {
				header = append(header, tag)
				continue
			}
			inLoop = false
			header = header[:0]
			if p, ok := cellKeys[tag]; ok {
				if len(fields) < 2 {
					return nil, &FileError{message: fmt.Sprintf("line %d: no value for %s", lineno, tag), format: "CIF", deco: []string{"CIFRead"}, critical: true}
				}
				v, err := cifNumber(fields[1])
				if err != nil {
					return nil, &FileError{message: fmt.Sprintf("line %d: %s", lineno, err.Error()), format: "CIF", deco: []string{"CIFRead"}, critical: true}
				}
				*p = v
				found++
			}
			continue
		}
		if strings.HasPrefix(lower, "data_") {
			inLoop = false
			continue
		}
		if !inLoop {
			continue
		}
		header = markData(header)
		if !isSiteLoop(header) {
			continue
		}
		site, err := cifSite(cifFields(trimmed), header)
		if err != nil {
			return nil, &FileError{message: fmt.Sprintf("line %d: %s", lineno, err.Error()), format: "CIF", deco: []string{"CIFRead"}, critical: true}
		}
		S.Sites = append(S.Sites, site)
	}
	if err := in.Err(); err != nil {
		return nil, &FileError{message: err.Error(), format: "CIF", deco: []string{"bufio.Scanner", "CIFRead"}, critical: true}
	}
	if found < len(cellKeys) {
		return nil, &FileError{message: "incomplete cell parameters", format: "CIF", deco: []string{"CIFRead"}, critical: true}
	}
	return S, nil
}

//dataMark is appended to a loop header once its first data line has been read, so
//tags that come afterwards are not taken as part of the loop.
const dataMark = "\x00data"

func markData(header []string) []string {
	if loopHasData(header) {
		return header
	}
	return append(header, dataMark)
}

func loopHasData(header []string) bool {
	return len(header) > 0 && header[len(header)-1] == dataMark
}

func isSiteLoop(header []string) bool {
	for _, h := range header {
		if h == "_atom_site_fract_x" {
			return true
		}
	}
	return false
}

func columnOf(header []string, tag string) int {
	for i, h := range header {
		if h == tag {
			return i
		}
	}
	return -1
}

func cifSite(fields, header []string) (Site, error) {
	var s Site
	ncols := len(header)
	if loopHasData(header) {
		ncols--
	}
	if len(fields) < ncols {
		return s, fmt.Errorf("atom site has %d fields, the loop declares %d", len(fields), ncols)
	}
	if i := columnOf(header, "_atom_site_label"); i >= 0 {
		s.Label = fields[i]
	}
	if i := columnOf(header, "_atom_site_type_symbol"); i >= 0 {
		s.Symbol = fields[i]
	}
	if s.Symbol == "" {
		s.Symbol = symbolFromLabel(s.Label)
	}
	if s.Symbol == "" {
		return s, fmt.Errorf("atom site without symbol or label")
	}
	for j, tag := range []string{"_atom_site_fract_x", "_atom_site_fract_y", "_atom_site_fract_z"} {
		i := columnOf(header, tag)
		if i < 0 {
			return s, fmt.Errorf("missing %s", tag)
		}
		v, err := cifNumber(fields[i])
		if err != nil {
			return s, err
		}
		s.Frac[j] = v
	}
	return s, nil
}

//symbolFromLabel takes the leading letters of a site label, such as Cu1 or O12a,
//and returns them as an element symbol.
func symbolFromLabel(label string) string {
	end := 0
	for end < len(label) && end < 2 {
		c := label[end]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			break
		}
		end++
	}
	if end == 0 {
		return ""
	}
	sym := strings.ToUpper(label[:1]) + tl(label[1:end])
	if end == 2 {
		if _, ok := symbolVdwrad[sym]; !ok {
			if _, ok := symbolVdwrad[sym[:1]]; ok {
				return sym[:1]
			}
		}
	}
	return sym
}

//cifNumber parses a CIF numeric value, dropping the standard uncertainty in parentheses,
//as in 26.343(1).
func cifNumber(s string) (float64, error) {
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strconv.ParseFloat(s, 64)
}

//cifFields splits a CIF line on whitespace, keeping quoted strings together.
func cifFields(line string) []string {
	var ret []string
	for i := 0; i < len(line); {
		c := line[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c == '\'' || c == '"' {
			end := strings.IndexByte(line[i+1:], c)
			if end >= 0 {
				ret = append(ret, line[i+1:i+1+end])
				i += end + 2
				continue
			}
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		ret = append(ret, line[i:j])
		i = j
	}
	return ret
}
