/*
 * porousmaterials.go, part of porousmaterials.
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
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/jl"
)

// Names used by PorousMaterials.jl calculations.
const (
	PMInputFile    = "input.jl"
	PMOutputFolder = "Output"
	PMProcess      = "porousmaterials.ev"
	nodeFileSuffix = ".voro_accessible"
)

// PMHandle runs a PorousMaterials.jl script, rendered from one of the templates of
// package jl, over the accessible Voronoi nodes of one or more frameworks.
type PMHandle struct {
	name       string
	structures map[string]string //framework name -> path of the structure file
	nodes      map[string]string //label -> path of an accessible Voronoi node file
	forcefield string
	params     porous.Parameters
	settings   porous.Parameters
}

// NewPMHandle returns a handle for a PorousMaterials.jl calculation with the parameters params,
// which must at least name an input_template.
func NewPMHandle(params porous.Parameters) *PMHandle {
	O := &PMHandle{
		structures: make(map[string]string),
		nodes:      make(map[string]string),
		params:     params.Copy(),
		settings:   porous.Parameters{},
	}
	if O.params == nil {
		O.params = porous.Parameters{}
	}
	O.name = "porousmaterials"
	return O
}

func (O *PMHandle) SetName(name string) { O.name = name }

func (O *PMHandle) Name() string { return O.name }

func (O *PMHandle) Process() string { return PMProcess }

// AddStructure adds a framework, keyed by frameworkName. If frameworkName is empty
// the name of the structure is used.
func (O *PMHandle) AddStructure(frameworkName string, S *porous.Structure) {
	if frameworkName == "" {
		frameworkName = S.Name()
	}
	O.AddStructureFile(frameworkName, S.Path)
}

// AddStructureFile adds the framework file, such as the CSSR written by Zeo++.
// It is staged as frameworkName plus the extension of file.
func (O *PMHandle) AddStructureFile(frameworkName, file string) {
	O.structures[frameworkName] = file
	if len(O.structures) == 1 {
		O.name = frameworkName
	}
}

func stagedStructure(frameworkName, file string) string {
	return frameworkName + filepath.Ext(file)
}

// AddNodes adds the accessible Voronoi node file, with label. The templates
// look the nodes up by framework name (single component) or by
// <frameworkname>_<adsorbate> (several components).
func (O *PMHandle) AddNodes(label, file string) { O.nodes[label] = file }

// SetForceField sets a force field file to be staged with the calculation.
func (O *PMHandle) SetForceField(file string) { O.forcefield = file }

// SetSettings sets the additional settings. The "cmdline" list is placed
// before the input file name in the command line.
func (O *PMHandle) SetSettings(S porous.Parameters) { O.settings = S.Copy() }

// Params returns the parameters of the calculation, with the defaults filled.
func (O *PMHandle) Params() porous.Parameters {
	P := O.params.Copy()
	if len(O.structures) == 1 {
		for fw, file := range O.structures {
			if !P.Has("frameworkname") {
				P["frameworkname"] = fw
			}
			if !P.Has("framework") {
				P["framework"] = stagedStructure(fw, file)
			}
		}
	}
	fw, _ := P.StringOr("frameworkname", "")
	if fw != "" {
		if P.Has("adsorbates") {
			if !P.Has("kh_filename") {
				P["kh_filename"] = "Kh_" + fw + ".csv"
			}
		} else if !P.Has("output_filename") {
			P["output_filename"] = "Ev_" + fw + ".csv"
		}
	}
	return P
}

// EvSetting returns the percentages of the minimum energy used by the parser.
func (O *PMHandle) EvSetting() ([]int, error) {
	if !O.params.Has("ev_setting") {
		return append([]int(nil), DefaultEvSetting...), nil
	}
	return O.params.Ints("ev_setting")
}

func (O *PMHandle) Inputs() porous.Parameters {
	fws := make(porous.Parameters, len(O.structures))
	for k, file := range O.structures {
		fws[k] = file
	}
	nodes := make(porous.Parameters, len(O.nodes))
	for k, v := range O.nodes {
		nodes[k] = v
	}
	P := porous.Parameters{"parameters": O.Params(), "structure": fws, "acc_voronoi_nodes": nodes}
	if O.forcefield != "" {
		P["forcefield"] = O.forcefield
	}
	if len(O.settings) > 0 {
		P["settings"] = O.settings.Copy()
	}
	return P
}

func sortedKeys[T any](m map[string]T) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// BuildInput renders input.jl into folder and declares the structures, node files and
// force field to stage.
func (O *PMHandle) BuildInput(ctx context.Context, folder *Folder) (*CalcInfo, error) {
	P := O.Params()
	tmpl, err := P.String("input_template")
	if err != nil {
		return nil, &Error{ErrMissingInput, PorousMaterials, O.name, err.Error(), []string{"BuildInput"}, true}
	}
	if len(O.structures) == 0 {
		return nil, &Error{ErrMissingInput, PorousMaterials, O.name, "no structure", []string{"BuildInput"}, true}
	}
	info := &CalcInfo{StdinName: PMInputFile, RetrieveList: []string{PMOutputFolder}}
	for _, fw := range sortedKeys(O.structures) {
		info.LocalCopyList = append(info.LocalCopyList, CopyItem{Source: O.structures[fw], Target: stagedStructure(fw, O.structures[fw])})
	}
	staged := make(map[string]string, len(O.nodes))
	for _, label := range sortedKeys(O.nodes) {
		staged[label] = label + nodeFileSuffix
		info.LocalCopyList = append(info.LocalCopyList, CopyItem{Source: O.nodes[label], Target: staged[label]})
	}
	if O.forcefield != "" {
		info.LocalCopyList = append(info.LocalCopyList, CopyItem{Source: O.forcefield, Target: filepath.Base(O.forcefield)})
	}
	input, err := jl.Render(tmpl, P, staged)
	if err != nil {
		return nil, &Error{ErrCantInput, PorousMaterials, O.name, err.Error(), []string{"jl.Render", "BuildInput"}, true}
	}
	if err := folder.Write(ctx, PMInputFile, []byte(input)); err != nil {
		return nil, &Error{ErrCantInput, PorousMaterials, O.name, err.Error(), []string{"BuildInput"}, true}
	}
	cmdline := []string{}
	if O.settings.Has("cmdline") {
		if cmdline, err = O.settings.Strings("cmdline"); err != nil {
			return nil, &Error{ErrBadParameters, PorousMaterials, O.name, err.Error(), []string{"BuildInput"}, true}
		}
	}
	info.CmdlineParams = append(cmdline, PMInputFile)
	return info, nil
}

// Parse computes the Ev statistics of the tables in the retrieved Output folder. The
// multi-component templates give one set of statistics per adsorbate, under the
// adsorbate symbol.
func (O *PMHandle) Parse(ctx context.Context, retrieved *Folder) (*Output, error) {
	out := newOutput()
	if retrieved == nil || !retrieved.Exists(ctx, "") {
		out.ExitCode = ExitNoRetrievedFolder
		return out, nil
	}
	if !retrieved.Exists(ctx, PMOutputFolder) {
		out.ExitCode = ExitNoOutputFile
		return out, nil
	}
	P := O.Params()
	evSetting, err := O.EvSetting()
	if err != nil {
		return nil, &Error{ErrBadParameters, PorousMaterials, O.name, err.Error(), []string{"Parse"}, true}
	}
	parse := func(name string) (porous.Parameters, string, error) {
		rel := path.Join(PMOutputFolder, name)
		if !retrieved.Exists(ctx, rel) {
			return nil, "", nil
		}
		abs := retrieved.AbsPath(rel)
		R, err := ParseEvFile(abs, evSetting)
		if err != nil {
			return nil, "", &Error{ErrCantParse, PorousMaterials, O.name, err.Error(), []string{"ParseEvFile", "Parse"}, true}
		}
		return R, abs, nil
	}
	if !P.Has("adsorbates") {
		name, err := P.String("output_filename")
		if err != nil {
			return nil, &Error{ErrBadParameters, PorousMaterials, O.name, err.Error(), []string{"Parse"}, true}
		}
		R, abs, err := parse(name)
		if err != nil {
			return nil, err
		}
		if R == nil {
			out.ExitCode = ExitNoOutputFile
			return out, nil
		}
		out.Parameters = R
		out.Files["ev_output_file"] = abs
		return out, nil
	}
	fw, err := P.String("frameworkname")
	if err != nil {
		return nil, &Error{ErrBadParameters, PorousMaterials, O.name, err.Error(), []string{"Parse"}, true}
	}
	adsorbates, err := P.Strings("adsorbates")
	if err != nil {
		return nil, &Error{ErrBadParameters, PorousMaterials, O.name, err.Error(), []string{"Parse"}, true}
	}
	for _, ads := range adsorbates {
		R, abs, err := parse(jl.EvFilename(fw, ads))
		if err != nil {
			return nil, err
		}
		if R == nil {
			out.ExitCode = ExitNoOutputFile
			return out, nil
		}
		out.Parameters[ads] = R
		out.Files[fmt.Sprintf("ev_output_file_%s", ads)] = abs
	}
	if kh, err := P.String("kh_filename"); err == nil && retrieved.Exists(ctx, path.Join(PMOutputFolder, kh)) {
		out.Files["kh_output_file"] = retrieved.AbsPath(path.Join(PMOutputFolder, kh))
	}
	return out, nil
}
