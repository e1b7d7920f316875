/*
 * zeopp.go, part of porousmaterials.
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
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	porous "github.com/ezpzbz/porousmaterials"
)

// Output file names of Zeo++ network, one per option.
const (
	ResFile                = "out.res"
	CSSRFile               = "out.cssr"
	ChanFile               = "out.chan"
	VisVoroFile            = "out.visVoro"
	VoroFile               = VisVoroFile + ".voro"
	VoroAccessibleFile     = VisVoroFile + ".voro_accessible"
	VoroNonAccessibleFile  = VisVoroFile + ".voro_nonaccessible"
	NetworkProcess         = "zeopp.network"
	defaultNetworkJobLabel = "network"
)

var networkKeys = map[string]bool{"ha": true, "res": true, "cssr": true, "visVoro": true, "chan": true}

// NetworkParameters are the options of a Zeo++ network run. Zero values are
// options not requested.
type NetworkParameters struct {
	HA      string  //accuracy of the high accuracy mode, i.e. DEF, S100
	Res     bool    //largest included and free spheres
	CSSR    bool    //convert the structure to CSSR
	VisVoro float64 //probe radius for the Voronoi network visualization
	Chan    float64 //probe radius for the channel identification
}

// NewNetworkParameters reads the Zeo++ options from a dictionary such as
// {"res": true, "ha": "DEF"}. Unknown keys are an error.
func NewNetworkParameters(P porous.Parameters) (NetworkParameters, error) {
	var N NetworkParameters
	var err error
	for _, k := range P.Keys() {
		if !networkKeys[k] {
			return N, &Error{ErrBadParameters, Zeopp, "", "unknown Zeo++ option " + k, []string{"NewNetworkParameters"}, true}
		}
	}
	if N.HA, err = P.StringOr("ha", ""); err != nil {
		return N, err
	}
	if N.Res, err = P.BoolOr("res", false); err != nil {
		return N, err
	}
	if N.CSSR, err = P.BoolOr("cssr", false); err != nil {
		return N, err
	}
	if N.VisVoro, err = P.FloatOr("visVoro", 0); err != nil {
		return N, err
	}
	if N.Chan, err = P.FloatOr("chan", 0); err != nil {
		return N, err
	}
	if N.VisVoro < 0 || N.Chan < 0 {
		return N, &Error{ErrBadParameters, Zeopp, "", "negative probe radius", []string{"NewNetworkParameters"}, true}
	}
	if !N.Res && !N.CSSR && N.VisVoro == 0 && N.Chan == 0 {
		return N, &Error{ErrBadParameters, Zeopp, "", "no Zeo++ output requested", []string{"NewNetworkParameters"}, true}
	}
	return N, nil
}

// Parameters returns the options as a dictionary, with only the requested options set.
func (N NetworkParameters) Parameters() porous.Parameters {
	P := porous.Parameters{}
	if N.HA != "" {
		P["ha"] = N.HA
	}
	if N.Res {
		P["res"] = true
	}
	if N.CSSR {
		P["cssr"] = true
	}
	if N.VisVoro > 0 {
		P["visVoro"] = N.VisVoro
	}
	if N.Chan > 0 {
		P["chan"] = N.Chan
	}
	return P
}

func radius(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// CmdLine returns the arguments of network, always in the same order:
// -ha, -r, -res, -cssr, -chan, -visVoro, and the structure file last. radii can be empty.
func (N NetworkParameters) CmdLine(structure, radii string) []string {
	ret := make([]string, 0, 12)
	if N.HA != "" {
		ret = append(ret, "-ha", N.HA)
	}
	if radii != "" {
		ret = append(ret, "-r", radii)
	}
	if N.Res {
		ret = append(ret, "-res", ResFile)
	}
	if N.CSSR {
		ret = append(ret, "-cssr", CSSRFile)
	}
	if N.Chan > 0 {
		ret = append(ret, "-chan", radius(N.Chan), ChanFile)
	}
	if N.VisVoro > 0 {
		ret = append(ret, "-visVoro", radius(N.VisVoro), VisVoroFile)
	}
	return append(ret, structure)
}

// OutputFiles returns the files network writes for the requested options.
func (N NetworkParameters) OutputFiles() []string {
	ret := make([]string, 0, 6)
	if N.Res {
		ret = append(ret, ResFile)
	}
	if N.CSSR {
		ret = append(ret, CSSRFile)
	}
	if N.Chan > 0 {
		ret = append(ret, ChanFile)
	}
	if N.VisVoro > 0 {
		ret = append(ret, VoroFile, VoroAccessibleFile, VoroNonAccessibleFile)
	}
	return ret
}

// NetworkHandle runs the network binary of Zeo++ on a framework.
type NetworkHandle struct {
	name      string
	structure *porous.Structure
	radii     string
	params    NetworkParameters
}

// NewNetworkHandle returns a handle to run Zeo++ on structure with the options params.
func NewNetworkHandle(structure *porous.Structure, params NetworkParameters) *NetworkHandle {
	O := &NetworkHandle{structure: structure, params: params}
	O.SetDefaults()
	return O
}

// SetDefaults names the job after the structure.
func (O *NetworkHandle) SetDefaults() {
	O.name = defaultNetworkJobLabel
	if O.structure != nil && O.structure.Label != "" {
		O.name = O.structure.Label
	}
}

func (O *NetworkHandle) SetName(name string) { O.name = name }

func (O *NetworkHandle) Name() string { return O.name }

func (O *NetworkHandle) Process() string { return NetworkProcess }

// SetAtomicRadii sets a .rad file with the atomic radii Zeo++ must use. An empty path
// means the Zeo++ default radii.
func (O *NetworkHandle) SetAtomicRadii(path string) { O.radii = path }

// AtomicRadii returns the .rad file set, or an empty string.
func (O *NetworkHandle) AtomicRadii() string { return O.radii }

// Params returns the Zeo++ options of the handle.
func (O *NetworkHandle) Params() NetworkParameters { return O.params }

func (O *NetworkHandle) Inputs() porous.Parameters {
	P := porous.Parameters{"parameters": O.params.Parameters()}
	if O.structure != nil {
		P["structure"] = O.structure.Path
	}
	if O.radii != "" {
		P["atomic_radii"] = O.radii
	}
	return P
}

// BuildInput declares the structure and radii files to stage, and the network command line.
// Zeo++ takes all its input from the command line. Only compressed structures are
// written, decompressed, into folder, since network cannot read gzip.
func (O *NetworkHandle) BuildInput(ctx context.Context, folder *Folder) (*CalcInfo, error) {
	if O.structure == nil || O.structure.Path == "" {
		return nil, &Error{ErrMissingInput, Zeopp, O.name, "no structure", []string{"BuildInput"}, true}
	}
	info := &CalcInfo{RetrieveList: O.params.OutputFiles()}
	staged := O.structure.StagedName()
	if O.structure.Compressed() {
		data, err := O.structure.Content()
		if err != nil {
			return nil, &Error{ErrMissingInput, Zeopp, O.name, err.Error(), []string{"Content", "BuildInput"}, true}
		}
		if err := folder.Write(ctx, staged, data); err != nil {
			return nil, &Error{ErrCantInput, Zeopp, O.name, err.Error(), []string{"BuildInput"}, true}
		}
	} else {
		info.LocalCopyList = append(info.LocalCopyList, CopyItem{Source: O.structure.Path, Target: staged})
	}
	radii := ""
	if O.radii != "" {
		radii = filepath.Base(O.radii)
		info.LocalCopyList = append(info.LocalCopyList, CopyItem{Source: O.radii, Target: radii})
	}
	info.CmdlineParams = O.params.CmdLine(staged, radii)
	return info, nil
}

// Parse reads the retrieved Zeo++ outputs. A requested output that was not
// retrieved yields ExitNoOutputFile.
func (O *NetworkHandle) Parse(ctx context.Context, retrieved *Folder) (*Output, error) {
	out := newOutput()
	if retrieved == nil || !retrieved.Exists(ctx, "") {
		out.ExitCode = ExitNoRetrievedFolder
		return out, nil
	}
	for _, f := range O.params.OutputFiles() {
		if !retrieved.Exists(ctx, f) {
			out.ExitCode = ExitNoOutputFile
			return out, nil
		}
	}
	if O.params.Res {
		data, err := retrieved.Read(ctx, ResFile)
		if err != nil {
			return nil, &Error{ErrCantParse, Zeopp, O.name, err.Error(), []string{"Parse"}, true}
		}
		res, err := ParseRes(string(data))
		if err != nil {
			return nil, &Error{ErrCantParse, Zeopp, O.name, err.Error(), []string{"ParseRes", "Parse"}, true}
		}
		out.Parameters.Update(res)
	}
	if O.params.CSSR {
		out.Files["structure_cssr"] = retrieved.AbsPath(CSSRFile)
	}
	if O.params.Chan > 0 {
		data, err := retrieved.Read(ctx, ChanFile)
		if err != nil {
			return nil, &Error{ErrCantParse, Zeopp, O.name, err.Error(), []string{"Parse"}, true}
		}
		ch, err := ParseChan(string(data))
		if err != nil {
			return nil, &Error{ErrCantParse, Zeopp, O.name, err.Error(), []string{"ParseChan", "Parse"}, true}
		}
		ch["Input_chan"] = O.params.Chan
		out.Parameters.Update(ch)
	}
	if O.params.VisVoro > 0 {
		path := retrieved.AbsPath(VoroAccessibleFile)
		n, err := porous.CountVoronoiNodes(path)
		if err != nil {
			return nil, &Error{ErrCantParse, Zeopp, O.name, err.Error(), []string{"CountVoronoiNodes", "Parse"}, true}
		}
		out.Parameters["Input_visVoro"] = O.params.VisVoro
		out.Parameters["Number_of_accessible_Voronoi_nodes"] = n
		out.Files["voro_accessible"] = path
	}
	return out, nil
}

// Keys of the pore diameters in the parsed results, in angstrom.
const (
	LargestIncludedSphere         = "Largest_included_sphere"
	LargestFreeSphere             = "Largest_free_sphere"
	LargestIncludedSphereFreePath = "Largest_included_sphere_along_free_sphere_path"
)

// ParseRes parses the content of a Zeo++ .res file:
// "<name> <included sphere> <free sphere> <included sphere along free path>".
func ParseRes(content string) (porous.Parameters, error) {
	fields := strings.Fields(content)
	if len(fields) < 4 {
		return nil, fmt.Errorf("res output has %d fields, want 4", len(fields))
	}
	keys := []string{LargestIncludedSphere, LargestFreeSphere, LargestIncludedSphereFreePath}
	P := porous.Parameters{"Largest_sphere_unit": "angstrom"}
	for i, k := range keys {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("res output: %w", err)
		}
		P[k] = v
	}
	return P, nil
}

// ParseChan parses the first line of a Zeo++ .chan file:
// "<name>   2 channels identified of dimensionality 3 3".
func ParseChan(content string) (porous.Parameters, error) {
	line := content
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[2] != "channels" && fields[2] != "channel" {
		return nil, fmt.Errorf("unexpected chan output %q", line)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("chan output: %w", err)
	}
	dims := make([]int, 0, n)
	for i, f := range fields {
		if f != "dimensionality" {
			continue
		}
		for _, d := range fields[i+1:] {
			v, err := strconv.Atoi(d)
			if err != nil {
				return nil, fmt.Errorf("chan output: %w", err)
			}
			dims = append(dims, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dims)))
	return porous.Parameters{"Channels": n, "Channel_dimensionality": dims}, nil
}
