/*
 * porousmaterials_test.go, part of porousmaterials.
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
	"os"
	"path/filepath"
	"strings"
	"testing"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pmParameters() porous.Parameters {
	return porous.Parameters{
		"data_path":      "/data",
		"ff":             "UFF.csv",
		"cutoff":         12.5,
		"mixing":         "Lorentz-Berthelot",
		"adsorbate":      "Xe",
		"input_template": "ev_lj_1comp_template",
	}
}

func TestPMDefaults(Te *testing.T) {
	H := NewPMHandle(pmParameters())
	H.AddStructure("", testStructure(Te))
	assert.Equal(Te, "HKUST1", H.Name())
	P := H.Params()
	assert.Equal(Te, "HKUST1", P["frameworkname"])
	assert.Equal(Te, "HKUST1.cif", P["framework"])
	assert.Equal(Te, "Ev_HKUST1.csv", P["output_filename"])
	assert.False(Te, P.Has("kh_filename"))
	s, err := H.EvSetting()
	require.NoError(Te, err)
	assert.Equal(Te, DefaultEvSetting, s)

	multi := pmParameters()
	multi["adsorbates"] = []string{"Xe", "Kr"}
	H = NewPMHandle(multi)
	H.AddStructure("HKUST1", testStructure(Te))
	P = H.Params()
	assert.Equal(Te, "Kh_HKUST1.csv", P["kh_filename"])
	assert.False(Te, P.Has("output_filename"))
}

func TestPMBuildInput(Te *testing.T) {
	ctx := context.Background()
	params := pmParameters()
	params["ev_setting"] = []int{95, 90}
	H := NewPMHandle(params)
	H.AddStructure("HKUST1", testStructure(Te))
	H.AddNodes("HKUST1", "/data/out.visVoro.voro_accessible")
	H.SetForceField("/data/forcefields/UFF.csv")
	H.SetSettings(porous.Parameters{"cmdline": []string{"--threads", "2"}})
	folder := NewFolder(Te.TempDir(), nil)
	info, err := H.BuildInput(ctx, folder)
	require.NoError(Te, err)
	assert.Equal(Te, []string{"--threads", "2", PMInputFile}, info.CmdlineParams)
	assert.Equal(Te, PMInputFile, info.StdinName)
	assert.Equal(Te, []string{PMOutputFolder}, info.RetrieveList)
	require.Len(Te, info.LocalCopyList, 3)
	assert.Equal(Te, "HKUST1.cif", info.LocalCopyList[0].Target)
	assert.Equal(Te, CopyItem{Source: "/data/out.visVoro.voro_accessible", Target: "HKUST1.voro_accessible"}, info.LocalCopyList[1])
	assert.Equal(Te, "UFF.csv", info.LocalCopyList[2].Target)

	input, err := os.ReadFile(folder.AbsPath(PMInputFile))
	require.NoError(Te, err)
	assert.Contains(Te, string(input), `nodes = read_nodes("HKUST1.voro_accessible")`)
	assert.Contains(Te, string(input), `open(joinpath("Output", "Ev_HKUST1.csv"), "w")`)
	assert.Contains(Te, string(input), `framework = Framework("HKUST1.cif")`)

	s, err := H.EvSetting()
	require.NoError(Te, err)
	assert.Equal(Te, []int{95, 90}, s)
}

func TestPMBuildInputErrors(Te *testing.T) {
	ctx := context.Background()
	P := pmParameters()
	delete(P, "input_template")
	H := NewPMHandle(P)
	H.AddStructure("", testStructure(Te))
	_, err := H.BuildInput(ctx, NewFolder(Te.TempDir(), nil))
	assert.ErrorContains(Te, err, `parameter "input_template": not set`)

	H = NewPMHandle(pmParameters())
	_, err = H.BuildInput(ctx, NewFolder(Te.TempDir(), nil))
	assert.ErrorContains(Te, err, "no structure")

	//no accessible nodes for the template
	H.AddStructure("", testStructure(Te))
	_, err = H.BuildInput(ctx, NewFolder(Te.TempDir(), nil))
	assert.ErrorContains(Te, err, ErrCantInput)
}

func TestPMParse(Te *testing.T) {
	ctx := context.Background()
	H := NewPMHandle(pmParameters())
	H.AddStructure("", testStructure(Te))

	out, err := H.Parse(ctx, NewFolder(filepath.Join(Te.TempDir(), "missing"), nil))
	require.NoError(Te, err)
	assert.Equal(Te, ExitNoRetrievedFolder, out.ExitCode)

	out, err = H.Parse(ctx, NewFolder(Te.TempDir(), nil))
	require.NoError(Te, err)
	assert.Equal(Te, ExitNoOutputFile, out.ExitCode)

	folder := retrievedFolder(Te, map[string]string{"Ev_HKUST1.csv": "Output/other.csv"})
	out, err = H.Parse(ctx, folder)
	require.NoError(Te, err)
	assert.Equal(Te, ExitNoOutputFile, out.ExitCode)

	folder = retrievedFolder(Te, map[string]string{"Ev_HKUST1.csv": "Output/Ev_HKUST1.csv"})
	out, err = H.Parse(ctx, folder)
	require.NoError(Te, err)
	require.True(Te, out.ExitCode.OK())
	assert.Equal(Te, -100.0, out.Parameters["Ev_minimum"])
	assert.Equal(Te, 2, out.Parameters["number_of_Voronoi_nodes_in_p90"])
	assert.Equal(Te, folder.AbsPath("Output/Ev_HKUST1.csv"), out.Files["ev_output_file"])
}

func TestPMParseMultiComponent(Te *testing.T) {
	ctx := context.Background()
	P := pmParameters()
	delete(P, "adsorbate")
	P["input_template"] = "ev_vdw_kh_multicomp_template"
	P["adsorbates"] = `["Xe","Kr"]`
	P["temperature"] = 298.0
	P["ev_setting"] = []interface{}{50}
	H := NewPMHandle(P)
	H.AddStructure("", testStructure(Te))
	H.AddNodes("HKUST1_Xe", "/data/xe.voro_accessible")
	H.AddNodes("HKUST1_Kr", "/data/kr.voro_accessible")

	info, err := H.BuildInput(ctx, NewFolder(Te.TempDir(), nil))
	require.NoError(Te, err)
	//node files are staged in label order
	assert.Equal(Te, "HKUST1_Kr.voro_accessible", info.LocalCopyList[1].Target)
	assert.Equal(Te, "HKUST1_Xe.voro_accessible", info.LocalCopyList[2].Target)

	folder := retrievedFolder(Te, map[string]string{"Ev_HKUST1.csv": "Output/Ev_HKUST1_Xe.csv"})
	out, err := H.Parse(ctx, folder)
	require.NoError(Te, err)
	assert.Equal(Te, ExitNoOutputFile, out.ExitCode)

	require.NoError(Te, folder.Write(ctx, "Output/Ev_HKUST1_Kr.csv", []byte("Ev(kJ/mol),Rv(A),x,y,z\n-3,1,0,0,0\n-1,1,1,1,1\n")))
	require.NoError(Te, folder.Write(ctx, "Output/Kh_HKUST1.csv", []byte("adsorbate,Kh(mol/kg/Pa)\n")))
	out, err = H.Parse(ctx, folder)
	require.NoError(Te, err)
	require.True(Te, out.ExitCode.OK())
	xe, err := out.Parameters.Sub("Xe")
	require.NoError(Te, err)
	assert.Equal(Te, 3, xe["number_of_Voronoi_nodes_in_p50"])
	kr, err := out.Parameters.Sub("Kr")
	require.NoError(Te, err)
	assert.Equal(Te, -3.0, kr["Ev_minimum"])
	assert.Equal(Te, 1, kr["number_of_Voronoi_nodes_in_p50"])
	assert.True(Te, strings.HasSuffix(out.Files["ev_output_file_Kr"], "Ev_HKUST1_Kr.csv"))
	assert.Contains(Te, out.Files, "kh_output_file")
}
