/*
 * voronoi_test.go, part of porousmaterials.
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

package workchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShouldRunVisVoro(Te *testing.T) {
	cases := []struct {
		lcd, pld float64
		want     bool
	}{
		{14.99, 4.0, true},
		{15.0, 4.0, false}, //LCD must be strictly under the maximum
		{15.01, 4.0, false},
		{10.0, 3.9, false}, //PLD must be strictly over the minimum
		{10.0, 3.91, true},
		{10.0, 3.89, false},
		{15.0, 3.9, false},
	}
	for _, c := range cases {
		assert.Equal(Te, c.want, ShouldRunVisVoro(c.lcd, c.pld, 15.0, 3.9), "lcd %g pld %g", c.lcd, c.pld)
	}
}

func TestShouldRunEv(Te *testing.T) {
	assert.False(Te, ShouldRunEv(0))
	assert.True(Te, ShouldRunEv(1))
	assert.False(Te, ShouldRunEv(-1))
}

func TestProbeRadius(Te *testing.T) {
	W := DefaultParameters()
	assert.Equal(Te, 1.98, ProbeRadius(W, 6.5))
	W.PLDBased = true
	assert.Equal(Te, 3.25, ProbeRadius(W, 6.5))

	assert.Equal(Te, calc.NetworkParameters{VisVoro: 1.5}, VisVoroParameters(W, 1.5))
	W.VisVoroHA = true
	assert.Equal(Te, calc.NetworkParameters{VisVoro: 1.5, HA: "DEF"}, VisVoroParameters(W, 1.5))
	assert.Equal(Te, calc.NetworkParameters{Res: true, CSSR: true}, ResParameters(W, false))
	assert.Equal(Te, calc.NetworkParameters{Res: true, HA: "S100"}, ResParameters(W, true))
}

func TestNewParameters(Te *testing.T) {
	W, err := NewParameters(porous.Parameters{
		"pld_min":          3.5,
		"lcd_max":          20,
		"pld_based":        true,
		"accuracy_high":    "HIGH",
		"visvoro_ha":       true,
		"visvoro_accuracy": "DEF",
		"ev_setting":       []interface{}{99, 95, 90},
	})
	require.NoError(Te, err)
	assert.Equal(Te, 3.5, W.PLDMin)
	assert.Equal(Te, 20.0, W.LCDMax)
	assert.True(Te, W.PLDBased)
	assert.Equal(Te, "HIGH", W.AccuracyHigh)
	assert.Equal(Te, 1.98, W.ProbeRadius)
	assert.Equal(Te, []int{99, 95, 90}, W.EvSetting)

	_, err = NewParameters(porous.Parameters{"pld_min": -1.0})
	assert.ErrorContains(Te, err, "negative")
	_, err = NewParameters(porous.Parameters{"probe_radius": 0.0})
	assert.ErrorContains(Te, err, "probe_radius")
	_, err = NewParameters(porous.Parameters{"ev_setting": []int{120}})
	assert.ErrorContains(Te, err, "120")
	_, err = NewParameters(porous.Parameters{"pld_based": "yes"})
	assert.Error(Te, err)
}

//fakeLauncher answers Zeo++ and PorousMaterials calculations with canned outputs.
type fakeLauncher struct {
	lcd, pld, pldHA float64
	nodes           int
	evFile          string
	adsorbates      []string //multi-component outputs, one table per adsorbate
	pmFailures      int
	network         []calc.NetworkParameters
	pm              *calc.PMHandle
	pmRuns          int
}

func (F *fakeLauncher) Run(ctx context.Context, H calc.Handle, code calc.Code, opts calc.Options) (*calc.Result, error) {
	res := &calc.Result{
		ID:       fmt.Sprintf("calc%d", len(F.network)+F.pmRuns),
		Label:    opts.Label,
		Process:  H.Process(),
		ExitCode: calc.ExitOK,
		Outputs:  porous.Parameters{},
		Files:    map[string]string{},
		DryRun:   opts.DryRun,
	}
	switch h := H.(type) {
	case *calc.NetworkHandle:
		N := h.Params()
		F.network = append(F.network, N)
		if opts.DryRun {
			return res, nil
		}
		if N.Res {
			pld := F.pld
			if N.HA != "" {
				pld = F.pldHA
			}
			res.Outputs[calc.LargestIncludedSphere] = F.lcd
			res.Outputs[calc.LargestFreeSphere] = pld
		}
		if N.CSSR {
			res.Files["structure_cssr"] = "/jobs/aa/out.cssr"
		}
		if N.VisVoro > 0 {
			res.Outputs["Input_visVoro"] = N.VisVoro
			res.Outputs["Number_of_accessible_Voronoi_nodes"] = F.nodes
			res.Files["voro_accessible"] = "/jobs/bb/out.visVoro.voro_accessible"
		}
	case *calc.PMHandle:
		F.pm = h
		F.pmRuns++
		if F.pmRuns <= F.pmFailures {
			res.ExitCode = calc.ExitNoOutputFile
			return res, nil
		}
		if len(F.adsorbates) > 0 {
			for _, ads := range F.adsorbates {
				res.Outputs[ads] = porous.Parameters{"Ev_minimum": -100.0, "number_of_Voronoi_nodes_in_p90": 0}
				res.Files["ev_output_file_"+ads] = F.evFile
			}
			res.Files["kh_output_file"] = "/jobs/cc/Output/Kh_HKUST1.csv"
			return res, nil
		}
		res.Outputs = porous.Parameters{"Ev_minimum": -100.0, "Ev_p90": 0.0, "number_of_Voronoi_nodes_in_p90": 0}
		res.Files["ev_output_file"] = F.evFile
	}
	return res, nil
}

type memRecorder struct{ records []*Record }

func (M *memRecorder) RecordWorkChain(ctx context.Context, rec *Record) error {
	M.records = append(M.records, rec)
	return nil
}

func testInputs(Te *testing.T) (*Inputs, string) {
	ev := filepath.Join(Te.TempDir(), "Ev_HKUST1.csv")
	csv := "Ev(kJ/mol),Rv(A),x,y,z\n-40,3.1,0,0,0\n-100,4.25,1,2,3\n-50,3.6,2,2,2\n-95,4,7,7,8\n-10,2.2,9,9,9\n"
	require.NoError(Te, os.WriteFile(ev, []byte(csv), 0o644))
	W := DefaultParameters()
	W.EvSetting = []int{50}
	in := &Inputs{
		Structure:    &porous.Structure{Path: "/data/HKUST1.cif", Filename: "HKUST1.cif", Label: "hkust1"},
		AtomicRadii:  "/data/UFF.rad",
		Zeopp:        calc.Code{Label: "zeopp", Executable: "network"},
		Julia:        calc.Code{Label: "julia", Executable: "julia"},
		Parameters:   W,
		PMParameters: porous.Parameters{"input_template": "ev_lj_1comp_template", "adsorbate": "Xe"},
	}
	return in, ev
}

func TestVoronoiEnergyProbeBased(Te *testing.T) {
	in, ev := testInputs(Te)
	L := &fakeLauncher{lcd: 13.2, pld: 6.5, nodes: 12, evFile: ev}
	rec := &memRecorder{}
	W := New(L, WithLogger(zaptest.NewLogger(Te)), WithRecorder(rec))
	out, err := W.Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Empty(Te, out.Stopped)
	assert.False(Te, out.Reperformed)
	require.Len(Te, L.network, 2)
	assert.Equal(Te, calc.NetworkParameters{Res: true, CSSR: true}, L.network[0])
	assert.Equal(Te, calc.NetworkParameters{VisVoro: 1.98}, L.network[1])
	assert.Equal(Te, 1, L.pmRuns)
	require.Len(Te, out.Calculations, 3)
	assert.Equal(Te, "hkust1_ev", out.Calculations[2].Label)

	//the CSSR of the first run is staged under the framework name
	P := L.pm.Params()
	assert.Equal(Te, "HKUST1", P["frameworkname"])
	assert.Equal(Te, "HKUST1.cssr", P["framework"])
	assert.Equal(Te, porous.Parameters{"HKUST1": "/jobs/aa/out.cssr"}, L.pm.Inputs()["structure"])

	zeopp, err := out.Results.Sub("zeopp")
	require.NoError(Te, err)
	assert.Equal(Te, 6.5, zeopp[calc.LargestFreeSphere])
	assert.Equal(Te, 13.2, zeopp[calc.LargestIncludedSphere])
	assert.Equal(Te, 1.98, zeopp["visVoro_probe_radius"])
	assert.False(Te, zeopp.Has("S100"))

	pm, err := out.Results.Sub("porousmaterials")
	require.NoError(Te, err)
	assert.Equal(Te, -100.0, pm["Ev_minimum"])
	assert.InDelta(Te, -59.0, pm["Ev_average"], 1e-12)
	assert.Equal(Te, 3, pm["number_of_Voronoi_nodes_in_p50"])
	assert.InDelta(Te, -245.0/3, pm["Ev_p50"], 1e-12)
	//the percentiles of the calculation itself are kept
	assert.Equal(Te, 0, pm["number_of_Voronoi_nodes_in_p90"])

	assert.Equal(Te, map[string]string{
		"structure_cssr":           "/jobs/aa/out.cssr",
		"accessible_voronoi_nodes": "/jobs/bb/out.visVoro.voro_accessible",
	}, out.Files())
	require.Len(Te, rec.records, 1)
	assert.Equal(Te, []string{"calc0", "calc1", "calc2"}, rec.records[0].Calculations)
	assert.Equal(Te, "/data/HKUST1.cif", rec.records[0].Structure)
	assert.Equal(Te, out.ID, rec.records[0].ID)
}

func TestVoronoiEnergyMultiComponent(Te *testing.T) {
	in, ev := testInputs(Te)
	in.PMParameters = porous.Parameters{"input_template": "ev_vdw_kh_multicomp_template", "adsorbates": []string{"Xe", "Kr"}, "temperature": 298.0}
	L := &fakeLauncher{lcd: 13.2, pld: 6.5, nodes: 12, evFile: ev, adsorbates: []string{"Xe", "Kr"}}
	out, err := New(L, WithLogger(zaptest.NewLogger(Te))).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Equal(Te, 1, L.pmRuns)
	pm, err := out.Results.Sub("porousmaterials")
	require.NoError(Te, err)
	for _, ads := range []string{"Xe", "Kr"} {
		sub, err := pm.Sub(ads)
		require.NoError(Te, err, ads)
		assert.Equal(Te, -100.0, sub["Ev_minimum"])
		assert.InDelta(Te, -59.0, sub["Ev_average"], 1e-12)
		assert.Equal(Te, 3, sub["number_of_Voronoi_nodes_in_p50"])
		assert.InDelta(Te, -245.0/3, sub["Ev_p50"], 1e-12)
	}
	assert.False(Te, pm.Has("Ev_average"))
}

func TestVoronoiEnergyPLDBased(Te *testing.T) {
	in, ev := testInputs(Te)
	in.Parameters.PLDBased = true
	in.Parameters.VisVoroHA = true
	L := &fakeLauncher{lcd: 13.2, pld: 6.5, pldHA: 6.4, nodes: 3, evFile: ev}
	out, err := New(L).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.True(Te, out.Reperformed)
	require.Len(Te, L.network, 3)
	assert.Equal(Te, calc.NetworkParameters{Res: true, HA: "S100"}, L.network[1])
	//half the PLD of the accurate run
	assert.Equal(Te, calc.NetworkParameters{VisVoro: 3.2, HA: "DEF"}, L.network[2])
	assert.Equal(Te, "hkust1_res_s100", out.Calculations[1].Label)
	//the CSSR comes from the first run
	assert.Equal(Te, "/jobs/aa/out.cssr", out.StructureCSSR)

	zeopp, err := out.Results.Sub("zeopp")
	require.NoError(Te, err)
	assert.Equal(Te, 6.5, zeopp[calc.LargestFreeSphere])
	accurate, err := zeopp.Sub("S100")
	require.NoError(Te, err)
	assert.Equal(Te, 6.4, accurate[calc.LargestFreeSphere])
	assert.Equal(Te, 13.2, accurate[calc.LargestIncludedSphere])
	assert.Equal(Te, 3.2, zeopp["visVoro_probe_radius"])
}

func TestVoronoiEnergyStops(Te *testing.T) {
	in, ev := testInputs(Te)

	//LCD too large
	L := &fakeLauncher{lcd: 15.0, pld: 6.5, nodes: 3, evFile: ev}
	out, err := New(L).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Contains(Te, out.Stopped, "outside the limits")
	assert.Len(Te, L.network, 1)
	assert.Zero(Te, L.pmRuns)
	assert.False(Te, out.Results.Has("porousmaterials"))
	assert.Equal(Te, map[string]string{"structure_cssr": "/jobs/aa/out.cssr"}, out.Files())

	//no accessible nodes
	L = &fakeLauncher{lcd: 13.2, pld: 6.5, nodes: 0, evFile: ev}
	out, err = New(L).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Equal(Te, "no accessible Voronoi nodes", out.Stopped)
	assert.Len(Te, L.network, 2)
	assert.Zero(Te, L.pmRuns)
	zeopp, err := out.Results.Sub("zeopp")
	require.NoError(Te, err)
	assert.Equal(Te, 1.98, zeopp["visVoro_probe_radius"])
	assert.Contains(Te, out.Files(), "accessible_voronoi_nodes")
}

func TestVoronoiEnergyRestarts(Te *testing.T) {
	in, ev := testInputs(Te)
	L := &fakeLauncher{lcd: 13.2, pld: 6.5, nodes: 3, evFile: ev, pmFailures: 1}
	out, err := New(L).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Equal(Te, 2, L.pmRuns)
	assert.Equal(Te, 2, out.Calculations[2].Iteration)

	L = &fakeLauncher{lcd: 13.2, pld: 6.5, nodes: 3, evFile: ev, pmFailures: 10}
	rec := &memRecorder{}
	_, err = New(L, WithMaxIterations(2), WithRecorder(rec)).Run(context.Background(), in)
	assert.ErrorIs(Te, err, ErrStepFailed)
	assert.ErrorIs(Te, err, calc.ErrMaxIterations)
	assert.Equal(Te, 2, L.pmRuns)
	assert.Empty(Te, rec.records)
}

func TestVoronoiEnergyDryRun(Te *testing.T) {
	in, _ := testInputs(Te)
	in.ZeoppOptions.DryRun = true
	L := &fakeLauncher{}
	out, err := New(L).Run(context.Background(), in)
	require.NoError(Te, err)
	assert.Equal(Te, "dry run", out.Stopped)
	assert.Len(Te, L.network, 1)
	assert.Nil(Te, out.Results)
}

func TestVoronoiEnergyBadInputs(Te *testing.T) {
	in, _ := testInputs(Te)
	in.Parameters.ProbeRadius = 0
	_, err := New(&fakeLauncher{}).Run(context.Background(), in)
	assert.ErrorContains(Te, err, "probe_radius")
	_, err = New(&fakeLauncher{}).Run(context.Background(), &Inputs{})
	assert.ErrorContains(Te, err, "no structure")
}
