/*
 * store_test.go, part of porousmaterials.
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

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/workchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(Te *testing.T) *Store {
	S, err := Open(filepath.Join(Te.TempDir(), "db", "provenance.sqlite"))
	require.NoError(Te, err)
	Te.Cleanup(func() { S.Close() })
	return S
}

func TestCalculations(Te *testing.T) {
	ctx := context.Background()
	S := openTemp(Te)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &calc.Record{
		ID:       "aa11",
		Label:    "hkust1_res",
		Process:  calc.NetworkProcess,
		Code:     "zeopp",
		Inputs:   porous.Parameters{"parameters": porous.Parameters{"res": true}},
		Outputs:  porous.Parameters{calc.LargestFreeSphere: 6.5, "Channels": 2},
		Files:    map[string]string{"structure_cssr": "/jobs/aa/out.cssr"},
		ExitCode: calc.ExitOK,
		WorkDir:  "/jobs/aa/aa11",
		Created:  created,
		Finished: created.Add(time.Minute),
	}
	second := &calc.Record{
		ID:       "bb22",
		Label:    "hkust1_ev",
		Process:  calc.PMProcess,
		ExitCode: calc.ExitNoOutputFile,
		Created:  created.Add(time.Hour),
	}
	require.NoError(Te, S.RecordCalculation(ctx, first))
	require.NoError(Te, S.RecordCalculation(ctx, second))

	got, err := S.Calculation(ctx, "aa11")
	require.NoError(Te, err)
	assert.Equal(Te, "hkust1_res", got.Label)
	assert.Equal(Te, "zeopp", got.Code)
	assert.True(Te, got.ExitCode.OK())
	assert.Equal(Te, 6.5, got.Outputs[calc.LargestFreeSphere])
	n, err := got.Outputs.Int("Channels")
	require.NoError(Te, err)
	assert.Equal(Te, 2, n)
	in, err := got.Inputs.Sub("parameters")
	require.NoError(Te, err)
	assert.Equal(Te, true, in["res"])
	assert.Equal(Te, first.Files, got.Files)
	assert.True(Te, created.Equal(got.Created))
	assert.True(Te, created.Add(time.Minute).Equal(got.Finished))

	failed, err := S.Calculation(ctx, "bb22")
	require.NoError(Te, err)
	assert.Equal(Te, calc.ExitNoOutputFile, failed.ExitCode)
	assert.Nil(Te, failed.Outputs)
	assert.True(Te, failed.Finished.IsZero())

	all, err := S.Calculations(ctx, 0)
	require.NoError(Te, err)
	require.Len(Te, all, 2)
	assert.Equal(Te, "bb22", all[0].ID)
	latest, err := S.Calculations(ctx, 1)
	require.NoError(Te, err)
	require.Len(Te, latest, 1)
	assert.Equal(Te, "bb22", latest[0].ID)

	_, err = S.Calculation(ctx, "nope")
	assert.ErrorIs(Te, err, ErrNotFound)
	assert.Equal(Te, "failed", Status(calc.ExitExecutableFailed))
}

func TestCalculationsOrder(Te *testing.T) {
	ctx := context.Background()
	S := openTemp(Te)
	base := time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC)
	//recorded out of order, all within the same second
	for _, r := range []struct {
		id string
		ns int
	}{{"newer", 100000000}, {"older", 0}, {"newest", 123456789}} {
		rec := &calc.Record{ID: r.id, Label: r.id, Process: calc.NetworkProcess, ExitCode: calc.ExitOK, Created: base.Add(time.Duration(r.ns))}
		require.NoError(Te, S.RecordCalculation(ctx, rec))
		wc := &workchain.Record{ID: "wc_" + r.id, Label: r.id, Created: base.Add(time.Duration(r.ns))}
		require.NoError(Te, S.RecordWorkChain(ctx, wc))
	}
	all, err := S.Calculations(ctx, 0)
	require.NoError(Te, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(Te, []string{"newest", "newer", "older"}, ids)
	assert.True(Te, base.Add(123456789).Equal(all[0].Created))

	wcs, err := S.WorkChains(ctx, 0)
	require.NoError(Te, err)
	labels := make([]string, 0, len(wcs))
	for _, r := range wcs {
		labels = append(labels, r.Label)
	}
	assert.Equal(Te, []string{"newest", "newer", "older"}, labels)
}

func TestFiles(Te *testing.T) {
	ctx := context.Background()
	S := openTemp(Te)
	content := bytes.Repeat([]byte("O 1.00000 2.00000 3.00000 4.25000\n"), 500)
	require.NoError(Te, S.RecordFile(ctx, "aa11", "retrieved/out.visVoro.voro_accessible", content))
	require.NoError(Te, S.RecordFile(ctx, "aa11", "input.jl", []byte("using PorousMaterials\n")))
	require.NoError(Te, S.RecordFile(ctx, "aa11", "empty", nil))

	got, err := S.File(ctx, "aa11", "retrieved/out.visVoro.voro_accessible")
	require.NoError(Te, err)
	assert.Equal(Te, content, got)
	empty, err := S.File(ctx, "aa11", "empty")
	require.NoError(Te, err)
	assert.Empty(Te, empty)

	names, err := S.FileNames(ctx, "aa11")
	require.NoError(Te, err)
	assert.Equal(Te, []string{"empty", "input.jl", "retrieved/out.visVoro.voro_accessible"}, names)

	_, err = S.File(ctx, "aa11", "out.res")
	assert.ErrorIs(Te, err, ErrNotFound)
}

func TestWorkChains(Te *testing.T) {
	ctx := context.Background()
	S := openTemp(Te)
	rec := &workchain.Record{
		ID:        "cc33",
		Label:     "hkust1",
		Structure: "/data/HKUST1.cif",
		Results: porous.Parameters{
			"zeopp":           porous.Parameters{calc.LargestFreeSphere: 6.5, "S100": porous.Parameters{calc.LargestFreeSphere: 6.4}},
			"porousmaterials": porous.Parameters{"Ev_minimum": -100.0},
		},
		Files:        map[string]string{"structure_cssr": "/jobs/aa/out.cssr"},
		Calculations: []string{"aa11", "bb22"},
		Created:      time.Now(),
		Finished:     time.Now(),
	}
	require.NoError(Te, S.RecordWorkChain(ctx, rec))
	got, err := S.WorkChain(ctx, "cc33")
	require.NoError(Te, err)
	assert.Equal(Te, rec.Calculations, got.Calculations)
	assert.Equal(Te, rec.Files, got.Files)
	zeopp, err := got.Results.Sub("zeopp")
	require.NoError(Te, err)
	accurate, err := zeopp.Sub("S100")
	require.NoError(Te, err)
	assert.Equal(Te, 6.4, accurate[calc.LargestFreeSphere])

	_, err = S.WorkChain(ctx, "dd44")
	assert.ErrorIs(Te, err, ErrNotFound)

	all, err := S.WorkChains(ctx, 10)
	require.NoError(Te, err)
	require.Len(Te, all, 1)
	assert.Equal(Te, "hkust1", all[0].Label)
}

//The store records what a Runner runs.
func TestStoreAsRecorder(Te *testing.T) {
	var _ calc.Recorder = (*Store)(nil)
	var _ workchain.Recorder = (*Store)(nil)
}
