/*
 * evparse_test.go, part of porousmaterials.
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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvStatistics(Te *testing.T) {
	R, err := ParseEvFile("testdata/Ev_HKUST1.csv", DefaultEvSetting)
	require.NoError(Te, err)
	assert.Equal(Te, "kJ/mol", R["Ev_unit"])
	assert.Equal(Te, "Cartesian", R["coordinates"])
	assert.Equal(Te, "angstrom", R["minimum_node_radius_unit"])
	assert.Equal(Te, 5, R["total_number_of_accessible_Voronoi_nodes"])
	assert.InDelta(Te, -59.0, R["Ev_average"], 1e-12)
	assert.Equal(Te, -100.0, R["Ev_minimum"])
	assert.Equal(Te, -10.0, R["Ev_maximum"])
	assert.Equal(Te, 4.25, R["minimum_node_radius"])
	assert.Equal(Te, 1.0, R["minimum_node_coord_x"])
	assert.Equal(Te, 2.0, R["minimum_node_coord_y"])
	assert.Equal(Te, 3.0, R["minimum_node_coord_z"])

	assert.Equal(Te, 2, R["number_of_Voronoi_nodes_in_p90"])
	assert.InDelta(Te, -97.5, R["Ev_p90"], 1e-12)
	assert.Equal(Te, 2, R["number_of_Voronoi_nodes_in_p80"])
	assert.InDelta(Te, -97.5, R["Ev_p80"], 1e-12)
	//the node at exactly half the minimum counts
	assert.Equal(Te, 3, R["number_of_Voronoi_nodes_in_p50"])
	assert.InDelta(Te, -245.0/3, R["Ev_p50"], 1e-12)
}

func TestEvStatisticsCustomSetting(Te *testing.T) {
	R, err := ParseEvFile("testdata/Ev_HKUST1.csv", []int{99, 10})
	require.NoError(Te, err)
	assert.Equal(Te, 1, R["number_of_Voronoi_nodes_in_p99"])
	assert.Equal(Te, -100.0, R["Ev_p99"])
	assert.Equal(Te, 5, R["number_of_Voronoi_nodes_in_p10"])
	assert.False(Te, R.Has("Ev_p90"))
}

func TestEvStatisticsNoQualifyingNodes(Te *testing.T) {
	T, err := ReadEvTable(strings.NewReader("Ev(kJ/mol),Rv(A),x,y,z\n5,1,0,0,0\n10,1,1,1,1\n"))
	require.NoError(Te, err)
	R, err := EvStatistics(T, []int{90})
	require.NoError(Te, err)
	assert.Equal(Te, 0, R["number_of_Voronoi_nodes_in_p90"])
	assert.False(Te, R.Has("Ev_p90"))
	assert.Equal(Te, 5.0, R["Ev_minimum"])
}

func TestEvTableColumnOrderAndTies(Te *testing.T) {
	csv := "z, y, x, Rv(A), Ev(kJ/mol), extra\n3,2,1,1.5,-7,a\n6,5,4,2.5,-7,b\n"
	T, err := ReadEvTable(strings.NewReader(csv))
	require.NoError(Te, err)
	require.Equal(Te, 2, T.Len())
	R, err := EvStatistics(T, nil)
	require.NoError(Te, err)
	//first row holding the minimum
	assert.Equal(Te, 1.5, R["minimum_node_radius"])
	assert.Equal(Te, 1.0, R["minimum_node_coord_x"])
	assert.Equal(Te, 3.0, R["minimum_node_coord_z"])
}

func TestEvTableErrors(Te *testing.T) {
	cases := []struct {
		name, csv, err string
	}{
		{"missing column", "Ev(kJ/mol),Rv(A),x,y\n1,1,1,1\n", `no "z" column`},
		{"bad number", "Ev(kJ/mol),Rv(A),x,y,z\n1,1,1,one,1\n", "line 2, column y"},
		{"short row", "Ev(kJ/mol),Rv(A),x,y,z\n1,1,1\n", "line 2"},
		{"empty", "", "header"},
		{"nan", "Ev(kJ/mol),Rv(A),x,y,z\n-5,1,0,0,0\nNaN,1,1,1,1\n", "line 3, column Ev(kJ/mol): non-finite"},
		{"inf", "Ev(kJ/mol),Rv(A),x,y,z\n-5,+Inf,0,0,0\n", "line 2, column Rv(A): non-finite"},
	}
	for _, c := range cases {
		Te.Run(c.name, func(Te *testing.T) {
			_, err := ReadEvTable(strings.NewReader(c.csv))
			assert.ErrorContains(Te, err, c.err)
		})
	}
	_, err := EvStatistics(&EvTable{}, DefaultEvSetting)
	assert.Error(Te, err)
}

func TestEvSelect(Te *testing.T) {
	assert.Nil(Te, EvSelect(nil, 90))
	assert.Equal(Te, []float64{-10, -9}, EvSelect([]float64{-10, -9, -1}, 90))
	assert.Equal(Te, -50.0, EvThreshold(-100, 50))
}
