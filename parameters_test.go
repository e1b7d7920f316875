/*
 * parameters_test.go, part of porousmaterials.
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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParametersFromYAML(Te *testing.T) {
	src := `
cutoff: 12.5
mixing: Lorentz-Berthelot
pld_based: false
ev_setting: [99, 95, 90, 80, 50]
adsorbates: '["Xe","Kr"]'
zeopp:
  pld_min: 3.9
  lcd_max: 15
`
	var P Parameters
	require.NoError(Te, yaml.Unmarshal([]byte(src), &P))

	cutoff, err := P.Float("cutoff")
	require.NoError(Te, err)
	assert.Equal(Te, 12.5, cutoff)

	mixing, err := P.String("mixing")
	require.NoError(Te, err)
	assert.Equal(Te, "Lorentz-Berthelot", mixing)

	pld, err := P.Bool("pld_based")
	require.NoError(Te, err)
	assert.False(Te, pld)

	ev, err := P.Ints("ev_setting")
	require.NoError(Te, err)
	assert.Equal(Te, []int{99, 95, 90, 80, 50}, ev)

	ads, err := P.Strings("adsorbates")
	require.NoError(Te, err)
	assert.Equal(Te, []string{"Xe", "Kr"}, ads)

	zeopp, err := P.Sub("zeopp")
	require.NoError(Te, err)
	lcd, err := zeopp.Float("lcd_max")
	require.NoError(Te, err)
	assert.Equal(Te, 15.0, lcd)
}

func TestParametersErrors(Te *testing.T) {
	P := Parameters{"cutoff": "twelve", "n": 2.5}

	_, err := P.Float("cutoff")
	require.Error(Te, err)
	var perr *ParameterError
	require.ErrorAs(Te, err, &perr)
	assert.Equal(Te, "cutoff", perr.Key())

	_, err = P.Float("absent")
	assert.EqualError(Te, err, `parameter "absent": not set`)

	_, err = P.Int("n")
	assert.Error(Te, err)

	def, err := P.FloatOr("absent", 3)
	require.NoError(Te, err)
	assert.Equal(Te, 3.0, def)
}

func TestParametersCopy(Te *testing.T) {
	P := Parameters{"list": []int{1, 2}, "sub": Parameters{"a": 1}}
	C := P.Copy()
	C["list"].([]int)[0] = 10
	C["sub"].(Parameters)["a"] = 2
	assert.Equal(Te, 1, P["list"].([]int)[0])
	assert.Equal(Te, 1, P["sub"].(Parameters)["a"])
	assert.Equal(Te, []string{"list", "sub"}, P.Keys())
}
