/*
 * atomicdata_test.go, part of porousmaterials.
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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRadFile(Te *testing.T) {
	var b strings.Builder
	err := WriteRadFile(&b, []string{"O", "Cu", "C", "H", "O"}, map[string]float64{"Cu": 1.4})
	require.NoError(Te, err)
	assert.Equal(Te, "C 1.700\nCu 1.400\nH 1.100\nO 1.520\n", b.String())

	err = WriteRadFile(&b, []string{"Xx"}, nil)
	assert.ErrorContains(Te, err, "no radius for element Xx")
}
