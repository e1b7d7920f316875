/*
 * parameters.go, part of porousmaterials.
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
	"fmt"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
)

// Parameters drive the decisions of the VoronoiEnergy workchain. Pore sizes and
// radii are in angstrom.
type Parameters struct {
	PLDMin          float64 `yaml:"pld_min"`
	LCDMax          float64 `yaml:"lcd_max"`
	PLDBased        bool    `yaml:"pld_based"`        //probe radius from the PLD instead of ProbeRadius
	ProbeRadius     float64 `yaml:"probe_radius"`     //visVoro probe when not PLDBased
	VisVoroHA       bool    `yaml:"visvoro_ha"`       //high accuracy mode for visVoro
	VisVoroAccuracy string  `yaml:"visvoro_accuracy"` //i.e. DEF
	AccuracyHigh    string  `yaml:"accuracy_high"`    //accuracy of the repeated pore diameter run, i.e. S100
	EvSetting       []int   `yaml:"ev_setting"`
}

// DefaultParameters returns the parameters of the screening of Xe/Kr
// adsorbents: frameworks with a PLD over 3.9 and an LCD under 15 angstrom,
// probed with the radius of a xenon atom.
func DefaultParameters() Parameters {
	return Parameters{
		PLDMin:          3.9,
		LCDMax:          15.0,
		ProbeRadius:     1.98,
		VisVoroAccuracy: "DEF",
		AccuracyHigh:    "S100",
		EvSetting:       append([]int(nil), calc.DefaultEvSetting...),
	}
}

// NewParameters reads the parameters from a dictionary with the keys pld_min, lcd_max,
// pld_based, probe_radius, visvoro_ha, visvoro_accuracy, accuracy_high and ev_setting.
// Unset keys take the default values.
func NewParameters(P porous.Parameters) (Parameters, error) {
	W := DefaultParameters()
	var err error
	if W.PLDMin, err = P.FloatOr("pld_min", W.PLDMin); err != nil {
		return W, err
	}
	if W.LCDMax, err = P.FloatOr("lcd_max", W.LCDMax); err != nil {
		return W, err
	}
	if W.PLDBased, err = P.BoolOr("pld_based", W.PLDBased); err != nil {
		return W, err
	}
	if W.ProbeRadius, err = P.FloatOr("probe_radius", W.ProbeRadius); err != nil {
		return W, err
	}
	if W.VisVoroHA, err = P.BoolOr("visvoro_ha", W.VisVoroHA); err != nil {
		return W, err
	}
	if W.VisVoroAccuracy, err = P.StringOr("visvoro_accuracy", W.VisVoroAccuracy); err != nil {
		return W, err
	}
	if W.AccuracyHigh, err = P.StringOr("accuracy_high", W.AccuracyHigh); err != nil {
		return W, err
	}
	if P.Has("ev_setting") {
		if W.EvSetting, err = P.Ints("ev_setting"); err != nil {
			return W, err
		}
	}
	return W, W.Check()
}

// Check returns an error for parameters the workchain can't run with.
func (W Parameters) Check() error {
	switch {
	case W.PLDMin < 0 || W.LCDMax < 0:
		return fmt.Errorf("negative pore size threshold")
	case !W.PLDBased && W.ProbeRadius <= 0:
		return fmt.Errorf("probe_radius must be positive when pld_based is not set")
	case W.PLDBased && W.AccuracyHigh == "":
		return fmt.Errorf("accuracy_high must be set when pld_based is set")
	case W.VisVoroHA && W.VisVoroAccuracy == "":
		return fmt.Errorf("visvoro_accuracy must be set when visvoro_ha is set")
	}
	for _, p := range W.EvSetting {
		if p <= 0 || p > 100 {
			return fmt.Errorf("ev_setting percentage %d out of (0, 100]", p)
		}
	}
	return nil
}

// ShouldRunVisVoro is true for frameworks whose largest included sphere is under
// lcdMax and whose largest free sphere is over pldMin. Both bounds are strict.
func ShouldRunVisVoro(lcd, pld, lcdMax, pldMin float64) bool {
	return lcd < lcdMax && pld > pldMin
}

// ShouldRunEv is true if there is at least one accessible Voronoi node.
func ShouldRunEv(accessibleNodes int) bool {
	return accessibleNodes > 0
}

// ProbeRadius returns the visVoro probe radius: half the largest free sphere diameter
// pld when W.PLDBased, W.ProbeRadius otherwise.
func ProbeRadius(W Parameters, pld float64) float64 {
	if W.PLDBased {
		return pld / 2
	}
	return W.ProbeRadius
}

// VisVoroParameters returns the Zeo++ options of the visVoro run.
func VisVoroParameters(W Parameters, probe float64) calc.NetworkParameters {
	N := calc.NetworkParameters{VisVoro: probe}
	if W.VisVoroHA {
		N.HA = W.VisVoroAccuracy
	}
	return N
}

// ResParameters returns the Zeo++ options of a pore diameter run. The first run also
// writes the CSSR structure. The repeated run only uses the high accuracy mode, as the
// CSSR it would write is that of a supercell.
func ResParameters(W Parameters, reperform bool) calc.NetworkParameters {
	if reperform {
		return calc.NetworkParameters{Res: true, HA: W.AccuracyHigh}
	}
	return calc.NetworkParameters{Res: true, CSSR: true}
}
