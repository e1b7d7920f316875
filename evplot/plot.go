/*
 * plot.go, part of porousmaterials.
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

package evplot

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/ezpzbz/porousmaterials/calc"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultBins is the number of bins used when Options.Bins is not set.
const DefaultBins = 30

// Options control the look of an energy plot.
type Options struct {
	Title     string
	Bins      int
	EvSetting []int     //percentages of the minimum energy marked with vertical lines
	Width     vg.Length //default 6 inches
	Height    vg.Length //default 4 inches
}

var formats = map[string]bool{".png": true, ".svg": true, ".pdf": true, ".eps": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true}

// thresholdColor returns the color of the i-th of n threshold lines.
func thresholdColor(i, n int) color.Color {
	if n < 2 {
		return color.RGBA{R: 200, A: 255}
	}
	f := float64(i) / float64(n-1)
	return color.RGBA{R: uint8(200 * (1 - f)), B: uint8(200 * f), G: 60, A: 255}
}

// New returns a plot with the histogram of the energies in T and, for each
// percentage in O.EvSetting, a dashed line at that fraction of the minimum energy.
func New(T *calc.EvTable, O Options) (*plot.Plot, error) {
	if T == nil || T.Len() == 0 {
		return nil, fmt.Errorf("no energies to plot")
	}
	bins := O.Bins
	if bins <= 0 {
		bins = DefaultBins
	}
	p := plot.New()
	p.Title.Text = O.Title
	p.Title.Padding = 3 * vg.Millimeter
	p.X.Label.Text = "Ev (kJ/mol)"
	p.Y.Label.Text = "Voronoi nodes"
	p.Add(plotter.NewGrid())
	h, err := plotter.NewHist(plotter.Values(T.Ev), bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = color.RGBA{R: 110, G: 140, B: 190, A: 255}
	p.Add(h)
	var top float64
	for _, b := range h.Bins {
		top = max(top, b.Weight)
	}
	minimum := floats.Min(T.Ev)
	for i, pc := range O.EvSetting {
		x := calc.EvThreshold(minimum, pc)
		l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
		if err != nil {
			return nil, err
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		l.LineStyle.Color = thresholdColor(i, len(O.EvSetting))
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%d%% of minimum", pc), l)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// Save draws the plot of T in file. The format is taken from the extension of
// file: png, svg, pdf, eps, jpg or tiff.
func Save(T *calc.EvTable, O Options, file string) error {
	ext := strings.ToLower(filepath.Ext(file))
	if !formats[ext] {
		return fmt.Errorf("unsupported plot format %q", ext)
	}
	p, err := New(T, O)
	if err != nil {
		return err
	}
	w, h := O.Width, O.Height
	if w <= 0 {
		w = 6 * vg.Inch
	}
	if h <= 0 {
		h = 4 * vg.Inch
	}
	return p.Save(w, h, file)
}
