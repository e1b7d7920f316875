/*
 * tools.go, part of porousmaterials.
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

package main

import (
	"fmt"
	"os"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/evplot"
	"github.com/ezpzbz/porousmaterials/jl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func (a *app) plotCmd() *cobra.Command {
	var output, title string
	var bins int
	var evSetting []int
	cmd := &cobra.Command{
		Use:   "plot EV.csv",
		Short: "Plot the distribution of the Voronoi energies in an Ev table",
		Long: `plot draws a histogram of the energies of the accessible Voronoi nodes, with a
line at each of the ev_setting fractions of the minimum energy. The format is
taken from the extension of --output (png, svg, pdf). Without --output, the
histogram is printed as text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			T, err := calc.ReadEvTable(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if len(evSetting) == 0 {
				evSetting = a.cfg.WorkChain.EvSetting
			}
			if output == "" {
				n := bins
				if n <= 0 {
					n = evplot.DefaultBins
				}
				H, err := evplot.EvenHistogram(T.Ev, n)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), H.String())
				return err
			}
			if title == "" {
				title = args[0]
			}
			O := evplot.Options{Title: title, Bins: bins, EvSetting: evSetting}
			if err := evplot.Save(T, O, output); err != nil {
				return err
			}
			a.log.Info("plot written", zap.String("file", output), zap.Int("nodes", T.Len()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "Output file")
	f.StringVar(&title, "title", "", "Title of the plot (default: the table file)")
	f.IntVar(&bins, "bins", 0, "Number of bins")
	f.IntSliceVar(&evSetting, "ev-setting", nil, "Percentages of the minimum energy to mark (default: from the configuration)")
	return cmd
}

func (a *app) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [NAME]",
		Short: "List the PorousMaterials.jl input templates, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				src, err := jl.Source(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), src)
				return err
			}
			for _, n := range jl.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), n); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	var write string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the configuration in use, or write it to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write != "" {
				if err := a.cfg.Save(write); err != nil {
					return err
				}
				a.log.Info("configuration written", zap.String("file", write))
				return nil
			}
			return printYAML(cmd.OutOrStdout(), a.cfg)
		},
	}
	cmd.Flags().StringVar(&write, "write", "", "Write the configuration to this file")
	return cmd
}

// structureView summarizes a framework: its cell, elements and, with cartesian, its sites.
func structureView(S *porous.Structure, cartesian bool) map[string]interface{} {
	M := S.CellMatrix()
	cell := make([][]float64, 3)
	for i := range cell {
		cell[i] = mat.Row(nil, i, M)
	}
	v := map[string]interface{}{
		"name":     S.Name(),
		"label":    S.Label,
		"file":     S.Path,
		"lengths":  S.Lengths[:],
		"angles":   S.Angles[:],
		"cell":     cell,
		"volume":   S.Volume(),
		"elements": S.Elements(),
		"sites":    len(S.Sites),
	}
	if cartesian {
		sites := make([]map[string]interface{}, 0, len(S.Sites))
		for _, s := range S.Sites {
			c := S.Cartesian(s)
			sites = append(sites, map[string]interface{}{"label": s.Label, "symbol": s.Symbol, "xyz": c[:]})
		}
		v["cartesian"] = sites
	}
	return v
}

func (a *app) structureCmd() *cobra.Command {
	var cartesian bool
	var nodes string
	cmd := &cobra.Command{
		Use:   "structure STRUCTURE.cif",
		Short: "Print the cell, volume and elements of a framework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			S, err := porous.ReadCIF(args[0])
			if err != nil {
				return err
			}
			v := structureView(S, cartesian)
			if nodes != "" {
				f, err := os.Open(nodes)
				if err != nil {
					return err
				}
				defer f.Close()
				N, err := porous.ReadVoronoiNodes(f)
				if err != nil {
					return fmt.Errorf("%s: %w", nodes, err)
				}
				v["accessible_voronoi_nodes"] = len(N)
			}
			return printYAML(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().BoolVar(&cartesian, "cartesian", false, "Also print the sites in cartesian coordinates")
	cmd.Flags().StringVar(&nodes, "nodes", "", "Accessible Voronoi node file of the framework, to count its nodes")
	return cmd
}

func (a *app) nodesCmd() *cobra.Command {
	var output string
	var percent int
	cmd := &cobra.Command{
		Use:   "nodes EV.csv",
		Short: "Write the Voronoi nodes within a percentage of the minimum energy",
		Long: `nodes reads an Ev table and writes, in the format of the Zeo++ accessible Voronoi
node files, the nodes whose energy is at most percent/100 times the minimum.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if percent <= 0 || percent > 100 {
				return fmt.Errorf("percent must be in (0, 100], got %d", percent)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			T, err := calc.ReadEvTable(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if T.Len() == 0 {
				return fmt.Errorf("%s: no nodes", args[0])
			}
			threshold := calc.EvThreshold(floats.Min(T.Ev), percent)
			var N []porous.VoronoiNode
			for i, e := range T.Ev {
				if e <= threshold {
					N = append(N, porous.VoronoiNode{Label: "X", Coords: [3]float64{T.X[i], T.Y[i], T.Z[i]}, Radius: T.Rv[i]})
				}
			}
			comment := fmt.Sprintf("Voronoi nodes with Ev <= %g kJ/mol", threshold)
			if output == "" {
				return porous.WriteVoronoiNodes(cmd.OutOrStdout(), N, comment)
			}
			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := porous.WriteVoronoiNodes(out, N, comment); err != nil {
				out.Close()
				return err
			}
			a.log.Info("nodes written", zap.String("file", output), zap.Int("nodes", len(N)))
			return out.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: standard output)")
	cmd.Flags().IntVarP(&percent, "percent", "p", 90, "Percentage of the minimum energy")
	return cmd
}
