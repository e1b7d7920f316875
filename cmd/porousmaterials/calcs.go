/*
 * calcs.go, part of porousmaterials.
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
	"path/filepath"
	"strings"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func (a *app) zeoppCmd() *cobra.Command {
	var N calc.NetworkParameters
	var radii, label string
	cmd := &cobra.Command{
		Use:   "zeopp STRUCTURE.cif",
		Short: "Run Zeo++ network on a framework",
		Example: `  porousmaterials zeopp --res --cssr HKUST1.cif
  porousmaterials zeopp --ha DEF --visvoro 1.98 --radii UFF.rad HKUST1.cif`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := calc.NewNetworkParameters(N.Parameters()); err != nil {
				return err
			}
			S, err := porous.ReadCIF(args[0])
			if err != nil {
				return err
			}
			H := calc.NewNetworkHandle(S, N)
			if label != "" {
				H.SetName(label)
			}
			if radii == "" {
				radii = a.cfg.AtomicRadii
			}
			if radii, err = a.atomicRadii(S, radii); err != nil {
				return err
			}
			H.SetAtomicRadii(radii)
			code, opts, err := a.cfg.Code(a.cfg.Zeopp)
			if err != nil {
				return err
			}
			opts.DryRun = a.dryRun
			opts.Label = H.Name()
			R, _, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()
			res, err := R.Run(cmd.Context(), H, code, opts)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&N.Res, "res", false, "Largest included and free sphere diameters")
	f.BoolVar(&N.CSSR, "cssr", false, "Write the structure in CSSR format")
	f.Float64Var(&N.Chan, "chan", 0, "Identify the channels accessible to a probe of this radius")
	f.Float64Var(&N.VisVoro, "visvoro", 0, "Voronoi network accessible to a probe of this radius")
	f.StringVar(&N.HA, "ha", "", "High accuracy mode, i.e. DEF or S100")
	f.StringVar(&radii, "radii", "", "Atomic radii file (.rad), or auto to write one from the van der Waals radii")
	f.StringVar(&label, "label", "", "Label of the calculation (default: name of the structure)")
	return cmd
}

// autoRadii is the radii setting that writes a .rad file for each structure.
const autoRadii = "auto"

// atomicRadii returns the .rad file Zeo++ must use for S. With the auto setting a
// file with the van der Waals radii of the elements of S is written under the work directory.
func (a *app) atomicRadii(S *porous.Structure, radii string) (string, error) {
	if radii != autoRadii {
		return radii, nil
	}
	dir := filepath.Join(a.cfg.WorkDir, "radii")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(dir, S.Name()+".rad"))
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := porous.WriteRadFile(f, S.Elements(), nil); err != nil {
		f.Close()
		return "", fmt.Errorf("%s: %w", S.Filename, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	a.log.Debug("atomic radii written", zap.String("file", path), zap.Strings("elements", S.Elements()))
	return path, nil
}

// readParameters reads a YAML dictionary of parameters.
func readParameters(path string) (porous.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var P porous.Parameters
	if err := yaml.Unmarshal(data, &P); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return P, nil
}

// parseSet turns key=value strings into parameters. Values are read as YAML
// scalars or lists, so numbers and booleans keep their types.
func parseSet(assignments []string) (porous.Parameters, error) {
	P := porous.Parameters{}
	for _, s := range assignments {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed parameter %q, want key=value", s)
		}
		var val interface{}
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		P[k] = val
	}
	return P, nil
}

func (a *app) evCmd() *cobra.Command {
	var paramFile, framework, label, forcefield string
	var nodes, set []string
	cmd := &cobra.Command{
		Use:   "ev STRUCTURE",
		Short: "Compute the Voronoi energy of an adsorbate with PorousMaterials.jl",
		Long: `ev renders the PorousMaterials.jl input of the configured template for the framework
STRUCTURE (CIF or CSSR) and its accessible Voronoi nodes, runs it, retrying failed
runs, and parses the energy table it writes.

Parameters are taken from the configuration, then from --params, then from --set.`,
		Example: `  porousmaterials ev --nodes out.visVoro.voro_accessible --set adsorbate=Xe HKUST1.cssr`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			P := a.cfg.PorousMaterials.Copy()
			if P == nil {
				P = porous.Parameters{}
			}
			if paramFile != "" {
				F, err := readParameters(paramFile)
				if err != nil {
					return err
				}
				P.Update(F)
			}
			S, err := parseSet(set)
			if err != nil {
				return err
			}
			P.Update(S)
			if framework == "" {
				framework = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			H := calc.NewPMHandle(P)
			H.AddStructureFile(framework, abs)
			for _, n := range nodes {
				l, file, ok := strings.Cut(n, "=")
				if !ok {
					l, file = framework, n
				}
				if file, err = filepath.Abs(file); err != nil {
					return err
				}
				H.AddNodes(l, file)
			}
			if forcefield == "" {
				forcefield = a.cfg.ForceField
			}
			if forcefield != "" {
				H.SetForceField(forcefield)
			}
			H.SetSettings(a.cfg.PMSettings)
			if label != "" {
				H.SetName(label)
			}
			code, opts, err := a.cfg.Code(a.cfg.Julia)
			if err != nil {
				return err
			}
			opts.DryRun = a.dryRun
			opts.Label = H.Name()
			R, _, done, err := a.runner()
			if err != nil {
				return err
			}
			defer done()
			restart := calc.NewRestart(R, a.log)
			restart.MaxIterations = a.cfg.MaxIterations
			res, err := restart.Run(cmd.Context(), H, code, opts)
			if res != nil {
				if rerr := report(cmd.OutOrStdout(), res); err == nil {
					err = rerr
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&paramFile, "params", "", "YAML file with PorousMaterials parameters")
	f.StringArrayVar(&set, "set", nil, "Set a parameter, key=value (repeatable)")
	f.StringVar(&framework, "framework", "", "Framework name (default: file name without extension)")
	f.StringArrayVar(&nodes, "nodes", nil, "Accessible Voronoi node file, [label=]file (repeatable)")
	f.StringVar(&forcefield, "forcefield", "", "Force field file to stage with the calculation")
	f.StringVar(&label, "label", "", "Label of the calculation (default: framework name)")
	return cmd
}
