/*
 * workchain.go, part of porousmaterials.
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
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/workchain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// inputs returns the inputs of a VoronoiEnergy workchain on the framework in the CIF file path.
func (a *app) inputs(path string, P workchain.Parameters, pm porous.Parameters) (*workchain.Inputs, error) {
	S, err := porous.ReadCIF(path)
	if err != nil {
		return nil, err
	}
	zeopp, zopts, err := a.cfg.Code(a.cfg.Zeopp)
	if err != nil {
		return nil, err
	}
	julia, jopts, err := a.cfg.Code(a.cfg.Julia)
	if err != nil {
		return nil, err
	}
	zopts.DryRun, jopts.DryRun = a.dryRun, a.dryRun
	radii, err := a.atomicRadii(S, a.cfg.AtomicRadii)
	if err != nil {
		return nil, err
	}
	return &workchain.Inputs{
		Structure:    S,
		AtomicRadii:  radii,
		Zeopp:        zeopp,
		ZeoppOptions: zopts,
		Julia:        julia,
		JuliaOptions: jopts,
		Parameters:   P,
		PMParameters: pm,
		PMSettings:   a.cfg.PMSettings,
		ForceField:   a.cfg.ForceField,
	}, nil
}

// workchainFlags are the flags that override the workchain parameters of the configuration.
type workchainFlags struct {
	paramFile string
	set       []string
	pmSet     []string
}

func (w *workchainFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&w.paramFile, "params", "", "YAML file with workchain parameters")
	f.StringArrayVar(&w.set, "set", nil, "Set a workchain parameter, key=value (repeatable)")
	f.StringArrayVar(&w.pmSet, "pm-set", nil, "Set a PorousMaterials parameter, key=value (repeatable)")
}

// parameters merges the configuration and the flags.
func (w *workchainFlags) parameters(a *app) (workchain.Parameters, porous.Parameters, error) {
	P := a.cfg.WorkChain
	if w.paramFile != "" || len(w.set) > 0 {
		D := porous.Parameters{}
		if w.paramFile != "" {
			F, err := readParameters(w.paramFile)
			if err != nil {
				return P, nil, err
			}
			D.Update(F)
		}
		S, err := parseSet(w.set)
		if err != nil {
			return P, nil, err
		}
		D.Update(S)
		if P, err = overlayParameters(a.cfg.WorkChain, D); err != nil {
			return P, nil, err
		}
	}
	pm := a.cfg.PorousMaterials.Copy()
	if pm == nil {
		pm = porous.Parameters{}
	}
	S, err := parseSet(w.pmSet)
	if err != nil {
		return P, nil, err
	}
	pm.Update(S)
	return P, pm, nil
}

// overlayParameters sets the keys in D over base.
func overlayParameters(base workchain.Parameters, D porous.Parameters) (workchain.Parameters, error) {
	B := porous.Parameters{
		"pld_min":          base.PLDMin,
		"lcd_max":          base.LCDMax,
		"pld_based":        base.PLDBased,
		"probe_radius":     base.ProbeRadius,
		"visvoro_ha":       base.VisVoroHA,
		"visvoro_accuracy": base.VisVoroAccuracy,
		"accuracy_high":    base.AccuracyHigh,
		"ev_setting":       append([]int(nil), base.EvSetting...),
	}
	for _, k := range D.Keys() {
		if !B.Has(k) {
			return base, fmt.Errorf("unknown workchain parameter %s", k)
		}
	}
	return workchain.NewParameters(B.Update(D))
}

// runWorkchain runs a VoronoiEnergy workchain and prints its results.
func (a *app) runWorkchain(ctx context.Context, w io.Writer, W *workchain.VoronoiEnergy, in *workchain.Inputs) (*workchain.Results, error) {
	res, err := W.Run(ctx, in)
	if res == nil {
		return nil, err
	}
	out := map[string]interface{}{
		"id":    res.ID,
		"label": res.Label,
	}
	if res.Stopped != "" {
		out["stopped"] = res.Stopped
	}
	if len(res.Results) > 0 {
		out["results"] = res.Results
	}
	if f := res.Files(); len(f) > 0 {
		out["files"] = f
	}
	calcs := make([]string, 0, len(res.Calculations))
	for _, c := range res.Calculations {
		calcs = append(calcs, c.Label+" "+c.ID)
	}
	out["calculations"] = calcs
	if perr := printYAML(w, out); err == nil {
		err = perr
	}
	return res, err
}

func (a *app) newWorkchain() (*workchain.VoronoiEnergy, func(), error) {
	R, st, done, err := a.runner()
	if err != nil {
		return nil, nil, err
	}
	opts := []workchain.Option{workchain.WithLogger(a.log), workchain.WithMaxIterations(a.cfg.MaxIterations)}
	if st != nil {
		opts = append(opts, workchain.WithRecorder(st))
	}
	return workchain.New(R, opts...), done, nil
}

func (a *app) workchainCmd() *cobra.Command {
	var wf workchainFlags
	cmd := &cobra.Command{
		Use:   "workchain STRUCTURE.cif",
		Short: "Run the VoronoiEnergy workchain on a framework",
		Long: `workchain computes the pore diameters of the framework with Zeo++. If the largest
included sphere is under lcd_max and the largest free sphere over pld_min, it
computes the accessible Voronoi nodes for the probe and, if there are any, the
Voronoi energy of the adsorbate over them with PorousMaterials.jl.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			P, pm, err := wf.parameters(a)
			if err != nil {
				return err
			}
			in, err := a.inputs(args[0], P, pm)
			if err != nil {
				return err
			}
			W, done, err := a.newWorkchain()
			if err != nil {
				return err
			}
			defer done()
			_, err = a.runWorkchain(cmd.Context(), cmd.OutOrStdout(), W, in)
			return err
		},
	}
	wf.register(cmd)
	return cmd
}

// batchResult is the outcome of the workchain on one framework.
type batchResult struct {
	file   string
	res    *workchain.Results
	err    error
	ev     float64
	hasEv  bool
	status string
}

func summarize(file string, res *workchain.Results, err error) batchResult {
	b := batchResult{file: file, res: res, err: err}
	switch {
	case err != nil:
		b.status = "failed: " + err.Error()
	case res.Stopped != "":
		b.status = "stopped: " + res.Stopped
	default:
		b.status = "completed"
	}
	if res != nil {
		if pm, perr := res.Results.Sub("porousmaterials"); perr == nil {
			if v, ferr := pm.Float("Ev_minimum"); ferr == nil {
				b.ev, b.hasEv = v, true
			}
		}
	}
	return b
}

func printBatch(w io.Writer, results []batchResult) error {
	t := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(t, "STRUCTURE\tWORKCHAIN\tEV_MINIMUM\tSTATUS")
	for _, b := range results {
		id, ev := "-", "-"
		if b.res != nil {
			id = b.res.ID
		}
		if b.hasEv {
			ev = fmt.Sprintf("%.3f", b.ev)
		}
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\n", b.file, id, ev, b.status)
	}
	return t.Flush()
}

func (a *app) batchCmd() *cobra.Command {
	var wf workchainFlags
	var jobs int
	var failFast bool
	cmd := &cobra.Command{
		Use:   "batch STRUCTURE.cif...",
		Short: "Run the VoronoiEnergy workchain on several frameworks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			P, pm, err := wf.parameters(a)
			if err != nil {
				return err
			}
			if jobs <= 0 {
				jobs = a.cfg.Concurrency
			}
			W, done, err := a.newWorkchain()
			if err != nil {
				return err
			}
			defer done()
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			var mu sync.Mutex
			var results []batchResult
			for _, file := range args {
				file := file
				g.Go(func() error {
					in, err := a.inputs(file, P, pm)
					var res *workchain.Results
					if err == nil {
						res, err = W.Run(ctx, in)
					}
					if err != nil {
						a.log.Error("workchain failed", zap.String("structure", file), zap.Error(err))
					}
					mu.Lock()
					results = append(results, summarize(file, res, err))
					mu.Unlock()
					if failFast {
						return err
					}
					return nil
				})
			}
			gerr := g.Wait()
			order := make(map[string]int, len(args))
			for i, f := range args {
				order[f] = i
			}
			sort.SliceStable(results, func(i, j int) bool { return order[results[i].file] < order[results[j].file] })
			if err := printBatch(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if gerr != nil {
				return gerr
			}
			var failed int
			for _, b := range results {
				if b.err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d workchains failed", failed, len(args))
			}
			return nil
		},
	}
	wf.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Workchains run at the same time (default: concurrency in the configuration)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Cancel the remaining workchains after the first failure")
	return cmd
}
