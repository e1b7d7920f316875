/*
 * voronoi.go, part of porousmaterials.
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
	"errors"
	"fmt"
	"strings"
	"time"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProcessName identifies VoronoiEnergy workchains in the records.
const ProcessName = "porousmaterials.voronoi_energy"

var (
	// ErrStepFailed is returned when a calculation the workchain depends on finished with errors.
	ErrStepFailed = errors.New("calculation failed")
	// ErrDryRun stops a dry run after the first calculation is prepared. Run doesn't return it.
	ErrDryRun = errors.New("dry run")
)

// Inputs of a VoronoiEnergy workchain.
type Inputs struct {
	Structure    *porous.Structure
	AtomicRadii  string //optional .rad file for Zeo++
	Zeopp        calc.Code
	ZeoppOptions calc.Options
	Julia        calc.Code
	JuliaOptions calc.Options
	Parameters   Parameters
	PMParameters porous.Parameters //parameters of the PorousMaterials calculation
	PMSettings   porous.Parameters
	ForceField   string
}

// Record is what is kept of a workchain.
type Record struct {
	ID           string
	Label        string
	Structure    string
	Results      porous.Parameters
	Files        map[string]string
	Calculations []string
	Created      time.Time
	Finished     time.Time
}

// Recorder keeps the workchain records. The store package implements it.
type Recorder interface {
	RecordWorkChain(ctx context.Context, rec *Record) error
}

// Results are the outputs of a VoronoiEnergy workchain.
type Results struct {
	ID              string
	Label           string
	Results         porous.Parameters //the aggregated "results" dictionary
	StructureCSSR   string
	AccessibleNodes string
	Calculations    []*calc.Result //in the order they were run
	Reperformed     bool
	Stopped         string //why the workchain stopped before the energy calculation, if it did
}

// Files returns the output files of the workchain by link name.
func (R *Results) Files() map[string]string {
	ret := make(map[string]string, 2)
	if R.StructureCSSR != "" {
		ret["structure_cssr"] = R.StructureCSSR
	}
	if R.AccessibleNodes != "" {
		ret["accessible_voronoi_nodes"] = R.AccessibleNodes
	}
	return ret
}

// VoronoiEnergy screens a framework with Zeo++ pore diameters and, if it passes, computes
// the Voronoi energy of an adsorbate over its accessible Voronoi nodes with PorousMaterials.jl.
type VoronoiEnergy struct {
	launcher      calc.Launcher
	restart       *calc.Restart
	recorder      Recorder
	log           *zap.Logger
	maxIterations int
}

// Option configures a VoronoiEnergy workchain.
type Option func(*VoronoiEnergy)

// WithLogger sets the logger the workchain reports to.
func WithLogger(log *zap.Logger) Option {
	return func(W *VoronoiEnergy) {
		if log != nil {
			W.log = log
		}
	}
}

// WithRecorder makes the workchain record its results in rec.
func WithRecorder(rec Recorder) Option {
	return func(W *VoronoiEnergy) { W.recorder = rec }
}

// WithMaxIterations sets how many times the energy calculation is attempted.
func WithMaxIterations(n int) Option {
	return func(W *VoronoiEnergy) { W.maxIterations = n }
}

// New returns a workchain that runs its calculations with L.
func New(L calc.Launcher, opts ...Option) *VoronoiEnergy {
	W := &VoronoiEnergy{launcher: L, log: zap.NewNop(), maxIterations: calc.DefaultMaxIterations}
	for _, o := range opts {
		o(W)
	}
	W.restart = calc.NewRestart(L, W.log)
	W.restart.MaxIterations = W.maxIterations
	return W
}

//state is the context of one run of the workchain.
type state struct {
	in        *Inputs
	log       *zap.Logger
	reperform bool
	res       *calc.Result
	resRe     *calc.Result
	visVoro   *calc.Result
	ev        *calc.Result
	out       *Results
}

func (s *state) report(msg string, fields ...zap.Field) {
	s.log.Info(msg, fields...)
}

// Run runs the workchain. A framework rejected by the screening is not an error: the
// results then hold the pore diameters only, and Results.Stopped tells why.
func (W *VoronoiEnergy) Run(ctx context.Context, in *Inputs) (*Results, error) {
	if in.Structure == nil {
		return nil, fmt.Errorf("workchain: no structure")
	}
	if err := in.Parameters.Check(); err != nil {
		return nil, fmt.Errorf("workchain: %w", err)
	}
	created := time.Now()
	id := uuid.NewString()
	s := &state{
		in:  in,
		log: W.log.With(zap.String("workchain", id), zap.String("structure", in.Structure.Label)),
		out: &Results{ID: id, Label: in.Structure.Label},
	}
	if err := W.run(ctx, s); errors.Is(err, ErrDryRun) {
		s.out.Stopped = "dry run"
		if s.res != nil {
			s.report("dry run: inputs of the first calculation prepared", zap.String("dir", s.res.WorkDir))
		}
		return s.out, nil
	} else if err != nil {
		return s.out, err
	}
	results, err := s.results()
	if err != nil {
		return s.out, err
	}
	s.out.Results = results
	s.report("workchain completed successfully")
	if W.recorder != nil {
		ids := make([]string, 0, len(s.out.Calculations))
		for _, c := range s.out.Calculations {
			ids = append(ids, c.ID)
		}
		rec := &Record{
			ID:           id,
			Label:        s.out.Label,
			Structure:    in.Structure.Path,
			Results:      results,
			Files:        s.out.Files(),
			Calculations: ids,
			Created:      created,
			Finished:     time.Now(),
		}
		if err := W.recorder.RecordWorkChain(ctx, rec); err != nil {
			return s.out, err
		}
	}
	return s.out, nil
}

func (W *VoronoiEnergy) run(ctx context.Context, s *state) error {
	s.reperform = false
	var err error
	if s.res, err = W.runZeoppRes(ctx, s); err != nil {
		return err
	}
	lcd, err := s.res.Outputs.Float(calc.LargestIncludedSphere)
	if err != nil {
		return err
	}
	pld, err := s.res.Outputs.Float(calc.LargestFreeSphere)
	if err != nil {
		return err
	}
	P := s.in.Parameters
	if !ShouldRunVisVoro(lcd, pld, P.LCDMax, P.PLDMin) {
		s.out.Stopped = fmt.Sprintf("LCD %g, PLD %g outside the limits (LCD < %g, PLD > %g)", lcd, pld, P.LCDMax, P.PLDMin)
		s.report("structure does not look promising: stop", zap.Float64("lcd", lcd), zap.Float64("pld", pld))
		return nil
	}
	s.report("structure is suitable for further investigation", zap.Float64("lcd", lcd), zap.Float64("pld", pld))
	if P.PLDBased {
		s.report("PLD-based protocol is chosen")
		s.reperform = true
		s.out.Reperformed = true
		if s.resRe, err = W.runZeoppRes(ctx, s); err != nil {
			return err
		}
		if pld, err = s.resRe.Outputs.Float(calc.LargestFreeSphere); err != nil {
			return err
		}
	} else {
		s.report("probe-based protocol is chosen")
	}
	probe := ProbeRadius(P, pld)
	if s.visVoro, err = W.runZeopp(ctx, s, VisVoroParameters(P, probe), "visVoro"); err != nil {
		return err
	}
	s.out.AccessibleNodes = s.visVoro.Files["voro_accessible"]
	n, err := s.visVoro.Outputs.Int("Number_of_accessible_Voronoi_nodes")
	if err != nil {
		return err
	}
	if !ShouldRunEv(n) {
		s.out.Stopped = "no accessible Voronoi nodes"
		s.report("no accessible Voronoi nodes: stop")
		return nil
	}
	s.report("found accessible Voronoi nodes", zap.Int("nodes", n))
	s.ev, err = W.runEv(ctx, s)
	return err
}

func (W *VoronoiEnergy) runZeoppRes(ctx context.Context, s *state) (*calc.Result, error) {
	label := "res"
	if s.reperform {
		label = "res_" + strings.ToLower(s.in.Parameters.AccuracyHigh)
	}
	res, err := W.runZeopp(ctx, s, ResParameters(s.in.Parameters, s.reperform), label)
	if err != nil {
		return res, err
	}
	if !s.reperform {
		s.out.StructureCSSR = res.Files["structure_cssr"]
	}
	return res, nil
}

func (W *VoronoiEnergy) runZeopp(ctx context.Context, s *state, N calc.NetworkParameters, step string) (*calc.Result, error) {
	H := calc.NewNetworkHandle(s.in.Structure, N)
	if s.in.AtomicRadii != "" {
		H.SetAtomicRadii(s.in.AtomicRadii)
	}
	opts := s.in.ZeoppOptions
	opts.Label = s.in.Structure.Label + "_" + step
	res, err := W.launcher.Run(ctx, H, s.in.Zeopp, opts)
	if err != nil {
		return nil, err
	}
	s.out.Calculations = append(s.out.Calculations, res)
	s.report("zeo++ calculation done", zap.String("step", step), zap.String("calc", res.ID), zap.Stringer("exit_code", res.ExitCode))
	if !res.ExitCode.OK() && !res.DryRun {
		return res, fmt.Errorf("zeo++ %s of %s exited with %s: %w", step, s.in.Structure.Label, res.ExitCode, ErrStepFailed)
	}
	if res.DryRun {
		return res, ErrDryRun
	}
	return res, nil
}

func (W *VoronoiEnergy) runEv(ctx context.Context, s *state) (*calc.Result, error) {
	fw := s.in.Structure.Name()
	H := calc.NewPMHandle(s.in.PMParameters)
	H.AddStructureFile(fw, s.out.StructureCSSR)
	H.AddNodes(fw, s.out.AccessibleNodes)
	if s.in.ForceField != "" {
		H.SetForceField(s.in.ForceField)
	}
	if s.in.PMSettings != nil {
		H.SetSettings(s.in.PMSettings)
	}
	opts := s.in.JuliaOptions
	opts.Label = s.in.Structure.Label + "_ev"
	res, err := W.restart.Run(ctx, H, s.in.Julia, opts)
	if res != nil {
		s.out.Calculations = append(s.out.Calculations, res)
	}
	if err != nil {
		if errors.Is(err, calc.ErrMaxIterations) {
			return res, fmt.Errorf("Voronoi energy of %s: %w: %w", s.in.Structure.Label, ErrStepFailed, err)
		}
		return res, err
	}
	s.report("Voronoi energy calculation done", zap.String("calc", res.ID), zap.Int("iterations", res.Iteration))
	return res, nil
}

//results aggregates the outputs of the calculations that were run.
func (s *state) results() (porous.Parameters, error) {
	zeopp := porous.Parameters{
		calc.LargestFreeSphere:     s.res.Outputs[calc.LargestFreeSphere],
		calc.LargestIncludedSphere: s.res.Outputs[calc.LargestIncludedSphere],
	}
	if s.reperform && s.resRe != nil {
		zeopp[s.in.Parameters.AccuracyHigh] = porous.Parameters{
			calc.LargestFreeSphere:     s.resRe.Outputs[calc.LargestFreeSphere],
			calc.LargestIncludedSphere: s.resRe.Outputs[calc.LargestIncludedSphere],
		}
	}
	if s.visVoro != nil && s.visVoro.ExitCode.OK() {
		zeopp["visVoro_probe_radius"] = s.visVoro.Outputs["Input_visVoro"]
	}
	R := porous.Parameters{"zeopp": zeopp}
	if s.ev == nil || !s.ev.ExitCode.OK() {
		return R, nil
	}
	pm := s.ev.Outputs.Copy()
	evSetting := s.in.Parameters.EvSetting
	if len(evSetting) == 0 {
		evSetting = calc.DefaultEvSetting
	}
	if file, ok := s.ev.Files["ev_output_file"]; ok {
		if err := mergeEvStats(pm, file, evSetting); err != nil {
			return nil, fmt.Errorf("Voronoi energy of %s: %w", s.in.Structure.Label, err)
		}
	}
	//multi-component templates: one table and one dictionary per adsorbate
	for link, file := range s.ev.Files {
		ads, ok := strings.CutPrefix(link, "ev_output_file_")
		if !ok {
			continue
		}
		sub, err := pm.Sub(ads)
		if err != nil {
			sub = porous.Parameters{}
		} else {
			sub = sub.Copy()
		}
		if err := mergeEvStats(sub, file, evSetting); err != nil {
			return nil, fmt.Errorf("Voronoi energy of %s in %s: %w", ads, s.in.Structure.Label, err)
		}
		pm[ads] = sub
	}
	R["porousmaterials"] = pm
	return R, nil
}

//mergeEvStats sets in pm the average and the percentile statistics of the Ev table
//in file for evSetting.
func mergeEvStats(pm porous.Parameters, file string, evSetting []int) error {
	stats, err := calc.ParseEvFile(file, evSetting)
	if err != nil {
		return err
	}
	pm["Ev_average"] = stats["Ev_average"]
	for _, p := range evSetting {
		delete(pm, calc.EvPercentileKey(p))
		if v, ok := stats[calc.EvPercentileKey(p)]; ok {
			pm[calc.EvPercentileKey(p)] = v
		}
		pm[calc.EvCountKey(p)] = stats[calc.EvCountKey(p)]
	}
	return nil
}
