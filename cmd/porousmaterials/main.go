/*
 * main.go, part of porousmaterials.
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

//porousmaterials runs Zeo++ and PorousMaterials.jl calculations on frameworks,
//and the VoronoiEnergy workchain that chains them, keeping their provenance in
//an SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/config"
	"github.com/ezpzbz/porousmaterials/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// app is the state shared by the commands.
type app struct {
	verbose    bool
	configPath string
	workdir    string
	dryRun     bool

	log *zap.Logger
	cfg *config.Config
	//set by tests
	executor calc.Executor
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "porousmaterials",
		Short: "Zeo++ and PorousMaterials.jl calculations on porous frameworks",
		Long: `porousmaterials computes the pore diameters of frameworks with Zeo++ and the
interaction energy of an adsorbate over their accessible Voronoi nodes with
PorousMaterials.jl. The VoronoiEnergy workchain does both, skipping the energy
calculation for frameworks out of the pore size window.

Calculations run in job folders under the work directory and are recorded,
with the files they produced, in the provenance database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zc := zap.NewProductionConfig()
			if a.verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			log, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			return a.loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: ./"+config.DefaultFile+" if it exists)")
	root.PersistentFlags().StringVarP(&a.workdir, "workdir", "w", "", "Work directory, overrides the configuration")
	root.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "Prepare the inputs of the calculations without running them")

	root.AddCommand(a.zeoppCmd())
	root.AddCommand(a.evCmd())
	root.AddCommand(a.workchainCmd())
	root.AddCommand(a.batchCmd())
	root.AddCommand(a.historyCmd())
	root.AddCommand(a.showCmd())
	root.AddCommand(a.plotCmd())
	root.AddCommand(a.structureCmd())
	root.AddCommand(a.nodesCmd())
	root.AddCommand(a.templatesCmd())
	root.AddCommand(a.configCmd())
	return root
}

// loadConfig reads the configuration file, if any, and applies the flags over it.
func (a *app) loadConfig() error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path == "" {
		a.cfg = config.Default()
	} else {
		C, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = C
		a.log.Debug("configuration loaded", zap.String("file", path))
	}
	if a.workdir != "" {
		a.cfg.WorkDir = a.workdir
	}
	return nil
}

// runner returns a Runner in the work directory. Unless this is a dry run, it records
// the calculations in the provenance database, which the returned function closes.
func (a *app) runner() (*calc.Runner, *store.Store, func(), error) {
	opts := []calc.RunnerOption{calc.WithLogger(a.log)}
	if a.executor != nil {
		opts = append(opts, calc.WithExecutor(a.executor))
	}
	if a.dryRun {
		return calc.NewRunner(a.cfg.WorkDir, opts...), nil, func() {}, nil
	}
	st, err := store.Open(a.cfg.DatabasePath())
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, calc.WithRecorder(st))
	closer := func() {
		if err := st.Close(); err != nil {
			a.log.Warn("failed to close the database", zap.Error(err))
		}
	}
	return calc.NewRunner(a.cfg.WorkDir, opts...), st, closer, nil
}

func (a *app) openStore() (*store.Store, error) {
	if _, err := os.Stat(a.cfg.DatabasePath()); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no provenance database at %s", a.cfg.DatabasePath())
	}
	return store.Open(a.cfg.DatabasePath())
}

func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// report prints the outcome of a calculation and returns an error if it failed.
func report(w io.Writer, res *calc.Result) error {
	out := map[string]interface{}{
		"id":        res.ID,
		"label":     res.Label,
		"process":   res.Process,
		"exit_code": res.ExitCode.Status,
		"workdir":   res.WorkDir,
	}
	if res.DryRun {
		out["dry_run"] = true
	}
	if res.ExitCode.Message != "" {
		out["exit_message"] = res.ExitCode.Message
	}
	if len(res.Outputs) > 0 {
		out["outputs"] = res.Outputs
	}
	if len(res.Files) > 0 {
		out["files"] = res.Files
	}
	if err := printYAML(w, out); err != nil {
		return err
	}
	if !res.ExitCode.OK() {
		return fmt.Errorf("calculation %s failed: %s", res.ID, res.ExitCode)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
