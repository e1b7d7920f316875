/*
 * config.go, part of porousmaterials.
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

//Package config reads the YAML configuration of the porousmaterials command:
//the codes installed on the computer, where calculations run and are recorded,
//and the default parameters of the calculations and the workchain.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/jl"
	"github.com/ezpzbz/porousmaterials/workchain"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file read when none is given, if it exists.
const DefaultFile = "porousmaterials.yaml"

// Code is an executable and the resources of the calculations that use it.
type Code struct {
	Executable string            `yaml:"executable"`
	Prepend    string            `yaml:"prepend,omitempty"`
	Wallclock  time.Duration     `yaml:"wallclock,omitempty"` //i.e. 30m
	Env        map[string]string `yaml:"env,omitempty"`
	MPI        bool              `yaml:"mpi,omitempty"`
	MPIRun     string            `yaml:"mpirun,omitempty"`
}

// Config is the content of a configuration file. Values not in the file keep
// the ones of Default.
type Config struct {
	WorkDir       string          `yaml:"workdir"`
	Database      string          `yaml:"database,omitempty"` //defaults to provenance.sqlite in WorkDir
	Codes         map[string]Code `yaml:"codes"`
	Zeopp         string          `yaml:"zeopp"` //label of the Zeo++ network code
	Julia         string          `yaml:"julia"` //label of the Julia code
	AtomicRadii   string          `yaml:"atomic_radii,omitempty"` //.rad file, or "auto"
	ForceField    string          `yaml:"forcefield,omitempty"`
	Concurrency   int             `yaml:"concurrency"`
	MaxIterations int             `yaml:"max_iterations"`

	WorkChain       workchain.Parameters `yaml:"workchain"`
	PorousMaterials porous.Parameters    `yaml:"porousmaterials"`
	PMSettings      porous.Parameters    `yaml:"porousmaterials_settings,omitempty"`
}

// Default returns the configuration of the Xe/Kr screening example: Zeo++ network
// and julia on the PATH, and a single component Lennard-Jones Ev calculation
// with the UFF force field.
func Default() *Config {
	return &Config{
		WorkDir: "porous-jobs",
		Codes: map[string]Code{
			"network": {Executable: "network", Wallclock: calc.DefaultWallclock},
			"julia":   {Executable: "julia", Wallclock: 2 * time.Hour},
		},
		Zeopp:         "network",
		Julia:         "julia",
		Concurrency:   4,
		MaxIterations: calc.DefaultMaxIterations,
		WorkChain:     workchain.DefaultParameters(),
		PorousMaterials: porous.Parameters{
			"data_path":      ".",
			"ff":             "UFF.csv",
			"cutoff":         12.5,
			"mixing":         "Lorentz-Berthelot",
			"adsorbate":      "Xe",
			"input_template": "ev_lj_1comp_template",
		},
	}
}

// Load reads the configuration file path over the defaults. Unknown keys are
// errors. The result is checked.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	C, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return C, nil
}

// Parse decodes YAML data over the defaults and checks the result.
func Parse(data []byte) (*Config, error) {
	C := Default()
	//the defaults are replaced, not merged, when the file sets them
	C.Codes = nil
	C.PorousMaterials = nil
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(C); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	def := Default()
	if C.Codes == nil {
		C.Codes = def.Codes
	}
	if C.PorousMaterials == nil {
		C.PorousMaterials = def.PorousMaterials
	}
	if err := C.Check(); err != nil {
		return nil, err
	}
	return C, nil
}

// Save writes the configuration to path in YAML.
func (C *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(C)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Check returns an error for configurations calculations can't run with.
func (C *Config) Check() error {
	if C.WorkDir == "" {
		return fmt.Errorf("workdir not set")
	}
	for _, label := range []string{C.Zeopp, C.Julia} {
		if _, ok := C.Codes[label]; !ok {
			return fmt.Errorf("code %q is not configured", label)
		}
	}
	labels := make([]string, 0, len(C.Codes))
	for l := range C.Codes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		c := C.Codes[l]
		if c.Executable == "" {
			return fmt.Errorf("code %q has no executable", l)
		}
		if c.Wallclock < 0 {
			return fmt.Errorf("code %q has a negative wallclock", l)
		}
	}
	if C.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", C.Concurrency)
	}
	if C.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", C.MaxIterations)
	}
	if C.PorousMaterials.Has("input_template") {
		t, err := C.PorousMaterials.String("input_template")
		if err != nil {
			return err
		}
		if !jl.Has(t) {
			return fmt.Errorf("unknown input template %q", t)
		}
	}
	if err := C.WorkChain.Check(); err != nil {
		return fmt.Errorf("workchain: %w", err)
	}
	return nil
}

// Code returns the code labeled label and the options of its calculations.
func (C *Config) Code(label string) (calc.Code, calc.Options, error) {
	c, ok := C.Codes[label]
	if !ok {
		return calc.Code{}, calc.Options{}, fmt.Errorf("code %q is not configured", label)
	}
	code := calc.Code{Label: label, Executable: c.Executable, Prepend: c.Prepend}
	opts := calc.Options{MaxWallclock: c.Wallclock, WithMPI: c.MPI, MPIRun: c.MPIRun}
	if len(c.Env) > 0 {
		opts.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			opts.Env[k] = v
		}
	}
	return code, opts, nil
}

// DatabasePath returns the path of the provenance database.
func (C *Config) DatabasePath() string {
	if C.Database != "" {
		return C.Database
	}
	return filepath.Join(C.WorkDir, "provenance.sqlite")
}
