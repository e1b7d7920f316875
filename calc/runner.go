/*
 * runner.go, part of porousmaterials.
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

package calc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	"go.uber.org/zap"
)

// Files the runner writes in every job folder.
const (
	StdoutFile   = "_scheduler-stdout.txt"
	StderrFile   = "_scheduler-stderr.txt"
	RetrievedDir = "retrieved"
)

// DefaultWallclock is the time limit of a calculation when Options don't set one.
const DefaultWallclock = 30 * time.Minute

// Code is an executable installed on the computer.
type Code struct {
	Label      string
	Executable string
	Prepend    string //shell text placed before the executable, i.e. "module load zeo++;" or "julia --project=."
}

// Options are the resources and metadata of one calculation.
type Options struct {
	MaxWallclock time.Duration
	Env          map[string]string
	WithMPI      bool
	MPIRun       string //defaults to "mpirun -np 1"
	DryRun       bool   //prepare and stage the inputs only
	Label        string
	Description  string
}

// Record is what is kept of a finished calculation.
type Record struct {
	ID          string
	Label       string
	Description string
	Process     string
	Code        string
	Inputs      porous.Parameters
	Outputs     porous.Parameters
	Files       map[string]string
	ExitCode    ExitCode
	WorkDir     string
	Created     time.Time
	Finished    time.Time
}

// Recorder keeps the provenance of the calculations. The store package implements it.
type Recorder interface {
	RecordCalculation(ctx context.Context, rec *Record) error
	RecordFile(ctx context.Context, calcID, name string, data []byte) error
}

// Result is the outcome of running a calculation.
type Result struct {
	ID        string
	Label     string
	Process   string
	ExitCode  ExitCode
	Outputs   porous.Parameters
	Files     map[string]string //output link name -> retrieved file
	WorkDir   string
	Retrieved *Folder
	DryRun    bool
	Iteration int //set by Restart
}

// Launcher runs calculations. Runner is the Launcher of this package.
type Launcher interface {
	Run(ctx context.Context, H Handle, code Code, opts Options) (*Result, error)
}

// Executor runs a shell command in a directory and returns its exit status. An
// error with a zero status means the command could not be run at all.
type Executor interface {
	Execute(ctx context.Context, dir, command string, env map[string]string, timeout time.Duration) (int, error)
}

// ShellExecutor runs commands in a local shell through gosh.
type ShellExecutor struct{}

// Execute runs command in dir. env is added to the environment of the process.
// Timeouts give a status of -1.
func (ShellExecutor) Execute(ctx context.Context, dir, command string, env map[string]string, timeout time.Duration) (int, error) {
	var options []runner.Option
	if len(env) > 0 {
		options = append(options, runner.WithEnvironment(environ(env)))
	}
	service, err := gosh.New(ctx, local.New(options...))
	if err != nil {
		return 0, fmt.Errorf("failed to start shell: %w", err)
	}
	defer service.Close()
	started := time.Now()
	_, status, err := service.Run(ctx, "cd "+ShellQuote(dir)+" && "+command, runner.WithTimeout(int(timeout.Milliseconds())))
	if elapsed := time.Since(started); elapsed > timeout && err == nil {
		err = fmt.Errorf("command timed out after %s", elapsed)
	}
	if err != nil && status == 0 {
		status = -1
	}
	return status, err
}

//environ returns the environment of the process with extra set over it. gosh
//replaces the whole environment of the shell when one is given.
func environ(extra map[string]string) map[string]string {
	env := make(map[string]string, len(extra)+32)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// ShellQuote quotes s for a POSIX shell, if needed.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Runner prepares, executes, retrieves and parses calculations in job folders below a root directory.
type Runner struct {
	root     *Folder
	fs       afs.Service
	log      *zap.Logger
	recorder Recorder
	exec     Executor
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger of the runner.
func WithLogger(log *zap.Logger) RunnerOption {
	return func(R *Runner) {
		if log != nil {
			R.log = log
		}
	}
}

// WithRecorder makes the runner keep every finished calculation in rec.
func WithRecorder(rec Recorder) RunnerOption {
	return func(R *Runner) { R.recorder = rec }
}

// WithFS sets the afs service used for the job folders.
func WithFS(fs afs.Service) RunnerOption {
	return func(R *Runner) { R.fs = fs }
}

// WithExecutor replaces the local shell.
func WithExecutor(e Executor) RunnerOption {
	return func(R *Runner) { R.exec = e }
}

// NewRunner returns a runner that creates its job folders below root.
func NewRunner(root string, opts ...RunnerOption) *Runner {
	R := &Runner{log: zap.NewNop(), exec: ShellExecutor{}}
	for _, o := range opts {
		o(R)
	}
	if R.fs == nil {
		R.fs = afs.New()
	}
	R.root = NewFolder(root, R.fs)
	return R
}

// Root returns the folder where the jobs are created.
func (R *Runner) Root() *Folder { return R.root }

// JobFolder returns the folder of the calculation with the given id.
func (R *Runner) JobFolder(id string) *Folder {
	return R.root.Sub(filepath.Join(id[:2], id))
}

// CommandLine returns the shell command that runs the calculation described by info.
func CommandLine(code Code, opts Options, info *CalcInfo) string {
	parts := make([]string, 0, len(info.CmdlineParams)+8)
	if code.Prepend != "" {
		parts = append(parts, code.Prepend)
	}
	if opts.WithMPI {
		mpi := opts.MPIRun
		if mpi == "" {
			mpi = "mpirun -np 1"
		}
		parts = append(parts, mpi)
	}
	parts = append(parts, ShellQuote(code.Executable))
	for _, p := range info.CmdlineParams {
		parts = append(parts, ShellQuote(p))
	}
	if info.StdinName != "" {
		parts = append(parts, "<", ShellQuote(info.StdinName))
	}
	parts = append(parts, ">", StdoutFile, "2>", StderrFile)
	return strings.Join(parts, " ")
}

// Run runs the calculation H with code. Missing outputs are reported in the exit code
// of the result. Errors are returned when the calculation could not be prepared, run,
// or its outputs were there but could not be parsed.
func (R *Runner) Run(ctx context.Context, H Handle, code Code, opts Options) (*Result, error) {
	id := uuid.NewString()
	label := opts.Label
	if label == "" {
		label = H.Name()
	}
	log := R.log.With(zap.String("calc", id), zap.String("process", H.Process()), zap.String("label", label))
	created := time.Now()
	job := R.JobFolder(id)
	if err := job.Create(ctx); err != nil {
		return nil, &Error{ErrCantInput, H.Process(), label, err.Error(), []string{"Folder.Create", "Run"}, true}
	}
	info, err := H.BuildInput(ctx, job)
	if err != nil {
		return nil, errDecorate(err, "Run")
	}
	for _, c := range info.LocalCopyList {
		if err := job.CopyIn(ctx, c.Source, c.Target); err != nil {
			return nil, &Error{ErrCantStage, H.Process(), label, err.Error(), []string{"Folder.CopyIn", "Run"}, true}
		}
	}
	res := &Result{ID: id, Label: label, Process: H.Process(), ExitCode: ExitOK, WorkDir: job.Path(), Files: map[string]string{}}
	command := CommandLine(code, opts, info)
	if opts.DryRun {
		log.Info("dry run, inputs prepared", zap.String("dir", job.Path()), zap.String("command", command))
		res.DryRun = true
		return res, nil
	}
	timeout := opts.MaxWallclock
	if timeout <= 0 {
		timeout = DefaultWallclock
	}
	log.Info("running", zap.String("dir", job.Path()), zap.String("command", command))
	status, err := R.exec.Execute(ctx, job.Path(), command, opts.Env, timeout)
	if err != nil && status == 0 {
		return nil, &Error{ErrNotRunning, H.Process(), label, err.Error(), []string{"Executor.Execute", "Run"}, true}
	}
	retrieved := job.Sub(RetrievedDir)
	if err := R.retrieve(ctx, job, retrieved, info.RetrieveList); err != nil {
		return nil, &Error{ErrCantRetrieve, H.Process(), label, err.Error(), []string{"retrieve", "Run"}, true}
	}
	res.Retrieved = retrieved
	if status != 0 {
		log.Warn("executable failed", zap.Int("status", status), zap.Error(err))
		res.ExitCode = ExitExecutableFailed
	} else {
		out, err := H.Parse(ctx, retrieved)
		if err != nil {
			return nil, errDecorate(err, "Run")
		}
		res.ExitCode = out.ExitCode
		res.Outputs = out.Parameters
		res.Files = out.Files
	}
	if res.ExitCode.OK() {
		log.Info("finished")
	} else {
		log.Warn("finished with errors", zap.Stringer("exit_code", res.ExitCode))
	}
	if R.recorder != nil {
		rec := &Record{
			ID:          id,
			Label:       label,
			Description: opts.Description,
			Process:     H.Process(),
			Code:        code.Label,
			Inputs:      H.Inputs(),
			Outputs:     res.Outputs,
			Files:       res.Files,
			ExitCode:    res.ExitCode,
			WorkDir:     job.Path(),
			Created:     created,
			Finished:    time.Now(),
		}
		if err := R.record(ctx, rec, job, retrieved, info); err != nil {
			log.Error("can't record calculation", zap.Error(err))
			return res, err
		}
	}
	return res, nil
}

//retrieve copies the items of list that exist in job to retrieved, together
//with the scheduler output files.
func (R *Runner) retrieve(ctx context.Context, job, retrieved *Folder, list []string) error {
	if err := retrieved.Create(ctx); err != nil {
		return err
	}
	for _, item := range append(append([]string(nil), list...), StdoutFile, StderrFile) {
		if !job.Exists(ctx, item) {
			continue
		}
		if err := retrieved.CopyIn(ctx, job.AbsPath(item), item); err != nil {
			return err
		}
	}
	return nil
}

func (R *Runner) record(ctx context.Context, rec *Record, job, retrieved *Folder, info *CalcInfo) error {
	if err := R.recorder.RecordCalculation(ctx, rec); err != nil {
		return err
	}
	names := []string{}
	if info.StdinName != "" {
		names = append(names, info.StdinName)
	}
	var errs []error
	for _, n := range names {
		data, err := job.Read(ctx, n)
		if err == nil {
			err = R.recorder.RecordFile(ctx, rec.ID, n, data)
		}
		errs = append(errs, err)
	}
	files, err := retrieved.Files(ctx)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, f := range files {
		data, err := retrieved.Read(ctx, f)
		if err == nil {
			err = R.recorder.RecordFile(ctx, rec.ID, path2key(f), data)
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func path2key(rel string) string {
	return RetrievedDir + "/" + filepath.ToSlash(rel)
}
