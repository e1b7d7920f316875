/*
 * calc.go, part of porousmaterials.
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
	"fmt"

	porous "github.com/ezpzbz/porousmaterials"
)

// Program names, used in errors and provenance records.
const (
	Zeopp           = "Zeo++"
	PorousMaterials = "PorousMaterials"
)

// Handle allows to set up calculations with different programs.
type Handle interface {

	//Sets the name for the job, used as label in the records.
	SetName(name string)

	Name() string

	//Process returns the kind of calculation, i.e. "zeopp.network".
	Process() string

	//Inputs returns the parameters of the calculation, for the records.
	Inputs() porous.Parameters

	//BuildInput writes the input files in folder and returns what
	//must be executed, staged and retrieved.
	BuildInput(ctx context.Context, folder *Folder) (*CalcInfo, error)

	//Parse reads the retrieved files. Missing outputs are reported through
	//the exit code of the returned Output, not as an error.
	Parse(ctx context.Context, retrieved *Folder) (*Output, error)
}

// CopyItem is a file to be copied into the job folder before running.
type CopyItem struct {
	Source string //absolute path or afs URL
	Target string //name in the job folder
}

// CalcInfo tells the runner how to execute a calculation.
type CalcInfo struct {
	CmdlineParams []string
	StdinName     string
	LocalCopyList []CopyItem
	RetrieveList  []string //files or folders, relative to the job folder
}

// ExitCode is the status of a finished calculation.
type ExitCode struct {
	Status  int
	Message string
}

// OK is true for a calculation that finished without problems.
func (E ExitCode) OK() bool { return E.Status == 0 }

func (E ExitCode) String() string {
	if E.OK() {
		return "0"
	}
	return fmt.Sprintf("%d %s", E.Status, E.Message)
}

var (
	ExitOK                = ExitCode{0, ""}
	ExitNoRetrievedFolder = ExitCode{100, "ERROR_NO_RETRIEVED_FOLDER"}
	ExitNoOutputFile      = ExitCode{101, "ERROR_NO_OUTPUT_FILE"}
	ExitExecutableFailed  = ExitCode{110, "ERROR_EXECUTABLE_FAILED"}
)

// Output is what a handle parses from the retrieved folder.
type Output struct {
	ExitCode   ExitCode
	Parameters porous.Parameters //the output_parameters dictionary
	Files      map[string]string //output link name -> path of the retrieved file
}

func newOutput() *Output {
	return &Output{ExitCode: ExitOK, Parameters: porous.Parameters{}, Files: make(map[string]string)}
}

// Error is the error type of this package. It fulfills porous.Error.
type Error struct {
	message  string
	program  string
	name     string
	extra    string
	deco     []string
	critical bool
}

func (err *Error) Error() string {
	ret := fmt.Sprintf("%s calculation %q: %s", err.program, err.name, err.message)
	if err.extra != "" {
		ret += ": " + err.extra
	}
	return ret
}

// Decorate adds information to the error and returns the current decoration.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical is false for errors after which the results can still be used.
func (err *Error) Critical() bool { return err.critical }

// Program returns the program that was being run.
func (err *Error) Program() string { return err.program }

// Common error messages
const (
	ErrCantInput     = "Can't build input"
	ErrMissingInput  = "Missing input"
	ErrCantStage     = "Can't stage input file"
	ErrNotRunning    = "Can't run the program"
	ErrCantRetrieve  = "Can't retrieve output"
	ErrCantParse     = "Can't parse output"
	ErrBadParameters = "Invalid parameters"
)

func errDecorate(err error, caller string) error {
	if e, ok := err.(porous.Error); ok {
		e.Decorate(caller)
	}
	return err
}
