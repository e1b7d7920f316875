/*
 * interfaces.go, part of porousmaterials.
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

package porous

import "fmt"

//Errors

// Error is the interface for errors that all packages in this library implement. The Decorate method allows to add and retrieve info from the
// error, without changing it's type or wrapping it around something else.
type Error interface {
	Error() string
	//Decorate adds the name of a function in the calling stack to the error and returns the
	//current decoration. An empty string just returns the current value.
	Decorate(string) []string
}

// FileError is the error returned by the readers and writers of this package.
type FileError struct {
	message  string
	filename string //the file that has problems, or empty string if none.
	format   string
	deco     []string
	critical bool
}

func (err *FileError) Error() string {
	return fmt.Sprintf("%s file %s error: %s", err.format, err.filename, err.message)
}

// Decorate adds new information to the error
func (err *FileError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err *FileError) FileName() string { return err.filename }

func (err *FileError) Format() string { return err.format }

func (err *FileError) Critical() bool { return err.critical }

// ParameterError is returned by the Parameters accessors.
type ParameterError struct {
	key     string
	message string
	deco    []string
}

func (err *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %s", err.key, err.message)
}

// Decorate adds new information to the error
func (err *ParameterError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

// Key returns the offending parameter name.
func (err *ParameterError) Key() string { return err.key }

//errDecorate adds caller to err if err implements Error, and returns err.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		e.Decorate(caller)
	}
	return err
}
