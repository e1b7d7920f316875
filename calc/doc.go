/*
 * doc.go, part of porousmaterials.
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

//Package calc prepares, runs and parses the calculations of the external programs
//driven by porousmaterials: the Zeo++ network binary, and Julia scripts using
//PorousMaterials.jl.
//
//Each program is represented by a Handle, which writes the program input into a job
//folder, declares which files must be staged and which ones retrieved, and parses the
//retrieved files into a dictionary of results. A Runner executes handles.

package calc
