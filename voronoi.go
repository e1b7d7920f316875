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

package porous

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VoronoiNode is a node of the Voronoi network of a framework, as written by
// the Zeo++ visVoro option. Radius is 0 if the file does not carry it.
type VoronoiNode struct {
	Label  string
	Coords [3]float64
	Radius float64
}

// CountVoronoiNodes reads only the first line of a Zeo++ Voronoi node file,
// which holds the number of nodes.
func CountVoronoiNodes(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &FileError{message: err.Error(), filename: path, format: "Voronoi nodes", deco: []string{"os.Open", "CountVoronoiNodes"}, critical: true}
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, &FileError{message: err.Error(), filename: path, format: "Voronoi nodes", deco: []string{"ReadString", "CountVoronoiNodes"}, critical: true}
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, &FileError{message: "ill formatted node count: " + err.Error(), filename: path, format: "Voronoi nodes", deco: []string{"CountVoronoiNodes"}, critical: true}
	}
	return n, nil
}

// ReadVoronoiNodes reads a Zeo++ Voronoi node file: a count, a comment line, and one
// "label x y z [radius]" line per node. The declared count is checked against the nodes read.
func ReadVoronoiNodes(r io.Reader) ([]VoronoiNode, error) {
	in := bufio.NewReader(r)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
		return nil, &FileError{message: "empty file", format: "Voronoi nodes", deco: []string{"ReadVoronoiNodes"}, critical: true}
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, &FileError{message: "ill formatted node count", format: "Voronoi nodes", deco: []string{"ReadVoronoiNodes"}, critical: true}
	}
	nodes := make([]VoronoiNode, 0, n)
	if n == 0 {
		return nodes, nil
	}
	_, _ = in.ReadString('\n') //comment line
	for i := 0; i < n; i++ {
		line, err = in.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return nil, &FileError{message: fmt.Sprintf("%d nodes declared, %d found", n, i), format: "Voronoi nodes", deco: []string{"ReadVoronoiNodes"}, critical: true}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, &FileError{message: fmt.Sprintf("node %d ill formed", i), format: "Voronoi nodes", deco: []string{"ReadVoronoiNodes"}, critical: true}
		}
		node := VoronoiNode{Label: fields[0]}
		for j := 0; j < 3; j++ {
			node.Coords[j], err = strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, &FileError{message: fmt.Sprintf("node %d: %s", i, err.Error()), format: "Voronoi nodes", deco: []string{"strconv.ParseFloat", "ReadVoronoiNodes"}, critical: true}
			}
		}
		if len(fields) > 4 {
			node.Radius, err = strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, &FileError{message: fmt.Sprintf("node %d: %s", i, err.Error()), format: "Voronoi nodes", deco: []string{"strconv.ParseFloat", "ReadVoronoiNodes"}, critical: true}
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// WriteVoronoiNodes writes nodes in the format ReadVoronoiNodes reads.
func WriteVoronoiNodes(w io.Writer, nodes []VoronoiNode, comment string) error {
	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "%d\n%s\n", len(nodes), comment)
	for _, v := range nodes {
		fmt.Fprintf(out, "%s %.5f %.5f %.5f %.5f\n", v.Label, v.Coords[0], v.Coords[1], v.Coords[2], v.Radius)
	}
	return out.Flush()
}
