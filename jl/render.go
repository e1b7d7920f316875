/*
 * render.go, part of porousmaterials.
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

//Package jl renders the Julia input scripts of PorousMaterials.jl calculations
//from embedded templates.
package jl

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"

	porous "github.com/ezpzbz/porousmaterials"
)

//go:embed templates/*.jl.tmpl
var templates embed.FS

const suffix = ".jl.tmpl"

// Names returns the names of the available templates, sorted.
func Names() []string {
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return nil
	}
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(ret)
	return ret
}

// Has returns true if name is an available template.
func Has(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Source returns the text of the template name.
func Source(name string) (string, error) {
	src, err := templates.ReadFile(path.Join("templates", name+suffix))
	if err != nil {
		return "", fmt.Errorf("unknown input template %q", name)
	}
	return string(src), nil
}

// EvFilename is the name of the Ev table the multi-component template writes
// for an adsorbate.
func EvFilename(frameworkName, adsorbate string) string {
	return fmt.Sprintf("Ev_%s_%s.csv", frameworkName, adsorbate)
}

// Quote returns s as a Julia string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// Float formats v as a Julia float literal: shortest representation, always with a decimal point.
func Float(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") && !math.IsInf(v, 0) && !math.IsNaN(v) {
		s += ".0"
	}
	return s
}

// Render executes the template name with the parameters params. nodeFiles maps the labels of the
// accessible Voronoi node files to their names in the job folder. Every parameter the template
// uses must be set. The output only depends on the arguments.
func Render(name string, params porous.Parameters, nodeFiles map[string]string) (string, error) {
	src, err := templates.ReadFile(path.Join("templates", name+suffix))
	if err != nil {
		return "", fmt.Errorf("unknown input template %q", name)
	}
	funcs := template.FuncMap{
		"param": func(key string) (string, error) {
			return params.String(key)
		},
		"str": func(key string) (string, error) {
			s, err := params.String(key)
			return Quote(s), err
		},
		"num": func(key string) (string, error) {
			f, err := params.Float(key)
			return Float(f), err
		},
		"int": func(key string) (int, error) {
			return params.Int(key)
		},
		"strlist": func(key string) ([]string, error) {
			return params.Strings(key)
		},
		"strs": func(key string) (string, error) {
			l, err := params.Strings(key)
			if err != nil {
				return "", err
			}
			q := make([]string, len(l))
			for i, s := range l {
				q[i] = Quote(s)
			}
			return "[" + strings.Join(q, ", ") + "]", nil
		},
		"quote":  Quote,
		"evfile": EvFilename,
		"nodefile": func(label string) (string, error) {
			return nodeFile(nodeFiles, label)
		},
	}
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, nil); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return b.String(), nil
}

//nodeFile returns the quoted file name of the node file labeled label. If there is
//no such label but only one node file, that file is used.
func nodeFile(nodeFiles map[string]string, label string) (string, error) {
	if f, ok := nodeFiles[label]; ok {
		return Quote(f), nil
	}
	if len(nodeFiles) == 1 {
		for _, f := range nodeFiles {
			return Quote(f), nil
		}
	}
	return "", fmt.Errorf("no accessible Voronoi nodes labeled %q", label)
}
