/*
 * parameters.go, part of porousmaterials.
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
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Parameters is a flat dictionary of calculation parameters, as read from
// YAML or JSON. Values are expected to be numbers, strings, booleans, lists
// of those, or nested Parameters.
type Parameters map[string]interface{}

func missing(key string) error {
	return &ParameterError{key: key, message: "not set"}
}

func wrongType(key string, v interface{}, want string) error {
	return &ParameterError{key: key, message: fmt.Sprintf("is %T, want %s", v, want)}
}

// Has returns true if key is set.
func (P Parameters) Has(key string) bool {
	_, ok := P[key]
	return ok
}

// Keys returns the sorted keys of the dictionary.
func (P Parameters) Keys() []string {
	ret := make([]string, 0, len(P))
	for k := range P {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// Copy returns a deep copy of the dictionary. Nested dictionaries and
// slices are copied, other values are shared.
func (P Parameters) Copy() Parameters {
	if P == nil {
		return nil
	}
	ret := make(Parameters, len(P))
	for k, v := range P {
		ret[k] = copyValue(v)
	}
	return ret
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Parameters:
		return t.Copy()
	case map[string]interface{}:
		return Parameters(t).Copy()
	case []interface{}:
		c := make([]interface{}, len(t))
		for i, e := range t {
			c[i] = copyValue(e)
		}
		return c
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

// Float returns the value of key as a float64. Integer values are converted.
func (P Parameters) Float(key string) (float64, error) {
	v, ok := P[key]
	if !ok {
		return 0, missing(key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, wrongType(key, v, "a number")
	}
	return f, nil
}

// FloatOr returns the value of key, or def if key is not set.
func (P Parameters) FloatOr(key string, def float64) (float64, error) {
	if !P.Has(key) {
		return def, nil
	}
	return P.Float(key)
}

// Int returns the value of key as an int. Floats without fractional part are accepted.
func (P Parameters) Int(key string) (int, error) {
	v, ok := P[key]
	if !ok {
		return 0, missing(key)
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, wrongType(key, v, "an integer")
	}
	return int(f), nil
}

// String returns the value of key as a string.
func (P Parameters) String(key string) (string, error) {
	v, ok := P[key]
	if !ok {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(key, v, "a string")
	}
	return s, nil
}

// StringOr returns the value of key, or def if key is not set.
func (P Parameters) StringOr(key, def string) (string, error) {
	if !P.Has(key) {
		return def, nil
	}
	return P.String(key)
}

// Bool returns the value of key as a bool.
func (P Parameters) Bool(key string) (bool, error) {
	v, ok := P[key]
	if !ok {
		return false, missing(key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(key, v, "a boolean")
	}
	return b, nil
}

// BoolOr returns the value of key, or def if key is not set.
func (P Parameters) BoolOr(key string, def bool) (bool, error) {
	if !P.Has(key) {
		return def, nil
	}
	return P.Bool(key)
}

// Ints returns the value of key as a slice of ints.
func (P Parameters) Ints(key string) ([]int, error) {
	v, ok := P[key]
	if !ok {
		return nil, missing(key)
	}
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...), nil
	case []float64, []interface{}:
		var list []interface{}
		if fl, ok := t.([]float64); ok {
			for _, f := range fl {
				list = append(list, f)
			}
		} else {
			list = t.([]interface{})
		}
		ret := make([]int, 0, len(list))
		for _, e := range list {
			f, ok := toFloat(e)
			if !ok || f != math.Trunc(f) {
				return nil, wrongType(key, e, "a list of integers")
			}
			ret = append(ret, int(f))
		}
		return ret, nil
	}
	return nil, wrongType(key, v, "a list of integers")
}

// Strings returns the value of key as a slice of strings. A string holding a
// JSON list, such as `["Xe","Kr"]`, is also accepted.
func (P Parameters) Strings(key string) ([]string, error) {
	v, ok := P[key]
	if !ok {
		return nil, missing(key)
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []interface{}:
		ret := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, wrongType(key, e, "a list of strings")
			}
			ret = append(ret, s)
		}
		return ret, nil
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var ret []string
			if err := json.Unmarshal([]byte(s), &ret); err != nil {
				return nil, &ParameterError{key: key, message: err.Error()}
			}
			return ret, nil
		}
		return []string{s}, nil
	}
	return nil, wrongType(key, v, "a list of strings")
}

// Sub returns the nested dictionary stored under key.
func (P Parameters) Sub(key string) (Parameters, error) {
	v, ok := P[key]
	if !ok {
		return nil, missing(key)
	}
	switch t := v.(type) {
	case Parameters:
		return t, nil
	case map[string]interface{}:
		return Parameters(t), nil
	}
	return nil, wrongType(key, v, "a dictionary")
}

// Update sets all the keys of other in P, overwriting existing values, and returns P.
func (P Parameters) Update(other Parameters) Parameters {
	for k, v := range other {
		P[k] = v
	}
	return P
}
