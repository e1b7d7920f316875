/*
 * restart.go, part of porousmaterials.
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

	"go.uber.org/zap"
)

// DefaultMaxIterations is the number of times Restart runs a calculation before giving up.
const DefaultMaxIterations = 5

// ErrMaxIterations is returned by Restart when no run finished without errors.
var ErrMaxIterations = errors.New("maximum number of iterations reached")

// Restart runs a calculation again until it finishes with exit code 0.
type Restart struct {
	Launcher      Launcher
	MaxIterations int
	log           *zap.Logger
}

// NewRestart returns a Restart that runs calculations with L, at most DefaultMaxIterations times.
func NewRestart(L Launcher, log *zap.Logger) *Restart {
	if log == nil {
		log = zap.NewNop()
	}
	return &Restart{Launcher: L, MaxIterations: DefaultMaxIterations, log: log}
}

// Run runs H until it finishes with exit code 0, and returns that result. Errors from the
// launcher stop the loop. When the iterations are spent, the last result is returned
// together with an error that wraps ErrMaxIterations.
func (R *Restart) Run(ctx context.Context, H Handle, code Code, opts Options) (*Result, error) {
	max := R.MaxIterations
	if max <= 0 {
		max = DefaultMaxIterations
	}
	var last *Result
	for i := 1; i <= max; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		res, err := R.Launcher.Run(ctx, H, code, opts)
		if err != nil {
			return last, errDecorate(err, "Restart.Run")
		}
		res.Iteration = i
		last = res
		if res.ExitCode.OK() {
			if i > 1 {
				R.log.Info("calculation finished after restart", zap.String("label", res.Label), zap.Int("iteration", i))
			}
			return res, nil
		}
		R.log.Warn("calculation failed", zap.String("label", res.Label), zap.Int("iteration", i), zap.Stringer("exit_code", res.ExitCode))
	}
	return last, fmt.Errorf("%s after %d iterations: %w", H.Name(), max, ErrMaxIterations)
}
