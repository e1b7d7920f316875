/*
 * store.go, part of porousmaterials.
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

//Package store keeps the provenance of calculations and workchains in an SQLite
//database: inputs, outputs, exit status and the content of the files they produced.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	porous "github.com/ezpzbz/porousmaterials"
	"github.com/ezpzbz/porousmaterials/calc"
	"github.com/ezpzbz/porousmaterials/workchain"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not in the database.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS calculations (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	description TEXT,
	process TEXT NOT NULL,
	code TEXT,
	status TEXT NOT NULL,
	exit_status INTEGER NOT NULL,
	exit_message TEXT,
	inputs TEXT,
	outputs TEXT,
	files TEXT,
	work_dir TEXT,
	created_at TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_at);
CREATE INDEX IF NOT EXISTS idx_calculations_label ON calculations(label);

CREATE TABLE IF NOT EXISTS calculation_files (
	calc_id TEXT NOT NULL,
	name TEXT NOT NULL,
	size INTEGER NOT NULL,
	content BLOB,
	PRIMARY KEY (calc_id, name)
);

CREATE TABLE IF NOT EXISTS workchains (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL,
	structure TEXT,
	results TEXT,
	files TEXT,
	calculations TEXT,
	created_at TEXT NOT NULL,
	finished_at TEXT
);
`

// Store is an SQLite provenance database. It implements calc.Recorder and
// workchain.Recorder, and is safe for concurrent use.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open opens, or creates, the database in path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	//one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, enc: enc, dec: dec}, nil
}

// Path returns the path of the database file.
func (S *Store) Path() string { return S.path }

// Close closes the database.
func (S *Store) Close() error {
	S.dec.Close()
	S.enc.Close()
	return S.db.Close()
}

// timeLayout is fixed width, so the text columns sort in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}
		}
	}
	return t
}

func toJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func parametersFromJSON(s string) (porous.Parameters, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var P porous.Parameters
	if err := json.Unmarshal([]byte(s), &P); err != nil {
		return nil, err
	}
	return P, nil
}

func filesFromJSON(s string) (map[string]string, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var F map[string]string
	err := json.Unmarshal([]byte(s), &F)
	return F, err
}

// Status returns the state name of a calculation with exit code E.
func Status(E calc.ExitCode) string {
	if E.OK() {
		return "finished"
	}
	return "failed"
}

// RecordCalculation stores a finished calculation, replacing any previous record with the same ID.
func (S *Store) RecordCalculation(ctx context.Context, rec *calc.Record) error {
	inputs, err := toJSON(rec.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs of %s: %w", rec.ID, err)
	}
	outputs, err := toJSON(rec.Outputs)
	if err != nil {
		return fmt.Errorf("failed to encode outputs of %s: %w", rec.ID, err)
	}
	files, err := toJSON(rec.Files)
	if err != nil {
		return fmt.Errorf("failed to encode files of %s: %w", rec.ID, err)
	}
	S.mu.Lock()
	defer S.mu.Unlock()
	_, err = S.db.ExecContext(ctx, `INSERT OR REPLACE INTO calculations
		(id, label, description, process, code, status, exit_status, exit_message, inputs, outputs, files, work_dir, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, rec.Description, rec.Process, rec.Code, Status(rec.ExitCode), rec.ExitCode.Status, rec.ExitCode.Message,
		inputs, outputs, files, rec.WorkDir, formatTime(rec.Created), formatTime(rec.Finished))
	if err != nil {
		return fmt.Errorf("failed to record calculation %s: %w", rec.ID, err)
	}
	return nil
}

// RecordFile stores the content of a file of a calculation, compressed.
func (S *Store) RecordFile(ctx context.Context, calcID, name string, data []byte) error {
	S.mu.Lock()
	defer S.mu.Unlock()
	compressed := S.enc.EncodeAll(data, nil)
	_, err := S.db.ExecContext(ctx, `INSERT OR REPLACE INTO calculation_files (calc_id, name, size, content) VALUES (?, ?, ?, ?)`,
		calcID, name, len(data), compressed)
	if err != nil {
		return fmt.Errorf("failed to record file %s of %s: %w", name, calcID, err)
	}
	return nil
}

// RecordWorkChain stores the results of a workchain.
func (S *Store) RecordWorkChain(ctx context.Context, rec *workchain.Record) error {
	results, err := toJSON(rec.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results of %s: %w", rec.ID, err)
	}
	files, err := toJSON(rec.Files)
	if err != nil {
		return err
	}
	calcs, err := toJSON(rec.Calculations)
	if err != nil {
		return err
	}
	S.mu.Lock()
	defer S.mu.Unlock()
	_, err = S.db.ExecContext(ctx, `INSERT OR REPLACE INTO workchains
		(id, label, structure, results, files, calculations, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Label, rec.Structure, results, files, calcs, formatTime(rec.Created), formatTime(rec.Finished))
	if err != nil {
		return fmt.Errorf("failed to record workchain %s: %w", rec.ID, err)
	}
	return nil
}

const calculationColumns = `id, label, description, process, code, exit_status, exit_message, inputs, outputs, files, work_dir, created_at, finished_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCalculation(row scanner) (*calc.Record, error) {
	var rec calc.Record
	var description, code, message, inputs, outputs, files, workDir, created, finished sql.NullString
	err := row.Scan(&rec.ID, &rec.Label, &description, &rec.Process, &code, &rec.ExitCode.Status, &message,
		&inputs, &outputs, &files, &workDir, &created, &finished)
	if err != nil {
		return nil, err
	}
	rec.Description = description.String
	rec.Code = code.String
	rec.ExitCode.Message = message.String
	rec.WorkDir = workDir.String
	rec.Created = parseTime(created.String)
	rec.Finished = parseTime(finished.String)
	if rec.Inputs, err = parametersFromJSON(inputs.String); err != nil {
		return nil, fmt.Errorf("inputs of %s: %w", rec.ID, err)
	}
	if rec.Outputs, err = parametersFromJSON(outputs.String); err != nil {
		return nil, fmt.Errorf("outputs of %s: %w", rec.ID, err)
	}
	if rec.Files, err = filesFromJSON(files.String); err != nil {
		return nil, fmt.Errorf("files of %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// Calculation returns the calculation with the given ID.
func (S *Store) Calculation(ctx context.Context, id string) (*calc.Record, error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	row := S.db.QueryRowContext(ctx, `SELECT `+calculationColumns+` FROM calculations WHERE id = ?`, id)
	rec, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calculation %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// Calculations returns the latest calculations, newest first. A limit of 0 or less means all of them.
func (S *Store) Calculations(ctx context.Context, limit int) ([]*calc.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	S.mu.Lock()
	defer S.mu.Unlock()
	rows, err := S.db.QueryContext(ctx, `SELECT `+calculationColumns+` FROM calculations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()
	var ret []*calc.Record
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

// FileNames returns the names of the files recorded for a calculation, sorted.
func (S *Store) FileNames(ctx context.Context, calcID string) ([]string, error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	rows, err := S.db.QueryContext(ctx, `SELECT name FROM calculation_files WHERE calc_id = ? ORDER BY name`, calcID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files of %s: %w", calcID, err)
	}
	defer rows.Close()
	var ret []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		ret = append(ret, name)
	}
	return ret, rows.Err()
}

// File returns the content of a file recorded for a calculation.
func (S *Store) File(ctx context.Context, calcID, name string) ([]byte, error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	var compressed []byte
	var size int
	err := S.db.QueryRowContext(ctx, `SELECT size, content FROM calculation_files WHERE calc_id = ? AND name = ?`, calcID, name).Scan(&size, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s of %s: %w", name, calcID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}
	data, err := S.dec.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("file %s of %s: %w", name, calcID, err)
	}
	return data, nil
}

const workchainColumns = `id, label, structure, results, files, calculations, created_at, finished_at`

func scanWorkChain(row scanner) (*workchain.Record, error) {
	var rec workchain.Record
	var structure, results, files, calcs, created, finished sql.NullString
	err := row.Scan(&rec.ID, &rec.Label, &structure, &results, &files, &calcs, &created, &finished)
	if err != nil {
		return nil, err
	}
	rec.Structure = structure.String
	rec.Created = parseTime(created.String)
	rec.Finished = parseTime(finished.String)
	if rec.Results, err = parametersFromJSON(results.String); err != nil {
		return nil, fmt.Errorf("results of %s: %w", rec.ID, err)
	}
	if rec.Files, err = filesFromJSON(files.String); err != nil {
		return nil, fmt.Errorf("files of %s: %w", rec.ID, err)
	}
	if calcs.String != "" && calcs.String != "null" {
		if err := json.Unmarshal([]byte(calcs.String), &rec.Calculations); err != nil {
			return nil, fmt.Errorf("calculations of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// WorkChain returns the workchain with the given ID.
func (S *Store) WorkChain(ctx context.Context, id string) (*workchain.Record, error) {
	S.mu.Lock()
	defer S.mu.Unlock()
	row := S.db.QueryRowContext(ctx, `SELECT `+workchainColumns+` FROM workchains WHERE id = ?`, id)
	rec, err := scanWorkChain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workchain %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// WorkChains returns the latest workchains, newest first. A limit of 0 or less means all of them.
func (S *Store) WorkChains(ctx context.Context, limit int) ([]*workchain.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	S.mu.Lock()
	defer S.mu.Unlock()
	rows, err := S.db.QueryContext(ctx, `SELECT `+workchainColumns+` FROM workchains ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query workchains: %w", err)
	}
	defer rows.Close()
	var ret []*workchain.Record
	for rows.Next() {
		rec, err := scanWorkChain(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}
