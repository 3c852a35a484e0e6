// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package snapdb stores handoff snapshots so that later runs of the same
// image from the same initial state can be checked for determinism.
package snapdb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/cortexm-handoff/internal/sim"

	_ "github.com/go-sql-driver/mysql" // Load drivers for MySQL/MariaDB
	_ "github.com/mattn/go-sqlite3"    // Load drivers for sqlite3
)

var (
	// ErrNotFound is returned when no snapshot is stored under a key.
	ErrNotFound = errors.New("no snapshot found")
	// ErrMismatch is returned when a snapshot differs from the one stored
	// under the same key.
	ErrMismatch = errors.New("snapshot differs from recorded snapshot")
)

// Database provides read/write access to recorded snapshots.
type Database struct {
	db *sql.DB
}

// NewDatabase creates a Database using the given driver ("sqlite3" or
// "mysql") and connection string.
func NewDatabase(driver, connString string) (*Database, error) {
	dbConn, err := sql.Open(driver, connString)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return NewDatabaseDirect(dbConn)
}

// NewDatabaseDirect creates a Database using the given database connection.
func NewDatabaseDirect(db *sql.DB) (*Database, error) {
	ret := &Database{
		db: db,
	}
	return ret, ret.init()
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) init() error {
	_, err := d.db.Exec("CREATE TABLE IF NOT EXISTS snapshots (runkey VARCHAR(255) PRIMARY KEY, digest BLOB, data BLOB)")
	return err
}

// Digest returns the SHA-256 of the canonical JSON encoding of s.
func Digest(s sim.Snapshot) ([]byte, []byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, nil, fmt.Errorf("json.Marshal: %w", err)
	}
	h := sha256.Sum256(data)
	return h[:], data, nil
}

// Record stores s under key if nothing is stored there yet. Otherwise it
// compares s with the stored snapshot and returns ErrMismatch if they differ.
//
// Returns true if s was newly stored.
func (d *Database) Record(ctx context.Context, key string, s sim.Snapshot) (bool, error) {
	digest, data, err := Digest(s)
	if err != nil {
		return false, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("BeginTx(): %v", err)
	}

	var old, oldData []byte
	row := tx.QueryRowContext(ctx, "SELECT digest, data FROM snapshots WHERE runkey = ?", key)
	switch err := row.Scan(&old, &oldData); {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, "INSERT INTO snapshots (runkey, digest, data) VALUES (?, ?, ?)", key, digest, data); err != nil {
			tx.Rollback()
			return false, fmt.Errorf("Exec(): %v", err)
		}
		return true, tx.Commit()
	case err != nil:
		tx.Rollback()
		return false, fmt.Errorf("Scan(): %v", err)
	}
	tx.Rollback()

	if !bytes.Equal(old, digest) {
		var want sim.Snapshot
		if err := json.Unmarshal(oldData, &want); err != nil {
			return false, fmt.Errorf("%w (stored snapshot unreadable: %v)", ErrMismatch, err)
		}
		return false, fmt.Errorf("%w for %q (-recorded +got):\n%s", ErrMismatch, key, sim.Diff(want, s))
	}
	return false, nil
}

// Get returns the snapshot stored under key.
func (d *Database) Get(ctx context.Context, key string) (sim.Snapshot, error) {
	var data []byte
	row := d.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE runkey = ?", key)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return sim.Snapshot{}, ErrNotFound
		}
		return sim.Snapshot{}, fmt.Errorf("Scan(): %v", err)
	}
	var s sim.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return sim.Snapshot{}, fmt.Errorf("failed to parse stored snapshot: %w", err)
	}
	return s, nil
}
