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

package snapdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/cortexm-handoff/internal/sim"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3" // Load drivers for sqlite3
)

func snapshot(vtor uint32) sim.Snapshot {
	return sim.Snapshot{
		MSP:     0x20004000,
		PSP:     0x20000800,
		VTOR:    vtor,
		Enabled: []uint32{0, 0, 0, 0, 0, 0, 0, 0},
		Pending: []uint32{0, 0, 0, 0, 0, 0, 0, 0},
		Entry:   0x08010101,
	}
}

func TestRecord(t *testing.T) {
	for _, test := range []struct {
		desc     string
		first    sim.Snapshot
		second   sim.Snapshot
		wantErr  error
		wantSame bool
	}{
		{
			desc:   "identical",
			first:  snapshot(0x08010000),
			second: snapshot(0x08010000),
		}, {
			desc:    "changed",
			first:   snapshot(0x08010000),
			second:  snapshot(0x08020000),
			wantErr: ErrMismatch,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			ctx := context.Background()
			db, close, err := NewInMemoryDatabase()
			if err != nil {
				t.Fatal("failed to init DB", err)
			}
			defer close()

			added, err := db.Record(ctx, "key", test.first)
			if err != nil {
				t.Fatalf("first Record(): %v", err)
			}
			if !added {
				t.Error("first Record() did not store snapshot")
			}

			added, err = db.Record(ctx, "key", test.second)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("second Record() = %v, want %v", err, test.wantErr)
			}
			if added {
				t.Error("second Record() stored snapshot, want existing kept")
			}

			got, err := db.Get(ctx, "key")
			if err != nil {
				t.Fatalf("Get(): %v", err)
			}
			if diff := cmp.Diff(test.first, got); diff != "" {
				t.Errorf("stored snapshot diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	db, close, err := NewInMemoryDatabase()
	if err != nil {
		t.Fatal("failed to init DB", err)
	}
	defer close()
	if _, err := db.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want %v", err, ErrNotFound)
	}
}

func TestDigestStable(t *testing.T) {
	a, _, err := Digest(snapshot(0x08010000))
	if err != nil {
		t.Fatalf("Digest(): %v", err)
	}
	b, _, err := Digest(snapshot(0x08010000))
	if err != nil {
		t.Fatalf("Digest(): %v", err)
	}
	c, _, err := Digest(snapshot(0x08010080))
	if err != nil {
		t.Fatalf("Digest(): %v", err)
	}
	if !cmp.Equal(a, b) {
		t.Error("identical snapshots have different digests")
	}
	if cmp.Equal(a, c) {
		t.Error("different snapshots have the same digest")
	}
}

func NewInMemoryDatabase() (*Database, func() error, error) {
	sqlitedb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open temporary in-memory DB: %v", err)
	}
	// Every new connection would see its own empty database.
	sqlitedb.SetMaxOpenConns(1)
	db, err := NewDatabaseDirect(sqlitedb)
	return db, sqlitedb.Close, err
}
