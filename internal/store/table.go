// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tarkovtracker/internal/logging"
	"github.com/tomtom215/tarkovtracker/internal/metrics"
)

// Table names.
const (
	TableUserProgress    = "user_progress"
	TableUserPreferences = "user_preferences"
	TableTeams           = "teams"
	TableTeamMembers     = "team_members"
)

const keyVersionPrefix = "v2_"

var (
	// ErrNotFound is returned when no row exists for an id.
	ErrNotFound = errors.New("record not found")
	// ErrPreconditionFailed is returned when ifMatch does not equal the
	// current ETag.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Row is a stored JSON object.
type Row map[string]any

// Table is a keyed collection of rows.
type Table struct {
	db       *DB
	name     string
	idColumn string
	now      func() time.Time
}

// Table returns the table name whose rows are keyed by idColumn.
func (d *DB) Table(name, idColumn string) *Table {
	return &Table{db: d, name: name, idColumn: idColumn, now: time.Now}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) key(id string) []byte {
	return []byte(keyVersionPrefix + t.name + ":" + id)
}

func (t *Table) legacyKey(id string) []byte {
	return []byte(t.name + ":" + id)
}

// ETag returns the entity tag for stored row bytes.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}

// Get returns the row for id and its ETag. A legacy row is migrated to the
// versioned key before it is returned.
func (t *Table) Get(ctx context.Context, id string) (Row, string, error) {
	data, err := t.GetRaw(ctx, id)
	if err != nil {
		return nil, "", err
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, "", fmt.Errorf("decode %s row: %w", t.name, err)
	}
	return row, ETag(data), nil
}

// GetRaw returns the stored bytes for id.
func (t *Table) GetRaw(ctx context.Context, id string) ([]byte, error) {
	if t.db.closed.Load() {
		return nil, ErrClosed
	}

	var data []byte
	legacy := false
	err := t.db.db.View(func(txn *badger.Txn) error {
		v, err := getValue(txn, t.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			v, err = getValue(txn, t.legacyKey(id))
			legacy = err == nil
		}
		data = v
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordStoreOp(t.name, "get", nil)
		return nil, ErrNotFound
	}
	metrics.RecordStoreOp(t.name, "get", err)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}

	if legacy {
		if err := t.migrate(id, data); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("table", t.name).Msg("Legacy row migration failed")
		} else {
			logging.Ctx(ctx).Info().Str("table", t.name).Msg("Migrated legacy row to versioned key")
		}
	}
	return data, nil
}

func (t *Table) migrate(id string, data []byte) error {
	err := t.db.db.Update(func(txn *badger.Txn) error {
		// Another reader may have migrated the row already.
		if _, err := txn.Get(t.key(id)); err == nil {
			return txn.Delete(t.legacyKey(id))
		}
		if err := txn.Set(t.key(id), data); err != nil {
			return err
		}
		return txn.Delete(t.legacyKey(id))
	})
	metrics.RecordStoreOp(t.name, "migrate", err)
	return err
}

// Upsert stores a copy of row with the id column set to id and updated_at
// set to now. The caller's row is not modified. A non-empty ifMatch must
// equal the current ETag ("*" requires that a row exists).
func (t *Table) Upsert(ctx context.Context, id string, row Row, ifMatch string) (Row, string, error) {
	if t.db.closed.Load() {
		return nil, "", ErrClosed
	}

	stored := make(Row, len(row)+2)
	for k, v := range row {
		stored[k] = v
	}
	stored[t.idColumn] = id
	stored["updated_at"] = t.now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, "", fmt.Errorf("encode %s row: %w", t.name, err)
	}

	err = t.db.db.Update(func(txn *badger.Txn) error {
		if ifMatch != "" {
			current, err := getValue(txn, t.key(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				current, err = getValue(txn, t.legacyKey(id))
			}
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				return ErrPreconditionFailed
			case err != nil:
				return err
			case ifMatch != "*" && ifMatch != ETag(current):
				return ErrPreconditionFailed
			}
		}
		if err := txn.Set(t.key(id), data); err != nil {
			return err
		}
		if err := txn.Delete(t.legacyKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, ErrPreconditionFailed) {
		metrics.RecordStoreOp(t.name, "upsert", nil)
		return nil, "", err
	}
	metrics.RecordStoreOp(t.name, "upsert", err)
	if err != nil {
		return nil, "", fmt.Errorf("upsert %s: %w", t.name, err)
	}

	logging.Ctx(ctx).Debug().Str("table", t.name).Int("bytes", len(data)).Msg("Row upserted")
	return stored, ETag(data), nil
}

// Delete removes the row under both key layouts.
func (t *Table) Delete(ctx context.Context, id string) error {
	if t.db.closed.Load() {
		return ErrClosed
	}
	err := t.db.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(t.key(id)); err != nil {
			return err
		}
		return txn.Delete(t.legacyKey(id))
	})
	metrics.RecordStoreOp(t.name, "delete", err)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	logging.Ctx(ctx).Debug().Str("table", t.name).Msg("Row deleted")
	return nil
}

// Count returns the number of versioned rows.
func (t *Table) Count(_ context.Context) (int, error) {
	n := 0
	err := t.db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyVersionPrefix + t.name + ":")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Decode converts a row into v through its JSON form.
func Decode(row Row, v any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Encode converts v into a row through its JSON form.
func Encode(v any) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("value does not encode to an object")
	}
	return row, nil
}
