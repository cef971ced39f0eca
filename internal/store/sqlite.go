package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mlaurent/avidex/internal/common"
	"github.com/mlaurent/avidex/internal/dbx"
	"github.com/mlaurent/avidex/internal/models"
)

// timeLayout is the canonical on-disk timestamp format.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements Store on top of database/sql with a SQLite driver.
type SQLiteStore struct {
	db *sql.DB

	// now is swappable in tests.
	now func() time.Time
}

// NewSQLiteStore wraps an open database handle. The schema is expected to be
// in place; use Open to also run migrations.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// storageErr wraps err as a *common.StorageError, flagging quota exhaustion
// by the SQLITE_FULL message.
func storageErr(op string, err error) error {
	return &common.StorageError{
		Op:    op,
		Quota: strings.Contains(err.Error(), "database or disk is full"),
		Err:   err,
	}
}

func upsertCacheRow(ctx context.Context, tx dbx.DBTX, key string, record models.Discovery, at time.Time, synced bool) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %q: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO discovery_cache (entity_key, data, updated_at, synced)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			synced = excluded.synced
	`, key, string(data), at.Format(timeLayout), synced)
	return err
}

func (s *SQLiteStore) UpsertCacheEntries(ctx context.Context, entries map[string]models.Discovery) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		at := s.now()
		for key, record := range entries {
			if err := upsertCacheRow(ctx, tx, key, record, at, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("upsert cache entries", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAllCacheEntries(ctx context.Context) (map[string]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_key, data, updated_at, synced FROM discovery_cache`)
	if err != nil {
		return nil, storageErr("read cache entries", err)
	}
	defer rows.Close()

	result := make(map[string]models.CacheEntry)
	for rows.Next() {
		var (
			key, data, updatedAt string
			synced               bool
		)
		if err := rows.Scan(&key, &data, &updatedAt, &synced); err != nil {
			return nil, storageErr("scan cache row", err)
		}
		entry := models.CacheEntry{EntityKey: key, Synced: synced}
		if err := json.Unmarshal([]byte(data), &entry.Record); err != nil {
			return nil, storageErr("decode cache row", err)
		}
		entry.Record.EntityKey = key
		if entry.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
			return nil, storageErr("decode cache row", err)
		}
		result[key] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read cache entries", err)
	}
	return result, nil
}

func (s *SQLiteStore) EnqueueMutation(ctx context.Context, entityKey string, record models.Discovery) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		at := s.now()
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record %q: %w", entityKey, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_queue (entity_key, data, timestamp, status)
			VALUES (?, ?, ?, ?)
		`, entityKey, string(data), at.Format(timeLayout), string(models.QueueStatusPending))
		if err != nil {
			return err
		}
		// Same transaction: the record must never be only-queued or
		// only-cached.
		return upsertCacheRow(ctx, tx, entityKey, record, at, false)
	})
	if err != nil {
		return storageErr("enqueue mutation", err)
	}
	return nil
}

func (s *SQLiteStore) ReadPendingMutations(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_key, data, timestamp, status
		FROM sync_queue
		WHERE status = ?
		ORDER BY id
	`, string(models.QueueStatusPending))
	if err != nil {
		return nil, storageErr("read pending mutations", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		var (
			entry           models.QueueEntry
			data, timestamp string
			status          string
		)
		if err := rows.Scan(&entry.ID, &entry.EntityKey, &data, &timestamp, &status); err != nil {
			return nil, storageErr("scan queue row", err)
		}
		if err := json.Unmarshal([]byte(data), &entry.Record); err != nil {
			return nil, storageErr("decode queue row", err)
		}
		entry.Record.EntityKey = entry.EntityKey
		if entry.Timestamp, err = time.Parse(timeLayout, timestamp); err != nil {
			return nil, storageErr("decode queue row", err)
		}
		entry.Status = models.QueueStatus(status)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read pending mutations", err)
	}
	return result, nil
}

func (s *SQLiteStore) MarkMutationSynced(ctx context.Context, queueID int64, entityKey string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, queueID); err != nil {
			return err
		}
		// Zero rows affected is fine: the cache row may have been
		// removed by a concurrent operation.
		_, err := tx.ExecContext(ctx, `UPDATE discovery_cache SET synced = 1 WHERE entity_key = ?`, entityKey)
		return err
	})
	if err != nil {
		return storageErr("mark mutation synced", err)
	}
	return nil
}

func (s *SQLiteStore) CountPendingMutations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_queue WHERE status = ?
	`, string(models.QueueStatusPending)).Scan(&n)
	if err != nil {
		return 0, storageErr("count pending mutations", err)
	}
	return n, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM discovery_cache`)
		return err
	})
	if err != nil {
		return storageErr("clear all", err)
	}
	return nil
}
