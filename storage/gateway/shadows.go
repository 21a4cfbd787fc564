// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/shadow"
	"github.com/foundriesio/dg-shadow/storage"
)

// ShadowStore keeps device shadows in sqlite. The version comparison happens
// inside a write transaction so a stale update never overwrites a newer one.
type ShadowStore struct {
	db *storage.DbHandle
	mu sync.Mutex

	stmtShadowGet    stmtShadowGet
	stmtShadowUpsert stmtShadowUpsert

	now func() time.Time
}

func NewShadowStore(db *storage.DbHandle) (*ShadowStore, error) {
	handle := ShadowStore{db: db, now: time.Now}
	if err := db.InitStmt(&handle.stmtShadowGet, &handle.stmtShadowUpsert); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (s *ShadowStore) Get(ctx context.Context, deviceId string) (*shadow.Entry, error) {
	return s.stmtShadowGet.run(ctx, s.stmtShadowGet.Stmt, deviceId)
}

func (s *ShadowStore) ApplyUpdate(ctx context.Context, deviceId string, version int64, patch map[string]any) (shadow.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return shadow.Entry{}, false, fmt.Errorf("unable to start shadow transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	cur, err := s.stmtShadowGet.run(ctx, tx.StmtContext(ctx, s.stmtShadowGet.Stmt), deviceId)
	if err != nil {
		return shadow.Entry{}, false, err
	}
	if cur == nil {
		empty := shadow.Empty(deviceId)
		cur = &empty
	}
	next, applied := shadow.Merge(*cur, version, patch, s.now().UTC().Truncate(time.Millisecond))
	if !applied {
		return next, false, nil
	}
	if err = s.stmtShadowUpsert.run(ctx, tx.StmtContext(ctx, s.stmtShadowUpsert.Stmt), next); err != nil {
		return shadow.Entry{}, false, err
	}
	if err = tx.Commit(); err != nil {
		return shadow.Entry{}, false, fmt.Errorf("unable to commit shadow of %s: %w", deviceId, err)
	}
	return next, true, nil
}

type stmtShadowGet storage.DbStmt

func (s *stmtShadowGet) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("ShadowGet", `
		SELECT version, reported, updated_at
		FROM shadows
		WHERE device_id = ?`,
	)
	return
}

func (s *stmtShadowGet) run(ctx context.Context, stmt *sql.Stmt, deviceId string) (*shadow.Entry, error) {
	var (
		reported  []byte
		updatedAt int64
	)
	e := shadow.Entry{DeviceId: deviceId}
	if err := stmt.QueryRowContext(ctx, deviceId).Scan(&e.Version, &reported, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read shadow of %s: %w", deviceId, err)
	}
	if err := json.Unmarshal(reported, &e.Reported); err != nil {
		return nil, fmt.Errorf("failed to parse shadow of %s: %w", deviceId, err)
	}
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &e, nil
}

type stmtShadowUpsert storage.DbStmt

func (s *stmtShadowUpsert) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("ShadowUpsert", `
		INSERT INTO shadows(device_id, version, reported, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE
		SET version=excluded.version, reported=excluded.reported, updated_at=excluded.updated_at
		WHERE excluded.version > shadows.version`,
	)
	return
}

func (s *stmtShadowUpsert) run(ctx context.Context, stmt *sql.Stmt, e shadow.Entry) error {
	reported, err := json.Marshal(e.Reported)
	if err != nil {
		return fmt.Errorf("unexpected error marshalling shadow of %s: %w", e.DeviceId, err)
	}
	_, err = stmt.ExecContext(ctx, e.DeviceId, e.Version, reported, e.UpdatedAt.UnixMilli())
	return err
}
