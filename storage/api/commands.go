// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foundriesio/dg-shadow/commands"
	"github.com/foundriesio/dg-shadow/context"
	"github.com/foundriesio/dg-shadow/storage"
)

// CommandRecord is a command together with its last known lifecycle status.
type CommandRecord struct {
	commands.Command

	Status    commands.Status `json:"status"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type CommandListOpts struct {
	Status string `query:"status"`
	Limit  int    `query:"limit"  default:"100"`
	Offset int    `query:"offset" default:"0"`
}

func (s Storage) CommandGet(id string) (*CommandRecord, error) {
	rec, err := s.stmtCommandGet.run(id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// CommandsList returns a device's commands, newest first.
func (s Storage) CommandsList(deviceId string, opts CommandListOpts) ([]CommandRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Status != "" {
		switch st := commands.Status(opts.Status); st {
		case commands.StatusQueued, commands.StatusDelivering, commands.StatusApplied, commands.StatusFailed, commands.StatusExpired:
		default:
			return nil, fmt.Errorf("invalid status filter: %s", opts.Status)
		}
	}
	return s.stmtCommandList.run(deviceId, opts)
}

// CommandLog exposes the command table as the delivery core's persisted log.
func (s *Storage) CommandLog() commands.Log {
	return commandLog{s}
}

type commandLog struct {
	s *Storage
}

func (l commandLog) Create(ctx context.Context, cmd commands.Command) error {
	if err := l.s.stmtCommandCreate.run(ctx, cmd); err != nil {
		return fmt.Errorf("unable to store command %s: %w", cmd.Id, err)
	}
	return nil
}

func (l commandLog) SetStatus(ctx context.Context, id string, status commands.Status, detail string) error {
	if n, err := l.s.stmtCommandSetStatus.run(ctx, id, status, detail); err != nil {
		return fmt.Errorf("unable to set command %s status to %s: %w", id, status, err)
	} else if n == 0 {
		return fmt.Errorf("command %s not found", id)
	}
	return nil
}

const commandColumns = `id, device_id, capability, params, priority, deadline, idempotency_key,
	status, error, enqueued_at, updated_at`

func scanCommand(row interface{ Scan(...any) error }) (*CommandRecord, error) {
	var (
		rec        CommandRecord
		params     string
		deadline   sql.NullInt64
		enqueuedAt int64
		updatedAt  int64
	)
	if err := row.Scan(
		&rec.Id, &rec.DeviceId, &rec.Capability, &params, &rec.Priority, &deadline, &rec.IdempotencyKey,
		&rec.Status, &rec.Error, &enqueuedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	rec.Params = json.RawMessage(params)
	if deadline.Valid {
		t := time.UnixMilli(deadline.Int64).UTC()
		rec.Deadline = &t
	}
	rec.EnqueuedAt = time.UnixMilli(enqueuedAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &rec, nil
}

type stmtCommandCreate storage.DbStmt

func (s *stmtCommandCreate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("apiCommandCreate", `
		INSERT INTO commands(`+commandColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
	)
	return
}

func (s *stmtCommandCreate) run(ctx context.Context, cmd commands.Command) error {
	var deadline sql.NullInt64
	if cmd.Deadline != nil {
		deadline = sql.NullInt64{Int64: cmd.Deadline.UnixMilli(), Valid: true}
	}
	enqueuedAt := cmd.EnqueuedAt.UnixMilli()
	_, err := s.Stmt.ExecContext(ctx,
		cmd.Id, cmd.DeviceId, cmd.Capability, string(cmd.Params), cmd.Priority, deadline, cmd.IdempotencyKey,
		commands.StatusQueued, enqueuedAt, enqueuedAt,
	)
	return err
}

type stmtCommandSetStatus storage.DbStmt

func (s *stmtCommandSetStatus) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("apiCommandSetStatus", `
		UPDATE commands
		SET status=?, error=?, updated_at=?
		WHERE id = ?`,
	)
	return
}

func (s *stmtCommandSetStatus) run(ctx context.Context, id string, status commands.Status, detail string) (int64, error) {
	res, err := s.Stmt.ExecContext(ctx, status, detail, time.Now().UnixMilli(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type stmtCommandGet storage.DbStmt

func (s *stmtCommandGet) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("apiCommandGet", `
		SELECT `+commandColumns+`
		FROM commands
		WHERE id = ?`,
	)
	return
}

func (s *stmtCommandGet) run(id string) (*CommandRecord, error) {
	return scanCommand(s.Stmt.QueryRow(id))
}

type stmtCommandList storage.DbStmt

func (s *stmtCommandList) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("apiCommandList", `
		SELECT `+commandColumns+`
		FROM commands
		WHERE device_id = ? AND (? = '' OR status = ?)
		ORDER BY enqueued_at DESC, id ASC
		LIMIT ? OFFSET ?`,
	)
	return
}

func (s *stmtCommandList) run(deviceId string, opts CommandListOpts) ([]CommandRecord, error) {
	rows, err := s.Stmt.Query(deviceId, opts.Status, opts.Status, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows in command list", "error", err)
		}
	}()
	res := make([]CommandRecord, 0)
	for rows.Next() {
		rec, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, rows.Err()
}
