// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-sqlite3"
)

var ErrDbConstraintUnique = sqlite3.ErrConstraintUnique

// IsDbError reports whether err is a sqlite error with the given extended code.
func IsDbError(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

type DbHandle struct {
	db *sql.DB
}

func NewDb(dbfile string) (*DbHandle, error) {
	var newDb bool
	if _, err := os.Stat(dbfile); err != nil {
		newDb = errors.Is(err, os.ErrNotExist)
	}
	// Writers take the lock up front and wait for each other instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", "file:"+dbfile+"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if newDb {
		if err := createTables(db); err != nil {
			return nil, err
		}
	}
	return &DbHandle{db: db}, nil
}

func (d DbHandle) Close() error {
	return d.db.Close()
}

func (d DbHandle) Begin() (*sql.Tx, error) {
	return d.db.Begin()
}

func (d DbHandle) Prepare(name, query string) (stmt *sql.Stmt, err error) {
	if stmt, err = d.db.Prepare(query); err != nil {
		err = fmt.Errorf("unable to prepare '%s' statement: %w", name, err)
	}
	return
}

func (d DbHandle) InitStmt(stmt ...DbStmtInit) (err error) {
	for _, s := range stmt {
		if err = s.Init(d); err != nil {
			break
		}
	}
	return
}

func createTables(db *sql.DB) error {
	sqlStmt := `
		CREATE TABLE devices (
			uuid VARCHAR(48) NOT NULL PRIMARY KEY,
			created_at INT DEFAULT 0,
			last_seen INT DEFAULT 0
		) WITHOUT ROWID;

		CREATE TABLE shadows (
			device_id  VARCHAR(48) NOT NULL PRIMARY KEY,
			version    INT NOT NULL,
			reported   TEXT NOT NULL,
			updated_at INT NOT NULL
		) WITHOUT ROWID;

		CREATE TABLE commands (
			id              VARCHAR(36) NOT NULL PRIMARY KEY,
			device_id       VARCHAR(48) NOT NULL,
			capability      VARCHAR(128) NOT NULL,
			params          TEXT NOT NULL,
			priority        VARCHAR(16) NOT NULL,
			deadline        INT,
			idempotency_key VARCHAR(128) NOT NULL,
			status          VARCHAR(16) NOT NULL,
			error           TEXT DEFAULT '',
			enqueued_at     INT NOT NULL,
			updated_at      INT NOT NULL
		) WITHOUT ROWID;

		CREATE INDEX commands_by_device ON commands(device_id, enqueued_at);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		return fmt.Errorf("unable to create devices db: %w", err)
	}
	return nil
}

type DbStmt struct {
	Stmt *sql.Stmt
}

type DbStmtInit interface {
	Init(db DbHandle) error
}
