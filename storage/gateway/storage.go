// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package gateway

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foundriesio/dg-shadow/storage"
)

type (
	// Convenience aliases for importing modules
	DbHandle = storage.DbHandle
	FsHandle = storage.FsHandle
)

var (
	NewDb = storage.NewDb
	NewFs = storage.NewFs

	ErrInvalidDeviceId = storage.ErrInvalidDeviceId
)

const (
	AuditPrivacyPrefix  = storage.AuditPrivacyPrefix
	AuditSecurityPrefix = storage.AuditSecurityPrefix
)

type Storage struct {
	db *DbHandle
	fs *FsHandle

	stmtDeviceCheckIn stmtDeviceCheckIn
	stmtDeviceCreate  stmtDeviceCreate
	stmtDeviceGet     stmtDeviceGet

	maxAuditDays int
}

type Device struct {
	storage Storage

	Uuid      string
	CreatedAt int64
	LastSeen  int64
}

func (d *Device) CheckIn() error {
	now := time.Now().Unix()
	if now-d.LastSeen < 60 {
		// Skip database updating when last checkin was less than a minute ago.
		return nil
	}
	d.LastSeen = now
	return d.storage.stmtDeviceCheckIn.run(d.Uuid, now)
}

// AppendAudit records one JSON document in the device's audit log of prefix.
func (d Device) AppendAudit(prefix string, at time.Time, record []byte) error {
	return d.storage.fs.Devices.AppendAudit(d.Uuid, prefix, at, record, d.storage.maxAuditDays)
}

func NewStorage(db *storage.DbHandle, fs *storage.FsHandle) (*Storage, error) {
	handle := Storage{
		db:           db,
		fs:           fs,
		maxAuditDays: 30,
	}

	if err := db.InitStmt(
		&handle.stmtDeviceCheckIn,
		&handle.stmtDeviceCreate,
		&handle.stmtDeviceGet,
	); err != nil {
		return nil, err
	}

	return &handle, nil
}

func (s Storage) DeviceCreate(uuid string) (*Device, error) {
	if !storage.ValidDeviceId(uuid) {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidDeviceId, uuid)
	}
	now := time.Now().Unix()
	if err := s.stmtDeviceCreate.run(uuid, now, now); err != nil {
		return nil, err
	}
	return &Device{storage: s, Uuid: uuid, CreatedAt: now, LastSeen: now}, nil
}

func (s Storage) DeviceGet(uuid string) (*Device, error) {
	d := Device{storage: s, Uuid: uuid}
	if err := s.stmtDeviceGet.run(uuid, &d); err != nil {
		if err == sql.ErrNoRows {
			err = nil
		}
		return nil, err
	}
	return &d, nil
}

// DeviceRegister returns the device, creating it on first contact.
func (s Storage) DeviceRegister(uuid string) (*Device, error) {
	if d, err := s.DeviceGet(uuid); err != nil || d != nil {
		return d, err
	}
	d, err := s.DeviceCreate(uuid)
	if err != nil && storage.IsDbError(err, storage.ErrDbConstraintUnique) {
		// Another request registered it first.
		if d, err = s.DeviceGet(uuid); err == nil && d == nil {
			err = fmt.Errorf("device %s vanished during registration", uuid)
		}
	}
	return d, err
}

type stmtDeviceCheckIn storage.DbStmt

func (s *stmtDeviceCheckIn) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("DeviceCheckIn", `
		UPDATE devices
		SET last_seen=?
		WHERE uuid = ?`,
	)
	return
}

func (s *stmtDeviceCheckIn) run(uuid string, lastSeen int64) error {
	_, err := s.Stmt.Exec(lastSeen, uuid)
	return err
}

type stmtDeviceCreate storage.DbStmt

func (s *stmtDeviceCreate) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("DeviceCreate", `
		INSERT INTO devices(uuid, created_at, last_seen)
		VALUES (?, ?, ?)`,
	)
	return
}

func (s *stmtDeviceCreate) run(uuid string, createdAt, lastSeen int64) error {
	_, err := s.Stmt.Exec(uuid, createdAt, lastSeen)
	return err
}

type stmtDeviceGet storage.DbStmt

func (s *stmtDeviceGet) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("DeviceGet", `
		SELECT created_at, last_seen
		FROM devices
		WHERE uuid = ?`,
	)
	return
}

func (s *stmtDeviceGet) run(uuid string, d *Device) error {
	return s.Stmt.QueryRow(uuid).Scan(&d.CreatedAt, &d.LastSeen)
}
