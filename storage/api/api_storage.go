// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/foundriesio/dg-shadow/storage"
)

type (
	OrderBy string

	DbHandle = storage.DbHandle
	FsHandle = storage.FsHandle
)

const (
	OrderByDeviceLastSeenDsc OrderBy = "last-seen-desc"
	OrderByDeviceLastSeenAsc OrderBy = "last-seen-asc"
	OrderByDeviceCreatedDsc  OrderBy = "created-at-desc"
	OrderByDeviceCreatedAsc  OrderBy = "created-at-asc"
	OrderByDeviceUuidAsc     OrderBy = "uuid-asc"
	OrderByDeviceUuidDesc    OrderBy = "uuid-desc"
)

var orderByDeviceMap = map[OrderBy]string{
	OrderByDeviceCreatedAsc:  "created_at ASC, uuid ASC",
	OrderByDeviceCreatedDsc:  "created_at DESC, uuid DESC",
	OrderByDeviceLastSeenAsc: "last_seen ASC, uuid ASC",
	OrderByDeviceLastSeenDsc: "last_seen DESC, uuid ASC",
	OrderByDeviceUuidAsc:     "uuid ASC",
	OrderByDeviceUuidDesc:    "uuid DESC",
}

var (
	NewDb = storage.NewDb
	NewFs = storage.NewFs

	DbFile = storage.DbFile
)

const (
	AuditPrivacyPrefix  = storage.AuditPrivacyPrefix
	AuditSecurityPrefix = storage.AuditSecurityPrefix
)

// DeviceListOpts lets you set the order devices will be returned
// by the `List` api
type DeviceListOpts struct {
	OrderBy OrderBy `query:"order-by" example:"1"    default:"1"`
	Limit   int     `query:"limit"    example:"100"  default:"1000"`
	Offset  int     `query:"offset"   example:"1"    default:"0"`
}

type DeviceListItem struct {
	Uuid      string `json:"uuid"`
	CreatedAt int64  `json:"created-at"`
	LastSeen  int64  `json:"last-seen"`
}

type Device struct {
	DeviceListItem

	storage Storage
}

type Storage struct {
	db *storage.DbHandle
	fs *storage.FsHandle

	stmtDeviceGet  stmtDeviceGet
	stmtDeviceList map[OrderBy]stmtDeviceList

	stmtCommandCreate    stmtCommandCreate
	stmtCommandGet       stmtCommandGet
	stmtCommandList      stmtCommandList
	stmtCommandSetStatus stmtCommandSetStatus
}

// Audit returns the device's audit records of one kind (privacy or security),
// oldest first.
func (d Device) Audit(prefix string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	for line, err := range d.storage.fs.Devices.ReadAudit(d.Uuid, prefix) {
		if err != nil {
			return nil, fmt.Errorf("unable to read %s audit of device %s: %w", prefix, d.Uuid, err)
		}
		if len(line) > 0 {
			records = append(records, json.RawMessage(line))
		}
	}
	return records, nil
}

func NewStorage(db *storage.DbHandle, fs *storage.FsHandle) (*Storage, error) {
	handle := Storage{db: db, fs: fs}

	if err := db.InitStmt(
		&handle.stmtDeviceGet,
		&handle.stmtCommandCreate,
		&handle.stmtCommandGet,
		&handle.stmtCommandList,
		&handle.stmtCommandSetStatus,
	); err != nil {
		return nil, err
	}

	handle.stmtDeviceList = make(map[OrderBy]stmtDeviceList, len(orderByDeviceMap))
	for orderBy, orderByStr := range orderByDeviceMap {
		stmt := stmtDeviceList{}
		if err := stmt.Init(*db, orderByStr); err != nil {
			return nil, err
		}
		handle.stmtDeviceList[orderBy] = stmt
	}

	return &handle, nil
}

func (s Storage) DevicesList(opts DeviceListOpts) ([]DeviceListItem, error) {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = OrderByDeviceLastSeenDsc
	}
	stmt, ok := s.stmtDeviceList[orderBy]
	if !ok {
		return nil, fmt.Errorf("invalid order by arg: %s", opts.OrderBy)
	}
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}

	devices := make([]DeviceListItem, 0, min(opts.Limit, 100))
	if err := stmt.run(opts.Limit, opts.Offset, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (s Storage) DeviceGet(uuid string) (*Device, error) {
	d := Device{storage: s, DeviceListItem: DeviceListItem{Uuid: uuid}}
	if err := s.stmtDeviceGet.run(uuid, &d.CreatedAt, &d.LastSeen); err != nil {
		if err == sql.ErrNoRows {
			err = nil
		}
		return nil, err
	}
	return &d, nil
}

type stmtDeviceGet storage.DbStmt

func (s *stmtDeviceGet) Init(db storage.DbHandle) (err error) {
	s.Stmt, err = db.Prepare("apiDeviceGet", `
		SELECT created_at, last_seen
		FROM devices
		WHERE uuid = ?`,
	)
	return
}

func (s *stmtDeviceGet) run(uuid string, createdAt, lastSeen *int64) error {
	return s.Stmt.QueryRow(uuid).Scan(createdAt, lastSeen)
}

type stmtDeviceList storage.DbStmt

func (s *stmtDeviceList) Init(db storage.DbHandle, orderBy string) (err error) {
	s.Stmt, err = db.Prepare("apiDeviceList", fmt.Sprintf(`
		SELECT uuid, created_at, last_seen
		FROM devices
		ORDER BY %s LIMIT ? OFFSET ?`, orderBy),
	)
	return
}

func (s *stmtDeviceList) run(limit, offset int, dl *[]DeviceListItem) error {
	if rows, err := s.Stmt.Query(limit, offset); err != nil {
		return err
	} else {
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Error("failed to close rows in device list", "error", err)
			}
		}()
		for rows.Next() {
			var d DeviceListItem
			if err = rows.Scan(&d.Uuid, &d.CreatedAt, &d.LastSeen); err != nil {
				return err
			}
			*dl = append(*dl, d)
		}
		if err = rows.Err(); err != nil {
			return err
		}
	}
	return nil
}
