// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package storage

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"syscall"
)

const (
	// Global files/dirs
	DbFile     = "db.sqlite"
	DevicesDir = "devices"

	partialFileSuffix = "..part"
)

// MaxDeviceIdLen bounds device ids; they double as directory names.
const MaxDeviceIdLen = 48

var (
	ErrInvalidDeviceId = errors.New("invalid device id")

	deviceIdRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,47}$`)
)

// ValidDeviceId reports whether uuid is safe to use as a device id. It must
// start with an alphanumeric and cannot contain path separators.
func ValidDeviceId(uuid string) bool {
	return deviceIdRe.MatchString(uuid)
}

type FsConfig string

func (c FsConfig) RootDir() string {
	return string(c)
}

func (c FsConfig) DbFile() string {
	return filepath.Join(string(c), DbFile)
}

func (c FsConfig) DevicesDir() string {
	return filepath.Join(string(c), DevicesDir)
}

type FsHandle struct {
	Config FsConfig

	Devices DevicesFsHandle
}

func NewFs(root string) (*FsHandle, error) {
	fs := &FsHandle{Config: FsConfig(root)}
	fs.Devices.root = fs.Config.DevicesDir()
	if err := fs.Devices.mkdirs(0o740, true); err != nil {
		return nil, fmt.Errorf("unable to initialize file storage: %w", err)
	}
	return fs, nil
}

type DevicesFsHandle struct {
	baseFsHandle
}

func (s DevicesFsHandle) ReadFile(uuid, name string) (string, error) {
	h, err := s.deviceLocalHandle(uuid, false)
	if err != nil {
		return "", err
	}
	content, err := h.readFile(name, true)
	if err != nil {
		err = fmt.Errorf("unexpected error reading file %s for device %s: %w", name, uuid, err)
	}
	return content, err
}

func (s DevicesFsHandle) ReadFileLines(uuid, name string) iter.Seq2[string, error] {
	h, err := s.deviceLocalHandle(uuid, false)
	if err != nil {
		return func(yield func(string, error) bool) { yield("", err) }
	}
	return h.readFileLines(name, true)
}

func (s DevicesFsHandle) AppendFile(uuid, name, content string) error {
	if h, err := s.deviceLocalHandle(uuid, true); err != nil {
		return err
	} else if err = h.appendFile(name, content, 0o744); err != nil {
		return fmt.Errorf("error writing file %s for device %s: %w", name, uuid, err)
	}
	return nil
}

func (s DevicesFsHandle) ListFiles(uuid, prefix string, sortByModTime bool) ([]string, error) {
	h, err := s.deviceLocalHandle(uuid, false)
	if err != nil {
		return nil, err
	}
	names, err := h.matchFiles(prefix, sortByModTime)
	if err != nil {
		err = fmt.Errorf("error listing %s files for device %s: %w", prefix, uuid, err)
	}
	return names, err
}

func (s DevicesFsHandle) RolloverFiles(uuid, prefix string, max int) error {
	if h, err := s.deviceLocalHandle(uuid, true); err != nil {
		return err
	} else if err = h.rolloverFiles(prefix, max); err != nil {
		return fmt.Errorf("error rolling over %s files for device %s: %w", prefix, uuid, err)
	}
	return nil
}

func (s DevicesFsHandle) deviceLocalHandle(uuid string, forUpdate bool) (h baseFsHandle, err error) {
	if !ValidDeviceId(uuid) {
		return h, fmt.Errorf("%w: %q", ErrInvalidDeviceId, uuid)
	}
	h.root = filepath.Join(s.root, uuid)
	if rel, relErr := filepath.Rel(s.root, h.root); relErr != nil || rel != uuid {
		return baseFsHandle{}, fmt.Errorf("%w: %q escapes the devices directory", ErrInvalidDeviceId, uuid)
	}
	if forUpdate {
		if err = h.mkdirs(0o744, true); err != nil {
			err = fmt.Errorf("unable to create file storage for device %s: %w", uuid, err)
		}
	}
	return
}

type baseFsHandle struct {
	root string
}

func (s baseFsHandle) mkdirs(mode os.FileMode, ignoreExists bool) error {
	if ignoreExists {
		return os.MkdirAll(s.root, mode)
	} else {
		return os.Mkdir(s.root, mode)
	}
}

func (s baseFsHandle) readFile(name string, ignoreNotExist bool) (string, error) {
	if content, err := os.ReadFile(filepath.Join(s.root, name)); err == nil {
		return string(content), nil
	} else if ignoreNotExist && errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else {
		return "", err
	}
}

func (s baseFsHandle) readFileLines(name string, ignoreNotExist bool) iter.Seq2[string, error] {
	// memory efficient way to read lines from a potentially large file
	return func(yield func(string, error) bool) {
		if fd, err := os.OpenFile(filepath.Join(s.root, name), os.O_RDONLY, 0); err != nil {
			if !ignoreNotExist || !errors.Is(err, os.ErrNotExist) {
				yield("", err)
			}
		} else {
			defer fd.Close()                // nolint:errcheck
			scanner := bufio.NewScanner(fd) // line reader
			for scanner.Scan() {
				if !yield(scanner.Text(), nil) {
					return
				}
			}
			if err = scanner.Err(); err != nil {
				yield("", err)
			}
		}
	}
}

func (s baseFsHandle) appendFile(name, content string, mode os.FileMode) error {
	// O_APPEND + O_SYNC on Linux warrants that concurrent file appends up to 1MB are serialized.
	fd, err := os.OpenFile(filepath.Join(s.root, name),
		os.O_CREATE|os.O_APPEND|syscall.O_SYNC|os.O_WRONLY, mode)
	if err == nil {
		_, err = fd.Write([]byte(content))
		if err != nil {
			_ = fd.Close()
		} else {
			err = fd.Close()
		}
	}
	return err
}

// rolloverFiles keeps the last max files of a prefix in name order; file
// names carry a sortable suffix.
func (s baseFsHandle) rolloverFiles(prefix string, max int) error {
	names, err := s.matchFiles(prefix, false)
	if err == nil {
		for i := 0; i < len(names)-max; i++ {
			if err = os.Remove(filepath.Join(s.root, names[i])); err != nil {
				break
			}
		}
	}
	return err
}

func (s baseFsHandle) matchFiles(prefix string, sortByModTime bool) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if info, err := entry.Info(); err != nil {
			return nil, err
		} else {
			name := info.Name()
			if strings.HasSuffix(name, partialFileSuffix) {
				continue
			} else if len(prefix) == 0 || strings.HasPrefix(name, prefix) {
				infos = append(infos, info)
			}
		}
	}
	if sortByModTime {
		slices.SortFunc(infos, func(a, b os.FileInfo) int {
			return a.ModTime().Compare(b.ModTime())
		})
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
