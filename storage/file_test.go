// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidDeviceId(t *testing.T) {
	for _, id := range []string{"a", "dev-1", "1234-567-890", "gw-01:eth0.2", "A_b", strings.Repeat("a", MaxDeviceIdLen)} {
		assert.True(t, ValidDeviceId(id), id)
	}
	for _, id := range []string{"", ".", "..", ".hidden", "-x", "a/b", `a\b`, "../x", "a b", strings.Repeat("a", MaxDeviceIdLen+1)} {
		assert.False(t, ValidDeviceId(id), id)
	}
}

func TestDeviceFilesStayUnderDevicesDir(t *testing.T) {
	fs, err := NewFs(t.TempDir())
	require.Nil(t, err)

	require.ErrorIs(t, fs.Devices.AppendFile("..", "security-1", "x\n"), ErrInvalidDeviceId)
	require.ErrorIs(t, fs.Devices.RolloverFiles("..", "security-", 1), ErrInvalidDeviceId)
	_, err = fs.Devices.ReadFile("..", DbFile)
	require.ErrorIs(t, err, ErrInvalidDeviceId)
	_, err = fs.Devices.ListFiles(".", "", false)
	require.ErrorIs(t, err, ErrInvalidDeviceId)

	_, err = os.Stat(filepath.Join(fs.Config.RootDir(), "security-1"))
	assert.True(t, os.IsNotExist(err))

	require.Nil(t, fs.Devices.AppendFile("dev-1", "security-1", "x\n"))
	content, err := fs.Devices.ReadFile("dev-1", "security-1")
	require.Nil(t, err)
	assert.Equal(t, "x\n", content)
	_, err = os.Stat(filepath.Join(fs.Config.DevicesDir(), "dev-1", "security-1"))
	assert.Nil(t, err)
}
