// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the medchat application.
package util

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// RELIABILITY: Atomic write with fsync prevents partial files on crash
//
// AtomicWriteFile writes data to a file atomically:
// 1. Write to a temporary file in the same directory
// 2. Sync the data to disk using fsync
// 3. Close the file
// 4. Atomically rename the temp file to the target path
//
// On failure the target is left untouched.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	_, err := AtomicWriteReader(path, bytes.NewReader(data), perm)
	return err
}

// AtomicWriteReader streams r into path atomically and returns the number
// of bytes written. Parent directories are created with 0755.
func AtomicWriteReader(path string, r io.Reader, perm os.FileMode) (int64, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get absolute path")
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, errors.Wrap(err, "failed to create parent directory")
	}

	// Same directory so the rename stays on one filesystem.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return 0, errors.Wrap(err, "failed to create temp file")
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, errors.Wrap(err, "failed to write data")
	}

	if err := f.Sync(); err != nil {
		return n, errors.Wrap(err, "failed to sync data to disk")
	}

	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return n, errors.Wrap(err, "failed to close temp file")
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return n, errors.Wrap(err, "failed to set file permissions")
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		return n, errors.Wrap(err, "failed to rename temp file")
	}

	success = true
	return n, nil
}
