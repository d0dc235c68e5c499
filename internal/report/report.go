// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report saves generated PDF reports from the backend to disk.
package report

import (
	"context"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/jeranaias/medchat-tui/internal/util"
)

// namePattern is the only file name shape the backend produces.
var namePattern = regexp.MustCompile(`^(?i)reporte?_\w+\.pdf$`)

// ErrInvalidName is returned for names that are not plain report file names.
var ErrInvalidName = errors.New("invalid report file name")

// Downloader opens the document stream for a report.
type Downloader interface {
	Download(ctx context.Context, name string) (io.ReadCloser, error)
}

// Result describes a saved report.
type Result struct {
	Path   string
	Bytes  int64
	Digest string // blake2b-256, hex
}

// ValidateName rejects anything that is not a bare report file name, which
// includes any path separator or traversal.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	if !namePattern.MatchString(name) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// Save downloads the report name into dir. The file appears atomically;
// a failed download leaves no partial file behind.
func Save(ctx context.Context, d Downloader, name, dir string) (*Result, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}

	body, err := d.Download(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", name)
	}
	defer body.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, errors.Wrap(err, "init digest")
	}

	path := filepath.Join(dir, name)
	n, err := util.AtomicWriteReader(path, io.TeeReader(body, h), 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "save %s", name)
	}

	res := &Result{Path: path, Bytes: n, Digest: digest(h)}
	log.Info().
		Str("path", res.Path).
		Int64("bytes", res.Bytes).
		Str("blake2b", res.Digest).
		Msg("report saved")
	return res, nil
}

// DefaultDir returns the directory reports are saved to when none is
// configured: ~/Downloads if it exists, else the working directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err == nil {
		dl := filepath.Join(home, "Downloads")
		if info, err := os.Stat(dl); err == nil && info.IsDir() {
			return dl
		}
	}
	return "."
}

func digest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
