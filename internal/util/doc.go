// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the medchat application.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: terminal-column truncation (go-runewidth)
//   - TailLines: newest lines of a log, width limited
//
// File Operations:
//   - AtomicWriteFile, AtomicWriteReader: crash-safe file writing with fsync
//
// # Usage
//
//	// Keep a progress panel inside the terminal
//	lines := util.TailLines(log, 8, width)
//
//	// Write files atomically to prevent partial downloads
//	n, err := util.AtomicWriteReader(path, body, 0644)
package util
