// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a file.
//
// # Formats
//
//   - Markdown (.md): readable transcript with bold spans and report links
//   - JSON (.json): every message with its markup, plain text and metadata
//
// # Usage
//
//	exp, _ := export.ForFormat("md", &export.Options{OutputDir: dir})
//	path, err := export.ExportToFile(history, exp, &export.Options{OutputDir: dir})
//
// Exports are explicit user actions; the chat itself keeps nothing on disk.
package export
