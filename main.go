// medchat - A terminal client for the medical imaging assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/medchat-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = ""
)

func main() {
	cli.Version = Version
	cli.Commit = GitCommit
	os.Exit(cli.Execute())
}
