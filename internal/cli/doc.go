// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the medchat command tree.
//
// Running medchat without a subcommand opens the interactive chat UI.
// The subcommands cover scripted and line-mode use of the same backend:
//
//	medchat ask QUESTION [--raw] [--no-anim] [--wait-report]
//	medchat chat [--no-anim]
//	medchat progress [--once] [--until-report] [-n LINES]
//	medchat download NAME [--dir DIR]
//	medchat speak TEXT [--out FILE]
//	medchat config show|path|init|get|set
//	medchat version
//
// The chat REPL accepts slash commands such as /informe, /hablar and
// /exportar; /ayuda lists them.
//
// Colors are disabled automatically when stdout is not a terminal, and the
// NO_COLOR and FORCE_COLOR environment variables are honoured.
//
// Errors are returned from every command and mapped to exit codes in
// Execute; see ExitCode.
package cli
