// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages.
//
// # Key Types
//
//   - Message: single history entry with role, markup content and timestamp
//   - Role: message role enumeration (user, assistant)
//
// # Usage
//
//	msg := model.NewUserMessage("Segmenta la imagen de Marta")
//	fmt.Println(msg.Role.DisplayName(), msg.Preview(40))
package model
