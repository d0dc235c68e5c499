// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"
)

// formatTimestamp formats a message time for display:
//   - Today: just time (e.g., "15:04")
//   - Older: date and time (e.g., "02/01 15:04")
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01 15:04")
}

// sizeInfo describes a text length for status messages.
func sizeInfo(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d caracteres", n)
	}
	return fmt.Sprintf("%.1fK caracteres", float64(n)/1000)
}
