// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"path"
	"strings"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// SpeechRequest is the body of POST /text-to-speech.
type SpeechRequest struct {
	Text string `json:"text"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// QueryEnvelope is the JSON envelope returned by POST /query.
// Exactly which fields are populated depends on the backend pipeline.
type QueryEnvelope struct {
	Response   string `json:"response,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
}

// QueryResult is the decoded outcome of a chat query.
type QueryResult struct {
	// Text is the assistant text to display (response, summary or error).
	Text string
	// IsError is true when Text came from the envelope's error field.
	IsError bool
	// ReportPath names a generated report when the backend provided one.
	ReportPath string
	// Raw is the undecoded response body.
	Raw []byte
	// Structured is false when the body was not a JSON envelope.
	Structured bool
}

// ReportName returns the file name part of ReportPath.
func (r QueryResult) ReportName() string {
	if r.ReportPath == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(r.ReportPath, "\\", "/"))
}

// text picks the field to display, mirroring the backend contract:
// response, then summary, then error.
func (e QueryEnvelope) text() (string, bool) {
	switch {
	case e.Response != "":
		return e.Response, false
	case e.Summary != "":
		return e.Summary, false
	case e.Error != "":
		return e.Error, true
	}
	return "", false
}

// Audio is a synthesized speech payload.
type Audio struct {
	Data        []byte
	ContentType string
}

// errorBody is the JSON shape the backend uses for download failures.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}
