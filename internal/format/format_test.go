// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "no markers here", "no markers here"},
		{"bold then break", "Hello **world** *test*", "Hello <b>world</b> <br>test"},
		{"two bold spans", "**a** and **b**", "<b>a</b> and <b>b</b>"},
		{"bullet list", "Items:* one* two", "Items:<br> one<br> two"},
		{"unpaired double marker", "start **open", "start <b>open</b>"},
		{"stray single marker", "a*b", "a<br>b"},
		{"trailing marker", "done*", "done"},
		{"empty", "", ""},
		{"only markers", "*", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.raw))
		})
	}
}

func TestFormat_BoldCountMatchesSegments(t *testing.T) {
	inputs := []string{
		"**x**",
		"a **b** c **d** e",
		"**1****2****3**",
		"lead **mid** tail",
	}

	for _, raw := range inputs {
		segments := strings.Split(raw, BoldMarker)
		want := (len(segments) - 1) / 2
		assert.Equal(t, want, CountBold(Format(raw)), "input %q", raw)
	}
}

func TestFormat_IdempotentWithoutMarkers(t *testing.T) {
	inputs := []string{
		"Hello **world** *test*",
		"plain",
		"**bold** line*next",
	}

	for _, raw := range inputs {
		once := Format(raw)
		require.False(t, hasMarkers(once), "formatted output still has markers: %q", once)
		assert.Equal(t, once, Format(once))
	}
}

func TestFormat_Pure(t *testing.T) {
	raw := "El **tumor** detectado*Probabilidad: 0.87"
	assert.Equal(t, Format(raw), Format(raw))
}

func TestFormatWithReport(t *testing.T) {
	out := FormatWithReport("**Listo**", "http://localhost:8000/download/reporte_abc.pdf")

	assert.True(t, strings.HasPrefix(out, "<b>Listo</b><br>"))
	assert.Contains(t, out, `href="http://localhost:8000/download/reporte_abc.pdf"`)
	assert.Contains(t, out, DownloadLabel)

	assert.Equal(t, "x", FormatWithReport("x", ""))
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestPlain(t *testing.T) {
	markup := Format("Hello **world** *test*")
	assert.Equal(t, "Hello world \ntest", Plain(markup))
}

func TestPlain_ReportLink(t *testing.T) {
	markup := FormatWithReport("ok", "/download/reporte_x1.pdf")
	assert.Equal(t, "ok\n[download: reporte_x1.pdf]", Plain(markup))
}

func TestRender_UnclosedBoldRunsToEnd(t *testing.T) {
	out := Render("a<b>b", PlainStyle())
	assert.Equal(t, "ab", out)
}

func TestReportHref(t *testing.T) {
	href, ok := ReportHref(FormatWithReport("x", "/download/reporte_1.pdf"))
	require.True(t, ok)
	assert.Equal(t, "/download/reporte_1.pdf", href)

	_, ok = ReportHref("<b>none</b>")
	assert.False(t, ok)
}

func TestRenderPartial_HidesIncompleteLink(t *testing.T) {
	full := FormatWithReport("Informe listo", "http://localhost:8000/download/reporte_1.pdf")
	partial := full[:len(full)-10]

	assert.Equal(t, "Informe listo\n", RenderPartial(partial, PlainStyle()))
	assert.Equal(t, "Informe listo\n[download: reporte_1.pdf]", RenderPartial(full, PlainStyle()))
}

func TestMarkdown(t *testing.T) {
	markup := FormatWithReport("**Glioma** grado II*Ver informe", "http://h/download/reporte_1.pdf")
	assert.Equal(t,
		"**Glioma** grado II  \nVer informe  \n["+DownloadLabel+"](http://h/download/reporte_1.pdf)",
		Markdown(markup))
	assert.Equal(t, "sin marcas", Markdown("sin marcas"))
}
