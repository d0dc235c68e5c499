// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/medchat-tui/internal/conversation"
)

// =============================================================================
// TEST BACKEND
// =============================================================================

// fakeBackend serves the four backend endpoints from canned values.
type fakeBackend struct {
	mu       sync.Mutex
	queries  []string
	spoken   []string
	query    string
	progress string
	reports  map[string][]byte
	progHits int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.URL.Path == "/query":
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.queries = append(b.queries, req.Query)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, b.query)

	case r.URL.Path == "/progress":
		b.progHits++
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, b.progress)

	case strings.HasPrefix(r.URL.Path, "/download/"):
		data, ok := b.reports[strings.TrimPrefix(r.URL.Path, "/download/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(data)

	case r.URL.Path == "/text-to-speech":
		var req struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.spoken = append(b.spoken, req.Text)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-fake-mp3"))

	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

// testEnv isolates a test from the user's config and points medchat at a
// fake backend. It returns the backend, its URL and the download dir.
func testEnv(t *testing.T) (*fakeBackend, string, string) {
	t.Helper()

	b := &fakeBackend{
		query:   `{"response": "Sin hallazgos"}`,
		reports: map[string][]byte{},
	}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	home := t.TempDir()
	downloads := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "")
	t.Setenv("MEDCHAT_BACKEND_URL", srv.URL)
	t.Setenv("MEDCHAT_DOWNLOAD_DIR", downloads)
	t.Setenv("MEDCHAT_POLL_INTERVAL_MS", "100")
	ForceColorsEnabled(false)

	return b, srv.URL, downloads
}

// runCLI executes the command tree with args and captures its output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsFormattedAnswer(t *testing.T) {
	b, _, _ := testEnv(t)
	b.query = `{"response": "**Tumor** detectado*Grado II"}`

	out, _, err := runCLI(t, "ask", "¿Qué", "ves?")
	require.NoError(t, err)

	assert.Equal(t, []string{"¿Qué ves?"}, b.Queries())
	assert.Contains(t, out, "Asistente:")
	assert.Contains(t, out, "Tumor detectado\nGrado II")
	assert.NotContains(t, out, "<b>")
}

func TestAsk_ReportLink(t *testing.T) {
	b, url, _ := testEnv(t)
	b.query = `{"summary": "Segmentación completa", "report_path": "/srv/out/reporte_P001.pdf"}`

	out, _, err := runCLI(t, "ask", "--no-anim", "segmenta")
	require.NoError(t, err)

	assert.Contains(t, out, "Segmentación completa")
	assert.Contains(t, out, "[download: reporte_P001.pdf]")
	assert.Contains(t, out, url+"/download/reporte_P001.pdf")
}

func TestAsk_BackendDownPrintsFallback(t *testing.T) {
	testEnv(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	out, _, err := runCLI(t, "ask", "--backend", dead.URL, "hola")
	require.NoError(t, err)
	assert.Contains(t, out, conversation.FallbackPrefix)
}

func TestAsk_Raw(t *testing.T) {
	b, _, _ := testEnv(t)
	b.query = `{"response":"hola","report_path":"x/report_1.pdf"}`

	out, _, err := runCLI(t, "ask", "--raw", "hola")
	require.NoError(t, err)
	assert.Contains(t, out, `"response": "hola"`)
	assert.Contains(t, out, `"report_path": "x/report_1.pdf"`)
	assert.NotContains(t, out, "\x1b[")
}

func TestAsk_RawPlainBody(t *testing.T) {
	b, _, _ := testEnv(t)
	b.query = "texto plano"

	out, _, err := runCLI(t, "ask", "--raw", "hola")
	require.NoError(t, err)
	assert.Equal(t, "texto plano\n", out)
}

func TestAsk_RawUnreachable(t *testing.T) {
	testEnv(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	_, _, err := runCLI(t, "ask", "--raw", "--backend", dead.URL, "hola")
	require.Error(t, err)
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestAsk_RawExcludesWaitReport(t *testing.T) {
	testEnv(t)
	_, _, err := runCLI(t, "ask", "--raw", "--wait-report", "hola")
	assert.Error(t, err)
}

func TestAsk_WaitReportDownloadsAnswerReport(t *testing.T) {
	b, _, downloads := testEnv(t)
	b.query = `{"response": "Informe listo", "report_path": "/out/reporte_P001.pdf"}`
	b.progress = "Paso 1: segmentación\nGuardado reporte_OLD.pdf\n"
	b.reports["reporte_P001.pdf"] = []byte("%PDF-1.4 nuevo")
	b.reports["reporte_OLD.pdf"] = []byte("%PDF-1.4 viejo")

	out, errOut, err := runCLI(t, "ask", "--wait-report", "genera el informe")
	require.NoError(t, err)

	assert.Contains(t, errOut, "Paso 1: segmentación")
	assert.Contains(t, out, "Informe guardado en")

	data, err := os.ReadFile(filepath.Join(downloads, "reporte_P001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 nuevo", string(data))
	assert.NoFileExists(t, filepath.Join(downloads, "reporte_OLD.pdf"))
}

func TestAsk_WaitReportFallsBackToProgress(t *testing.T) {
	b, _, downloads := testEnv(t)
	b.query = `{"response": "Listo"}`
	b.progress = "Generando...\nPDF escrito en /tmp/report_brain.pdf\n"
	b.reports["report_brain.pdf"] = []byte("%PDF")

	_, _, err := runCLI(t, "ask", "--wait-report", "informe")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(downloads, "report_brain.pdf"))
}

func TestAsk_WaitReportWithoutReport(t *testing.T) {
	b, _, _ := testEnv(t)
	b.progress = "Paso 1\n"

	_, errOut, err := runCLI(t, "ask", "--wait-report", "hola")
	require.NoError(t, err)
	assert.Contains(t, errOut, "No se generó ningún informe")
}

// =============================================================================
// DOWNLOAD / PROGRESS / SPEAK
// =============================================================================

func TestDownload(t *testing.T) {
	b, _, _ := testEnv(t)
	b.reports["reporte_P002.pdf"] = []byte("%PDF-1.7")
	dir := t.TempDir()

	out, _, err := runCLI(t, "download", "reporte_P002.pdf", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Informe guardado en")
	assert.Contains(t, out, "blake2b-256 ")

	data, err := os.ReadFile(filepath.Join(dir, "reporte_P002.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestDownload_Errors(t *testing.T) {
	testEnv(t)

	_, _, err := runCLI(t, "download", "../../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = runCLI(t, "download", "reporte_missing.pdf")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestProgress_Once(t *testing.T) {
	b, _, _ := testEnv(t)
	b.progress = "uno\ndos\ntres\nguardado reporte_P003.pdf\n"

	out, _, err := runCLI(t, "progress", "--once", "-n", "2")
	require.NoError(t, err)
	assert.NotContains(t, out, "dos")
	assert.Contains(t, out, "tres\n")
	assert.Contains(t, out, "Informe disponible: reporte_P003.pdf")
}

func TestProgress_OnceEmpty(t *testing.T) {
	testEnv(t)
	out, _, err := runCLI(t, "progress", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Esperando progreso...")
}

func TestProgress_UntilReport(t *testing.T) {
	b, _, _ := testEnv(t)
	b.progress = "Paso A\nreport_42.pdf listo\n"

	out, _, err := runCLI(t, "progress", "--until-report")
	require.NoError(t, err)
	assert.Contains(t, out, "Paso A")
	assert.Contains(t, out, "Informe disponible: report_42.pdf")
}

func TestSpeak_Out(t *testing.T) {
	b, _, _ := testEnv(t)
	path := filepath.Join(t.TempDir(), "voz.mp3")

	out, _, err := runCLI(t, "speak", "--out", path, "Buenos", "días")
	require.NoError(t, err)
	assert.Contains(t, out, "Audio guardado")
	assert.Equal(t, []string{"Buenos días"}, b.spoken)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3-fake-mp3", string(data))
}

// =============================================================================
// CONFIG / VERSION
// =============================================================================

func TestConfigCommands(t *testing.T) {
	testEnv(t)
	os.Unsetenv("MEDCHAT_POLL_INTERVAL_MS")

	out, _, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, "config.toml", filepath.Base(path))

	_, _, err = runCLI(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, _, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))

	_, _, err = runCLI(t, "config", "set", "progress.interval_ms", "1500")
	require.NoError(t, err)

	out, _, err = runCLI(t, "config", "get", "progress.interval_ms")
	require.NoError(t, err)
	assert.Equal(t, "1500\n", out)

	out, _, err = runCLI(t, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"interval_ms": 1500`)

	out, _, err = runCLI(t, "config", "show", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "interval_ms: 1500")

	out, _, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "interval_ms = 1500")

	_, _, err = runCLI(t, "config", "set", "progress.interval_ms", "5")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))

	_, _, err = runCLI(t, "config", "get", "no.such.key")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestInvalidConfigFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "medchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: neon\n"), 0600))

	_, _, err := runCLI(t, "--config", path, "ask", "hola")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "medchat "+Version), out)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitUsageError, ExitCode(usageErrorf("bad %s", "arg")))
	assert.Equal(t, ExitConfigError, ExitCode(&ConfigError{Cause: io.EOF}))
	assert.Equal(t, ExitInterrupted, ExitCode(context.Canceled))
	assert.Equal(t, ExitTimeoutError, ExitCode(context.DeadlineExceeded))
	assert.Equal(t, ExitGeneralError, ExitCode(io.ErrUnexpectedEOF))
}
