package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtimber/pkg/config/xconf"
	"github.com/omeyang/xtimber/pkg/observability/xconsole"
	"github.com/omeyang/xtimber/pkg/observability/xsink"
	"github.com/omeyang/xtimber/pkg/observability/xtimber"
)

// syncBuffer 是并发安全的 bytes.Buffer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testdataDir 返回 testdata 的绝对路径
func testdataDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	return dir
}

// runCLI 以 www overlay 运行命令，返回退出码与输出。
// 命令在临时目录中执行，FILE profile 的相对路径不会落到源码目录。
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv(xconf.EnvEnvironment, "")
	t.Setenv(xconf.EnvConfigsDir, "")

	data := testdataDir(t)
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	app := createApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	full := append([]string{"xtimberctl", "-c", filepath.Join(data, "timber.yaml"), "-e", "www", "-d", data}, args...)
	code = runApp(context.Background(), app, full)
	return code, out.String(), errOut.String()
}

func TestParseTokens(t *testing.T) {
	tokens, err := parseTokens([]string{"FILE", "DEFAULT", "", ` {"tag":"Disk"}`})
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, "FILE", tokens[0].Name())
	assert.True(t, tokens[1].IsDefault())
	assert.True(t, tokens[2].IsDefault())
	assert.True(t, tokens[3].IsOverride())
	assert.Equal(t, `["FILE" DEFAULT DEFAULT {"tag":"Disk"}]`, xtimber.KeyOf(tokens...).String())

	_, err = parseTokens([]string{"{broken"})
	var usageErr *usageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestParseValues(t *testing.T) {
	got := parseValues([]string{"42", `{"a":true}`, "plain text", "[1,2]"})
	assert.Equal(t, []any{float64(42), map[string]any{"a": true}, "plain text", []any{float64(1), float64(2)}}, got)
}

func TestProfilesCommand(t *testing.T) {
	code, out, _ := runCLI(t, "profiles")
	require.Equal(t, 0, code)

	assert.Equal(t, []string{"DEFAULT", "EMAIL", "FILE", "FIREPHP", "# overlay: " + filepath.Join(testdataDir(t), "timber.www.yaml")},
		strings.Split(strings.TrimSpace(out), "\n"))
}

func TestResolveCommand(t *testing.T) {
	code, out, _ := runCLI(t, "resolve", "FILE", `{"tag":"Disk"}`, "EMAIL")
	require.Equal(t, 0, code)

	assert.Contains(t, out, `logger ["FILE" {"tag":"Disk"} "EMAIL"]`)
	assert.Contains(t, out, `"tag": "Disk"`)
	assert.Contains(t, out, `"sink": "file"`)
	assert.Contains(t, out, "child 1 (Email):")
	assert.Contains(t, out, `"emails": "timber@mailinator.com"`)
}

func TestResolveCommand_DefaultWhenEmpty(t *testing.T) {
	code, out, _ := runCLI(t, "resolve")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "logger [DEFAULT]")
	assert.Contains(t, out, `"level": "FATAL"`)
}

func TestEmitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emit.log")
	override := `{"sink_options":{"file":` + mustJSON(t, path) + `}}`

	code, _, stderr := runCLI(t, "emit", "--level", "WARN", "-m", "disk almost full",
		"--value", "93", "--value", "percent", "FILE", override)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `level=WARN msg="disk almost full" tag=File values="[93 percent]"`)
}

func TestEmitCommand_Filtered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emit.log")
	override := `{"level":"ERROR","sink_options":{"file":` + mustJSON(t, path) + `}}`

	code, _, _ := runCLI(t, "emit", "--level", "DEBUG", "-m", "quiet", "FILE", override)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(path)
	if err == nil {
		assert.NotContains(t, string(data), "quiet")
	}
}

func TestEmitCommand_UsageErrors(t *testing.T) {
	code, _, stderr := runCLI(t, "emit", "--level", "LOUD", "-m", "x")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "参数错误")

	code, _, _ = runCLI(t, "emit", "-m", "x", "{nope")
	assert.Equal(t, 2, code)
}

func TestMissingConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	app := createApp()
	app.Writer, app.ErrWriter = &out, &errOut

	code := runApp(context.Background(), app, []string{"xtimberctl", "-c", "testdata/missing.yaml", "profiles"})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "错误:")
}

func TestWatchStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timber.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT:\n  level: ERROR\n"), 0o600))

	store, err := xconf.NewStore(xconf.WithBaseFile(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchStore(ctx, &out, store, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "watching") },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT:\n  level: ERROR\nAUDIT:\n  tag: Audit\n"), 0o600))

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "AUDIT") },
		2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "reloaded")
}

func TestDemoHandler(t *testing.T) {
	store, err := xconf.NewStore(xconf.WithBaseFile("testdata/timber.yaml"), xconf.WithOverlay("www", "testdata"))
	require.NoError(t, err)

	reg, err := xtimber.NewRegistry(store,
		xtimber.WithSinks(xsink.Builtin()),
		xtimber.WithTransport(xconsole.Lookup),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	tokens, err := parseTokens([]string{"FIREPHP", `{"sink":"discard"}`})
	require.NoError(t, err)
	handler := xconsole.Middleware()(newDemoHandler(reg, tokens))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?level=ERROR&msg=lookup+failed", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := xconsole.Decode(rec.Header().Get(xconsole.HeaderName))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, strings.HasPrefix(entries[0].Message, "request in "), entries[0].Message)
	assert.Contains(t, entries[0].Message, "serve.go")
	assert.Equal(t, "", entries[0].Type)
	assert.True(t, strings.HasPrefix(entries[1].Message, "lookup failed in "))
	assert.Equal(t, "error", entries[1].Type)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?level=LOUD&msg=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
