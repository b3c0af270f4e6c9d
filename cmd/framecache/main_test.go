package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/framecache/blobstore"
	"github.com/hupe1980/framecache/cachedir"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func buildArgs(dir string, extra ...string) []string {
	return append([]string{"build", dir, "-key", "sticker", "-frames", "12", "-width", "8", "-height", "6", "-log-level", "error"}, extra...)
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "usage: framecache")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "inspect <file>")

	code, _, _ = runCLI(t, "verify", "-frames", "3")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "build", t.TempDir(), "-frames", "3")
	assert.Equal(t, exitUsage, code)
}

func TestRun_BuildInspectVerify(t *testing.T) {
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, buildArgs(dir, "-compressor", "zstd")...)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "ready (built=true fetched=false published=false)")
	assert.Contains(t, stdout, "records: 12")
	assert.Contains(t, stdout, "compressor: zstd")

	file := filepath.Join(dir, "sticker"+cachedir.Ext)
	require.FileExists(t, file)

	code, stdout, stderr = runCLI(t, "inspect", file)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "(normal)")
	assert.Contains(t, stdout, "frames:         12")
	assert.Contains(t, stdout, "stored: 12 skipped: 0")
	assert.Contains(t, stdout, "FRAME")

	code, stdout, _ = runCLI(t, "inspect", file, "-records=false")
	require.Equal(t, exitOK, code)
	assert.NotContains(t, stdout, "FRAME")

	code, stdout, stderr = runCLI(t, "verify", file, "-frames", "12", "-log-level", "error")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, ": ready")

	code, stdout, _ = runCLI(t, "verify", file, "-frames", "13", "-log-level", "error")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stdout, ": not-ready")

	code, _, _ = runCLI(t, "verify", file, "-frames", "12", "-reduced", "-log-level", "error")
	assert.Equal(t, exitError, code)

	// Rebuilding an intact file only verifies it.
	code, stdout, _ = runCLI(t, buildArgs(dir)...)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "ready (built=false fetched=false published=false)")
}

func TestRun_BuildReduced(t *testing.T) {
	dir := t.TempDir()

	code, _, stderr := runCLI(t, buildArgs(dir, "-fps", "60", "-reduced")...)
	require.Equal(t, exitOK, code, stderr)

	code, stdout, stderr := runCLI(t, "inspect", filepath.Join(dir, "sticker"+cachedir.Ext))
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "(reduced)")
	assert.Contains(t, stdout, "stored: 6 skipped: 6")
}

func TestRun_BuildWithRemote(t *testing.T) {
	remote := t.TempDir()
	uri := "file://" + filepath.ToSlash(remote)

	code, stdout, stderr := runCLI(t, buildArgs(t.TempDir(), "-remote", uri)...)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "published=true")
	assert.FileExists(t, filepath.Join(remote, "sticker"+cachedir.Ext))

	code, stdout, stderr = runCLI(t, buildArgs(t.TempDir(), "-remote", uri)...)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "ready (built=false fetched=true published=false)")
}

func TestRun_InspectDamaged(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := runCLI(t, buildArgs(dir)...)
	require.Equal(t, exitOK, code)

	file := filepath.Join(dir, "sticker"+cachedir.Ext)
	info, err := os.Stat(file)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(file, info.Size()-3))

	code, _, stderr := runCLI(t, "inspect", file)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "framecache inspect:")

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte{0xAB}, 32), 0o644))
	code, _, stderr = runCLI(t, "inspect", junk)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "magic")
}

func TestRun_Prune(t *testing.T) {
	dir := t.TempDir()
	for _, key := range []string{"a", "b", "c"} {
		args := []string{"build", dir, "-key", key, "-frames", "4", "-width", "4", "-height", "4", "-log-level", "error"}
		code, _, stderr := runCLI(t, args...)
		require.Equal(t, exitOK, code, stderr)
	}

	code, _, _ := runCLI(t, "prune", dir)
	assert.Equal(t, exitUsage, code)

	code, stdout, stderr := runCLI(t, "prune", dir, "-max-size", "1", "-log-level", "error")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "removed: 3 remaining: 0 files, 0 bytes")

	code, _, _ = runCLI(t, "prune", filepath.Join(dir, "missing"), "-max-size", "1")
	assert.Equal(t, exitError, code)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	remote := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "framecache.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join([]string{
		"log_level: error",
		"compressor: s2",
		"remote: file://" + filepath.ToSlash(remote),
		"builds:",
		"  concurrency: 2",
	}, "\n")), 0o644))

	code, stdout, stderr := runCLI(t, "build", dir, "-config", cfgPath, "-key", "cfg", "-frames", "5", "-width", "4", "-height", "4")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "compressor: s2")
	assert.Contains(t, stdout, "published=true")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("compressor: brotli\n"), 0o644))
	_, err = loadConfig(bad)
	assert.ErrorContains(t, err, "invalid config")

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	level := filepath.Join(t.TempDir(), "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("log_level: loud\n"), 0o644))
	_, err = loadConfig(level)
	assert.Error(t, err)
}

func TestOpenRemote(t *testing.T) {
	ctx := context.Background()

	store, err := openRemote(ctx, "file://"+filepath.ToSlash(t.TempDir()))
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, store)

	for _, uri := range []string{
		"ftp://host/x",
		"s3://",
		"minio://host",
		"minio://host/bucket?secure=maybe",
		"file://",
	} {
		_, err := openRemote(ctx, uri)
		assert.Error(t, err, uri)
	}
}
