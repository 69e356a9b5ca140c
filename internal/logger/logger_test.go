package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 修改全局 log 输出，不能并行
func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	require.NoError(t, Init(path))
	t.Cleanup(Close)

	LogInfo("hello %s", "world")
	LogError("boom %d", 42)
	LogPanic("oops")

	assert.Equal(t, path, GetLogPath())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] hello world")
	assert.Contains(t, string(data), "[ERROR] boom 42")
	assert.Contains(t, string(data), "[PANIC] oops")
}

func TestInit_EmptyPath(t *testing.T) {
	assert.NoError(t, Init(""))
	assert.NotPanics(t, Close)
}

func TestInit_RotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")
	require.NoError(t, os.WriteFile(path, make([]byte, maxLogSize+1), 0o644))

	require.NoError(t, Init(path))
	t.Cleanup(Close)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(maxLogSize))
}
