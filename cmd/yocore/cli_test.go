package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yologdev/yocore/internal/config"
)

func TestInit_WritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	app := newApp("test")
	err := app.Run([]string{"yocore", "--init", "--config", path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got config.Config
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, config.Default().Server.Port, got.Server.Port)
}

func TestInit_RefusesWhenReadOnly(t *testing.T) {
	t.Setenv("YOLOG_CONFIG_READONLY", "true")

	dir := t.TempDir()
	app := newApp("test")
	err := app.Run([]string{"yocore", "--init", "--config", filepath.Join(dir, "config.json")})
	require.Error(t, err)

	var exitErr interface{ ExitCode() int }
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestInit_ExitsTwoWhenConfigAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	_, err := config.WriteDefault(dir)
	require.NoError(t, err)

	app := newApp("test")
	runErr := app.Run([]string{"yocore", "--init", "--config", filepath.Join(dir, "config.json")})
	require.Error(t, runErr)

	var exitErr interface{ ExitCode() int }
	require.ErrorAs(t, runErr, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestBuildLogger_VerboseEnablesDebug(t *testing.T) {
	quiet, err := buildLogger(false)
	require.NoError(t, err)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))

	verbose, err := buildLogger(true)
	require.NoError(t, err)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
}

func TestIsPortInUse(t *testing.T) {
	assert.True(t, isPortInUse(&os.SyscallError{Syscall: "bind", Err: syscall.EADDRINUSE}))
	assert.False(t, isPortInUse(errors.New("some other failure")))
}
