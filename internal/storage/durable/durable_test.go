package durable

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabaseAndSchema(t *testing.T) {
	tmpDir := t.TempDir()

	b, err := Open(tmpDir)
	require.NoError(t, err)
	defer b.Close()

	dbPath := filepath.Join(tmpDir, "yocore.db")
	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	var name string
	err = b.reader.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='memories'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "memories", name)
}

func TestOpen_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	b1, err := Open(tmpDir)
	require.NoError(t, err)
	b1.Close()

	b2, err := Open(tmpDir)
	require.NoError(t, err)
	defer b2.Close()

	version, err := getUserVersion(b2.writer)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestUpsertProject_IdempotentByFolderPath(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	p1, err := b.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)

	p2, err := b.UpsertProject(ctx, "/repo/a", "a-renamed")
	require.NoError(t, err)

	require.Equal(t, p1.ID, p2.ID)
}

func TestFindOrCreateSession(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	p, err := b.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)

	s1, err := b.FindOrCreateSession(ctx, p.ID, "/repo/a/session1.jsonl", "claude_code")
	require.NoError(t, err)

	s2, err := b.FindOrCreateSession(ctx, p.ID, "/repo/a/session1.jsonl", "claude_code")
	require.NoError(t, err)

	require.Equal(t, s1.ID, s2.ID)
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}
