package importstate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarkAndCheck verifies that a recorded hash is reported as imported for
// the same server only.
func TestMarkAndCheck(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ok, err := db.IsImported(ctx, "abc", "http://a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.MarkImported(ctx, Record{Hash: "abc", Server: "http://a", Path: "export.csv", Sessions: 3, Sets: 40}))

	ok, err = db.IsImported(ctx, "abc", "http://a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IsImported(ctx, "abc", "http://b")
	require.NoError(t, err)
	assert.False(t, ok, "another server has not seen the file")
}

// TestMarkTwice verifies that re-marking a file replaces the earlier record.
func TestMarkTwice(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.MarkImported(ctx, Record{Hash: "h", Server: "s", Path: "old.csv", ImportedAt: first}))
	require.NoError(t, db.MarkImported(ctx, Record{Hash: "h", Server: "s", Path: "new.csv", Sessions: 1, ImportedAt: first.Add(time.Hour)}))
	require.NoError(t, db.MarkImported(ctx, Record{Hash: "other", Server: "s", Path: "b.csv", ImportedAt: first.Add(-time.Hour)}))

	recent, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new.csv", recent[0].Path)
	assert.Equal(t, 1, recent[0].Sessions)
	assert.Equal(t, "b.csv", recent[1].Path)
}

// TestStatePersists verifies that state survives reopening the database.
func TestStatePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.MarkImported(ctx, Record{Hash: "h", Server: "s", Path: "a.csv"}))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	ok, err := db.IsImported(ctx, "h", "s")
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestHashFile verifies the SHA-256 of a known input.
func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
