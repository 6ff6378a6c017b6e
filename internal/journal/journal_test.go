package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAssignsIDAndTime(t *testing.T) {
	s := setupStore(t)
	e := &Entry{Operation: "devspace_version", Subcommand: "version", Outcome: "success"}
	require.NoError(t, s.Record(context.Background(), e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.StartedAt.IsZero())
}

func TestRecentNewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Record(ctx, &Entry{Operation: "devspace_build", Args: []string{"--image", "web"}, Outcome: "success", StartedAt: base}))
	require.NoError(t, s.Record(ctx, &Entry{Operation: "devspace_deploy", Outcome: "failed", ExitCode: 1, Error: "boom", StartedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, s.Record(ctx, &Entry{Operation: "devspace_logs", Outcome: "timeout", StartedAt: base.Add(time.Second)}))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "devspace_logs", got[0].Operation)
	assert.Equal(t, "devspace_deploy", got[1].Operation)
	assert.Equal(t, 1, got[1].ExitCode)
	assert.Equal(t, "boom", got[1].Error)
	assert.True(t, base.Add(500*time.Millisecond).Equal(got[1].StartedAt))

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"--image", "web"}, all[2].Args)
	assert.Equal(t, []string{}, all[1].Args)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), &Entry{Operation: "devspace_version", Outcome: "success"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
