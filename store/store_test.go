package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groups/snapshot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "groups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig() *snapshot.Configuration {
	return &snapshot.Configuration{
		Name: "class 3b",
		Students: []snapshot.Student{
			{ID: 1, Name: "Ana", Gender: "female", IsLeader: true, Preferences: []int{2}},
			{ID: 2, Name: "Ben", Gender: "male", Preferences: []int{}},
		},
		Constraints: []snapshot.Constraint{
			{ID: "c1", Type: "cannot_be_together", Students: []int{1, 2}, Enabled: false},
		},
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported database driver "mysql"`)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.db")
	s, err := Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSnapshotCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	list, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := s.CreateSnapshot(ctx, "class 3b", testConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.GetSnapshot(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "class 3b", got.Name)
	assert.Equal(t, testConfig(), got.Config)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	list, err = s.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Nil(t, list[0].Config)

	require.NoError(t, s.DeleteSnapshot(ctx, created.ID))
	_, err = s.GetSnapshot(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSnapshot(ctx, created.ID), ErrNotFound)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	snap, err := s.CreateSnapshot(ctx, "runs", testConfig())
	require.NoError(t, err)

	solved := &Run{
		SnapshotID: snap.ID,
		GroupSize:  2,
		Seed:       42,
		Attempts:   3,
		Outcome:    OutcomeSolved,
		Groups:     []snapshot.Group{{ID: 1, Students: []int{1, 2}}},
		Stats:      snapshot.Stats{GroupsWithLeader: 1, PreferencesSatisfied: 1},
	}
	require.NoError(t, s.CreateRun(ctx, solved))
	assert.NotEmpty(t, solved.ID)

	failed := &Run{SnapshotID: snap.ID, GroupSize: 1, Seed: 7, Attempts: 1000, Outcome: OutcomeNoSolution}
	require.NoError(t, s.CreateRun(ctx, failed))

	runs, err := s.ListRuns(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]Run{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	got := byID[solved.ID]
	assert.Equal(t, solved.Groups, got.Groups)
	assert.Equal(t, solved.Stats, got.Stats)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, OutcomeNoSolution, byID[failed.ID].Outcome)
	assert.Empty(t, byID[failed.ID].Groups)

	require.NoError(t, s.DeleteSnapshot(ctx, snap.ID))
	_, err = s.ListRuns(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: "postgres"}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &Store{driver: "sqlite"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
