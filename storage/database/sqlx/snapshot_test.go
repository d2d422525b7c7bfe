package sqlxrepos_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studygroups/core/study"
	"github.com/trezcool/studygroups/storage/database"
	sqlxrepos "github.com/trezcool/studygroups/storage/database/sqlx"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, database.EngineSQLite))
	return db
}

func sampleSnapshot(t *testing.T) study.Snapshot {
	t.Helper()
	c := study.NewCatalog(study.DefaultPolicy, rand.New(rand.NewSource(1)))
	_, err := c.AddSubject("CS101")
	require.NoError(t, err)
	_, err = c.AddSubject("MA201")
	require.NoError(t, err)
	for _, lang := range []string{"English", "Tamil"} {
		_, err = c.AddLanguage("CS101", lang)
		require.NoError(t, err)
	}

	p, err := c.Pool("CS101", "English")
	require.NoError(t, err)
	marks := []float64{90, 80, 77, 76, 60, 55, 50, 45, 41, 65, 20, 10, 5, 1}
	for i, m := range marks {
		_, err := p.Enqueue(study.Student{ID: i + 1, Name: "student", Email: "s@example.com", Marks: m})
		require.NoError(t, err)
	}
	require.Len(t, p.FormGroups(), 2)
	_, err = p.Disband(1)
	require.NoError(t, err)
	_, err = p.AddRating(2, 4.5)
	require.NoError(t, err)
	_, err = p.AddRating(2, 1)
	require.NoError(t, err)

	return c.Snapshot()
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlxrepos.NewSnapshotRepository(db)

	empty, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Subjects)

	snap := sampleSnapshot(t)
	require.NoError(t, repo.SaveSnapshot(ctx, snap))

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("LoadSnapshot() mismatch (-want +got):\n%s", diff)
	}

	// saving replaces everything
	smaller := study.Snapshot{Subjects: []study.SubjectSnapshot{{Code: "PH110"}}}
	require.NoError(t, repo.SaveSnapshot(ctx, smaller))
	got, err = repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller, got)

	var students int
	require.NoError(t, db.GetContext(ctx, &students, "SELECT COUNT(*) FROM students"))
	assert.Zero(t, students)
}

func TestSnapshotRepository_rollback(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewSnapshotRepository(newTestDB(t))

	snap := sampleSnapshot(t)
	require.NoError(t, repo.SaveSnapshot(ctx, snap))

	// the same student twice breaks the primary key
	student := study.Student{ID: 1, Name: "dup", Marks: 50, Label: study.LabelMid}
	bad := study.Snapshot{Subjects: []study.SubjectSnapshot{{
		Code: "XX100",
		Languages: []study.PoolSnapshot{{
			Language:    "English",
			NextGroupID: 1,
			Waiting:     []study.Student{student, student},
		}},
	}}}
	assert.Error(t, repo.SaveSnapshot(ctx, bad))

	got, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("LoadSnapshot() after failed save mismatch (-want +got):\n%s", diff)
	}
}
