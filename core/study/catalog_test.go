package study

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(DefaultPolicy, rand.New(rand.NewSource(1)))
	for _, code := range []string{"CS101", "MA201"} {
		_, err := c.AddSubject(code)
		require.NoError(t, err)
	}
	for _, lang := range []string{"English", "Tamil"} {
		_, err := c.AddLanguage("CS101", lang)
		require.NoError(t, err)
	}
	return c
}

func TestCatalog_AddSubject(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name    string
		code    string
		want    string
		wantErr error
	}{
		{name: "normalized", code: "  ph110 ", want: "PH110"},
		{name: "exists", code: "cs101", wantErr: ErrSubjectExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.AddSubject(tt.code)
			if err != tt.wantErr {
				t.Fatalf("AddSubject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("AddSubject() got = %q, want %q", got, tt.want)
			}
		})
	}
	assert.Equal(t, []string{"CS101", "MA201", "PH110"}, c.Subjects())
}

func TestCatalog_RenameSubject(t *testing.T) {
	c := newTestCatalog(t)
	p, err := c.Pool("CS101", "English")
	require.NoError(t, err)
	_, err = p.Enqueue(Student{ID: 1, Name: "Amanda", Marks: 50})
	require.NoError(t, err)

	_, err = c.RenameSubject("CS101", "ma201")
	assert.Equal(t, ErrSubjectExists, err)
	_, err = c.RenameSubject("XX999", "CS102")
	assert.Equal(t, ErrSubjectNotFound, err)

	code, err := c.RenameSubject("cs101", "cs102")
	require.NoError(t, err)
	assert.Equal(t, "CS102", code)
	assert.False(t, c.HasSubject("CS101"))
	assert.ElementsMatch(t, []string{"CS102", "MA201"}, c.Subjects())

	langs, err := c.Languages("CS102")
	require.NoError(t, err)
	assert.Equal(t, []string{"English", "Tamil"}, langs)

	p, err = c.Pool("CS102", "English")
	require.NoError(t, err)
	assert.Equal(t, "CS102", p.Subject)
	pl, err := p.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "CS102", pl.Subject)
}

func TestCatalog_Languages(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name    string
		op      func() error
		wantErr error
	}{
		{name: "add to unknown subject", op: func() error { _, err := c.AddLanguage("XX999", "English"); return err }, wantErr: ErrSubjectNotFound},
		{name: "add existing", op: func() error { _, err := c.AddLanguage("cs101", " English "); return err }, wantErr: ErrLanguageExists},
		{name: "add", op: func() error { _, err := c.AddLanguage("MA201", "English"); return err }},
		{name: "remove unknown", op: func() error { return c.RemoveLanguage("CS101", "Hindi") }, wantErr: ErrLanguageNotFound},
		{name: "remove", op: func() error { return c.RemoveLanguage("CS101", "Tamil") }},
		{name: "pool of removed language", op: func() error { _, err := c.Pool("CS101", "Tamil"); return err }, wantErr: ErrLanguageNotFound},
		{name: "pool of unknown subject", op: func() error { _, err := c.Pool("XX999", "Tamil"); return err }, wantErr: ErrSubjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); err != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.True(t, c.HasLanguage("MA201", "English"))
	assert.False(t, c.HasLanguage("CS101", "Tamil"))
	assert.Len(t, c.Pools(), 2)
}

func TestCatalog_RemoveSubject(t *testing.T) {
	c := newTestCatalog(t)
	assert.Equal(t, ErrSubjectNotFound, c.RemoveSubject("XX999"))
	require.NoError(t, c.RemoveSubject(" cs101"))
	assert.Equal(t, []string{"MA201"}, c.Subjects())
	assert.Empty(t, c.Pools())
}

func TestRestore(t *testing.T) {
	c := newTestCatalog(t)
	p, err := c.Pool("CS101", "English")
	require.NoError(t, err)
	fill(t, p, 4, 7, 4)
	require.Len(t, p.FormGroups(), 2)
	_, err = p.Disband(1)
	require.NoError(t, err)
	_, err = p.AddRating(2, 4)
	require.NoError(t, err)

	snap := c.Snapshot()
	restored, err := Restore(snap, DefaultPolicy, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Errorf("Restore() mismatch (-want +got):\n%s", diff)
	}

	// the reused empty group keeps its id, new groups continue after the last one
	rp, err := restored.Pool("CS101", "English")
	require.NoError(t, err)
	g, err := rp.CreateGroup()
	require.NoError(t, err)
	assert.Equal(t, 1, g.ID)
}

func TestRestore_invalid(t *testing.T) {
	student := Student{ID: 1, Name: "Amanda", Marks: 50}
	pool := func(ps PoolSnapshot) Snapshot {
		ps.Language = "English"
		return Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101", Languages: []PoolSnapshot{ps}}}}
	}
	tests := []struct {
		name    string
		snap    Snapshot
		wantErr error // nil: any error
	}{
		{
			name:    "invalid course code",
			snap:    Snapshot{Subjects: []SubjectSnapshot{{Code: "cs 101 !!"}}},
			wantErr: ErrInvalidCourseCode,
		},
		{
			name:    "non positive group id",
			snap:    pool(PoolSnapshot{Groups: []Group{{ID: -4, Members: []Student{student}}}}),
			wantErr: ErrInvalidGroupID,
		},
		{
			name:    "rating above max",
			snap:    pool(PoolSnapshot{Groups: []Group{{ID: 1, Members: []Student{student}, Ratings: []float64{99}}}}),
			wantErr: ErrRatingOutOfRange,
		},
		{
			name:    "negative rating",
			snap:    pool(PoolSnapshot{Groups: []Group{{ID: 1, Members: []Student{student}, Ratings: []float64{-7}}}}),
			wantErr: ErrRatingOutOfRange,
		},
		{
			name:    "member with non positive id",
			snap:    pool(PoolSnapshot{Groups: []Group{{ID: 1, Members: []Student{{ID: -1, Name: "Amanda", Marks: 50}}}}}),
			wantErr: ErrInvalidStudentID,
		},
		{
			name:    "member marks above 100",
			snap:    pool(PoolSnapshot{Groups: []Group{{ID: 1, Members: []Student{{ID: 1, Name: "Amanda", Marks: 500}}}}}),
			wantErr: ErrMarksOutOfRange,
		},
		{
			name:    "waiting student with zero id",
			snap:    pool(PoolSnapshot{Waiting: []Student{{ID: 0, Name: "Amanda", Marks: 50}}}),
			wantErr: ErrInvalidStudentID,
		},
		{
			name:    "waiting student with negative marks",
			snap:    pool(PoolSnapshot{Waiting: []Student{{ID: 1, Name: "Amanda", Marks: -20}}}),
			wantErr: ErrMarksOutOfRange,
		},
		{
			name: "duplicate subject",
			snap: Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101"}, {Code: "cs101"}}},
		},
		{
			name: "duplicate language",
			snap: Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101", Languages: []PoolSnapshot{{Language: "English"}, {Language: "English"}}}}},
		},
		{
			name: "duplicate group",
			snap: Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101", Languages: []PoolSnapshot{{
				Language: "English",
				Groups:   []Group{{ID: 1}, {ID: 1}},
			}}}}},
		},
		{
			name: "student in a group and waiting",
			snap: Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101", Languages: []PoolSnapshot{{
				Language: "English",
				Groups:   []Group{{ID: 1, Members: []Student{student}}},
				Waiting:  []Student{student},
			}}}}},
		},
		{
			name: "student in two groups",
			snap: Snapshot{Subjects: []SubjectSnapshot{{Code: "CS101", Languages: []PoolSnapshot{{
				Language: "English",
				Groups:   []Group{{ID: 1, Members: []Student{student}}, {ID: 2, Members: []Student{student}}},
			}}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.snap, DefaultPolicy, rand.New(rand.NewSource(1)))
			if err == nil {
				t.Fatal("Restore() expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Restore() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
