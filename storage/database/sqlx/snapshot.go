package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core/study"
)

type (
	subjectRow struct {
		Code string `db:"code"`
		Seq  int    `db:"seq"`
	}

	languageRow struct {
		SubjectCode string `db:"subject_code"`
		Language    string `db:"language"`
		Seq         int    `db:"seq"`
		NextGroupID int    `db:"next_group_id"`
	}

	groupRow struct {
		SubjectCode string `db:"subject_code"`
		Language    string `db:"language"`
		GroupID     int    `db:"group_id"`
		Seq         int    `db:"seq"`
	}

	ratingRow struct {
		SubjectCode string  `db:"subject_code"`
		Language    string  `db:"language"`
		GroupID     int     `db:"group_id"`
		Seq         int     `db:"seq"`
		Rating      float64 `db:"rating"`
	}

	studentRow struct {
		SubjectCode string        `db:"subject_code"`
		Language    string        `db:"language"`
		StudentID   int           `db:"student_id"`
		Name        string        `db:"name"`
		Email       string        `db:"email"`
		Marks       float64       `db:"marks"`
		Label       string        `db:"label"`
		GroupID     sql.NullInt64 `db:"group_id"`
		Seq         int           `db:"seq"`
	}
)

const (
	insertSubject  = `INSERT INTO subjects (code, seq) VALUES (:code, :seq)`
	insertLanguage = `INSERT INTO languages (subject_code, language, seq, next_group_id)
		VALUES (:subject_code, :language, :seq, :next_group_id)`
	insertGroup = `INSERT INTO study_groups (subject_code, language, group_id, seq)
		VALUES (:subject_code, :language, :group_id, :seq)`
	insertRating = `INSERT INTO group_ratings (subject_code, language, group_id, seq, rating)
		VALUES (:subject_code, :language, :group_id, :seq, :rating)`
	insertStudent = `INSERT INTO students (subject_code, language, student_id, name, email, marks, label, group_id, seq)
		VALUES (:subject_code, :language, :student_id, :name, :email, :marks, :label, :group_id, :seq)`
)

// children first
var tables = []string{"students", "group_ratings", "study_groups", "languages", "subjects"}

// SnapshotRepository stores the catalog in relational tables.
// Every save replaces the whole content in one transaction.
type SnapshotRepository struct {
	db *sqlx.DB
}

var _ study.Repository = (*SnapshotRepository)(nil)

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (repo *SnapshotRepository) LoadSnapshot(ctx context.Context) (study.Snapshot, error) {
	var (
		subjects  []subjectRow
		languages []languageRow
		groups    []groupRow
		ratings   []ratingRow
		students  []studentRow
	)
	queries := []struct {
		dest  interface{}
		query string
	}{
		{&subjects, "SELECT code, seq FROM subjects ORDER BY seq"},
		{&languages, "SELECT subject_code, language, seq, next_group_id FROM languages ORDER BY seq"},
		{&groups, "SELECT subject_code, language, group_id, seq FROM study_groups ORDER BY seq"},
		{&ratings, "SELECT subject_code, language, group_id, seq, rating FROM group_ratings ORDER BY seq"},
		{&students, "SELECT subject_code, language, student_id, name, email, marks, label, group_id, seq FROM students ORDER BY seq"},
	}
	for _, q := range queries {
		if err := repo.db.SelectContext(ctx, q.dest, q.query); err != nil {
			return study.Snapshot{}, errors.Wrap(err, "loading snapshot")
		}
	}

	var snap study.Snapshot
	subjectIdx := make(map[string]int, len(subjects))
	for _, r := range subjects {
		subjectIdx[r.Code] = len(snap.Subjects)
		snap.Subjects = append(snap.Subjects, study.SubjectSnapshot{Code: r.Code})
	}

	type poolKey struct{ subject, language string }
	pools := make(map[poolKey]*study.PoolSnapshot, len(languages))
	for _, r := range languages {
		i, ok := subjectIdx[r.SubjectCode]
		if !ok {
			return study.Snapshot{}, errors.Errorf("language %q of unknown subject %q", r.Language, r.SubjectCode)
		}
		ss := &snap.Subjects[i]
		ss.Languages = append(ss.Languages, study.PoolSnapshot{Language: r.Language, NextGroupID: r.NextGroupID})
	}
	// pointers are taken once every slice is complete
	for i := range snap.Subjects {
		ss := &snap.Subjects[i]
		for j := range ss.Languages {
			pools[poolKey{ss.Code, ss.Languages[j].Language}] = &ss.Languages[j]
		}
	}

	pool := func(subject, language string) (*study.PoolSnapshot, error) {
		if ps, ok := pools[poolKey{subject, language}]; ok {
			return ps, nil
		}
		return nil, errors.Errorf("unknown pool %s/%s", subject, language)
	}
	group := func(ps *study.PoolSnapshot, id int) *study.Group {
		for i := range ps.Groups {
			if ps.Groups[i].ID == id {
				return &ps.Groups[i]
			}
		}
		return nil
	}

	for _, r := range groups {
		ps, err := pool(r.SubjectCode, r.Language)
		if err != nil {
			return study.Snapshot{}, err
		}
		ps.Groups = append(ps.Groups, study.Group{ID: r.GroupID})
	}
	for _, r := range ratings {
		ps, err := pool(r.SubjectCode, r.Language)
		if err != nil {
			return study.Snapshot{}, err
		}
		g := group(ps, r.GroupID)
		if g == nil {
			return study.Snapshot{}, errors.Errorf("rating of unknown group %d in %s/%s", r.GroupID, r.SubjectCode, r.Language)
		}
		g.Ratings = append(g.Ratings, r.Rating)
	}
	for _, r := range students {
		ps, err := pool(r.SubjectCode, r.Language)
		if err != nil {
			return study.Snapshot{}, err
		}
		s := study.Student{
			ID:       r.StudentID,
			Name:     r.Name,
			Email:    r.Email,
			Marks:    r.Marks,
			Language: r.Language,
			Label:    study.Label(r.Label),
		}
		if !r.GroupID.Valid {
			ps.Waiting = append(ps.Waiting, s)
			continue
		}
		g := group(ps, int(r.GroupID.Int64))
		if g == nil {
			return study.Snapshot{}, errors.Errorf("student %d in unknown group %d", r.StudentID, r.GroupID.Int64)
		}
		g.Members = append(g.Members, s)
	}
	return snap, nil
}

func (repo *SnapshotRepository) SaveSnapshot(ctx context.Context, snap study.Snapshot) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, t := range tables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return errors.Wrapf(err, "clearing %s", t)
		}
	}

	var rows []struct {
		query string
		arg   interface{}
	}
	add := func(query string, arg interface{}) {
		rows = append(rows, struct {
			query string
			arg   interface{}
		}{query, arg})
	}

	var langSeq, groupSeq, ratingSeq, studentSeq int
	for i, ss := range snap.Subjects {
		add(insertSubject, subjectRow{Code: ss.Code, Seq: i})
		for _, ps := range ss.Languages {
			add(insertLanguage, languageRow{SubjectCode: ss.Code, Language: ps.Language, Seq: langSeq, NextGroupID: ps.NextGroupID})
			langSeq++
			for _, g := range ps.Groups {
				add(insertGroup, groupRow{SubjectCode: ss.Code, Language: ps.Language, GroupID: g.ID, Seq: groupSeq})
				groupSeq++
				for _, r := range g.Ratings {
					add(insertRating, ratingRow{SubjectCode: ss.Code, Language: ps.Language, GroupID: g.ID, Seq: ratingSeq, Rating: r})
					ratingSeq++
				}
				for _, m := range g.Members {
					add(insertStudent, newStudentRow(ss.Code, ps.Language, m, sql.NullInt64{Int64: int64(g.ID), Valid: true}, studentSeq))
					studentSeq++
				}
			}
			for _, s := range ps.Waiting {
				add(insertStudent, newStudentRow(ss.Code, ps.Language, s, sql.NullInt64{}, studentSeq))
				studentSeq++
			}
		}
	}

	stmts := make(map[string]*sqlx.NamedStmt)
	defer func() {
		for _, stmt := range stmts {
			_ = stmt.Close()
		}
	}()
	for _, r := range rows {
		stmt, ok := stmts[r.query]
		if !ok {
			if stmt, err = tx.PrepareNamedContext(ctx, r.query); err != nil {
				return errors.Wrap(err, "preparing insert")
			}
			stmts[r.query] = stmt
		}
		if _, err = stmt.ExecContext(ctx, r.arg); err != nil {
			return errors.Wrap(err, "saving snapshot")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing snapshot")
	}
	return nil
}

func newStudentRow(subject, language string, s study.Student, groupID sql.NullInt64, seq int) studentRow {
	return studentRow{
		SubjectCode: subject,
		Language:    language,
		StudentID:   s.ID,
		Name:        s.Name,
		Email:       s.Email,
		Marks:       s.Marks,
		Label:       string(s.Label),
		GroupID:     groupID,
		Seq:         seq,
	}
}
