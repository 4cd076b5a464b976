// Package coursestore keeps a history of fetched course lists, one
// snapshot per user per day, in a local sqlite file.
package coursestore

import (
	"context"
	"database/sql"
	"time"

	"eclass-backend/lib/scrapers/eclass"
	"eclass-backend/lib/timezone"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func Open(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type Fetch struct {
	Time    time.Time
	Courses []eclass.Course
}

// Push records a course list fetch. Earlier snapshots from the same day
// are replaced, so the history holds at most one entry per user per day.
func (s Store) Push(ctx context.Context, user string, at time.Time, courses []eclass.Course) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	startOfToday := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(at.Year(), at.Month(), at.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()

	_, err = tx.ExecContext(
		ctx,
		`DELETE FROM fetch_courses WHERE fetch_id IN
			(SELECT id FROM fetches WHERE user = ? AND time >= ? AND time < ?)`,
		user, startOfToday, startOfTomorrow,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`DELETE FROM fetches WHERE user = ? AND time >= ? AND time < ?`,
		user, startOfToday, startOfTomorrow,
	)
	if err != nil {
		return err
	}

	row := tx.QueryRowContext(
		ctx,
		`INSERT INTO fetches (user, time) VALUES (?, ?) RETURNING id`,
		user, at.Unix(),
	)
	var fetchId int64
	err = row.Scan(&fetchId)
	if err != nil {
		return err
	}

	for i, course := range courses {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO fetch_courses (fetch_id, position, name, url) VALUES (?, ?, ?, ?)`,
			fetchId, i, course.Name, course.Url,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Pull returns every recorded fetch for a user, oldest first, course
// order preserved within each fetch.
func (s Store) Pull(ctx context.Context, user string) ([]Fetch, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT f.id, f.time FROM fetches f WHERE f.user = ? ORDER BY f.time ASC`,
		user,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	var fetches []Fetch
	for rows.Next() {
		var id, at int64
		err = rows.Scan(&id, &at)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		fetches = append(fetches, Fetch{Time: time.Unix(at, 0).In(timezone.Location)})
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		courses, err := s.fetchCourses(ctx, id)
		if err != nil {
			return nil, err
		}
		fetches[i].Courses = courses
	}
	return fetches, nil
}

func (s Store) fetchCourses(ctx context.Context, fetchId int64) ([]eclass.Course, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, url FROM fetch_courses WHERE fetch_id = ? ORDER BY position ASC`,
		fetchId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []eclass.Course
	for rows.Next() {
		var course eclass.Course
		err = rows.Scan(&course.Name, &course.Url)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

// Latest returns the most recent fetch for a user, the bool reporting
// whether one exists.
func (s Store) Latest(ctx context.Context, user string) (Fetch, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, time FROM fetches WHERE user = ? ORDER BY time DESC LIMIT 1`,
		user,
	)
	var id, at int64
	err := row.Scan(&id, &at)
	if err == sql.ErrNoRows {
		return Fetch{}, false, nil
	}
	if err != nil {
		return Fetch{}, false, err
	}

	courses, err := s.fetchCourses(ctx, id)
	if err != nil {
		return Fetch{}, false, err
	}
	return Fetch{
		Time:    time.Unix(at, 0).In(timezone.Location),
		Courses: courses,
	}, true, nil
}
