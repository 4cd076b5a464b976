package coursestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"eclass-backend/lib/scrapers/eclass"
	"eclass-backend/lib/telemetry"
	"eclass-backend/lib/timezone"

	random "github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	defer telemetry.SetupForTesting(t, "coursestore-test")()

	db, err := Open(filepath.Join(t.TempDir(), "courses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testUser(t *testing.T) string {
	user, err := random.String(12)
	require.NoError(t, err)
	return user
}

func TestPushPull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testUser(t)

	courses := []eclass.Course{
		{Name: "Calculus", Url: "https://eclass.uoa.gr/courses/MATH101/"},
		{Name: "Physics", Url: "https://eclass.uoa.gr/courses/PHYS102/"},
	}
	at := time.Date(2024, 3, 11, 9, 30, 0, 0, timezone.Location)
	require.NoError(t, store.Push(ctx, user, at, courses))

	fetches, err := store.Pull(ctx, user)
	require.NoError(t, err)
	require.Len(t, fetches, 1)
	require.Equal(t, at.Unix(), fetches[0].Time.Unix())
	require.Equal(t, courses, fetches[0].Courses)
}

func TestPushReplacesSameDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testUser(t)

	morning := time.Date(2024, 3, 11, 9, 0, 0, 0, timezone.Location)
	evening := time.Date(2024, 3, 11, 21, 0, 0, 0, timezone.Location)
	nextDay := time.Date(2024, 3, 12, 9, 0, 0, 0, timezone.Location)

	require.NoError(t, store.Push(ctx, user, morning, []eclass.Course{
		{Name: "Calculus", Url: "https://eclass.uoa.gr/courses/MATH101/"},
	}))
	require.NoError(t, store.Push(ctx, user, evening, []eclass.Course{
		{Name: "Calculus", Url: "https://eclass.uoa.gr/courses/MATH101/"},
		{Name: "Physics", Url: "https://eclass.uoa.gr/courses/PHYS102/"},
	}))
	require.NoError(t, store.Push(ctx, user, nextDay, []eclass.Course{
		{Name: "Physics", Url: "https://eclass.uoa.gr/courses/PHYS102/"},
	}))

	fetches, err := store.Pull(ctx, user)
	require.NoError(t, err)
	require.Len(t, fetches, 2, "same-day push replaces, next-day push appends")
	require.Equal(t, evening.Unix(), fetches[0].Time.Unix())
	require.Len(t, fetches[0].Courses, 2)
	require.Equal(t, nextDay.Unix(), fetches[1].Time.Unix())
}

func TestLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := testUser(t)

	_, found, err := store.Latest(ctx, user)
	require.NoError(t, err)
	require.False(t, found)

	old := time.Date(2024, 3, 10, 9, 0, 0, 0, timezone.Location)
	recent := time.Date(2024, 3, 11, 9, 0, 0, 0, timezone.Location)
	require.NoError(t, store.Push(ctx, user, old, nil))
	require.NoError(t, store.Push(ctx, user, recent, []eclass.Course{
		{Name: "Physics", Url: "https://eclass.uoa.gr/courses/PHYS102/"},
	}))

	latest, found, err := store.Latest(ctx, user)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, recent.Unix(), latest.Time.Unix())
	require.Len(t, latest.Courses, 1)
}

func TestPullIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := testUser(t)
	bob := testUser(t)

	at := time.Date(2024, 3, 11, 9, 0, 0, 0, timezone.Location)
	require.NoError(t, store.Push(ctx, alice, at, []eclass.Course{
		{Name: "Calculus", Url: "https://eclass.uoa.gr/courses/MATH101/"},
	}))

	fetches, err := store.Pull(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, fetches)
}
