// Package eclass wraps the portal scraper into the named operations a
// front end calls: login, get courses, logout, auth status. Each
// operation returns a result with user-facing text, failures included.
package eclass

import (
	"context"
	"fmt"
	"log/slog"

	"eclass-backend/lib/coursestore"
	scraper "eclass-backend/lib/scrapers/eclass"
	"eclass-backend/lib/textutil"
	"eclass-backend/lib/timezone"

	"github.com/antzucaro/matchr"
)

type Service struct {
	client *scraper.Client
	store  *coursestore.Store
}

type Options struct {
	Client *scraper.Client
	// optional fetch history, nil disables recording
	Store *coursestore.Store
}

func NewService(opts Options) Service {
	return Service{
		client: opts.Client,
		store:  opts.Store,
	}
}

// Result is a finished operation rendered for the user. Text never
// contains credentials.
type Result struct {
	Success bool
	Text    string
}

func (s Service) Login(ctx context.Context, username, password string) Result {
	ctx, span := tracer.Start(ctx, "service:Login")
	defer span.End()

	if s.client.LoggedIn() && s.client.IsSessionValid(ctx) {
		return Result{
			Success: true,
			Text:    fmt.Sprintf("Already logged in as %s", s.client.Username()),
		}
	}
	// the validity probe above clears the flag on a dead session, but a
	// stale cookie jar still needs to go before retrying
	if s.client.LoggedIn() {
		s.client.Reset()
	}

	err := s.client.Login(ctx, username, password)
	if err != nil {
		return Result{Success: false, Text: "Error: " + err.Error()}
	}
	return Result{
		Success: true,
		Text:    fmt.Sprintf("Login successful! You are now logged in as %s.", username),
	}
}

func (s Service) GetCourses(ctx context.Context) (Result, []scraper.Course) {
	ctx, span := tracer.Start(ctx, "service:GetCourses")
	defer span.End()

	courses, err := s.client.FetchCourses(ctx)
	if err != nil {
		return Result{Success: false, Text: "Error: " + err.Error()}, nil
	}

	if s.store != nil {
		err = s.store.Push(ctx, s.client.Username(), timezone.Now(), courses)
		if err != nil {
			slog.WarnContext(ctx, "failed to record course fetch", "err", err)
		}
	}

	if len(courses) == 0 {
		return Result{
			Success: true,
			Text:    "No courses found. You may not be enrolled in any courses.",
		}, courses
	}
	return Result{
		Success: true,
		Text: fmt.Sprintf(
			"Found %d courses:\n\n%s",
			len(courses),
			scraper.FormatCourseList(courses),
		),
	}, courses
}

func (s Service) Logout(ctx context.Context) Result {
	ctx, span := tracer.Start(ctx, "service:Logout")
	defer span.End()

	username, err := s.client.Logout(ctx)
	if err != nil {
		return Result{Success: false, Text: "Error during logout: " + err.Error()}
	}
	if username == "" {
		return Result{Success: true, Text: "Not logged in, nothing to do."}
	}
	return Result{
		Success: true,
		Text:    fmt.Sprintf("Successfully logged out user %s.", username),
	}
}

func (s Service) AuthStatus(ctx context.Context) Result {
	ctx, span := tracer.Start(ctx, "service:AuthStatus")
	defer span.End()

	if !s.client.LoggedIn() {
		return Result{Success: true, Text: "Status: Not logged in"}
	}
	if !s.client.IsSessionValid(ctx) {
		return Result{Success: true, Text: "Status: Session expired. Please log in again."}
	}
	return Result{
		Success: true,
		Text: fmt.Sprintf(
			"Status: Logged in as %s\nCourses: %d enrolled",
			s.client.Username(),
			len(s.client.Courses()),
		),
	}
}

// FindCourse picks the closest match for name out of the last fetched
// course list. A course whose normalized name contains the query wins
// outright, otherwise the highest fuzzy similarity does. The bool is
// false when nothing has been fetched yet.
func FindCourse(courses []scraper.Course, name string) (scraper.Course, bool) {
	target := textutil.NormalizeName(name)
	if target == "" {
		return scraper.Course{}, false
	}

	for _, course := range courses {
		if textutil.MatchName(course.Name, target) {
			return course, true
		}
	}

	var best scraper.Course
	var bestSimilarity float64
	for _, course := range courses {
		sim := matchr.JaroWinkler(textutil.NormalizeName(course.Name), target, false)
		if sim > bestSimilarity {
			bestSimilarity = sim
			best = course
		}
	}
	if bestSimilarity == 0 {
		return scraper.Course{}, false
	}
	return best, true
}
