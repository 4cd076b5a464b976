package eclass

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
)

// FetchCourses downloads and parses the enrolled course list off the
// portfolio page, overwriting the client's stored list. Requires a
// live session: no network call happens when the client never logged
// in or the validity probe fails. An empty list is a valid result,
// distinct from not being logged in.
func (c *Client) FetchCourses(ctx context.Context) ([]Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		return nil, ErrNotAuthenticated
	}
	if !c.isSessionValid(ctx) {
		return nil, ErrSessionExpired
	}

	ctx, span := tracer.Start(ctx, "client:FetchCourses")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.portfolioUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch portfolio page")
		slog.ErrorContext(ctx, "fetch course list", "url", c.portfolioUrl, "err", err)
		return nil, networkErr("fetch course list", err)
	}

	courses := ExtractCourses(ctx, res.String(), c.base)
	c.courses = courses
	slog.InfoContext(ctx, "fetched course list", "count", len(courses))
	return courses, nil
}
