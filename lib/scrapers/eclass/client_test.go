package eclass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"eclass-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	testUsername = "student"
	testPassword = "hunter2"
)

// fakeSSOPortal stands up two servers: the portal itself and a CAS
// gateway. Both listen on 127.0.0.1 so the cookie jar and the redirect
// policy treat them as one student-facing deployment.
type fakeSSOPortal struct {
	portal *httptest.Server
	cas    *httptest.Server

	mu               sync.Mutex
	expired          bool
	rejectWithBanner bool
	casRequests      int
	portalRequests   int
	logoutHits       int
}

func newFakeSSOPortal(t *testing.T) *fakeSSOPortal {
	f := &fakeSSOPortal{}

	f.cas = httptest.NewServer(http.HandlerFunc(f.handleCAS))
	f.portal = httptest.NewServer(http.HandlerFunc(f.handlePortal))
	t.Cleanup(f.portal.Close)
	t.Cleanup(f.cas.Close)
	return f
}

func (f *fakeSSOPortal) setExpired(expired bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = expired
}

func (f *fakeSSOPortal) setRejectWithBanner(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectWithBanner = reject
}

func (f *fakeSSOPortal) casRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.casRequests
}

func (f *fakeSSOPortal) portalRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.portalRequests
}

func (f *fakeSSOPortal) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutHits
}

func (f *fakeSSOPortal) authenticated(r *http.Request) bool {
	f.mu.Lock()
	expired := f.expired
	f.mu.Unlock()
	if expired {
		return false
	}
	cookie, err := r.Cookie("session")
	return err == nil && cookie.Value == "ok"
}

func (f *fakeSSOPortal) handlePortal(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.portalRequests++
	f.mu.Unlock()

	switch r.URL.Path {
	case "/main/login_form.php":
		fmt.Fprintf(
			w,
			`<html><body><a href="%s/login">Είσοδος με λογαριασμό ΕΚΠΑ</a></body></html>`,
			f.cas.URL,
		)
	case "/main/portfolio.php":
		if !f.authenticated(r) {
			w.Header().Set("Location", "/main/login_form.php")
			w.WriteHeader(http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html><body>
			<h2>Μαθήματα</h2>
			<div class="course-title"><a href="/courses/MATH101/">Calculus</a></div>
			<div class="course-title"><a href="/courses/PHYS102/">Physics</a></div>
		</body></html>`)
	case "/index.php":
		f.mu.Lock()
		f.logoutHits++
		f.mu.Unlock()
		fmt.Fprint(w, `<html><body>Έξοδος</body></html>`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSSOPortal) handleCAS(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.casRequests++
	f.mu.Unlock()

	if r.Method == http.MethodGet {
		fmt.Fprint(w, `<html><body>
			<form id="fm1"><input type="hidden" name="execution" value="exec-1"></form>
		</body></html>`)
		return
	}

	f.mu.Lock()
	rejectWithBanner := f.rejectWithBanner
	f.mu.Unlock()
	if rejectWithBanner {
		// CAS bounced the submission back onto its resources page
		// without filling the error container
		fmt.Fprint(w, `<html><body>
			<h1>Πόροι Πληροφορικής ΕΚΠΑ</h1>
			<form id="fm1"><input type="hidden" name="execution" value="exec-3"></form>
		</body></html>`)
		return
	}

	_ = r.ParseForm()
	if r.FormValue("username") == testUsername &&
		r.FormValue("password") == testPassword &&
		r.FormValue("execution") != "" &&
		r.FormValue("_eventId") == "submit" {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, f.portal.URL+"/main/portfolio.php", http.StatusFound)
		return
	}

	fmt.Fprint(w, `<html><body>
		<div id="msg">The credentials you provided cannot be determined to be authentic.</div>
		<form id="fm1"><input type="hidden" name="execution" value="exec-2"></form>
	</body></html>`)
}

func newTestClient(t *testing.T, f *fakeSSOPortal) *Client {
	defer telemetry.SetupForTesting(t, "eclass-scraper-test")()

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl: f.portal.URL,
		SsoHost: "127.0.0.1",
	})
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	err := client.Login(ctx, testUsername, testPassword)
	require.NoError(t, err)
	require.True(t, client.LoggedIn())
	require.Equal(t, testUsername, client.Username())
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	err := client.Login(ctx, testUsername, "wrong")
	require.Error(t, err)
	require.Equal(t, KindAuthentication, KindOf(err))
	require.Contains(t, err.Error(), "Authentication error")
	require.False(t, client.LoggedIn())
}

func TestLoginBouncedToResourcesPage(t *testing.T) {
	f := newFakeSSOPortal(t)
	f.setRejectWithBanner(true)
	client := newTestClient(t, f)

	err := client.Login(context.Background(), testUsername, testPassword)
	require.Error(t, err)
	require.Equal(t, KindAuthentication, KindOf(err))
	require.Contains(t, err.Error(), "Authentication failed: Invalid credentials")
	require.False(t, client.LoggedIn())
}

func TestLoginNoSSOLink(t *testing.T) {
	bare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Συντήρηση συστήματος</p></body></html>`)
	}))
	t.Cleanup(bare.Close)

	defer telemetry.SetupForTesting(t, "eclass-scraper-test")()
	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl: bare.URL,
		SsoHost: "127.0.0.1",
	})
	require.NoError(t, err)

	err = client.Login(context.Background(), testUsername, testPassword)
	require.Error(t, err)
	require.Equal(t, KindProtocol, KindOf(err))
	require.False(t, client.LoggedIn())
}

func TestIsSessionValid(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	require.False(t, client.IsSessionValid(ctx), "never logged in")
	require.Equal(t, 0, f.portalRequestCount(), "no probe without a session")

	require.NoError(t, client.Login(ctx, testUsername, testPassword))
	casRequests := f.casRequestCount()

	require.True(t, client.IsSessionValid(ctx))
	require.Equal(t, casRequests, f.casRequestCount(), "validity probe must not re-authenticate")

	f.setExpired(true)
	require.False(t, client.IsSessionValid(ctx))
	require.False(t, client.LoggedIn())
}

func TestFetchCourses(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	courses, err := client.FetchCourses(ctx)
	require.NoError(t, err)
	require.Equal(t, []Course{
		{Name: "Calculus", Url: f.portal.URL + "/courses/MATH101/"},
		{Name: "Physics", Url: f.portal.URL + "/courses/PHYS102/"},
	}, courses)
	require.Equal(t, courses, client.Courses())
}

func TestFetchCoursesNotLoggedIn(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)

	_, err := client.FetchCourses(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Equal(t, 0, f.casRequestCount(), "no network traffic before login")
	require.Equal(t, 0, f.portalRequestCount(), "no network traffic before login")
}

func TestFetchCoursesExpiredSession(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, testUsername, testPassword))
	f.setExpired(true)

	_, err := client.FetchCourses(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, client.LoggedIn())
}

func TestLogout(t *testing.T) {
	f := newFakeSSOPortal(t)
	client := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, testUsername, testPassword))

	username, err := client.Logout(ctx)
	require.NoError(t, err)
	require.Equal(t, testUsername, username)
	require.False(t, client.LoggedIn())
	require.Empty(t, client.Username())
	require.Equal(t, 1, f.logoutCount())

	// repeat logout is a no-op and stays off the wire
	username, err = client.Logout(ctx)
	require.NoError(t, err)
	require.Empty(t, username)
	require.Equal(t, 1, f.logoutCount())
}
