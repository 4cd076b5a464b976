package eclass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// the URL the redirect chain actually ended on
func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	u, _ := url.Parse(res.Request.URL)
	return u
}

func isAuthErrorText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "authenticate") || strings.Contains(lower, "credentials")
}

// CAS shows either of these strings only when the submission bounced
// back onto a CAS-owned page; neither present means the redirect chain
// went through. A fragile heuristic, but it is all the portal gives us.
func casSubmitFailed(body string) bool {
	return strings.Contains(body, casResourcesBanner) ||
		strings.Contains(body, casInvalidCredsMarker)
}

// Login drives the full SSO round trip: portal login page, SSO link
// discovery, CAS credential submission, then re-verification against
// the portal's portfolio page. The login flag flips only after that
// last verification; any failure leaves the session untouched and the
// caller retries from scratch after Reset.
func (c *Client) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.loginFormUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		slog.ErrorContext(ctx, "fetch login page", "url", c.loginFormUrl, "err", err)
		return networkErr("fetch login page", err)
	}

	ssoLink, found := ExtractSSOLink(ctx, res.String(), c.base)
	if !found {
		span.SetStatus(codes.Error, "failed to find sso link")
		return protocolErr("discover sso link", "Could not find SSO login link on the login page")
	}

	res, err = c.Http.R().
		SetContext(ctx).
		Get(ssoLink)
	if err != nil {
		span.SetStatus(codes.Error, "failed to follow sso link")
		slog.ErrorContext(ctx, "follow sso link", "url", ssoLink, "err", err)
		return networkErr("follow sso link", err)
	}

	casUrl := finalUrl(res)
	if casUrl.Hostname() != c.ssoHost {
		span.SetStatus(codes.Error, "unexpected redirect")
		return protocolErr("follow sso link", fmt.Sprintf("Unexpected redirect to %s", casUrl))
	}

	form := ExtractCASFormData(res.String(), casUrl.String())
	if form.ErrorText != "" && isAuthErrorText(form.ErrorText) {
		span.SetStatus(codes.Error, "cas reported an error")
		return authErr("submit cas credentials", "Authentication error: "+form.ErrorText)
	}
	if form.Execution == "" {
		span.SetStatus(codes.Error, "failed to find execution token")
		return protocolErr("submit cas credentials", "Could not find execution parameter on SSO page")
	}
	if form.Action == "" {
		span.SetStatus(codes.Error, "failed to find login form")
		return protocolErr("submit cas credentials", "Could not find login form on SSO page")
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":    username,
			"password":    password,
			"execution":   form.Execution,
			"_eventId":    "submit",
			"geolocation": "",
		}).
		Post(form.Action)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit credentials")
		slog.ErrorContext(ctx, "submit cas credentials", "url", form.Action, "err", err)
		return networkErr("submit cas credentials", err)
	}

	if casSubmitFailed(res.String()) {
		span.SetStatus(codes.Error, "credentials rejected")
		retry := ExtractCASFormData(res.String(), finalUrl(res).String())
		if retry.ErrorText != "" {
			return authErr("submit cas credentials", "Authentication error: "+retry.ErrorText)
		}
		return authErr("submit cas credentials", "Authentication failed: Invalid credentials")
	}

	portalUrl := finalUrl(res)
	if !strings.Contains(portalUrl.Host, c.BaseUrl.Hostname()) {
		span.SetStatus(codes.Error, "unexpected redirect after login")
		return protocolErr("verify portal redirect", fmt.Sprintf("Unexpected redirect after login: %s", portalUrl))
	}

	res, err = c.Http.R().
		SetContext(ctx).
		Get(c.portfolioUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch portfolio page")
		slog.ErrorContext(ctx, "verify portal content", "url", c.portfolioUrl, "err", err)
		return networkErr("verify portal content", err)
	}
	if !VerifyLoginSuccess(res.String()) {
		span.SetStatus(codes.Error, "portal verification failed")
		return protocolErr("verify portal content", "Could not access portfolio page after login")
	}

	c.loggedIn = true
	c.username = username
	slog.InfoContext(ctx, "login successful", "username", username)
	return nil
}

// IsSessionValid probes the portfolio page without following redirects
// and without re-submitting credentials. Side-effecting on failure
// only: an expired or unreachable session clears the login flag, a
// valid one leaves all state untouched.
func (c *Client) IsSessionValid(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSessionValid(ctx)
}

func (c *Client) isSessionValid(ctx context.Context) bool {
	if !c.loggedIn {
		return false
	}

	ctx, span := tracer.Start(ctx, "client:IsSessionValid")
	defer span.End()

	c.Http.SetRedirectPolicy(resty.NoRedirectPolicy())
	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.portfolioUrl)
	c.Http.SetRedirectPolicy(c.defaultRedirectPolicy())

	if err != nil && !errors.Is(err, resty.ErrAutoRedirectDisabled) {
		span.SetStatus(codes.Error, "validity probe failed")
		slog.WarnContext(ctx, "session validity probe", "url", c.portfolioUrl, "err", err)
		c.loggedIn = false
		return false
	}

	if res.StatusCode() == http.StatusFound && strings.Contains(res.Header().Get("Location"), "login") {
		slog.InfoContext(ctx, "session expired, portal redirected to login")
		c.loggedIn = false
		return false
	}
	if res.StatusCode() == http.StatusOK && VerifyLoginSuccess(res.String()) {
		return true
	}

	c.loggedIn = false
	return false
}

// Logout tears the session down on the portal side. Already logged out
// is a successful no-op with an empty username. A transport failure
// leaves all state untouched so the caller can retry, it never silently
// clears the session.
func (c *Client) Logout(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loggedIn {
		return "", nil
	}

	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	_, err := c.Http.R().
		SetContext(ctx).
		Get(c.logoutUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch logout url")
		slog.ErrorContext(ctx, "logout", "url", c.logoutUrl, "err", err)
		return "", networkErr("logout", err)
	}

	username := c.username
	c.reset()
	slog.InfoContext(ctx, "logged out", "username", username)
	return username, nil
}
