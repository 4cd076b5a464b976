package eclass

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"eclass-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const DefaultBaseUrl = "https://eclass.uoa.gr"

// Client is the one authenticated portal session of the process. The
// cookie jar, login flag, username and last course list are all guarded
// by mu: operations are serialized, interleaved login/logout would race
// on the same cookies.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	base         string
	ssoHost      string
	loginFormUrl string
	portfolioUrl string
	logoutUrl    string

	mu       sync.Mutex
	loggedIn bool
	username string
	courses  []Course
}

type ClientOptions struct {
	// portal root, defaults to DefaultBaseUrl
	BaseUrl string
	// hostname of the institution's CAS gateway, defaults to sso.uoa.gr
	SsoHost string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(opts.BaseUrl, "/")
	if base == "" {
		base = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	ssoHost := opts.SsoHost
	if ssoHost == "" {
		ssoHost = casHostname
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	c := &Client{
		BaseUrl:      baseUrl,
		Http:         client,
		base:         base,
		ssoHost:      ssoHost,
		loginFormUrl: base + "/main/login_form.php",
		portfolioUrl: base + "/main/portfolio.php",
		logoutUrl:    base + "/index.php?logout=yes",
	}
	client.SetRedirectPolicy(c.defaultRedirectPolicy())
	return c, nil
}

// login walks from the portal to the SSO host and back, so redirects
// are allowed across exactly those two domains
func (c *Client) defaultRedirectPolicy() resty.RedirectPolicy {
	return resty.DomainCheckRedirectPolicy(c.BaseUrl.Hostname(), c.ssoHost)
}

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Courses returns the last successfully fetched course list. It says
// nothing about freshness beyond "last fetch".
func (c *Client) Courses() []Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.courses
}

// Reset drops the cookie jar and clears the login flag, username and
// course list. Same client, new session epoch. Never fails.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Client) reset() {
	jar, _ := cookiejar.New(nil)
	c.Http.SetCookieJar(jar)
	c.loggedIn = false
	c.username = ""
	c.courses = nil
}
