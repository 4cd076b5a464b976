package eclass

import (
	"context"
	"fmt"
	"strings"

	"eclass-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// String contracts with the live portal. Do not touch: the SSO button
// labels, CAS field names and the failure markers have to match the
// deployed pages byte for byte.
const (
	ssoButtonMarker   = "Είσοδος με λογαριασμό ΕΚΠΑ"
	ssoInstitutionTag = "ΕΚΠΑ"
	ssoFormFragment   = "cas.php"

	casHost     = "https://sso.uoa.gr"
	casHostname = "sso.uoa.gr"

	casResourcesBanner    = "Πόροι Πληροφορικής ΕΚΠΑ"
	casInvalidCredsMarker = "The credentials you provided cannot be determined to be authentic"

	portalGreekMarker = "Μαθήματα"
)

func parseDocument(html string) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// ExtractSSOLink locates the university SSO entry point on the portal's
// login page: first the login button anchor, then any form posting to
// the CAS relay. The second return is false when neither exists.
func ExtractSSOLink(ctx context.Context, html string, baseURL string) (string, bool) {
	doc, ok := parseDocument(html)
	if !ok {
		return "", false
	}

	link := ""
	for _, a := range htmlutil.GetAnchors(ctx, doc.Find("a")) {
		if strings.Contains(a.Name, ssoButtonMarker) || strings.Contains(a.Name, ssoInstitutionTag) {
			link = a.Href
			break
		}
	}

	if link == "" {
		doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
			action := form.AttrOr("action", "")
			if action != "" && strings.Contains(action, ssoFormFragment) {
				link = action
				return false
			}
			return true
		})
	}

	if link == "" {
		return "", false
	}
	return htmlutil.ResolveRef(baseURL, link), true
}

// CASForm is what ExtractCASFormData could dig out of a CAS login page.
// Empty Execution or Action means the field was not found; ErrorText
// carries the page's error container text when one is present,
// independently of whether the other two were found.
type CASForm struct {
	Execution string
	Action    string
	ErrorText string
}

// ExtractCASFormData pulls the one-time execution token and the form
// action out of a CAS login page. currentURL is the fallback action for
// forms without one.
func ExtractCASFormData(html string, currentURL string) CASForm {
	doc, ok := parseDocument(html)
	if !ok {
		return CASForm{ErrorText: "could not parse SSO page"}
	}

	out := CASForm{}
	out.ErrorText = strings.TrimSpace(doc.Find("div#msg").Text())

	execution, found := doc.Find("input[name=execution]").First().Attr("value")
	if !found {
		if out.ErrorText == "" {
			out.ErrorText = "Could not find execution parameter on SSO page"
		}
		return out
	}
	out.Execution = execution

	form := doc.Find("form#fm1").First()
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}
	if form.Length() == 0 {
		if out.ErrorText == "" {
			out.ErrorText = "Could not find login form on SSO page"
		}
		return out
	}

	action, found := form.Attr("action")
	if !found || action == "" {
		out.Action = currentURL
		return out
	}
	// CAS form actions are relative to the SSO host, not the portal
	out.Action = htmlutil.ResolveRef(casHost, action)
	return out
}

// VerifyLoginSuccess reports whether a portfolio page shows the
// authenticated area. The Greek marker is matched exactly, the Latin
// ones case-insensitively.
func VerifyLoginSuccess(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(html, portalGreekMarker) ||
		strings.Contains(lower, "portfolio") ||
		strings.Contains(lower, "course")
}

type Course struct {
	Name string
	Url  string
}

// known markup variants of the course title element, in precedence
// order; the first selector with any matches wins
var courseSelectors = []string{
	".course-title",
	".lesson-title",
	".course-box .title",
	".course-info h4",
}

// hrefs worth scavenging when none of the title selectors match
var courseHrefFragments = []string{"courses", "course.php"}

func resolveCourseHref(baseURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return baseURL + "/" + strings.TrimLeft(href, "/")
}

// ExtractCourses parses the enrolled course list out of a portfolio
// page. An empty result is not an error, the student may simply not be
// enrolled anywhere.
func ExtractCourses(ctx context.Context, html string, baseURL string) []Course {
	doc, ok := parseDocument(html)
	if !ok {
		return nil
	}

	var elements *goquery.Selection
	for _, selector := range courseSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			elements = found
			break
		}
	}

	var courses []Course
	if elements == nil {
		for _, a := range htmlutil.GetAnchors(ctx, doc.Find("a")) {
			if !strings.Contains(a.Href, courseHrefFragments[0]) &&
				!strings.Contains(a.Href, courseHrefFragments[1]) {
				continue
			}
			if a.Name == "" {
				continue
			}
			courses = append(courses, Course{
				Name: a.Name,
				Url:  resolveCourseHref(baseURL, a.Href),
			})
		}
		return courses
	}

	elements.Each(func(_ int, elem *goquery.Selection) {
		link := elem.Find("a").First()
		if link.Length() == 0 {
			link = elem
		}
		href, found := link.Attr("href")
		if !found {
			return
		}
		name := htmlutil.CleanText(link.Text())
		if name == "" {
			return
		}
		courses = append(courses, Course{
			Name: name,
			Url:  resolveCourseHref(baseURL, href),
		})
	})
	return courses
}

// FormatCourseList renders a stable 1-based numbered listing.
func FormatCourseList(courses []Course) string {
	var out strings.Builder
	for i, course := range courses {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(fmt.Sprintf("%d. %s", i+1, course.Name))
	}
	return out.String()
}
