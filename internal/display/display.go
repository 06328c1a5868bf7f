// Package display holds the presentation rules shared by the web pages and the CLI formatters.
package display

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"resumelens/internal/types"
)

// NotSpecified is shown for optional fields the backend left empty
const NotSpecified = "Not specified"

// AnalysisCourseLimit is the number of recommended courses on the analysis tab
const AnalysisCourseLimit = 3

// Band is a label and CSS class pair for a score
type Band struct {
	Label string
	Class string
}

// ScoreBand classifies a resume score
func ScoreBand(score int) Band {
	switch {
	case score >= 80:
		return Band{Label: "Excellent!", Class: "score-excellent"}
	case score >= 60:
		return Band{Label: "Good job!", Class: "score-good"}
	case score >= 40:
		return Band{Label: "Needs improvement", Class: "score-average"}
	default:
		return Band{Label: "Needs major work", Class: "score-poor"}
	}
}

// MatchBand returns the CSS class for a job match score
func MatchBand(score int) string {
	switch {
	case score >= 80:
		return "match-high"
	case score >= 60:
		return "match-medium"
	default:
		return "match-low"
	}
}

// HasMatchData reports whether a match result carries anything worth rendering
func HasMatchData(result types.JobMatchResult) bool {
	return result.Score != 0 || len(result.MatchedKeywords) > 0 || len(result.MissingKeywords) > 0
}

// MatchDescription summarizes a job match result in one sentence
func MatchDescription(result types.JobMatchResult) string {
	if !HasMatchData(result) {
		return "No match data available. Please try again."
	}

	switch score := result.Score; {
	case score >= 90:
		return "Excellent match! Highly recommended to apply."
	case score >= 80:
		return "Strong match. Good candidate for this position."
	case score >= 70:
		return "Good match. Consider applying with some improvements."
	case score >= 60:
		return "Fair match. Needs significant improvements."
	default:
		return "Poor match. Consider other opportunities or major resume revisions."
	}
}

var nonDigit = regexp.MustCompile(`\D`)

// FormatPhone renders North American and Indian numbers; anything else is returned unchanged
func FormatPhone(raw string) string {
	if raw == "" {
		return NotSpecified
	}

	d := nonDigit.ReplaceAllString(raw, "")
	switch {
	case len(d) == 10:
		return fmt.Sprintf("+1 (%s) %s-%s", d[:3], d[3:6], d[6:])
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return fmt.Sprintf("+1 (%s) %s-%s", d[1:4], d[4:7], d[7:])
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		return fmt.Sprintf("+91 %s %s", d[2:7], d[7:])
	default:
		return raw
	}
}

// fieldSlugs maps predicted career fields to course list keys
var fieldSlugs = map[string]string{
	"Data Science":          "data_science",
	"Data science":          "data_science",
	"Web Development":       "web_development",
	"Web development":       "web_development",
	"Android Development":   "android",
	"Android development":   "android",
	"Android":               "android",
	"iOS Development":       "ios",
	"iOS development":       "ios",
	"iOS":                   "ios",
	"UI/UX Design":          "ui_ux",
	"UI/UX":                 "ui_ux",
	"UI UX Design":          "ui_ux",
	"Resume Writing":        "resume",
	"Resume writing":        "resume",
	"Interview Preparation": "interview",
	"Interview preparation": "interview",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FieldSlug converts a predicted field such as "Web Development" to its course key
func FieldSlug(field string) string {
	if slug, ok := fieldSlugs[field]; ok {
		return slug
	}
	for name, slug := range fieldSlugs {
		if strings.EqualFold(name, field) {
			return slug
		}
	}
	return whitespaceRun.ReplaceAllString(strings.ToLower(field), "_")
}

// PlanLabel names the subscription plan shown on the profile page
func PlanLabel(tier string) string {
	switch strings.ToLower(tier) {
	case "pro", "enterprise":
		return "Pro"
	default:
		return "Free"
	}
}

// Initial is the avatar letter for a user name
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "U"
	}
	return string(unicode.ToUpper(r))
}

// TopCourses returns at most n courses
func TopCourses(courses []types.Course, n int) []types.Course {
	if n < 0 {
		n = 0
	}
	if len(courses) <= n {
		return courses
	}
	return courses[:n]
}

// TopCourseNames is TopCourses for the plain course names stored on an analysis
func TopCourseNames(names []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(names) <= n {
		return names
	}
	return names[:n]
}

func DisplayOrDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// OrNotSpecified is DisplayOrDefault with the standard placeholder
func OrNotSpecified(value string) string {
	return DisplayOrDefault(value, NotSpecified)
}
