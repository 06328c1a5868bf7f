package backend

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/tidwall/gjson"
)

// rawPreviewLimit caps how much unparsable backend text is kept for display
const rawPreviewLimit = 200

const msgParseFailed = "Failed to parse analysis"

// Field aliases, in lookup order
var (
	scoreKeys          = []string{"Job Match Score", "score", "matchScore", "match_score"}
	matchedKeys        = []string{"Matched Keywords", "matchedKeywords", "matching_skills"}
	missingKeys        = []string{"Missing Important Keywords", "missingKeywords", "missing_skills"}
	strengthKeys       = []string{"Strengths", "strengths"}
	weaknessKeys       = []string{"Weaknesses", "weaknesses"}
	recommendationKeys = []string{"Final Recommendation", "recommendation", "finalRecommendation"}
	rawKeys            = []string{"raw_response", "raw"}
)

// DecodeJobMatch normalizes every job match response shape the backend has produced.
// An unusable analysis yields a result with Error and Raw set; the returned error is
// then a DECODE_FAILED AppError.
func DecodeJobMatch(body []byte) (types.JobMatchResult, error) {
	if !gjson.ValidBytes(body) {
		return parseFailure(string(body))
	}

	payload, failed, err := selectMatchPayload(gjson.ParseBytes(body))
	if failed != nil {
		return *failed, err
	}

	if !hasScore(payload) {
		if e := payload.Get("error"); e.Exists() {
			return types.JobMatchResult{
				Error:           e.String(),
				Raw:             truncate(first(payload, rawKeys).String(), rawPreviewLimit),
				MatchedKeywords: []string{},
				MissingKeywords: []string{},
			}, nil
		}
	}

	return types.JobMatchResult{
		Score:           clampScore(first(payload, scoreKeys)),
		MatchedKeywords: keywordList(first(payload, matchedKeys)),
		MissingKeywords: keywordList(first(payload, missingKeys)),
		Strengths:       textList(first(payload, strengthKeys)),
		Weaknesses:      textList(first(payload, weaknessKeys)),
		Recommendation:  recommendation(payload),
	}, nil
}

// selectMatchPayload picks the object holding the match fields
func selectMatchPayload(root gjson.Result) (gjson.Result, *types.JobMatchResult, error) {
	if hasScore(root) {
		return root, nil, nil
	}

	if result := root.Get("result"); result.IsObject() {
		switch {
		case hasScore(result):
			return result, nil, nil
		case result.Get("error").Exists():
			return result, nil, nil
		case result.Get("analysis").Type == gjson.String:
			return embeddedPayload(result.Get("analysis").String())
		default:
			return result, nil, nil
		}
	}

	if analysis := root.Get("analysis"); analysis.Type == gjson.String {
		return embeddedPayload(analysis.String())
	}

	return root, nil, nil
}

// embeddedPayload extracts the outermost {...} span from free text
func embeddedPayload(text string) (gjson.Result, *types.JobMatchResult, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		if span := text[start : end+1]; gjson.Valid(span) {
			return gjson.Parse(span), nil, nil
		}
	}
	res, err := parseFailure(text)
	return gjson.Result{}, &res, err
}

func parseFailure(raw string) (types.JobMatchResult, error) {
	result := types.JobMatchResult{
		Error:           msgParseFailed,
		Raw:             truncate(raw, rawPreviewLimit),
		MatchedKeywords: []string{},
		MissingKeywords: []string{},
	}
	err := errors.NewBackendError(errors.ErrCodeDecodeFailed, msgParseFailed, 0, nil).
		WithContext("raw_length", len(raw))
	return result, err
}

func hasScore(r gjson.Result) bool {
	return r.IsObject() && (r.Get(escapeKey("Job Match Score")).Exists() || r.Get("score").Exists())
}

// first returns the value of the first alias present in r
func first(r gjson.Result, keys []string) gjson.Result {
	for _, key := range keys {
		if v := r.Get(escapeKey(key)); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func clampScore(v gjson.Result) int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.String()), "%"))
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return 0
		}
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

// keywordList accepts an array or a comma separated string
func keywordList(v gjson.Result) []string {
	if v.Type == gjson.String {
		return splitNonEmpty(strings.Split(v.String(), ","))
	}
	return textList(v)
}

// textList accepts an array or a single string
func textList(v gjson.Result) []string {
	switch {
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			parts = append(parts, item.String())
		}
		return splitNonEmpty(parts)
	case v.Type == gjson.String:
		return splitNonEmpty([]string{v.String()})
	default:
		return []string{}
	}
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func recommendation(payload gjson.Result) string {
	if v := first(payload, recommendationKeys); v.Exists() {
		if v.IsArray() {
			return strings.Join(textList(v), " ")
		}
		return strings.TrimSpace(v.String())
	}
	return strings.Join(textList(payload.Get("suggestions")), " ")
}

// DecodeCourses reads the course list from every known /api/courses shape
func DecodeCourses(field string, body []byte) []types.Course {
	root := gjson.ParseBytes(body)

	var items []gjson.Result
	courses := root.Get("courses")
	switch {
	case courses.IsArray():
		items = courses.Array()
	case courses.IsObject():
		courses.ForEach(func(_, v gjson.Result) bool {
			if v.IsArray() {
				items = append(items, v.Array()...)
			} else {
				items = append(items, v)
			}
			return true
		})
	case root.Get("data_science").Exists():
		for _, key := range []string{field, "web_development", "data_science"} {
			if v := root.Get(escapeKey(key)); v.IsArray() {
				items = v.Array()
				break
			}
		}
	}

	return courseItems(items)
}

// DecodeAllCourses returns every keyed course list in an /api/all-courses response
func DecodeAllCourses(body []byte) map[string][]types.Course {
	out := make(map[string][]types.Course)
	gjson.ParseBytes(body).ForEach(func(key, v gjson.Result) bool {
		if v.IsArray() {
			out[key.String()] = courseItems(v.Array())
		}
		return true
	})
	return out
}

func courseItems(items []gjson.Result) []types.Course {
	out := make([]types.Course, 0, len(items))
	for i, item := range items {
		out = append(out, courseItem(i, item))
	}
	return out
}

func courseItem(index int, item gjson.Result) types.Course {
	switch {
	case item.IsArray():
		parts := item.Array()
		name, url := "Unnamed Course", "#"
		if len(parts) > 0 && parts[0].String() != "" {
			name = parts[0].String()
		}
		if len(parts) > 1 && parts[1].String() != "" {
			url = parts[1].String()
		}
		return types.Course{Name: name, URL: url, IsVideo: isVideoURL(url)}
	case item.Type == gjson.String:
		return types.Course{Name: fmt.Sprintf("Video Tutorial %d", index+1), URL: item.String(), IsVideo: true}
	case item.IsObject():
		name := first(item, []string{"title", "name"}).String()
		url := first(item, []string{"url", "link"}).String()
		if name == "" {
			name = "Unnamed Course"
		}
		if url == "" {
			url = "#"
		}
		return types.Course{Name: name, URL: url, IsVideo: isVideoURL(url)}
	default:
		return types.Course{Name: "Unknown Course", URL: "#"}
	}
}

func isVideoURL(url string) bool {
	return strings.Contains(url, "youtu.be") || strings.Contains(url, "youtube.com")
}

// DecodeJobs reads listings from "jobs" or the raw JSearch "data" array
func DecodeJobs(body []byte) []types.Job {
	root := gjson.ParseBytes(body)
	list := root.Get("jobs")
	if !list.IsArray() {
		list = root.Get("data")
	}
	if !list.IsArray() {
		return []types.Job{}
	}

	jobs := make([]types.Job, 0, len(list.Array()))
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		jobs = append(jobs, types.Job{
			JobTitle:       item.Get("job_title").String(),
			EmployerName:   item.Get("employer_name").String(),
			JobCity:        item.Get("job_city").String(),
			JobCountry:     item.Get("job_country").String(),
			JobDescription: item.Get("job_description").String(),
			JobApplyLink:   item.Get("job_apply_link").String(),
		})
	}
	return jobs
}

// DetailMessage extracts the human readable error from a backend error body
func DetailMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)

	detail := root.Get("detail")
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		for _, item := range detail.Array() {
			if msg := item.Get("msg"); msg.Exists() {
				return msg.String()
			}
		}
	case detail.IsObject():
		if msg := detail.Get("msg"); msg.Exists() {
			return msg.String()
		}
	}

	if msg := root.Get("result.error"); msg.Type == gjson.String {
		return msg.String()
	}
	if msg := root.Get("message"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}

// escapeKey makes an object key safe to use as a gjson path
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
