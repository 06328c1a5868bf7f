package backend

import (
	"strings"
	"testing"

	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJobMatchShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.JobMatchResult
	}{
		{
			name: "top level titled keys",
			body: `{"Job Match Score": 82, "Matched Keywords": ["Go", "SQL"], "Missing Important Keywords": ["Kubernetes"],
				"Strengths": ["Backend depth"], "Weaknesses": ["No cloud"], "Final Recommendation": "Apply."}`,
			want: types.JobMatchResult{
				Score:           82,
				MatchedKeywords: []string{"Go", "SQL"},
				MissingKeywords: []string{"Kubernetes"},
				Strengths:       []string{"Backend depth"},
				Weaknesses:      []string{"No cloud"},
				Recommendation:  "Apply.",
			},
		},
		{
			name: "wrapped in result",
			body: `{"result": {"score": 64, "matchedKeywords": "Go, Docker ,", "missingKeywords": []}}`,
			want: types.JobMatchResult{
				Score:           64,
				MatchedKeywords: []string{"Go", "Docker"},
				MissingKeywords: []string{},
				Strengths:       []string{},
				Weaknesses:      []string{},
			},
		},
		{
			name: "result error",
			body: `{"result": {"error": "Failed to parse AI response", "raw_response": "not json"}}`,
			want: types.JobMatchResult{
				Error:           "Failed to parse AI response",
				Raw:             "not json",
				MatchedKeywords: []string{},
				MissingKeywords: []string{},
			},
		},
		{
			name: "embedded analysis string",
			body: `{"result": {"analysis": "Here you go: {\"score\": 91, \"strengths\": \"Great fit\"} thanks"}}`,
			want: types.JobMatchResult{
				Score:           91,
				MatchedKeywords: []string{},
				MissingKeywords: []string{},
				Strengths:       []string{"Great fit"},
				Weaknesses:      []string{},
			},
		},
		{
			name: "other result object",
			body: `{"result": {"matching_skills": ["Python"], "missing_skills": ["Rust"], "suggestions": ["Add metrics.", "Trim summary."]}}`,
			want: types.JobMatchResult{
				MatchedKeywords: []string{"Python"},
				MissingKeywords: []string{"Rust"},
				Strengths:       []string{},
				Weaknesses:      []string{},
				Recommendation:  "Add metrics. Trim summary.",
			},
		},
		{
			name: "top level analysis string",
			body: `{"analysis": "{\"Job Match Score\": 55}"}`,
			want: types.JobMatchResult{
				Score:           55,
				MatchedKeywords: []string{},
				MissingKeywords: []string{},
				Strengths:       []string{},
				Weaknesses:      []string{},
			},
		},
		{
			name: "backend response model",
			body: `{"match_score": 77.6, "matching_skills": ["Go"], "missing_skills": [], "suggestions": []}`,
			want: types.JobMatchResult{
				Score:           78,
				MatchedKeywords: []string{"Go"},
				MissingKeywords: []string{},
				Strengths:       []string{},
				Weaknesses:      []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJobMatch([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJobMatchScoreClamp(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"score": 140}`, 100},
		{`{"score": -5}`, 0},
		{`{"score": "73%"}`, 73},
		{`{"score": "n/a"}`, 0},
		{`{"score": null}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, err := DecodeJobMatch([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Score)
		})
	}
}

func TestDecodeJobMatchUnparsableAnalysis(t *testing.T) {
	long := strings.Repeat("x", 300)
	got, err := DecodeJobMatch([]byte(`{"result": {"analysis": "` + long + `"}}`))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDecodeFailed))
	assert.True(t, got.Failed())
	assert.Equal(t, "Failed to parse analysis", got.Error)
	assert.Len(t, got.Raw, 200)
}

func TestDecodeJobMatchInvalidJSON(t *testing.T) {
	got, err := DecodeJobMatch([]byte("<html>oops</html>"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDecodeFailed))
	assert.Equal(t, "<html>oops</html>", got.Raw)
}

func TestDecodeCourses(t *testing.T) {
	tests := []struct {
		name  string
		field string
		body  string
		want  []types.Course
	}{
		{
			name:  "pairs and video strings",
			field: "web_development",
			body:  `{"field":"web_development","courses":[["Django Crash Course","https://udemy.com/django"],["Intro","https://youtu.be/abc"],"https://www.youtube.com/watch?v=1"]}`,
			want: []types.Course{
				{Name: "Django Crash Course", URL: "https://udemy.com/django"},
				{Name: "Intro", URL: "https://youtu.be/abc", IsVideo: true},
				{Name: "Video Tutorial 3", URL: "https://www.youtube.com/watch?v=1", IsVideo: true},
			},
		},
		{
			name:  "courses object is flattened",
			field: "android",
			body:  `{"courses":{"a":[["A1","https://a/1"]],"b":[["B1","https://b/1"]]}}`,
			want: []types.Course{
				{Name: "A1", URL: "https://a/1"},
				{Name: "B1", URL: "https://b/1"},
			},
		},
		{
			name:  "keyed lists fall back to field",
			field: "ios",
			body:  `{"data_science":[["DS","https://ds"]],"ios":[["Swift","https://swift"]]}`,
			want:  []types.Course{{Name: "Swift", URL: "https://swift"}},
		},
		{
			name:  "keyed lists fall back to data science",
			field: "unknown",
			body:  `{"data_science":[["DS","https://ds"]]}`,
			want:  []types.Course{{Name: "DS", URL: "https://ds"}},
		},
		{
			name:  "objects and unknown items",
			field: "data_science",
			body:  `{"courses":[{"title":"ML Specialization","url":"https://coursera.org/ml"},{"name":"Talk","link":"https://youtube.com/x"},42]}`,
			want: []types.Course{
				{Name: "ML Specialization", URL: "https://coursera.org/ml"},
				{Name: "Talk", URL: "https://youtube.com/x", IsVideo: true},
				{Name: "Unknown Course", URL: "#"},
			},
		},
		{
			name:  "nothing usable",
			field: "x",
			body:  `{"message":"none"}`,
			want:  []types.Course{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeCourses(tt.field, []byte(tt.body)))
		})
	}
}

func TestDecodeAllCourses(t *testing.T) {
	got := DecodeAllCourses([]byte(`{"data_science":[["DS","https://ds"]],"resume_videos":["https://youtu.be/r"],"message":"All available courses","total_count":2}`))

	require.Len(t, got, 2)
	assert.Equal(t, []types.Course{{Name: "DS", URL: "https://ds"}}, got["data_science"])
	assert.Equal(t, []types.Course{{Name: "Video Tutorial 1", URL: "https://youtu.be/r", IsVideo: true}}, got["resume_videos"])
}

func TestDecodeJobs(t *testing.T) {
	jsearch := `{"status":"OK","data":[{"job_title":"Go Developer","employer_name":"Acme","job_city":"Pune","job_country":"IN","job_apply_link":"https://acme/jobs/1"},"junk"]}`
	jobs := DecodeJobs([]byte(jsearch))
	require.Len(t, jobs, 1)
	assert.Equal(t, "Go Developer", jobs[0].JobTitle)
	assert.Equal(t, "Pune", jobs[0].JobCity)

	assert.Len(t, DecodeJobs([]byte(`{"jobs":[{"job_title":"A"},{"job_title":"B"}]}`)), 2)
	assert.Empty(t, DecodeJobs([]byte(`{"message":"quota exceeded"}`)))
}

func TestDetailMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{"validation list", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address","type":"value_error"}]}`, "value is not a valid email address"},
		{"result error", `{"result":{"error":"Job match analysis failed"}}`, "Job match analysis failed"},
		{"message", `{"message":"quota"}`, "quota"},
		{"none", `{}`, ""},
		{"not json", `Internal Server Error`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailMessage([]byte(tt.body)))
		})
	}
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, `a\.b`, escapeKey("a.b"))
	assert.Equal(t, "Job Match Score", escapeKey("Job Match Score"))
}
