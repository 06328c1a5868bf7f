package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp accepts the backend's datetime encodings, which may omit the zone
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses RFC 3339 and naive ISO 8601 values as UTC
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// MarshalJSON writes RFC 3339
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// User mirrors the backend's user profile response
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	CreatedAt        *Timestamp `json:"created_at,omitempty"`
	LastLogin        *Timestamp `json:"last_login,omitempty"`
	ResumeCount      int        `json:"resume_count"`
	SubscriptionTier string     `json:"subscription_tier,omitempty"` // free, pro, enterprise
	IsActive         bool       `json:"is_active"`
}

// AuthTokens is returned by login, register and refresh
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// AuthSession is the server-side record of a signed-in browser or CLI user
type AuthSession struct {
	ID            string    `json:"id"`
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	User          *User     `json:"user,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastRefreshed time.Time `json:"last_refreshed,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (s *AuthSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ProfileUpdate is the body of PUT /api/auth/me
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PasswordChange is the body of POST /api/auth/change-password
type PasswordChange struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// AnalysisResult is a parsed and scored resume
type AnalysisResult struct {
	ID                 string     `json:"id,omitempty"`
	Name               string     `json:"name,omitempty"`
	Email              string     `json:"email,omitempty"`
	MobileNumber       string     `json:"mobile_number,omitempty"`
	Degree             string     `json:"degree,omitempty"`
	NoOfPages          int        `json:"no_of_pages"`
	CandidateLevel     string     `json:"candidate_level,omitempty"`
	PredictedField     string     `json:"predicted_field,omitempty"`
	Skills             []string   `json:"skills"`
	RecommendedSkills  []string   `json:"recommended_skills"`
	RecommendedCourses []string   `json:"recommended_courses"`
	ResumeScore        int        `json:"resume_score"`
	ATSScore           int        `json:"ats_score"`
	Tips               []string   `json:"tips"`
	OriginalFilename   string     `json:"original_filename,omitempty"`
	AnalysisDate       *Timestamp `json:"analysis_date,omitempty"`
	RawText            string     `json:"raw_text,omitempty"`
}

// AnalysisHistory is one page of a user's past analyses
type AnalysisHistory struct {
	Analyses   []AnalysisResult `json:"analyses"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"-"`
	Limit      int              `json:"-"`
}

// StatsSummary aggregates a user's analysis history
type StatsSummary struct {
	TotalAnalyses    int            `json:"total_analyses"`
	AverageScore     float64        `json:"average_score"`
	BestScore        int            `json:"best_score"`
	MostCommonField  string         `json:"most_common_field"`
	SkillFrequency   map[string]int `json:"skill_frequency"`
	LastAnalysisDate *Timestamp     `json:"last_analysis_date,omitempty"`
}

// JobMatchRequest is the body of POST /job-match
type JobMatchRequest struct {
	ResumeText     string   `json:"resume_text"`
	JobDescription string   `json:"job_description"`
	Skills         []string `json:"skills"`
}

// MarshalJSON keeps skills an empty array instead of null
func (r JobMatchRequest) MarshalJSON() ([]byte, error) {
	type alias JobMatchRequest
	a := alias(r)
	if a.Skills == nil {
		a.Skills = []string{}
	}
	return json.Marshal(a)
}

// JobMatchResult is the normalized outcome of a job match
type JobMatchResult struct {
	Score           int      `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendation  string   `json:"recommendation,omitempty"`

	// Set when the backend answered but its analysis could not be used
	Error string `json:"error,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// Failed reports whether the result carries an error instead of a match
func (r JobMatchResult) Failed() bool {
	return r.Error != ""
}

// Job is one listing from the job search proxy
type Job struct {
	JobTitle       string `json:"job_title"`
	EmployerName   string `json:"employer_name"`
	JobCity        string `json:"job_city,omitempty"`
	JobCountry     string `json:"job_country,omitempty"`
	JobDescription string `json:"job_description,omitempty"`
	JobApplyLink   string `json:"job_apply_link,omitempty"`
}

// JobSearchResult is the outcome of GET /job-search
type JobSearchResult struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Jobs     []Job  `json:"jobs"`
}

// Course is a learning resource for a career field
type Course struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	IsVideo bool   `json:"is_video"`
}

// CourseList groups the courses recommended for one field
type CourseList struct {
	Field   string   `json:"field"`
	Courses []Course `json:"courses"`
}

// RewriteRequest is the body of POST /rewrite
type RewriteRequest struct {
	Text       string `json:"text"`
	TargetRole string `json:"target_role"`
}

// RewriteResult holds the rewritten resume text
type RewriteResult struct {
	Rewritten string `json:"rewritten"`
}

// HealthStatus is the backend's health report
type HealthStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Healthy reports whether the backend considers itself up
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy" || h.Status == "ok"
}
