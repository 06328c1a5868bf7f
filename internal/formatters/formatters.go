package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumelens/internal/display"
	"resumelens/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})

	registry.RegisterFormatter("text", "AnalysisResult", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisResult", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "AnalysisHistory", &HistoryTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisHistory", &HistoryMarkdownFormatter{})
	registry.RegisterFormatter("text", "StatsSummary", &StatsTextFormatter{})
	registry.RegisterFormatter("markdown", "StatsSummary", &StatsMarkdownFormatter{})
	registry.RegisterFormatter("text", "JobMatchResult", &JobMatchTextFormatter{})
	registry.RegisterFormatter("markdown", "JobMatchResult", &JobMatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "JobSearchResult", &JobSearchTextFormatter{})
	registry.RegisterFormatter("markdown", "JobSearchResult", &JobSearchMarkdownFormatter{})
	registry.RegisterFormatter("text", "CourseList", &CourseListTextFormatter{})
	registry.RegisterFormatter("markdown", "CourseList", &CourseListMarkdownFormatter{})
	registry.RegisterFormatter("text", "User", &UserTextFormatter{})
	registry.RegisterFormatter("markdown", "User", &UserMarkdownFormatter{})
	registry.RegisterFormatter("text", "RewriteResult", &RewriteTextFormatter{})
	registry.RegisterFormatter("markdown", "RewriteResult", &RewriteMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter.
// Pointers to the known result types are formatted like their values.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// FormatsFor returns the formats that can render values like sample, sorted.
// The generic "any" formatters count for every type.
func (fr *FormatterRegistry) FormatsFor(sample any) []string {
	dataType := getDataType(deref(sample))
	formats := make([]string, 0, len(fr.formatters))
	for format, byType := range fr.formatters {
		_, typed := byType[dataType]
		_, generic := byType["any"]
		if typed || generic {
			formats = append(formats, format)
		}
	}
	sort.Strings(formats)
	return formats
}

func deref(data any) any {
	switch v := data.(type) {
	case *types.AnalysisResult:
		if v != nil {
			return *v
		}
	case *types.AnalysisHistory:
		if v != nil {
			return *v
		}
	case *types.StatsSummary:
		if v != nil {
			return *v
		}
	case *types.JobMatchResult:
		if v != nil {
			return *v
		}
	case *types.JobSearchResult:
		if v != nil {
			return *v
		}
	case *types.CourseList:
		if v != nil {
			return *v
		}
	case *types.User:
		if v != nil {
			return *v
		}
	case *types.RewriteResult:
		if v != nil {
			return *v
		}
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.AnalysisHistory:
		return "AnalysisHistory"
	case types.StatsSummary:
		return "StatsSummary"
	case types.JobMatchResult:
		return "JobMatchResult"
	case types.JobSearchResult:
		return "JobSearchResult"
	case types.CourseList:
		return "CourseList"
	case types.User:
		return "User"
	case types.RewriteResult:
		return "RewriteResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func writeList(b *strings.Builder, title string, items []string, empty string) {
	b.WriteString(title)
	b.WriteString("\n")
	if len(items) == 0 {
		fmt.Fprintf(b, "  %s\n\n", empty)
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func formatDate(ts *types.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return display.NotSpecified
	}
	return ts.Format("2006-01-02 15:04")
}

// AnalysisTextFormatter handles text formatting for resume analyses
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder
	band := display.ScoreBand(result.ResumeScore)

	output.WriteString("=== RESUME ANALYSIS ===\n\n")
	if result.ID != "" {
		fmt.Fprintf(&output, "ID: %s\n", result.ID)
	}
	fmt.Fprintf(&output, "File: %s\n", display.OrNotSpecified(result.OriginalFilename))
	fmt.Fprintf(&output, "Analyzed: %s\n\n", formatDate(result.AnalysisDate))

	output.WriteString("=== CANDIDATE ===\n")
	fmt.Fprintf(&output, "Name: %s\n", display.OrNotSpecified(result.Name))
	fmt.Fprintf(&output, "Email: %s\n", display.OrNotSpecified(result.Email))
	fmt.Fprintf(&output, "Phone: %s\n", display.FormatPhone(result.MobileNumber))
	fmt.Fprintf(&output, "Degree: %s\n", display.OrNotSpecified(result.Degree))
	fmt.Fprintf(&output, "Pages: %d\n", result.NoOfPages)
	fmt.Fprintf(&output, "Level: %s\n", display.OrNotSpecified(result.CandidateLevel))
	fmt.Fprintf(&output, "Predicted Field: %s\n\n", display.OrNotSpecified(result.PredictedField))

	output.WriteString("=== SCORES ===\n")
	fmt.Fprintf(&output, "Resume Score: %d/100 (%s)\n", result.ResumeScore, band.Label)
	fmt.Fprintf(&output, "ATS Score: %d/100\n\n", result.ATSScore)

	writeList(&output, "Skills:", result.Skills, "No skills detected")
	writeList(&output, "Recommended Skills:", result.RecommendedSkills, "None")
	writeList(&output, "Recommended Courses:",
		display.TopCourseNames(result.RecommendedCourses, display.AnalysisCourseLimit), "None")
	writeList(&output, "Tips:", result.Tips, "No tips")

	return output.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisResult"
}

// AnalysisMarkdownFormatter handles markdown formatting for resume analyses
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	var output strings.Builder
	band := display.ScoreBand(result.ResumeScore)

	output.WriteString("# Resume Analysis\n\n")
	fmt.Fprintf(&output, "**Resume Score:** %d/100 (%s)  \n", result.ResumeScore, band.Label)
	fmt.Fprintf(&output, "**ATS Score:** %d/100\n\n", result.ATSScore)

	output.WriteString("## Candidate\n\n")
	output.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&output, "| Name | %s |\n", display.OrNotSpecified(result.Name))
	fmt.Fprintf(&output, "| Email | %s |\n", display.OrNotSpecified(result.Email))
	fmt.Fprintf(&output, "| Phone | %s |\n", display.FormatPhone(result.MobileNumber))
	fmt.Fprintf(&output, "| Degree | %s |\n", display.OrNotSpecified(result.Degree))
	fmt.Fprintf(&output, "| Pages | %d |\n", result.NoOfPages)
	fmt.Fprintf(&output, "| Level | %s |\n", display.OrNotSpecified(result.CandidateLevel))
	fmt.Fprintf(&output, "| Predicted Field | %s |\n\n", display.OrNotSpecified(result.PredictedField))

	writeList(&output, "## Skills\n", result.Skills, "No skills detected")
	writeList(&output, "## Recommended Skills\n", result.RecommendedSkills, "None")
	writeList(&output, "## Recommended Courses\n",
		display.TopCourseNames(result.RecommendedCourses, display.AnalysisCourseLimit), "None")
	writeList(&output, "## Tips\n", result.Tips, "No tips")

	return output.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisResult"
}

// HistoryTextFormatter handles text formatting for analysis history pages
type HistoryTextFormatter struct{}

func (f *HistoryTextFormatter) Format(data any) (string, error) {
	history, ok := data.(types.AnalysisHistory)
	if !ok {
		return "", fmt.Errorf("expected AnalysisHistory, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== ANALYSIS HISTORY ===\n\n")
	if len(history.Analyses) == 0 {
		output.WriteString("No analyses yet. Upload a resume to get started.\n")
		return output.String(), nil
	}

	fmt.Fprintf(&output, "Showing %d of %d (page %d)\n\n", len(history.Analyses), history.TotalCount, history.Page)
	for _, a := range history.Analyses {
		fmt.Fprintf(&output, "%s  %-30s  score %3d  %s  %s\n",
			a.ID,
			display.OrNotSpecified(a.OriginalFilename),
			a.ResumeScore,
			display.OrNotSpecified(a.PredictedField),
			formatDate(a.AnalysisDate))
	}
	return output.String(), nil
}

func (f *HistoryTextFormatter) SupportedType() string {
	return "AnalysisHistory"
}

// HistoryMarkdownFormatter handles markdown formatting for analysis history pages
type HistoryMarkdownFormatter struct{}

func (f *HistoryMarkdownFormatter) Format(data any) (string, error) {
	history, ok := data.(types.AnalysisHistory)
	if !ok {
		return "", fmt.Errorf("expected AnalysisHistory, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Analysis History\n\n")
	if len(history.Analyses) == 0 {
		output.WriteString("No analyses yet. Upload a resume to get started.\n")
		return output.String(), nil
	}

	fmt.Fprintf(&output, "Page %d, %d analyses in total.\n\n", history.Page, history.TotalCount)
	output.WriteString("| ID | File | Score | Field | Date |\n|---|---|---|---|---|\n")
	for _, a := range history.Analyses {
		fmt.Fprintf(&output, "| %s | %s | %d | %s | %s |\n",
			a.ID,
			display.OrNotSpecified(a.OriginalFilename),
			a.ResumeScore,
			display.OrNotSpecified(a.PredictedField),
			formatDate(a.AnalysisDate))
	}
	return output.String(), nil
}

func (f *HistoryMarkdownFormatter) SupportedType() string {
	return "AnalysisHistory"
}

func sortedSkills(freq map[string]int) []string {
	skills := make([]string, 0, len(freq))
	for skill := range freq {
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool {
		if freq[skills[i]] != freq[skills[j]] {
			return freq[skills[i]] > freq[skills[j]]
		}
		return skills[i] < skills[j]
	})
	return skills
}

// StatsTextFormatter handles text formatting for history statistics
type StatsTextFormatter struct{}

func (f *StatsTextFormatter) Format(data any) (string, error) {
	stats, ok := data.(types.StatsSummary)
	if !ok {
		return "", fmt.Errorf("expected StatsSummary, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== STATISTICS ===\n\n")
	fmt.Fprintf(&output, "Total Analyses: %d\n", stats.TotalAnalyses)
	fmt.Fprintf(&output, "Average Score: %.1f\n", stats.AverageScore)
	fmt.Fprintf(&output, "Best Score: %d\n", stats.BestScore)
	fmt.Fprintf(&output, "Most Common Field: %s\n", display.OrNotSpecified(stats.MostCommonField))
	fmt.Fprintf(&output, "Last Analysis: %s\n\n", formatDate(stats.LastAnalysisDate))

	skills := sortedSkills(stats.SkillFrequency)
	if len(skills) > 0 {
		output.WriteString("Top Skills:\n")
		for _, skill := range skills {
			fmt.Fprintf(&output, "- %s (%d)\n", skill, stats.SkillFrequency[skill])
		}
	}
	return output.String(), nil
}

func (f *StatsTextFormatter) SupportedType() string {
	return "StatsSummary"
}

// StatsMarkdownFormatter handles markdown formatting for history statistics
type StatsMarkdownFormatter struct{}

func (f *StatsMarkdownFormatter) Format(data any) (string, error) {
	stats, ok := data.(types.StatsSummary)
	if !ok {
		return "", fmt.Errorf("expected StatsSummary, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Statistics\n\n")
	fmt.Fprintf(&output, "- **Total Analyses:** %d\n", stats.TotalAnalyses)
	fmt.Fprintf(&output, "- **Average Score:** %.1f\n", stats.AverageScore)
	fmt.Fprintf(&output, "- **Best Score:** %d\n", stats.BestScore)
	fmt.Fprintf(&output, "- **Most Common Field:** %s\n", display.OrNotSpecified(stats.MostCommonField))
	fmt.Fprintf(&output, "- **Last Analysis:** %s\n\n", formatDate(stats.LastAnalysisDate))

	skills := sortedSkills(stats.SkillFrequency)
	if len(skills) > 0 {
		output.WriteString("## Top Skills\n\n| Skill | Count |\n|---|---|\n")
		for _, skill := range skills {
			fmt.Fprintf(&output, "| %s | %d |\n", skill, stats.SkillFrequency[skill])
		}
	}
	return output.String(), nil
}

func (f *StatsMarkdownFormatter) SupportedType() string {
	return "StatsSummary"
}

// JobMatchTextFormatter handles text formatting for job match results
type JobMatchTextFormatter struct{}

func (f *JobMatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.JobMatchResult)
	if !ok {
		return "", fmt.Errorf("expected JobMatchResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== JOB MATCH ===\n\n")
	if result.Failed() {
		fmt.Fprintf(&output, "Error: %s\n", result.Error)
		if result.Raw != "" {
			fmt.Fprintf(&output, "\nRaw response:\n%s\n", result.Raw)
		}
		return output.String(), nil
	}

	fmt.Fprintf(&output, "Score: %d%%\n", result.Score)
	fmt.Fprintf(&output, "%s\n\n", display.MatchDescription(result))

	writeList(&output, "Matched Keywords:", result.MatchedKeywords, "None")
	writeList(&output, "Missing Keywords:", result.MissingKeywords, "None")
	writeList(&output, "Strengths:", result.Strengths, "None")
	writeList(&output, "Weaknesses:", result.Weaknesses, "None")
	if result.Recommendation != "" {
		fmt.Fprintf(&output, "Recommendation:\n%s\n", result.Recommendation)
	}
	return output.String(), nil
}

func (f *JobMatchTextFormatter) SupportedType() string {
	return "JobMatchResult"
}

// JobMatchMarkdownFormatter handles markdown formatting for job match results
type JobMatchMarkdownFormatter struct{}

func (f *JobMatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.JobMatchResult)
	if !ok {
		return "", fmt.Errorf("expected JobMatchResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Job Match\n\n")
	if result.Failed() {
		fmt.Fprintf(&output, "**Error:** %s\n", result.Error)
		if result.Raw != "" {
			fmt.Fprintf(&output, "\n```\n%s\n```\n", result.Raw)
		}
		return output.String(), nil
	}

	fmt.Fprintf(&output, "**Score:** %d%%\n\n", result.Score)
	fmt.Fprintf(&output, "%s\n\n", display.MatchDescription(result))

	writeList(&output, "## Matched Keywords\n", result.MatchedKeywords, "None")
	writeList(&output, "## Missing Keywords\n", result.MissingKeywords, "None")
	writeList(&output, "## Strengths\n", result.Strengths, "None")
	writeList(&output, "## Weaknesses\n", result.Weaknesses, "None")
	if result.Recommendation != "" {
		fmt.Fprintf(&output, "## Recommendation\n\n%s\n", result.Recommendation)
	}
	return output.String(), nil
}

func (f *JobMatchMarkdownFormatter) SupportedType() string {
	return "JobMatchResult"
}

func jobLocation(job types.Job) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{job.JobCity, job.JobCountry} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return display.NotSpecified
	}
	return strings.Join(parts, ", ")
}

// JobSearchTextFormatter handles text formatting for job search results
type JobSearchTextFormatter struct{}

func (f *JobSearchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.JobSearchResult)
	if !ok {
		return "", fmt.Errorf("expected JobSearchResult, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== JOBS: %s in %s ===\n\n", result.Query, result.Location)
	if len(result.Jobs) == 0 {
		output.WriteString("No jobs found.\n")
		return output.String(), nil
	}
	for i, job := range result.Jobs {
		fmt.Fprintf(&output, "%d. %s at %s\n", i+1,
			display.OrNotSpecified(job.JobTitle), display.OrNotSpecified(job.EmployerName))
		fmt.Fprintf(&output, "   Location: %s\n", jobLocation(job))
		if job.JobApplyLink != "" {
			fmt.Fprintf(&output, "   Apply: %s\n", job.JobApplyLink)
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (f *JobSearchTextFormatter) SupportedType() string {
	return "JobSearchResult"
}

// JobSearchMarkdownFormatter handles markdown formatting for job search results
type JobSearchMarkdownFormatter struct{}

func (f *JobSearchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.JobSearchResult)
	if !ok {
		return "", fmt.Errorf("expected JobSearchResult, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Jobs: %s in %s\n\n", result.Query, result.Location)
	if len(result.Jobs) == 0 {
		output.WriteString("No jobs found.\n")
		return output.String(), nil
	}
	for _, job := range result.Jobs {
		fmt.Fprintf(&output, "## %s\n\n", display.OrNotSpecified(job.JobTitle))
		fmt.Fprintf(&output, "**%s**, %s\n\n", display.OrNotSpecified(job.EmployerName), jobLocation(job))
		if job.JobApplyLink != "" {
			fmt.Fprintf(&output, "[Apply](%s)\n\n", job.JobApplyLink)
		}
	}
	return output.String(), nil
}

func (f *JobSearchMarkdownFormatter) SupportedType() string {
	return "JobSearchResult"
}

// CourseListTextFormatter handles text formatting for course lists
type CourseListTextFormatter struct{}

func (f *CourseListTextFormatter) Format(data any) (string, error) {
	list, ok := data.(types.CourseList)
	if !ok {
		return "", fmt.Errorf("expected CourseList, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== COURSES: %s ===\n\n", list.Field)
	if len(list.Courses) == 0 {
		output.WriteString("No courses available for this field.\n")
		return output.String(), nil
	}
	for i, c := range list.Courses {
		kind := "course"
		if c.IsVideo {
			kind = "video"
		}
		fmt.Fprintf(&output, "%d. %s [%s]\n   %s\n", i+1, c.Name, kind, c.URL)
	}
	return output.String(), nil
}

func (f *CourseListTextFormatter) SupportedType() string {
	return "CourseList"
}

// CourseListMarkdownFormatter handles markdown formatting for course lists
type CourseListMarkdownFormatter struct{}

func (f *CourseListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(types.CourseList)
	if !ok {
		return "", fmt.Errorf("expected CourseList, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Courses: %s\n\n", list.Field)
	if len(list.Courses) == 0 {
		output.WriteString("No courses available for this field.\n")
		return output.String(), nil
	}
	for _, c := range list.Courses {
		suffix := ""
		if c.IsVideo {
			suffix = " (video)"
		}
		if c.URL == "" {
			fmt.Fprintf(&output, "- %s%s\n", c.Name, suffix)
			continue
		}
		fmt.Fprintf(&output, "- [%s](%s)%s\n", c.Name, c.URL, suffix)
	}
	return output.String(), nil
}

func (f *CourseListMarkdownFormatter) SupportedType() string {
	return "CourseList"
}

// UserTextFormatter handles text formatting for user profiles
type UserTextFormatter struct{}

func (f *UserTextFormatter) Format(data any) (string, error) {
	user, ok := data.(types.User)
	if !ok {
		return "", fmt.Errorf("expected User, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== PROFILE ===\n\n")
	fmt.Fprintf(&output, "Name: %s\n", display.OrNotSpecified(user.Name))
	fmt.Fprintf(&output, "Email: %s\n", display.OrNotSpecified(user.Email))
	fmt.Fprintf(&output, "Phone: %s\n", display.FormatPhone(user.Phone))
	fmt.Fprintf(&output, "Plan: %s\n", display.PlanLabel(user.SubscriptionTier))
	fmt.Fprintf(&output, "Resumes Analyzed: %d\n", user.ResumeCount)
	fmt.Fprintf(&output, "Member Since: %s\n", formatDate(user.CreatedAt))
	fmt.Fprintf(&output, "Last Login: %s\n", formatDate(user.LastLogin))
	return output.String(), nil
}

func (f *UserTextFormatter) SupportedType() string {
	return "User"
}

// UserMarkdownFormatter handles markdown formatting for user profiles
type UserMarkdownFormatter struct{}

func (f *UserMarkdownFormatter) Format(data any) (string, error) {
	user, ok := data.(types.User)
	if !ok {
		return "", fmt.Errorf("expected User, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n\n", display.OrNotSpecified(user.Name))
	fmt.Fprintf(&output, "- **Email:** %s\n", display.OrNotSpecified(user.Email))
	fmt.Fprintf(&output, "- **Phone:** %s\n", display.FormatPhone(user.Phone))
	fmt.Fprintf(&output, "- **Plan:** %s\n", display.PlanLabel(user.SubscriptionTier))
	fmt.Fprintf(&output, "- **Resumes Analyzed:** %d\n", user.ResumeCount)
	fmt.Fprintf(&output, "- **Member Since:** %s\n", formatDate(user.CreatedAt))
	fmt.Fprintf(&output, "- **Last Login:** %s\n", formatDate(user.LastLogin))
	return output.String(), nil
}

func (f *UserMarkdownFormatter) SupportedType() string {
	return "User"
}

// RewriteTextFormatter handles text formatting for rewrites
type RewriteTextFormatter struct{}

func (f *RewriteTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RewriteResult)
	if !ok {
		return "", fmt.Errorf("expected RewriteResult, got %T", data)
	}
	return "=== REWRITTEN RESUME ===\n\n" + result.Rewritten + "\n", nil
}

func (f *RewriteTextFormatter) SupportedType() string {
	return "RewriteResult"
}

// RewriteMarkdownFormatter handles markdown formatting for rewrites
type RewriteMarkdownFormatter struct{}

func (f *RewriteMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RewriteResult)
	if !ok {
		return "", fmt.Errorf("expected RewriteResult, got %T", data)
	}
	return "# Rewritten Resume\n\n" + result.Rewritten + "\n", nil
}

func (f *RewriteMarkdownFormatter) SupportedType() string {
	return "RewriteResult"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
