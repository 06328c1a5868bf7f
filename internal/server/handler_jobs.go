package server

import (
	"net/http"

	"resumelens/internal/backend"
	"resumelens/internal/display"
	"resumelens/internal/errors"
	"resumelens/internal/observability"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	msgJobSearchFailed = "Unable to fetch jobs. Check API Key or Internet."
	msgJobMatchFailed  = "An error occurred while analyzing the job match."
)

// jobSearchPage renders the match tab with listings from the job search proxy
func (s *Server) jobSearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("id") == "" {
		http.Redirect(w, r, "/analyze", http.StatusSeeOther)
		return
	}

	analysis, err := s.loadAnalysis(r)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", pageData{
			Title: "Analyze",
			Error: errors.UserMessage(err),
			Data:  newAnalyzeView(nil, tabAnalysis),
		})
		return
	}

	view := newAnalyzeView(analysis, tabMatch)
	view.Query = display.DisplayOrDefault(query.Get("query"), backend.DefaultJobQuery)
	view.Location = display.DisplayOrDefault(query.Get("location"), backend.DefaultJobLocation)

	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.job_search",
		attribute.String("jobs.query", view.Query),
		attribute.String("jobs.location", view.Location))
	jobs, err := s.Backend.SearchJobs(ctx, currentSession(r).AccessToken, view.Query, view.Location)
	observability.EndSpan(span, err)
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricJobsSearched, err == nil)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.Logger.LogError(err, "Job search failed", "query", view.Query, "location", view.Location)
		view.JobsError = msgJobSearchFailed
	} else {
		view.Jobs = jobs
	}

	s.render(w, r, http.StatusOK, "analyze.html", pageData{Title: "Job Match", Data: view})
}

// matchSubmit scores the stored resume against a posted job description
func (s *Server) matchSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.job_match")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if r.FormValue("id") == "" {
		http.Redirect(w, r, "/analyze", http.StatusSeeOther)
		return
	}

	var analysis *types.AnalysisResult
	analysis, err = s.loadAnalysis(r)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", pageData{
			Title: "Analyze",
			Error: errors.UserMessage(err),
			Data:  newAnalyzeView(nil, tabAnalysis),
		})
		return
	}

	form := validation.MatchForm{JobDescription: r.PostFormValue("job_description")}
	view := newAnalyzeView(analysis, tabMatch)
	view.JobDescription = form.JobDescription
	view.Query, view.Location = backend.DefaultJobQuery, backend.DefaultJobLocation
	data := pageData{Title: "Job Match", Data: view}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		err = fieldErrs
		data.Errors = fieldErrs
		s.render(w, r, http.StatusBadRequest, "analyze.html", data)
		return
	}

	var result *types.JobMatchResult
	result, err = s.Backend.MatchJob(ctx, currentSession(r).AccessToken, types.JobMatchRequest{
		ResumeText:     analysis.RawText,
		JobDescription: form.JobDescription,
		Skills:         analysis.Skills,
	})
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricJobMatched, err == nil && !result.Failed())
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.Logger.LogError(err, "Job match failed", "analysis_id", analysis.ID)
		data.Error = msgJobMatchFailed
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", data)
		return
	}

	span.SetAttributes(attribute.Int("match.score", result.Score), attribute.Bool("match.failed", result.Failed()))
	view.Match = result
	view.MatchClass = display.MatchBand(result.Score)
	view.MatchSummary = display.MatchDescription(*result)
	data.Data = view
	s.render(w, r, http.StatusOK, "analyze.html", data)
}
