package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"

	"resumelens/internal/display"
	"resumelens/internal/errors"
	"resumelens/internal/observability"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	tabAnalysis = "analysis"
	tabRewrite  = "rewrite"
	tabMatch    = "match"

	reportFilename  = "resume_report.pdf"
	rewriteFilename = "rewritten-resume.txt"
	msgNoRewrite    = "Nothing to download yet. Rewrite your resume first."
	msgUnsaved      = "This analysis was not saved, so rewrite, job match and the PDF report are unavailable. Upload the resume again to retry."
)

func normalizeTab(tab string) string {
	switch tab {
	case tabRewrite, tabMatch:
		return tab
	default:
		return tabAnalysis
	}
}

// newAnalyzeView prepares the tab data shared by every analysis page
func newAnalyzeView(a *types.AnalysisResult, tab string) analyzeView {
	v := analyzeView{Analysis: a, Tab: normalizeTab(tab)}
	if a != nil {
		v.Band = display.ScoreBand(a.ResumeScore)
		v.Courses = display.TopCourseNames(a.RecommendedCourses, display.AnalysisCourseLimit)
		v.RewriteText = a.RawText
	}
	return v
}

func analysisURL(id, tab string) string {
	return "/analyze?" + url.Values{"id": {id}, "tab": {tab}}.Encode()
}

// analyzePage shows the upload form, or a stored analysis and its tabs when ?id= is set
func (s *Server) analyzePage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.render(w, r, http.StatusOK, "analyze.html", pageData{Title: "Analyze", Data: newAnalyzeView(nil, tabAnalysis)})
		return
	}

	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.analysis", attribute.String("analysis.id", id))
	analysis, err := s.Backend.Analysis(ctx, currentSession(r).AccessToken, id)
	observability.EndSpan(span, err)
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

	view := newAnalyzeView(analysis, r.URL.Query().Get("tab"))
	if view.Tab == tabMatch {
		view.Query, view.Location = r.URL.Query().Get("query"), r.URL.Query().Get("location")
	}
	s.render(w, r, http.StatusOK, "analyze.html", pageData{Title: "Analysis", Data: view})
}

// analyzeSubmit validates the uploaded PDF locally before sending it to the backend
func (s *Server) analyzeSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.analyze")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var data []byte
	var filename string
	filename, data, err = s.readUpload(r)
	if err != nil {
		s.Logger.Debug("Rejected resume upload", "reason", errors.UserMessage(err))
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", pageData{
			Title:  "Analyze",
			Errors: validation.FieldErrors{"file": errors.UserMessage(err)},
			Data:   newAnalyzeView(nil, tabAnalysis),
		})
		return
	}
	span.SetAttributes(attribute.Int("upload.size", len(data)))

	var analysis *types.AnalysisResult
	analysis, err = s.Backend.AnalyzeResume(ctx, currentSession(r).AccessToken, filename, bytes.NewReader(data))
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricResumeAnalyzed, err == nil)
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

	if analysis.ID == "" {
		s.Logger.Warn("Backend returned an analysis without an id")
		view := newAnalyzeView(analysis, tabAnalysis)
		view.Unsaved = true
		s.render(w, r, http.StatusOK, "analyze.html", pageData{Title: "Analysis", Error: msgUnsaved, Data: view})
		return
	}
	http.Redirect(w, r, analysisURL(analysis.ID, tabAnalysis), http.StatusSeeOther)
}

// readUpload returns the multipart "file" part after the size and PDF checks
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(s.MaxRequestSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return "", nil, errors.NewValidationError(errors.ErrCodeFileTooLarge, validation.MsgFileTooBig, err)
		}
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, validation.MsgNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, validation.MsgNoFile, err)
	}
	defer func() { _ = file.Close() }()

	if err := validation.CheckFileSize(header.Size, s.MaxFileSize); err != nil {
		return "", nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read the uploaded file", err)
	}
	if _, err := validation.CheckPDFUpload(header.Filename, header.Header.Get("Content-Type"), data); err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// loadAnalysis fetches the analysis named by the "id" form value, if any
func (s *Server) loadAnalysis(r *http.Request) (*types.AnalysisResult, error) {
	id := r.FormValue("id")
	if id == "" {
		return nil, nil
	}
	return s.Backend.Analysis(r.Context(), currentSession(r).AccessToken, id)
}

func (s *Server) rewriteSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.rewrite")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	sess := currentSession(r)
	form := validation.RewriteForm{
		Text:       r.PostFormValue("text"),
		TargetRole: r.PostFormValue("target_role"),
	}

	var analysis *types.AnalysisResult
	analysis, err = s.loadAnalysis(r)
	if err != nil && s.signOutOnUnauthorized(w, r, err) {
		return
	}
	view := newAnalyzeView(analysis, tabRewrite)
	view.RewriteText, view.TargetRole = form.Text, form.TargetRole
	data := pageData{Title: "Rewrite", Data: view}
	if err != nil {
		data.Error = errors.UserMessage(err)
	}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		err = fieldErrs
		data.Errors = fieldErrs
		s.render(w, r, http.StatusBadRequest, "analyze.html", data)
		return
	}

	var result *types.RewriteResult
	result, err = s.Backend.Rewrite(ctx, sess.AccessToken, form.Request())
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricResumeRewritten, err == nil,
		attribute.String("target_role", form.TargetRole))
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		data.Error = errors.UserMessage(err)
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", data)
		return
	}

	s.rewrites.put(sess.ID, result.Rewritten)
	view.Rewrite = result
	data.Data = view
	s.render(w, r, http.StatusOK, "analyze.html", data)
}

func (s *Server) rewriteDownload(w http.ResponseWriter, r *http.Request) {
	text, ok := s.rewrites.get(currentSession(r).ID)
	if !ok {
		http.Error(w, msgNoRewrite, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rewriteFilename+`"`)
	_, _ = io.WriteString(w, text)
}

func (s *Server) coursesPage(w http.ResponseWriter, r *http.Request) {
	field := display.FieldSlug(r.PathValue("field"))
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.courses", attribute.String("courses.field", field))

	list, err := s.Backend.Courses(ctx, currentSession(r).AccessToken, field)
	observability.EndSpan(span, err)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.render(w, r, errors.HTTPStatus(err), "courses.html", pageData{
			Title: "Courses",
			Error: errors.UserMessage(err),
			Data:  &types.CourseList{Field: field},
		})
		return
	}
	s.render(w, r, http.StatusOK, "courses.html", pageData{Title: "Courses", Data: list})
}

// reportDownload posts the stored analysis to the report endpoint and streams the PDF back
func (s *Server) reportDownload(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.report")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	var analysis *types.AnalysisResult
	analysis, err = s.loadAnalysis(r)
	if err == nil && analysis == nil {
		err = errors.NewValidationError(errors.ErrCodeInvalidRequest, "No analysis data available for the report", nil)
	}

	var pdfData []byte
	if err == nil {
		var payload []byte
		if payload, err = json.Marshal(analysis); err == nil {
			pdfData, err = s.Backend.DownloadReport(ctx, currentSession(r).AccessToken, payload)
		}
	}
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricReportDownloaded, err == nil)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.render(w, r, errors.HTTPStatus(err), "analyze.html", pageData{
			Title: "Analysis",
			Error: errors.UserMessage(err),
			Data:  newAnalyzeView(analysis, tabAnalysis),
		})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdfData); err != nil {
		s.Logger.Debug("Failed to stream report", "error", err.Error())
	}
}
