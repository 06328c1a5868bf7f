package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"resumelens/internal/display"
	"resumelens/internal/types"
	"resumelens/internal/validation"
)

//go:embed templates/*.html
var templateFiles embed.FS

const layoutTemplate = "templates/layout.html"

// pageRenderer holds one parsed template set per page, each sharing the layout
type pageRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"scoreBand":      display.ScoreBand,
	"matchBand":      display.MatchBand,
	"formatPhone":    display.FormatPhone,
	"orNotSpecified": display.OrNotSpecified,
	"planLabel":      display.PlanLabel,
	"initial":        display.Initial,
	"fieldSlug":      display.FieldSlug,
	"formatDate":     formatDate,
}

func newPageRenderer() (*pageRenderer, error) {
	names, err := fs.Glob(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pr := &pageRenderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == layoutTemplate {
			continue
		}
		tmpl, err := template.New(path.Base(name)).Funcs(templateFuncs).ParseFS(templateFiles, layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pr.pages[path.Base(name)] = tmpl
	}
	return pr, nil
}

// pageData is the value every page template receives
type pageData struct {
	Title         string
	Authenticated bool
	User          *types.User
	Flash         string
	Error         string
	Errors        validation.FieldErrors
	Form          map[string]string
	Data          any
}

// analyzeView drives the upload form and the analysis/rewrite/match tabs
type analyzeView struct {
	Analysis *types.AnalysisResult
	Tab      string
	Band     display.Band
	Courses  []string
	// Unsaved is set when the backend returned no id; the tabs and report need one
	Unsaved bool

	RewriteText string
	TargetRole  string
	Rewrite     *types.RewriteResult

	Query          string
	Location       string
	Jobs           *types.JobSearchResult
	JobsError      string
	JobDescription string
	Match          *types.JobMatchResult
	MatchClass     string
	MatchSummary   string
}

// profileView is the account page
type profileView struct {
	User    *types.User
	History *types.AnalysisHistory
	Stats   *types.StatsSummary

	// set when the optional sections could not be loaded
	HistoryError string
	StatsError   string
}

// render writes the page with status; templates execute into a buffer so a
// template failure still produces a clean 500
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := s.pages.pages[page]
	if !ok {
		s.Logger.Warn("Unknown page template", "page", page)
		http.Error(w, "Page not found", http.StatusInternalServerError)
		return
	}

	if sess := currentSession(r); sess != nil {
		data.Authenticated = true
		if data.User == nil {
			data.User = sess.User
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.Logger.LogError(err, "Failed to render page", "page", page)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.Logger.Debug("Failed to write page", "page", page, "error", err.Error())
	}
}

func formatDate(ts *types.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return display.NotSpecified
	}
	return ts.Format("2006-01-02 15:04")
}
