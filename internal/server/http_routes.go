package server

import (
	"net/http"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/session"
	"resumelens/internal/types"
)

const msgSessionUnavailable = "Sessions are temporarily unavailable. Please try again shortly."

// setupRoutes configures all page routes. Auth-required routes pass the auth
// guard, then the request size limit.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return s.requireAuth(s.requestSizeLimitMiddleware(h))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("GET /{$}", s.homePage)
	mux.HandleFunc("GET /login", s.loginPage)
	mux.Handle("POST /login", s.requestSizeLimitMiddleware(s.loginSubmit))
	mux.HandleFunc("GET /register", s.registerPage)
	mux.Handle("POST /register", s.requestSizeLimitMiddleware(s.registerSubmit))
	mux.HandleFunc("POST /logout", s.logoutSubmit)

	mux.Handle("GET /analyze", authed(s.analyzePage))
	mux.Handle("POST /analyze", authed(s.analyzeSubmit))
	mux.Handle("POST /rewrite", authed(s.rewriteSubmit))
	mux.Handle("GET /rewrite/download", authed(s.rewriteDownload))
	mux.Handle("GET /jobs/search", authed(s.jobSearchPage))
	mux.Handle("POST /match", authed(s.matchSubmit))
	mux.Handle("GET /courses/{field}", authed(s.coursesPage))
	mux.Handle("POST /report", authed(s.reportDownload))

	mux.Handle("GET /profile", authed(s.profilePage))
	mux.Handle("POST /profile", authed(s.profileSubmit))
	mux.Handle("POST /profile/password", authed(s.passwordSubmit))
	mux.Handle("POST /history/{id}/delete", authed(s.historyDelete))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return mux
}

// sessionMiddleware attaches the cookie's session to the request context,
// refreshing its access token first when it is about to expire. The cookie is
// only dropped when its session is gone; a failing store answers 503.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(s.AppConfig.Session.CookieName); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.Sessions.Load(r)
		if err == nil {
			sess, err = s.Refresher.RefreshIfStale(r.Context(), sess)
		}
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		case errors.HasCode(err, errors.ErrCodeSessionNotFound), errors.IsUnauthorized(err):
			s.Logger.Debug("Dropping unusable session cookie", "error", err.Error())
			s.Sessions.ExpireCookie(w)
			next.ServeHTTP(w, r)
		default:
			s.Logger.LogError(err, "Failed to load session", "path", r.URL.Path)
			http.Error(w, msgSessionUnavailable, http.StatusServiceUnavailable)
		}
	})
}

// requireAuth redirects to the login page when the request has no session
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	})
}

// currentSession returns the request's session; routes behind requireAuth always have one
func currentSession(r *http.Request) *types.AuthSession {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// signOutOnUnauthorized applies the 401 rule: the session and cookie are
// cleared and the browser is sent to the login page. It reports whether it did so.
func (s *Server) signOutOnUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.IsUnauthorized(err) {
		return false
	}

	if sess, ok := session.FromContext(r.Context()); ok {
		if clearErr := s.Sessions.Clear(r.Context(), sess.ID); clearErr != nil {
			s.Logger.LogError(clearErr, "Failed to clear rejected session", "session_id", sess.ID)
		}
		s.rewrites.drop(sess.ID)
	}
	s.Sessions.ExpireCookie(w)
	s.Logger.Info("Backend rejected session token, signing out", "endpoint", r.URL.Path)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
