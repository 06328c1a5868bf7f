package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	testCookieName = "resumelens_session"
	staleEmail     = "stale@example.com"
)

const analysisJSON = `{
	"id": "a1",
	"name": "Ada Lovelace",
	"email": "ada@example.com",
	"mobile_number": "9876543210",
	"no_of_pages": 1,
	"predicted_field": "Data Science",
	"skills": ["Python", "SQL"],
	"recommended_skills": ["Statistics"],
	"recommended_courses": ["Intro to ML"],
	"resume_score": 72,
	"ats_score": 65,
	"tips": ["Add a summary"],
	"raw_text": "Ada Lovelace Python SQL"
}`

const (
	userJSON    = `{"id":"u1","name":"Ada Lovelace","email":"ada@example.com","resume_count":1}`
	historyJSON = `{"analyses":[{"id":"a1","original_filename":"ada.pdf","resume_score":72,"predicted_field":"Data Science"}],"total_count":1}`
	statsJSON   = `{"total_analyses":1,"average_score":72,"best_score":72,"most_common_field":"Data Science"}`
	fakeReport  = "%PDF-1.4 resume report"
)

// backendRoutes maps ServeMux patterns to fake backend handlers
type backendRoutes map[string]http.HandlerFunc

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// authorized answers 401 for tokens issued to staleEmail
func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer stale" {
		respondJSON(w, http.StatusUnauthorized, `{"detail":"Token expired"}`)
		return false
	}
	return true
}

// guarded serves body to authorized requests
func guarded(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			respondJSON(w, status, body)
		}
	}
}

// newFakeBackend serves the subset of the backend API the pages call.
// Tokens issued to staleEmail are rejected with 401 everywhere else.
// overrides replace the default handler for the same pattern.
func newFakeBackend(t *testing.T, overrides ...backendRoutes) *httptest.Server {
	t.Helper()

	routes := backendRoutes{
		"POST /api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch {
			case body.Password == "wrongpass":
				respondJSON(w, http.StatusUnauthorized, `{"detail":"Invalid credentials"}`)
			case body.Email == staleEmail:
				respondJSON(w, http.StatusOK, `{"access_token":"stale","refresh_token":"","token_type":"bearer"}`)
			default:
				respondJSON(w, http.StatusOK, `{"access_token":"acc","refresh_token":"ref","token_type":"bearer",
					"user":{"id":"u1","name":"Ada Lovelace","email":"ada@example.com"}}`)
			}
		},
		"POST /api/auth/register": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Email string `json:"email"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Email == "taken@example.com" {
				respondJSON(w, http.StatusBadRequest, `{"detail":"Email already registered"}`)
				return
			}
			respondJSON(w, http.StatusOK, `{"access_token":"acc","refresh_token":"ref","token_type":"bearer"}`)
		},
		"POST /api/auth/logout": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, `{"message":"Logged out"}`)
		},

		"GET /api/auth/me":     guarded(http.StatusOK, userJSON),
		"PUT /api/auth/me":     guarded(http.StatusOK, userJSON),
		"POST /resume/analyze": guarded(http.StatusOK, analysisJSON),

		"GET /resume/{id}": func(w http.ResponseWriter, r *http.Request) {
			if !authorized(w, r) {
				return
			}
			if r.PathValue("id") != "a1" {
				respondJSON(w, http.StatusNotFound, `{"detail":"Analysis not found"}`)
				return
			}
			respondJSON(w, http.StatusOK, analysisJSON)
		},

		"GET /resume/history":       guarded(http.StatusOK, historyJSON),
		"GET /resume/stats/summary": guarded(http.StatusOK, statsJSON),

		"POST /job-match": guarded(http.StatusOK,
			`{"Job Match Score": 85, "Matched Keywords": ["Python", "SQL"], "Missing Important Keywords": ["Spark"]}`),
		"GET /job-search": func(w http.ResponseWriter, r *http.Request) {
			if !authorized(w, r) {
				return
			}
			if r.URL.Query().Get("query") == "unavailable" {
				respondJSON(w, http.StatusBadGateway, `{"detail":"Job provider unreachable"}`)
				return
			}
			respondJSON(w, http.StatusOK, `{"jobs":[{"job_title":"Data Scientist","employer_name":"Analytical Engines",
				"job_city":"London","job_country":"UK","job_description":"Python and SQL"}]}`)
		},

		"GET /api/courses/{field}": guarded(http.StatusOK,
			`{"courses":[["Intro to ML","https://example.com/ml"],["Pandas Crash Course","https://youtu.be/pandas"]]}`),
		"POST /download-report": func(w http.ResponseWriter, r *http.Request) {
			if !authorized(w, r) {
				return
			}
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, fakeReport)
		},

		"POST /rewrite": guarded(http.StatusOK, `{"rewritten":"Ada Lovelace, Data Scientist"}`),

		"GET /health": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, `{"status":"healthy","database":"connected"}`)
		},
	}
	for _, o := range overrides {
		maps.Copy(routes, o)
	}

	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testAppConfig(backendURL string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			BaseURL:      backendURL,
			Timeout:      5 * time.Second,
			MatchTimeout: 5 * time.Second,
			UserAgent:    "resumelens-test",
		},
		Session: config.SessionConfig{
			CookieName:  testCookieName,
			Secret:      testSecret,
			TTL:         time.Hour,
			RefreshSkew: time.Minute,
			Store:       config.SessionStoreMemory,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
			TLS:  config.TLSConfig{Mode: tlsModeDisabled},
		},
		App: config.AppConfig{LogLevel: "debug", MaxFileSize: 1024 * 1024},
	}
}

func newTestServer(t *testing.T, appCfg *config.Config) *Server {
	t.Helper()
	s, err := NewServer(appCfg, NewServerConfig(appCfg, "test"), nil, errors.NewLogger(slog.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.stopBackground()
		s.releaseResources()
	})
	return s
}

// do runs req through the full handler chain, replaying cookies from earlier responses
func do(t *testing.T, h http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s", testCookieName)
	return nil
}

func login(t *testing.T, h http.Handler, email string) *http.Cookie {
	t.Helper()
	rec := do(t, h, postForm("/login", url.Values{"email": {email}, "password": {"secret123"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/analyze", rec.Header().Get("Location"))
	return sessionCookie(t, rec)
}

func TestLoginStartsSession(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()

	cookie := login(t, h, "ada@example.com")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/analyze", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/login", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/analyze", rec.Header().Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()

	tests := []struct {
		name     string
		values   url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "invalid email",
			values:   url.Values{"email": {"not-an-email"}, "password": {"secret123"}},
			wantCode: http.StatusBadRequest,
			wantBody: "Please enter a valid email address",
		},
		{
			name:     "short password",
			values:   url.Values{"email": {"ada@example.com"}, "password": {"abc"}},
			wantCode: http.StatusBadRequest,
			wantBody: "Password must be at least 6 characters",
		},
		{
			name:     "rejected credentials",
			values:   url.Values{"email": {"ada@example.com"}, "password": {"wrongpass"}},
			wantCode: http.StatusUnauthorized,
			wantBody: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, postForm("/login", tt.values))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	values := url.Values{
		"name":            {"Ada Lovelace"},
		"email":           {"taken@example.com"},
		"password":        {"secret123"},
		"confirmPassword": {"secret123"},
		"agreeTerms":      {"on"},
	}

	rec := do(t, s.Handler(), postForm("/register", values))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This email is already registered")
}

func TestRegisterStartsSession(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	values := url.Values{
		"name":            {"Ada Lovelace"},
		"email":           {"ada@example.com"},
		"password":        {"secret123"},
		"confirmPassword": {"secret123"},
		"agreeTerms":      {"on"},
	}

	rec := do(t, s.Handler(), postForm("/register", values))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/analyze", rec.Header().Get("Location"))
	assert.NotNil(t, sessionCookie(t, rec))
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()

	for _, path := range []string{"/analyze", "/profile", "/courses/data-science", "/jobs/search?id=a1", "/rewrite/download"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
		})
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestUnauthorizedBackendSignsOut(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, staleEmail)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/analyze?id=a1", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	expired := sessionCookie(t, rec)
	assert.Less(t, expired.MaxAge, 0)

	// the server-side session is gone too
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/analyze", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogoutEndsSession(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	rec := do(t, h, postForm("/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/analyze", nil), cookie)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	appCfg := testAppConfig(newFakeBackend(t).URL)
	appCfg.App.MaxFileSize = 1024
	s := newTestServer(t, appCfg)
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	rec := do(t, h, multipartUpload(t, "cv.pdf", bytes.Repeat([]byte("x"), 4096)), cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "File too large")
}

func TestAnalyzeRejectsNonPDF(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	rec := do(t, h, multipartUpload(t, "cv.txt", []byte("plain text resume")), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload a PDF file")
}

func TestAnalysisPageShowsResult(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/analyze?id=a1", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Intro to ML")

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/analyze?id=missing", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Analysis not found")
}

func TestRewriteDownloadWithoutRewrite(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))
	h := s.Handler()
	cookie := login(t, h, "ada@example.com")

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/rewrite/download", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Run("backend up", func(t *testing.T) {
		s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))

		rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		backendStatus, ok := body["backend"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, backendStatus["healthy"])
	})

	t.Run("backend down", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		s := newTestServer(t, testAppConfig(down.URL))

		rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded"`)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	appCfg := testAppConfig(newFakeBackend(t).URL)
	appCfg.Server.RateLimit = config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstCapacity:  1,
		ByIP:           true,
	}
	s := newTestServer(t, appCfg)
	h := s.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Accept", "application/json")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	// a different client has its own bucket
	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	rec = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rejected, ok := s.RateLimiter.GetStats()["rejected"].(map[string]int64)
	require.True(t, ok)
	assert.Equal(t, int64(2), rejected["ip"])
}

func TestStatsHandler(t *testing.T) {
	s := newTestServer(t, testAppConfig(newFakeBackend(t).URL))

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "resumelens", body["service"])
	assert.Contains(t, body, "sessions")
	assert.Contains(t, body, "circuit_breaker")
	rateLimiting, ok := body["rate_limiting"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, rateLimiting["enabled"])
}
