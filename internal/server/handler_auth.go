package server

import (
	"net/http"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/observability"
	"resumelens/internal/session"
	"resumelens/internal/types"
	"resumelens/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed. Please try again."
	msgEmailTaken         = "This email is already registered. Please use a different email or try logging in."
)

func (s *Server) homePage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/analyze", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "home.html", pageData{Title: "Home"})
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/analyze", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Login"})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.login")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	form := validation.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	data := pageData{Title: "Login", Form: map[string]string{"email": form.Email}}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		err = fieldErrs
		data.Errors = fieldErrs
		s.render(w, r, http.StatusBadRequest, "login.html", data)
		return
	}

	var tokens *types.AuthTokens
	tokens, err = s.Backend.Login(ctx, form.Request())
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricLogin, err == nil)
	if err != nil {
		s.Logger.LogError(err, "Login failed", "email_domain", emailDomain(form.Email))
		data.Error = backendMessage(err, msgLoginFailed)
		s.render(w, r, errors.HTTPStatus(err), "login.html", data)
		return
	}

	s.beginSession(w, r, tokens, "login.html", data)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/analyze", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Register"})
}

func (s *Server) registerSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.register")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	form := validation.RegisterForm{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Phone:           r.PostFormValue("phone"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		AgreeTerms:      r.PostFormValue("agreeTerms") != "",
	}
	data := pageData{Title: "Register", Form: map[string]string{
		"name":  form.Name,
		"email": form.Email,
		"phone": form.Phone,
	}}
	if form.AgreeTerms {
		data.Form["agreeTerms"] = "on"
	}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		err = fieldErrs
		data.Errors = fieldErrs
		s.render(w, r, http.StatusBadRequest, "register.html", data)
		return
	}

	var tokens *types.AuthTokens
	tokens, err = s.Backend.Register(ctx, form.Request())
	s.Observability.GetMetrics().RecordBusinessMetric(ctx, observability.MetricRegistration, err == nil)
	if err != nil {
		s.Logger.LogError(err, "Registration failed", "email_domain", emailDomain(form.Email))
		if isDuplicateEmail(err) {
			span.SetAttributes(attribute.Bool("register.duplicate_email", true))
			data.Error = msgEmailTaken
		} else {
			data.Error = backendMessage(err, msgRegistrationFailed)
		}
		s.render(w, r, errors.HTTPStatus(err), "register.html", data)
		return
	}

	s.beginSession(w, r, tokens, "register.html", data)
}

// beginSession stores the tokens and sends the browser to the analyzer
func (s *Server) beginSession(w http.ResponseWriter, r *http.Request, tokens *types.AuthTokens, page string, data pageData) {
	if _, err := s.Sessions.Begin(r.Context(), w, tokens); err != nil {
		s.Logger.LogError(err, "Failed to start session")
		data.Error = errors.UserMessage(err)
		s.render(w, r, http.StatusInternalServerError, page, data)
		return
	}
	http.Redirect(w, r, "/analyze", http.StatusSeeOther)
}

func (s *Server) logoutSubmit(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		// Best effort; the local session ends either way
		if err := s.Backend.Logout(r.Context(), sess.AccessToken); err != nil {
			s.Logger.Debug("Backend logout failed", "error", err.Error())
		}
		s.rewrites.drop(sess.ID)
	}
	if err := s.Sessions.End(w, r); err != nil {
		s.Logger.LogError(err, "Failed to end session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// isDuplicateEmail recognizes the backend's answer for an existing account
func isDuplicateEmail(err error) bool {
	appErr, ok := errors.As(err)
	if !ok {
		return false
	}
	return appErr.Status == http.StatusConflict || strings.Contains(strings.ToLower(appErr.Message), "already")
}

// backendMessage prefers the backend's detail over a generic fallback
func backendMessage(err error, fallback string) string {
	appErr, ok := errors.As(err)
	if !ok || appErr.Message == "" {
		return fallback
	}
	if appErr.Type == errors.ErrorTypeBackend && appErr.Code == errors.ErrCodeDecodeFailed {
		return fallback
	}
	return appErr.Message
}

func emailDomain(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return domain
	}
	return ""
}
