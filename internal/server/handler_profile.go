package server

import (
	"context"
	"net/http"
	"strconv"

	"resumelens/internal/errors"
	"resumelens/internal/observability"
	"resumelens/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	msgProfileUpdated  = "Profile updated successfully"
	msgPasswordChanged = "Password changed successfully"
	msgAnalysisDeleted = "Analysis deleted"
)

// loadProfile fetches the user, a page of history and the stats summary concurrently.
// The calls do not cancel each other. History and stats are optional: their
// failures only blank their sections. A rejected token from any call wins.
func (s *Server) loadProfile(ctx context.Context, token string, page, limit int) (profileView, error) {
	var (
		view                          profileView
		userErr, historyErr, statsErr error
		g                             errgroup.Group
	)

	g.Go(func() error {
		view.User, userErr = s.Backend.Me(ctx, token)
		return nil
	})
	g.Go(func() error {
		view.History, historyErr = s.Backend.History(ctx, token, page, limit)
		return nil
	})
	g.Go(func() error {
		view.Stats, statsErr = s.Backend.StatsSummary(ctx, token)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{userErr, historyErr, statsErr} {
		if errors.IsUnauthorized(err) {
			return view, err
		}
	}
	if historyErr != nil {
		s.Logger.Warn("Profile history unavailable", "error", historyErr.Error())
		view.HistoryError = errors.UserMessage(historyErr)
	}
	if statsErr != nil {
		s.Logger.Warn("Profile stats unavailable", "error", statsErr.Error())
		view.StatsError = errors.UserMessage(statsErr)
	}
	return view, userErr
}

// renderProfile loads the profile and renders it with data's form state and messages
func (s *Server) renderProfile(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.profile")
	sess := currentSession(r)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	view, err := s.loadProfile(ctx, sess.AccessToken, page, limit)
	observability.EndSpan(span, err)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		data.Error = errors.UserMessage(err)
		status = errors.HTTPStatus(err)
	}

	if view.User != nil {
		data.User = view.User
		if data.Form == nil {
			data.Form = map[string]string{"name": view.User.Name, "phone": view.User.Phone}
		}
	}
	data.Title = "Profile"
	data.Data = view
	s.render(w, r, status, "profile.html", data)
}

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	var data pageData
	switch r.URL.Query().Get("done") {
	case "profile":
		data.Flash = msgProfileUpdated
	case "password":
		data.Flash = msgPasswordChanged
	case "deleted":
		data.Flash = msgAnalysisDeleted
	}
	s.renderProfile(w, r, http.StatusOK, data)
}

func (s *Server) profileSubmit(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	form := validation.ProfileForm{
		Name:  r.PostFormValue("name"),
		Phone: r.PostFormValue("phone"),
	}
	data := pageData{Form: map[string]string{"name": form.Name, "phone": form.Phone}}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		data.Errors = fieldErrs
		s.renderProfile(w, r, http.StatusBadRequest, data)
		return
	}

	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.profile_update")
	user, err := s.Backend.UpdateMe(ctx, sess.AccessToken, form.Update())
	observability.EndSpan(span, err)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		data.Error = errors.UserMessage(err)
		s.renderProfile(w, r, errors.HTTPStatus(err), data)
		return
	}

	sess.User = user
	if err := s.Sessions.Update(r.Context(), sess); err != nil {
		s.Logger.LogError(err, "Failed to store updated profile in session", "session_id", sess.ID)
	}
	http.Redirect(w, r, "/profile?done=profile", http.StatusSeeOther)
}

func (s *Server) passwordSubmit(w http.ResponseWriter, r *http.Request) {
	form := validation.PasswordChangeForm{
		CurrentPassword:    r.PostFormValue("current_password"),
		NewPassword:        r.PostFormValue("new_password"),
		ConfirmNewPassword: r.PostFormValue("confirm_new_password"),
	}

	if fieldErrs := form.Validate(); fieldErrs != nil {
		s.renderProfile(w, r, http.StatusBadRequest, pageData{Errors: fieldErrs})
		return
	}

	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.password_change")
	_, err := s.Backend.ChangePassword(ctx, currentSession(r).AccessToken, form.Request())
	observability.EndSpan(span, err)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.renderProfile(w, r, errors.HTTPStatus(err), pageData{Error: errors.UserMessage(err)})
		return
	}
	http.Redirect(w, r, "/profile?done=password", http.StatusSeeOther)
}

func (s *Server) historyDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, span := s.Observability.StartWebSpan(r.Context(), "web.history_delete", attribute.String("analysis.id", id))
	err := s.Backend.DeleteAnalysis(ctx, currentSession(r).AccessToken, id)
	observability.EndSpan(span, err)
	if err != nil {
		if s.signOutOnUnauthorized(w, r, err) {
			return
		}
		s.renderProfile(w, r, errors.HTTPStatus(err), pageData{Error: errors.UserMessage(err)})
		return
	}
	http.Redirect(w, r, "/profile?done=deleted", http.StatusSeeOther)
}
