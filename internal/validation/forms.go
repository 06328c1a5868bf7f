package validation

import (
	"strings"

	"resumelens/internal/types"
)

const (
	MsgNoJobDescription = "Please paste a job description first!"
	MsgRewriteRequired  = "Please enter text and target role."
)

var emailMessages = messages{
	"email.required":   "Email is required",
	"email.email_addr": "Please enter a valid email address",
	"email.max":        "Email is too long",
}

// LoginForm is the sign-in form
type LoginForm struct {
	Email    string `form:"email" validate:"required,email_addr,max=100"`
	Password string `form:"password" validate:"required,min=6,max=50"`
}

var loginMessages = merge(emailMessages, messages{
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password is too long",
})

// Validate returns the field errors of the form, or nil.
// The email is checked as Request sends it, without surrounding spaces.
func (f LoginForm) Validate() FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return check(f, loginMessages)
}

// Request converts the form into the backend login body
func (f LoginForm) Request() types.LoginRequest {
	return types.LoginRequest{Email: strings.TrimSpace(f.Email), Password: f.Password}
}

// RegisterForm is the account creation form
type RegisterForm struct {
	Name            string `form:"name" validate:"notblank,min=2,max=50,person_name"`
	Email           string `form:"email" validate:"required,email_addr,max=100"`
	Phone           string `form:"phone" validate:"omitempty,phone_e164"`
	Password        string `form:"password" validate:"required,min=8,max=50,letter_digit"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
	AgreeTerms      bool   `form:"agreeTerms" validate:"required"`
}

var registerMessages = merge(emailMessages, messages{
	"name.notblank":            "Full name is required",
	"name.min":                 "Name must be at least 2 characters",
	"name.max":                 "Name is too long",
	"name.person_name":         "Please enter a valid name",
	"phone":                    "Invalid phone number format",
	"password.required":        "Password is required",
	"password.min":             "Password must be at least 8 characters",
	"password.max":             "Password is too long",
	"password.letter_digit":    "Password must contain at least one letter and one number",
	"confirmPassword.required": "Please confirm your password",
	"confirmPassword.eqfield":  "Passwords do not match",
	"agreeTerms":               "You must agree to the terms and conditions",
})

func (f RegisterForm) Validate() FieldErrors {
	f.Name, f.Email = strings.TrimSpace(f.Name), strings.TrimSpace(f.Email)
	return check(f, registerMessages)
}

// Request converts the form into the backend registration body
func (f RegisterForm) Request() types.RegisterRequest {
	return types.RegisterRequest{
		Name:            strings.TrimSpace(f.Name),
		Email:           strings.TrimSpace(f.Email),
		Phone:           NormalizePhone(f.Phone),
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
	}
}

// ProfileForm edits the user's name and phone
type ProfileForm struct {
	Name  string `form:"name" validate:"omitempty,min=2,max=100,person_name"`
	Phone string `form:"phone" validate:"omitempty,phone_e164"`
}

var profileMessages = messages{
	"name.min":         "Name must be at least 2 characters",
	"name.max":         "Name is too long",
	"name.person_name": "Please enter a valid name",
	"phone":            "Invalid phone number format",
}

func (f ProfileForm) Validate() FieldErrors {
	f.Name = strings.TrimSpace(f.Name)
	return check(f, profileMessages)
}

// Update converts the form into the backend profile update body
func (f ProfileForm) Update() types.ProfileUpdate {
	return types.ProfileUpdate{Name: strings.TrimSpace(f.Name), Phone: NormalizePhone(f.Phone)}
}

// PasswordChangeForm changes the signed-in user's password
type PasswordChangeForm struct {
	CurrentPassword    string `form:"current_password" validate:"required"`
	NewPassword        string `form:"new_password" validate:"required,min=8"`
	ConfirmNewPassword string `form:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}

var passwordMessages = messages{
	"current_password":              "Current password is required",
	"new_password.required":         "New password is required",
	"new_password.min":              "New password must be at least 8 characters",
	"confirm_new_password.required": "Please confirm your new password",
	"confirm_new_password.eqfield":  "New passwords do not match",
}

func (f PasswordChangeForm) Validate() FieldErrors {
	return check(f, passwordMessages)
}

func (f PasswordChangeForm) Request() types.PasswordChange {
	return types.PasswordChange{
		CurrentPassword:    f.CurrentPassword,
		NewPassword:        f.NewPassword,
		ConfirmNewPassword: f.ConfirmNewPassword,
	}
}

// RewriteForm asks for resume text rewritten toward a role
type RewriteForm struct {
	Text       string `form:"text" validate:"notblank"`
	TargetRole string `form:"target_role" validate:"notblank"`
}

var rewriteMessages = messages{
	"text":        MsgRewriteRequired,
	"target_role": MsgRewriteRequired,
}

func (f RewriteForm) Validate() FieldErrors {
	return check(f, rewriteMessages)
}

func (f RewriteForm) Request() types.RewriteRequest {
	return types.RewriteRequest{Text: f.Text, TargetRole: strings.TrimSpace(f.TargetRole)}
}

// MatchForm carries the job description to match against
type MatchForm struct {
	JobDescription string `form:"job_description" validate:"notblank"`
}

var matchMessages = messages{
	"job_description": MsgNoJobDescription,
}

func (f MatchForm) Validate() FieldErrors {
	return check(f, matchMessages)
}

func merge(sets ...messages) messages {
	out := messages{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
