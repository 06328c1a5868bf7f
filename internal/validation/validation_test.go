package validation

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"resumelens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFormValidate(t *testing.T) {
	tests := []struct {
		name string
		form LoginForm
		want FieldErrors
	}{
		{"valid", LoginForm{Email: "ada@example.com", Password: "secret"}, nil},
		{"padded email", LoginForm{Email: "  ada@example.com\t", Password: "secret"}, nil},
		{"blank email", LoginForm{Email: "   ", Password: "secret"}, FieldErrors{"email": "Email is required"}},
		{"empty", LoginForm{}, FieldErrors{"email": "Email is required", "password": "Password is required"}},
		{"bad email", LoginForm{Email: "ada@example", Password: "secret"}, FieldErrors{"email": "Please enter a valid email address"}},
		{"long email", LoginForm{Email: strings.Repeat("a", 95) + "@x.com", Password: "secret"}, FieldErrors{"email": "Email is too long"}},
		{"short password", LoginForm{Email: "a@b.co", Password: "12345"}, FieldErrors{"password": "Password must be at least 6 characters"}},
		{"long password", LoginForm{Email: "a@b.co", Password: strings.Repeat("p", 51)}, FieldErrors{"password": "Password is too long"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.form.Validate())
		})
	}
}

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Name:            "Ada O'Neil-Smith",
		Email:           "ada@example.com",
		Password:        "secret12",
		ConfirmPassword: "secret12",
		AgreeTerms:      true,
	}
}

func TestRegisterFormValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterForm)
		field  string
		want   string
	}{
		{"blank name", func(f *RegisterForm) { f.Name = "   " }, "name", "Full name is required"},
		{"short name", func(f *RegisterForm) { f.Name = "A" }, "name", "Name must be at least 2 characters"},
		{"long name", func(f *RegisterForm) { f.Name = strings.Repeat("a", 51) }, "name", "Name is too long"},
		{"digits in name", func(f *RegisterForm) { f.Name = "Ada 2" }, "name", "Please enter a valid name"},
		{"short password", func(f *RegisterForm) { f.Password, f.ConfirmPassword = "abc1", "abc1" }, "password", "Password must be at least 8 characters"},
		{"letters only", func(f *RegisterForm) { f.Password, f.ConfirmPassword = "abcdefgh", "abcdefgh" }, "password", "Password must contain at least one letter and one number"},
		{"digits only", func(f *RegisterForm) { f.Password, f.ConfirmPassword = "12345678", "12345678" }, "password", "Password must contain at least one letter and one number"},
		{"no confirmation", func(f *RegisterForm) { f.ConfirmPassword = "" }, "confirmPassword", "Please confirm your password"},
		{"mismatch", func(f *RegisterForm) { f.ConfirmPassword = "secret13" }, "confirmPassword", "Passwords do not match"},
		{"terms", func(f *RegisterForm) { f.AgreeTerms = false }, "agreeTerms", "You must agree to the terms and conditions"},
		{"bad phone", func(f *RegisterForm) { f.Phone = "0123" }, "phone", "Invalid phone number format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegisterForm()
			tt.mutate(&form)

			errs := form.Validate()
			require.Len(t, errs, 1, "errors: %v", errs)
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}

	assert.Nil(t, validRegisterForm().Validate())
}

func TestFormsTrimBeforeValidating(t *testing.T) {
	login := LoginForm{Email: " ada@example.com ", Password: "secret"}
	require.Nil(t, login.Validate())
	assert.Equal(t, "ada@example.com", login.Request().Email)

	register := validRegisterForm()
	register.Name, register.Email = "  Ada Lovelace ", " ada@example.com"
	require.Nil(t, register.Validate())
	req := register.Request()
	assert.Equal(t, "Ada Lovelace", req.Name)
	assert.Equal(t, "ada@example.com", req.Email)

	assert.Equal(t, FieldErrors{"name": "Name must be at least 2 characters"}, ProfileForm{Name: " G "}.Validate())
}

func TestRegisterFormRequest(t *testing.T) {
	form := validRegisterForm()
	form.Phone = "+1 (555) 123-4567"
	require.Nil(t, form.Validate())

	req := form.Request()
	assert.Equal(t, "+15551234567", req.Phone)
	assert.Equal(t, "secret12", req.ConfirmPassword)
}

func TestProfileFormValidate(t *testing.T) {
	assert.Nil(t, ProfileForm{}.Validate())
	assert.Nil(t, ProfileForm{Name: "Grace Hopper", Phone: "919876543210"}.Validate())
	assert.Equal(t, FieldErrors{"name": "Name must be at least 2 characters"}, ProfileForm{Name: "G"}.Validate())
	assert.Equal(t, FieldErrors{"phone": "Invalid phone number format"}, ProfileForm{Phone: "abc"}.Validate())
}

func TestPasswordChangeFormValidate(t *testing.T) {
	assert.Nil(t, PasswordChangeForm{CurrentPassword: "old", NewPassword: "newpass12", ConfirmNewPassword: "newpass12"}.Validate())
	assert.Equal(t,
		FieldErrors{"new_password": "New password must be at least 8 characters", "confirm_new_password": "New passwords do not match"},
		PasswordChangeForm{CurrentPassword: "old", NewPassword: "short", ConfirmNewPassword: "other"}.Validate())
	assert.Equal(t, "Current password is required",
		PasswordChangeForm{NewPassword: "newpass12", ConfirmNewPassword: "newpass12"}.Validate()["current_password"])
}

func TestRewriteAndMatchForms(t *testing.T) {
	errs := RewriteForm{Text: "some text", TargetRole: " "}.Validate()
	assert.Equal(t, MsgRewriteRequired, errs.First("text", "target_role"))
	assert.Nil(t, RewriteForm{Text: "t", TargetRole: "r"}.Validate())

	assert.Equal(t, FieldErrors{"job_description": MsgNoJobDescription}, MatchForm{JobDescription: "\n\t"}.Validate())
	assert.Nil(t, MatchForm{JobDescription: "Go"}.Validate())
}

func TestFieldErrorsString(t *testing.T) {
	errs := FieldErrors{"password": "b", "email": "a"}
	assert.Equal(t, "email: a; password: b", errs.Error())
	assert.True(t, errs.Has("email"))
	assert.False(t, errs.Has("name"))
	assert.Equal(t, "b", errs.First("name", "password"))
}

// minimalPDF builds a well-formed PDF with the given number of blank pages
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, 0, pages)
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", i+3))
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	}
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestCheckPDFUpload(t *testing.T) {
	pages, err := CheckPDFUpload("cv.pdf", "application/pdf", minimalPDF(2))
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	pages, err = CheckPDFUpload("cv.PDF", "application/octet-stream", minimalPDF(1))
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestCheckPDFUploadRejects(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		code        string
		msg         string
	}{
		{"no file", "", "", nil, errors.ErrCodeInvalidRequest, MsgNoFile},
		{"word document", "cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK"), errors.ErrCodeInvalidFormat, MsgNotPDF},
		{"renamed text", "cv.pdf", "application/pdf", []byte("just some text"), errors.ErrCodeInvalidPDF, MsgNotPDF},
		{"truncated", "cv.pdf", "application/pdf", minimalPDF(1)[:60], errors.ErrCodeInvalidPDF, MsgNotPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckPDFUpload(tt.filename, tt.contentType, tt.data)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.msg, errors.UserMessage(err))
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	assert.NoError(t, CheckFileSize(10, 10))
	assert.NoError(t, CheckFileSize(10, 0))

	err := CheckFileSize(11, 10)
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileTooLarge))
	assert.Equal(t, MsgFileTooBig, errors.UserMessage(err))
}
