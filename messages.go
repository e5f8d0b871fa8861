package credentials

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type RegisterMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (m RegisterMessage) Type() string { return "credentials.register" }

func (m RegisterMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&m.Role, validation.In(string(RoleUser), string(RoleAdmin))),
	)
}

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m LoginMessage) Type() string { return "credentials.login" }

func (m LoginMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Password, validation.Required),
	)
}

type ForgotPasswordMessage struct {
	Email string `json:"email"`
}

func (m ForgotPasswordMessage) Type() string { return "credentials.password_forgot" }

func (m ForgotPasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

type ResetPasswordMessage struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (m ResetPasswordMessage) Type() string { return "credentials.password_reset" }

func (m ResetPasswordMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Token, validation.Required),
		validation.Field(&m.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

// NormalizeEmail lowercases and trims an address so uniqueness checks and
// lookups agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
