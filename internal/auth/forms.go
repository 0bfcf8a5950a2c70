package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type registerForm struct {
	FirstName       string `validate:"required,min=2"`
	LastName        string `validate:"required,min=2"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,strongpassword"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type forgotPasswordForm struct {
	Email string `validate:"required,email"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type signupPageData struct {
	Form   registerForm
	Errors map[string]string
}

type forgotPasswordPageData struct {
	Form   forgotPasswordForm
	Errors map[string]string
}

// loginMessages keys by field: the sign-in form gives one hint per input.
var loginMessages = map[string]string{
	"Email":    "Please enter your email address",
	"Password": "Please enter your password",
}

// accountMessages keys by field and tag.
var accountMessages = map[string]string{
	"Email.email":             "Please enter a valid email address",
	"Password.strongpassword": "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character",
	"ConfirmPassword.eqfield": "Passwords do not match",
}

var fieldLabels = map[string]string{
	"FirstName":       "First name",
	"LastName":        "Last name",
	"Email":           "Email",
	"Password":        "Password",
	"ConfirmPassword": "Repeat password",
}

const passwordSpecials = "@$!%*?&"

// strongPassword accepts letters, digits and @$!%*?& only, with at least
// one of each class.
func strongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("strongpassword", strongPassword); err != nil {
		panic(fmt.Sprintf("auth: register password rule: %v", err))
	}
	return v
}

func fieldMessage(fe validator.FieldError, messages map[string]string) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	}
	return label + " is invalid"
}
