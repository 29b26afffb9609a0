// Package validx wraps go-playground/validator with the rules shared by the
// auth API: usernames, password strength and JSON field naming.
package validx

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 8
	PasswordMaxLen = 128
)

// PasswordSpecials are the characters that satisfy the "special" class.
const PasswordSpecials = `!@#$%^&*(),.?":{}|<>`

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared, fully configured validator.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON names so errors line up with request bodies.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return PasswordProblem(fl.Field().String()) == ""
		})
		_ = v.RegisterValidation("public_email", func(fl validator.FieldLevel) bool {
			return PublicEmail(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// ValidUsername reports whether s is 3 to 50 letters, digits or underscores.
func ValidUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= UsernameMinLen && n <= UsernameMaxLen && usernamePattern.MatchString(s)
}

// PublicEmail reports whether the domain of s is outside the reserved
// .local namespace, which holds the addresses synthesized for accounts that
// have no real mailbox.
func PublicEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s[at+1:])), ".")
	return host != "local" && !strings.HasSuffix(host, ".local")
}

// PasswordProblem returns a human readable reason the password is too weak,
// or "" when it is acceptable.
func PasswordProblem(p string) string {
	n := utf8.RuneCountInString(p)
	if n < PasswordMinLen || n > PasswordMaxLen {
		return fmt.Sprintf("must be between %d and %d characters", PasswordMinLen, PasswordMaxLen)
	}

	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !special {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return "must contain " + strings.Join(missing, ", ")
	}
	return ""
}

// Errors maps JSON field names to a description of what is wrong.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates v. Validation failures are returned as Errors; any other
// error (such as a non-struct argument) is returned as is.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "public_email":
		return "must not use a reserved domain"
	case "username":
		return fmt.Sprintf("must be %d-%d characters of letters, digits or underscores", UsernameMinLen, UsernameMaxLen)
	case "password":
		return PasswordProblem(fe.Value().(string))
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must be numeric"
	}
	return "is invalid"
}
