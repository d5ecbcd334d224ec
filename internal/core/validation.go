// AngelaMos | 2026
// validation.go

package core

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	TagUsername   = "username"
	TagPassword   = "password_strength"
	TagPersonName = "personname"
	TagPhone      = "lkphone"
	TagPostalCode = "postalcode"
)

const passwordSpecials = "@$!%*?&"

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}$`)
	mobilePattern     = regexp.MustCompile(`^(\+94|94|0)?(7[0-8]\d{7})$`)
	landlinePattern   = regexp.MustCompile(
		`^(\+94|94|0)?(0?(?:11|21|23|24|25|26|27|31|32|33|34|35|36|37|38|41|45|47|51|52|54|55|57|63|65|66|67|81|91)\d{7})$`,
	)
	phoneFormatting = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

var commonPasswords = []string{"password", "12345678", "qwerty", "abc123"}

// NewValidator returns a validator with the account field rules registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation(TagUsername, func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation(TagPassword, func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation(TagPersonName, func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return personNamePattern.MatchString(value) &&
			!strings.Contains(value, "  ")
	})
	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation(TagPhone, func(fl validator.FieldLevel) bool {
		return IsSriLankanPhone(fl.Field().String())
	})
	//nolint:errcheck // registration only fails on empty tags
	_ = v.RegisterValidation(TagPostalCode, func(fl validator.FieldLevel) bool {
		return postalCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	return v
}

func IsStrongPassword(password string) bool {
	var hasLower, hasUpper, hasDigit, hasSpecial bool

	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return false
	}

	lowered := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lowered, common) {
			return false
		}
	}

	return true
}

func IsSriLankanPhone(contact string) bool {
	clean := phoneFormatting.Replace(contact)
	return mobilePattern.MatchString(clean) ||
		landlinePattern.MatchString(clean)
}

// NormalizePhone rewrites a Sri Lankan number to the +94 form.
func NormalizePhone(contact string) string {
	clean := phoneFormatting.Replace(contact)
	if clean == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(clean, "+94"):
		return clean
	case strings.HasPrefix(clean, "0"):
		return "+94" + clean[1:]
	case strings.HasPrefix(clean, "94"):
		return "+" + clean
	default:
		return "+94" + clean
	}
}
