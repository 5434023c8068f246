package auth

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrEmailDisposable  = errors.New("disposable email addresses are not allowed")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordNoDigit  = errors.New("password must contain at least one number")
	ErrPasswordNoSymbol = errors.New("password must contain at least one special character")
	ErrNameTooShort     = errors.New("full name must be at least 2 characters")
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitPattern    = regexp.MustCompile(`\d`)
	symbolPattern   = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	nameTrimPattern = regexp.MustCompile(`[^a-zA-Z\s\-']`)
)

var disposableDomains = map[string]struct{}{
	"tempmail.com":     {},
	"throwaway.email":  {},
	"10minutemail.com": {},
}

// ValidateEmail checks email shape and rejects known disposable domains.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	if _, ok := disposableDomains[domain]; ok {
		return ErrEmailDisposable
	}
	return nil
}

// ValidatePassword enforces minimum password strength.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !digitPattern.MatchString(password) {
		return ErrPasswordNoDigit
	}
	if !symbolPattern.MatchString(password) {
		return ErrPasswordNoSymbol
	}
	return nil
}

// SanitizeName collapses whitespace, strips unsupported characters, and
// caps the length at 255.
func SanitizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = nameTrimPattern.ReplaceAllString(name, "")
	if len(name) > 255 {
		name = name[:255]
	}
	return strings.TrimSpace(name)
}

// ValidateFullName checks that a name survives sanitization.
func ValidateFullName(name string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return ErrNameTooShort
	}
	if len(SanitizeName(name)) < 2 {
		return ErrNameTooShort
	}
	return nil
}
