package shared

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted for login or registration.
const MinPasswordLength = 8

// ValidateCredentials checks an email/password pair before it is sent to the API.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

// ValidateRegistration is [ValidateCredentials] plus a matching confirmation.
func ValidateRegistration(email, password, confirm string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	return nil
}

// Strength grades a password.
type Strength struct {
	Score int
	Label string
	Color string
}

// PasswordStrength scores length, letter case, digits and symbols into weak/medium/strong.
func PasswordStrength(password string) Strength {
	score := 0
	n := len([]rune(password))
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		default:
			other = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			score++
		}
	}

	switch {
	case score <= 2:
		return Strength{Score: score, Label: "weak", Color: "#ef4444"}
	case score <= 4:
		return Strength{Score: score, Label: "medium", Color: "#f59e0b"}
	default:
		return Strength{Score: score, Label: "strong", Color: "#10b981"}
	}
}
