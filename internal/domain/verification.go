package domain

import (
	"regexp"
	"strings"
)

// CodeLength is the number of digits in a verification code
const CodeLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// VerificationStep is the sub-step of the email verification flow
type VerificationStep int

const (
	VerifyEmail VerificationStep = iota
	VerifyCode
	VerifyDone
)

func (s VerificationStep) String() string {
	switch s {
	case VerifyCode:
		return "code"
	case VerifyDone:
		return "verified"
	default:
		return "email"
	}
}

// VerificationSession holds the transient state of one verification attempt
type VerificationSession struct {
	Step          VerificationStep
	Email         string
	Code          string
	Error         string
	ResendMessage string
	Token         string
}

// Reset clears every field and returns to the email step
func (v *VerificationSession) Reset() {
	*v = VerificationSession{}
}

// ValidateEmail checks that email looks like name@domain.tld
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// SanitizeCode strips every non-digit and truncates to CodeLength digits.
// Non-digit input is dropped silently rather than rejected.
func SanitizeCode(input string) string {
	var sb strings.Builder
	for _, r := range input {
		if sb.Len() == CodeLength {
			break
		}
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ValidateCode requires exactly CodeLength digits
func ValidateCode(code string) error {
	if len(code) != CodeLength || SanitizeCode(code) != code {
		return ErrIncompleteCode
	}
	return nil
}
