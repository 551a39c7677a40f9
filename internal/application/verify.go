package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// VerifyMode selects what a successful verification leads to
type VerifyMode int

const (
	// ModeEmailCode verifies the uploader before processing starts
	ModeEmailCode VerifyMode = iota
	// ModeLogin establishes an authenticated session
	ModeLogin
)

const (
	requestCodeFailed = "Failed to send verification code. Please try again."
	verifyCodeFailed  = "Invalid verification code. Please try again."
	codeResent        = "Verification code sent! Check your email for the verification code"
)

// VerifiedFunc receives the verified email and token
type VerifiedFunc func(email string, tok *ports.TokenResponse)

// Verifier runs the email -> code -> verified flow
type Verifier struct {
	api        ports.PoserAPI
	mode       VerifyMode
	onVerified VerifiedFunc

	mu       sync.Mutex
	state    domain.VerificationSession
	inFlight bool
	fired    bool
}

// NewVerifier creates a verifier. onVerified is called exactly once, after
// the first successful code verification.
func NewVerifier(api ports.PoserAPI, mode VerifyMode, onVerified VerifiedFunc) *Verifier {
	return &Verifier{api: api, mode: mode, onVerified: onVerified}
}

// State returns a copy of the current verification state
func (v *Verifier) State() domain.VerificationSession {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Busy reports whether a request is in flight
func (v *Verifier) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inFlight
}

// SetEmail updates the email field
func (v *Verifier) SetEmail(email string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Email = email
}

// SetCode updates the code field, keeping only the first six digits.
// It returns the sanitized value.
func (v *Verifier) SetCode(code string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Code = domain.SanitizeCode(code)
	return v.state.Code
}

// RequestCode validates the email and asks the backend to send a code.
// On success the flow moves to code entry.
func (v *Verifier) RequestCode(ctx context.Context) error {
	email, err := v.begin(domain.VerifyEmail, func(s *domain.VerificationSession) error {
		return domain.ValidateEmail(s.Email)
	})
	if err != nil {
		return err
	}

	err = v.api.RequestCode(ctx, email)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false
	if err != nil {
		v.state.Error = domain.UserMessage(err, requestCodeFailed)
		return fmt.Errorf("request code: %w", err)
	}
	v.state.Email = email
	v.state.Step = domain.VerifyCode
	v.state.Error = ""
	v.state.ResendMessage = ""
	return nil
}

// Resend re-issues a code without leaving the code step
func (v *Verifier) Resend(ctx context.Context) error {
	email, err := v.begin(domain.VerifyCode, nil)
	if err != nil {
		return err
	}

	err = v.api.RequestCode(ctx, email)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false
	if err != nil {
		v.state.ResendMessage = ""
		v.state.Error = domain.UserMessage(err, requestCodeFailed)
		return fmt.Errorf("resend code: %w", err)
	}
	v.state.Error = ""
	v.state.ResendMessage = codeResent
	return nil
}

// VerifyCode submits the code. An incomplete code is rejected without a
// request. A rejected code keeps the flow in code entry with an error.
func (v *Verifier) VerifyCode(ctx context.Context) error {
	var code string
	email, err := v.begin(domain.VerifyCode, func(s *domain.VerificationSession) error {
		code = s.Code
		return domain.ValidateCode(s.Code)
	})
	if err != nil {
		return err
	}

	tok, err := v.api.VerifyCode(ctx, email, code)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = domain.ErrNotVerified
	}

	v.mu.Lock()
	v.inFlight = false
	if err != nil {
		v.state.ResendMessage = ""
		v.state.Error = domain.UserMessage(err, verifyCodeFailed)
		v.mu.Unlock()
		return fmt.Errorf("verify code: %w", err)
	}

	fire := !v.fired
	v.fired = true
	v.state = domain.VerificationSession{Step: domain.VerifyDone}
	if v.mode == ModeEmailCode {
		v.state.Token = tok.AccessToken
	}
	v.mu.Unlock()

	if fire && v.onVerified != nil {
		v.onVerified(email, tok)
	}
	return nil
}

// Back returns from code entry to email entry
func (v *Verifier) Back() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Step == domain.VerifyCode && !v.inFlight {
		v.state.Step = domain.VerifyEmail
		v.state.Code = ""
		v.state.Error = ""
		v.state.ResendMessage = ""
	}
}

// Reset clears the form and allows another verification
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Reset()
	v.fired = false
}

// begin checks the step, runs validation and marks a request in flight.
// It returns the trimmed email.
func (v *Verifier) begin(step domain.VerificationStep, validate func(*domain.VerificationSession) error) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Step == domain.VerifyDone {
		return "", domain.ErrAlreadyVerified
	}
	if v.state.Step != step {
		return "", domain.ErrWrongStep
	}
	if v.inFlight {
		return "", domain.ErrRequestInFlight
	}
	if validate != nil {
		if err := validate(&v.state); err != nil {
			v.state.Error = err.Error()
			return "", err
		}
	}

	v.inFlight = true
	v.state.Error = ""
	return strings.TrimSpace(v.state.Email), nil
}
