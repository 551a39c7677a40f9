package domain

import (
	"errors"
	"fmt"
)

var (
	// Upload validation errors
	ErrNotAVideo     = errors.New("please select a video file")
	ErrVideoTooLarge = errors.New("please upload a video smaller than 500MB")
	ErrNoVideo       = errors.New("no video selected")

	// Verification errors
	ErrInvalidEmail    = errors.New("please enter a valid email address")
	ErrIncompleteCode  = errors.New("verification code must be 6 digits")
	ErrNotVerified     = errors.New("email address has not been verified")
	ErrAlreadyVerified = errors.New("verification already completed")
	ErrRequestInFlight = errors.New("a request is already in progress")

	// Confirmation errors
	ErrNoConfirmationToken = errors.New("no confirmation token provided")

	// Session errors
	ErrNotLoggedIn = errors.New("not logged in - run 'poser login' first")

	// Contact and profile errors
	ErrEmptyMessage    = errors.New("please enter a message before submitting")
	ErrMessageTooLong  = errors.New("message must be 1000 characters or fewer")
	ErrNotAnImage      = errors.New("please upload an image file")
	ErrAvatarTooLarge  = errors.New("please upload an image smaller than 5MB")
	ErrInvalidUsername = errors.New("username may only contain letters, numbers, dots and underscores")

	// Transport errors
	ErrNetworkFailure = errors.New("network failure")

	// Wizard errors
	ErrWrongStep = errors.New("operation not allowed in the current step")

	// Cache errors
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheMiss    = errors.New("cache miss")

	// Dependency errors
	ErrFFmpegNotFound = errors.New("ffmpeg not found")
)

// APIError is a non-2xx response from the Poser API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

var validationErrors = []error{
	ErrNotAVideo, ErrVideoTooLarge, ErrNoVideo,
	ErrInvalidEmail, ErrIncompleteCode, ErrNoConfirmationToken,
	ErrEmptyMessage, ErrMessageTooLong,
	ErrNotAnImage, ErrAvatarTooLarge, ErrInvalidUsername,
}

// IsValidation reports whether err is a client-side validation error that
// should be shown inline and never reach the server.
func IsValidation(err error) bool {
	return validationError(err) != nil
}

// validationError returns the validation sentinel err wraps, or nil
func validationError(err error) error {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return v
		}
	}
	return nil
}

// UserMessage turns err into the text shown to the user. Validation errors
// and server rejections are shown without any wrapping context; anything
// else (transport failures, unexpected errors) falls back to the generic
// message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if v := validationError(err); v != nil {
		return v.Error()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	for _, v := range []error{ErrRequestInFlight, ErrNotLoggedIn} {
		if errors.Is(err, v) {
			return v.Error()
		}
	}
	return fallback
}
