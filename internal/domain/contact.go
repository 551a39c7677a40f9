package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContactMessageLength is the character limit of a contact message
const MaxContactMessageLength = 1000

const defaultContactSubject = "User Feedback"

// ContactMessage is a support request sent from the client
type ContactMessage struct {
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewContactMessage trims the input, applies the default subject and
// validates the message body.
func NewContactMessage(subject, message string, now time.Time) (*ContactMessage, error) {
	subject = strings.TrimSpace(subject)
	message = strings.TrimSpace(message)

	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxContactMessageLength {
		return nil, ErrMessageTooLong
	}
	if subject == "" {
		subject = defaultContactSubject
	}

	return &ContactMessage{
		Subject:   subject,
		Message:   message,
		Timestamp: now.UTC(),
	}, nil
}
