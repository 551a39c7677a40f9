package application

import (
	"context"
	"fmt"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

const contactFailed = "Failed to send message. Please try again."

// ContactService sends support messages
type ContactService struct {
	api ports.PoserAPI
	now func() time.Time
}

// NewContactService creates a new contact service
func NewContactService(api ports.PoserAPI) *ContactService {
	return &ContactService{api: api, now: time.Now}
}

// Send validates and submits a message. Validation errors are returned
// unwrapped and nothing is sent.
func (s *ContactService) Send(ctx context.Context, subject, message string) (*domain.ContactMessage, error) {
	msg, err := domain.NewContactMessage(subject, message, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.api.SubmitContact(ctx, msg); err != nil {
		return nil, fmt.Errorf("submit contact: %w", err)
	}
	return msg, nil
}

// ContactErrorMessage converts a Send error into user-facing text
func ContactErrorMessage(err error) string {
	return domain.UserMessage(err, contactFailed)
}
