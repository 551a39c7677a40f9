package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devbush/poser/internal/domain"
)

func TestContactService_Send(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		message   string
		apiErr    error
		wantErr   error
		wantCalls int
		wantText  string
	}{
		{"sent", "Great app", nil, nil, 1, ""},
		{"empty is not sent", "  ", nil, domain.ErrEmptyMessage, 0, domain.ErrEmptyMessage.Error()},
		{"server detail", "Hi", &domain.APIError{StatusCode: 429, Detail: "Too many requests"}, nil, 1, "Too many requests"},
		{"network failure", "Hi", domain.ErrNetworkFailure, domain.ErrNetworkFailure, 1, contactFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{contactErr: tt.apiErr}
			svc := NewContactService(api)
			svc.now = func() time.Time { return now }

			msg, err := svc.Send(context.Background(), "", tt.message)

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
			if len(api.contacts) != tt.wantCalls {
				t.Errorf("contact calls = %d, want %d", len(api.contacts), tt.wantCalls)
			}
			if got := ContactErrorMessage(err); got != tt.wantText {
				t.Errorf("ContactErrorMessage() = %q, want %q", got, tt.wantText)
			}
			if err == nil {
				if msg.Subject != "User Feedback" || !msg.Timestamp.Equal(now) {
					t.Errorf("message = %+v", msg)
				}
			}
		})
	}
}
