package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// ProfileService edits the local user profile
type ProfileService struct {
	store     ports.ProfileStore
	inspector ports.MediaInspector
	session   *Session
}

// NewProfileService creates a new profile service
func NewProfileService(store ports.ProfileStore, inspector ports.MediaInspector, session *Session) *ProfileService {
	return &ProfileService{store: store, inspector: inspector, session: session}
}

// Get returns the stored profile. The email falls back to the session email.
func (s *ProfileService) Get() (domain.Profile, error) {
	p, err := s.store.LoadProfile()
	if err != nil {
		return domain.Profile{}, err
	}
	if p.Email == "" && s.session != nil {
		p.Email = s.session.Email()
	}
	return p, nil
}

// Update validates and saves the editable fields
func (s *ProfileService) Update(p domain.Profile) error {
	p.Email = strings.TrimSpace(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)
	p.Username = strings.TrimSpace(p.Username)
	p.Bio = strings.TrimSpace(p.Bio)

	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveProfile(p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// SetAvatar checks the image and stores its path in the profile
func (s *ProfileService) SetAvatar(ctx context.Context, path string) error {
	info, err := s.inspector.Inspect(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := domain.ValidateAvatar(info.MIMEType, info.Size); err != nil {
		return err
	}

	p, err := s.store.LoadProfile()
	if err != nil {
		return err
	}
	p.AvatarPath = path
	return s.store.SaveProfile(p)
}
