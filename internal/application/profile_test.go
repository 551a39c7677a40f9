package application

import (
	"context"
	"errors"
	"testing"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

type memProfileStore struct {
	profile domain.Profile
	saves   int
}

func (m *memProfileStore) LoadProfile() (domain.Profile, error) {
	return m.profile, nil
}

func (m *memProfileStore) SaveProfile(p domain.Profile) error {
	m.profile = p
	m.saves++
	return nil
}

func TestProfileService_GetFallsBackToSessionEmail(t *testing.T) {
	session, _ := NewSession(&memSessionStore{stored: &ports.StoredSession{Email: "s@x.io", Token: "t"}})
	svc := NewProfileService(&memProfileStore{profile: domain.Profile{FullName: "Jane"}}, nil, session)

	p, err := svc.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Email != "s@x.io" {
		t.Errorf("Email = %q, want session email", p.Email)
	}
}

func TestProfileService_Update(t *testing.T) {
	store := &memProfileStore{}
	svc := NewProfileService(store, nil, nil)

	if err := svc.Update(domain.Profile{FullName: "  Jane Doe ", Username: "jane.d"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if store.profile.FullName != "Jane Doe" {
		t.Errorf("FullName = %q, want trimmed", store.profile.FullName)
	}

	if err := svc.Update(domain.Profile{Username: "jane doe"}); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Errorf("Update() = %v, want ErrInvalidUsername", err)
	}
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
}

func TestProfileService_SetAvatar(t *testing.T) {
	inspector := &mockInspector{files: map[string]*ports.MediaInfo{
		"me.png":  {MIMEType: "image/png", Size: 2048},
		"big.jpg": {MIMEType: "image/jpeg", Size: domain.MaxAvatarSize + 1},
		"me.mp4":  {MIMEType: "video/mp4", Size: 2048},
	}}

	tests := []struct {
		path    string
		wantErr error
	}{
		{"me.png", nil},
		{"big.jpg", domain.ErrAvatarTooLarge},
		{"me.mp4", domain.ErrNotAnImage},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			store := &memProfileStore{}
			svc := NewProfileService(store, inspector, nil)

			err := svc.SetAvatar(context.Background(), tt.path)
			if err != tt.wantErr {
				t.Fatalf("SetAvatar() = %v, want %v", err, tt.wantErr)
			}
			if err == nil && store.profile.AvatarPath != tt.path {
				t.Errorf("AvatarPath = %q", store.profile.AvatarPath)
			}
		})
	}
}
