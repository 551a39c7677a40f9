package ports

import "github.com/devbush/poser/internal/domain"

// ProfileStore reads and writes the local user profile
type ProfileStore interface {
	LoadProfile() (domain.Profile, error)
	SaveProfile(p domain.Profile) error
}
