package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxAvatarSize is the largest avatar image accepted (5 MiB)
const MaxAvatarSize = 5 * 1024 * 1024

var profileUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]*$`)

// Profile holds the user's local account settings
type Profile struct {
	Email      string `yaml:"email" json:"email"`
	FullName   string `yaml:"full_name" json:"full_name"`
	Username   string `yaml:"username" json:"username"`
	Bio        string `yaml:"bio" json:"bio"`
	AvatarPath string `yaml:"avatar_path" json:"avatar_path"`
}

// Initials returns up to two upper-case initials from the full name,
// falling back to the email address.
func (p *Profile) Initials() string {
	var initials []rune
	for _, part := range strings.Fields(p.FullName) {
		r := []rune(part)
		initials = append(initials, unicode.ToUpper(r[0]))
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 && p.Email != "" {
		initials = append(initials, unicode.ToUpper([]rune(p.Email)[0]))
	}
	return string(initials)
}

// Validate checks the editable profile fields
func (p *Profile) Validate() error {
	if p.Email != "" {
		if err := ValidateEmail(p.Email); err != nil {
			return err
		}
	}
	if !profileUsernamePattern.MatchString(p.Username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateAvatar checks the avatar constraints: an image/* MIME type and at
// most MaxAvatarSize bytes.
func ValidateAvatar(mimeType string, size int64) error {
	if !strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return ErrNotAnImage
	}
	if size > MaxAvatarSize {
		return ErrAvatarTooLarge
	}
	return nil
}
