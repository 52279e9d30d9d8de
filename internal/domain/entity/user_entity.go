package entity

import (
	"time"
)

// User is the aggregate root of the identity domain.
// PasswordHash holds a bcrypt hash; RefreshToken is the only live refresh token
// for the account, empty when signed out.
type User struct {
	ID            string
	Username      string
	Email         string
	Fullname      string
	AvatarURL     string
	CoverImageURL string
	PasswordHash  string
	RefreshToken  string
	WatchHistory  []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser is the outward representation of a User. It has no credential fields.
type PublicUser struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Fullname      string    `json:"fullname"`
	AvatarURL     string    `json:"avatarUrl"`
	CoverImageURL string    `json:"coverImageUrl"`
	WatchHistory  []string  `json:"watchHistory"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	history := make([]string, len(u.WatchHistory))
	copy(history, u.WatchHistory)
	return &PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Fullname:      u.Fullname,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		WatchHistory:  history,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// ProfileChanges lists the profile fields to overwrite; nil means keep.
type ProfileChanges struct {
	Fullname      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
}

func (p ProfileChanges) Empty() bool {
	return p.Fullname == nil && p.Email == nil && p.AvatarURL == nil && p.CoverImageURL == nil
}
