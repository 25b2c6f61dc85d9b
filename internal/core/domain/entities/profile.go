package entities

import "time"

type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	AvatarURL   string    `json:"avatar_url"`
	IsVerified  bool      `json:"is_verified"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	CreatedAt   time.Time `json:"created_at"`
}

const DefaultProfileName = "New user"

// NewDefaultProfile is the profile synthesized on first access for a user
// that has no row yet: zero rating, unverified, placeholder name.
func NewDefaultProfile(userID string, createdAt time.Time) *Profile {
	return &Profile{
		ID:        userID,
		Name:      DefaultProfileName,
		CreatedAt: createdAt,
	}
}
