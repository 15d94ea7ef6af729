package users

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

const birthDateLayout = "2006-01-02"

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      string      `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	Profile   *ProfileDTO `json:"profile,omitempty"`
}

// ProfileDTO carries the optional personal details of an account.
type ProfileDTO struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User        UserDTO `json:"user"`
	AccessToken string  `json:"accessToken"`
	ExpiresAt   int64   `json:"expiresAt"`
}

// RegisterInput holds a sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileInput updates the fields that are non-nil.
type ProfileInput struct {
	Name      *string
	FirstName *string
	LastName  *string
	Phone     *string
	BirthDate *string
	Gender    *string
	Address   *string
}

// FromModel converts a user row into its public representation.
func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
	}
	if p := u.Profile; p != nil {
		profile := &ProfileDTO{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Phone:     p.Phone,
			Address:   p.Address,
		}
		if p.BirthDate != nil {
			value := p.BirthDate.Format(birthDateLayout)
			profile.BirthDate = &value
		}
		if p.Gender != nil {
			value := string(*p.Gender)
			profile.Gender = &value
		}
		dto.Profile = profile
	}
	return dto
}
