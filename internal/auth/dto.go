// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type RegisterRequest struct {
	Username     string  `json:"username"      validate:"required,min=3,max=30,username"`
	Firstname    string  `json:"firstname"     validate:"required,min=2,max=50,personname"`
	Lastname     string  `json:"lastname"      validate:"required,min=2,max=50,personname"`
	Email        string  `json:"email"         validate:"required,email,max=255"`
	Password     string  `json:"password"      validate:"required,min=8,max=128,password_strength"`
	Role         string  `json:"role"          validate:"omitempty,oneof=user supplier"`
	Contact      *string `json:"contact"       validate:"omitempty,lkphone"`
	Address      *string `json:"address"       validate:"omitempty,max=255"`
	City         *string `json:"city"          validate:"omitempty,max=50,personname"`
	PostalCode   *string `json:"postal_code"   validate:"omitempty,postalcode"`
	Country      *string `json:"country"       validate:"omitempty,max=50,personname"`
	ReferralCode *string `json:"referral_code" validate:"omitempty,max=128"`
}

// LoginRequest accepts either a username or an email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password"   validate:"required,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128,password_strength"`
}

type UserResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Firstname  string     `json:"firstname"`
	Lastname   string     `json:"lastname"`
	Contact    *string    `json:"contact,omitempty"`
	Address    *string    `json:"address,omitempty"`
	City       *string    `json:"city,omitempty"`
	PostalCode *string    `json:"postal_code,omitempty"`
	Country    *string    `json:"country,omitempty"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToUserResponse(a *Account) UserResponse {
	return UserResponse{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Role:       a.Role,
		Firstname:  a.Firstname,
		Lastname:   a.Lastname,
		Contact:    a.Contact,
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		LastLogin:  a.LastLogin,
		CreatedAt:  a.CreatedAt,
	}
}

func toAuthResponse(s *Session) AuthResponse {
	return AuthResponse{
		User:      ToUserResponse(s.Account),
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
	}
}
