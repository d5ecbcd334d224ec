// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

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

type NotificationResponse struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type ClearNotificationsResponse struct {
	Cleared int64 `json:"cleared"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"    validate:"max=100"`
	Role     string `json:"role"      validate:"omitempty,oneof=user admin staff supplier"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
		Contact:    u.Contact,
		Address:    u.Address,
		City:       u.City,
		PostalCode: u.PostalCode,
		Country:    u.Country,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}

func toNotificationsResponse(items []Notification) NotificationsResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}
	return NotificationsResponse{Notifications: out}
}
