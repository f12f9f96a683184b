package handler

import "vitalreg/internal/auth/models"

// UserResponse is the public shape of a user record.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// SessionResponse wraps the user behind a freshly opened session.
type SessionResponse struct {
	User UserResponse `json:"user"`
}

// MessageResponse carries a plain confirmation text.
type MessageResponse struct {
	Message string `json:"message"`
}

func fromUser(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}
