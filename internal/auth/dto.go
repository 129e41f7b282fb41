package auth

import (
	"github.com/meltedmeethas/storefront-backend/internal/users"
)

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the possibly expired access token and its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest is the payload of POST /change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current" validate:"required"`
	NewPassword     string `json:"new" validate:"required,min=6"`
}

// ForgotPasswordRequest is the payload of POST /forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the payload of POST /reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message      string            `json:"message"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token"`
	User         *users.SummaryDTO `json:"user"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}
