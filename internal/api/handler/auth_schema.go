package handler

import "github.com/summitrails/tour-booking-api/internal/core/domain"

type signUpRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"password_current" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// updateMeRequest is deliberately narrow: profile fields only. Password
// changes go through their own endpoint.
type updateMeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Photo string `json:"photo"`

	// Bound so their presence can be rejected explicitly instead of being
	// silently dropped.
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type authResponse struct {
	Status string   `json:"status"`
	Token  string   `json:"token"`
	Data   userWrap `json:"data"`
}

type userWrap struct {
	User *domain.User `json:"user"`
}
