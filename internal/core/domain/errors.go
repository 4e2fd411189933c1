package domain

import "errors"

// Operational errors. The API error handler maps each of these to a fixed
// HTTP status; anything else is treated as an internal error.
var (
	ErrDocumentNotFound = errors.New("no document found with that ID")
	ErrUserNotFound     = errors.New("user not found")
	ErrTourNotFound     = errors.New("tour not found")

	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrNotLoggedIn        = errors.New("you are not logged in")
	ErrTokenInvalid       = errors.New("invalid token, please log in again")
	ErrPasswordChanged    = errors.New("password was changed recently, please log in again")
	ErrForbidden          = errors.New("you do not have permission to perform this action")

	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")
	ErrDuplicateField    = errors.New("duplicate field value")
	ErrSignatureInvalid  = errors.New("webhook signature verification failed")
)
