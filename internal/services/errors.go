package services

import "errors"

var (
	// auth
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// verification codes
	ErrCodeNotFound = errors.New("no pending code")
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeMismatch = errors.New("code invalid")

	// delivery: generation succeeded, the email did not go out
	ErrDeliveryFailed = errors.New("delivery failed")

	// uploads
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrExtensionMismatch  = errors.New("file extension does not match file type")
	ErrSuspiciousFile     = errors.New("suspicious file extension detected")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNoFile             = errors.New("no file uploaded")
)
