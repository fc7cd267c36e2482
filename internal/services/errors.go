package services

import "errors"

// Sentinel errors for the token registry and the upload-intent state
// machine. Handlers map these onto the HTTP surface; none of them is
// retryable without caller action (a new intent, a corrected input, or
// a different token).
var (
	ErrInvalidToken  = errors.New("invalid CLI token")
	ErrRevokedToken  = errors.New("CLI token has been revoked")
	ErrTokenNotFound = errors.New("token was not found")
	ErrNotTokenOwner = errors.New("you can only revoke your own CLI tokens")

	ErrIntentNotFound  = errors.New("upload intent was not found")
	ErrTokenMismatch   = errors.New("upload intent does not match this token")
	ErrAlreadyConsumed = errors.New("upload intent has already been finalized")
	ErrIntentExpired   = errors.New("upload intent expired, please upload again")
	ErrBlobMissing     = errors.New("uploaded file could not be located in storage")

	ErrImageNotFound    = errors.New("image was not found")
	ErrDuplicateImageID = errors.New("image id already exists")
)
