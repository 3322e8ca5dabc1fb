package auth

import "errors"

// Expected failures, mapped to client-facing statuses at the boundary.
// Anything else coming out of the service is an internal error: logged with
// detail, surfaced as a generic message.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to prevent account enumeration.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMissingToken        = errors.New("refresh token required")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// ValidationError reports missing or empty input fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
