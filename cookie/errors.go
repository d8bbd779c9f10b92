package cookie

import "errors"

var (
	// ErrNoSecret indicates no signing secret was provided to the codec.
	ErrNoSecret = errors.New("no secret provided for cookie codec")

	// ErrSecretTooShort indicates the secret doesn't meet the minimum length requirement.
	ErrSecretTooShort = errors.New("secret must be at least 32 characters long")
)
