package errs

// Sentinels for errors.Is checks; matching is by kind only.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = New(KindNotFound, "not found")

	// ErrUnauthenticated indicates a missing session or an unknown session user.
	ErrUnauthenticated = New(KindUnauthenticated, "authentication required")

	// ErrInvalidToken indicates a token with a bad signature, algorithm or expiry.
	ErrInvalidToken = New(KindInvalidToken, "invalid token")

	// ErrSessionExpired indicates the session was idle for too long.
	ErrSessionExpired = New(KindSessionExpired, "session expired")

	// ErrAccountDisabled indicates the account was deactivated after repeated failures.
	ErrAccountDisabled = New(KindAccountDisabled, "account disabled")

	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = New(KindInvalidCredentials, "invalid password")

	// ErrValidation indicates missing or malformed input.
	ErrValidation = New(KindValidation, "validation error")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = New(KindAlreadyExists, "already exists")

	// ErrRateLimited indicates too many login requests from one client.
	ErrRateLimited = New(KindRateLimited, "rate limited")

	// ErrUpstreamStorage indicates a blob store failure.
	ErrUpstreamStorage = New(KindUpstreamStorage, "storage error")
)
