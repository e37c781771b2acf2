package engage

import "errors"

// Cycle error taxonomy. A cycle never panics past RunCycle; every failure
// resolves to stats plus one of these, matchable with errors.Is.
var (
	ErrNoSession        = errors.New("no-session")
	ErrAuthExpired      = errors.New("auth-expired")
	ErrProviderBlocked  = errors.New("provider-blocked")
	ErrQuotaExceeded    = errors.New("quota-exceeded")
	ErrGenerationFailed = errors.New("generation-failed")
	ErrPostFailed       = errors.New("post-failed")
)
