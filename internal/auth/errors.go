package auth

// UnauthenticatedError means no usable credential was presented at all.
type UnauthenticatedError struct{}

func (e *UnauthenticatedError) Error() string { return "unauthenticated" }

// AuthenticationFailedError means a credential was presented but did not
// verify, or verified but lacks the required scope. The message is
// intentionally generic; callers must never say which key, if any, came
// close to matching.
type AuthenticationFailedError struct {
	Reason string
}

func (e *AuthenticationFailedError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Reason
}
