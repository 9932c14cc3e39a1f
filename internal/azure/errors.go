package azure

import "fmt"

// UpstreamError carries a non-2xx cloud response back to the caller without
// interpretation. Retry policy belongs to the caller; a 429 keeps the
// upstream Retry-After hint so the front end can surface it.
type UpstreamError struct {
	Service    string // "translator" or "speech"
	Status     int
	Code       string // provider error code, when the body carried one
	Message    string
	RetryAfter string // verbatim Retry-After header, usually empty
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s upstream returned %d (%s): %s", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s upstream returned %d: %s", e.Service, e.Status, e.Message)
}

// AuthError means the upstream rejected our credentials. Unlike an
// UpstreamError it is never transient: the operator has to fix the
// subscription key or region.
type AuthError struct {
	Service string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials (status %d): %s", e.Service, e.Status, e.Message)
}
