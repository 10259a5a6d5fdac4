package handler

import "net/http"

// OAuth2 error codes used by the token endpoints (RFC 6749 §5.2).
const (
	OAuthInvalidRequest       = "invalid_request"
	OAuthInvalidGrant         = "invalid_grant"
	OAuthUnsupportedGrantType = "unsupported_grant_type"
)

// OAuth2Error is rendered as {"error", "error_description"} instead of the
// usual {"detail"} envelope.
type OAuth2Error struct {
	Status      int
	Code        string
	Description string
}

func (e *OAuth2Error) Error() string {
	return e.Code + ": " + e.Description
}

func invalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{Status: http.StatusUnauthorized, Code: OAuthInvalidGrant, Description: description}
}

func missingParameter(name string) *OAuth2Error {
	return &OAuth2Error{
		Status:      http.StatusBadRequest,
		Code:        OAuthInvalidRequest,
		Description: "Missing required parameter: " + name,
	}
}
