// Package common contains shared constants and sentinel errors used across
// sessionkeeper components.
package common

// Credential store keys. Both are present for an authenticated session and
// both are absent otherwise.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Outbound request headers.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
	RequestIDHeaderName     = "X-Request-Id"
)

// AuthorizationMetadataKey is the gRPC metadata key carrying the bearer token.
const AuthorizationMetadataKey = "authorization"
