package common

const (
	// AuthorizationHeaderName carries both user access tokens and
	// integration API tokens as "Bearer <token>".
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// TokenSeparator splits an id prefix from the random part of API and
	// download tokens ("<id>__<random>").
	TokenSeparator = "__"
)
