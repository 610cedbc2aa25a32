package common

// AccessTokenCookieName carries the short-lived access token.
const AccessTokenCookieName = "Authentication"

// RefreshTokenCookieName carries the long-lived refresh token.
const RefreshTokenCookieName = "Refresh"
