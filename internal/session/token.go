package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/y-ui/yuictl/internal/transport"
)

// tokenExpiry reads the exp claim of a JWT without verifying its signature.
// The panel is the only party that can verify it; the console uses the
// value for display. Opaque tokens return the zero time.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// tokenFingerprint identifies a token in logs without revealing it. It
// matches the TokenID the transport records on failed requests.
func tokenFingerprint(token string) string {
	return transport.TokenID(token)
}
