package remote

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckAPIKey inspects the anon API key, which is a JWT, and logs a warning
// when it is expired or expiring within 30 days. The signature is not
// verified; the key holder is not the one we would be protecting against.
func CheckAPIKey(apiKey string, logger *slog.Logger) {
	if apiKey == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(apiKey, claims); err != nil {
		logger.Warn("api key is not a parseable JWT", "error", err)
		return
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	switch {
	case time.Now().After(exp.Time):
		logger.Warn("api key is expired; remote calls will be rejected", "expired_at", exp.Time)
	case time.Until(exp.Time) < 30*24*time.Hour:
		logger.Warn("api key expires soon", "expires_at", exp.Time)
	}
}
