// Package auth guards the HTTP API with static API keys or JWTs.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/config"
)

// Context keys set by the middleware.
const (
	ContextUserID     = "user_id"
	ContextAuthMethod = "auth_method"
	ContextPrincipal  = "principal_claims"
)

// HeaderAPIKey carries a static API key as an alternative to a bearer token.
const HeaderAPIKey = "X-API-Key"

// TokenValidator validates bearer JWTs.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*PrincipalClaims, error)
}

// Validator authenticates requests when auth is enabled.
type Validator struct {
	enabled bool
	apiKeys [][]byte
	jwt     TokenValidator
	log     zerolog.Logger
}

// NewValidator builds a Validator from config. JWKS is fetched only when
// auth is enabled and a JWKS URL is set.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{log: log}, nil
	}

	var jwtValidator TokenValidator
	if cfg.AuthJWKSURL != "" {
		v, err := NewJWKSValidator(
			ctx,
			cfg.AuthJWKSURL,
			cfg.AuthIssuer,
			cfg.AuthAudience,
			5*time.Minute, // refreshEvery
			time.Minute,   // clockSkew
			log,
		)
		if err != nil {
			return nil, err
		}
		jwtValidator = v
	}
	return NewStaticValidator(cfg.AuthAPIKeys, jwtValidator, log), nil
}

// NewStaticValidator builds an enabled Validator from explicit sources.
// jwtValidator may be nil.
func NewStaticValidator(apiKeys []string, jwtValidator TokenValidator, log zerolog.Logger) *Validator {
	v := &Validator{enabled: true, jwt: jwtValidator, log: log}
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			v.apiKeys = append(v.apiKeys, []byte(k))
		}
	}
	return v
}

// Enabled reports whether requests are checked.
func (v *Validator) Enabled() bool {
	return v != nil && v.enabled
}

// Middleware enforces API key or JWT auth when enabled.
// Supports:
// 1. X-API-Key header or a bearer token equal to a configured API key
// 2. JWT bearer tokens validated against the JWKS
func (v *Validator) Middleware() gin.HandlerFunc {
	if !v.Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		bearer := bearerToken(c.GetHeader("Authorization"))

		if key := strings.TrimSpace(c.GetHeader(HeaderAPIKey)); key != "" || bearer != "" {
			candidate := key
			if candidate == "" {
				candidate = bearer
			}
			if v.matchAPIKey(candidate) {
				c.Set(ContextUserID, apiKeyUserID(candidate))
				c.Set(ContextAuthMethod, "api_key")
				c.Next()
				return
			}
			if key != "" {
				abortUnauthorized(c, "invalid api key")
				return
			}
		}

		if bearer == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		if v.jwt == nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		claims, err := v.jwt.Validate(c.Request.Context(), bearer)
		if err != nil {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextAuthMethod, "jwt")
		c.Set(ContextPrincipal, claims)
		c.Next()
	}
}

func (v *Validator) matchAPIKey(candidate string) bool {
	matched := 0
	for _, k := range v.apiKeys {
		matched |= subtle.ConstantTimeCompare(k, []byte(candidate))
	}
	return matched == 1
}

// apiKeyUserID derives a stable, non-secret user id from an API key.
func apiKeyUserID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key_" + hex.EncodeToString(sum[:8])
}

// UserID returns the authenticated user id, or "" when auth is disabled.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
