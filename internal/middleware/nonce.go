package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jgmap/core/internal/pkg/redis"
	"github.com/jgmap/core/internal/pkg/response"
)

const (
	// NonceHeader carries the one-shot write token on mutating requests.
	NonceHeader = "X-Map-Nonce"

	nonceTTL = 30 * time.Minute
)

func nonceKey(token string) string {
	return redis.Key("nonce", token)
}

// IssueNonce creates a fresh one-shot nonce and returns its token and expiry.
func IssueNonce(c *gin.Context, r *redis.Client) (string, time.Time, error) {
	token := uuid.NewString()
	expires := time.Now().Add(nonceTTL)
	if err := r.Set(c.Request.Context(), nonceKey(token), "1", nonceTTL); err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// RequireNonce returns a middleware that consumes a one-shot nonce on every
// mutating request. The nonce is removed atomically, so a replayed request
// with the same token is rejected.
func RequireNonce(r *redis.Client, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		path := strings.TrimRight(c.Request.URL.Path, "/")
		for _, skip := range skipPaths {
			if path == strings.TrimRight(skip, "/") {
				c.Next()
				return
			}
		}

		token := strings.TrimSpace(c.GetHeader(NonceHeader))
		if token == "" {
			response.BadRequest(c, "Brak tokenu zabezpieczającego. Odśwież stronę i spróbuj ponownie.")
			return
		}

		val, err := r.GetDel(c.Request.Context(), nonceKey(token))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if val == "" {
			response.ForbiddenMsg(c, "Token zabezpieczający wygasł. Odśwież stronę i spróbuj ponownie.")
			return
		}

		c.Next()
	}
}
