package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireAPIKey gates mutating endpoints behind a shared key when one
// is configured. Comparison is constant-time; with no key configured
// the server runs open, which is the local development mode.
func (s *Server) requireAPIKey(c *gin.Context) bool {
	if s.apiKey == "" {
		return true
	}
	key := strings.TrimSpace(c.GetHeader("X-API-Key"))
	if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1 {
		return true
	}
	writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "api key required")
	return false
}
