/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/orderrelay/config"
)

const (
	KeyHeader = "X-Relay-Key"
)

// AuthMiddleware checks the X-Relay-Key header against server.secret_key
// when server.secure is on.
type AuthMiddleware struct {
	secure    bool
	secretKey string
}

func NewAuthMiddleware(conf config.ServerConfig) *AuthMiddleware {
	return &AuthMiddleware{secure: conf.Secure, secretKey: conf.SecretKey}
}

// Authenticate returns a middleware function that authenticates every route
// except the liveness path.
//
// Responses:
// - 401 Unauthorized: When the key is missing or invalid.
// - 500 Internal Server Error: When secure mode is on without a secret key.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth for root path
		if c.Request.URL.Path == "/" || !m.secure {
			c.Next()
			return
		}

		if m.secretKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}

		key := extractKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use X-Relay-Key header"})
			return
		}

		if !secureCompare(m.secretKey, key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}

		c.Next()
	}
}

// extractKey retrieves the authentication key from the X-Relay-Key header.
func extractKey(c *gin.Context) string {
	return c.GetHeader(KeyHeader)
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
