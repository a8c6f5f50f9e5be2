package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/jerry-enebeli/orderrelay/config"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		path          string
		apiKey        string
		server        config.ServerConfig
		expectedCode  int
		expectedError string
	}{
		{
			name:         "Valid secret key",
			path:         "/process_order",
			apiKey:       "master-key",
			server:       config.ServerConfig{Secure: true, SecretKey: "master-key"},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Invalid secret key",
			path:          "/process_order",
			apiKey:        "wrong-key",
			server:        config.ServerConfig{Secure: true, SecretKey: "master-key"},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Invalid secret key",
		},
		{
			name:          "Missing key",
			path:          "/orders/1",
			server:        config.ServerConfig{Secure: true, SecretKey: "master-key"},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Authentication required",
		},
		{
			name:          "Secure without secret key",
			path:          "/process_order",
			apiKey:        "anything",
			server:        config.ServerConfig{Secure: true},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Secret key is not configured",
		},
		{
			name:         "Insecure mode skips auth",
			path:         "/process_order",
			server:       config.ServerConfig{Secure: false},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Root path is public",
			path:         "/",
			server:       config.ServerConfig{Secure: true, SecretKey: "master-key"},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Any(tt.path, NewAuthMiddleware(tt.server).Authenticate(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set(KeyHeader, tt.apiKey)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "Valid key",
			header:   "test-key",
			expected: "test-key",
		},
		{
			name:     "Empty key",
			header:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set(KeyHeader, tt.header)
			}

			result := extractKey(c)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rps := 1.0
	burst := 1
	cleanup := 60
	conf := &config.Configuration{RateLimit: config.RateLimitConfig{
		RequestsPerSecond:  &rps,
		Burst:              &burst,
		CleanupIntervalSec: &cleanup,
	}}

	router := gin.New()
	router.Use(RateLimitMiddleware(conf))
	router.GET("/process_order", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/process_order", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(&config.Configuration{}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
