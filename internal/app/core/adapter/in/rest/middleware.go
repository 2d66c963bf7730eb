package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const customerIDKey = "customer_id"

// RequestLogger 以 zerolog 記錄每個 HTTP 請求
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		event := logger.Info()
		if param.StatusCode >= http.StatusInternalServerError {
			event = logger.Error().Str("error", param.ErrorMessage)
		}
		event.
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status", param.StatusCode).
			Dur("latency", param.Latency).
			Str("client_ip", param.ClientIP).
			Msg("http request")
		return ""
	})
}

// Auth 驗證 Bearer Token，通過後把 customer id 放進 gin.Context
func Auth(verifier TokenVerifier, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithError(c, http.StatusUnauthorized, "Authorization token required")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			respondWithError(c, http.StatusUnauthorized, "Invalid Authorization header format, expected 'Bearer <token>'")
			return
		}

		customerID, err := verifier.Verify(parts[1])
		if err != nil {
			logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("token rejected")
			respondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(customerIDKey, customerID)
		c.Next()
	}
}

// CustomerID 取出 Auth 驗證過的 customer id
func CustomerID(c *gin.Context) (string, bool) {
	v, ok := c.Get(customerIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
