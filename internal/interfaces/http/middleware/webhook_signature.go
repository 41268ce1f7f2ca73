package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/santi-junco/sync-tiendanube/internal/interfaces/http/dto"
)

// WebhookHMACHeader carries the base64 HMAC-SHA256 of the raw webhook body
const WebhookHMACHeader = "X-Shopify-Hmac-Sha256"

// WebhookSignature verifies the HMAC signature of Commerce Hub webhooks.
// An empty secret disables verification. The body is restored for the
// handler after it has been read.
func WebhookSignature(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		requestID := GetRequestID(c)

		signature := c.GetHeader(WebhookHMACHeader)
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Missing "+WebhookHMACHeader+" header", requestID))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			if IsBodyTooLarge(err) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Failed to read request body", requestID))
			return
		}

		if !ValidWebhookSignature(key, body, signature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Webhook signature verification failed", requestID))
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// ValidWebhookSignature reports whether signature is the base64 HMAC-SHA256
// of body under key
func ValidWebhookSignature(key, body []byte, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// SignWebhookBody returns the base64 HMAC-SHA256 of body under key
func SignWebhookBody(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
