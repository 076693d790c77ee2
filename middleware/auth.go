package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateSessionToken mints a dashboard session token for a merchant
// after a completed OAuth handshake.
func GenerateSessionToken(jwtSecret []byte, merchantID, shopDomain string, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"merchant_id": merchantID,
		"shop":        shopDomain,
		"exp":         now.Add(expiry).Unix(),
		"iat":         now.Unix(),
	})

	return token.SignedString(jwtSecret)
}

// ValidateSessionToken validates a session token and returns the
// merchant ID and shop domain it was minted for.
func ValidateSessionToken(jwtSecret []byte, tokenString string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid token claims")
	}

	merchantID, ok := claims["merchant_id"].(string)
	if !ok || merchantID == "" {
		return "", "", errors.New("token missing merchant_id claim")
	}
	shopDomain, _ := claims["shop"].(string)

	return merchantID, shopDomain, nil
}

// AuthMiddleware validates session tokens and extracts merchant information
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Printf("WARNING: Request without Authorization header from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check if it's a Bearer token
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Printf("WARNING: Invalid Authorization header format from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		// Extract and validate the token
		token := strings.TrimPrefix(authHeader, "Bearer ")
		merchantID, shopDomain, err := ValidateSessionToken(jwtSecret, token)
		if err != nil {
			log.Printf("WARNING: Token validation failed from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		// Store merchant identity in context
		c.Set("merchant_id", merchantID)
		c.Set("shop_domain", shopDomain)
		c.Next()
	}
}

// GetMerchantIDFromContext extracts the merchant ID from Gin context
func GetMerchantIDFromContext(c *gin.Context) string {
	if merchantID, exists := c.Get("merchant_id"); exists {
		if id, ok := merchantID.(string); ok {
			return id
		}
	}
	return ""
}

// GetShopDomainFromContext extracts the shop domain from Gin context
func GetShopDomainFromContext(c *gin.Context) string {
	if shop, exists := c.Get("shop_domain"); exists {
		if s, ok := shop.(string); ok {
			return s
		}
	}
	return ""
}
