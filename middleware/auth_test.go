package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret")

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "m1", "cool.myshopify.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	merchantID, shop, err := ValidateSessionToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateSessionToken() error = %v", err)
	}
	if merchantID != "m1" || shop != "cool.myshopify.com" {
		t.Errorf("ValidateSessionToken() = (%s, %s), want (m1, cool.myshopify.com)", merchantID, shop)
	}
}

func TestValidateSessionTokenRejects(t *testing.T) {
	expired, err := GenerateSessionToken(testSecret, "m1", "cool.myshopify.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}
	wrongKey, err := GenerateSessionToken([]byte("other-secret"), "m1", "cool.myshopify.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	testCases := []struct {
		name  string
		token string
	}{
		{"expired token", expired},
		{"wrong signing key", wrongKey},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tc := range testCases {
		if _, _, err := ValidateSessionToken(testSecret, tc.token); err == nil {
			t.Errorf("%s: ValidateSessionToken() error = nil, want rejection", tc.name)
		}
	}
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"merchant_id": GetMerchantIDFromContext(c),
			"shop":        GetShopDomainFromContext(c),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "m1", "cool.myshopify.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	testCases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer token", "Bearer " + token, 200},
		{"missing header", "", 401},
		{"not a bearer token", "Basic dXNlcjpwYXNz", 401},
		{"invalid token", "Bearer garbage", 401},
	}

	router := authTestRouter()
	for _, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.authHeader != "" {
			req.Header.Set("Authorization", tc.authHeader)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.wantStatus)
		}
	}
}
