package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
)

func TestValidShopDomain(t *testing.T) {
	testCases := []struct {
		shop string
		want bool
	}{
		{"cool-leggings.myshopify.com", true},
		{"store1.myshopify.com", true},
		{"a.myshopify.com", true},
		{"", false},
		{"myshopify.com", false},
		{"cool-leggings.example.com", false},
		{"-leading-dash.myshopify.com", false},
		{"evil.com/cool.myshopify.com", false},
		{"cool.myshopify.com.evil.com", false},
	}

	for _, tc := range testCases {
		if got := ValidShopDomain(tc.shop); got != tc.want {
			t.Errorf("ValidShopDomain(%q) = %v, want %v", tc.shop, got, tc.want)
		}
	}
}

func TestGenerateNonce(t *testing.T) {
	a, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	b, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}

	if len(a) != 32 {
		t.Errorf("GenerateNonce() length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("GenerateNonce() returned the same value twice")
	}
}

func TestAuthorizeURL(t *testing.T) {
	got := AuthorizeURL("cool.myshopify.com", "key123", "read_orders", "https://app.example.com/auth/shopify/callback", "nonce1")

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("AuthorizeURL() produced unparseable URL: %v", err)
	}
	if parsed.Host != "cool.myshopify.com" || parsed.Path != "/admin/oauth/authorize" {
		t.Errorf("AuthorizeURL() = %q, want authorize path on the shop domain", got)
	}

	q := parsed.Query()
	if q.Get("client_id") != "key123" || q.Get("scope") != "read_orders" || q.Get("state") != "nonce1" {
		t.Errorf("AuthorizeURL() query = %v", q)
	}
}

func signQuery(query url.Values, secret string) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	// Keep the fixture independent from the implementation's sorting.
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+query.Get(key))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC(t *testing.T) {
	secret := "shhh"
	query := url.Values{}
	query.Set("shop", "cool.myshopify.com")
	query.Set("code", "abc123")
	query.Set("state", "nonce1")
	query.Set("timestamp", "1700000000")
	query.Set("hmac", signQuery(query, secret))

	if !VerifyHMAC(query, secret) {
		t.Error("VerifyHMAC() = false for a correctly signed query")
	}

	// Tampering with any parameter invalidates the signature.
	query.Set("shop", "evil.myshopify.com")
	if VerifyHMAC(query, secret) {
		t.Error("VerifyHMAC() = true after tampering with shop")
	}
	query.Set("shop", "cool.myshopify.com")

	// Wrong secret.
	if VerifyHMAC(query, "other") {
		t.Error("VerifyHMAC() = true with the wrong secret")
	}

	// Missing hmac parameter.
	query.Del("hmac")
	if VerifyHMAC(query, secret) {
		t.Error("VerifyHMAC() = true without an hmac parameter")
	}
}

func TestVerifyHMACIgnoresSignatureParam(t *testing.T) {
	secret := "shhh"
	query := url.Values{}
	query.Set("shop", "cool.myshopify.com")
	query.Set("code", "abc123")
	query.Set("signature", "legacy-value")
	query.Set("hmac", signQuery(query, secret))

	if !VerifyHMAC(query, secret) {
		t.Error("VerifyHMAC() = false, want signature parameter excluded from the message")
	}
}
