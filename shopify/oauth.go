package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// shopDomainPattern accepts only *.myshopify.com store domains.
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop looks like a store domain the
// platform would issue.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// GenerateNonce returns a random hex state value for the OAuth redirect.
func GenerateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthorizeURL builds the platform OAuth consent URL for a shop.
func AuthorizeURL(shop, apiKey, scopes, redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", apiKey)
	params.Set("scope", scopes)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, params.Encode())
}

// VerifyHMAC checks the hmac parameter of an OAuth callback: HMAC-SHA256
// over the remaining query parameters, sorted by key, joined as
// key=value&... The hmac and signature parameters themselves are
// excluded from the message.
func VerifyHMAC(query url.Values, secret string) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+query.Get(key))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// ExchangeToken swaps an OAuth authorization code for a permanent
// access token.
func (c *Client) ExchangeToken(shop, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	resp, err := c.httpClient.Post(tokenURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("token exchange failed for shop %s: %w", shop, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange for shop %s returned status %d", shop, resp.StatusCode)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response for shop %s: %w", shop, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token exchange for shop %s returned an empty token", shop)
	}

	return tokenResp.AccessToken, nil
}
