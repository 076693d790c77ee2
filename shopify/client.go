package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the platform Admin REST API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	apiSecret  string
	apiVersion string
}

// NewClient creates an Admin API client with the app credentials.
func NewClient(apiKey, apiSecret, apiVersion string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		apiVersion: apiVersion,
	}
}

// get performs an authenticated Admin API request and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, shop, accessToken, endpoint string, out interface{}) error {
	requestURL := fmt.Sprintf("https://%s/admin/api/%s/%s", shop, c.apiVersion, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to shop %s failed: %w", shop, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shop %s returned status %d for %s", shop, resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response from shop %s: %w", endpoint, shop, err)
	}
	return nil
}

// GetShop fetches the shop profile.
func (c *Client) GetShop(ctx context.Context, shop, accessToken string) (*Shop, error) {
	var resp shopResponse
	if err := c.get(ctx, shop, accessToken, "shop.json", &resp); err != nil {
		return nil, err
	}
	return &resp.Shop, nil
}

// FetchOrders fetches orders created since the given time, any status,
// with embedded refunds. The platform caps a page at 250 orders.
func (c *Client) FetchOrders(ctx context.Context, shop, accessToken string, since time.Time) ([]Order, error) {
	params := url.Values{}
	params.Set("status", "any")
	params.Set("created_at_min", since.UTC().Format(time.RFC3339))
	params.Set("limit", "250")

	var resp ordersResponse
	endpoint := "orders.json?" + params.Encode()
	if err := c.get(ctx, shop, accessToken, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}
