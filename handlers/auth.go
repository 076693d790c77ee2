package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"returns-insight-service/config"
	"returns-insight-service/database"
	"returns-insight-service/engine"
	"returns-insight-service/middleware"
	"returns-insight-service/models"
	"returns-insight-service/shopify"
	"returns-insight-service/sync"
)

const stateCookieName = "shopify_oauth_state"

// AuthHandler handles the Shopify OAuth install flow.
type AuthHandler struct {
	cfg         *config.Config
	store       *database.Store
	client      *shopify.Client
	syncService *sync.Service
	engine      *engine.Engine
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg *config.Config, store *database.Store, client *shopify.Client, syncService *sync.Service, eng *engine.Engine) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		store:       store,
		client:      client,
		syncService: syncService,
		engine:      eng,
	}
}

// BeginAuthHandler starts the OAuth handshake: validates the shop
// domain, issues a nonce and redirects to the Shopify authorize page.
func (h *AuthHandler) BeginAuthHandler(c *gin.Context) {
	shop := c.Query("shop")
	if !shopify.ValidShopDomain(shop) {
		c.JSON(400, gin.H{"error": "Invalid shop parameter"})
		return
	}

	state, err := shopify.GenerateNonce()
	if err != nil {
		log.Printf("Error generating OAuth nonce: %v", err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	// The nonce round-trips through a cookie and the state parameter.
	c.SetCookie(stateCookieName, state, 300, "/", "", true, true)

	redirectURI := fmt.Sprintf("%s/auth/shopify/callback", h.cfg.AppURL)
	c.Redirect(http.StatusFound, shopify.AuthorizeURL(shop, h.cfg.ShopifyAPIKey, h.cfg.ShopifyScopes, redirectURI, state))
}

// CallbackHandler completes the OAuth handshake: verifies the HMAC and
// nonce, exchanges the code for an access token, registers the merchant
// and hands the dashboard a session token.
func (h *AuthHandler) CallbackHandler(c *gin.Context) {
	query := c.Request.URL.Query()

	shop := query.Get("shop")
	if !shopify.ValidShopDomain(shop) {
		c.JSON(400, gin.H{"error": "Invalid shop parameter"})
		return
	}

	if !shopify.VerifyHMAC(query, h.cfg.ShopifyAPISecret) {
		log.Printf("WARNING: OAuth callback with invalid HMAC for shop %s from %s", shop, c.ClientIP())
		c.JSON(401, gin.H{"error": "HMAC verification failed"})
		return
	}

	expectedState, err := c.Cookie(stateCookieName)
	if err != nil || expectedState == "" || query.Get("state") != expectedState {
		log.Printf("WARNING: OAuth callback with invalid state for shop %s from %s", shop, c.ClientIP())
		c.JSON(401, gin.H{"error": "State verification failed"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", true, true)

	code := query.Get("code")
	if code == "" {
		c.JSON(400, gin.H{"error": "Missing authorization code"})
		return
	}

	accessToken, err := h.client.ExchangeToken(shop, code)
	if err != nil {
		log.Printf("Token exchange failed for shop %s: %v", shop, err)
		c.JSON(502, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	shopInfo, err := h.client.GetShop(c.Request.Context(), shop, accessToken)
	if err != nil {
		log.Printf("Failed to fetch shop details for %s: %v", shop, err)
		c.JSON(502, gin.H{"error": "Failed to fetch shop details"})
		return
	}

	merchant, err := h.store.UpsertMerchant(c.Request.Context(), &models.Merchant{
		ShopifyDomain: shop,
		AccessToken:   accessToken,
		ShopName:      shopInfo.Name,
		Email:         shopInfo.Email,
		Currency:      shopInfo.Currency,
	})
	if err != nil {
		log.Printf("Failed to register merchant %s: %v", shop, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	// Kick off the initial sync and insight pass in the background so
	// the install redirect stays fast.
	go h.initialSync(merchant)

	token, err := middleware.GenerateSessionToken([]byte(h.cfg.JWTSecret), merchant.ID, merchant.ShopifyDomain, h.cfg.TokenExpiry)
	if err != nil {
		log.Printf("Failed to mint session token for %s: %v", shop, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/dashboard?token=%s&shop=%s", h.cfg.FrontendURL, token, shop))
}

// initialSync runs the first sync and insight pass after an install.
func (h *AuthHandler) initialSync(merchant *models.Merchant) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	synced, err := h.syncService.SyncMerchant(ctx, merchant)
	if err != nil {
		log.Printf("Initial sync failed for %s: %v", merchant.ShopifyDomain, err)
		return
	}
	log.Printf("INFO: Initial sync for %s completed, %d orders", merchant.ShopifyDomain, synced)

	if _, report, err := h.engine.GenerateForMerchant(ctx, merchant.ID); err != nil {
		log.Printf("Initial insight generation failed for %s: %v", merchant.ShopifyDomain, err)
	} else {
		for _, derr := range report.Failed() {
			log.Printf("Detector failed for %s: %v", merchant.ShopifyDomain, derr)
		}
	}
}
