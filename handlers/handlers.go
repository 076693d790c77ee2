package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"returns-insight-service/database"
	"returns-insight-service/engine"
	"returns-insight-service/middleware"
	"returns-insight-service/models"
	"returns-insight-service/rabbitmq"
	"returns-insight-service/services"
	"returns-insight-service/sync"
)

// InsightHandler handles HTTP requests for insight and dashboard endpoints
type InsightHandler struct {
	store       *database.Store
	engine      *engine.Engine
	syncService *sync.Service
	publisher   *rabbitmq.Publisher
	hub         *services.InsightHub
}

// NewInsightHandler creates a new insight handler. The publisher may be
// nil when event publishing is disabled.
func NewInsightHandler(store *database.Store, eng *engine.Engine, syncService *sync.Service, publisher *rabbitmq.Publisher, hub *services.InsightHub) *InsightHandler {
	return &InsightHandler{
		store:       store,
		engine:      eng,
		syncService: syncService,
		publisher:   publisher,
		hub:         hub,
	}
}

// HealthHandler reports service health including dependency
// reachability. An unreachable database degrades the service; a
// disconnected event publisher does not, since publishing is optional.
func (h *InsightHandler) HealthHandler(c *gin.Context) {
	resp := models.HealthResponse{
		Status:   "healthy",
		Service:  "returns-insight-service",
		Database: "up",
		RabbitMQ: "disabled",
	}
	if h.hub != nil {
		resp.WebSocketClients = h.hub.ConnectedClients()
	}

	if err := h.store.DB().PingContext(c.Request.Context()); err != nil {
		log.Printf("Health check database ping failed: %v", err)
		resp.Status = "degraded"
		resp.Database = "down"
		c.JSON(503, resp)
		return
	}

	if h.publisher != nil {
		if h.publisher.IsConnected() {
			resp.RabbitMQ = "up"
		} else {
			resp.RabbitMQ = "down"
		}
	}

	c.JSON(200, resp)
}

// resolveMerchant loads the merchant named by the :shop path parameter
// and rejects the request when the session was minted for another shop.
func (h *InsightHandler) resolveMerchant(c *gin.Context) (*models.Merchant, bool) {
	shop := c.Param("shop")
	if shop == "" {
		c.JSON(400, gin.H{"error": "shop parameter is required"})
		return nil, false
	}

	if sessionShop := middleware.GetShopDomainFromContext(c); sessionShop != shop {
		log.Printf("WARNING: Session for %s attempted to access %s", sessionShop, shop)
		c.JSON(403, gin.H{"error": "Session does not match shop"})
		return nil, false
	}

	merchant, err := h.store.GetMerchantByDomain(c.Request.Context(), shop)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(404, gin.H{"error": "Shop not installed"})
			return nil, false
		}
		log.Printf("Error looking up merchant %s: %v", shop, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return nil, false
	}

	return merchant, true
}

// GetInsightsHandler returns the merchant's current insight set, ordered
// by financial impact, optionally filtered by status.
func (h *InsightHandler) GetInsightsHandler(c *gin.Context) {
	merchant, ok := h.resolveMerchant(c)
	if !ok {
		return
	}

	status := models.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid status filter %q", status)})
		return
	}

	insights, err := h.store.GetInsights(c.Request.Context(), merchant.ID, status)
	if err != nil {
		log.Printf("Error getting insights for %s: %v", merchant.ShopifyDomain, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(200, models.InsightsResponse{
		Insights: insights,
		Count:    len(insights),
	})
}

// UpdateInsightStatusHandler applies a merchant's status transition to a
// single insight.
func (h *InsightHandler) UpdateInsightStatusHandler(c *gin.Context) {
	merchant, ok := h.resolveMerchant(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(400, gin.H{"error": "id must be a valid integer"})
		return
	}

	var req models.UpdateInsightStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "status is required"})
		return
	}
	if !req.Status.Valid() {
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid status %q", req.Status)})
		return
	}

	// The insight must belong to the shop named in the path.
	existing, err := h.store.GetInsight(c.Request.Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(404, gin.H{"error": "Insight not found"})
			return
		}
		log.Printf("Error looking up insight %d: %v", id, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}
	if existing.MerchantID != merchant.ID {
		c.JSON(404, gin.H{"error": "Insight not found"})
		return
	}

	updated, err := h.store.UpdateInsightStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		log.Printf("Error updating insight %d: %v", id, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishStatusChanged(merchant.ID, id, string(req.Status)); err != nil {
			log.Printf("Failed to publish status change for insight %d: %v", id, err)
		}
	}

	c.JSON(200, updated)
}

// MetricsHandler returns the merchant's dashboard headline metrics.
func (h *InsightHandler) MetricsHandler(c *gin.Context) {
	merchant, ok := h.resolveMerchant(c)
	if !ok {
		return
	}

	metrics, err := h.store.GetDashboardMetrics(c.Request.Context(), merchant.ID)
	if err != nil {
		log.Printf("Error getting metrics for %s: %v", merchant.ShopifyDomain, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(200, metrics)
}

// SyncHandler runs a manual order sync for the merchant, then
// regenerates insights over the refreshed data.
func (h *InsightHandler) SyncHandler(c *gin.Context) {
	merchant, ok := h.resolveMerchant(c)
	if !ok {
		return
	}

	synced, err := h.syncService.SyncMerchant(c.Request.Context(), merchant)
	if err != nil {
		log.Printf("Sync failed for %s: %v", merchant.ShopifyDomain, err)
		c.JSON(502, gin.H{"error": "Failed to sync orders from Shopify"})
		return
	}

	if _, report, err := h.engine.GenerateForMerchant(c.Request.Context(), merchant.ID); err != nil {
		log.Printf("Insight generation failed for %s after sync: %v", merchant.ShopifyDomain, err)
		c.JSON(500, gin.H{"error": "Synced orders but failed to generate insights"})
		return
	} else {
		for _, derr := range report.Failed() {
			log.Printf("Detector failed for %s: %v", merchant.ShopifyDomain, derr)
		}
	}

	c.JSON(200, models.SyncResponse{
		Success:      true,
		OrdersSynced: synced,
		Message:      fmt.Sprintf("Synced %d orders", synced),
	})
}

// GenerateHandler triggers a manual insight regeneration pass over the
// merchant's already-synced data.
func (h *InsightHandler) GenerateHandler(c *gin.Context) {
	merchant, ok := h.resolveMerchant(c)
	if !ok {
		return
	}

	insights, report, err := h.engine.GenerateForMerchant(c.Request.Context(), merchant.ID)
	if err != nil {
		log.Printf("Insight generation failed for %s: %v", merchant.ShopifyDomain, err)
		c.JSON(500, gin.H{"error": "Internal server error"})
		return
	}
	for _, derr := range report.Failed() {
		log.Printf("Detector failed for %s: %v", merchant.ShopifyDomain, derr)
	}

	c.JSON(200, models.InsightsResponse{
		Insights: insights,
		Count:    len(insights),
	})
}
