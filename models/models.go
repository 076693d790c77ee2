package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies what kind of finding an insight describes.
type Category string

const (
	CategoryFit     Category = "fit"
	CategoryQuality Category = "quality"
	CategorySuccess Category = "success"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryFit, CategoryQuality, CategorySuccess:
		return true
	}
	return false
}

// Impact grades how severe (or beneficial) an insight is.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Valid reports whether the impact is one of the known values.
func (i Impact) Valid() bool {
	switch i {
	case ImpactPositive, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	}
	return false
}

// Status is the lifecycle state of an insight, driven by merchant action.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusAddressed     Status = "addressed"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusAddressed:
		return true
	}
	return false
}

// Merchant represents an installed store.
type Merchant struct {
	ID            string     `json:"id"`
	ShopifyDomain string     `json:"shopify_domain"`
	AccessToken   string     `json:"-"`
	ShopName      string     `json:"shop_name"`
	Email         string     `json:"email"`
	Currency      string     `json:"currency"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LineItem is a single purchased variant within an order.
type LineItem struct {
	ID           int64  `json:"id"`
	SKU          string `json:"sku"`
	VariantID    int64  `json:"variant_id"`
	VariantTitle string `json:"variant_title"`
	Title        string `json:"title"`
}

// Order is a synced storefront order. Immutable once synced.
type Order struct {
	ID                int64           `json:"id"`
	MerchantID        string          `json:"merchant_id"`
	ShopifyOrderID    string          `json:"shopify_order_id"`
	OrderNumber       int             `json:"order_number"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Currency          string          `json:"currency"`
	CustomerEmail     string          `json:"customer_email"`
	LineItems         []LineItem      `json:"line_items"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RefundLineItem links a refund back to the line item it reverses.
// LineItem may be nil when the platform did not include it; such
// entries cannot be attributed to a variant.
type RefundLineItem struct {
	ID       int64     `json:"id"`
	LineItem *LineItem `json:"line_item"`
}

// Refund is a synced refund event. Immutable once synced.
type Refund struct {
	ID              int64            `json:"id"`
	MerchantID      string           `json:"merchant_id"`
	ShopifyOrderID  string           `json:"shopify_order_id"`
	ShopifyRefundID string           `json:"shopify_refund_id"`
	Amount          decimal.Decimal  `json:"amount"`
	Note            string           `json:"note"`
	RefundLineItems []RefundLineItem `json:"refund_line_items"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Insight is a synthesized, persisted finding: an anomaly or benchmark
// with a recommended action and estimated financial impact.
type Insight struct {
	ID                int64     `json:"id"`
	MerchantID        string    `json:"merchant_id"`
	Title             string    `json:"title"`
	Category          Category  `json:"category"`
	Impact            Impact    `json:"impact"`
	Confidence        int       `json:"confidence"`
	FinancialImpact   int64     `json:"financial_impact"`
	Description       string    `json:"description"`
	AffectedSKUs      []string  `json:"affected_skus"`
	SpecificIssue     string    `json:"specific_fit_issue"`
	Action            string    `json:"action"`
	ManufacturingNote string    `json:"manufacturing_note"`
	Status            Status    `json:"status"`
	OrdersAffected    int       `json:"orders_affected"`
	ReturnsCount      int       `json:"returns_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks the construction-time invariants before an insight may
// be persisted. A malformed record is a programming error, not data to
// store and sort out later.
func (i *Insight) Validate() error {
	if i.MerchantID == "" {
		return fmt.Errorf("insight missing merchant id")
	}
	if !i.Category.Valid() {
		return fmt.Errorf("invalid insight category %q", i.Category)
	}
	if !i.Impact.Valid() {
		return fmt.Errorf("invalid insight impact %q", i.Impact)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("invalid insight status %q", i.Status)
	}
	if i.Confidence < 0 || i.Confidence > 100 {
		return fmt.Errorf("insight confidence %d out of range [0,100]", i.Confidence)
	}
	if i.FinancialImpact < 0 {
		return fmt.Errorf("insight financial impact %d is negative", i.FinancialImpact)
	}
	if i.ReturnsCount > i.OrdersAffected {
		return fmt.Errorf("insight returns count %d exceeds orders affected %d", i.ReturnsCount, i.OrdersAffected)
	}
	return nil
}

// HealthResponse is the payload for health check endpoints. Dependency
// fields report reachability, not correctness.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Database         string `json:"database,omitempty"`
	RabbitMQ         string `json:"rabbitmq,omitempty"`
	WebSocketClients int    `json:"websocket_clients"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// InsightsResponse wraps a list of insights for the dashboard.
type InsightsResponse struct {
	Insights []Insight `json:"insights"`
	Count    int       `json:"count"`
}

// UpdateInsightStatusRequest is the body of the status PATCH endpoint.
type UpdateInsightStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// SyncResponse reports the outcome of a manual sync run.
type SyncResponse struct {
	Success      bool   `json:"success"`
	OrdersSynced int    `json:"orders_synced"`
	Message      string `json:"message"`
}

// DashboardMetrics is the aggregate view rendered at the top of the
// merchant dashboard.
type DashboardMetrics struct {
	TotalOrders      int             `json:"totalOrders"`
	TotalReturns     int             `json:"totalReturns"`
	ReturnRate       float64         `json:"returnRate"`
	PotentialSavings int64           `json:"potentialSavings"`
	AvgOrderValue    decimal.Decimal `json:"avgOrderValue"`
}

// InsightBroadcast is pushed to WebSocket subscribers when a merchant's
// insight set has been regenerated.
type InsightBroadcast struct {
	MerchantID string    `json:"merchant_id"`
	ShopDomain string    `json:"shop_domain"`
	Insights   []Insight `json:"insights"`
	Timestamp  time.Time `json:"timestamp"`
}
