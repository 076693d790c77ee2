package shopify

// Admin REST payloads, limited to the fields the service consumes.

// Shop is the shop.json resource.
type Shop struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
	Domain   string `json:"myshopify_domain"`
}

type shopResponse struct {
	Shop Shop `json:"shop"`
}

// LineItem is a purchased variant within an order.
type LineItem struct {
	ID           int64  `json:"id"`
	SKU          string `json:"sku"`
	VariantID    int64  `json:"variant_id"`
	VariantTitle string `json:"variant_title"`
	Title        string `json:"title"`
}

// RefundLineItem wraps the originating line item of a refunded unit.
// The platform omits line_item for some legacy refunds.
type RefundLineItem struct {
	ID       int64     `json:"id"`
	LineItem *LineItem `json:"line_item"`
}

// Transaction carries the refunded amount.
type Transaction struct {
	Amount string `json:"amount"`
}

// Refund is a refund event embedded in an order payload.
type Refund struct {
	ID              int64            `json:"id"`
	Note            string           `json:"note"`
	CreatedAt       string           `json:"created_at"`
	RefundLineItems []RefundLineItem `json:"refund_line_items"`
	Transactions    []Transaction    `json:"transactions"`
}

// Order is the orders.json resource with embedded refunds.
type Order struct {
	ID                int64      `json:"id"`
	OrderNumber       int        `json:"order_number"`
	TotalPrice        string     `json:"total_price"`
	Currency          string     `json:"currency"`
	Email             string     `json:"email"`
	CreatedAt         string     `json:"created_at"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	LineItems         []LineItem `json:"line_items"`
	Refunds           []Refund   `json:"refunds"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}
