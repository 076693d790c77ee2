package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"returns-insight-service/models"
)

// Store wraps all persistence for merchants, synced order data and
// insights. It satisfies the engine's Store and MerchantSource
// interfaces.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// generateMerchantID returns a random 32-char hex identifier.
func generateMerchantID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate merchant id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// UpsertMerchant inserts the merchant on first install and refreshes
// the access token and shop details on reinstall.
func (s *Store) UpsertMerchant(ctx context.Context, m *models.Merchant) (*models.Merchant, error) {
	existing, err := s.GetMerchantByDomain(ctx, m.ShopifyDomain)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up merchant %s: %w", m.ShopifyDomain, err)
	}

	if existing != nil {
		query := `
		UPDATE merchants
		SET access_token = ?, shop_name = ?, email = ?, currency = ?, updated_at = NOW()
		WHERE id = ?`
		if _, err := s.db.ExecContext(ctx, query, m.AccessToken, m.ShopName, m.Email, m.Currency, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to update merchant %s: %w", m.ShopifyDomain, err)
		}
		return s.GetMerchantByDomain(ctx, m.ShopifyDomain)
	}

	id, err := generateMerchantID()
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO merchants (id, shopify_domain, access_token, shop_name, email, currency)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, m.ShopifyDomain, m.AccessToken, m.ShopName, m.Email, m.Currency); err != nil {
		return nil, fmt.Errorf("failed to insert merchant %s: %w", m.ShopifyDomain, err)
	}

	return s.GetMerchantByDomain(ctx, m.ShopifyDomain)
}

// GetMerchantByDomain looks a merchant up by its myshopify domain.
// Returns sql.ErrNoRows when not installed.
func (s *Store) GetMerchantByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	query := `
	SELECT id, shopify_domain, access_token, shop_name, email, currency, last_sync_at, created_at, updated_at
	FROM merchants
	WHERE shopify_domain = ?`

	var m models.Merchant
	var lastSync sql.NullTime
	err := s.db.QueryRowContext(ctx, query, domain).Scan(
		&m.ID,
		&m.ShopifyDomain,
		&m.AccessToken,
		&m.ShopName,
		&m.Email,
		&m.Currency,
		&lastSync,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch merchant %s: %w", domain, err)
	}
	if lastSync.Valid {
		m.LastSyncAt = &lastSync.Time
	}
	return &m, nil
}

// ListMerchantIDs returns all merchant ids in install order. This is
// the iteration order the engine runner uses.
func (s *Store) ListMerchantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM merchants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan merchant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateLastSync stamps the merchant's last successful sync time.
func (s *Store) UpdateLastSync(ctx context.Context, merchantID string, at time.Time) error {
	query := `UPDATE merchants SET last_sync_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, at, merchantID); err != nil {
		return fmt.Errorf("failed to update last sync for merchant %s: %w", merchantID, err)
	}
	return nil
}

// UpsertOrder inserts a synced order or refreshes it when the platform
// re-sends it within the sync window.
func (s *Store) UpsertOrder(ctx context.Context, order *models.Order) error {
	lineItems, err := json.Marshal(order.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items for order %s: %w", order.ShopifyOrderID, err)
	}

	query := `
	INSERT INTO orders (
		merchant_id, shopify_order_id, order_number, total_price, currency,
		customer_email, line_items, financial_status, fulfillment_status, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		total_price = VALUES(total_price),
		financial_status = VALUES(financial_status),
		fulfillment_status = VALUES(fulfillment_status),
		line_items = VALUES(line_items)`

	_, err = s.db.ExecContext(ctx, query,
		order.MerchantID,
		order.ShopifyOrderID,
		order.OrderNumber,
		order.TotalPrice.String(),
		order.Currency,
		order.CustomerEmail,
		lineItems,
		order.FinancialStatus,
		order.FulfillmentStatus,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", order.ShopifyOrderID, err)
	}
	return nil
}

// UpsertRefund inserts a synced refund or refreshes it on re-sync.
func (s *Store) UpsertRefund(ctx context.Context, refund *models.Refund) error {
	refundLineItems, err := json.Marshal(refund.RefundLineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal refund line items for refund %s: %w", refund.ShopifyRefundID, err)
	}

	query := `
	INSERT INTO refunds (
		merchant_id, shopify_order_id, shopify_refund_id, amount, note, refund_line_items, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		amount = VALUES(amount),
		note = VALUES(note),
		refund_line_items = VALUES(refund_line_items)`

	_, err = s.db.ExecContext(ctx, query,
		refund.MerchantID,
		refund.ShopifyOrderID,
		refund.ShopifyRefundID,
		refund.Amount.String(),
		refund.Note,
		refundLineItems,
		refund.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert refund %s: %w", refund.ShopifyRefundID, err)
	}
	return nil
}

// FetchOrders returns the merchant's synced order set.
func (s *Store) FetchOrders(ctx context.Context, merchantID string) ([]models.Order, error) {
	query := `
	SELECT id, merchant_id, shopify_order_id, order_number, total_price, currency,
	       customer_email, line_items, financial_status, fulfillment_status, created_at
	FROM orders
	WHERE merchant_id = ?
	ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for merchant %s: %w", merchantID, err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var totalPrice string
		var lineItems []byte

		err := rows.Scan(
			&order.ID,
			&order.MerchantID,
			&order.ShopifyOrderID,
			&order.OrderNumber,
			&totalPrice,
			&order.Currency,
			&order.CustomerEmail,
			&lineItems,
			&order.FinancialStatus,
			&order.FulfillmentStatus,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		order.TotalPrice, err = decimal.NewFromString(totalPrice)
		if err != nil {
			return nil, fmt.Errorf("invalid total price for order %s: %w", order.ShopifyOrderID, err)
		}
		if len(lineItems) > 0 {
			if err := json.Unmarshal(lineItems, &order.LineItems); err != nil {
				return nil, fmt.Errorf("failed to unmarshal line items for order %s: %w", order.ShopifyOrderID, err)
			}
		}

		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// FetchRefunds returns the merchant's synced refund set.
func (s *Store) FetchRefunds(ctx context.Context, merchantID string) ([]models.Refund, error) {
	query := `
	SELECT id, merchant_id, shopify_order_id, shopify_refund_id, amount, note, refund_line_items, created_at
	FROM refunds
	WHERE merchant_id = ?
	ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query refunds for merchant %s: %w", merchantID, err)
	}
	defer rows.Close()

	var refunds []models.Refund
	for rows.Next() {
		var refund models.Refund
		var amount string
		var note sql.NullString
		var refundLineItems []byte

		err := rows.Scan(
			&refund.ID,
			&refund.MerchantID,
			&refund.ShopifyOrderID,
			&refund.ShopifyRefundID,
			&amount,
			&note,
			&refundLineItems,
			&refund.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}

		refund.Note = note.String
		refund.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for refund %s: %w", refund.ShopifyRefundID, err)
		}
		if len(refundLineItems) > 0 {
			if err := json.Unmarshal(refundLineItems, &refund.RefundLineItems); err != nil {
				return nil, fmt.Errorf("failed to unmarshal refund line items for refund %s: %w", refund.ShopifyRefundID, err)
			}
		}

		refunds = append(refunds, refund)
	}
	return refunds, rows.Err()
}

// DeleteInsights removes all insights for the merchant. Idempotent:
// deleting with none present is not an error.
func (s *Store) DeleteInsights(ctx context.Context, merchantID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM insights WHERE merchant_id = ?`, merchantID); err != nil {
		return fmt.Errorf("failed to delete insights for merchant %s: %w", merchantID, err)
	}
	return nil
}

// InsertInsights bulk-inserts a freshly generated insight set.
func (s *Store) InsertInsights(ctx context.Context, insights []models.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(insights))
	args := make([]interface{}, 0, len(insights)*15)

	for i := range insights {
		insight := &insights[i]
		if err := insight.Validate(); err != nil {
			return fmt.Errorf("refusing to insert malformed insight: %w", err)
		}

		skus, err := json.Marshal(insight.AffectedSKUs)
		if err != nil {
			return fmt.Errorf("failed to marshal affected skus: %w", err)
		}

		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			insight.MerchantID,
			insight.Title,
			string(insight.Category),
			string(insight.Impact),
			insight.Confidence,
			insight.FinancialImpact,
			insight.Description,
			skus,
			insight.SpecificIssue,
			insight.Action,
			insight.ManufacturingNote,
			string(insight.Status),
			insight.OrdersAffected,
			insight.ReturnsCount,
			insight.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
	INSERT INTO insights (
		merchant_id, title, category, impact, confidence, financial_impact,
		description, affected_skus, specific_issue, action, manufacturing_note,
		status, orders_affected, returns_count, created_at
	)
	VALUES %s`, strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %d insights: %w", len(insights), err)
	}
	return nil
}

// GetInsights returns the merchant's insights ordered by financial
// impact, optionally filtered by status.
func (s *Store) GetInsights(ctx context.Context, merchantID string, status models.Status) ([]models.Insight, error) {
	query := `
	SELECT id, merchant_id, title, category, impact, confidence, financial_impact,
	       description, affected_skus, specific_issue, action, manufacturing_note,
	       status, orders_affected, returns_count, created_at, updated_at
	FROM insights
	WHERE merchant_id = ?`
	args := []interface{}{merchantID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY financial_impact DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights for merchant %s: %w", merchantID, err)
	}
	defer rows.Close()

	var insights []models.Insight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, *insight)
	}
	return insights, rows.Err()
}

// UpdateInsightStatus applies a dashboard status transition and returns
// the updated record. Returns sql.ErrNoRows for an unknown id.
func (s *Store) UpdateInsightStatus(ctx context.Context, id int64, status models.Status) (*models.Insight, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid insight status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE insights SET status = ?, updated_at = NOW() WHERE id = ?`, string(status), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update insight %d: %w", id, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// The status may match the current value; distinguish a no-op
		// update from a missing row.
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insights WHERE id = ?`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check insight %d: %w", id, err)
		}
		if exists == 0 {
			return nil, sql.ErrNoRows
		}
	}

	return s.GetInsight(ctx, id)
}

// GetInsight fetches a single insight by id.
func (s *Store) GetInsight(ctx context.Context, id int64) (*models.Insight, error) {
	query := `
	SELECT id, merchant_id, title, category, impact, confidence, financial_impact,
	       description, affected_skus, specific_issue, action, manufacturing_note,
	       status, orders_affected, returns_count, created_at, updated_at
	FROM insights
	WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanInsight(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInsight(row rowScanner) (*models.Insight, error) {
	var insight models.Insight
	var category, impact, status string
	var skus []byte
	var description, specificIssue, action, manufacturingNote sql.NullString

	err := row.Scan(
		&insight.ID,
		&insight.MerchantID,
		&insight.Title,
		&category,
		&impact,
		&insight.Confidence,
		&insight.FinancialImpact,
		&description,
		&skus,
		&specificIssue,
		&action,
		&manufacturingNote,
		&status,
		&insight.OrdersAffected,
		&insight.ReturnsCount,
		&insight.CreatedAt,
		&insight.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan insight: %w", err)
	}

	insight.Category = models.Category(category)
	insight.Impact = models.Impact(impact)
	insight.Status = models.Status(status)
	insight.Description = description.String
	insight.SpecificIssue = specificIssue.String
	insight.Action = action.String
	insight.ManufacturingNote = manufacturingNote.String

	if len(skus) > 0 {
		if err := json.Unmarshal(skus, &insight.AffectedSKUs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal affected skus for insight %d: %w", insight.ID, err)
		}
	}

	return &insight, nil
}

// GetDashboardMetrics aggregates the headline numbers for the merchant
// dashboard: order and return counts, return rate, potential savings
// from the top open insights and the average order value.
func (s *Store) GetDashboardMetrics(ctx context.Context, merchantID string) (*models.DashboardMetrics, error) {
	m := &models.DashboardMetrics{AvgOrderValue: decimal.Zero}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE merchant_id = ?`, merchantID).Scan(&m.TotalOrders); err != nil {
		return nil, fmt.Errorf("failed to count orders for merchant %s: %w", merchantID, err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refunds WHERE merchant_id = ?`, merchantID).Scan(&m.TotalReturns); err != nil {
		return nil, fmt.Errorf("failed to count refunds for merchant %s: %w", merchantID, err)
	}

	if m.TotalOrders > 0 {
		rate := decimal.NewFromInt(int64(m.TotalReturns)).
			Div(decimal.NewFromInt(int64(m.TotalOrders))).
			Mul(decimal.NewFromInt(100)).
			Round(1)
		m.ReturnRate, _ = rate.Float64()
	}

	// Potential savings: the three largest open findings.
	savingsQuery := `
	SELECT COALESCE(SUM(financial_impact), 0)
	FROM (
		SELECT financial_impact
		FROM insights
		WHERE merchant_id = ? AND status = 'open'
		ORDER BY financial_impact DESC
		LIMIT 3
	) top_insights`
	if err := s.db.QueryRowContext(ctx, savingsQuery, merchantID).Scan(&m.PotentialSavings); err != nil {
		return nil, fmt.Errorf("failed to sum potential savings for merchant %s: %w", merchantID, err)
	}

	var avg sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(total_price) FROM orders WHERE merchant_id = ?`, merchantID).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average order value for merchant %s: %w", merchantID, err)
	}
	if avg.Valid {
		value, err := decimal.NewFromString(avg.String)
		if err != nil {
			return nil, fmt.Errorf("invalid average order value for merchant %s: %w", merchantID, err)
		}
		m.AvgOrderValue = value.Round(0)
	}

	return m, nil
}
