package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the service tables if they don't exist.
func InitSchema(db *sql.DB) error {
	log.Info("initializing returns insight service database schema...")

	merchantsSQL := `
	CREATE TABLE IF NOT EXISTS merchants (
		id VARCHAR(64) NOT NULL,
		shopify_domain VARCHAR(255) NOT NULL,
		access_token VARCHAR(255) NOT NULL,
		shop_name VARCHAR(255) DEFAULT '',
		email VARCHAR(255) DEFAULT '',
		currency VARCHAR(8) DEFAULT '',
		last_sync_at TIMESTAMP NULL DEFAULT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE INDEX idx_merchants_domain (shopify_domain)
	)`

	if _, err := db.Exec(merchantsSQL); err != nil {
		return fmt.Errorf("failed to create merchants table: %w", err)
	}
	log.Info("merchants table created/verified")

	ordersSQL := `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGINT NOT NULL AUTO_INCREMENT,
		merchant_id VARCHAR(64) NOT NULL,
		shopify_order_id VARCHAR(64) NOT NULL,
		order_number INT DEFAULT 0,
		total_price DECIMAL(12,2) DEFAULT 0,
		currency VARCHAR(8) DEFAULT '',
		customer_email VARCHAR(255) DEFAULT '',
		line_items JSON,
		financial_status VARCHAR(32) DEFAULT '',
		fulfillment_status VARCHAR(32) DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE INDEX idx_orders_shopify_id (shopify_order_id),
		INDEX idx_orders_merchant (merchant_id)
	)`

	if _, err := db.Exec(ordersSQL); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}
	log.Info("orders table created/verified")

	refundsSQL := `
	CREATE TABLE IF NOT EXISTS refunds (
		id BIGINT NOT NULL AUTO_INCREMENT,
		merchant_id VARCHAR(64) NOT NULL,
		shopify_order_id VARCHAR(64) NOT NULL,
		shopify_refund_id VARCHAR(64) NOT NULL,
		amount DECIMAL(12,2) DEFAULT 0,
		note TEXT,
		refund_line_items JSON,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE INDEX idx_refunds_shopify_id (shopify_refund_id),
		INDEX idx_refunds_merchant (merchant_id),
		INDEX idx_refunds_order (shopify_order_id)
	)`

	if _, err := db.Exec(refundsSQL); err != nil {
		return fmt.Errorf("failed to create refunds table: %w", err)
	}
	log.Info("refunds table created/verified")

	insightsSQL := `
	CREATE TABLE IF NOT EXISTS insights (
		id BIGINT NOT NULL AUTO_INCREMENT,
		merchant_id VARCHAR(64) NOT NULL,
		title VARCHAR(500) NOT NULL,
		category ENUM('fit', 'quality', 'success') NOT NULL,
		impact ENUM('positive', 'medium', 'high', 'critical') NOT NULL,
		confidence INT NOT NULL DEFAULT 0,
		financial_impact BIGINT NOT NULL DEFAULT 0,
		description TEXT,
		affected_skus JSON,
		specific_issue TEXT,
		action TEXT,
		manufacturing_note TEXT,
		status ENUM('open', 'investigating', 'addressed') NOT NULL DEFAULT 'open',
		orders_affected INT NOT NULL DEFAULT 0,
		returns_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX idx_insights_merchant (merchant_id),
		INDEX idx_insights_status (status)
	)`

	if _, err := db.Exec(insightsSQL); err != nil {
		return fmt.Errorf("failed to create insights table: %w", err)
	}
	log.Info("insights table created/verified")

	log.Info("returns insight service database schema initialization completed")
	return nil
}
