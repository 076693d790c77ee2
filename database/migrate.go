package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// columnExists checks if a column exists in a table
func columnExists(db *sql.DB, tableName, columnName string) (bool, error) {
	query := `
	SELECT COUNT(*)
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE()
	AND TABLE_NAME = ?
	AND COLUMN_NAME = ?`

	var count int
	err := db.QueryRow(query, tableName, columnName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if column exists: %w", err)
	}

	return count > 0, nil
}

// indexExists checks if an index exists in a table
func indexExists(db *sql.DB, tableName, indexName string) (bool, error) {
	query := `
	SELECT COUNT(*)
	FROM INFORMATION_SCHEMA.STATISTICS
	WHERE TABLE_SCHEMA = DATABASE()
	AND TABLE_NAME = ?
	AND INDEX_NAME = ?`

	var count int
	err := db.QueryRow(query, tableName, indexName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if index exists: %w", err)
	}

	return count > 0, nil
}

// Migrate brings pre-existing deployments up to the current schema.
func Migrate(db *sql.DB) error {
	// manufacturing_note arrived after the first insights deployments
	exists, err := columnExists(db, "insights", "manufacturing_note")
	if err != nil {
		return fmt.Errorf("failed to check if manufacturing_note column exists: %w", err)
	}

	if !exists {
		log.Info("adding manufacturing_note column to insights table...")
		if _, err := db.Exec("ALTER TABLE insights ADD COLUMN manufacturing_note TEXT"); err != nil {
			return fmt.Errorf("failed to add manufacturing_note column: %w", err)
		}
		log.Info("successfully added manufacturing_note column to insights table")
	} else {
		log.Info("manufacturing_note column already exists in insights table, skipping migration")
	}

	// status index speeds up the dashboard's status filter
	exists, err = indexExists(db, "insights", "idx_insights_status")
	if err != nil {
		return fmt.Errorf("failed to check if idx_insights_status index exists: %w", err)
	}

	if !exists {
		log.Info("adding idx_insights_status index to insights table...")
		if _, err := db.Exec("ALTER TABLE insights ADD INDEX idx_insights_status (status)"); err != nil {
			return fmt.Errorf("failed to add idx_insights_status index: %w", err)
		}
		log.Info("successfully added idx_insights_status index to insights table")
	} else {
		log.Info("idx_insights_status index already exists in insights table, skipping migration")
	}

	// last_sync_at arrived with the sync service
	exists, err = columnExists(db, "merchants", "last_sync_at")
	if err != nil {
		return fmt.Errorf("failed to check if last_sync_at column exists: %w", err)
	}

	if !exists {
		log.Info("adding last_sync_at column to merchants table...")
		if _, err := db.Exec("ALTER TABLE merchants ADD COLUMN last_sync_at TIMESTAMP NULL DEFAULT NULL"); err != nil {
			return fmt.Errorf("failed to add last_sync_at column: %w", err)
		}
		log.Info("successfully added last_sync_at column to merchants table")
	} else {
		log.Info("last_sync_at column already exists in merchants table, skipping migration")
	}

	return nil
}
