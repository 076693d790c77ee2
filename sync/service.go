package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/shopspring/decimal"

	"returns-insight-service/database"
	"returns-insight-service/metrics"
	"returns-insight-service/models"
	"returns-insight-service/shopify"
)

// Service pulls orders and their embedded refunds from the commerce
// platform into the local store, scoped to a bounded recent window.
type Service struct {
	store      *database.Store
	client     *shopify.Client
	windowDays int
}

// NewService creates a sync service.
func NewService(store *database.Store, client *shopify.Client, windowDays int) *Service {
	return &Service{
		store:      store,
		client:     client,
		windowDays: windowDays,
	}
}

// SyncMerchant fetches the merchant's recent orders and refunds and
// upserts them. It returns the number of orders synced.
func (s *Service) SyncMerchant(ctx context.Context, merchant *models.Merchant) (int, error) {
	since := time.Now().AddDate(0, 0, -s.windowDays)

	orders, err := s.client.FetchOrders(ctx, merchant.ShopifyDomain, merchant.AccessToken, since)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to fetch orders for shop %s: %w", merchant.ShopifyDomain, err)
	}

	log.Infof("fetched %d orders for shop %s", len(orders), merchant.ShopifyDomain)

	for _, order := range orders {
		record, err := convertOrder(merchant.ID, order)
		if err != nil {
			log.WithError(err).Errorf("skipping order %d for shop %s", order.ID, merchant.ShopifyDomain)
			continue
		}
		if err := s.store.UpsertOrder(ctx, record); err != nil {
			metrics.SyncRunsTotal.WithLabelValues("error").Inc()
			return 0, err
		}
		metrics.OrdersSyncedTotal.Inc()

		for _, refund := range order.Refunds {
			refundRecord, err := convertRefund(merchant.ID, order.ID, refund)
			if err != nil {
				log.WithError(err).Errorf("skipping refund %d for shop %s", refund.ID, merchant.ShopifyDomain)
				continue
			}
			if err := s.store.UpsertRefund(ctx, refundRecord); err != nil {
				metrics.SyncRunsTotal.WithLabelValues("error").Inc()
				return 0, err
			}
		}
	}

	if err := s.store.UpdateLastSync(ctx, merchant.ID, time.Now()); err != nil {
		return len(orders), err
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	return len(orders), nil
}

func convertOrder(merchantID string, order shopify.Order) (*models.Order, error) {
	totalPrice, err := decimal.NewFromString(order.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid total price %q: %w", order.TotalPrice, err)
	}

	createdAt, err := time.Parse(time.RFC3339, order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", order.CreatedAt, err)
	}

	lineItems := make([]models.LineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		lineItems = append(lineItems, models.LineItem{
			ID:           item.ID,
			SKU:          item.SKU,
			VariantID:    item.VariantID,
			VariantTitle: item.VariantTitle,
			Title:        item.Title,
		})
	}

	return &models.Order{
		MerchantID:        merchantID,
		ShopifyOrderID:    strconv.FormatInt(order.ID, 10),
		OrderNumber:       order.OrderNumber,
		TotalPrice:        totalPrice,
		Currency:          order.Currency,
		CustomerEmail:     order.Email,
		LineItems:         lineItems,
		FinancialStatus:   order.FinancialStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		CreatedAt:         createdAt,
	}, nil
}

func convertRefund(merchantID string, orderID int64, refund shopify.Refund) (*models.Refund, error) {
	createdAt, err := time.Parse(time.RFC3339, refund.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", refund.CreatedAt, err)
	}

	// The refunded amount lives on the first transaction; a refund
	// without transactions is a zero-amount restock.
	amount := decimal.Zero
	if len(refund.Transactions) > 0 {
		amount, err = decimal.NewFromString(refund.Transactions[0].Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid refund amount %q: %w", refund.Transactions[0].Amount, err)
		}
	}

	refundLineItems := make([]models.RefundLineItem, 0, len(refund.RefundLineItems))
	for _, rli := range refund.RefundLineItems {
		record := models.RefundLineItem{ID: rli.ID}
		if rli.LineItem != nil {
			record.LineItem = &models.LineItem{
				ID:           rli.LineItem.ID,
				SKU:          rli.LineItem.SKU,
				VariantID:    rli.LineItem.VariantID,
				VariantTitle: rli.LineItem.VariantTitle,
				Title:        rli.LineItem.Title,
			}
		}
		refundLineItems = append(refundLineItems, record)
	}

	return &models.Refund{
		MerchantID:      merchantID,
		ShopifyOrderID:  strconv.FormatInt(orderID, 10),
		ShopifyRefundID: strconv.FormatInt(refund.ID, 10),
		Amount:          amount,
		Note:            refund.Note,
		RefundLineItems: refundLineItems,
		CreatedAt:       createdAt,
	}, nil
}
