package sync

import (
	"testing"

	"returns-insight-service/shopify"
)

func TestConvertOrder(t *testing.T) {
	order := shopify.Order{
		ID:                450789469,
		OrderNumber:       1001,
		TotalPrice:        "149.95",
		Currency:          "USD",
		Email:             "buyer@example.com",
		CreatedAt:         "2026-01-15T10:30:00-05:00",
		FinancialStatus:   "paid",
		FulfillmentStatus: "fulfilled",
		LineItems: []shopify.LineItem{
			{ID: 1, SKU: "LEG-001", VariantID: 42, VariantTitle: "M", Title: "Peak Legging"},
		},
	}

	record, err := convertOrder("m1", order)
	if err != nil {
		t.Fatalf("convertOrder() error = %v", err)
	}

	if record.ShopifyOrderID != "450789469" {
		t.Errorf("shopify order id = %q, want 450789469", record.ShopifyOrderID)
	}
	if record.TotalPrice.String() != "149.95" {
		t.Errorf("total price = %s, want 149.95", record.TotalPrice)
	}
	if record.CustomerEmail != "buyer@example.com" || record.OrderNumber != 1001 {
		t.Errorf("order = %+v", record)
	}
	if len(record.LineItems) != 1 || record.LineItems[0].SKU != "LEG-001" {
		t.Errorf("line items = %+v, want single LEG-001 item", record.LineItems)
	}
	if record.CreatedAt.UTC().Hour() != 15 {
		t.Errorf("created at = %v, want timezone-normalized parse", record.CreatedAt)
	}
}

func TestConvertOrderRejectsBadPayloads(t *testing.T) {
	testCases := []struct {
		name  string
		order shopify.Order
	}{
		{
			name:  "unparseable total price",
			order: shopify.Order{TotalPrice: "free", CreatedAt: "2026-01-15T10:30:00Z"},
		},
		{
			name:  "unparseable created_at",
			order: shopify.Order{TotalPrice: "10.00", CreatedAt: "yesterday"},
		},
	}

	for _, tc := range testCases {
		if _, err := convertOrder("m1", tc.order); err == nil {
			t.Errorf("%s: convertOrder() error = nil, want parse failure", tc.name)
		}
	}
}

func TestConvertRefund(t *testing.T) {
	lineItem := &shopify.LineItem{ID: 1, SKU: "LEG-001", VariantID: 42, VariantTitle: "M", Title: "Peak Legging"}
	refund := shopify.Refund{
		ID:        889771,
		Note:      "Too tight",
		CreatedAt: "2026-02-01T09:00:00Z",
		RefundLineItems: []shopify.RefundLineItem{
			{ID: 5, LineItem: lineItem},
			{ID: 6, LineItem: nil},
		},
		Transactions: []shopify.Transaction{{Amount: "49.95"}},
	}

	record, err := convertRefund("m1", 450789469, refund)
	if err != nil {
		t.Fatalf("convertRefund() error = %v", err)
	}

	if record.ShopifyOrderID != "450789469" || record.ShopifyRefundID != "889771" {
		t.Errorf("ids = (%s, %s)", record.ShopifyOrderID, record.ShopifyRefundID)
	}
	if record.Amount.String() != "49.95" {
		t.Errorf("amount = %s, want 49.95", record.Amount)
	}
	if record.Note != "Too tight" {
		t.Errorf("note = %q", record.Note)
	}
	if len(record.RefundLineItems) != 2 {
		t.Fatalf("refund line items = %d, want 2", len(record.RefundLineItems))
	}
	if record.RefundLineItems[0].LineItem == nil || record.RefundLineItems[0].LineItem.SKU != "LEG-001" {
		t.Errorf("first refund line item = %+v, want attributed LEG-001", record.RefundLineItems[0])
	}
	if record.RefundLineItems[1].LineItem != nil {
		t.Errorf("second refund line item = %+v, want unattributed entry preserved", record.RefundLineItems[1])
	}
}

func TestConvertRefundWithoutTransactions(t *testing.T) {
	refund := shopify.Refund{
		ID:        889772,
		CreatedAt: "2026-02-01T09:00:00Z",
	}

	record, err := convertRefund("m1", 450789469, refund)
	if err != nil {
		t.Fatalf("convertRefund() error = %v", err)
	}
	if !record.Amount.IsZero() {
		t.Errorf("amount = %s, want 0 for a restock refund", record.Amount)
	}
}
