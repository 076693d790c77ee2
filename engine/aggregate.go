package engine

import (
	"sort"
	"strconv"
	"strings"

	"returns-insight-service/models"
)

// VariantKey identifies a specific SKU/size combination within one
// aggregation pass. It is derived, never stored, and unique only within
// a single run.
type VariantKey struct {
	ID   string // sku, or stringified variant id when the sku is empty
	Size string // variant title, or "Unknown" when absent
}

// variantKeyFor derives the grouping key for a line item. A line item
// lacking both sku and variant id collapses to ID "undefined", a known
// coarsening inherited from the upstream data: those items group
// together per size rather than per product.
func variantKeyFor(item models.LineItem) VariantKey {
	id := item.SKU
	if id == "" {
		if item.VariantID != 0 {
			id = strconv.FormatInt(item.VariantID, 10)
		} else {
			id = "undefined"
		}
	}

	size := item.VariantTitle
	if size == "" {
		size = "Unknown"
	}

	return VariantKey{ID: id, Size: size}
}

// VariantStat accumulates per-variant order and return counts. Built
// fresh on every engine run.
type VariantStat struct {
	SKU           string
	Size          string
	Title         string
	Orders        int
	Returns       int
	ReturnReasons []string // lowercased refund notes
}

// AggregateVariants joins the merchant's order set and refund set into
// per-variant statistics.
//
// Order line items create and increment keys. Refund line items are
// attributed through their embedded originating line item; an entry
// without one is skipped, as is any refund for a key never seen in the
// order set. Returns are never retroactively turned into new keys.
func AggregateVariants(orders []models.Order, refunds []models.Refund) map[VariantKey]*VariantStat {
	stats := make(map[VariantKey]*VariantStat)

	for _, order := range orders {
		for _, item := range order.LineItems {
			key := variantKeyFor(item)
			stat, ok := stats[key]
			if !ok {
				stat = &VariantStat{
					SKU:   key.ID,
					Size:  key.Size,
					Title: item.Title,
				}
				stats[key] = stat
			}
			stat.Orders++
		}
	}

	for _, refund := range refunds {
		for _, rli := range refund.RefundLineItems {
			if rli.LineItem == nil {
				// The return cannot be attributed to a variant.
				continue
			}

			key := variantKeyFor(*rli.LineItem)
			stat, ok := stats[key]
			if !ok {
				continue
			}

			stat.Returns++
			if refund.Note != "" {
				stat.ReturnReasons = append(stat.ReturnReasons, strings.ToLower(refund.Note))
			}
		}
	}

	return stats
}

// sortedVariantKeys returns the stat keys in a stable order so that
// repeated runs over identical input produce identical insight lists.
func sortedVariantKeys(stats map[VariantKey]*VariantStat) []VariantKey {
	keys := make([]VariantKey, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].ID != keys[b].ID {
			return keys[a].ID < keys[b].ID
		}
		return keys[a].Size < keys[b].Size
	})
	return keys
}
