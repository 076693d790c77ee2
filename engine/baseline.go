package engine

import "returns-insight-service/models"

// BaselineReturnRate computes the merchant-wide refund-to-order ratio
// used as the anomaly comparison point. The numerator counts refund
// events, not distinct refunded orders: an order refunded twice counts
// twice.
//
// ok is false when there are no orders; the caller produces nothing for
// that pass rather than dividing by zero. An empty merchant is an empty
// result, not an error.
func BaselineReturnRate(orders []models.Order, refunds []models.Refund) (rate float64, ok bool) {
	if len(orders) == 0 {
		return 0, false
	}
	return float64(len(refunds)) / float64(len(orders)), true
}
