package engine

import "returns-insight-service/models"

// Quality detector thresholds. Both comparisons are strict: complaints
// across exactly 5 orders, or exactly 3 fabric-recovery mentions, do not
// fire.
const (
	qualityMinDistinctOrders   = 5
	qualityMinRecoveryMentions = 3
	qualityConfidence          = 85
)

// QualityAggregate summarizes a merchant-wide cluster of fabric/quality
// complaints. It deliberately does not attribute to specific SKUs: the
// signal is about a fabric lot, not a variant.
type QualityAggregate struct {
	MatchedRefunds   int // refunds whose note hit a quality keyword
	DistinctOrders   int // distinct originating orders among them
	RecoveryMentions int // matched notes hitting the fabric-recovery subset
}

// DetectQualityIssues scans the merchant's refund set for clustered
// fabric/quality complaints, independent of per-variant scoring. ok is
// true only when the cluster is large enough to be worth surfacing.
func DetectQualityIssues(refunds []models.Refund) (QualityAggregate, bool) {
	byOrder := make(map[string]int)
	var agg QualityAggregate

	for _, refund := range refunds {
		if refund.Note == "" || !IsQualityComplaint(refund.Note) {
			continue
		}
		byOrder[refund.ShopifyOrderID]++
		agg.MatchedRefunds++
		if MentionsFabricRecovery(refund.Note) {
			agg.RecoveryMentions++
		}
	}

	agg.DistinctOrders = len(byOrder)

	if agg.DistinctOrders <= qualityMinDistinctOrders {
		return agg, false
	}
	if agg.RecoveryMentions <= qualityMinRecoveryMentions {
		return agg, false
	}
	return agg, true
}
