package engine

import "returns-insight-service/models"

// Scoring thresholds. Comparisons are strict: a multiplier of exactly
// 2.0 does not flag a variant, and exactly 20 orders does not qualify a
// benchmark.
const (
	minSampleSize = 10 // below this the variant is skipped entirely

	highReturnMultiplier = 2.0
	highReturnRate       = 0.15
	criticalMultiplier   = 3.0

	highConfidenceOrders = 30
	highConfidence       = 92
	lowConfidence        = 78

	benchmarkMultiplier = 0.5
	benchmarkMinOrders  = 20
	benchmarkMaxRate    = 0.10
	benchmarkConfidence = 88
)

// VariantScore is the outcome of scoring one variant against the
// merchant baseline. HighReturn and Benchmark are evaluated
// independently; their numeric ranges make simultaneous firing
// impossible, so no special-casing is needed or done.
type VariantScore struct {
	Stat       *VariantStat
	ReturnRate float64
	Multiplier float64

	HighReturn bool
	Impact     models.Impact
	Confidence int

	Benchmark bool

	TopReason      ReasonTag
	TopReasonCount int
	HasTopReason   bool
}

// ScoreVariants runs both anomaly rules over every variant with enough
// sample size. Only variants that triggered a rule are returned, in
// stable key order.
func ScoreVariants(stats map[VariantKey]*VariantStat, baseline float64) []VariantScore {
	var scores []VariantScore

	for _, key := range sortedVariantKeys(stats) {
		stat := stats[key]
		if stat.Orders < minSampleSize {
			continue
		}

		rate := float64(stat.Returns) / float64(stat.Orders)
		multiplier := rate / baseline

		score := VariantScore{
			Stat:       stat,
			ReturnRate: rate,
			Multiplier: multiplier,
		}

		if multiplier > highReturnMultiplier && rate > highReturnRate {
			score.HighReturn = true
			score.Impact = models.ImpactHigh
			if multiplier > criticalMultiplier {
				score.Impact = models.ImpactCritical
			}
			score.Confidence = lowConfidence
			if stat.Orders > highConfidenceOrders {
				score.Confidence = highConfidence
			}
			score.TopReason, score.TopReasonCount, score.HasTopReason = TopReason(TallyReasons(stat.ReturnReasons))
		}

		if multiplier < benchmarkMultiplier && stat.Orders > benchmarkMinOrders && rate < benchmarkMaxRate {
			score.Benchmark = true
		}

		if score.HighReturn || score.Benchmark {
			scores = append(scores, score)
		}
	}

	return scores
}
