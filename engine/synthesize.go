package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"returns-insight-service/models"
)

// Financial impact assumptions: a fixed average order value of 150
// currency units and a 70% loss per return. A deliberate simplification,
// not a per-merchant calibration.
var (
	assumedOrderValue = decimal.NewFromInt(150)
	lossPerReturn     = decimal.NewFromFloat(0.7)
)

// EstimateFinancialImpact computes round(returns * 150 * 0.7).
func EstimateFinancialImpact(returns int) int64 {
	return decimal.NewFromInt(int64(returns)).
		Mul(assumedOrderValue).
		Mul(lossPerReturn).
		Round(0).
		IntPart()
}

// SynthesizeHighReturn builds the fit insight for a variant flagged by
// the high-return rule.
func SynthesizeHighReturn(merchantID string, score VariantScore, baseline float64, now time.Time) (models.Insight, error) {
	stat := score.Stat

	reasonNote := "Check return reasons for patterns."
	specificIssue := "Return rate significantly elevated for this size"
	action := fmt.Sprintf("Review fit and measurements for size %s. Analyze customer feedback for specific issues.", stat.Size)
	manufacturingNote := "Requires investigation"

	if score.HasTopReason {
		reasonNote = fmt.Sprintf("Primary reason: %q", strings.ReplaceAll(string(score.TopReason), "_", " "))

		switch score.TopReason {
		case TagTooTight:
			specificIssue = fmt.Sprintf("Garment running small. %d of %d returns cite \"too tight\" or \"too small\"",
				score.TopReasonCount, stat.Returns)
			action = fmt.Sprintf("DESIGN ACTION: Review measurements for %s. Consider expanding by 0.5-1\" in problem areas (likely thighs/waist). Check if grading is consistent with other sizes.", stat.Size)
			manufacturingNote = "Compare pattern specs to successful sizes. May need adjustment in next production run."
		case TagTooLoose:
			specificIssue = fmt.Sprintf("Garment running large. %d of %d returns cite \"too loose\" or \"too big\"",
				score.TopReasonCount, stat.Returns)
			action = fmt.Sprintf("DESIGN ACTION: Review measurements for %s. Consider reducing by 0.5-1\" in problem areas. Check if fabric has excessive stretch.", stat.Size)
			manufacturingNote = "Verify fabric specs and pattern accuracy with manufacturer."
		}
	}

	insight := models.Insight{
		MerchantID: merchantID,
		Title: fmt.Sprintf("%s size %s: Returning at %.0f%% (%.1fx baseline)",
			stat.Title, stat.Size, score.ReturnRate*100, score.Multiplier),
		Category:   models.CategoryFit,
		Impact:     score.Impact,
		Confidence: score.Confidence,
		Description: fmt.Sprintf("Size %s is returning at %.0f%% vs your %.0f%% baseline (%.1fx). %d of %d orders returned. %s",
			stat.Size, score.ReturnRate*100, baseline*100, score.Multiplier, stat.Returns, stat.Orders, reasonNote),
		FinancialImpact:   EstimateFinancialImpact(stat.Returns),
		AffectedSKUs:      []string{stat.SKU},
		SpecificIssue:     specificIssue,
		Action:            action,
		ManufacturingNote: manufacturingNote,
		Status:            models.StatusOpen,
		OrdersAffected:    stat.Orders,
		ReturnsCount:      stat.Returns,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := insight.Validate(); err != nil {
		return models.Insight{}, fmt.Errorf("high-return insight for %s/%s: %w", stat.SKU, stat.Size, err)
	}
	return insight, nil
}

// SynthesizeBenchmark builds the success insight for a variant flagged
// by the benchmark rule.
func SynthesizeBenchmark(merchantID string, score VariantScore, baseline float64, now time.Time) (models.Insight, error) {
	stat := score.Stat

	insight := models.Insight{
		MerchantID: merchantID,
		Title: fmt.Sprintf("%s size %s: Excellent fit profile (%.1f%% return rate)",
			stat.Title, stat.Size, score.ReturnRate*100),
		Category:   models.CategorySuccess,
		Impact:     models.ImpactPositive,
		Confidence: benchmarkConfidence,
		Description: fmt.Sprintf("Size %s has only %.1f%% return rate vs %.0f%% baseline. This is your benchmark fit. %d orders with just %d returns.",
			stat.Size, score.ReturnRate*100, baseline*100, stat.Orders, stat.Returns),
		FinancialImpact:   0,
		AffectedSKUs:      []string{stat.SKU},
		SpecificIssue:     "No issues, this is the benchmark",
		Action:            fmt.Sprintf("MERCHANDISING ACTION: Prioritize inventory for size %s. DESIGN ACTION: Use this size's fit specs as template for other products.", stat.Size),
		ManufacturingNote: "Document exact pattern specs as reference library",
		Status:            models.StatusOpen,
		OrdersAffected:    stat.Orders,
		ReturnsCount:      stat.Returns,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := insight.Validate(); err != nil {
		return models.Insight{}, fmt.Errorf("benchmark insight for %s/%s: %w", stat.SKU, stat.Size, err)
	}
	return insight, nil
}

// SynthesizeQualityIssue builds the single merchant-wide quality insight.
// The affected-SKU list stays empty: the complaint cluster spans
// products.
func SynthesizeQualityIssue(merchantID string, agg QualityAggregate, now time.Time) (models.Insight, error) {
	insight := models.Insight{
		MerchantID: merchantID,
		Title:      "Multiple products showing fabric recovery issues",
		Category:   models.CategoryQuality,
		Impact:     models.ImpactCritical,
		Confidence: qualityConfidence,
		Description: fmt.Sprintf("%d returns cite fabric issues like \"stretched out\", \"lost shape\", or \"baggy after wear\". This suggests fabric quality or elastane recovery problems.",
			agg.MatchedRefunds),
		FinancialImpact:   EstimateFinancialImpact(agg.MatchedRefunds),
		AffectedSKUs:      []string{},
		SpecificIssue:     "Fabric elastane recovery rate failing. Likely <85% recovery vs 92%+ standard",
		Action:            "SOURCING ACTION: Test fabric recovery rate. Contact mill about elastane percentage and quality. Request fabric testing reports.",
		ManufacturingNote: "Compare current fabric lot to previous successful batches",
		Status:            models.StatusOpen,
		OrdersAffected:    agg.DistinctOrders,
		ReturnsCount:      agg.MatchedRefunds,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := insight.Validate(); err != nil {
		return models.Insight{}, fmt.Errorf("quality insight: %w", err)
	}
	return insight, nil
}
