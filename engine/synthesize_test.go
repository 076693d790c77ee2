package engine

import (
	"strings"
	"testing"
	"time"

	"returns-insight-service/models"
)

func TestEstimateFinancialImpact(t *testing.T) {
	testCases := []struct {
		returns int
		want    int64
	}{
		{0, 0},
		{1, 105},
		{9, 945},
		{10, 1050},
	}

	for _, tc := range testCases {
		if got := EstimateFinancialImpact(tc.returns); got != tc.want {
			t.Errorf("EstimateFinancialImpact(%d) = %d, want %d", tc.returns, got, tc.want)
		}
	}
}

func TestSynthesizeHighReturn(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	score := VariantScore{
		Stat: &VariantStat{
			SKU:     "LEG-001",
			Size:    "M",
			Title:   "Peak Legging",
			Orders:  20,
			Returns: 9,
		},
		ReturnRate:     0.45,
		Multiplier:     4.5,
		HighReturn:     true,
		Impact:         models.ImpactCritical,
		Confidence:     lowConfidence,
		TopReason:      TagTooTight,
		TopReasonCount: 6,
		HasTopReason:   true,
	}

	insight, err := SynthesizeHighReturn("merchant-1", score, 0.1, now)
	if err != nil {
		t.Fatalf("SynthesizeHighReturn() error = %v", err)
	}

	wantTitle := "Peak Legging size M: Returning at 45% (4.5x baseline)"
	if insight.Title != wantTitle {
		t.Errorf("title = %q, want %q", insight.Title, wantTitle)
	}
	if insight.Category != models.CategoryFit {
		t.Errorf("category = %s, want fit", insight.Category)
	}
	if insight.Impact != models.ImpactCritical {
		t.Errorf("impact = %s, want critical", insight.Impact)
	}
	if insight.Confidence != 78 {
		t.Errorf("confidence = %d, want 78", insight.Confidence)
	}
	if insight.FinancialImpact != 945 {
		t.Errorf("financial impact = %d, want 945", insight.FinancialImpact)
	}
	if !strings.Contains(insight.SpecificIssue, "Garment running small. 6 of 9 returns") {
		t.Errorf("specific issue = %q, want too_tight wording", insight.SpecificIssue)
	}
	wantAction := "DESIGN ACTION: Review measurements for M. Consider expanding by 0.5-1\" in problem areas (likely thighs/waist). Check if grading is consistent with other sizes."
	if insight.Action != wantAction {
		t.Errorf("action = %q, want %q", insight.Action, wantAction)
	}
	if !strings.Contains(insight.Description, `Primary reason: "too tight"`) {
		t.Errorf("description = %q, want primary reason mention", insight.Description)
	}
	if insight.Status != models.StatusOpen {
		t.Errorf("status = %s, want open", insight.Status)
	}
	if insight.OrdersAffected != 20 || insight.ReturnsCount != 9 {
		t.Errorf("counts = (%d, %d), want (20, 9)", insight.OrdersAffected, insight.ReturnsCount)
	}
}

func TestSynthesizeHighReturnWithoutReason(t *testing.T) {
	score := VariantScore{
		Stat:       &VariantStat{SKU: "LEG-001", Size: "L", Title: "Peak Legging", Orders: 20, Returns: 7},
		ReturnRate: 0.35,
		Multiplier: 3.5,
		HighReturn: true,
		Impact:     models.ImpactCritical,
		Confidence: lowConfidence,
	}

	insight, err := SynthesizeHighReturn("merchant-1", score, 0.1, time.Now())
	if err != nil {
		t.Fatalf("SynthesizeHighReturn() error = %v", err)
	}
	if insight.SpecificIssue != "Return rate significantly elevated for this size" {
		t.Errorf("specific issue = %q, want generic wording", insight.SpecificIssue)
	}
	if !strings.Contains(insight.Description, "Check return reasons for patterns.") {
		t.Errorf("description = %q, want generic reason note", insight.Description)
	}
	if insight.ManufacturingNote != "Requires investigation" {
		t.Errorf("manufacturing note = %q, want %q", insight.ManufacturingNote, "Requires investigation")
	}
}

func TestSynthesizeBenchmark(t *testing.T) {
	score := VariantScore{
		Stat:       &VariantStat{SKU: "LEG-002", Size: "S", Title: "Peak Legging", Orders: 25, Returns: 1},
		ReturnRate: 0.04,
		Multiplier: 0.4,
		Benchmark:  true,
	}

	insight, err := SynthesizeBenchmark("merchant-1", score, 0.1, time.Now())
	if err != nil {
		t.Fatalf("SynthesizeBenchmark() error = %v", err)
	}

	wantTitle := "Peak Legging size S: Excellent fit profile (4.0% return rate)"
	if insight.Title != wantTitle {
		t.Errorf("title = %q, want %q", insight.Title, wantTitle)
	}
	if insight.Category != models.CategorySuccess {
		t.Errorf("category = %s, want success", insight.Category)
	}
	if insight.Impact != models.ImpactPositive {
		t.Errorf("impact = %s, want positive", insight.Impact)
	}
	if insight.Confidence != 88 {
		t.Errorf("confidence = %d, want 88", insight.Confidence)
	}
	if insight.FinancialImpact != 0 {
		t.Errorf("financial impact = %d, want 0", insight.FinancialImpact)
	}
	if insight.SpecificIssue != "No issues, this is the benchmark" {
		t.Errorf("specific issue = %q", insight.SpecificIssue)
	}
}

func TestSynthesizeQualityIssue(t *testing.T) {
	agg := QualityAggregate{
		MatchedRefunds:   6,
		DistinctOrders:   6,
		RecoveryMentions: 4,
	}

	insight, err := SynthesizeQualityIssue("merchant-1", agg, time.Now())
	if err != nil {
		t.Fatalf("SynthesizeQualityIssue() error = %v", err)
	}

	if insight.Category != models.CategoryQuality {
		t.Errorf("category = %s, want quality", insight.Category)
	}
	if insight.Impact != models.ImpactCritical {
		t.Errorf("impact = %s, want critical", insight.Impact)
	}
	if insight.Confidence != 85 {
		t.Errorf("confidence = %d, want 85", insight.Confidence)
	}
	if insight.FinancialImpact != 630 {
		t.Errorf("financial impact = %d, want 630", insight.FinancialImpact)
	}
	if len(insight.AffectedSKUs) != 0 {
		t.Errorf("affected skus = %v, want empty", insight.AffectedSKUs)
	}
	if insight.OrdersAffected != 6 || insight.ReturnsCount != 6 {
		t.Errorf("counts = (%d, %d), want (6, 6)", insight.OrdersAffected, insight.ReturnsCount)
	}
}

func TestSynthesizeQualityIssueRejectsInconsistentCounts(t *testing.T) {
	// More matched refunds than distinct orders would persist a record
	// violating the returns-versus-orders invariant.
	agg := QualityAggregate{
		MatchedRefunds:   10,
		DistinctOrders:   6,
		RecoveryMentions: 4,
	}

	if _, err := SynthesizeQualityIssue("merchant-1", agg, time.Now()); err == nil {
		t.Error("SynthesizeQualityIssue() error = nil, want validation error")
	}
}
