package engine

import (
	"testing"

	"returns-insight-service/models"
)

func TestBaselineReturnRate(t *testing.T) {
	orders := make([]models.Order, 100)
	refunds := make([]models.Refund, 10)

	rate, ok := BaselineReturnRate(orders, refunds)
	if !ok {
		t.Fatal("BaselineReturnRate() ok = false, want true")
	}
	if rate != 0.1 {
		t.Errorf("BaselineReturnRate() = %v, want 0.1", rate)
	}

	if _, ok := BaselineReturnRate(nil, refunds); ok {
		t.Error("BaselineReturnRate() with no orders ok = true, want false")
	}
}

func singleStat(orders, returns int, reasons ...string) map[VariantKey]*VariantStat {
	return map[VariantKey]*VariantStat{
		{ID: "SKU-1", Size: "M"}: {
			SKU:           "SKU-1",
			Size:          "M",
			Title:         "Peak Legging",
			Orders:        orders,
			Returns:       returns,
			ReturnReasons: reasons,
		},
	}
}

func TestScoreVariantsHighReturn(t *testing.T) {
	baseline := 0.1

	testCases := []struct {
		name    string
		orders  int
		returns int

		wantFlagged    bool
		wantImpact     models.Impact
		wantConfidence int
	}{
		{
			name:    "below minimum sample size is skipped",
			orders:  9,
			returns: 9,

			wantFlagged: false,
		},
		{
			name:    "multiplier exactly 2x does not flag",
			orders:  10,
			returns: 2, // rate 0.20, multiplier 2.0

			wantFlagged: false,
		},
		{
			name:    "high return with low confidence",
			orders:  20,
			returns: 9, // rate 0.45, multiplier 4.5

			wantFlagged:    true,
			wantImpact:     models.ImpactCritical,
			wantConfidence: lowConfidence,
		},
		{
			name:    "high impact without critical multiplier",
			orders:  40,
			returns: 10, // rate 0.25, multiplier 2.5

			wantFlagged:    true,
			wantImpact:     models.ImpactHigh,
			wantConfidence: highConfidence,
		},
		{
			name:    "exactly 30 orders keeps low confidence",
			orders:  30,
			returns: 10, // rate 0.333, multiplier 3.33

			wantFlagged:    true,
			wantImpact:     models.ImpactCritical,
			wantConfidence: lowConfidence,
		},
	}

	for _, tc := range testCases {
		scores := ScoreVariants(singleStat(tc.orders, tc.returns), baseline)

		if !tc.wantFlagged {
			if len(scores) != 0 {
				t.Errorf("%s: ScoreVariants() flagged %d variants, want 0", tc.name, len(scores))
			}
			continue
		}

		if len(scores) != 1 || !scores[0].HighReturn {
			t.Errorf("%s: ScoreVariants() did not flag the variant as high return", tc.name)
			continue
		}
		if scores[0].Impact != tc.wantImpact {
			t.Errorf("%s: impact = %s, want %s", tc.name, scores[0].Impact, tc.wantImpact)
		}
		if scores[0].Confidence != tc.wantConfidence {
			t.Errorf("%s: confidence = %d, want %d", tc.name, scores[0].Confidence, tc.wantConfidence)
		}
	}
}

func TestScoreVariantsHighReturnRateThreshold(t *testing.T) {
	// Multiplier above 2x but rate not above 0.15: 3 of 20 orders
	// returned against a 0.05 baseline is a 3x multiplier at 15%.
	scores := ScoreVariants(singleStat(20, 3), 0.05)
	if len(scores) != 0 {
		t.Errorf("ScoreVariants() flagged rate of exactly 0.15, want no flag")
	}
}

func TestScoreVariantsBenchmark(t *testing.T) {
	baseline := 0.1

	testCases := []struct {
		name    string
		orders  int
		returns int
		want    bool
	}{
		{
			name:    "benchmark fit",
			orders:  25,
			returns: 1, // rate 0.04, multiplier 0.4
			want:    true,
		},
		{
			name:    "exactly 20 orders does not qualify",
			orders:  20,
			returns: 0,
			want:    false,
		},
		{
			name:    "multiplier exactly 0.5 does not qualify",
			orders:  40,
			returns: 2, // rate 0.05, multiplier 0.5
			want:    false,
		},
		{
			name:    "zero returns on large sample",
			orders:  50,
			returns: 0,
			want:    true,
		},
	}

	for _, tc := range testCases {
		scores := ScoreVariants(singleStat(tc.orders, tc.returns), baseline)

		got := len(scores) == 1 && scores[0].Benchmark
		if got != tc.want {
			t.Errorf("%s: benchmark = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreVariantsTopReason(t *testing.T) {
	stats := singleStat(20, 9,
		"too tight", "too tight", "too small", "runs small", "too tight", "so tight",
		"changed my mind", "arrived late", "wrong color",
	)

	scores := ScoreVariants(stats, 0.1)
	if len(scores) != 1 || !scores[0].HighReturn {
		t.Fatal("ScoreVariants() did not flag the variant")
	}
	if !scores[0].HasTopReason {
		t.Fatal("ScoreVariants() found no top reason, want too_tight")
	}
	if scores[0].TopReason != TagTooTight || scores[0].TopReasonCount != 6 {
		t.Errorf("top reason = (%s, %d), want (too_tight, 6)", scores[0].TopReason, scores[0].TopReasonCount)
	}
}

func TestScoreVariantsStableOrder(t *testing.T) {
	stats := map[VariantKey]*VariantStat{
		{ID: "SKU-2", Size: "M"}: {SKU: "SKU-2", Size: "M", Orders: 25, Returns: 0},
		{ID: "SKU-1", Size: "M"}: {SKU: "SKU-1", Size: "M", Orders: 25, Returns: 0},
	}

	scores := ScoreVariants(stats, 0.1)
	if len(scores) != 2 {
		t.Fatalf("ScoreVariants() flagged %d variants, want 2", len(scores))
	}
	if scores[0].Stat.SKU != "SKU-1" || scores[1].Stat.SKU != "SKU-2" {
		t.Errorf("ScoreVariants() order = [%s, %s], want [SKU-1, SKU-2]", scores[0].Stat.SKU, scores[1].Stat.SKU)
	}
}
