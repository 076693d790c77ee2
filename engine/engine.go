package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"

	"returns-insight-service/metrics"
	"returns-insight-service/models"
)

// Store is the data access the engine needs. The caller owns the
// lifecycle; tests inject an in-memory fake.
type Store interface {
	FetchOrders(ctx context.Context, merchantID string) ([]models.Order, error)
	FetchRefunds(ctx context.Context, merchantID string) ([]models.Refund, error)
	// DeleteInsights is idempotent; deleting with none present is not an error.
	DeleteInsights(ctx context.Context, merchantID string) error
	InsertInsights(ctx context.Context, insights []models.Insight) error
}

// Publisher emits an event after a merchant's insight set has been
// regenerated. A nil Publisher on the engine disables publishing.
type Publisher interface {
	PublishInsightsGenerated(merchantID string, count int) error
}

// Broadcaster pushes regenerated insights to connected dashboard
// clients. A nil Broadcaster disables pushing.
type Broadcaster interface {
	BroadcastInsights(broadcast models.InsightBroadcast)
}

// DetectorResult is the explicit outcome of one detector pass:
// insights, empty, or error. The orchestrator aggregates these instead
// of relying on side-channel logging.
type DetectorResult struct {
	Detector string
	Insights []models.Insight
	Err      error
}

// Empty reports whether the pass ran cleanly but found nothing.
func (r DetectorResult) Empty() bool {
	return r.Err == nil && len(r.Insights) == 0
}

// RunReport summarizes one merchant's regeneration pass.
type RunReport struct {
	MerchantID string
	Results    []DetectorResult
	Inserted   int
}

// Failed returns the errors of the detectors that failed, if any.
func (r RunReport) Failed() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Detector, res.Err))
		}
	}
	return errs
}

// Engine sequences the insight generation pass per merchant and
// replaces the merchant's prior insight set with the newly computed one.
type Engine struct {
	store       Store
	publisher   Publisher
	broadcaster Broadcaster

	now func() time.Time
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher attaches an event publisher for insights.generated
// events.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithBroadcaster attaches a dashboard broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.broadcaster = b }
}

// withClock overrides the timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an insight engine backed by the given store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateForMerchant runs one full pass for the merchant: delete the
// prior insight set, run the fit and quality detectors, insert the
// combined list when non-empty. It returns the newly computed (and
// persisted) insights. Detector failures are carried in the returned
// RunReport; only store failures that prevent the replacement abort the
// pass.
func (e *Engine) GenerateForMerchant(ctx context.Context, merchantID string) ([]models.Insight, RunReport, error) {
	started := e.now()
	report := RunReport{MerchantID: merchantID}

	log.Infof("generating insights for merchant %s", merchantID)

	if err := e.store.DeleteInsights(ctx, merchantID); err != nil {
		metrics.EngineRunsTotal.WithLabelValues("error").Inc()
		return nil, report, fmt.Errorf("failed to clear insights for merchant %s: %w", merchantID, err)
	}

	orders, ordersErr := e.store.FetchOrders(ctx, merchantID)
	refunds, refundsErr := e.store.FetchRefunds(ctx, merchantID)

	fit := e.runFitPass(merchantID, orders, refunds, ordersErr, refundsErr)
	quality := e.runQualityPass(merchantID, refunds, refundsErr)
	report.Results = []DetectorResult{fit, quality}

	var insights []models.Insight
	insights = append(insights, fit.Insights...)
	insights = append(insights, quality.Insights...)

	if len(insights) > 0 {
		if err := e.store.InsertInsights(ctx, insights); err != nil {
			metrics.EngineRunsTotal.WithLabelValues("error").Inc()
			return nil, report, fmt.Errorf("failed to insert %d insights for merchant %s: %w", len(insights), merchantID, err)
		}
		report.Inserted = len(insights)
	}

	for _, insight := range insights {
		metrics.InsightsGeneratedTotal.WithLabelValues(string(insight.Category)).Inc()
	}
	metrics.EngineRunsTotal.WithLabelValues("success").Inc()
	metrics.EngineRunDuration.Observe(e.now().Sub(started).Seconds())

	e.notify(merchantID, insights)

	log.Infof("generated %d insights for merchant %s", len(insights), merchantID)
	return insights, report, nil
}

// GenerateForAll runs the engine sequentially over the given merchants,
// in the supplied order. A single merchant's failure is logged and never
// blocks subsequent merchants.
func (e *Engine) GenerateForAll(ctx context.Context, merchantIDs []string) {
	for _, merchantID := range merchantIDs {
		_, report, err := e.GenerateForMerchant(ctx, merchantID)
		if err != nil {
			log.WithError(err).Errorf("insight generation failed for merchant %s", merchantID)
			continue
		}
		for _, derr := range report.Failed() {
			log.WithError(derr).Errorf("detector failed for merchant %s", merchantID)
		}
	}
}

// runFitPass aggregates variants and scores them against the baseline.
func (e *Engine) runFitPass(merchantID string, orders []models.Order, refunds []models.Refund, ordersErr, refundsErr error) DetectorResult {
	result := DetectorResult{Detector: "fit"}

	if ordersErr != nil {
		result.Err = fmt.Errorf("orders unavailable: %w", ordersErr)
		return result
	}
	if refundsErr != nil {
		result.Err = fmt.Errorf("refunds unavailable: %w", refundsErr)
		return result
	}

	baseline, ok := BaselineReturnRate(orders, refunds)
	if !ok {
		// No orders, no baseline: produce nothing for this slice.
		return result
	}

	stats := AggregateVariants(orders, refunds)
	now := e.now()

	for _, score := range ScoreVariants(stats, baseline) {
		if score.HighReturn {
			insight, err := SynthesizeHighReturn(merchantID, score, baseline, now)
			if err != nil {
				result.Err = err
				return result
			}
			result.Insights = append(result.Insights, insight)
		}
		if score.Benchmark {
			insight, err := SynthesizeBenchmark(merchantID, score, baseline, now)
			if err != nil {
				result.Err = err
				return result
			}
			result.Insights = append(result.Insights, insight)
		}
	}

	return result
}

// runQualityPass scans the refund set for clustered fabric complaints.
func (e *Engine) runQualityPass(merchantID string, refunds []models.Refund, refundsErr error) DetectorResult {
	result := DetectorResult{Detector: "quality"}

	if refundsErr != nil {
		result.Err = fmt.Errorf("refunds unavailable: %w", refundsErr)
		return result
	}

	agg, ok := DetectQualityIssues(refunds)
	if !ok {
		return result
	}

	insight, err := SynthesizeQualityIssue(merchantID, agg, e.now())
	if err != nil {
		result.Err = err
		return result
	}
	result.Insights = append(result.Insights, insight)
	return result
}

// notify pushes the regenerated set to the optional collaborators.
// Delivery failures are logged, never propagated: notification is
// best-effort and must not fail the pass.
func (e *Engine) notify(merchantID string, insights []models.Insight) {
	broadcast := models.InsightBroadcast{
		MerchantID: merchantID,
		Insights:   insights,
		Timestamp:  e.now(),
	}

	if e.publisher != nil {
		if err := e.publisher.PublishInsightsGenerated(merchantID, len(insights)); err != nil {
			log.WithError(err).Errorf("failed to publish insights.generated for merchant %s", merchantID)
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.BroadcastInsights(broadcast)
	}
}
