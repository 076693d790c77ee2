package engine

import (
	"context"
	"time"

	"github.com/apex/log"
)

// MerchantSource lists the merchants the periodic runner iterates over.
// The iteration order it returns is the order the engine uses.
type MerchantSource interface {
	ListMerchantIDs(ctx context.Context) ([]string, error)
}

// Runner drives the engine on a fixed interval, one full sequential
// pass over all merchants per tick. Passes never overlap: a tick that
// fires while a pass is still running waits for the next one.
type Runner struct {
	engine    *Engine
	merchants MerchantSource
	interval  time.Duration
	stopChan  chan struct{}
}

// NewRunner creates a periodic engine runner.
func NewRunner(engine *Engine, merchants MerchantSource, interval time.Duration) *Runner {
	return &Runner{
		engine:    engine,
		merchants: merchants,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the run loop in a goroutine. The first pass runs
// immediately.
func (r *Runner) Start() {
	log.Infof("starting insight engine runner, interval %v", r.interval)

	go func() {
		r.runOnce()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.runOnce()
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Stop stops the run loop. A pass already in flight runs to completion.
func (r *Runner) Stop() {
	log.Info("stopping insight engine runner")
	close(r.stopChan)
}

func (r *Runner) runOnce() {
	ctx := context.Background()

	merchantIDs, err := r.merchants.ListMerchantIDs(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list merchants, skipping engine pass")
		return
	}
	if len(merchantIDs) == 0 {
		log.Debug("no merchants installed, skipping engine pass")
		return
	}

	log.Infof("engine pass over %d merchants", len(merchantIDs))
	r.engine.GenerateForAll(ctx, merchantIDs)
}
