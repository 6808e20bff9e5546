package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/collector"
	"sitewatch/internal/database/graph"
	"sitewatch/internal/database/relational"
	"sitewatch/internal/output"
)

const (
	defaultPollInterval = 2 * time.Second
	graphPushTimeout    = 30 * time.Second
)

// DataWorker orchestrates the data pipeline: Collector -> Engine -> Flagger -> Indexes.
type DataWorker struct {
	collector   output.DataCollector
	flagger     output.DataFlagger
	index       relational.IncidentIndex
	graphClient graph.GraphClient
	logger      *zap.Logger
	interval    time.Duration
	node        collector.NodeInfo
	onPass      func(*output.PipelinePayload)

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	// passMu serializes passes so the index and latest only move forward.
	passMu sync.Mutex

	latestMu sync.RWMutex
	latest   *output.PipelinePayload

	// A single pusher drains pendingPush; a newer pass replaces a push that
	// has not started yet.
	pushMu      sync.Mutex
	pendingPush *output.PipelinePayload
	pushing     bool
}

// WorkerOption configures a DataWorker.
type WorkerOption func(*DataWorker)

// WithInterval sets the pass interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *DataWorker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithNodeInfo stamps every payload with the evaluating host.
func WithNodeInfo(n collector.NodeInfo) WorkerOption {
	return func(w *DataWorker) {
		w.node = n
	}
}

// WithPassHook registers fn to run after every successful pass.
func WithPassHook(fn func(*output.PipelinePayload)) WorkerOption {
	return func(w *DataWorker) {
		w.onPass = fn
	}
}

// NewDataWorker creates a new worker instance. index, graph and logger may be nil.
func NewDataWorker(
	c output.DataCollector,
	f output.DataFlagger,
	index relational.IncidentIndex,
	g graph.GraphClient,
	logger *zap.Logger,
	opts ...WorkerOption,
) (*DataWorker, error) {
	if c == nil || f == nil {
		return nil, errors.New("collector and flagger are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &DataWorker{
		collector:   c,
		flagger:     f,
		index:       index,
		graphClient: g,
		logger:      logger.Named("worker"),
		interval:    defaultPollInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Interval returns the configured pass interval.
func (w *DataWorker) Interval() time.Duration {
	return w.interval
}

// Start begins the periodic evaluation loop.
func (w *DataWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	go w.loop(ctx)
	return nil
}

// Stop gracefully stops the worker and clears the graph.
func (w *DataWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	wasRunning := w.running
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()

	// The graph only ever mirrors the live session.
	if w.graphClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.graphClient.Reset(ctx); err != nil {
			w.logger.Warn("graph reset failed", zap.Error(err))
		}
	}
	if wasRunning {
		w.logger.Info("worker stopped")
	}
}

// PullOnce executes a single evaluation pass immediately.
func (w *DataWorker) PullOnce(ctx context.Context) error {
	return w.execute(ctx)
}

// Latest returns the most recent payload, or nil before the first pass.
func (w *DataWorker) Latest() *output.PipelinePayload {
	w.latestMu.RLock()
	defer w.latestMu.RUnlock()
	return w.latest
}

func (w *DataWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.execute(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("pass failed", zap.Error(err))
			}
		}
	}
}

func (w *DataWorker) execute(ctx context.Context) error {
	w.passMu.Lock()
	defer w.passMu.Unlock()

	// Run the pipeline via the Output layer (the "lever")
	payload, err := output.RunPipeline(ctx, w.collector, w.flagger, w.node)
	if err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	if w.index != nil {
		if err := w.index.ReplacePass(ctx, payload); err != nil {
			return fmt.Errorf("index pass: %w", err)
		}
	}

	w.latestMu.Lock()
	w.latest = payload
	w.latestMu.Unlock()

	w.logger.Debug("pass evaluated",
		zap.String("run_id", payload.RunID),
		zap.Int("devices", len(payload.Devices)),
		zap.Int("incidents", len(payload.Incidents)),
	)

	if w.graphClient != nil {
		w.enqueuePush(payload)
	}

	if w.onPass != nil {
		w.onPass(payload)
	}
	return nil
}

// enqueuePush hands payload to the graph pusher, starting one if idle.
func (w *DataWorker) enqueuePush(payload *output.PipelinePayload) {
	w.pushMu.Lock()
	defer w.pushMu.Unlock()
	if w.pendingPush != nil {
		w.logger.Debug("graph push superseded", zap.String("run_id", w.pendingPush.RunID))
	}
	w.pendingPush = payload
	if w.pushing {
		return
	}
	w.pushing = true
	w.wg.Add(1)
	go w.pushLoop()
}

// pushLoop ingests pending payloads one at a time until none is left.
func (w *DataWorker) pushLoop() {
	defer w.wg.Done()
	for {
		w.pushMu.Lock()
		payload := w.pendingPush
		w.pendingPush = nil
		if payload == nil {
			w.pushing = false
			w.pushMu.Unlock()
			return
		}
		w.pushMu.Unlock()

		// Detached so a stopping worker still finishes the pass it started.
		pushCtx, cancel := context.WithTimeout(context.Background(), graphPushTimeout)
		if err := w.graphClient.IngestPass(pushCtx, payload); err != nil {
			w.logger.Warn("graph ingest failed", zap.String("run_id", payload.RunID), zap.Error(err))
		}
		cancel()
	}
}

var _ relational.DataWorkerService = (*DataWorker)(nil)
