package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pmbright/synclet/internal/magento"
	"github.com/pmbright/synclet/internal/mapper"
	"github.com/pmbright/synclet/internal/models"
	"github.com/pmbright/synclet/internal/util"
)

// ErrRunInProgress is returned when another run holds the run lock. Nothing
// was fetched or written; the caller should simply come back later.
var ErrRunInProgress = errors.New("sync run already in progress")

// OrderFetcher pulls one page of raw orders from the remote platform.
type OrderFetcher interface {
	FetchPage(ctx context.Context, filter magento.Filter, pageSize, pageIndex int) (*magento.Page, error)
}

// OrderStore is the slice of the persistence layer a sync run needs.
type OrderStore interface {
	GetLastWatermark(ctx context.Context) (*time.Time, error)
	UpsertOrder(ctx context.Context, order *models.Order) error
	RecordSyncRun(ctx context.Context, run *models.SyncRun) error
}

// RunLocker serializes runs across processes.
type RunLocker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// EventPublisher emits sync lifecycle events. A nil publisher disables
// publishing entirely.
type EventPublisher interface {
	PublishOrderSynced(ctx context.Context, event *models.OrderSyncedEvent) error
	PublishSyncCompleted(ctx context.Context, event *models.SyncCompletedEvent) error
}

// Config wires a Syncer.
type Config struct {
	Store       OrderStore
	Fetcher     OrderFetcher
	Locker      RunLocker
	Publisher   EventPublisher
	InitialDate time.Time
	PageSize    int
	MaxPages    int
	Now         func() time.Time
}

// Syncer drives one sync run: determine the window, walk the pages, map and
// persist each record, then append the history entry that the next run's
// watermark is read from.
type Syncer struct {
	store       OrderStore
	fetcher     OrderFetcher
	locker      RunLocker
	publisher   EventPublisher
	initialDate time.Time
	pageSize    int
	maxPages    int
	now         func() time.Time
	logger      *zap.Logger
}

func New(cfg Config) (*Syncer, error) {
	if cfg.Store == nil {
		return nil, errors.New("syncer: store is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("syncer: fetcher is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("syncer: locker is required")
	}
	if cfg.InitialDate.IsZero() {
		return nil, errors.New("syncer: initial sync date is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Syncer{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		locker:      cfg.Locker,
		publisher:   cfg.Publisher,
		initialDate: cfg.InitialDate,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		now:         cfg.Now,
		logger:      util.GetLogger(),
	}, nil
}

// RunOptions control a single run.
type RunOptions struct {
	// ForceInitial re-syncs from the configured start date even when a
	// watermark exists. Existing rows are overwritten in place.
	ForceInitial bool
}

// Result summarizes one finished run.
type Result struct {
	RunID       string
	Mode        string
	Outcome     string
	Pages       int
	Upserted    int
	Failed      int
	WindowStart time.Time
	WindowEnd   time.Time
	Errs        []error
}

// Run executes one sync run under the run lock. A Result is returned whenever
// the run reached its history entry, including partial and failed outcomes;
// an error return means the run never started or could not be recorded.
func (s *Syncer) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	acquired, err := s.locker.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		// The lock must go even when ctx is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx); err != nil {
			s.logger.Error("Failed to release run lock", zap.Error(err))
		}
	}()

	return s.run(ctx, opts)
}

func (s *Syncer) run(ctx context.Context, opts RunOptions) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Syncer.Run")
	defer span.End()

	startedAt := s.now().UTC()

	mode, filter, err := s.determineMode(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("determining sync mode: %w", err)
	}

	res := &Result{
		RunID:       uuid.New().String(),
		Mode:        mode,
		WindowStart: filter.Since,
		// The window closes at the moment the run started, not when it
		// finished, so orders changed mid-run fall into the next window.
		// Second resolution matches the API's time filter format.
		WindowEnd: startedAt.Truncate(time.Second),
	}

	s.logger.Info("Starting sync run",
		zap.String("run_id", res.RunID),
		zap.String("mode", res.Mode),
		zap.String("filter", filter.Kind.String()),
		zap.Time("window_start", res.WindowStart),
		zap.Time("window_end", res.WindowEnd))

	fetchErr := s.syncPages(ctx, filter, res)

	switch {
	case fetchErr != nil:
		res.Outcome = models.OutcomeFailed
		res.Errs = append(res.Errs, fetchErr)
	case res.Failed > 0:
		res.Outcome = models.OutcomePartial
	default:
		res.Outcome = models.OutcomeSuccess
	}

	run := &models.SyncRun{
		RunID:          res.RunID,
		Mode:           res.Mode,
		WindowStart:    res.WindowStart,
		WindowEnd:      res.WindowEnd,
		PagesFetched:   res.Pages,
		OrdersUpserted: res.Upserted,
		OrdersFailed:   res.Failed,
		Outcome:        res.Outcome,
		ErrorSummary:   summarizeErrors(res.Errs),
		StartedAt:      startedAt,
		FinishedAt:     s.now().UTC(),
	}
	if err := s.store.RecordSyncRun(ctx, run); err != nil {
		return res, fmt.Errorf("recording sync history: %w", err)
	}

	util.SyncRunsTotal.WithLabelValues(res.Mode, res.Outcome).Inc()
	if res.Outcome == models.OutcomeSuccess {
		util.LastWatermarkSeconds.Set(float64(res.WindowEnd.Unix()))
	}

	s.publishSyncCompleted(ctx, res)

	s.logger.Info("Sync run finished",
		zap.String("run_id", res.RunID),
		zap.String("outcome", res.Outcome),
		zap.Int("pages", res.Pages),
		zap.Int("upserted", res.Upserted),
		zap.Int("failed", res.Failed))

	return res, nil
}

// determineMode picks initial or incremental. Only successful runs leave a
// watermark behind, so a history of nothing but failures still comes back
// here as an initial sync.
func (s *Syncer) determineMode(ctx context.Context, opts RunOptions) (string, magento.Filter, error) {
	if opts.ForceInitial {
		return models.SyncModeInitial, magento.Filter{Kind: magento.FilterCreated, Since: s.initialDate}, nil
	}

	watermark, err := s.store.GetLastWatermark(ctx)
	if err != nil {
		return "", magento.Filter{}, err
	}
	if watermark == nil {
		return models.SyncModeInitial, magento.Filter{Kind: magento.FilterCreated, Since: s.initialDate}, nil
	}
	return models.SyncModeIncremental, magento.Filter{Kind: magento.FilterUpdated, Since: *watermark}, nil
}

// syncPages walks the paginated result set until a short page marks the end.
// The returned error is the failure that aborted the walk, nil when every
// page was consumed.
func (s *Syncer) syncPages(ctx context.Context, filter magento.Filter, res *Result) error {
	for pageIndex := 0; ; pageIndex++ {
		if pageIndex >= s.maxPages {
			// Advancing the watermark past a window that was never fully
			// fetched would silently skip orders.
			return fmt.Errorf("aborting run: page limit of %d reached", s.maxPages)
		}

		page, err := s.fetchPage(ctx, filter, pageIndex)
		if err != nil {
			return err
		}

		res.Pages++
		s.processPage(ctx, page, res)

		if len(page.Orders) < s.pageSize {
			return nil
		}
	}
}

func (s *Syncer) fetchPage(ctx context.Context, filter magento.Filter, pageIndex int) (*magento.Page, error) {
	ctx, span := util.StartSpan(ctx, "Syncer.FetchPage")
	defer span.End()

	start := time.Now()
	page, err := s.fetcher.FetchPage(ctx, filter, s.pageSize, pageIndex)
	util.PageFetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", pageIndex, err)
	}

	util.PagesFetchedTotal.Inc()
	s.logger.Info("Fetched page",
		zap.Int("page", pageIndex),
		zap.Int("orders", len(page.Orders)))
	return page, nil
}

// processPage maps and persists every record on its own. A record that fails
// is tallied and skipped; its siblings are unaffected.
func (s *Syncer) processPage(ctx context.Context, page *magento.Page, res *Result) {
	for i := range page.Orders {
		raw := &page.Orders[i]

		order, err := mapper.MapOrder(raw)
		if err != nil {
			res.Failed++
			res.Errs = append(res.Errs, err)
			util.OrdersSkippedTotal.WithLabelValues("mapping").Inc()
			s.logger.Warn("Skipping unmappable order",
				zap.Int64("remote_id", int64(raw.ID)),
				zap.Error(err))
			continue
		}

		if err := s.persistOrder(ctx, order); err != nil {
			res.Failed++
			res.Errs = append(res.Errs, err)
			util.OrdersSkippedTotal.WithLabelValues("persistence").Inc()
			s.logger.Warn("Skipping unpersistable order",
				zap.Int64("remote_id", order.RemoteID),
				zap.Error(err))
			continue
		}

		res.Upserted++
		util.OrdersUpsertedTotal.Inc()
		s.publishOrderSynced(ctx, order)
	}
}

func (s *Syncer) persistOrder(ctx context.Context, order *models.Order) error {
	ctx, span := util.StartSpan(ctx, "Syncer.PersistOrder")
	defer span.End()

	start := time.Now()
	err := s.store.UpsertOrder(ctx, order)
	util.OrderUpsertLatency.Observe(time.Since(start).Seconds())
	return err
}

func (s *Syncer) publishOrderSynced(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderSyncedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSynced,
			Timestamp: time.Now(),
		},
		RemoteID:        order.RemoteID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		Total:           order.Total,
		CurrencyCode:    order.CurrencyCode,
		LastUpdatedDate: order.LastUpdatedDate,
	}

	if err := s.publisher.PublishOrderSynced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSynced event", zap.Error(err))
	}
}

func (s *Syncer) publishSyncCompleted(ctx context.Context, res *Result) {
	if s.publisher == nil {
		return
	}

	event := &models.SyncCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSyncCompleted,
			Timestamp: time.Now(),
		},
		RunID:          res.RunID,
		Mode:           res.Mode,
		Outcome:        res.Outcome,
		WindowStart:    res.WindowStart,
		WindowEnd:      res.WindowEnd,
		PagesFetched:   res.Pages,
		OrdersUpserted: res.Upserted,
		OrdersFailed:   res.Failed,
	}

	if err := s.publisher.PublishSyncCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SyncCompleted event", zap.Error(err))
	}
}

// summarizeErrors flattens the first few per-record errors into the free-text
// column of sync_history.
func summarizeErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	const maxListed = 5
	parts := make([]string, 0, maxListed+1)
	for i, err := range errs {
		if i == maxListed {
			parts = append(parts, fmt.Sprintf("and %d more", len(errs)-maxListed))
			break
		}
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
