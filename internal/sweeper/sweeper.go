// Package sweeper runs the periodic expiry pass over payments, payment
// links, and invoices.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/clock"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/config"
	invoicedomain "github.com/D-Honoured1/Kamisoft-sub002/internal/invoice/domain"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/observability/metrics"
	paymentdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/payment/domain"
	requestdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/servicerequest/domain"
)

// Result counts what one pass touched.
type Result struct {
	ExpiredPayments int64 `json:"expired_payments"`
	ClearedLinks    int64 `json:"cleared_links"`
	OverdueInvoices int64 `json:"overdue_invoices"`
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Ledger   paymentdomain.Ledger
	Requests requestdomain.Service
	Invoices invoicedomain.Service
	Locker   *Locker          `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

type Sweeper struct {
	cfg      config.SweepConfig
	log      *zap.Logger
	clock    clock.Clock
	ledger   paymentdomain.Ledger
	requests requestdomain.Service
	invoices invoicedomain.Service
	locker   *Locker
	metrics  *metrics.Metrics
}

func New(p Params) *Sweeper {
	return &Sweeper{
		cfg:      p.Config.Sweep,
		log:      p.Log.Named("sweeper"),
		clock:    p.Clock,
		ledger:   p.Ledger,
		requests: p.Requests,
		invoices: p.Invoices,
		locker:   p.Locker,
		metrics:  p.Metrics,
	}
}

// Sweep runs the three expiry passes against a fixed observation time.
// Each pass is independent; one failing does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	var result Result
	var firstErr error

	expired, err := s.ledger.ExpireStalePending(ctx, now.Add(-s.cfg.PendingTTL))
	if err != nil {
		s.log.Warn("pending payment sweep failed", zap.Error(err))
		firstErr = err
	}
	result.ExpiredPayments = expired

	cleared, err := s.requests.ClearExpiredLinks(ctx, now)
	if err != nil {
		s.log.Warn("payment link sweep failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	result.ClearedLinks = cleared

	overdue, err := s.invoices.MarkOverdue(ctx, now)
	if err != nil {
		s.log.Warn("overdue invoice sweep failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	result.OverdueInvoices = overdue

	s.metrics.RecordSweepExpired(ctx, "pending_payment", result.ExpiredPayments)
	s.metrics.RecordSweepExpired(ctx, "payment_link", result.ClearedLinks)
	s.metrics.RecordSweepExpired(ctx, "overdue_invoice", result.OverdueInvoices)

	if result.ExpiredPayments > 0 || result.ClearedLinks > 0 || result.OverdueInvoices > 0 {
		s.log.Info("sweep finished",
			zap.Int64("expired_payments", result.ExpiredPayments),
			zap.Int64("cleared_links", result.ClearedLinks),
			zap.Int64("overdue_invoices", result.OverdueInvoices))
	}
	return result, firstErr
}

// Stats reports what a sweep at the given time would touch, without
// mutating anything. No lock is taken; the counts are advisory.
func (s *Sweeper) Stats(ctx context.Context, now time.Time) (Result, error) {
	var result Result
	var firstErr error

	stale, err := s.ledger.CountStalePending(ctx, now.Add(-s.cfg.PendingTTL))
	if err != nil {
		firstErr = err
	}
	result.ExpiredPayments = stale

	links, err := s.requests.CountExpiredLinks(ctx, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	result.ClearedLinks = links

	overdue, err := s.invoices.CountOverdueCandidates(ctx, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	result.OverdueInvoices = overdue

	return result, firstErr
}

// RunOnce takes the sweep lock and runs a single pass. When another
// instance holds the lock the pass is skipped without error.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	token, ok, err := s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		s.log.Debug("sweep lock held elsewhere, skipping")
		return Result{}, nil
	}
	defer func() {
		if err := s.locker.Release(ctx, s.cfg.LockKey, token); err != nil {
			s.log.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	return s.Sweep(ctx, s.clock.Now())
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
