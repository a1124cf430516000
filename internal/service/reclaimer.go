package service

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

// Reclaimer periodically releases seats held by orders whose payment
// deadline passed and cleans up pending orders that were never
// confirmed.  Each order is expired in its own transaction, so one
// failure never blocks the rest of a sweep, and a sweep racing a
// payment loses cleanly: ExpireOrder re-checks status under lock.
type Reclaimer struct {
	orders      *repository.OrderRepo
	cancels     *repository.CancellationRepo
	svc         *OrderService
	clock       Clock
	interval    time.Duration
	pendingHold time.Duration
	scheduler   gocron.Scheduler
}

// NewReclaimer constructs a Reclaimer sweeping every interval and
// treating pending orders older than pendingHold as abandoned.
func NewReclaimer(orders *repository.OrderRepo, cancels *repository.CancellationRepo, svc *OrderService, clock Clock, interval, pendingHold time.Duration) *Reclaimer {
	if orders == nil || cancels == nil || svc == nil || clock == nil {
		panic("nil dependency passed to NewReclaimer")
	}
	return &Reclaimer{
		orders:      orders,
		cancels:     cancels,
		svc:         svc,
		clock:       clock,
		interval:    interval,
		pendingHold: pendingHold,
	}
}

// RunSweep performs one reclamation pass: expired confirmed-unpaid
// orders first, then stale pending orders.  Errors are logged per order
// and the sweep continues.
func (r *Reclaimer) RunSweep(ctx context.Context) {
	now := r.clock.Now()

	expired, err := r.orders.ListExpiredUnpaid(ctx, now)
	if err != nil {
		log.Printf("reclaimer: list expired orders failed: %v", err)
	}
	stale, err := r.orders.ListStalePending(ctx, now.Add(-r.pendingHold))
	if err != nil {
		log.Printf("reclaimer: list stale pending orders failed: %v", err)
	}

	released := 0
	for _, id := range append(expired, stale...) {
		if err := r.svc.ExpireOrder(ctx, id); err != nil {
			log.Printf("reclaimer: expire order %s failed: %v", id, err)
			continue
		}
		released++
	}
	if released > 0 {
		log.Printf("reclaimer: released %d order(s)", released)
	}
}

// purgeCounters drops cancellation counters for days before today.
func (r *Reclaimer) purgeCounters(ctx context.Context) {
	today := r.clock.Now().Format("2006-01-02")
	n, err := r.cancels.PurgeBefore(ctx, today)
	if err != nil {
		log.Printf("reclaimer: purge cancellation counters failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("reclaimer: purged %d stale cancellation counter(s)", n)
	}
}

// Start launches the background schedule: a sweep every interval plus a
// daily counter purge at 01:00 UTC.  An immediate sweep runs first so a
// restart does not leave expired holds in place for a full interval.
func (r *Reclaimer) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.RunSweep(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(1, 0, 0))),
		gocron.NewTask(func() { r.purgeCounters(ctx) }),
	); err != nil {
		return err
	}
	sched.Start()
	r.scheduler = sched
	log.Printf("reclaimer: started (sweep every %s, pending hold %s)", r.interval, r.pendingHold)
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (r *Reclaimer) Stop() {
	if r.scheduler != nil {
		if err := r.scheduler.Shutdown(); err != nil {
			log.Printf("reclaimer: shutdown failed: %v", err)
		}
	}
}
