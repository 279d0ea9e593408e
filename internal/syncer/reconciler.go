package syncer

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/amarouch/ilmq/internal/bus"
	"github.com/amarouch/ilmq/internal/store"
	"go.uber.org/zap"
)

// AttemptUploader is the interface for uploading a queued game result to the
// room service.
type AttemptUploader interface {
	UploadAttempt(ctx context.Context, a *store.Attempt) error
}

// Result summarizes one flush pass over the offline queue.
type Result struct {
	Processed int // entries attempted this pass
	Synced    int // entries uploaded and removed from the queue
	Remaining int // entries still queued after the pass
}

// Reconciler drains the offline attempt queue against the room service. Each
// queue entry is uploaded independently: success removes it, failure leaves
// it queued for the next pass, and one failure never stops the rest of the
// pass.
type Reconciler struct {
	db       *store.DB
	uploader AttemptUploader
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	inFlight atomic.Bool
	cancel   context.CancelFunc
}

// NewReconciler creates a reconciler that flushes every interval once
// started.
func NewReconciler(db *store.DB, uploader AttemptUploader, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{
		db:       db,
		uploader: uploader,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the periodic flush loop.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

// Stop stops the flush loop.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Reconciler) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush uploads every queued attempt once. At most one flush runs at a time;
// a call that overlaps an in-progress flush returns a zero Result so a
// manual "sync now" cannot race the ticker into double uploads.
func (r *Reconciler) Flush(ctx context.Context) Result {
	if !r.inFlight.CompareAndSwap(false, true) {
		return Result{}
	}
	defer r.inFlight.Store(false)

	pending, err := r.db.PendingAttempts()
	if err != nil {
		r.logger.Error("failed to read offline queue", zap.Error(err))
		return Result{}
	}
	if len(pending) == 0 {
		return Result{}
	}

	var res Result
	for i := range pending {
		attempt := &pending[i]
		res.Processed++
		if err := r.uploader.UploadAttempt(ctx, attempt); err != nil {
			r.logger.Warn("attempt upload failed, keeping queued",
				zap.Error(err),
				zap.String("local_id", attempt.LocalID))
			res.Remaining++
			continue
		}
		if err := r.db.RemoveAttempt(attempt.LocalID); err != nil {
			r.logger.Error("failed to remove synced attempt",
				zap.Error(err),
				zap.String("local_id", attempt.LocalID))
			res.Remaining++
			continue
		}
		res.Synced++
	}

	r.logger.Info("offline queue flushed",
		zap.Int("processed", res.Processed),
		zap.Int("synced", res.Synced),
		zap.Int("remaining", res.Remaining))
	r.bus.Publish(bus.Event{
		Kind:      "sync.flushed",
		Timestamp: time.Now(),
		Payload:   res,
	})
	if res.Synced > 0 {
		r.bus.Notify(flushMessage(res.Synced))
	}
	return res
}

func flushMessage(synced int) string {
	if synced == 1 {
		return "1 offline game synced"
	}
	return strconv.Itoa(synced) + " offline games synced"
}
