package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/telegram"
)

const (
	updateKeyPrefix      = "telegram:update:"
	updateDedupTTL       = 10 * time.Minute
	defaultUpdateTimeout = 2 * time.Minute
)

// UpdateHandler processes one update.
type UpdateHandler interface {
	Handle(ctx context.Context, data *telegram.MessageData) error
}

// Dispatcher runs update handling off the webhook request and drops redeliveries.
type Dispatcher struct {
	handler UpdateHandler
	redis   redis.Cmdable
	metrics *metrics.Metrics
	timeout time.Duration

	wg   sync.WaitGroup
	mu   sync.Mutex
	seen map[int64]time.Time
	now  func() time.Time
}

// NewDispatcher creates a Dispatcher. rdb and m may be nil; without Redis
// duplicate detection is per process.
func NewDispatcher(handler UpdateHandler, rdb redis.Cmdable, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultUpdateTimeout
	}
	return &Dispatcher{
		handler: handler,
		redis:   rdb,
		metrics: m,
		timeout: timeout,
		seen:    make(map[int64]time.Time),
		now:     time.Now,
	}
}

// Dispatch starts handling data in the background. It reports false when the
// update id was already seen.
func (d *Dispatcher) Dispatch(ctx context.Context, data *telegram.MessageData) bool {
	if !d.claim(ctx, data.UpdateID) {
		logger.FromContext(ctx).Info("skipping duplicate update", "update_id", data.UpdateID)
		d.metrics.ObserveUpdate(data.MessageType, "duplicate")
		return false
	}

	// The webhook responds before handling finishes, so the work must outlive the request.
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		d.run(ctx, data)
	}()
	return true
}

func (d *Dispatcher) run(ctx context.Context, data *telegram.MessageData) {
	log := logger.FromContext(ctx).With("update_id", data.UpdateID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("update handler panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			d.metrics.ObserveUpdate(data.MessageType, "panic")
		}
	}()

	start := time.Now()
	if err := d.handler.Handle(ctx, data); err != nil {
		log.Error("update handling failed", "error", err, "duration", time.Since(start))
		d.metrics.ObserveUpdate(data.MessageType, "error")
		return
	}
	log.Debug("update handled", "duration", time.Since(start))
	d.metrics.ObserveUpdate(data.MessageType, "ok")
}

// claim records id and reports whether it was new.
func (d *Dispatcher) claim(ctx context.Context, id int64) bool {
	if d.redis != nil {
		ok, err := d.redis.SetNX(ctx, updateKeyPrefix+strconv.FormatInt(id, 10), 1, updateDedupTTL).Result()
		if err == nil {
			return ok
		}
		logger.FromContext(ctx).Warn("update dedup via redis failed, using memory", "error", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for seenID, at := range d.seen {
		if now.Sub(at) > updateDedupTTL {
			delete(d.seen, seenID)
		}
	}
	if _, dup := d.seen[id]; dup {
		return false
	}
	d.seen[id] = now
	return true
}

// Wait blocks until in-flight updates finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
