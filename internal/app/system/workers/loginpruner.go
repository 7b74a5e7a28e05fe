package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LoginPurger is the subset of the login record store the pruner needs.
type LoginPurger interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginPruner is a background worker that deletes login records older
// than the retention window.
type LoginPruner struct {
	logins    LoginPurger
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLoginPruner creates a pruner that runs every interval and removes
// records older than retention.
func NewLoginPruner(logins LoginPurger, logger *zap.Logger, interval, retention time.Duration) *LoginPruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginPruner{
		logins:    logins,
		log:       logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *LoginPruner) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("login pruner started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *LoginPruner) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("login pruner stopped")
	})
}

func (w *LoginPruner) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Prune()
		}
	}
}

// Prune runs one deletion pass and returns the number of records removed.
func (w *LoginPruner) Prune() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := w.now().UTC().Add(-w.retention)
	count, err := w.logins.DeleteBefore(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to prune login records", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("pruned login records", zap.Int64("count", count), zap.Time("cutoff", cutoff))
	}
	return count
}
