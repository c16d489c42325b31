package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Kostya12rus/steam-work-example/internal/infra"
)

// Watcher polls registered accounts and keeps their liveness caches
// warm, so expiry events fire even when no caller is probing.
type Watcher struct {
	log          *slog.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	accounts map[string]*Account
	failures map[string]int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(log *slog.Logger, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	return &Watcher{
		log:          log,
		pollInterval: pollInterval,
		accounts:     make(map[string]*Account),
		failures:     make(map[string]int),
	}
}

// Watch adds an account to the poll set, keyed by account name.
func (w *Watcher) Watch(a *Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts[a.Name()] = a
}

// Unwatch removes an account from the poll set.
func (w *Watcher) Unwatch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.accounts, name)
	delete(w.failures, name)
}

// Start begins the polling loop. The first sweep runs immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("session watcher panic recovered", slog.Any("panic", r))
			}
		}()

		w.sweep(ctx)

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.log.Info("session watcher stopped")
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) sweep(ctx context.Context) {
	w.mu.Lock()
	accounts := make([]*Account, 0, len(w.accounts))
	for _, a := range w.accounts {
		accounts = append(accounts, a)
	}
	w.mu.Unlock()

	for _, a := range accounts {
		name := a.Name()

		// Dead sessions back off exponentially; probing them every sweep
		// only burns requests until a re-login happens.
		w.mu.Lock()
		fails := w.failures[name]
		w.mu.Unlock()
		if fails > 0 && time.Since(a.lastProbeTime()) < infra.CalculateBackoff(fails) {
			continue
		}

		alive := a.IsAlive(ctx)

		w.mu.Lock()
		if alive {
			w.failures[name] = 0
		} else {
			w.failures[name] = fails + 1
		}
		w.mu.Unlock()

		if !alive {
			w.log.Warn("session not alive",
				slog.String("account", name),
				slog.Int("consecutive_failures", fails+1))
		}

		if ctx.Err() != nil {
			return
		}
	}
}
