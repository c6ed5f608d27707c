// Package watch periodically compares live table versions with the declared ones.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/onyx-go/schemaver/internal/logging"
)

// CheckFunc returns the tables that are absent or behind
type CheckFunc func(ctx context.Context) ([]string, error)

// Stats describes the checks run so far
type Stats struct {
	Runs      int64
	Failures  int64
	LastRun   time.Time
	LastStale []string
	NextRun   time.Time
}

// Watcher runs a drift check on a cron schedule
type Watcher struct {
	cron    *cron.Cron
	entryID cron.EntryID
	check   CheckFunc
	logger  logging.Logger
	timeout time.Duration

	mutex     sync.RWMutex
	running   bool
	runs      int64
	failures  int64
	lastRun   time.Time
	lastStale []string
}

// New creates a watcher. The expression takes a leading seconds field and
// descriptors such as @every 1m.
func New(expression string, check CheckFunc, logger logging.Logger, timeout time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	w := &Watcher{
		check:   check,
		logger:  logger.WithChannel("watch"),
		timeout: timeout,
	}

	cl := cronLogger{logger: w.logger}
	w.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.DelayIfStillRunning(cl),
		),
	)

	entryID, err := w.cron.AddFunc(expression, w.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", expression, err)
	}
	w.entryID = entryID
	return w, nil
}

// Run checks on schedule until ctx is done, then waits for a running check
func (w *Watcher) Run(ctx context.Context) error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.running = true
	w.mutex.Unlock()

	w.cron.Start()
	w.logger.Info("Watching for schema drift", map[string]interface{}{
		"next_run": w.cron.Entry(w.entryID).Next,
	})

	<-ctx.Done()
	<-w.cron.Stop().Done()

	w.mutex.Lock()
	w.running = false
	w.mutex.Unlock()

	w.logger.Info("Watcher stopped", nil)
	return nil
}

// RunOnce performs a single check and records its outcome
func (w *Watcher) RunOnce(ctx context.Context) ([]string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	stale, err := w.check(ctx)

	w.mutex.Lock()
	w.runs++
	w.lastRun = time.Now().UTC()
	if err != nil {
		w.failures++
	} else {
		w.lastStale = stale
	}
	w.mutex.Unlock()

	switch {
	case err != nil:
		w.logger.ErrorContext(ctx, "Drift check failed", map[string]interface{}{"error": err.Error()})
	case len(stale) > 0:
		w.logger.WarnContext(ctx, "Schema drift detected", map[string]interface{}{"tables": stale})
	default:
		w.logger.DebugContext(ctx, "Schema is up to date", nil)
	}
	return stale, err
}

func (w *Watcher) tick() {
	w.RunOnce(context.Background())
}

// Stats returns a snapshot of the check history
func (w *Watcher) Stats() Stats {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	stale := make([]string, len(w.lastStale))
	copy(stale, w.lastStale)
	return Stats{
		Runs:      w.runs,
		Failures:  w.failures,
		LastRun:   w.lastRun,
		LastStale: stale,
		NextRun:   w.cron.Entry(w.entryID).Next,
	}
}

// cronLogger routes cron's own messages to the channel logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	f := fields(keysAndValues)
	f["error"] = err.Error()
	l.logger.Error(msg, f)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
