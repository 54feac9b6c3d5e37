package coalescer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/scenesync/internal/logging"
	"github.com/dmitrijs2005/scenesync/internal/scene"
)

// Persister is the local cache write path.
type Persister interface {
	SaveDocument(ctx context.Context, sceneID int64, doc scene.Document) error
}

// Action is the deferred work, normally a remote push.
type Action func(ctx context.Context, doc scene.Document) error

type Config struct {
	Quiet         time.Duration
	MaxWait       time.Duration
	RetryInterval time.Duration
}

// Coalescer schedules Action for one scene. Run owns the timer; Tick and
// Flush may also be called directly.
type Coalescer struct {
	sceneID int64
	persist Persister
	action  Action
	retry   time.Duration
	now     func() time.Time
	log     logging.Logger

	mu      sync.Mutex
	sched   *Scheduler
	latest  *scene.Document
	running bool

	wake chan struct{}
}

func New(sceneID int64, persist Persister, action Action, cfg Config, log logging.Logger, now func() time.Time) *Coalescer {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if now == nil {
		now = time.Now
	}
	return &Coalescer{
		sceneID: sceneID,
		persist: persist,
		action:  action,
		retry:   cfg.RetryInterval,
		now:     now,
		log:     log.With("module", "coalescer", "scene_id", sceneID),
		sched:   NewScheduler(cfg.Quiet, cfg.MaxWait),
		wake:    make(chan struct{}, 1),
	}
}

// OnChange persists doc locally and (re)arms the deferred action with it as
// the latest candidate. A persistence failure is returned and the edit is
// not scheduled.
func (c *Coalescer) OnChange(ctx context.Context, doc scene.Document) error {
	if err := c.persist.SaveDocument(ctx, c.sceneID, doc); err != nil {
		return fmt.Errorf("persist edit: %w", err)
	}
	clean := doc.Sanitized()

	c.mu.Lock()
	c.latest = &clean
	c.sched.OnEdit(c.now())
	c.mu.Unlock()

	c.signal()
	return nil
}

func (c *Coalescer) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether an action is scheduled.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.Pending()
}

// Tick runs the action if it is due. It reports whether the action ran.
// While an action is running Tick does nothing: edits arriving meanwhile
// only re-arm the scheduler.
func (c *Coalescer) Tick(ctx context.Context) bool {
	c.mu.Lock()
	if c.running || c.latest == nil || !c.sched.Tick(c.now()) {
		c.mu.Unlock()
		return false
	}
	doc := *c.latest
	c.running = true
	c.mu.Unlock()

	c.execute(ctx, doc)
	return true
}

// Flush runs a pending action immediately.
func (c *Coalescer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.running || c.latest == nil || !c.sched.Pending() {
		c.mu.Unlock()
		return nil
	}
	c.sched.Reset()
	doc := *c.latest
	c.running = true
	c.mu.Unlock()

	return c.execute(ctx, doc)
}

func (c *Coalescer) execute(ctx context.Context, doc scene.Document) error {
	err := c.action(ctx, doc)

	c.mu.Lock()
	c.running = false
	if err != nil && !c.sched.Pending() {
		c.sched.Rearm(c.now(), c.retry)
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn(ctx, "deferred action failed, will retry", "retry_in", c.retry.String(), "error", err)
	}
	c.signal()
	return err
}

// Run drives Tick from a timer until ctx is cancelled.
func (c *Coalescer) Run(ctx context.Context) {
	for {
		c.mu.Lock()
		deadline, armed := c.sched.Deadline()
		c.mu.Unlock()

		if !armed {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		wait := deadline.Sub(c.now())
		if wait <= 0 {
			if !c.Tick(ctx) {
				// an action is running elsewhere; it signals when done
				select {
				case <-ctx.Done():
					return
				case <-c.wake:
				}
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
			c.Tick(ctx)
		}
	}
}
