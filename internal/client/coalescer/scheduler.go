// Package coalescer turns a stream of edits into a small number of deferred
// remote pushes.
//
// Every edit is persisted locally right away. The push is a trailing
// debounce: it fires after a quiet period with no edits, but never later
// than a maximum wait measured from the first edit of the burst. At most
// one push is deferred at any time.
package coalescer

import "time"

const (
	DefaultQuiet         = 2 * time.Second
	DefaultMaxWait       = 10 * time.Second
	DefaultRetryInterval = 10 * time.Second
)

// Scheduler is the clock-free debounce state machine. Callers supply the
// current time to every method.
type Scheduler struct {
	quiet   time.Duration
	maxWait time.Duration

	lastEdit         time.Time
	firstEditInBurst time.Time
	deadline         time.Time
	armed            bool
}

func NewScheduler(quiet, maxWait time.Duration) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if maxWait < quiet {
		maxWait = quiet
	}
	return &Scheduler{quiet: quiet, maxWait: maxWait}
}

// OnEdit records an edit at now and arms the scheduler.
func (s *Scheduler) OnEdit(now time.Time) {
	if !s.armed {
		s.armed = true
		s.firstEditInBurst = now
	}
	s.lastEdit = now

	s.deadline = s.lastEdit.Add(s.quiet)
	if limit := s.firstEditInBurst.Add(s.maxWait); limit.Before(s.deadline) {
		s.deadline = limit
	}
}

// Rearm schedules a retry after the given delay, starting a new burst.
func (s *Scheduler) Rearm(now time.Time, after time.Duration) {
	s.armed = true
	s.firstEditInBurst = now
	s.lastEdit = now
	s.deadline = now.Add(after)
}

// Deadline returns when the armed burst is due. ok is false when idle.
func (s *Scheduler) Deadline() (deadline time.Time, ok bool) {
	return s.deadline, s.armed
}

// Tick reports whether the burst is due at now. A due burst is disarmed,
// so Tick returns true at most once per burst.
func (s *Scheduler) Tick(now time.Time) bool {
	if !s.armed || now.Before(s.deadline) {
		return false
	}
	s.armed = false
	return true
}

func (s *Scheduler) Pending() bool { return s.armed }

func (s *Scheduler) Reset() { s.armed = false }
