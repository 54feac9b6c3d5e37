package coalescer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

func TestScheduler_QuietPeriod(t *testing.T) {
	s := NewScheduler(2*time.Second, 10*time.Second)

	s.OnEdit(at(0))
	s.OnEdit(at(1 * time.Second))

	d, ok := s.Deadline()
	assert.True(t, ok)
	assert.Equal(t, at(3*time.Second), d)

	assert.False(t, s.Tick(at(2500*time.Millisecond)))
	assert.True(t, s.Tick(at(3*time.Second)))
	assert.False(t, s.Tick(at(4*time.Second)), "fires at most once per burst")
	assert.False(t, s.Pending())
}

func TestScheduler_MaxWaitCapsContinuousEditing(t *testing.T) {
	s := NewScheduler(2*time.Second, 10*time.Second)

	fired := time.Duration(-1)
	for i := 0; i <= 12; i++ {
		now := at(time.Duration(i) * time.Second)
		if s.Tick(now) && fired < 0 {
			fired = time.Duration(i) * time.Second
		}
		s.OnEdit(now)
	}
	assert.Equal(t, 10*time.Second, fired)
}

func TestScheduler_NewBurstAfterFire(t *testing.T) {
	s := NewScheduler(2*time.Second, 10*time.Second)

	s.OnEdit(at(0))
	assert.True(t, s.Tick(at(2*time.Second)))

	s.OnEdit(at(20 * time.Second))
	d, _ := s.Deadline()
	assert.Equal(t, at(22*time.Second), d)
}

func TestScheduler_Rearm(t *testing.T) {
	s := NewScheduler(2*time.Second, 10*time.Second)

	s.Rearm(at(0), 10*time.Second)
	assert.True(t, s.Pending())
	assert.False(t, s.Tick(at(9*time.Second)))
	assert.True(t, s.Tick(at(10*time.Second)))
}

func TestScheduler_Reset(t *testing.T) {
	s := NewScheduler(0, 0)
	s.OnEdit(at(0))
	s.Reset()

	assert.False(t, s.Pending())
	assert.False(t, s.Tick(at(time.Hour)))
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(0, 0)
	assert.Equal(t, DefaultQuiet, s.quiet)
	assert.Equal(t, DefaultQuiet, s.maxWait)
}
