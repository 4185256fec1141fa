// Package governor bounds how often and how widely the pipeline calls upstream services.
package governor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/MoonBagDexter/DEX-UTILITY/internal/domain"
)

// DefaultCooldown is the minimum spacing between full pipeline runs.
const DefaultCooldown = 60 * time.Second

// CooldownError is returned when a run is requested before the cooldown elapsed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("Please wait %d seconds before refreshing again", e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the remaining wait up to whole seconds.
func (e *CooldownError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// Is lets errors.Is match domain.ErrRateLimited.
func (e *CooldownError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// Cooldown gates full runs. It is the only process-wide mutable state in the pipeline.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewCooldown creates a cooldown. interval <= 0 uses DefaultCooldown.
func NewCooldown(interval time.Duration) *Cooldown {
	if interval <= 0 {
		interval = DefaultCooldown
	}
	return &Cooldown{interval: interval, now: time.Now}
}

// Acquire claims a run slot. The start time is recorded before returning,
// so two concurrent callers can never both succeed within one interval.
func (c *Cooldown) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.last.IsZero() {
		if elapsed := now.Sub(c.last); elapsed < c.interval {
			return &CooldownError{RetryAfter: c.interval - elapsed}
		}
	}
	c.last = now
	return nil
}

// Check reports whether Acquire would currently fail, without claiming the slot.
func (c *Cooldown) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return nil
	}
	if elapsed := c.now().Sub(c.last); elapsed < c.interval {
		return &CooldownError{RetryAfter: c.interval - elapsed}
	}
	return nil
}

// LastStart returns the time of the last successful Acquire.
func (c *Cooldown) LastStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Interval returns the configured spacing.
func (c *Cooldown) Interval() time.Duration {
	return c.interval
}
