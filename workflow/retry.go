package workflow

import (
	"math"
	"sync"
	"time"
)

// maxBackoffShift caps the exponential doubling; the product is further
// saturated at MaxInt64 so the delay never overflows a time.Duration.
const maxBackoffShift = 30

// RetryAttempt is one entry of a retry history.
type RetryAttempt struct {
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RetryState computes exponential backoff and tracks attempt history for
// one failing step. It only computes policy; actually re-invoking the step
// is the surrounding executor's responsibility.
type RetryState struct {
	maxAttempts  int
	baseDelay    time.Duration
	attemptCount int
	history      []RetryAttempt
	mu           sync.Mutex
}

// NewRetryState creates retry state allowing maxAttempts attempts with the
// given base delay in milliseconds.
func NewRetryState(maxAttempts int, baseDelayMs int64) *RetryState {
	return &RetryState{
		maxAttempts: maxAttempts,
		baseDelay:   time.Duration(baseDelayMs) * time.Millisecond,
	}
}

// NewRetryStateFromAction builds retry state from a step's retry policy.
func NewRetryStateFromAction(action ErrorAction) *RetryState {
	return NewRetryState(action.MaxAttempts, action.DelayMs)
}

// GetBackoffDelay returns base_delay * 2^attempt_count, saturating at the
// maximum Duration. Successive calls interleaved with RecordError are
// non-decreasing.
func (r *RetryState) GetBackoffDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.baseDelay <= 0 {
		return 0
	}
	shift := r.attemptCount
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	if r.baseDelay > math.MaxInt64>>shift {
		return time.Duration(math.MaxInt64)
	}
	return r.baseDelay * time.Duration(1<<shift)
}

// RecordError appends the failure to the history and increments the
// attempt counter.
func (r *RetryState) RecordError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, RetryAttempt{
		Attempt:   r.attemptCount + 1,
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
	r.attemptCount++
}

// CanRetry reports whether another attempt is allowed. It becomes false
// exactly after maxAttempts recorded errors.
func (r *RetryState) CanRetry() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attemptCount < r.maxAttempts
}

// AttemptCount returns the number of recorded errors.
func (r *RetryState) AttemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attemptCount
}

// MaxAttempts returns the configured attempt limit.
func (r *RetryState) MaxAttempts() int {
	return r.maxAttempts
}

// GetHistory returns a copy of the append-ordered failure log.
func (r *RetryState) GetHistory() []RetryAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]RetryAttempt, len(r.history))
	copy(history, r.history)
	return history
}
