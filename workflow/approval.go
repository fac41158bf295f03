package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stepflow-io/stepflow/internal/metrics"
	"github.com/stepflow-io/stepflow/types"
)

// ApprovalStatus is the decision state of an approval request
type ApprovalStatus string

const (
	// ApprovalPending means no human decision has been recorded yet
	ApprovalPending ApprovalStatus = "pending"
	// ApprovalApproved is a terminal positive decision
	ApprovalApproved ApprovalStatus = "approved"
	// ApprovalRejected is a terminal negative decision
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is one entry in the ApprovalGate ledger. Its terminal
// decision is immutable once set.
type ApprovalRequest struct {
	ID        string         `json:"id"`
	StepID    string         `json:"step_id"`
	Message   string         `json:"message"`
	TimeoutMs int64          `json:"timeout_ms"`
	Status    ApprovalStatus `json:"status"`
	Comments  string         `json:"comments,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}

// ApprovalGate is an independent, in-memory ledger of approval requests
// keyed by generated id. Requests are independent: deciding one never
// alters another, even for the same step id reused across requests.
//
// The gate never blocks. Timeouts are wall-clock and advisory: callers
// poll IsPending together with IsExpired, or run ReapExpired periodically.
type ApprovalGate struct {
	mu       sync.RWMutex
	requests map[string]*ApprovalRequest
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	// defaultTimeoutMs applies when a request declares no timeout; zero
	// means such requests never expire
	defaultTimeoutMs int64
}

// NewApprovalGate creates an empty approval ledger.
func NewApprovalGate(logger *zap.Logger) *ApprovalGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalGate{
		requests: make(map[string]*ApprovalRequest),
		logger:   logger.With(zap.String("component", "approval_gate")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches a metrics collector.
func (g *ApprovalGate) WithMetrics(c *metrics.Collector) *ApprovalGate {
	g.metrics = c
	return g
}

// WithDefaultTimeout sets the timeout applied to requests that declare
// none.
func (g *ApprovalGate) WithDefaultTimeout(timeoutMs int64) *ApprovalGate {
	g.defaultTimeoutMs = timeoutMs
	return g
}

// RequestApproval opens a pending request for the step and returns its
// generated id. An empty step id is rejected. A non-positive timeout falls
// back to the gate's default.
func (g *ApprovalGate) RequestApproval(stepID, message string, timeoutMs int64) (string, error) {
	if stepID == "" {
		return "", types.NewError(types.ErrValidation, "approval request requires a step id")
	}
	if timeoutMs <= 0 {
		timeoutMs = g.defaultTimeoutMs
	}

	request := &ApprovalRequest{
		ID:        uuid.NewString(),
		StepID:    stepID,
		Message:   message,
		TimeoutMs: timeoutMs,
		Status:    ApprovalPending,
		CreatedAt: g.now(),
	}

	g.mu.Lock()
	g.requests[request.ID] = request
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.RecordApprovalRequested()
	}

	g.logger.Info("approval requested",
		zap.String("request_id", request.ID),
		zap.String("step_id", stepID),
		zap.Int64("timeout_ms", timeoutMs))

	return request.ID, nil
}

// Approve transitions a pending request to approved, storing comments.
func (g *ApprovalGate) Approve(requestID, comments string) error {
	return g.decide(requestID, ApprovalApproved, comments)
}

// Reject transitions a pending request to rejected, storing comments.
func (g *ApprovalGate) Reject(requestID, comments string) error {
	return g.decide(requestID, ApprovalRejected, comments)
}

// decide is the single compare-and-set for pending-to-terminal transitions.
// A second decision attempt fails with ALREADY_DECIDED, never overwrites.
func (g *ApprovalGate) decide(requestID string, status ApprovalStatus, comments string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	request, ok := g.requests[requestID]
	if !ok {
		return types.Errorf(types.ErrNotFound, "approval request %q not found", requestID)
	}
	if request.Status != ApprovalPending {
		return types.Errorf(types.ErrAlreadyDecided,
			"approval request %q already %s", requestID, request.Status)
	}

	decidedAt := g.now()
	request.Status = status
	request.Comments = comments
	request.DecidedAt = &decidedAt

	if g.metrics != nil {
		g.metrics.RecordApprovalDecision(string(status))
	}

	g.logger.Info("approval decided",
		zap.String("request_id", requestID),
		zap.String("step_id", request.StepID),
		zap.String("decision", string(status)))

	return nil
}

// IsPending reports whether the request awaits a decision.
func (g *ApprovalGate) IsPending(requestID string) (bool, error) {
	return g.hasStatus(requestID, ApprovalPending)
}

// IsApproved reports whether the request was approved.
func (g *ApprovalGate) IsApproved(requestID string) (bool, error) {
	return g.hasStatus(requestID, ApprovalApproved)
}

// IsRejected reports whether the request was rejected.
func (g *ApprovalGate) IsRejected(requestID string) (bool, error) {
	return g.hasStatus(requestID, ApprovalRejected)
}

func (g *ApprovalGate) hasStatus(requestID string, status ApprovalStatus) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	request, ok := g.requests[requestID]
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "approval request %q not found", requestID)
	}
	return request.Status == status, nil
}

// GetRequestStatus returns a copy of the full request record, including
// preserved comments. The ledger keeps ownership of the stored entry.
func (g *ApprovalGate) GetRequestStatus(requestID string) (*ApprovalRequest, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	request, ok := g.requests[requestID]
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "approval request %q not found", requestID)
	}

	copied := *request
	if request.DecidedAt != nil {
		decidedAt := *request.DecidedAt
		copied.DecidedAt = &decidedAt
	}
	return &copied, nil
}

// IsExpired reports whether a still-pending request has outlived its
// timeout. Decided requests are never expired. A non-positive timeout
// means the request never expires.
func (g *ApprovalGate) IsExpired(requestID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	request, ok := g.requests[requestID]
	if !ok {
		return false, types.Errorf(types.ErrNotFound, "approval request %q not found", requestID)
	}
	return g.expired(request), nil
}

// ReapExpired rejects every expired pending request and returns their ids.
// Intended for a periodic external reaper; reaped requests end rejected so
// decision immutability holds.
func (g *ApprovalGate) ReapExpired() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var reaped []string
	for id, request := range g.requests {
		if request.Status != ApprovalPending || !g.expired(request) {
			continue
		}
		decidedAt := g.now()
		request.Status = ApprovalRejected
		request.Comments = "approval request timed out"
		request.DecidedAt = &decidedAt
		reaped = append(reaped, id)

		if g.metrics != nil {
			g.metrics.RecordApprovalDecision(string(ApprovalRejected))
		}

		g.logger.Warn("approval request expired",
			zap.String("request_id", id),
			zap.String("step_id", request.StepID))
	}
	return reaped
}

// expired must be called with the lock held.
func (g *ApprovalGate) expired(request *ApprovalRequest) bool {
	if request.Status != ApprovalPending || request.TimeoutMs <= 0 {
		return false
	}
	deadline := request.CreatedAt.Add(time.Duration(request.TimeoutMs) * time.Millisecond)
	return g.now().After(deadline)
}
