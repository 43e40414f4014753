package usecase

import (
	"context"
	"sync"

	"github.com/vitos/options_flow/internal/domain"
	"go.uber.org/zap"
)

type ScanState string

const (
	ScanIdle    ScanState = "idle"
	ScanRunning ScanState = "running"
	ScanDone    ScanState = "done"
	ScanFailed  ScanState = "failed"
)

// ScanStatus is a point-in-time snapshot of one scan kind.
type ScanStatus struct {
	State    ScanState `json:"state"`
	Running  bool      `json:"running"`
	Progress string    `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

type scanSlot struct {
	state    ScanState
	progress string
	err      error
	result   any
}

// ScanFunc executes one scan, reporting progress through report.
type ScanFunc func(ctx context.Context, report func(string)) (any, error)

// Supervisor owns one state slot per scan kind and enforces that at most
// one scan of a kind is in flight: Start is atomic start-if-idle, a second
// start while running is rejected with ErrScanInProgress.
type Supervisor struct {
	mu     sync.Mutex
	slots  map[string]*scanSlot
	logger *zap.Logger
}

func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		slots:  make(map[string]*scanSlot),
		logger: logger,
	}
}

// Start launches run in a supervised goroutine if no scan of this kind is
// running. The slot transitions Running -> Done or Running -> Failed.
func (s *Supervisor) Start(ctx context.Context, kind string, run ScanFunc) error {
	s.mu.Lock()
	slot, ok := s.slots[kind]
	if !ok {
		slot = &scanSlot{state: ScanIdle}
		s.slots[kind] = slot
	}
	if slot.state == ScanRunning {
		s.mu.Unlock()
		return domain.ErrScanInProgress
	}
	slot.state = ScanRunning
	slot.progress = "Starting scan..."
	slot.err = nil
	slot.result = nil
	s.mu.Unlock()

	s.logger.Info("scan started", zap.String("kind", kind))

	go func() {
		report := func(progress string) {
			s.mu.Lock()
			slot.progress = progress
			s.mu.Unlock()
		}

		result, err := run(ctx, report)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			slot.state = ScanFailed
			slot.err = err
			slot.progress = ""
			s.logger.Error("scan failed", zap.String("kind", kind), zap.Error(err))
			return
		}
		slot.state = ScanDone
		slot.result = result
		slot.progress = "Scan completed!"
		s.logger.Info("scan completed", zap.String("kind", kind))
	}()

	return nil
}

// Status snapshots the slot for a scan kind. Unknown kinds are Idle.
func (s *Supervisor) Status(kind string) ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[kind]
	if !ok {
		return ScanStatus{State: ScanIdle}
	}
	status := ScanStatus{
		State:    slot.state,
		Running:  slot.state == ScanRunning,
		Progress: slot.progress,
	}
	if slot.err != nil {
		status.Error = slot.err.Error()
	}
	return status
}

// Result returns the last completed result for a scan kind, if any.
func (s *Supervisor) Result(kind string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[kind]
	if !ok || slot.state != ScanDone {
		return nil, false
	}
	return slot.result, true
}
