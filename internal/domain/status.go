package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode decides how the host's readiness relates to the startup task.
type Mode int

const (
	// ModeCooperative marks the host ready immediately; startup runs alongside requests.
	ModeCooperative Mode = iota
	// ModeGate holds readiness until the startup task has finished.
	ModeGate
)

func (m Mode) String() string {
	switch m {
	case ModeGate:
		return "gate"
	case ModeCooperative:
		return "cooperative"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "gate"/"blocking" and "cooperative"/"non-blocking".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gate", "blocking":
		return ModeGate, nil
	case "cooperative", "non-blocking", "nonblocking":
		return ModeCooperative, nil
	default:
		return ModeCooperative, fmt.Errorf("unknown scheduling mode %q", s)
	}
}

// Readiness is the host-facing readiness signal.
type Readiness int32

const (
	ReadinessNotStarted Readiness = iota
	ReadinessInProgress
	ReadinessReady
)

func (r Readiness) String() string {
	switch r {
	case ReadinessNotStarted:
		return "not-started"
	case ReadinessInProgress:
		return "in-progress"
	case ReadinessReady:
		return "ready"
	default:
		return fmt.Sprintf("readiness(%d)", int32(r))
	}
}

// OrchestrationState tracks the startup task.
//
//	NotStarted -> RunningChecks -> RunningSync -> Completed
//	RunningChecks | RunningSync -> Failed
type OrchestrationState int32

const (
	StateNotStarted OrchestrationState = iota
	StateRunningChecks
	StateRunningSync
	StateCompleted
	StateFailed
)

func (s OrchestrationState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunningChecks:
		return "running-checks"
	case StateRunningSync:
		return "running-sync"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s OrchestrationState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// HealthOutcome accumulates across the health check sequence.
type HealthOutcome struct {
	ChecksCompleted   int `json:"checks_completed"`
	ExternalCallsMade int `json:"external_calls_made"`
}

// SyncResult describes one sync engine invocation. It is not persisted.
type SyncResult struct {
	RunID               string        `json:"run_id"`
	StartedAt           time.Time     `json:"started_at"`
	CompletedAt         time.Time     `json:"completed_at"`
	Duration            time.Duration `json:"duration"`
	PagesFetched        int           `json:"pages_fetched"`
	TotalProductsSynced int64         `json:"total_products_synced"`
	StopReason          StopReason    `json:"stop_reason"`
	Error               string        `json:"error,omitempty"`
}

// StopReason records why the sync loop ended.
type StopReason string

const (
	StopTargetReached     StopReason = "target_reached"
	StopSourceExhausted   StopReason = "source_exhausted"
	StopSourceUnavailable StopReason = "source_unavailable"
	StopPageLimit         StopReason = "page_limit"
	StopCancelled         StopReason = "cancelled"
	StopFailed            StopReason = "failed"
)
