package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eyedocs/caredesk/internal/logging"
	"github.com/google/uuid"
)

// simulationPrefix makes synthetic identifiers structurally distinguishable
// from genuine 15/18-character remote ids.
const simulationPrefix = "SIM_"

// Simulator produces deterministic synthetic outcomes when no usable
// session exists, so callers receive the same contract whether or not the
// CRM is reachable. It never fails and completes in bounded time.
type Simulator struct {
	logger logging.Logger

	// delay mimics remote latency for UI consistency. Zero in tests.
	delay time.Duration
}

func NewSimulator(delay time.Duration, logger logging.Logger) *Simulator {
	return &Simulator{logger: logger, delay: delay}
}

// Simulate satisfies a sync attempt with a synthetic success. When the local
// record already carries a remote id it is passed through unchanged, so a
// simulated update does not invent a second identifier for the same record.
func (s *Simulator) Simulate(ctx context.Context, rec ReferralRecord, action Action) Outcome {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}

	remoteID := rec.RemoteID
	if remoteID == "" && action != ActionDeleted {
		remoteID = NewSimulationID()
	}

	s.logger.Info(ctx, "simulated CRM sync",
		"referralNumber", rec.ReferralNumber, "action", string(action), "remoteId", remoteID)

	return Outcome{
		Success:  true,
		RemoteID: remoteID,
		Mode:     ModeSimulation,
		Action:   action,
	}
}

// NewSimulationID returns a process-unique synthetic identifier,
// time-ordered with a random suffix.
func NewSimulationID() string {
	return fmt.Sprintf("%s%d_%s", simulationPrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}

// IsSimulationID reports whether an identifier was produced by the
// simulation fallback.
func IsSimulationID(id string) bool {
	return strings.HasPrefix(id, simulationPrefix)
}
