package pipeline

import (
	"log/slog"
	"time"
)

// Monitor observes stage execution.
type Monitor interface {
	StageStarted(stage string, state State)
	StageFinished(stage string, state State, elapsed time.Duration, err error)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (noopMonitor) StageStarted(_ string, _ State)                          {}
func (noopMonitor) StageFinished(_ string, _ State, _ time.Duration, _ error) {}

// LogMonitor writes one debug record per finished stage.
type LogMonitor struct {
	logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor logging to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "pipeline-trace")}
}

func (m *LogMonitor) StageStarted(stage string, state State) {
	m.logger.Debug("stage started", "stage", stage, "session", state.SessionID)
}

func (m *LogMonitor) StageFinished(stage string, state State, elapsed time.Duration, err error) {
	if err != nil {
		m.logger.Warn("stage failed", "stage", stage, "session", state.SessionID, "elapsed", elapsed, "err", err)
		return
	}
	m.logger.Debug("stage finished",
		"stage", stage,
		"session", state.SessionID,
		"elapsed", elapsed,
		"sentiment", state.Sentiment,
		"history", len(state.History),
		"context", len(state.Context),
		"responseLength", len(state.Response),
	)
}
