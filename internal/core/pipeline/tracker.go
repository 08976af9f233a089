package pipeline

import "log/slog"

// StepTracker publishes processing progress for observability. Implementations
// must never affect pipeline correctness; the orchestrator calls it best-effort
// and ignores nothing it says.
type StepTracker interface {
	StartStep(name string)
	UpdateStepProgress(name string, percent int, message string)
	CompleteStep(name string, stats map[string]any)
	FailStep(name string, message string)
}

// NewSlogTracker returns a tracker that reports steps through slog.
func NewSlogTracker(logger *slog.Logger) StepTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogTracker{logger: logger}
}

type slogTracker struct {
	logger *slog.Logger
}

func (t *slogTracker) StartStep(name string) {
	t.logger.Info("step started", "step", name)
}

func (t *slogTracker) UpdateStepProgress(name string, percent int, message string) {
	t.logger.Debug("step progress", "step", name, "percent", percent, "message", message)
}

func (t *slogTracker) CompleteStep(name string, stats map[string]any) {
	args := []any{"step", name}
	for k, v := range stats {
		args = append(args, k, v)
	}
	t.logger.Info("step completed", args...)
}

func (t *slogTracker) FailStep(name string, message string) {
	t.logger.Error("step failed", "step", name, "message", message)
}

// nopTracker is used when no tracker is configured.
type nopTracker struct{}

func (nopTracker) StartStep(string)                       {}
func (nopTracker) UpdateStepProgress(string, int, string) {}
func (nopTracker) CompleteStep(string, map[string]any)    {}
func (nopTracker) FailStep(string, string)                {}
