package observability

import (
	"log/slog"
	"sync"
)

// ScoreDriftMonitor watches evaluation scores per question domain. The
// first full window freezes a baseline mean; after that, a rolling-window
// mean drifting past the threshold logs a warning and bumps the drift
// counter. A judging model that suddenly scores a domain much higher or
// lower than it used to is usually a model or prompt regression, not a
// change in candidates.
type ScoreDriftMonitor struct {
	baseline   map[string]float64
	recent     map[string][]float64
	windowSize int
	threshold  float64
	mu         sync.RWMutex
}

// NewScoreDriftMonitor creates a monitor with the given window size and
// absolute drift threshold on [0,1] scores.
func NewScoreDriftMonitor(windowSize int, threshold float64) *ScoreDriftMonitor {
	if windowSize <= 0 {
		windowSize = 20
	}
	if threshold <= 0 {
		threshold = 0.15
	}
	return &ScoreDriftMonitor{
		baseline:   make(map[string]float64),
		recent:     make(map[string][]float64),
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// UpdateBaseline pins the baseline mean for a domain explicitly.
func (m *ScoreDriftMonitor) UpdateBaseline(dom string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline[dom] = score
}

// RecordScore adds one score and checks for drift once the window is full.
func (m *ScoreDriftMonitor) RecordScore(dom string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent[dom] = append(m.recent[dom], score)
	if len(m.recent[dom]) > m.windowSize {
		m.recent[dom] = m.recent[dom][1:]
	}
	if len(m.recent[dom]) < m.windowSize {
		return
	}

	mean := meanOf(m.recent[dom])
	base, ok := m.baseline[dom]
	if !ok {
		// Self-calibrate: the first full window becomes the baseline.
		m.baseline[dom] = mean
		return
	}

	drift := mean - base
	if drift < 0 {
		drift = -drift
	}
	if drift > m.threshold {
		slog.Warn("evaluation score drift detected",
			slog.String("domain", dom),
			slog.Float64("baseline", base),
			slog.Float64("window_mean", mean),
			slog.Float64("drift", drift),
			slog.Float64("threshold", m.threshold))
		ScoreDriftEventsTotal.WithLabelValues(dom).Inc()
	}
}

// Drift returns the current absolute drift for a domain; zero until both
// a baseline and a full window exist.
func (m *ScoreDriftMonitor) Drift(dom string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	base, ok := m.baseline[dom]
	if !ok || len(m.recent[dom]) == 0 {
		return 0
	}
	d := meanOf(m.recent[dom]) - base
	if d < 0 {
		d = -d
	}
	return d
}

// Baseline returns the frozen baseline mean for a domain.
func (m *ScoreDriftMonitor) Baseline(dom string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.baseline[dom]
	return v, ok
}

// Reset clears all baselines and windows.
func (m *ScoreDriftMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline = make(map[string]float64)
	m.recent = make(map[string][]float64)
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// defaultScoreDrift is the process-wide monitor the evaluator feeds.
var defaultScoreDrift = NewScoreDriftMonitor(20, 0.15)

// RecordScoreDrift records one evaluation score for drift monitoring.
func RecordScoreDrift(dom string, score float64) {
	defaultScoreDrift.RecordScore(dom, score)
}
