package observability

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Chat turn phases observed by the chat service. StageTurnTotal is recorded
// once per answered turn, so its sample count is also the turn count.
const (
	StagePersistUser  = "persist_user"
	StageContextReady = "context_ready"
	StageCompletion   = "completion"
	StagePersistReply = "persist_reply"
	StageTurnTotal    = "turn_total"

	IndicatorFallbackReply = "fallback_reply"
	IndicatorEmptyReply    = "empty_reply"
)

// p95 budgets in milliseconds. Unlisted phases are unbudgeted.
var turnBudgetsMS = map[string]float64{
	StagePersistUser:  150,
	StageContextReady: 250,
	StageCompletion:   6000,
	StagePersistReply: 150,
	StageTurnTotal:    7000,
}

// TurnStageStats summarizes the retained samples of one chat turn phase.
type TurnStageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	MaxMS       float64 `json:"max_ms"`
	BudgetP95MS float64 `json:"budget_p95_ms,omitempty"`
	OverBudget  int     `json:"over_budget,omitempty"`
}

type TurnIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TurnStageSnapshot is served on /v1/perf/latency. Turns and FallbackPct
// cover the whole process lifetime; Stages only the rolling window.
type TurnStageSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Turns       int              `json:"turns"`
	FallbackPct float64          `json:"fallback_pct"`
	Stages      []TurnStageStats `json:"stages"`
	Indicators  []TurnIndicator  `json:"indicators,omitempty"`
}

type chatTurnWindow struct {
	mu         sync.Mutex
	size       int
	phases     map[string]*phaseRing
	indicators map[string]int
	turns      int
}

// phaseRing keeps the newest len(values) samples of a phase.
type phaseRing struct {
	values  []float64
	written int
	last    float64
}

func (r *phaseRing) add(ms float64) {
	r.values[r.written%len(r.values)] = ms
	r.written++
	r.last = ms
}

func (r *phaseRing) sorted() []float64 {
	out := slices.Clone(r.values[:min(r.written, len(r.values))])
	slices.Sort(out)
	return out
}

func newChatTurnWindow(size int) *chatTurnWindow {
	if size <= 0 {
		size = 256
	}
	return &chatTurnWindow{
		size:       size,
		phases:     make(map[string]*phaseRing),
		indicators: make(map[string]int),
	}
}

func (w *chatTurnWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.phases[stage]
	if !ok {
		ring = &phaseRing{values: make([]float64, w.size)}
		w.phases[stage] = ring
	}
	ring.add(ms)
	if stage == StageTurnTotal {
		w.turns++
	}
}

func (w *chatTurnWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *chatTurnWindow) Snapshot() TurnStageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := TurnStageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Turns:       w.turns,
		Stages:      make([]TurnStageStats, 0, len(w.phases)),
	}
	if w.turns > 0 {
		snap.FallbackPct = round2(100 * float64(w.indicators[IndicatorFallbackReply]) / float64(w.turns))
	}
	for _, stage := range slices.Sorted(maps.Keys(w.phases)) {
		if st, ok := phaseStats(stage, w.phases[stage]); ok {
			snap.Stages = append(snap.Stages, st)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(w.indicators)) {
		if n := w.indicators[name]; n > 0 {
			snap.Indicators = append(snap.Indicators, TurnIndicator{Name: name, Count: n})
		}
	}
	return snap
}

func phaseStats(stage string, ring *phaseRing) (TurnStageStats, bool) {
	samples := ring.sorted()
	if len(samples) == 0 {
		return TurnStageStats{}, false
	}
	budget := turnBudgetsMS[stage]
	sum, over := 0.0, 0
	for _, v := range samples {
		sum += v
		if budget > 0 && v > budget {
			over++
		}
	}
	return TurnStageStats{
		Stage:       stage,
		Samples:     len(samples),
		LastMS:      round2(ring.last),
		AvgMS:       round2(sum / float64(len(samples))),
		P50MS:       round2(quantile(samples, 0.50)),
		P95MS:       round2(quantile(samples, 0.95)),
		MaxMS:       round2(samples[len(samples)-1]),
		BudgetP95MS: budget,
		OverBudget:  over,
	}, true
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	q = max(0, min(1, q))
	idx := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
