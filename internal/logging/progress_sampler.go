package logging

import (
	"math"
	"strings"
)

// ProgressSampler thins transfer progress events to one per stage change and
// one per percentage step within a stage.
type ProgressSampler struct {
	step  float64
	stage string
	mark  float64
}

// NewProgressSampler returns a sampler that logs whenever progress reaches a
// new multiple of step. Steps outside (0, 100] fall back to 25.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 25
	}
	return &ProgressSampler{step: step, mark: -1}
}

// ShouldLog reports whether a progress event for stage at percent is worth
// logging. A negative percent means unknown and only stage changes count. A
// nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	changed := stage != "" && stage != s.stage
	if changed {
		s.stage = stage
		s.mark = -1
	}
	if percent < 0 {
		return changed
	}
	floor := math.Floor(math.Min(percent, 100)/s.step) * s.step
	if floor > s.mark {
		s.mark = floor
		return true
	}
	return changed
}
