package engine

// LoadFunc supplies an instantaneous, normalized load sample in [0, 1].
// The engine never measures load itself; the host process decides what
// "load" means (CPU, queue depth, error rate).
type LoadFunc func() float64

// adaptiveController rescales limiter thresholds under load. It is a pure
// function of the current sample and holds no state.
type adaptiveController struct {
	load      LoadFunc
	lowWater  float64
	highWater float64
}

// effectiveLimit returns the base limit below the low watermark, half of it
// between the watermarks, and a fifth of it at or above the high watermark.
// The result is always at least 1 and never more than base.
func (ac *adaptiveController) effectiveLimit(base int) int {
	if base < 1 {
		return 1
	}
	if ac.load == nil {
		return base
	}

	limit := base
	switch load := ac.load(); {
	case load >= ac.highWater:
		limit = base / 5
	case load >= ac.lowWater:
		limit = base / 2
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
