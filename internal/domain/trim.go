package domain

import "math"

// MaxTrimSeconds is the longest clip that can be submitted for analysis
const MaxTrimSeconds = 20.0

// minSpanPercent keeps start strictly below end
const minSpanPercent = 1.0

// spanTolerance absorbs float rounding when checking the duration ceiling
const spanTolerance = 1e-9

// TrimHandle identifies one of the two range handles
type TrimHandle int

const (
	HandleStart TrimHandle = iota
	HandleEnd
)

func (h TrimHandle) String() string {
	if h == HandleEnd {
		return "end"
	}
	return "start"
}

// TrimRange is the selected sub-interval of a video, in percent of its duration
type TrimRange struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// maxSpan returns the widest allowed span in percent
func maxSpan(duration, maxSeconds float64) float64 {
	if duration <= 0 || maxSeconds <= 0 || maxSeconds >= duration {
		return 100
	}
	return maxSeconds / duration * 100
}

func minSpan(duration, maxSeconds float64) float64 {
	return math.Min(minSpanPercent, maxSpan(duration, maxSeconds))
}

// NewTrimRange returns the initial selection: from the beginning of the
// video up to the duration ceiling.
func NewTrimRange(duration, maxSeconds float64) TrimRange {
	return TrimRange{Start: 0, End: maxSpan(duration, maxSeconds)}
}

// Adjust moves one handle to value and returns the constrained range. The
// dragged handle keeps its position where possible; the other handle is
// pulled along so that the span never exceeds maxSeconds and start stays
// strictly below end. Both handles are clamped to [0,100].
func (r TrimRange) Adjust(handle TrimHandle, value, duration, maxSeconds float64) TrimRange {
	hi := maxSpan(duration, maxSeconds)
	lo := minSpan(duration, maxSeconds)
	start, end := r.Start, r.End

	switch handle {
	case HandleStart:
		start = clamp(value, 0, 100-lo)
		if end-start > hi {
			end = start + hi
		}
		if end-start < lo {
			end = start + lo
		}
		end = clamp(end, lo, 100)
	case HandleEnd:
		end = clamp(value, lo, 100)
		if end-start > hi {
			start = end - hi
		}
		if end-start < lo {
			start = end - lo
		}
		start = clamp(start, 0, 100-lo)
	}

	return TrimRange{Start: start, End: end}
}

// Valid reports whether the range satisfies 0 <= start < end <= 100 and the
// duration ceiling.
func (r TrimRange) Valid(duration, maxSeconds float64) bool {
	if r.Start < 0 || r.End > 100 || r.Start >= r.End {
		return false
	}
	if duration > 0 && maxSeconds > 0 {
		return r.Seconds(duration) <= maxSeconds+spanTolerance
	}
	return true
}

// Seconds returns the selected length in seconds
func (r TrimRange) Seconds(duration float64) float64 {
	return (r.End - r.Start) / 100 * duration
}

// OffsetSeconds returns the time offset of the given handle
func (r TrimRange) OffsetSeconds(handle TrimHandle, duration float64) float64 {
	if handle == HandleEnd {
		return r.End / 100 * duration
	}
	return r.Start / 100 * duration
}

// IsFull reports whether the range covers the whole video
func (r TrimRange) IsFull() bool {
	return r.Start <= 0 && r.End >= 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
