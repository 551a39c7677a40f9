package domain

import (
	"math/rand/v2"
	"testing"
)

func TestNewTrimRange(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		wantEnd  float64
	}{
		{"long video capped at 20s", 80, 25},
		{"short video uses whole clip", 12, 100},
		{"unknown duration", 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTrimRange(tt.duration, MaxTrimSeconds)
			if r.Start != 0 || r.End != tt.wantEnd {
				t.Errorf("NewTrimRange(%v) = %+v, want {0 %v}", tt.duration, r, tt.wantEnd)
			}
			if !r.Valid(tt.duration, MaxTrimSeconds) {
				t.Errorf("NewTrimRange(%v) produced invalid range %+v", tt.duration, r)
			}
		})
	}
}

func TestTrimRange_Adjust(t *testing.T) {
	const duration = 100.0 // 20s ceiling == 20%

	tests := []struct {
		name      string
		from      TrimRange
		handle    TrimHandle
		value     float64
		wantStart float64
		wantEnd   float64
	}{
		{"end dragged past ceiling pulls start", TrimRange{0, 20}, HandleEnd, 50, 30, 50},
		{"start dragged past ceiling pulls end", TrimRange{50, 60}, HandleStart, 10, 10, 30},
		{"start dragged beyond end pushes end", TrimRange{10, 20}, HandleStart, 40, 40, 41},
		{"end dragged below start pushes start", TrimRange{40, 50}, HandleEnd, 30, 29, 30},
		{"end clamped to 100", TrimRange{80, 90}, HandleEnd, 150, 80, 100},
		{"start clamped to 0", TrimRange{5, 15}, HandleStart, -20, 0, 15},
		{"start at 100 keeps a minimum span", TrimRange{70, 80}, HandleStart, 100, 99, 100},
		{"within ceiling nothing else moves", TrimRange{10, 20}, HandleEnd, 25, 10, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.Adjust(tt.handle, tt.value, duration, MaxTrimSeconds)
			if !almostEqual(got.Start, tt.wantStart) || !almostEqual(got.End, tt.wantEnd) {
				t.Errorf("Adjust() = %+v, want {%v %v}", got, tt.wantStart, tt.wantEnd)
			}
			if !got.Valid(duration, MaxTrimSeconds) {
				t.Errorf("Adjust() produced invalid range %+v", got)
			}
		})
	}
}

func TestTrimRange_AdjustKeepsInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	durations := []float64{0, 5, 20, 21, 37.5, 90, 600}

	for _, duration := range durations {
		r := NewTrimRange(duration, MaxTrimSeconds)
		for i := 0; i < 2000; i++ {
			handle := HandleStart
			if rng.IntN(2) == 1 {
				handle = HandleEnd
			}
			value := rng.Float64()*140 - 20
			r = r.Adjust(handle, value, duration, MaxTrimSeconds)
			if !r.Valid(duration, MaxTrimSeconds) {
				t.Fatalf("duration %v: invariant broken after moving %s to %v: %+v", duration, handle, value, r)
			}
		}
	}
}

func TestTrimRange_OffsetSeconds(t *testing.T) {
	r := TrimRange{Start: 25, End: 50}

	if got := r.OffsetSeconds(HandleStart, 40); got != 10 {
		t.Errorf("OffsetSeconds(start) = %v, want 10", got)
	}
	if got := r.OffsetSeconds(HandleEnd, 40); got != 20 {
		t.Errorf("OffsetSeconds(end) = %v, want 20", got)
	}
	if got := r.Seconds(40); got != 10 {
		t.Errorf("Seconds() = %v, want 10", got)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
