package precision

import "fmt"

type Zone string

const (
	Perfect Zone = "perfect"
	Medium  Zone = "medium"
	Miss    Zone = "miss"
)

var Zones = []Zone{Perfect, Medium, Miss}

func ParseZone(s string) (Zone, error) {
	switch Zone(s) {
	case Perfect, Medium, Miss:
		return Zone(s), nil
	default:
		return "", fmt.Errorf("unknown precision zone %q", s)
	}
}

// Bar oscillates a scale between MinScale and MaxScale. The zone read at input
// time is the shot's precision: the smaller the scale, the better the shot.
type Bar struct {
	MinScale     float64
	MaxScale     float64
	Speed        float64 // scale units per second
	PerfectBelow float64 // normalized upper bound for Perfect
	MediumBelow  float64 // normalized upper bound for Medium

	running bool
	growing bool
	scale   float64
}

func NewBar() *Bar {
	return &Bar{
		MinScale:     0.3,
		MaxScale:     1.5,
		Speed:        1,
		PerfectBelow: 0.4,
		MediumBelow:  0.7,
		scale:        1.5,
	}
}

// Start restarts the oscillation from the largest scale, shrinking.
func (b *Bar) Start() {
	b.running = true
	b.growing = false
	b.scale = b.MaxScale
}

func (b *Bar) Stop() { b.running = false }

func (b *Bar) Running() bool { return b.running }

// Advance moves the bar by dt seconds. Large steps bounce off both ends as many
// times as needed.
func (b *Bar) Advance(dt float64) {
	if !b.running || dt <= 0 || b.MaxScale <= b.MinScale || b.Speed <= 0 {
		return
	}

	remaining := b.Speed * dt
	for remaining > 0 {
		if b.growing {
			room := b.MaxScale - b.scale
			if remaining < room {
				b.scale += remaining
				return
			}
			b.scale = b.MaxScale
			b.growing = false
			remaining -= room
		} else {
			room := b.scale - b.MinScale
			if remaining < room {
				b.scale -= remaining
				return
			}
			b.scale = b.MinScale
			b.growing = true
			remaining -= room
		}
	}
}

func (b *Bar) Scale() float64 { return b.scale }

func (b *Bar) Normalized() float64 {
	if b.MaxScale <= b.MinScale {
		return 0
	}
	n := (b.scale - b.MinScale) / (b.MaxScale - b.MinScale)
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// Zone reports the current precision. A stopped bar reads as Medium.
func (b *Bar) Zone() Zone {
	if !b.running {
		return Medium
	}
	n := b.Normalized()
	switch {
	case n <= b.PerfectBelow:
		return Perfect
	case n <= b.MediumBelow:
		return Medium
	default:
		return Miss
	}
}
