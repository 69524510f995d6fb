package ball

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// State is the replicated view of the ball.
type State struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	Progress float64 `json:"progress"`
	Moving   bool    `json:"moving"`
	Attached bool    `json:"attached"`
}

// Ball flies in a straight line from where it was kicked to its target at a
// constant speed. Progress is the normalized distance covered, so every
// consumer can key off it regardless of how far the target is.
type Ball struct {
	initial  Vec3
	start    Vec3
	target   Vec3
	position Vec3
	speed    float64

	progress float64
	moving   bool
	attached bool

	flight *gween.Tween
}

func New(initial Vec3, speed float64) *Ball {
	return &Ball{
		initial:  initial,
		start:    initial,
		position: initial,
		target:   initial,
		speed:    speed,
	}
}

// Shoot launches the ball from its current position.
func (b *Ball) Shoot(target Vec3) {
	b.start = b.position
	b.target = target
	b.progress = 0
	b.moving = true
	b.attached = false

	dist := b.start.Distance(target)
	if dist <= 0 || b.speed <= 0 {
		// Nothing to travel; land immediately.
		b.flight = nil
		b.progress = 1
		b.position = target
		b.moving = false
		return
	}
	b.flight = gween.New(0, 1, float32(dist/b.speed), ease.Linear)
}

// Step advances the flight by dt seconds.
func (b *Ball) Step(dt float64) {
	if b.attached || !b.moving || b.flight == nil || dt <= 0 {
		return
	}

	current, finished := b.flight.Update(float32(dt))
	p := float64(current)
	if finished || p > 1 {
		p = 1
	}
	if p < b.progress {
		p = b.progress
	}
	b.progress = p
	b.position = Lerp(b.start, b.target, p)

	if finished {
		b.moving = false
	}
}

// Attach parks the ball in the goalkeeper's hands: motion stops and the flight
// counts as complete.
func (b *Ball) Attach(anchor Vec3) {
	b.attached = true
	b.moving = false
	b.progress = 1
	b.position = anchor
	b.flight = nil
}

// Reset detaches the ball and puts it back on the spot.
func (b *Ball) Reset() {
	b.attached = false
	b.moving = false
	b.progress = 0
	b.position = b.initial
	b.start = b.initial
	b.target = b.initial
	b.flight = nil
}

func (b *Ball) Progress() float64 { return b.progress }
func (b *Ball) Moving() bool      { return b.moving }
func (b *Ball) Attached() bool    { return b.attached }
func (b *Ball) Position() Vec3    { return b.position }
func (b *Ball) Initial() Vec3     { return b.initial }

func (b *Ball) State() State {
	return State{
		Position: b.position,
		Target:   b.target,
		Progress: b.progress,
		Moving:   b.moving,
		Attached: b.attached,
	}
}
