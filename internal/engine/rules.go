package engine

import (
	"time"

	"github.com/DoyleJ11/shootout-backend/internal/ball"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

type Vec3 = ball.Vec3

type Rules struct {
	TurnTime            time.Duration
	RoundsPerSide       int
	TurnsBeforeRoleSwap int
	RoleSelectionTime   time.Duration
	AutoStart           bool

	CountdownFrom int
	CountdownStep time.Duration
	RoleSwapDelay time.Duration

	KickDelay      time.Duration
	ResultDelay    time.Duration
	CrowdCheerTime time.Duration
	CatchThreshold float64
	GoalThreshold  float64
	BallSpeed      float64 // world units per second

	WinnerCoins int
	LoserCoins  int

	Field Field
}

// Field is the world layout the match needs: where the ball sits, where each
// role stands and where the goal mouth is. Y is up, the beater shoots along +Z.
type Field struct {
	BallSpot     Vec3
	BeaterAnchor Vec3
	KeeperAnchor Vec3
	HandOffset   Vec3 // goalkeeper hand relative to the keeper anchor
	GoalCenter   Vec3 // ground-level center of the goal line
	GoalWidth    float64
	GoalHeight   float64
	MissLift     float64 // how far above the top row a missed shot flies
}

func DefaultRules() Rules {
	return Rules{
		TurnTime:            10 * time.Second,
		RoundsPerSide:       5,
		TurnsBeforeRoleSwap: 1,
		RoleSelectionTime:   15 * time.Second,
		AutoStart:           true,

		CountdownFrom: 3,
		CountdownStep: time.Second,
		RoleSwapDelay: 500 * time.Millisecond,

		KickDelay:      500 * time.Millisecond,
		ResultDelay:    2 * time.Second,
		CrowdCheerTime: 2 * time.Second,
		CatchThreshold: 0.7,
		GoalThreshold:  0.8,
		BallSpeed:      15,

		WinnerCoins: 10,
		LoserCoins:  3,

		Field: DefaultField(),
	}
}

func DefaultField() Field {
	return Field{
		BallSpot:     Vec3{Y: 0.11},
		BeaterAnchor: Vec3{Z: -1.5},
		KeeperAnchor: Vec3{Z: 10.8},
		HandOffset:   Vec3{Y: 1.2, Z: -0.3},
		GoalCenter:   Vec3{Z: 11},
		GoalWidth:    7.32,
		GoalHeight:   2.44,
		MissLift:     2,
	}
}

// RegulationTurns is the number of shots before sudden death can start.
func (r Rules) RegulationTurns() int { return r.RoundsPerSide * 2 }

func (f Field) Anchor(role roles.Role) Vec3 {
	switch role {
	case roles.Beater:
		return f.BeaterAnchor
	case roles.GoalKeeper:
		return f.KeeperAnchor
	}
	return Vec3{}
}

// Cell is the world position of one of the nine target cells in the goal
// mouth.
func (f Field) Cell(h Horizontal, v Vertical) Vec3 {
	p := f.GoalCenter
	switch h {
	case Left:
		p.X -= f.GoalWidth / 3
	case Right:
		p.X += f.GoalWidth / 3
	}
	switch v {
	case Top:
		p.Y += f.GoalHeight * 5 / 6
	case VMiddle:
		p.Y += f.GoalHeight / 2
	case Bottom:
		p.Y += f.GoalHeight / 6
	}
	return p
}
