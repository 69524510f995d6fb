package engine

import (
	"github.com/DoyleJ11/shootout-backend/internal/ball"
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

// CheckSave reports whether the dive stops the shot. A perfect shot has to be
// read exactly; a medium one only needs the right column. Misses are never
// saved.
func CheckSave(shot, dive Choice) bool {
	switch shot.Precision {
	case precision.Perfect:
		return shot.Horizontal == dive.Horizontal && shot.Vertical == dive.Vertical
	case precision.Medium:
		return shot.Horizontal == dive.Horizontal
	default:
		return false
	}
}

func Resolve(shot, dive Choice) Outcome {
	if shot.Precision == precision.Miss {
		return OutcomeMiss
	}
	if CheckSave(shot, dive) {
		return OutcomeSaved
	}
	return OutcomeGoal
}

// BallTarget is where the ball is aimed for a given shot.
func BallTarget(f Field, shot Choice, rng roles.Rand) Vec3 {
	switch shot.Precision {
	case precision.Perfect:
		return f.Cell(shot.Horizontal, shot.Vertical)

	case precision.Medium:
		if shot.Horizontal == HMiddle {
			return f.Cell(shot.Horizontal, shot.Vertical)
		}
		top := f.Cell(shot.Horizontal, Top)
		bottom := f.Cell(shot.Horizontal, Bottom)
		return ball.Lerp(top, bottom, 0.5)

	case precision.Miss:
		col := shot.Horizontal
		if col == HMiddle {
			col = Left
			if rng.Intn(2) == 1 {
				col = Right
			}
		}
		return f.Cell(col, Top).Add(ball.Up.Scale(f.MissLift))
	}
	return f.Cell(shot.Horizontal, shot.Vertical)
}

// DiveDirection is the animation index for a dive: 0 left-top, 1 left-bottom,
// 2 center, 3 right-top, 4 right-bottom. Middle-row dives to the sides use
// the center clip.
func DiveDirection(h Horizontal, v Vertical) int {
	switch {
	case h == Left && v == Top:
		return 0
	case h == Left && v == Bottom:
		return 1
	case h == Right && v == Top:
		return 3
	case h == Right && v == Bottom:
		return 4
	}
	return 2
}

func randomChoice(rng roles.Rand, withPrecision bool) Choice {
	c := Choice{
		Horizontal: Horizontals[rng.Intn(len(Horizontals))],
		Vertical:   Verticals[rng.Intn(len(Verticals))],
		Precision:  precision.Medium,
		HasChosen:  true,
	}
	if withPrecision {
		c.Precision = precision.Zones[rng.Intn(len(precision.Zones))]
	}
	return c
}
