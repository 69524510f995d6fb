package roles

import "fmt"

type Role string

const (
	None       Role = "none"
	Beater     Role = "beater"
	GoalKeeper Role = "goalkeeper"
)

// Rand is the slice of math/rand the assignment needs; *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case None, Beater, GoalKeeper:
		return Role(s), nil
	case "":
		return None, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Opposite() Role {
	switch r {
	case Beater:
		return GoalKeeper
	case GoalKeeper:
		return Beater
	default:
		return None
	}
}

func (r Role) Playable() bool { return r == Beater || r == GoalKeeper }

// Assign turns two class preferences into a bijection onto {Beater, GoalKeeper}.
//
//	distinct picks     -> as requested
//	same pick          -> coin flip for who keeps it
//	nobody picked      -> coin flip
//	one side picked    -> chooser keeps it, the other gets the remainder
//
// rng is only consulted when the preferences leave the outcome open.
func Assign(prefs [2]Role, rng Rand) [2]Role {
	a, b := normalize(prefs[0]), normalize(prefs[1])

	switch {
	case a != None && b != None && a != b:
		return [2]Role{a, b}
	case a != None && b == None:
		return [2]Role{a, a.Opposite()}
	case a == None && b != None:
		return [2]Role{b.Opposite(), b}
	}

	// Same pick or no pick at all.
	contested := a
	if contested == None {
		contested = Beater
	}
	if rng.Intn(2) == 0 {
		return [2]Role{contested, contested.Opposite()}
	}
	return [2]Role{contested.Opposite(), contested}
}

// Swap exchanges two playable roles; anything else is returned untouched.
func Swap(assigned [2]Role) [2]Role {
	if !assigned[0].Playable() || !assigned[1].Playable() {
		return assigned
	}
	return [2]Role{assigned[0].Opposite(), assigned[1].Opposite()}
}

func normalize(r Role) Role {
	if r.Playable() {
		return r
	}
	return None
}
