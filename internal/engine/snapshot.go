package engine

import (
	"math"
	"time"

	"github.com/DoyleJ11/shootout-backend/internal/ball"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

// Snapshot is the replicated view of a match. It is comparable so the room can
// tell whether anything changed since the last broadcast. Pending choices are
// only reported as made or not; their contents stay on the server until the
// turn is processed.
type Snapshot struct {
	Phase           Phase      `json:"phase"`
	TurnState       TurnState  `json:"turn_state"`
	Turn            int        `json:"turn"`
	Scores          [2]int     `json:"scores"`
	SuddenDeath     bool       `json:"sudden_death"`
	Countdown       int        `json:"countdown"`
	TurnSecondsLeft int        `json:"turn_seconds_left"`
	Slots           [2]Slot    `json:"slots"`
	BeaterChose     bool       `json:"beater_chose"`
	KeeperChose     bool       `json:"keeper_chose"`
	Outcome         Outcome    `json:"outcome,omitempty"`
	Latches         Latches    `json:"latches"`
	Ball            ball.State `json:"ball"`
	Rematch         [2]bool    `json:"rematch"`
	Winner          string     `json:"winner,omitempty"`
}

func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Phase:           m.phase,
		TurnState:       m.exec.State(),
		Turn:            m.turn,
		Scores:          m.scores,
		SuddenDeath:     m.suddenDeath,
		TurnSecondsLeft: int(math.Ceil(m.RemainingTurnTime().Seconds())),
		Slots:           m.slots,
		BeaterChose:     m.beaterChoice.HasChosen,
		KeeperChose:     m.keeperChoice.HasChosen,
		Outcome:         m.exec.Outcome(),
		Latches:         m.exec.Latches(),
		Ball:            m.ball.State(),
		Rematch:         m.rematch,
	}
	if m.phase == PhaseCountingDown {
		s.Countdown = m.countdown
	}
	if w, ok := m.Winner(); ok {
		s.Winner = w
	}
	return s
}

// Mirror is a peer's read-only copy of the match. It only ever moves forward:
// updates older than the one it holds are ignored.
type Mirror struct {
	version int
	snap    Snapshot
	seen    bool
}

// Apply stores snap if version is newer than what the mirror holds and reports
// whether it did.
func (r *Mirror) Apply(version int, snap Snapshot) bool {
	if r.seen && version <= r.version {
		return false
	}
	r.version = version
	r.snap = snap
	r.seen = true
	return true
}

func (r *Mirror) Version() int { return r.version }

func (r *Mirror) Snapshot() Snapshot { return r.snap }

func (r *Mirror) CurrentPhase() Phase { return r.snap.Phase }

func (r *Mirror) Score() [2]int { return r.snap.Scores }

func (r *Mirror) Turn() int { return r.snap.Turn }

func (r *Mirror) RemainingTurnTime() time.Duration {
	return time.Duration(r.snap.TurnSecondsLeft) * time.Second
}

func (r *Mirror) CurrentRole(peerID string) roles.Role {
	for _, s := range r.snap.Slots {
		if s.PeerID == peerID && peerID != "" {
			return s.Role
		}
	}
	return roles.None
}

// Side returns the slot index the peer sits in.
func (r *Mirror) Side(peerID string) (int, bool) {
	for i, s := range r.snap.Slots {
		if s.PeerID == peerID && peerID != "" {
			return i, true
		}
	}
	return 0, false
}
