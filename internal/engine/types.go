package engine

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

var ErrUnknownPeer = errors.New("unknown peer")
var ErrNotYourRole = errors.New("peer does not hold that role")
var ErrNotHost = errors.New("only the host can do that")
var ErrRoomFull = errors.New("room is full")
var ErrMatchInProgress = errors.New("match already in progress")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrInvalidChoice = errors.New("invalid choice")

type Horizontal string

const (
	Left    Horizontal = "left"
	HMiddle Horizontal = "middle"
	Right   Horizontal = "right"
)

type Vertical string

const (
	Top     Vertical = "top"
	VMiddle Vertical = "middle"
	Bottom  Vertical = "bottom"
)

var Horizontals = []Horizontal{Left, HMiddle, Right}
var Verticals = []Vertical{Top, VMiddle, Bottom}

func ParseHorizontal(s string) (Horizontal, error) {
	switch Horizontal(s) {
	case Left, HMiddle, Right:
		return Horizontal(s), nil
	}
	return "", fmt.Errorf("%w: horizontal %q", ErrInvalidChoice, s)
}

func ParseVertical(s string) (Vertical, error) {
	switch Vertical(s) {
	case Top, VMiddle, Bottom:
		return Vertical(s), nil
	}
	return "", fmt.Errorf("%w: vertical %q", ErrInvalidChoice, s)
}

// Choice is one role's pick for the current turn. Precision only means
// something for the beater; dives are stored as Medium.
type Choice struct {
	Horizontal Horizontal     `json:"horizontal"`
	Vertical   Vertical       `json:"vertical"`
	Precision  precision.Zone `json:"precision"`
	HasChosen  bool           `json:"has_chosen"`
}

func unchosen() Choice {
	return Choice{Horizontal: HMiddle, Vertical: VMiddle, Precision: precision.Medium}
}

type Outcome string

const (
	OutcomeNone  Outcome = ""
	OutcomeGoal  Outcome = "goal"
	OutcomeSaved Outcome = "saved"
	OutcomeMiss  Outcome = "miss"
)

// Phase is the match-level phase. Exactly one holds at a time.
type Phase string

const (
	PhaseWaitingPlayers Phase = "waiting_players"
	PhaseSelectingRoles Phase = "selecting_roles"
	PhaseReady          Phase = "ready"
	PhaseCountingDown   Phase = "counting_down"
	PhaseActive         Phase = "active"
	PhaseRoleSwap       Phase = "role_swap"
	PhaseEnded          Phase = "ended"
	PhaseAborted        Phase = "aborted"
)

type TurnState string

const (
	TurnWaitingChoices TurnState = "waiting_choices"
	TurnExecutingKick  TurnState = "executing_kick"
	TurnExecutingDive  TurnState = "executing_dive"
	TurnShowingResult  TurnState = "showing_result"
	TurnCompleted      TurnState = "completed"
)

// Slot is one of the two player seats.
type Slot struct {
	PeerID     string     `json:"peer_id"`
	Name       string     `json:"name"`
	Preference roles.Role `json:"preference"`
	PickedRole bool       `json:"picked_role"`
	Role       roles.Role `json:"role"`
	Position   Vec3       `json:"position"`
}

func (s Slot) Occupied() bool { return s.PeerID != "" }
