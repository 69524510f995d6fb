package engine

import (
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

type CommandType string

const (
	CmdSelectRole     CommandType = "SelectRole"
	CmdSubmitChoice   CommandType = "SubmitChoice"
	CmdStartMatch     CommandType = "StartMatch"
	CmdRequestRematch CommandType = "RequestRematch"
)

/*
	CmdSelectRole     -> EvtRolePreferred -> (both picked or window over) EvtRolesAssigned -> EvtCountdown
	CmdSubmitChoice   -> EvtChoiceSubmitted -> EvtWaiting | EvtWaitingCleared -> EvtTurnProcessed -> EvtKickStarted
	CmdStartMatch     -> EvtCountdown (only when AutoStart is off)
	CmdRequestRematch -> EvtRematchRequested -> (both sides) EvtRematchStarted -> EvtRolesSwapped -> EvtCountdown

	Everything after EvtKickStarted is driven by the tick:
	EvtBallLaunched + EvtDiveStarted -> EvtBallCaught | EvtGoalScored + EvtCrowdCheer -> EvtResultShown
	-> EvtBallReset + EvtCharactersReset -> EvtResultHidden -> EvtTurnStarted | EvtRolesSwapped | EvtSuddenDeath | EvtMatchEnded
*/

// Command is a request from a peer. Only the room holding the match applies
// it; peers never mutate state themselves.
type Command struct {
	Type       CommandType
	Role       roles.Role
	Horizontal Horizontal
	Vertical   Vertical
	Precision  precision.Zone
}

type EventType string

const (
	EvtPlayerJoined        EventType = "PlayerJoined"
	EvtPlayerLeft          EventType = "PlayerLeft"
	EvtRoleSelectionOpened EventType = "RoleSelectionOpened"
	EvtRolePreferred       EventType = "RolePreferred"
	EvtRolesAssigned       EventType = "RolesAssigned"
	EvtCountdown           EventType = "Countdown"
	EvtControlsEnabled     EventType = "ControlsEnabled"
	EvtTurnStarted         EventType = "TurnStarted"
	EvtChoiceSubmitted     EventType = "ChoiceSubmitted"
	EvtWaiting             EventType = "Waiting"
	EvtWaitingCleared      EventType = "WaitingCleared"
	EvtChoicesDefaulted    EventType = "ChoicesDefaulted"
	EvtTurnProcessed       EventType = "TurnProcessed"
	EvtKickStarted         EventType = "KickStarted"
	EvtBallLaunched        EventType = "BallLaunched"
	EvtDiveStarted         EventType = "DiveStarted"
	EvtBallCaught          EventType = "BallCaught"
	EvtGoalScored          EventType = "GoalScored"
	EvtCrowdCheer          EventType = "CrowdCheer"
	EvtCrowdIdle           EventType = "CrowdIdle"
	EvtResultShown         EventType = "ResultShown"
	EvtResultHidden        EventType = "ResultHidden"
	EvtBallReset           EventType = "BallReset"
	EvtCharactersReset     EventType = "CharactersReset"
	EvtRolesSwapped        EventType = "RolesSwapped"
	EvtSuddenDeath         EventType = "SuddenDeath"
	EvtMatchEnded          EventType = "MatchEnded"
	EvtCoinsAwarded        EventType = "CoinsAwarded"
	EvtRematchRequested    EventType = "RematchRequested"
	EvtRematchStarted      EventType = "RematchStarted"
	EvtMatchAborted        EventType = "MatchAborted"
)

// Event is a named state change broadcast to every peer. Which fields are set
// depends on Type.
type Event struct {
	Type    EventType  `json:"type"`
	Turn    int        `json:"turn"`
	PeerID  string     `json:"peer_id,omitempty"`
	Name    string     `json:"name,omitempty"`
	Role    roles.Role `json:"role,omitempty"`
	Value   int        `json:"value"`
	Text    string     `json:"text,omitempty"`
	Outcome Outcome    `json:"outcome,omitempty"`
	Shot    *Choice    `json:"shot,omitempty"`
	Dive    *Choice    `json:"dive,omitempty"`
	Target  *Vec3      `json:"target,omitempty"`
	Scores  *[2]int    `json:"scores,omitempty"`
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func CountEvents(events []Event, eventType EventType) int {
	n := 0
	for _, event := range events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}
