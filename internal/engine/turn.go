package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/ball"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

// Kick carries everything the executor needs for one shot.
type Kick struct {
	Turn   int
	Shot   Choice
	Dive   Choice
	Beater Slot
	Keeper Slot

	// KeeperHand is where a caught ball ends up. Nil when the goalkeeper could
	// not be resolved; the catch then happens wherever the ball is.
	KeeperHand *Vec3
}

// Latches are the per-turn one-shot flags. Each side effect they guard fires
// at most once per turn.
type Latches struct {
	BallCaught         bool `json:"ball_caught"`
	GoalCounted        bool `json:"goal_counted"`
	ResultMessageShown bool `json:"result_message_shown"`
}

// TurnExecutor plays one shot out: kick, flight, outcome, reset. Outcome side
// effects are keyed off the ball's travel progress rather than wall time so
// they line up with the flight however long it is.
type TurnExecutor struct {
	rules Rules
	ball  *ball.Ball
	rng   roles.Rand
	log   *zap.Logger

	state   TurnState
	timer   TickTimer
	kick    Kick
	outcome Outcome
	latches Latches
}

func NewTurnExecutor(rules Rules, b *ball.Ball, rng roles.Rand, log *zap.Logger) *TurnExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &TurnExecutor{
		rules: rules,
		ball:  b,
		rng:   rng,
		log:   log,
		state: TurnWaitingChoices,
	}
}

func (x *TurnExecutor) State() TurnState { return x.state }
func (x *TurnExecutor) Outcome() Outcome { return x.outcome }
func (x *TurnExecutor) Latches() Latches { return x.latches }
func (x *TurnExecutor) Ball() *ball.Ball { return x.ball }

// Execute starts a turn whose choices are final. It is a no-op unless the
// executor is waiting for choices, so a turn can never be processed twice.
func (x *TurnExecutor) Execute(now time.Duration, k Kick) []Event {
	if x.state != TurnWaitingChoices {
		return nil
	}

	x.kick = k
	x.outcome = Resolve(k.Shot, k.Dive)
	x.latches = Latches{}
	x.state = TurnExecutingKick
	x.timer = startTimer(now, x.rules.KickDelay)

	return []Event{{Type: EvtKickStarted, Turn: k.Turn, PeerID: k.Beater.PeerID, Name: k.Beater.Name}}
}

// Step advances the turn by dt and returns the side effects that fired.
func (x *TurnExecutor) Step(now, dt time.Duration) []Event {
	var events []Event

	switch x.state {
	case TurnExecutingKick:
		if !x.timer.Expired(now) {
			return nil
		}
		target := BallTarget(x.rules.Field, x.kick.Shot, x.rng)
		x.ball.Shoot(target)
		x.state = TurnExecutingDive
		events = append(events,
			Event{Type: EvtBallLaunched, Turn: x.kick.Turn, Target: &target},
			Event{
				Type:   EvtDiveStarted,
				Turn:   x.kick.Turn,
				PeerID: x.kick.Keeper.PeerID,
				Value:  DiveDirection(x.kick.Dive.Horizontal, x.kick.Dive.Vertical),
			},
		)

	case TurnExecutingDive:
		x.ball.Step(dt.Seconds())
		events = append(events, x.checkProgress(now)...)

	case TurnShowingResult:
		if !x.timer.Expired(now) {
			return nil
		}
		x.ball.Reset()
		x.state = TurnCompleted
		events = append(events,
			Event{Type: EvtBallReset, Turn: x.kick.Turn},
			Event{Type: EvtCharactersReset, Turn: x.kick.Turn},
		)
	}

	return events
}

// checkProgress evaluates every latch against the current progress. Several
// thresholds can be crossed in one step; each latch is still tested on its
// own.
func (x *TurnExecutor) checkProgress(now time.Duration) []Event {
	var events []Event

	if !x.latches.BallCaught && x.outcome == OutcomeSaved && x.ball.Progress() >= x.rules.CatchThreshold {
		x.latches.BallCaught = true
		hand := x.ball.Position()
		if x.kick.KeeperHand != nil {
			hand = *x.kick.KeeperHand
		} else {
			x.log.Warn("no goalkeeper hand to attach the ball to", zap.Int("turn", x.kick.Turn))
		}
		x.ball.Attach(hand)
		events = append(events, Event{Type: EvtBallCaught, Turn: x.kick.Turn, PeerID: x.kick.Keeper.PeerID})
	}

	if !x.latches.GoalCounted && x.outcome == OutcomeGoal && x.ball.Progress() >= x.rules.GoalThreshold {
		x.latches.GoalCounted = true
		events = append(events, Event{Type: EvtGoalScored, Turn: x.kick.Turn, PeerID: x.kick.Beater.PeerID, Name: x.kick.Beater.Name})
	}

	if !x.latches.ResultMessageShown && x.ball.Progress() >= 1 {
		x.latches.ResultMessageShown = true
		x.state = TurnShowingResult
		x.timer = startTimer(now, x.rules.ResultDelay)
		events = append(events, Event{
			Type:    EvtResultShown,
			Turn:    x.kick.Turn,
			Outcome: x.outcome,
			Text:    x.resultText(),
		})
	}

	return events
}

func (x *TurnExecutor) resultText() string {
	if x.outcome == OutcomeGoal {
		return fmt.Sprintf("%s GOAL !!!", x.kick.Beater.Name)
	}
	return fmt.Sprintf("%s Defended !!!", x.kick.Keeper.Name)
}

// ResetForNewTurn puts the executor back to waiting for choices.
func (x *TurnExecutor) ResetForNewTurn() {
	x.state = TurnWaitingChoices
	x.timer = TickTimer{}
	x.kick = Kick{}
	x.outcome = OutcomeNone
	x.latches = Latches{}
}
