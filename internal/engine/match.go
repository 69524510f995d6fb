package engine

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/ball"
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

const noWinner = -1

// Deps are the collaborators a match is built with.
type Deps struct {
	Logger *zap.Logger
	Rand   roles.Rand
}

// Match is the canonical match state. Only the goroutine owning it may call
// its methods; every mutating call returns the events it produced.
type Match struct {
	rules Rules
	log   *zap.Logger
	rng   roles.Rand

	now   time.Duration
	phase Phase
	slots [2]Slot

	turn        int
	scores      [2]int
	suddenDeath bool
	sdStartTurn int
	sdBaseline  [2]int
	countdown   int
	rematch     [2]bool
	winner      int

	beaterChoice Choice
	keeperChoice Choice

	selectionTimer TickTimer
	countdownTimer TickTimer
	turnTimer      TickTimer
	swapTimer      TickTimer
	crowdTimer     TickTimer

	ball *ball.Ball
	exec *TurnExecutor

	pending []Event
}

func NewMatch(rules Rules, deps Deps) *Match {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	b := ball.New(rules.Field.BallSpot, rules.BallSpeed)
	m := &Match{
		rules:        rules,
		log:          deps.Logger,
		rng:          deps.Rand,
		phase:        PhaseWaitingPlayers,
		countdown:    rules.CountdownFrom,
		winner:       noWinner,
		beaterChoice: unchosen(),
		keeperChoice: unchosen(),
		ball:         b,
		exec:         NewTurnExecutor(rules, b, deps.Rand, deps.Logger),
	}
	return m
}

func (m *Match) Rules() Rules { return m.rules }

func (m *Match) CurrentPhase() Phase { return m.phase }

func (m *Match) Score() [2]int { return m.scores }

func (m *Match) Turn() int { return m.turn }

func (m *Match) SuddenDeath() bool { return m.suddenDeath }

func (m *Match) TurnState() TurnState { return m.exec.State() }

func (m *Match) Latches() Latches { return m.exec.Latches() }

func (m *Match) Slots() [2]Slot { return m.slots }

func (m *Match) Now() time.Duration { return m.now }

// RemainingTurnTime is the time left to submit a choice this turn, zero when
// no choice window is open.
func (m *Match) RemainingTurnTime() time.Duration {
	if m.phase != PhaseActive || m.exec.State() != TurnWaitingChoices {
		return 0
	}
	return m.turnTimer.Remaining(m.now)
}

func (m *Match) CurrentRole(peerID string) roles.Role {
	if side, ok := m.sideOf(peerID); ok {
		return m.slots[side].Role
	}
	return roles.None
}

// Winner returns the winning slot's peer id once the match has ended.
func (m *Match) Winner() (string, bool) {
	if m.phase != PhaseEnded || m.winner == noWinner {
		return "", false
	}
	return m.slots[m.winner].PeerID, true
}

// Join seats a peer. Joining twice is a no-op.
func (m *Match) Join(peerID, name string) ([]Event, error) {
	if _, ok := m.sideOf(peerID); ok {
		return nil, nil
	}
	if m.phase != PhaseWaitingPlayers {
		if m.slots[0].Occupied() && m.slots[1].Occupied() {
			return nil, ErrRoomFull
		}
		return nil, ErrMatchInProgress
	}

	side := 0
	if m.slots[0].Occupied() {
		side = 1
	}
	if m.slots[side].Occupied() {
		return nil, ErrRoomFull
	}
	if name == "" {
		name = fmt.Sprintf("Player%d", 1000+m.rng.Intn(9000))
	}

	m.slots[side] = Slot{PeerID: peerID, Name: name, Preference: roles.None, Role: roles.None}
	m.emit(Event{Type: EvtPlayerJoined, PeerID: peerID, Name: name, Value: side})

	if m.slots[0].Occupied() && m.slots[1].Occupied() {
		m.openRoleSelection()
	}
	return m.flush(), nil
}

// Leave frees the peer's seat. Losing a player once both are seated ends the
// match for everyone; there is no single-player continuation.
func (m *Match) Leave(peerID string) []Event {
	side, ok := m.sideOf(peerID)
	if !ok {
		return nil
	}
	left := m.slots[side]
	m.slots[side] = Slot{}
	m.emit(Event{Type: EvtPlayerLeft, PeerID: left.PeerID, Name: left.Name, Value: side})

	if m.phase != PhaseWaitingPlayers && m.phase != PhaseAborted {
		m.phase = PhaseAborted
		m.turnTimer = TickTimer{}
		m.log.Info("match aborted, player left",
			zap.String("peer", left.PeerID),
			zap.Int("turn", m.turn),
		)
		m.emit(Event{Type: EvtMatchAborted, Turn: m.turn, PeerID: left.PeerID, Name: left.Name, Text: "return to lobby"})
	}
	return m.flush()
}

// Apply runs a peer command. Commands that arrive at the wrong time or repeat
// an earlier one are dropped without error; commands the peer has no right to
// issue are rejected and leave the match untouched.
func (m *Match) Apply(peerID string, cmd Command) ([]Event, error) {
	side, ok := m.sideOf(peerID)
	if !ok {
		return nil, ErrUnknownPeer
	}

	var err error
	switch cmd.Type {
	case CmdSelectRole:
		err = m.selectRole(side, cmd.Role)
	case CmdSubmitChoice:
		err = m.submitChoice(side, cmd)
	case CmdStartMatch:
		err = m.startMatch(side)
	case CmdRequestRematch:
		m.requestRematch(side)
	default:
		err = ErrUnsupportedCommand
	}

	if err != nil {
		m.pending = nil
		return nil, err
	}
	return m.flush(), nil
}

// SubmitChoice is the direct form of CmdSubmitChoice.
func (m *Match) SubmitChoice(peerID string, role roles.Role, h Horizontal, v Vertical, p precision.Zone) ([]Event, error) {
	return m.Apply(peerID, Command{Type: CmdSubmitChoice, Role: role, Horizontal: h, Vertical: v, Precision: p})
}

func (m *Match) RequestRematch(peerID string) ([]Event, error) {
	return m.Apply(peerID, Command{Type: CmdRequestRematch})
}

func (m *Match) StartMatch(peerID string) ([]Event, error) {
	return m.Apply(peerID, Command{Type: CmdStartMatch})
}

// Tick advances the match clock by dt. All timers are polled here.
func (m *Match) Tick(dt time.Duration) []Event {
	if dt < 0 {
		dt = 0
	}
	m.now += dt

	if m.crowdTimer.Expired(m.now) {
		m.crowdTimer = TickTimer{}
		m.emit(Event{Type: EvtCrowdIdle, Turn: m.turn})
	}

	switch m.phase {
	case PhaseSelectingRoles:
		if m.selectionTimer.Expired(m.now) {
			m.log.Info("role selection window closed", zap.Bool("p1_picked", m.slots[0].PickedRole), zap.Bool("p2_picked", m.slots[1].PickedRole))
			m.finishRoleSelection()
		}

	case PhaseCountingDown:
		m.tickCountdown()

	case PhaseRoleSwap:
		if m.swapTimer.Expired(m.now) {
			m.swapTimer = TickTimer{}
			m.phase = PhaseActive
			m.emit(Event{Type: EvtControlsEnabled, Turn: m.turn})
			m.startNewTurn()
		}

	case PhaseActive:
		m.tickActive(dt)
	}

	return m.flush()
}

func (m *Match) tickCountdown() {
	if !m.countdownTimer.Expired(m.now) {
		return
	}
	m.countdown--
	m.emit(Event{Type: EvtCountdown, Value: m.countdown})
	if m.countdown > 0 {
		m.countdownTimer = startTimer(m.now, m.rules.CountdownStep)
		return
	}

	m.countdownTimer = TickTimer{}
	m.phase = PhaseActive
	m.emit(Event{Type: EvtControlsEnabled, Turn: m.turn})
	m.startNewTurn()
}

func (m *Match) tickActive(dt time.Duration) {
	for _, e := range m.exec.Step(m.now, dt) {
		m.emit(e)
		if e.Type == EvtGoalScored {
			m.countGoal(e.PeerID)
		}
	}

	switch m.exec.State() {
	case TurnCompleted:
		m.onTurnComplete()

	case TurnWaitingChoices:
		if !m.turnTimer.Expired(m.now) {
			return
		}
		m.assignRandomChoices()
		m.processTurn()
	}
}

func (m *Match) openRoleSelection() {
	m.phase = PhaseSelectingRoles
	m.selectionTimer = startTimer(m.now, m.rules.RoleSelectionTime)
	m.emit(Event{Type: EvtRoleSelectionOpened, Value: int(m.rules.RoleSelectionTime / time.Second)})
}

func (m *Match) selectRole(side int, role roles.Role) error {
	if !role.Playable() {
		return fmt.Errorf("%w: role %q", ErrInvalidChoice, role)
	}
	if m.phase != PhaseSelectingRoles || m.slots[side].PickedRole {
		return nil
	}

	m.slots[side].Preference = role
	m.slots[side].PickedRole = true
	m.emit(Event{Type: EvtRolePreferred, PeerID: m.slots[side].PeerID, Name: m.slots[side].Name, Role: role})

	if m.slots[0].PickedRole && m.slots[1].PickedRole {
		m.finishRoleSelection()
	}
	return nil
}

func (m *Match) finishRoleSelection() {
	m.selectionTimer = TickTimer{}
	assigned := roles.Assign([2]roles.Role{m.slots[0].Preference, m.slots[1].Preference}, m.rng)
	m.setRoles(assigned)
	for _, s := range m.slots {
		m.emit(Event{Type: EvtRolesAssigned, PeerID: s.PeerID, Name: s.Name, Role: s.Role})
	}

	m.phase = PhaseReady
	if m.rules.AutoStart {
		m.startCountdown()
	}
}

func (m *Match) startMatch(side int) error {
	if side != 0 {
		return ErrNotHost
	}
	if m.phase != PhaseReady {
		return nil
	}
	m.startCountdown()
	return nil
}

func (m *Match) startCountdown() {
	m.phase = PhaseCountingDown
	m.countdown = m.rules.CountdownFrom
	m.countdownTimer = startTimer(m.now, m.rules.CountdownStep)
	m.emit(Event{Type: EvtCountdown, Value: m.countdown})
}

func (m *Match) startNewTurn() {
	m.beaterChoice = unchosen()
	m.keeperChoice = unchosen()
	m.exec.ResetForNewTurn()
	m.turnTimer = startTimer(m.now, m.rules.TurnTime)
	m.emit(Event{Type: EvtTurnStarted, Turn: m.turn, Value: int(m.rules.TurnTime / time.Second)})
}

func (m *Match) processTurn() {
	beater := m.slotFor(roles.Beater)
	keeper := m.slotFor(roles.GoalKeeper)

	var hand *Vec3
	if keeper.Occupied() {
		h := keeper.Position.Add(m.rules.Field.HandOffset)
		hand = &h
	}

	shot, dive := m.beaterChoice, m.keeperChoice
	m.turnTimer = TickTimer{}
	m.emit(Event{
		Type:    EvtTurnProcessed,
		Turn:    m.turn,
		Outcome: Resolve(shot, dive),
		Shot:    &shot,
		Dive:    &dive,
	})
	for _, e := range m.exec.Execute(m.now, Kick{Turn: m.turn, Shot: shot, Dive: dive, Beater: beater, Keeper: keeper, KeeperHand: hand}) {
		m.emit(e)
	}
}

func (m *Match) countGoal(peerID string) {
	side, ok := m.sideOf(peerID)
	if !ok {
		m.log.Warn("goal for a peer that is no longer seated", zap.String("peer", peerID))
		return
	}
	m.scores[side]++
	scores := m.scores
	m.emit(Event{Type: EvtCrowdCheer, Turn: m.turn, Scores: &scores})
	m.crowdTimer = startTimer(m.now, m.rules.CrowdCheerTime)
}

func (m *Match) onTurnComplete() {
	m.emit(Event{Type: EvtResultHidden, Turn: m.turn})
	m.turn++

	if m.suddenDeath {
		if m.turn-m.sdStartTurn < 2 {
			m.swapRoles()
			m.beginSwapPause()
			return
		}

		d0 := m.scores[0] - m.sdBaseline[0]
		d1 := m.scores[1] - m.sdBaseline[1]
		switch {
		case d0 > d1:
			m.end(0)
		case d1 > d0:
			m.end(1)
		default:
			m.sdBaseline = m.scores
			m.sdStartTurn = m.turn
			m.swapRoles()
			m.beginSwapPause()
		}
		return
	}

	if m.turn >= m.rules.RegulationTurns() {
		m.checkRegulationEnd()
		return
	}

	if n := m.rules.TurnsBeforeRoleSwap; n > 0 && m.turn%n == 0 {
		m.swapRoles()
		m.beginSwapPause()
		return
	}
	m.startNewTurn()
}

func (m *Match) checkRegulationEnd() {
	if m.scores[0] != m.scores[1] {
		if m.scores[0] > m.scores[1] {
			m.end(0)
		} else {
			m.end(1)
		}
		return
	}

	m.suddenDeath = true
	m.sdStartTurn = m.turn
	m.sdBaseline = m.scores
	scores := m.scores
	m.log.Info("regulation tied, sudden death", zap.Int("turn", m.turn), zap.Ints("scores", scores[:]))
	m.emit(Event{Type: EvtSuddenDeath, Turn: m.turn, Scores: &scores})
	m.swapRoles()
	m.beginSwapPause()
}

func (m *Match) beginSwapPause() {
	m.phase = PhaseRoleSwap
	m.turnTimer = TickTimer{}
	m.swapTimer = startTimer(m.now, m.rules.RoleSwapDelay)
}

func (m *Match) swapRoles() {
	m.setRoles(roles.Swap([2]roles.Role{m.slots[0].Role, m.slots[1].Role}))
	m.emit(Event{Type: EvtRolesSwapped, Turn: m.turn})
}

func (m *Match) setRoles(assigned [2]roles.Role) {
	for i := range m.slots {
		m.slots[i].Role = assigned[i]
		m.slots[i].Position = m.rules.Field.Anchor(assigned[i])
	}
}

func (m *Match) end(winner int) {
	loser := 1 - winner
	m.phase = PhaseEnded
	m.winner = winner
	m.turnTimer = TickTimer{}

	scores := m.scores
	w, l := m.slots[winner], m.slots[loser]
	m.log.Info("match ended",
		zap.String("winner", w.PeerID),
		zap.Ints("scores", scores[:]),
		zap.Bool("sudden_death", m.suddenDeath),
	)
	m.emit(Event{Type: EvtMatchEnded, Turn: m.turn, PeerID: w.PeerID, Name: w.Name, Scores: &scores})
	m.emit(Event{Type: EvtCoinsAwarded, PeerID: w.PeerID, Name: w.Name, Value: m.rules.WinnerCoins, Text: "VICTORY!"})
	m.emit(Event{Type: EvtCoinsAwarded, PeerID: l.PeerID, Name: l.Name, Value: m.rules.LoserCoins, Text: "DEFEAT!"})
}

func (m *Match) requestRematch(side int) {
	if m.phase != PhaseEnded || m.rematch[side] {
		return
	}
	m.rematch[side] = true
	m.emit(Event{Type: EvtRematchRequested, PeerID: m.slots[side].PeerID, Name: m.slots[side].Name})

	if m.rematch[0] && m.rematch[1] {
		m.executeRematch()
	}
}

// executeRematch resets the match in place. Roles flip relative to how the
// last match finished.
func (m *Match) executeRematch() {
	m.turn = 0
	m.scores = [2]int{}
	m.suddenDeath = false
	m.sdStartTurn = 0
	m.sdBaseline = [2]int{}
	m.rematch = [2]bool{}
	m.winner = noWinner
	m.beaterChoice = unchosen()
	m.keeperChoice = unchosen()
	m.turnTimer = TickTimer{}
	m.swapTimer = TickTimer{}
	m.crowdTimer = TickTimer{}
	m.ball.Reset()
	m.exec.ResetForNewTurn()

	m.log.Info("rematch")
	m.emit(Event{Type: EvtRematchStarted})
	m.swapRoles()
	m.startCountdown()
}

func (m *Match) sideOf(peerID string) (int, bool) {
	if peerID == "" {
		return 0, false
	}
	for i, s := range m.slots {
		if s.PeerID == peerID {
			return i, true
		}
	}
	return 0, false
}

func (m *Match) slotFor(role roles.Role) Slot {
	for _, s := range m.slots {
		if s.Role == role {
			return s
		}
	}
	return Slot{}
}

func (m *Match) emit(e Event) { m.pending = append(m.pending, e) }

func (m *Match) flush() []Event {
	out := m.pending
	m.pending = nil
	return out
}
