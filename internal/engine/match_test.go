package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

const step = 10 * time.Millisecond

type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

func newTestMatch(t *testing.T, tweak func(*Rules)) *Match {
	t.Helper()
	rules := DefaultRules()
	if tweak != nil {
		tweak(&rules)
	}
	return NewMatch(rules, Deps{Logger: zaptest.NewLogger(t), Rand: fixedRand(0)})
}

// seat joins p1 and p2 and has p1 ask for beater and p2 for goalkeeper.
func seat(t *testing.T, m *Match) []Event {
	t.Helper()
	var all []Event
	for _, id := range []string{"p1", "p2"} {
		events, err := m.Join(id, id)
		require.NoError(t, err)
		all = append(all, events...)
	}
	events, err := m.Apply("p1", Command{Type: CmdSelectRole, Role: roles.Beater})
	require.NoError(t, err)
	all = append(all, events...)
	events, err = m.Apply("p2", Command{Type: CmdSelectRole, Role: roles.GoalKeeper})
	require.NoError(t, err)
	return append(all, events...)
}

func run(m *Match, d time.Duration) []Event {
	var all []Event
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		all = append(all, m.Tick(step)...)
	}
	return all
}

// runUntil ticks until an event of type want shows up or limit runs out.
func runUntil(t *testing.T, m *Match, want EventType, limit time.Duration) []Event {
	t.Helper()
	var all []Event
	for elapsed := time.Duration(0); elapsed < limit; elapsed += step {
		events := m.Tick(step)
		all = append(all, events...)
		if ContainsEvent(events, want) {
			return all
		}
	}
	t.Fatalf("no %s within %s", want, limit)
	return nil
}

func startedMatch(t *testing.T, tweak func(*Rules)) *Match {
	t.Helper()
	m := newTestMatch(t, tweak)
	seat(t, m)
	runUntil(t, m, EvtTurnStarted, 5*time.Second)
	require.Equal(t, PhaseActive, m.CurrentPhase())
	return m
}

func holder(m *Match, role roles.Role) string {
	return m.slotFor(role).PeerID
}

func submit(t *testing.T, m *Match, role roles.Role, h Horizontal, v Vertical, p precision.Zone) []Event {
	t.Helper()
	events, err := m.SubmitChoice(holder(m, role), role, h, v, p)
	require.NoError(t, err)
	return events
}

func TestJoin_FillsSlotsAndOpensSelection(t *testing.T) {
	m := newTestMatch(t, nil)

	events, err := m.Join("p1", "")
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtPlayerJoined))
	assert.Equal(t, "Player1000", events[0].Name)
	assert.Equal(t, PhaseWaitingPlayers, m.CurrentPhase())

	events, err = m.Join("p1", "again")
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = m.Join("p2", "Bob")
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtRoleSelectionOpened))
	assert.Equal(t, PhaseSelectingRoles, m.CurrentPhase())

	_, err = m.Join("p3", "Eve")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestApply_UnknownPeer(t *testing.T) {
	m := newTestMatch(t, nil)
	seat(t, m)

	_, err := m.Apply("ghost", Command{Type: CmdStartMatch})
	assert.ErrorIs(t, err, ErrUnknownPeer)

	_, err = m.Apply("p1", Command{Type: "Dance"})
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestRoleSelection_PreferencesAreHonored(t *testing.T) {
	m := newTestMatch(t, nil)
	events := seat(t, m)

	assert.Equal(t, 2, CountEvents(events, EvtRolesAssigned))
	assert.Equal(t, roles.Beater, m.CurrentRole("p1"))
	assert.Equal(t, roles.GoalKeeper, m.CurrentRole("p2"))
	assert.Equal(t, PhaseCountingDown, m.CurrentPhase())

	slots := m.Slots()
	assert.Equal(t, m.rules.Field.BeaterAnchor, slots[0].Position)
	assert.Equal(t, m.rules.Field.KeeperAnchor, slots[1].Position)
}

func TestRoleSelection_SecondPickIsIgnored(t *testing.T) {
	m := newTestMatch(t, nil)
	_, _ = m.Join("p1", "p1")
	_, _ = m.Join("p2", "p2")

	_, err := m.Apply("p1", Command{Type: CmdSelectRole, Role: roles.GoalKeeper})
	require.NoError(t, err)
	events, err := m.Apply("p1", Command{Type: CmdSelectRole, Role: roles.Beater})
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = m.Apply("p2", Command{Type: CmdSelectRole, Role: "striker"})
	assert.ErrorIs(t, err, ErrInvalidChoice)
}

func TestRoleSelection_WindowExpiresWithoutPicks(t *testing.T) {
	m := newTestMatch(t, nil)
	_, _ = m.Join("p1", "p1")
	_, _ = m.Join("p2", "p2")

	events := runUntil(t, m, EvtRolesAssigned, 16*time.Second)
	assert.GreaterOrEqual(t, m.Now(), m.rules.RoleSelectionTime)
	assert.Equal(t, 2, CountEvents(events, EvtRolesAssigned))

	// Nobody picked: the coin decides who kicks first.
	assert.Equal(t, roles.Beater, m.CurrentRole("p1"))
	assert.Equal(t, roles.GoalKeeper, m.CurrentRole("p2"))
}

func TestCountdown_GoesToZeroThenStarts(t *testing.T) {
	m := newTestMatch(t, nil)
	events := seat(t, m)
	events = append(events, runUntil(t, m, EvtTurnStarted, 5*time.Second)...)

	var counts []int
	for _, e := range events {
		if e.Type == EvtCountdown {
			counts = append(counts, e.Value)
		}
	}
	assert.Equal(t, []int{3, 2, 1, 0}, counts)
	assert.True(t, ContainsEvent(events, EvtControlsEnabled))
	assert.Equal(t, 0, m.Turn())
	assert.Equal(t, 10*time.Second, m.RemainingTurnTime())
}

func TestStartMatch_HostOnlyWhenAutoStartIsOff(t *testing.T) {
	m := newTestMatch(t, func(r *Rules) { r.AutoStart = false })
	seat(t, m)
	require.Equal(t, PhaseReady, m.CurrentPhase())

	_, err := m.StartMatch("p2")
	assert.ErrorIs(t, err, ErrNotHost)
	assert.Equal(t, PhaseReady, m.CurrentPhase())

	events, err := m.StartMatch("p1")
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtCountdown))
	assert.Equal(t, PhaseCountingDown, m.CurrentPhase())
}

func TestSubmitChoice_IsIdempotent(t *testing.T) {
	m := startedMatch(t, nil)

	events := submit(t, m, roles.Beater, Left, Top, precision.Perfect)
	assert.Equal(t, 1, CountEvents(events, EvtChoiceSubmitted))
	assert.True(t, ContainsEvent(events, EvtWaiting))

	events = submit(t, m, roles.Beater, Right, Bottom, precision.Miss)
	assert.Empty(t, events)
	assert.Equal(t, Left, m.beaterChoice.Horizontal)
	assert.Equal(t, precision.Perfect, m.beaterChoice.Precision)
}

func TestSubmitChoice_RejectsForeignRole(t *testing.T) {
	m := startedMatch(t, nil)

	_, err := m.SubmitChoice("p1", roles.GoalKeeper, Left, Top, "")
	assert.ErrorIs(t, err, ErrNotYourRole)
	assert.False(t, m.keeperChoice.HasChosen)

	_, err = m.SubmitChoice("p1", roles.Beater, "up", Top, precision.Perfect)
	assert.ErrorIs(t, err, ErrInvalidChoice)
	assert.False(t, m.beaterChoice.HasChosen)
}

func TestSubmitChoice_KeeperPrecisionIsIgnored(t *testing.T) {
	m := startedMatch(t, nil)
	submit(t, m, roles.GoalKeeper, Right, Bottom, precision.Perfect)
	assert.Equal(t, precision.Medium, m.keeperChoice.Precision)
}

func TestTurn_BothChoicesProcessImmediately(t *testing.T) {
	m := startedMatch(t, nil)

	submit(t, m, roles.GoalKeeper, Right, Bottom, "")
	events := submit(t, m, roles.Beater, Left, Top, precision.Perfect)

	require.Equal(t, 1, CountEvents(events, EvtTurnProcessed))
	assert.True(t, ContainsEvent(events, EvtKickStarted))
	assert.Equal(t, TurnExecutingKick, m.TurnState())
	assert.Equal(t, time.Duration(0), m.RemainingTurnTime())

	// Late submissions after processing change nothing.
	events = submit(t, m, roles.Beater, Right, Top, precision.Miss)
	assert.Empty(t, events)
}

func TestTurn_TimeoutAssignsMissingChoice(t *testing.T) {
	m := startedMatch(t, nil)
	turnStart := m.Now()

	events := run(m, 3*time.Second)
	assert.False(t, ContainsEvent(events, EvtTurnProcessed))
	submit(t, m, roles.Beater, Left, Top, precision.Perfect)

	events = runUntil(t, m, EvtTurnProcessed, 8*time.Second)
	elapsed := m.Now() - turnStart
	assert.GreaterOrEqual(t, elapsed, 10*time.Second)
	assert.Less(t, elapsed, 10*time.Second+2*step)

	require.Equal(t, 1, CountEvents(events, EvtChoicesDefaulted))
	for _, e := range events {
		if e.Type == EvtChoicesDefaulted {
			assert.Equal(t, roles.GoalKeeper, e.Role)
			assert.Equal(t, "p2", e.PeerID)
		}
	}
	assert.Equal(t, Left, m.beaterChoice.Horizontal, "submitted choice survives the timeout")
	assert.True(t, m.keeperChoice.HasChosen)

	events = runUntil(t, m, EvtResultShown, 5*time.Second)
	assert.Zero(t, CountEvents(events, EvtTurnProcessed))
}

func TestTurn_TimeoutWithNoChoices(t *testing.T) {
	m := startedMatch(t, nil)
	events := runUntil(t, m, EvtTurnProcessed, 11*time.Second)
	assert.Equal(t, 2, CountEvents(events, EvtChoicesDefaulted))
	assert.Equal(t, 1, CountEvents(events, EvtTurnProcessed))
}

func TestTurn_GoalFiresLatchesOnce(t *testing.T) {
	m := startedMatch(t, nil)

	submit(t, m, roles.GoalKeeper, Right, Bottom, "")
	submit(t, m, roles.Beater, Left, Top, precision.Perfect)

	events := runUntil(t, m, EvtTurnStarted, 10*time.Second)
	assert.Equal(t, 1, CountEvents(events, EvtBallLaunched))
	assert.Equal(t, 1, CountEvents(events, EvtGoalScored))
	assert.Equal(t, 1, CountEvents(events, EvtCrowdCheer))
	assert.Equal(t, 1, CountEvents(events, EvtResultShown))
	assert.Zero(t, CountEvents(events, EvtBallCaught))
	assert.Equal(t, [2]int{1, 0}, m.Score())

	for _, e := range events {
		if e.Type == EvtResultShown {
			assert.Equal(t, OutcomeGoal, e.Outcome)
			assert.Equal(t, "p1 GOAL !!!", e.Text)
		}
		if e.Type == EvtDiveStarted {
			assert.Equal(t, 4, e.Value)
		}
	}

	// Next turn has fresh latches and swapped roles.
	assert.Equal(t, Latches{}, m.Latches())
	assert.Equal(t, 1, m.Turn())
	assert.True(t, ContainsEvent(events, EvtRolesSwapped))
	assert.Equal(t, roles.GoalKeeper, m.CurrentRole("p1"))
}

func TestTurn_SaveAttachesBallToHand(t *testing.T) {
	m := startedMatch(t, nil)

	submit(t, m, roles.GoalKeeper, Left, Bottom, "")
	submit(t, m, roles.Beater, Left, Top, precision.Medium)

	events := runUntil(t, m, EvtResultShown, 5*time.Second)
	assert.Equal(t, 1, CountEvents(events, EvtBallCaught))
	assert.Zero(t, CountEvents(events, EvtGoalScored))

	hand := m.rules.Field.KeeperAnchor.Add(m.rules.Field.HandOffset)
	assert.True(t, m.ball.Attached())
	assert.Equal(t, hand, m.ball.Position())

	events = runUntil(t, m, EvtTurnStarted, 5*time.Second)
	assert.Zero(t, CountEvents(events, EvtBallCaught))
	assert.True(t, ContainsEvent(events, EvtBallReset))
	assert.Equal(t, m.ball.Initial(), m.ball.Position())
	assert.Equal(t, [2]int{0, 0}, m.Score())
}

func TestTurn_MissScoresNothing(t *testing.T) {
	m := startedMatch(t, nil)

	submit(t, m, roles.GoalKeeper, Right, Top, "")
	submit(t, m, roles.Beater, Left, Top, precision.Miss)

	events := runUntil(t, m, EvtResultShown, 5*time.Second)
	assert.Zero(t, CountEvents(events, EvtGoalScored))
	assert.Zero(t, CountEvents(events, EvtBallCaught))
	assert.Equal(t, [2]int{0, 0}, m.Score())
}

func TestRegulation_TieGoesToSuddenDeath(t *testing.T) {
	m := startedMatch(t, nil)
	m.turn = m.rules.RegulationTurns() - 1
	m.scores = [2]int{3, 3}

	m.onTurnComplete()
	events := m.flush()

	require.True(t, ContainsEvent(events, EvtSuddenDeath))
	assert.True(t, m.SuddenDeath())
	assert.Equal(t, PhaseRoleSwap, m.CurrentPhase())
	assert.Equal(t, 10, m.sdStartTurn)
	assert.Equal(t, [2]int{3, 3}, m.sdBaseline)

	events = runUntil(t, m, EvtTurnStarted, time.Second)
	assert.True(t, ContainsEvent(events, EvtControlsEnabled))
	assert.Equal(t, PhaseActive, m.CurrentPhase())
}

func TestRegulation_LeaderWins(t *testing.T) {
	m := startedMatch(t, nil)
	m.turn = m.rules.RegulationTurns() - 1
	m.scores = [2]int{2, 3}

	m.onTurnComplete()
	events := m.flush()

	require.True(t, ContainsEvent(events, EvtMatchEnded))
	assert.Equal(t, PhaseEnded, m.CurrentPhase())
	winner, ok := m.Winner()
	require.True(t, ok)
	assert.Equal(t, "p2", winner)
}

func TestSuddenDeath_Resolution(t *testing.T) {
	cases := []struct {
		name       string
		goals      [2][2]int // goals per side for each of the two sudden-death kicks
		wantEnded  bool
		wantWinner string
	}{
		{name: "p1 scores, p2 misses", goals: [2][2]int{{1, 0}, {0, 0}}, wantEnded: true, wantWinner: "p1"},
		{name: "p1 misses, p2 scores", goals: [2][2]int{{0, 0}, {0, 1}}, wantEnded: true, wantWinner: "p2"},
		{name: "both score", goals: [2][2]int{{1, 0}, {0, 1}}},
		{name: "both miss", goals: [2][2]int{{0, 0}, {0, 0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := startedMatch(t, nil)
			m.turn = m.rules.RegulationTurns() - 1
			m.scores = [2]int{3, 3}
			m.onTurnComplete()
			require.True(t, m.SuddenDeath())

			m.scores[0] += tc.goals[0][0]
			m.scores[1] += tc.goals[0][1]
			m.onTurnComplete()
			assert.Equal(t, PhaseRoleSwap, m.CurrentPhase(), "one kick each is always played")

			m.scores[0] += tc.goals[1][0]
			m.scores[1] += tc.goals[1][1]
			m.onTurnComplete()
			events := m.flush()

			if !tc.wantEnded {
				assert.Equal(t, PhaseRoleSwap, m.CurrentPhase())
				assert.Equal(t, m.scores, m.sdBaseline)
				assert.Equal(t, m.turn, m.sdStartTurn)
				return
			}
			require.Equal(t, PhaseEnded, m.CurrentPhase())
			winner, _ := m.Winner()
			assert.Equal(t, tc.wantWinner, winner)
			assert.Equal(t, 2, CountEvents(events, EvtCoinsAwarded))
			for _, e := range events {
				if e.Type != EvtCoinsAwarded {
					continue
				}
				if e.PeerID == tc.wantWinner {
					assert.Equal(t, m.rules.WinnerCoins, e.Value)
				} else {
					assert.Equal(t, m.rules.LoserCoins, e.Value)
				}
			}
		})
	}
}

func TestFullMatch_PlaysOutOverTicks(t *testing.T) {
	m := startedMatch(t, func(r *Rules) { r.RoundsPerSide = 1 })

	// Turn 0: p1 kicks and scores.
	submit(t, m, roles.GoalKeeper, Right, Top, "")
	submit(t, m, roles.Beater, Left, Bottom, precision.Perfect)
	runUntil(t, m, EvtTurnStarted, 10*time.Second)
	require.Equal(t, roles.Beater, m.CurrentRole("p2"))

	// Turn 1: p2 kicks and p1 reads it.
	submit(t, m, roles.GoalKeeper, Right, Top, "")
	submit(t, m, roles.Beater, Right, Top, precision.Perfect)
	events := runUntil(t, m, EvtMatchEnded, 10*time.Second)

	assert.True(t, ContainsEvent(events, EvtBallCaught))
	assert.Equal(t, [2]int{1, 0}, m.Score())
	assert.Equal(t, PhaseEnded, m.CurrentPhase())
	winner, _ := m.Winner()
	assert.Equal(t, "p1", winner)

	// Ticking an ended match is inert.
	assert.Empty(t, run(m, time.Second))
}

func TestRematch_NeedsBothSides(t *testing.T) {
	m := startedMatch(t, nil)

	events, err := m.RequestRematch("p1")
	require.NoError(t, err)
	assert.Empty(t, events, "rematch outside an ended match is ignored")

	// End the match with the last kick still in flight.
	submit(t, m, roles.GoalKeeper, Right, Top, "")
	submit(t, m, roles.Beater, Left, Top, precision.Perfect)
	runUntil(t, m, EvtGoalScored, 5*time.Second)
	require.True(t, m.Latches().GoalCounted)
	require.NotEqual(t, TurnWaitingChoices, m.TurnState())

	m.turn = m.rules.RegulationTurns() - 1
	m.scores = [2]int{4, 2}
	m.onTurnComplete()
	m.flush()
	require.Equal(t, PhaseEnded, m.CurrentPhase())
	rolesBefore := [2]roles.Role{m.CurrentRole("p1"), m.CurrentRole("p2")}

	events, err = m.RequestRematch("p1")
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtRematchRequested))
	assert.Equal(t, PhaseEnded, m.CurrentPhase())

	events, err = m.RequestRematch("p1")
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = m.RequestRematch("p2")
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtRematchStarted))

	assert.Equal(t, PhaseCountingDown, m.CurrentPhase())
	assert.Equal(t, [2]int{0, 0}, m.Score())
	assert.Equal(t, 0, m.Turn())
	assert.False(t, m.SuddenDeath())
	assert.Equal(t, [2]bool{}, m.rematch)
	assert.Equal(t, rolesBefore[1], m.CurrentRole("p1"))
	assert.Equal(t, rolesBefore[0], m.CurrentRole("p2"))

	_, ok := m.Winner()
	assert.False(t, ok)

	assert.Equal(t, Latches{}, m.Latches())
	assert.Equal(t, TurnWaitingChoices, m.TurnState())
	snap := m.Snapshot()
	assert.Equal(t, OutcomeNone, snap.Outcome)
	assert.False(t, snap.BeaterChose)
	assert.False(t, snap.KeeperChose)
	assert.Equal(t, m.rules.Field.BallSpot, snap.Ball.Position)
	assert.False(t, snap.Ball.Moving)
	assert.False(t, snap.Ball.Attached)
	assert.Zero(t, snap.Ball.Progress)

	runUntil(t, m, EvtTurnStarted, 5*time.Second)
}

func TestLeave_AbortsStartedMatch(t *testing.T) {
	m := startedMatch(t, nil)

	events := m.Leave("p2")
	assert.True(t, ContainsEvent(events, EvtPlayerLeft))
	assert.True(t, ContainsEvent(events, EvtMatchAborted))
	assert.Equal(t, PhaseAborted, m.CurrentPhase())
	assert.Empty(t, run(m, time.Second))
}

func TestLeave_BeforeSecondPlayerFreesSlot(t *testing.T) {
	m := newTestMatch(t, nil)
	_, _ = m.Join("p1", "p1")

	events := m.Leave("p1")
	assert.True(t, ContainsEvent(events, EvtPlayerLeft))
	assert.False(t, ContainsEvent(events, EvtMatchAborted))
	assert.Equal(t, PhaseWaitingPlayers, m.CurrentPhase())

	_, err := m.Join("p2", "p2")
	require.NoError(t, err)
	assert.Nil(t, m.Leave("nobody"))
}

func TestSnapshot_HidesPendingChoices(t *testing.T) {
	m := startedMatch(t, nil)
	before := m.Snapshot()
	assert.Equal(t, 10, before.TurnSecondsLeft)

	submit(t, m, roles.Beater, Left, Top, precision.Perfect)
	after := m.Snapshot()

	assert.NotEqual(t, before, after)
	assert.True(t, after.BeaterChose)
	assert.False(t, after.KeeperChose)
	assert.Equal(t, after, m.Snapshot(), "snapshot is stable without ticks")
}

func TestMirror_OnlyMovesForward(t *testing.T) {
	m := startedMatch(t, nil)
	var mirror Mirror

	snap := m.Snapshot()
	require.True(t, mirror.Apply(2, snap))
	assert.Equal(t, PhaseActive, mirror.CurrentPhase())
	assert.Equal(t, roles.Beater, mirror.CurrentRole("p1"))
	assert.Equal(t, roles.None, mirror.CurrentRole(""))

	stale := snap
	stale.Phase = PhaseEnded
	assert.False(t, mirror.Apply(1, stale))
	assert.False(t, mirror.Apply(2, stale))
	assert.Equal(t, PhaseActive, mirror.CurrentPhase())
	assert.Equal(t, 2, mirror.Version())

	side, ok := mirror.Side("p2")
	require.True(t, ok)
	assert.Equal(t, 1, side)
	assert.Equal(t, 10*time.Second, mirror.RemainingTurnTime())
}
