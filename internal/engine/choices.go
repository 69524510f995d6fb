package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

func (m *Match) submitChoice(side int, cmd Command) error {
	if m.phase != PhaseActive || m.exec.State() != TurnWaitingChoices {
		return nil
	}

	slot := m.slots[side]
	if slot.Role != cmd.Role {
		m.log.Warn("choice for a role the peer does not hold",
			zap.String("peer", slot.PeerID),
			zap.String("role", string(cmd.Role)),
			zap.String("holds", string(slot.Role)),
		)
		return ErrNotYourRole
	}
	if _, err := ParseHorizontal(string(cmd.Horizontal)); err != nil {
		return err
	}
	if _, err := ParseVertical(string(cmd.Vertical)); err != nil {
		return err
	}

	target := &m.keeperChoice
	zone := precision.Medium
	if cmd.Role == roles.Beater {
		target = &m.beaterChoice
		if cmd.Precision != "" {
			z, err := precision.ParseZone(string(cmd.Precision))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidChoice, err)
			}
			zone = z
		}
	}
	if target.HasChosen {
		return nil
	}

	*target = Choice{Horizontal: cmd.Horizontal, Vertical: cmd.Vertical, Precision: zone, HasChosen: true}
	m.emit(Event{Type: EvtChoiceSubmitted, Turn: m.turn, PeerID: slot.PeerID, Role: cmd.Role})

	if m.beaterChoice.HasChosen && m.keeperChoice.HasChosen {
		m.emit(Event{Type: EvtWaitingCleared, Turn: m.turn})
		m.processTurn()
	} else {
		m.emit(Event{Type: EvtWaiting, Turn: m.turn, PeerID: slot.PeerID})
	}
	return nil
}

// assignRandomChoices fills in whichever side ran out the clock.
func (m *Match) assignRandomChoices() {
	if !m.beaterChoice.HasChosen {
		m.beaterChoice = randomChoice(m.rng, true)
		m.log.Info("turn timer expired, beater choice assigned", zap.Int("turn", m.turn))
		m.emit(Event{Type: EvtChoicesDefaulted, Turn: m.turn, Role: roles.Beater, PeerID: m.slotFor(roles.Beater).PeerID})
	}
	if !m.keeperChoice.HasChosen {
		m.keeperChoice = randomChoice(m.rng, false)
		m.log.Info("turn timer expired, goalkeeper choice assigned", zap.Int("turn", m.turn))
		m.emit(Event{Type: EvtChoicesDefaulted, Turn: m.turn, Role: roles.GoalKeeper, PeerID: m.slotFor(roles.GoalKeeper).PeerID})
	}
	m.emit(Event{Type: EvtWaitingCleared, Turn: m.turn})
}
