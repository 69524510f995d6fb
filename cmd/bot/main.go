// Command bot joins a room as a peer and plays random choices until the
// match ends. Handy for trying the server with a single human player.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
	"github.com/DoyleJ11/shootout-backend/internal/peer"
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base url")
	code := flag.String("code", "", "room code; a new room is created when empty")
	name := flag.String("name", "Bot", "display name")
	role := flag.String("role", "", "preferred role: beater or goalkeeper")
	rematch := flag.Bool("rematch", false, "ask for a rematch after each match")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *server, *code, *name, *role, *rematch); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, server, code, name, pref string, rematch bool) error {
	preferred, err := roles.ParseRole(pref)
	if err != nil {
		return err
	}
	if code == "" {
		if code, err = createRoom(ctx, server); err != nil {
			return err
		}
		log.Info("created room", zap.String("code", code))
	}

	s, err := peer.Dial(ctx, server, code, name, log)
	if err != nil {
		return err
	}
	defer s.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bot := &bot{session: s, log: log, rng: rng}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-s.Notifications():
			if !ok {
				log.Info("disconnected")
				return nil
			}
			if n.Err != nil {
				log.Warn("server rejected command", zap.Error(n.Err))
				continue
			}
			for _, e := range n.Events {
				switch e.Type {
				case engine.EvtRoleSelectionOpened:
					if preferred.Playable() {
						if err := s.SelectRole(ctx, preferred); err != nil {
							return err
						}
					}
				case engine.EvtTurnStarted:
					go bot.playTurn(ctx, bot.pick())
				case engine.EvtResultShown:
					log.Info(e.Text, zap.Ints("score", scoreSlice(s.Score())))
				case engine.EvtMatchEnded:
					log.Info("match ended", zap.String("winner", e.Name))
					if !rematch {
						return nil
					}
					if err := s.RequestRematch(ctx); err != nil {
						return err
					}
				case engine.EvtMatchAborted:
					log.Info("match aborted")
					return nil
				}
			}
		}
	}
}

type bot struct {
	session *peer.Session
	log     *zap.Logger
	rng     *rand.Rand
}

type move struct {
	h     engine.Horizontal
	v     engine.Vertical
	think time.Duration
}

// pick draws the next move. It runs on the notification loop, which owns rng.
func (b *bot) pick() move {
	return move{
		h:     engine.Horizontals[b.rng.Intn(len(engine.Horizontals))],
		v:     engine.Verticals[b.rng.Intn(len(engine.Verticals))],
		think: time.Duration(500+b.rng.Intn(2500)) * time.Millisecond,
	}
}

// playTurn waits a moment like a person would, then commits the move.
// As beater it watches the precision bar and shoots wherever it happens to be.
func (b *bot) playTurn(ctx context.Context, mv move) {
	h, v, think := mv.h, mv.v, mv.think

	var err error
	switch b.session.CurrentRole() {
	case roles.Beater:
		bar := precision.NewBar()
		bar.Start()
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.After(think)
	watch:
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bar.Advance(0.016)
			case <-deadline:
				break watch
			}
		}
		err = b.session.Shoot(ctx, h, v, bar)
		b.log.Debug("shot", zap.String("h", string(h)), zap.String("v", string(v)))

	case roles.GoalKeeper:
		select {
		case <-ctx.Done():
			return
		case <-time.After(think):
		}
		err = b.session.Dive(ctx, h, v)
		b.log.Debug("dive", zap.String("h", string(h)), zap.String("v", string(v)))
	}
	if err != nil {
		b.log.Warn("submit choice", zap.Error(err))
	}
}

func createRoom(ctx context.Context, server string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(server, "/")+"/rooms", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: %s", resp.Status)
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Code, nil
}

func scoreSlice(s [2]int) []int { return s[:] }
