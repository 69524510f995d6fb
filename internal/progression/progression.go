package progression

import (
	"context"
	"errors"
	"sync"
)

var ErrNegativeAmount = errors.New("negative coin amount")

// Awarder credits coins to a player at the end of a match.
type Awarder interface {
	Award(ctx context.Context, peerID string, coins int) error
}

// Wallet is an in-memory coin ledger keyed by peer id. Balances do not
// survive a restart.
type Wallet struct {
	mu       sync.Mutex
	balances map[string]int
}

func NewWallet() *Wallet {
	return &Wallet{balances: make(map[string]int)}
}

func (w *Wallet) Award(ctx context.Context, peerID string, coins int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if coins < 0 {
		return ErrNegativeAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[peerID] += coins
	return nil
}

func (w *Wallet) Balance(peerID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[peerID]
}
