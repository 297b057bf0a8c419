package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
)

// Memory implementa escrow.Store em memória, com as mesmas guardas de
// transição do Postgres. Usado nos testes e em execução local sem banco.
type Memory struct {
	mu      sync.Mutex
	escrows map[string]*escrow.Escrow
}

func NewMemory() *Memory {
	return &Memory{escrows: make(map[string]*escrow.Escrow)}
}

func (m *Memory) Insert(_ context.Context, e *escrow.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.escrows[e.ID]; ok {
		return fmt.Errorf("escrow %s already exists", e.ID)
	}
	cp := *e
	m.escrows[e.ID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*escrow.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.escrows[id]
	if !ok {
		return nil, escrow.ErrEscrowNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) ListByWallet(_ context.Context, walletID string) ([]escrow.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []escrow.Escrow
	for _, e := range m.escrows {
		if e.WalletID == walletID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListActiveByMatch(_ context.Context, matchID string) ([]escrow.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []escrow.Escrow
	for _, e := range m.escrows {
		if e.MatchID == matchID && e.Status == escrow.StatusActive {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, from, to escrow.Status, txid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.escrows[id]
	if !ok {
		return escrow.ErrEscrowNotFound
	}
	if e.Status != from {
		return fmt.Errorf("%w: expected %s, found %s", escrow.ErrInvalidTransition, from, e.Status)
	}
	e.Status = to
	if txid != "" {
		e.Txid = txid
	}
	e.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SweepExpired(_ context.Context, now time.Time) ([]escrow.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []escrow.Escrow
	for _, e := range m.escrows {
		if e.Status == escrow.StatusPending && !now.Before(e.ExpiresAt) {
			e.Status = escrow.StatusRefunded
			e.UpdatedAt = now
			out = append(out, *e)
		}
	}
	return out, nil
}
