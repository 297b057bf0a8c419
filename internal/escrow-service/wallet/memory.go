package wallet

import (
	"context"
	"sync"
	"time"
)

// LedgerEntry é uma linha da trilha de auditoria em memória.
type LedgerEntry struct {
	WalletID   string
	Operation  string // DEBIT | CREDIT
	AmountSats int64
	Ref        string
	CreatedAt  time.Time
}

// MemoryRepo implementa Repo em memória com mutex cobrindo o
// read-check-write inteiro. Usado nos testes e em execução local.
type MemoryRepo struct {
	mu      sync.Mutex
	wallets map[string]*Wallet
	entries []LedgerEntry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{wallets: make(map[string]*Wallet)}
}

func (m *MemoryRepo) Create(_ context.Context, w *Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.wallets[w.ID] = &cp
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id string) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, ErrWalletNotFound
}

func (m *MemoryRepo) GetByInkey(_ context.Context, inkey string) (*Wallet, error) {
	return m.find(func(w *Wallet) bool { return w.Inkey == inkey })
}

func (m *MemoryRepo) GetByAdminkey(_ context.Context, adminkey string) (*Wallet, error) {
	return m.find(func(w *Wallet) bool { return w.Adminkey == adminkey })
}

func (m *MemoryRepo) find(match func(*Wallet) bool) (*Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if match(w) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, ErrWalletNotFound
}

func (m *MemoryRepo) Debit(_ context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	if w.BalanceSats < amountSats {
		return 0, ErrInsufficientFunds
	}
	w.BalanceSats -= amountSats
	m.entries = append(m.entries, LedgerEntry{
		WalletID: walletID, Operation: "DEBIT", AmountSats: amountSats, Ref: ref, CreatedAt: time.Now(),
	})
	return w.BalanceSats, nil
}

func (m *MemoryRepo) Credit(_ context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	w.BalanceSats += amountSats
	m.entries = append(m.entries, LedgerEntry{
		WalletID: walletID, Operation: "CREDIT", AmountSats: amountSats, Ref: ref, CreatedAt: time.Now(),
	})
	return w.BalanceSats, nil
}

// Entries devolve uma cópia da trilha de auditoria.
func (m *MemoryRepo) Entries() []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
