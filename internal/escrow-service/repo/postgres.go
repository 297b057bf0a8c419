package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
)

// Postgres implementa escrow.Store em banco Postgres.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const escrowColumns = `id, wallet_id, match_id, market, selected_outcome, odds, amount_sats,
	status, escrow_address, txid, created_at, expires_at, updated_at`

// Insert registra um escrow recém-criado (status pending).
func (p *Postgres) Insert(ctx context.Context, e *escrow.Escrow) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO escrows (id, wallet_id, match_id, market, selected_outcome, odds, amount_sats,
			status, escrow_address, created_at, expires_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.WalletID, e.MatchID, e.Market, e.SelectedOutcome, e.Odds, e.AmountSats,
		string(e.Status), e.EscrowAddress, e.CreatedAt, e.ExpiresAt, e.UpdatedAt,
	)
	return err
}

// Get retorna um escrow pelo id.
func (p *Postgres) Get(ctx context.Context, id string) (*escrow.Escrow, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+escrowColumns+` FROM escrows WHERE id=$1`, id)
	e, err := scanEscrow(row)
	if err == sql.ErrNoRows {
		return nil, escrow.ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByWallet lista os escrows de uma carteira, mais recentes primeiro.
func (p *Postgres) ListByWallet(ctx context.Context, walletID string) ([]escrow.Escrow, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE wallet_id=$1 ORDER BY created_at DESC`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListActiveByMatch lista escrows ativos de uma partida (liquidação).
func (p *Postgres) ListActiveByMatch(ctx context.Context, matchID string) ([]escrow.Escrow, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE match_id=$1 AND status='active' ORDER BY created_at`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// UpdateStatus aplica a transição com lock pessimista na linha e guarda o
// histórico em escrow_transitions. Falha com ErrInvalidTransition se o status
// atual não for o esperado.
func (p *Postgres) UpdateStatus(ctx context.Context, id string, from, to escrow.Status, txid string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT status FROM escrows WHERE id=$1 FOR UPDATE`, id).Scan(&cur)
	if err == sql.ErrNoRows {
		return escrow.ErrEscrowNotFound
	}
	if err != nil {
		return err
	}
	if escrow.Status(cur) != from {
		return fmt.Errorf("%w: expected %s, found %s", escrow.ErrInvalidTransition, from, cur)
	}

	if txid != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE escrows SET status=$1, txid=$2, updated_at=NOW() WHERE id=$3`, string(to), txid, id)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE escrows SET status=$1, updated_at=NOW() WHERE id=$2`, string(to), id)
	}
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO escrow_transitions (escrow_id, old_status, new_status, created_at)
		VALUES ($1,$2,$3,NOW())`, id, string(from), string(to)); err != nil {
		return err
	}

	return tx.Commit()
}

// SweepExpired transiciona em lote os pending vencidos para refunded.
// Retorna os escrows afetados já com o novo status.
func (p *Postgres) SweepExpired(ctx context.Context, now time.Time) ([]escrow.Escrow, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE status='pending' AND expires_at <= $1 FOR UPDATE`, now)
	if err != nil {
		return nil, err
	}
	expired, err := collect(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, tx.Commit()
	}

	for i := range expired {
		e := &expired[i]
		if _, err = tx.ExecContext(ctx,
			`UPDATE escrows SET status='refunded', updated_at=NOW() WHERE id=$1`, e.ID); err != nil {
			return nil, err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO escrow_transitions (escrow_id, old_status, new_status, created_at)
			VALUES ($1,'pending','refunded',NOW())`, e.ID); err != nil {
			return nil, err
		}
		e.Status = escrow.StatusRefunded
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return expired, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanEscrow(row scanner) (*escrow.Escrow, error) {
	var e escrow.Escrow
	var status string
	var txid sql.NullString
	err := row.Scan(&e.ID, &e.WalletID, &e.MatchID, &e.Market, &e.SelectedOutcome, &e.Odds,
		&e.AmountSats, &status, &e.EscrowAddress, &txid, &e.CreatedAt, &e.ExpiresAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = escrow.Status(status)
	e.Txid = txid.String
	return &e, nil
}

func collect(rows *sql.Rows) ([]escrow.Escrow, error) {
	var out []escrow.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
