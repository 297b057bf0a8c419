package wallet

import (
	"context"
	"database/sql"
)

// Postgres implementa Repo em banco Postgres, com lock pessimista na linha da
// carteira e trilha de auditoria em wallet_ledger.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Create(ctx context.Context, w *Wallet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallets (id, username, adminkey, inkey, balance_sats, version, created_at)
		VALUES ($1,$2,$3,$4,0,1,$5)`,
		w.ID, w.Username, w.Adminkey, w.Inkey, w.CreatedAt,
	)
	return err
}

func (p *Postgres) GetByID(ctx context.Context, id string) (*Wallet, error) {
	return p.getBy(ctx, `id`, id)
}

func (p *Postgres) GetByInkey(ctx context.Context, inkey string) (*Wallet, error) {
	return p.getBy(ctx, `inkey`, inkey)
}

func (p *Postgres) GetByAdminkey(ctx context.Context, adminkey string) (*Wallet, error) {
	return p.getBy(ctx, `adminkey`, adminkey)
}

func (p *Postgres) getBy(ctx context.Context, column, value string) (*Wallet, error) {
	var w Wallet
	err := p.db.QueryRowContext(ctx, `
		SELECT id, username, adminkey, inkey, balance_sats, created_at
		FROM wallets WHERE `+column+`=$1`, value).
		Scan(&w.ID, &w.Username, &w.Adminkey, &w.Inkey, &w.BalanceSats, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit subtrai saldo com checagem dentro da mesma transação (FOR UPDATE),
// garantindo que duas apostas concorrentes não passem pela checagem com saldo velho.
func (p *Postgres) Debit(ctx context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance_sats FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, err
	}
	if balance < amountSats {
		return 0, ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_sats = balance_sats - $1, version = version + 1 WHERE id=$2`,
		amountSats, walletID); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (wallet_id, operation_type, amount_sats, description, created_at)
		VALUES ($1,'DEBIT',$2,$3,NOW())`, walletID, amountSats, ref); err != nil {
		return 0, err
	}

	newBalance := balance - amountSats
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Credit soma saldo e registra a operação no ledger.
func (p *Postgres) Credit(ctx context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance_sats FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_sats = balance_sats + $1, version = version + 1 WHERE id=$2`,
		amountSats, walletID); err != nil {
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (wallet_id, operation_type, amount_sats, description, created_at)
		VALUES ($1,'CREDIT',$2,$3,NOW())`, walletID, amountSats, ref); err != nil {
		return 0, err
	}

	newBalance := balance + amountSats
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}
