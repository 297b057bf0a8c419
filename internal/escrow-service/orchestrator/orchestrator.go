package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/odds"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrOddsChanged            = errors.New("odds changed")
	ErrPaymentTimeout         = errors.New("payment timeout")
)

// tolerância na comparação entre a odd vista pelo cliente e a corrente
const oddsTolerance = 1e-4

// BetPublisher publica o evento bet_placed após a orquestração completa.
type BetPublisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

// Options parametriza o fluxo de colocação de aposta.
type Options struct {
	BetTTL         time.Duration // validade do escrow pending
	InvoiceTTL     time.Duration // validade da invoice
	PaymentTimeout time.Duration // espera máxima pela liquidação do pagamento
	PollInterval   time.Duration // intervalo de consulta da invoice
	AutoSettle     bool          // simula o pagamento pela carteira admin (ambiente local)
}

func (o *Options) defaults() {
	if o.BetTTL <= 0 {
		o.BetTTL = 10 * time.Minute
	}
	if o.InvoiceTTL <= 0 {
		o.InvoiceTTL = 10 * time.Minute
	}
	if o.PaymentTimeout <= 0 {
		o.PaymentTimeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
}

// Orchestrator sequencia a colocação de aposta: resolve odds, cria escrow,
// emite invoice, aguarda pagamento, funda o escrow e debita a carteira.
// Qualquer falha depois da criação cancela o escrow — nada fica pendurado
// em pending além da política de expiração.
type Orchestrator struct {
	log     *zap.Logger
	ledger  *wallet.Ledger
	manager *escrow.Manager
	issuer  *invoice.Issuer
	checker *odds.Checker // opcional; sem cache não há checagem de drift
	publ    BetPublisher  // opcional
	opts    Options
}

func New(log *zap.Logger, ledger *wallet.Ledger, manager *escrow.Manager, issuer *invoice.Issuer,
	checker *odds.Checker, publ BetPublisher, opts Options) *Orchestrator {
	opts.defaults()
	return &Orchestrator{
		log:     log,
		ledger:  ledger,
		manager: manager,
		issuer:  issuer,
		checker: checker,
		publ:    publ,
		opts:    opts,
	}
}

type PlaceBetParams struct {
	Adminkey  string
	Inkey     string
	MatchID   string
	Market    string
	Selection string
	Odds      float64 // odd vista pelo cliente
	Amount    int64   // sats
}

type PlaceBetResult struct {
	EscrowID       string
	EscrowAddress  string
	PotentialWin   int64
	PaymentRequest string
	PaymentHash    string
	NewBalance     int64
}

// PlaceBet executa a operação completa de aposta.
// Erros do resolver, do emissor e do manager sobem sem tradução; a camada
// HTTP converte para as mensagens de usuário.
func (o *Orchestrator) PlaceBet(ctx context.Context, p PlaceBetParams) (*PlaceBetResult, error) {
	// 1) sessão: adminkey precisa resolver uma carteira
	w, err := o.ledger.Session(ctx, p.Adminkey)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return nil, ErrAuthenticationRequired
		}
		return nil, err
	}

	market := p.Market
	if market == "" {
		market = odds.MarketMatchWinner
	}

	// 2) resolve a odd; usa o cache quando disponível, senão a odd do cliente
	matchOdds, cached := o.currentOdds(ctx, p)
	resolved, err := odds.Resolve(market, p.Selection, matchOdds)
	if err != nil {
		return nil, err
	}
	if cached && math.Abs(resolved-p.Odds) > oddsTolerance {
		return nil, fmt.Errorf("%w: current=%.2f", ErrOddsChanged, resolved)
	}

	// 3) pré-checagem de saldo; o débito atômico mais adiante é a autoridade
	if w.BalanceSats < p.Amount {
		return nil, wallet.ErrInsufficientFunds
	}

	// 4) escrow pending
	esc, err := o.manager.Create(ctx, escrow.CreateParams{
		WalletID:        w.ID,
		MatchID:         p.MatchID,
		Market:          market,
		SelectedOutcome: p.Selection,
		Odds:            resolved,
		AmountSats:      p.Amount,
		ExpiresAt:       time.Now().Add(o.opts.BetTTL),
	})
	if err != nil {
		return nil, err
	}

	// 5) invoice amarrada ao escrow
	inv, err := o.issuer.Create(ctx, invoice.CreateParams{
		AmountSats:  p.Amount,
		Memo:        fmt.Sprintf("bet %s %s", p.MatchID, p.Selection),
		ExpiresIn:   int64(o.opts.InvoiceTTL.Seconds()),
		ExternalRef: esc.ID,
	})
	if err != nil {
		o.rollback(ctx, esc.ID, "invoice create")
		return nil, err
	}

	// Em local a carteira admin "paga" a invoice na hora (fluxo do app de demo)
	if o.opts.AutoSettle {
		if _, err := o.issuer.MarkSettled(ctx, inv.PaymentHash); err != nil {
			o.rollback(ctx, esc.ID, "auto settle")
			return nil, err
		}
	}

	// 6) aguarda a liquidação do pagamento
	if err := o.awaitPayment(ctx, inv.PaymentHash); err != nil {
		o.rollback(ctx, esc.ID, "await payment")
		return nil, err
	}

	// 7) funding: pending -> active
	if err := o.manager.Fund(ctx, esc.ID, inv.PaymentHash); err != nil {
		o.rollback(ctx, esc.ID, "fund")
		return nil, err
	}

	// 8) débito atômico do saldo
	newBalance, err := o.ledger.Debit(ctx, w.ID, p.Amount, "bet:"+esc.ID)
	if err != nil {
		o.rollback(ctx, esc.ID, "debit")
		return nil, err
	}

	// 9) evento bet_placed (melhor esforço)
	if o.publ != nil {
		ev := events.BetPlaced{
			EscrowID:     esc.ID,
			WalletID:     w.ID,
			MatchID:      p.MatchID,
			Market:       market,
			Selection:    p.Selection,
			AmountSats:   p.Amount,
			Odds:         resolved,
			PotentialWin: esc.PotentialWin(),
		}
		if err := o.publ.PublishBetPlaced(ctx, ev); err != nil {
			o.log.Warn("publish bet_placed failed", zap.String("escrowId", esc.ID), zap.Error(err))
		}
	}

	o.log.Info("bet placed",
		zap.String("escrowId", esc.ID),
		zap.String("matchId", p.MatchID),
		zap.Int64("amountSats", p.Amount),
		zap.Int64("potentialWin", esc.PotentialWin()),
	)

	return &PlaceBetResult{
		EscrowID:       esc.ID,
		EscrowAddress:  esc.EscrowAddress,
		PotentialWin:   esc.PotentialWin(),
		PaymentRequest: inv.PaymentRequest,
		PaymentHash:    inv.PaymentHash,
		NewBalance:     newBalance,
	}, nil
}

// currentOdds consulta o cache de odds correntes; cache vazio cai para a odd
// declarada pelo cliente (só na seleção apostada).
func (o *Orchestrator) currentOdds(ctx context.Context, p PlaceBetParams) (odds.MatchOdds, bool) {
	if o.checker != nil && (p.Market == "" || p.Market == odds.MarketMatchWinner) {
		mo, ok, err := o.checker.CurrentMatchOdds(ctx, p.MatchID)
		if err != nil {
			o.log.Warn("odds cache lookup failed", zap.String("matchId", p.MatchID), zap.Error(err))
		} else if ok {
			return mo, true
		}
	}
	return odds.Fallback(p.Selection, p.Odds), false
}

// awaitPayment consulta a invoice até liquidar, estourar o prazo ou o caller
// abandonar o contexto.
func (o *Orchestrator) awaitPayment(ctx context.Context, paymentHash string) error {
	settled, err := o.issuer.CheckPayment(ctx, paymentHash)
	if err != nil {
		return err
	}
	if settled {
		return nil
	}

	deadline := time.NewTimer(o.opts.PaymentTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(o.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrPaymentTimeout
		case <-tick.C:
			settled, err := o.issuer.CheckPayment(ctx, paymentHash)
			if err != nil {
				return err
			}
			if settled {
				return nil
			}
		}
	}
}

// rollback cancela o escrow recém-criado sem crédito (nenhum débito ocorreu).
// Usa contexto próprio: vale inclusive quando o caller abandonou o original.
func (o *Orchestrator) rollback(ctx context.Context, escrowID, stage string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.manager.Cancel(cctx, escrowID); err != nil {
		// a varredura de expiração é o backstop
		o.log.Error("escrow rollback failed",
			zap.String("escrowId", escrowID),
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}
