package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/dto"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/odds"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/orchestrator"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

// MatchSettledPublisher publica o sinal administrativo de liquidação.
type MatchSettledPublisher interface {
	PublishMatchSettled(ctx context.Context, e events.MatchSettled) error
}

// Server expõe a API pública consumida pelo frontend de apostas.
type Server struct {
	log     *zap.Logger
	ledger  *wallet.Ledger
	manager *escrow.Manager
	orch    *orchestrator.Orchestrator
	issuer  *invoice.Issuer
	publ    MatchSettledPublisher // opcional
	ws      http.HandlerFunc      // opcional: feed de odds via WebSocket
}

func NewServer(log *zap.Logger, ledger *wallet.Ledger, manager *escrow.Manager,
	orch *orchestrator.Orchestrator, issuer *invoice.Issuer, publ MatchSettledPublisher,
	ws http.HandlerFunc) *Server {
	return &Server{log: log, ledger: ledger, manager: manager, orch: orch, issuer: issuer, publ: publ, ws: ws}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/create-wallet", s.createWallet)
	r.Get("/api/balance/{inkey}", s.balance)
	r.Post("/api/deposit", s.deposit)
	r.Post("/api/place-bet", s.placeBet)
	r.Get("/api/escrows", s.listEscrows)
	r.Get("/api/escrows/{id}", s.getEscrow)
	r.Post("/api/escrows/{id}/dispute", s.disputeEscrow)
	r.Post("/api/resolve-bet", s.resolveBet)
	r.Post("/webhooks/payments", s.paymentWebhook)
	if s.ws != nil {
		r.Get("/ws", s.ws)
	}
	return r
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWalletRequest
	if !decode(w, r, &req) {
		return
	}
	wl, err := s.ledger.CreateWallet(r.Context(), req.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.CreateWalletResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.CreateWalletResponse{
		Success:  true,
		Message:  "wallet created",
		WalletID: wl.ID,
		Adminkey: wl.Adminkey,
		Inkey:    wl.Inkey,
	})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	inkey := chi.URLParam(r, "inkey")
	bal, err := s.ledger.Balance(r.Context(), inkey)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			writeJSON(w, http.StatusNotFound, dto.BalanceResponse{Success: false, Message: "wallet not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.BalanceResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Success: true, Balance: bal})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decode(w, r, &req) {
		return
	}
	bal, err := s.ledger.Deposit(r.Context(), req.Adminkey, req.AmountSats)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			writeJSON(w, http.StatusNotFound, dto.BalanceResponse{Success: false, Message: "wallet not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.BalanceResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Success: true, Balance: bal})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.orch.PlaceBet(r.Context(), orchestrator.PlaceBetParams{
		Adminkey:  req.WalletAdminkey,
		Inkey:     req.WalletInkey,
		MatchID:   req.MatchID,
		Market:    req.Market,
		Selection: req.SelectedOutcome,
		Odds:      req.Odds,
		Amount:    req.Amount,
	})
	if err != nil {
		status, msg := placeBetError(err)
		if status == http.StatusInternalServerError {
			s.log.Error("place bet failed", zap.String("matchId", req.MatchID), zap.Error(err))
		}
		writeJSON(w, status, dto.PlaceBetResponse{Success: false, Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{
		Success:        true,
		Message:        "bet placed",
		EscrowID:       res.EscrowID,
		EscrowAddress:  res.EscrowAddress,
		PotentialWin:   res.PotentialWin,
		PaymentRequest: res.PaymentRequest,
		PaymentHash:    res.PaymentHash,
		NewBalance:     &res.NewBalance,
	})
}

// placeBetError traduz a taxonomia de erros do fluxo pra status/mensagem de usuário.
func placeBetError(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "connect your wallet to place a bet"
	case errors.Is(err, escrow.ErrInvalidBet),
		errors.Is(err, odds.ErrUnknownSelection),
		errors.Is(err, odds.ErrInvalidOdds):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient balance"
	case errors.Is(err, orchestrator.ErrOddsChanged):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orchestrator.ErrPaymentTimeout):
		return http.StatusRequestTimeout, "payment not received in time; bet cancelled"
	default:
		return http.StatusInternalServerError, "bet placement failed"
	}
}

func (s *Server) listEscrows(w http.ResponseWriter, r *http.Request) {
	inkey := r.URL.Query().Get("inkey")
	if inkey == "" {
		writeJSON(w, http.StatusBadRequest, dto.StatusResponse{Success: false, Message: "inkey required"})
		return
	}
	wl, err := s.ledger.WalletByInkey(r.Context(), inkey)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.StatusResponse{Success: false, Message: "wallet not found"})
		return
	}
	list, err := s.manager.ListByWallet(r.Context(), wl.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.StatusResponse{Success: false, Message: err.Error()})
		return
	}
	out := make([]dto.EscrowResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.FromEscrow(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getEscrow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := s.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, escrow.ErrEscrowNotFound) {
			writeJSON(w, http.StatusNotFound, dto.StatusResponse{Success: false, Message: "escrow not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.StatusResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.FromEscrow(e))
}

func (s *Server) disputeEscrow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := s.manager.Dispute(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, escrow.ErrEscrowNotFound):
			writeJSON(w, http.StatusNotFound, dto.StatusResponse{Success: false, Message: "escrow not found"})
		case errors.Is(err, escrow.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, dto.StatusResponse{Success: false, Message: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.StatusResponse{Success: false, Message: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, dto.FromEscrow(e))
}

// resolveBet publica match_settled; a liquidação em si acontece no
// settlement-worker, fora da requisição.
func (s *Server) resolveBet(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveBetRequest
	if !decode(w, r, &req) {
		return
	}
	if s.publ == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.StatusResponse{Success: false, Message: "settlement unavailable"})
		return
	}
	if err := s.publ.PublishMatchSettled(r.Context(), events.MatchSettled{
		MatchID:        req.MatchID,
		WinningOutcome: req.WinningOutcome,
		Source:         "resolve-bet-api",
	}); err != nil {
		s.log.Error("publish match_settled failed", zap.String("matchId", req.MatchID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.StatusResponse{Success: false, Message: "publish failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, dto.StatusResponse{Success: true, Message: "settlement scheduled"})
}

// paymentWebhook marca a invoice como paga (callback do provedor Lightning).
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentWebhookRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.issuer.MarkSettled(r.Context(), req.PaymentHash); err != nil {
		switch {
		case errors.Is(err, invoice.ErrAlreadySettled):
			// reentrega do callback; idempotente
			writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "already settled"})
		case errors.Is(err, invoice.ErrInvoiceNotFound), errors.Is(err, invoice.ErrInvoiceExpired):
			writeJSON(w, http.StatusNotFound, dto.StatusResponse{Success: false, Message: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.StatusResponse{Success: false, Message: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "settled"})
}

type validator interface{ Validate() error }

// decode lê o body JSON e valida o payload; responde 400 e retorna false em erro.
func decode(w http.ResponseWriter, r *http.Request, v validator) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.StatusResponse{Success: false, Message: "bad json"})
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.StatusResponse{Success: false, Message: "invalid payload"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
