package httpserver

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/hyblock/hyblock-contracts/internal/devnet"
	"github.com/hyblock/hyblock-contracts/pkg/types"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"go.uber.org/zap"
)

// DevnetHandler serves the token and betting ledgers over HTTP. Callers name
// the acting account in the request body; the devnet does not check signatures.
type DevnetHandler struct {
	devnet *devnet.Devnet
	logger *zap.Logger
}

// NewDevnetHandler creates a devnet API handler.
func NewDevnetHandler(d *devnet.Devnet, logger *zap.Logger) *DevnetHandler {
	return &DevnetHandler{devnet: d, logger: logger}
}

// Routes registers the API routes on r.
func (h *DevnetHandler) Routes(r chi.Router) {
	r.Get("/accounts", h.handleAccounts)
	r.Get("/token", h.handleToken)
	r.Get("/token/balances/{address}", h.handleBalance)
	r.Post("/token/approve", h.handleApprove)
	r.Post("/token/transfer", h.handleTransfer)

	r.Post("/bets", h.handleCreateBet)
	r.Get("/bets/{id}", h.handleGetBet)
	r.Post("/bets/{id}/wagers", h.handlePlaceBet)
	r.Post("/bets/{id}/resolve", h.handleResolveBet)
	r.Get("/bets/{id}/options", h.handleOptions)
	r.Get("/bets/{id}/users/{address}", h.handleUserBet)
}

// Amount is a token amount in base units with its decimal rendering.
type Amount struct {
	Wei       string `json:"wei"`
	Formatted string `json:"formatted"`
}

// AccountResponse describes a devnet account.
type AccountResponse struct {
	devnet.Account
	Balance Amount `json:"balance"`
}

// TokenResponse describes the devnet token.
type TokenResponse struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	TotalSupply Amount         `json:"totalSupply"`
}

// BalanceResponse is a token balance.
type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance Amount         `json:"balance"`
}

// ApproveRequest approves spender for amount of owner's tokens.
type ApproveRequest struct {
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

// TransferRequest moves amount tokens from From to To.
type TransferRequest struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

// CreateBetRequest opens a bet.
type CreateBetRequest struct {
	Caller  common.Address `json:"caller"`
	Topic   string         `json:"topic"`
	Options []string       `json:"options"`
}

// CreateBetResponse carries the new bet id.
type CreateBetResponse struct {
	BetID uint64 `json:"betId"`
}

// PlaceBetRequest wagers amount on option.
type PlaceBetRequest struct {
	Caller common.Address `json:"caller"`
	Option string         `json:"option"`
	Amount string         `json:"amount"`
}

// ResolveBetRequest resolves a bet.
type ResolveBetRequest struct {
	Caller        common.Address `json:"caller"`
	WinningOption string         `json:"winningOption"`
}

// ResolveBetResponse lists the payouts made.
type ResolveBetResponse struct {
	BetID         uint64               `json:"betId"`
	WinningOption string               `json:"winningOption"`
	Payouts       []types.PayoutEvent `json:"payouts"`
}

// OptionResponse is one option with its pool.
type OptionResponse struct {
	Option string `json:"option"`
	Amount Amount `json:"amount"`
}

// UserBetResponse lists a user's stakes.
type UserBetResponse struct {
	BetID         uint64         `json:"betId"`
	User          common.Address `json:"user"`
	OptionIndexes []uint64       `json:"optionIndexes"`
	Amounts       []Amount       `json:"amounts"`
}

// ErrorResponse represents an HTTP error response. Contract reverts carry
// either Reason or CustomError.
type ErrorResponse struct {
	Error       string `json:"error"`
	Reason      string `json:"reason,omitempty"`
	CustomError string `json:"customError,omitempty"`
}

func (h *DevnetHandler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.devnet.Accounts()
	resp := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, AccountResponse{
			Account: acc,
			Balance: h.amount(h.devnet.Token().BalanceOf(acc.Address)),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *DevnetHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	tok := h.devnet.Token()
	h.writeJSON(w, http.StatusOK, TokenResponse{
		Address:     tok.Address(),
		Name:        tok.Name(),
		Symbol:      tok.Symbol(),
		Decimals:    tok.Decimals(),
		TotalSupply: h.amount(tok.TotalSupply()),
	})
}

func (h *DevnetHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, BalanceResponse{
		Address: addr,
		Balance: h.amount(h.devnet.Token().BalanceOf(addr)),
	})
}

func (h *DevnetHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, ok := h.parseAllowance(w, req.Amount)
	if !ok {
		return
	}

	err := h.devnet.Token().Approve(req.Owner, req.Spender, amount)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.logger.Info("devnet-approve",
		zap.String("owner", req.Owner.Hex()),
		zap.String("spender", req.Spender.Hex()),
		zap.String("amount", req.Amount))

	h.writeJSON(w, http.StatusOK, map[string]Amount{
		"allowance": h.amount(h.devnet.Token().Allowance(req.Owner, req.Spender)),
	})
}

func (h *DevnetHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}

	err := h.devnet.Token().Transfer(req.From, req.To, amount)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.logger.Info("devnet-transfer",
		zap.String("from", req.From.Hex()),
		zap.String("to", req.To.Hex()),
		zap.String("amount", req.Amount))

	h.writeJSON(w, http.StatusOK, BalanceResponse{
		Address: req.From,
		Balance: h.amount(h.devnet.Token().BalanceOf(req.From)),
	})
}

func (h *DevnetHandler) handleCreateBet(w http.ResponseWriter, r *http.Request) {
	var req CreateBetRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.devnet.Bets().CreateBet(req.Caller, req.Topic, req.Options)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, CreateBetResponse{BetID: id})
}

func (h *DevnetHandler) handleGetBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBetID(w, r)
	if !ok {
		return
	}

	info, err := h.devnet.Bets().GetBet(id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

func (h *DevnetHandler) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBetID(w, r)
	if !ok {
		return
	}

	var req PlaceBetRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}

	err := h.devnet.Bets().PlaceBet(req.Caller, id, req.Option, amount)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	userBet, err := h.devnet.Bets().GetUserBet(id, req.Caller)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.userBetResponse(id, req.Caller, userBet))
}

func (h *DevnetHandler) handleResolveBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBetID(w, r)
	if !ok {
		return
	}

	var req ResolveBetRequest
	if !h.decode(w, r, &req) {
		return
	}

	payouts, err := h.devnet.Bets().ResolveBet(req.Caller, id, req.WinningOption)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if payouts == nil {
		payouts = []types.PayoutEvent{}
	}

	h.writeJSON(w, http.StatusOK, ResolveBetResponse{
		BetID:         id,
		WinningOption: req.WinningOption,
		Payouts:       payouts,
	})
}

func (h *DevnetHandler) handleOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBetID(w, r)
	if !ok {
		return
	}

	options, amounts, err := h.devnet.Bets().GetBetOptionInfos(id)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	resp := make([]OptionResponse, 0, len(options))
	for i, option := range options {
		resp = append(resp, OptionResponse{Option: option, Amount: h.amount(amounts[i])})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *DevnetHandler) handleUserBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathBetID(w, r)
	if !ok {
		return
	}

	user, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}

	userBet, err := h.devnet.Bets().GetUserBet(id, user)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.userBetResponse(id, user, userBet))
}

func (h *DevnetHandler) userBetResponse(id uint64, user common.Address, ub *types.UserBet) UserBetResponse {
	resp := UserBetResponse{
		BetID:         id,
		User:          user,
		OptionIndexes: ub.OptionIndexes,
		Amounts:       make([]Amount, 0, len(ub.Amounts)),
	}
	for _, amt := range ub.Amounts {
		resp.Amounts = append(resp.Amounts, h.amount(amt))
	}
	return resp
}

func (h *DevnetHandler) amount(v *big.Int) Amount {
	return Amount{
		Wei:       v.String(),
		Formatted: units.FormatUnits(v, int32(h.devnet.Token().Decimals())),
	}
}

func (h *DevnetHandler) parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	return h.parseWith(w, raw, units.ParseUnits)
}

// parseAllowance also accepts "unlimited"/"max" for the max-uint256 allowance.
func (h *DevnetHandler) parseAllowance(w http.ResponseWriter, raw string) (*big.Int, bool) {
	return h.parseWith(w, raw, units.ParseAllowance)
}

func (h *DevnetHandler) parseWith(w http.ResponseWriter, raw string, parse func(string, int32) (*big.Int, error)) (*big.Int, bool) {
	amount, err := parse(raw, int32(h.devnet.Token().Decimals()))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid amount: " + err.Error()})
		return nil, false
	}
	return amount, true
}

func (h *DevnetHandler) pathBetID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid bet id"})
		return 0, false
	}
	return id, true
}

func (h *DevnetHandler) pathAddress(w http.ResponseWriter, r *http.Request, param string) (common.Address, bool) {
	raw := chi.URLParam(r, param)
	if !common.IsHexAddress(raw) {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (h *DevnetHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// writeLedgerError maps contract reverts to 409 and anything else to 500.
func (h *DevnetHandler) writeLedgerError(w http.ResponseWriter, err error) {
	var revertErr *types.RevertError
	if errors.As(err, &revertErr) {
		h.writeError(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Reason: revertErr.Reason})
		return
	}

	var customErr *types.CustomError
	if errors.As(err, &customErr) {
		h.writeError(w, http.StatusConflict, ErrorResponse{Error: err.Error(), CustomError: customErr.Name})
		return
	}

	if errors.Is(err, types.ErrAmountOutOfRange) {
		h.writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	h.logger.Error("devnet-request-failed", zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (h *DevnetHandler) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	h.writeJSON(w, status, resp)
}

func (h *DevnetHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
