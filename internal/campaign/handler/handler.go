// Package handler is the thin HTTP boundary over the campaign ledger. It
// authenticates nothing itself; middleware supplies the caller address and
// handlers delegate to the ledger service.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/service"
	"fundledger/internal/platform/middleware"
	"fundledger/internal/treasury"
	"fundledger/pkg/apperr"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// Service is the ledger surface the handlers need.
type Service interface {
	Create(ctx context.Context, caller identity.Address, in service.CreateInput) (uint64, error)
	Donate(ctx context.Context, caller identity.Address, index uint64, value money.Amount) (money.Amount, error)
	End(ctx context.Context, caller identity.Address, index uint64) (money.Amount, error)
	Count(ctx context.Context) (uint64, error)
	CampaignAt(ctx context.Context, index uint64) (campaign.Campaign, error)
	BalanceOf(ctx context.Context, index uint64) (money.Amount, error)
	List(ctx context.Context) ([]campaign.Campaign, error)
	CampaignsByCreator(ctx context.Context, creator identity.Address) ([]campaign.Campaign, error)
}

// Handler wires ledger operations onto chi routes.
type Handler struct {
	ledger Service
	rail   treasury.Rail
	auth   func(http.Handler) http.Handler
	log    zerolog.Logger
}

func New(ledger Service, rail treasury.Rail, auth func(http.Handler) http.Handler, log zerolog.Logger) *Handler {
	return &Handler{ledger: ledger, rail: rail, auth: auth, log: log}
}

// Register mounts the campaign routes. Queries are public; mutations
// require an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Get("/campaigns", h.handleList)
	r.Get("/campaigns/{index}", h.handleGet)
	r.Get("/campaigns/{index}/balance", h.handleBalance)
	r.Get("/creators/{address}/campaigns", h.handleByCreator)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/campaigns", h.handleCreate)
		r.Post("/campaigns/{index}/donations", h.handleDonate)
		r.Post("/campaigns/{index}/end", h.handleEnd)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	index, err := h.ledger.Create(r.Context(), caller, in)
	if err != nil {
		h.logFailure(r.Context(), "create campaign", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Index: index})
}

// handleDonate moves the donated value into custody, then records the
// donation. A rejected donation refunds the deposit so custody never holds
// funds the ledger does not account for.
func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.CodeBadRequest, "invalid request body"))
		return
	}
	value, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, apperr.New(apperr.CodeBadRequest, "invalid donation amount"))
		return
	}

	ctx := r.Context()
	if err := h.rail.Deposit(ctx, value); err != nil {
		h.logFailure(ctx, "custody deposit", err)
		writeError(w, apperr.Wrap(apperr.CodeInternal, "custody deposit failed", err))
		return
	}
	balance, err := h.ledger.Donate(ctx, caller, index, value)
	if err != nil {
		if refundErr := h.rail.Withdraw(ctx, value); refundErr != nil {
			h.log.Error().
				Err(refundErr).
				Uint64("index", index).
				Str("value", value.String()).
				Msg("refund after rejected donation failed")
		}
		h.logFailure(ctx, "donate", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, donateResponse{Index: index, Balance: balance})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	index, ok := h.index(w, r)
	if !ok {
		return
	}

	payout, err := h.ledger.End(r.Context(), caller, index)
	if err != nil {
		h.logFailure(r.Context(), "end campaign", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, endResponse{Index: index, Payout: payout})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.ledger.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.ledger.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Count: count, Campaigns: toViews(campaigns)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	c, err := h.ledger.CampaignAt(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(c))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w, r)
	if !ok {
		return
	}
	balance, err := h.ledger.BalanceOf(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Index: index, Balance: balance})
}

func (h *Handler) handleByCreator(w http.ResponseWriter, r *http.Request) {
	creator, err := identity.Parse(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, apperr.New(apperr.CodeBadRequest, "invalid creator address"))
		return
	}
	campaigns, err := h.ledger.CampaignsByCreator(r.Context(), creator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Count: uint64(len(campaigns)), Campaigns: toViews(campaigns)})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (identity.Address, bool) {
	caller := middleware.GetCaller(r.Context())
	if caller.IsZero() {
		// only reachable if the auth middleware is miswired
		writeError(w, apperr.New(apperr.CodeInternal, "authentication context error"))
		return identity.Zero, false
	}
	return caller, true
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		writeError(w, apperr.New(apperr.CodeBadRequest, "invalid campaign index"))
		return 0, false
	}
	return index, true
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	h.log.Warn().
		Err(err).
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("op", op).
		Msg(op + " failed")
}
