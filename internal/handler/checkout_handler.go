package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voxly/internal/auth"
	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/checkout"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
)

const maxCheckoutRequestBytes = 4 << 10

// TokenVerifier は短命トークンを検証する。auth.Serviceが満たす。
type TokenVerifier interface {
	VerifyToken(token string) (*auth.TokenClaims, error)
}

// CheckoutSessionCreator は決済セッションを作成する。checkout.Serviceが満たす。
type CheckoutSessionCreator interface {
	Create(ctx context.Context, email string, req billing.CheckoutRequest) (string, error)
}

// CheckoutHandler は決済セッション作成APIのHTTPハンドラー。
type CheckoutHandler struct {
	tokens   TokenVerifier
	sessions CheckoutSessionCreator
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(tokens TokenVerifier, sessions CheckoutSessionCreator) *CheckoutHandler {
	return &CheckoutHandler{
		tokens:   tokens,
		sessions: sessions,
	}
}

type checkoutSessionResponse struct {
	URL string `json:"url"`
}

// CreateSession は短命トークンのユーザーで決済セッションを作成し、遷移先URLを返す。
// POST /api/create-checkout-session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(billing.IdentityHeader)
	if token == "" {
		middleware.WriteUnauthorized(w)
		return
	}
	claims, err := h.tokens.VerifyToken(token)
	if err != nil {
		slog.Warn("checkout token rejected", slog.String("error", err.Error()))
		middleware.WriteUnauthorized(w)
		return
	}

	var req billing.CheckoutRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed JSON body"))
		return
	}
	if req.PlanID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("planId is required"))
		return
	}

	url, err := h.sessions.Create(r.Context(), claims.Email, req)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidPlan) || errors.Is(err, checkout.ErrCycleMismatch) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlanError(req.PlanID))
			return
		}
		slog.Error("failed to create checkout session",
			slog.String("email", claims.Email),
			slog.String("plan_id", req.PlanID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewCheckoutFailedError())
		return
	}

	writeJSON(w, http.StatusOK, checkoutSessionResponse{URL: url})
}
