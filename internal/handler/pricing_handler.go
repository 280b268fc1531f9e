package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/session"
	"github.com/hitoshi/voxly/internal/view"
)

// Subscriber は決済セッションを作成して遷移先URLを返す。billing.Serviceが満たす。
type Subscriber interface {
	Subscribe(ctx context.Context, state session.State, planTitle string, cycle model.BillingCycle) (string, error)
}

// PricingHandler は料金画面のHTTPハンドラー。
type PricingHandler struct {
	renderer   PageRenderer
	subscriber Subscriber
}

// NewPricingHandler はPricingHandlerを生成する。
func NewPricingHandler(renderer PageRenderer, subscriber Subscriber) *PricingHandler {
	return &PricingHandler{
		renderer:   renderer,
		subscriber: subscriber,
	}
}

// Show は料金画面を表示する。cycleが不正な場合は月額で表示する。
// GET /pricing?cycle=monthly|yearly
func (h *PricingHandler) Show(w http.ResponseWriter, r *http.Request) {
	cycle := parseCycle(r.URL.Query().Get("cycle"))
	h.render(w, r, http.StatusOK, cycle, "")
}

// Subscribe は選択されたプランの決済を開始する。
// POST /pricing/subscribe (plan, cycle)
func (h *PricingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed form"))
		return
	}
	cycle := parseCycle(r.PostForm.Get("cycle"))
	state := middleware.StateFromContext(r.Context())

	checkoutURL, err := h.subscriber.Subscribe(r.Context(), state, r.PostForm.Get("plan"), cycle)
	switch {
	case err == nil:
		http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
	case errors.Is(err, billing.ErrSignInRequired):
		redirectSeeOther(w, r, "/login")
	case errors.Is(err, billing.ErrAlreadySubscribed):
		redirectSeeOther(w, r, "/pricing?cycle="+url.QueryEscape(string(cycle)))
	case errors.Is(err, billing.ErrUnknownPlan):
		h.render(w, r, http.StatusBadRequest, cycle, "Please choose a plan from the list.")
	default:
		h.render(w, r, http.StatusBadGateway, cycle, billing.MsgCheckoutFailed)
	}
}

func (h *PricingHandler) render(w http.ResponseWriter, r *http.Request, status int, cycle model.BillingCycle, message string) {
	data := view.NewPricingView(middleware.StateFromContext(r.Context()).Profile, cycle)
	data.Error = message
	renderPage(w, r, h.renderer, status, view.PagePricing, "Pricing", data)
}

// parseCycle は請求サイクルを解釈する。不正な値は月額として扱う。
func parseCycle(s string) model.BillingCycle {
	cycle, err := model.ParseBillingCycle(s)
	if err != nil {
		return model.BillingMonthly
	}
	return cycle
}
