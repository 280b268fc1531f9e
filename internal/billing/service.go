package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/voxly/internal/metrics"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/session"
)

// MsgCheckoutFailed は決済開始に失敗した場合に表示する固定メッセージ。
const MsgCheckoutFailed = "Something went wrong. Please try again."

var (
	// ErrSignInRequired は未ログインでプランを選択した場合のエラー。
	ErrSignInRequired = errors.New("sign in required")
	// ErrAlreadySubscribed は契約中のプロダクトを再度選択した場合のエラー。
	ErrAlreadySubscribed = errors.New("already subscribed to this product")
	// ErrUnknownPlan は存在しないプランが指定された場合のエラー。
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrCheckoutFailed はトークン発行・決済セッション作成のいずれかに失敗した場合のエラー。
	ErrCheckoutFailed = errors.New(MsgCheckoutFailed)
)

// TokenCreator は現在のセッションに紐づく短命トークンを発行する。
type TokenCreator interface {
	CreateToken(ctx context.Context, sessionID string) (string, error)
}

// Service はサブスクリプション開始のワークフローを提供する。
type Service struct {
	tokens   TokenCreator
	checkout CheckoutCreator
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(tokens TokenCreator, checkout CheckoutCreator, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		tokens:   tokens,
		checkout: checkout,
		metrics:  mc,
	}
}

// IsActive はプロフィールのactive_product_idがプランとサイクルに一致するかを返す。
func IsActive(profile model.MaybeProfile, plan model.Plan, cycle model.BillingCycle) bool {
	p, ok := profile.Get()
	if !ok || p.ActiveProductID == "" {
		return false
	}
	return p.ActiveProductID == plan.ProductID(cycle)
}

// Subscribe は決済セッションを作成し、ブラウザの遷移先URLを返す。
// 契約中のプロダクトが選択された場合はトークン発行も通信も行わない。
func (s *Service) Subscribe(ctx context.Context, state session.State, planTitle string, cycle model.BillingCycle) (string, error) {
	if !state.SignedIn() {
		return "", ErrSignInRequired
	}

	plan, ok := FindPlan(planTitle)
	if !ok {
		return "", ErrUnknownPlan
	}

	if IsActive(state.Profile, plan, cycle) {
		s.metrics.RecordCheckout(metrics.ResultSkipped)
		return "", ErrAlreadySubscribed
	}

	token, err := s.tokens.CreateToken(ctx, state.SessionID)
	if err != nil {
		s.metrics.RecordCheckout(metrics.ResultFailure)
		slog.Error("failed to create identity token",
			slog.String("email", state.Email()),
			slog.String("error", err.Error()),
		)
		return "", ErrCheckoutFailed
	}

	url, err := s.checkout.CreateCheckoutSession(ctx, token, CheckoutRequest{
		PlanID:       plan.ProductID(cycle),
		BillingCycle: string(cycle),
		FullPlanName: plan.FullName(cycle),
	})
	if err != nil {
		s.metrics.RecordCheckout(metrics.ResultFailure)
		slog.Error("failed to create checkout session",
			slog.String("email", state.Email()),
			slog.String("plan", plan.FullName(cycle)),
			slog.String("error", err.Error()),
		)
		return "", ErrCheckoutFailed
	}

	s.metrics.RecordCheckout(metrics.ResultSuccess)
	slog.Info("checkout session created",
		slog.String("email", state.Email()),
		slog.String("plan", plan.FullName(cycle)),
	)
	return url, nil
}
