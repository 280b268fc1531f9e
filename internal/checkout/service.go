// Package checkout はStripe Checkoutによる決済セッション作成を提供する。
// 料金ページから呼ばれる決済セッション作成エンドポイントの実体。
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/model"
)

const defaultCurrency = "usd"

var (
	// ErrInvalidPlan は存在しないプロダクトIDが指定された場合のエラー。
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrCycleMismatch はプロダクトIDと請求サイクルが一致しない場合のエラー。
	ErrCycleMismatch = errors.New("billing cycle does not match plan")
)

// SessionCreator はStripeの決済セッションを作成する。
// stripe-goのcheckout/session.Clientが満たす。
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeSessionCreator はシークレットキーを使用するSessionCreatorを返す。
func NewStripeSessionCreator(secretKey string) SessionCreator {
	return session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

// Config はServiceの設定。
type Config struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// Service は決済セッションを作成する。
type Service struct {
	sessions SessionCreator
	config   Config
}

// NewService はServiceを生成する。
func NewService(sessions SessionCreator, config Config) *Service {
	if config.Currency == "" {
		config.Currency = defaultCurrency
	}
	return &Service{sessions: sessions, config: config}
}

// Create はプランに対応するサブスクリプションの決済セッションを作成し、遷移先URLを返す。
// 価格はプラン定義から算出し、リクエストの金額は信用しない。
func (s *Service) Create(ctx context.Context, email string, req billing.CheckoutRequest) (string, error) {
	plan, cycle, ok := billing.FindByProductID(req.PlanID)
	if !ok {
		return "", ErrInvalidPlan
	}
	if req.BillingCycle != "" && req.BillingCycle != string(cycle) {
		return "", ErrCycleMismatch
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(email),
		SuccessURL:    stripe.String(s.config.SuccessURL),
		CancelURL:     stripe.String(s.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.config.Currency),
					Product:    stripe.String(plan.ProductID(cycle)),
					UnitAmount: stripe.Int64(int64(plan.Price(cycle)) * 100),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(recurringInterval(cycle)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_email":     email,
			"plan_id":        plan.ProductID(cycle),
			"full_plan_name": plan.FullName(cycle),
		},
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout session created",
		slog.String("email", email),
		slog.String("plan", plan.FullName(cycle)),
		slog.String("session_id", sess.ID),
	)

	return sess.URL, nil
}

// recurringInterval は請求サイクルをStripeの課金間隔に変換する。
func recurringInterval(cycle model.BillingCycle) string {
	if cycle == model.BillingYearly {
		return string(stripe.PriceRecurringIntervalYear)
	}
	return string(stripe.PriceRecurringIntervalMonth)
}
