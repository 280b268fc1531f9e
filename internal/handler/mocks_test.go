package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/voxly/internal/auth"
	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/session"
	"github.com/hitoshi/voxly/internal/synthesis"
	"github.com/hitoshi/voxly/internal/view"
)

// --- 共通モック ---

type mockCatalog struct {
	listFn func(ctx context.Context, state session.State) ([]model.VoiceModel, error)
}

func (m *mockCatalog) List(ctx context.Context, state session.State) ([]model.VoiceModel, error) {
	if m.listFn != nil {
		return m.listFn(ctx, state)
	}
	return nil, nil
}

func staticCatalog(models ...model.VoiceModel) *mockCatalog {
	return &mockCatalog{
		listFn: func(ctx context.Context, state session.State) ([]model.VoiceModel, error) {
			return models, nil
		},
	}
}

type mockGenerator struct {
	generateFn func(ctx context.Context, text, model string) (*synthesis.Audio, error)
	calls      int
	lastModel  string
}

func (m *mockGenerator) Generate(ctx context.Context, text, model string) (*synthesis.Audio, error) {
	m.calls++
	m.lastModel = model
	if m.generateFn != nil {
		return m.generateFn(ctx, text, model)
	}
	return &synthesis.Audio{Data: []byte("ID3-audio"), ContentType: "audio/mpeg"}, nil
}

type mockSubscriber struct {
	subscribeFn func(ctx context.Context, state session.State, planTitle string, cycle model.BillingCycle) (string, error)
}

func (m *mockSubscriber) Subscribe(ctx context.Context, state session.State, planTitle string, cycle model.BillingCycle) (string, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, state, planTitle, cycle)
	}
	return "", nil
}

type mockTokenVerifier struct {
	verifyTokenFn func(token string) (*auth.TokenClaims, error)
}

func (m *mockTokenVerifier) VerifyToken(token string) (*auth.TokenClaims, error) {
	if m.verifyTokenFn != nil {
		return m.verifyTokenFn(token)
	}
	return nil, auth.ErrInvalidToken
}

type mockCheckoutCreator struct {
	createFn func(ctx context.Context, email string, req billing.CheckoutRequest) (string, error)
}

func (m *mockCheckoutCreator) Create(ctx context.Context, email string, req billing.CheckoutRequest) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, req)
	}
	return "", nil
}

type failingRenderer struct{}

func (failingRenderer) Render(w http.ResponseWriter, status int, name string, page view.Page) error {
	return errors.New("template exploded")
}

// --- ヘルパー ---

func newTestRenderer(t *testing.T) *view.Renderer {
	t.Helper()
	r, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error: %v", err)
	}
	return r
}

func newTestSynthesis(t *testing.T, gen synthesis.Generator) *synthesis.Service {
	t.Helper()
	registry := synthesis.NewRegistry(synthesis.RegistryConfig{IdleTTL: time.Hour, CleanupInterval: time.Hour})
	t.Cleanup(registry.Stop)
	return synthesis.NewService(gen, registry, synthesis.ServiceConfig{}, nil)
}

func signedIn(email string, profile model.MaybeProfile) session.State {
	return session.State{
		SessionID: "sess-1",
		User:      &model.User{Email: email, Name: "Test User"},
		Profile:   profile,
	}
}

// withBrowser はミドルウェアを通過した状態のリクエストコンテキストを組み立てる。
func withBrowser(r *http.Request, workspaceID string, state session.State) *http.Request {
	ctx := middleware.ContextWithWorkspaceID(r.Context(), workspaceID)
	ctx = middleware.ContextWithState(ctx, state)
	return r.WithContext(ctx)
}
