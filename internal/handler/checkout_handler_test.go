package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/voxly/internal/auth"
	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/checkout"
	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
)

func validTokens() *mockTokenVerifier {
	return &mockTokenVerifier{
		verifyTokenFn: func(token string) (*auth.TokenClaims, error) {
			if token != "valid-token" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.TokenClaims{Email: "user@example.com", ExpiresAt: time.Now().Add(time.Minute)}, nil
		},
	}
}

func checkoutRequest(token, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(billing.IdentityHeader, token)
	}
	return req
}

func TestCheckoutHandler_CreateSession_Success(t *testing.T) {
	var gotEmail string
	var gotReq billing.CheckoutRequest
	creator := &mockCheckoutCreator{
		createFn: func(ctx context.Context, email string, req billing.CheckoutRequest) (string, error) {
			gotEmail = email
			gotReq = req
			return "https://checkout.stripe.com/c/pay/cs_test", nil
		},
	}
	h := NewCheckoutHandler(validTokens(), creator)

	body := `{"planId":"prod_1308g86Vz0IIqbZgpPa9o4","billingCycle":"monthly","fullPlanName":"Pro Monthly"}`
	w := httptest.NewRecorder()

	h.CreateSession(w, checkoutRequest("valid-token", body))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp checkoutSessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL != "https://checkout.stripe.com/c/pay/cs_test" {
		t.Errorf("url = %q", resp.URL)
	}
	if gotEmail != "user@example.com" {
		t.Errorf("email = %q, want token email", gotEmail)
	}
	if gotReq.PlanID != "prod_1308g86Vz0IIqbZgpPa9o4" || gotReq.BillingCycle != "monthly" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
}

func TestCheckoutHandler_CreateSession_Errors(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		body      string
		createErr error
		want      int
		wantCode  string
	}{
		{name: "missing token", body: `{"planId":"p"}`, want: http.StatusUnauthorized, wantCode: model.ErrCodeUnauthorized},
		{name: "invalid token", token: "forged", body: `{"planId":"p"}`, want: http.StatusUnauthorized, wantCode: model.ErrCodeUnauthorized},
		{name: "malformed body", token: "valid-token", body: `{`, want: http.StatusBadRequest, wantCode: model.ErrCodeInvalidRequest},
		{name: "missing plan", token: "valid-token", body: `{}`, want: http.StatusBadRequest, wantCode: model.ErrCodeInvalidRequest},
		{name: "unknown plan", token: "valid-token", body: `{"planId":"prod_x"}`, createErr: checkout.ErrInvalidPlan, want: http.StatusBadRequest, wantCode: model.ErrCodeInvalidPlan},
		{name: "cycle mismatch", token: "valid-token", body: `{"planId":"prod_x","billingCycle":"yearly"}`, createErr: checkout.ErrCycleMismatch, want: http.StatusBadRequest, wantCode: model.ErrCodeInvalidPlan},
		{name: "stripe failure", token: "valid-token", body: `{"planId":"prod_x"}`, createErr: errors.New("stripe down"), want: http.StatusBadGateway, wantCode: model.ErrCodeCheckoutFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &mockCheckoutCreator{
				createFn: func(ctx context.Context, email string, req billing.CheckoutRequest) (string, error) {
					return "", tt.createErr
				},
			}
			h := NewCheckoutHandler(validTokens(), creator)
			w := httptest.NewRecorder()

			h.CreateSession(w, checkoutRequest(tt.token, tt.body))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var resp middleware.ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}
