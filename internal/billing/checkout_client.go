package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// IdentityHeader は短命トークンを伝えるリクエストヘッダー名。
const IdentityHeader = "X-Identity-JWT"

const maxCheckoutResponseBytes = 64 << 10

// CheckoutRequest は決済セッション作成エンドポイントへのリクエストボディ。
type CheckoutRequest struct {
	PlanID       string `json:"planId"`
	BillingCycle string `json:"billingCycle"`
	FullPlanName string `json:"fullPlanName"`
}

// checkoutResponse は決済セッション作成エンドポイントのレスポンス。
type checkoutResponse struct {
	URL string `json:"url"`
}

// CheckoutCreator は決済セッションを作成し、リダイレクト先URLを返す。
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, token string, req CheckoutRequest) (string, error)
}

// CheckoutClientConfig はCheckoutClientの設定。
type CheckoutClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// CheckoutClient は決済セッション作成エンドポイントのHTTPクライアント。
type CheckoutClient struct {
	endpoint string
	client   *http.Client
}

// NewCheckoutClient はCheckoutClientを生成する。
func NewCheckoutClient(config CheckoutClientConfig) *CheckoutClient {
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &CheckoutClient{endpoint: config.Endpoint, client: client}
}

// CreateCheckoutSession は決済セッションを作成し、遷移先URLを返す。
func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, token string, reqBody CheckoutRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdentityHeader, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCheckoutResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read checkout response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checkout failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var out checkoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse checkout response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("empty url in checkout response")
	}

	return out.URL, nil
}

// compile-time interface check
var _ CheckoutCreator = (*CheckoutClient)(nil)
