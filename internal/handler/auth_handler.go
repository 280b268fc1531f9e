// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/voxly/internal/middleware"
	"github.com/hitoshi/voxly/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
}

// SessionTerminator はログアウト時にセッションとワークスペースを破棄する。
// session.Providerが満たす。
type SessionTerminator interface {
	Logout(ctx context.Context, sessionID, workspaceID string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	SuccessURL    string // ログイン成功後のリダイレクト先
	FailureURL    string // ログイン失敗時のリダイレクト先
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionTerminator
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, sessions SessionTerminator, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		config:   config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 同意画面でキャンセルされた場合
	if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
		slog.Warn("oauth consent denied", slog.String("error", oauthErr))
		http.Redirect(w, r, h.config.FailureURL, http.StatusSeeOther)
		return
	}

	// 3. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 4. 認証処理
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.config.FailureURL, http.StatusSeeOther)
		return
	}

	// 5. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 6. 画面にリダイレクト
	http.Redirect(w, r, h.config.SuccessURL, http.StatusSeeOther)
}

// Logout はセッションとブラウザのワークスペースを破棄する。
// 破棄に失敗してもCookieはクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessionID = cookie.Value
	}
	h.sessions.Logout(r.Context(), sessionID, middleware.WorkspaceIDFromContext(r.Context()))

	// セッションCookieとワークスペースCookieをクリア
	for _, name := range []string{middleware.SessionCookieName, middleware.WorkspaceCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.config.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// meResponse はGET /auth/meのレスポンス。
type meResponse struct {
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	PictureURL string       `json:"picture_url,omitempty"`
	Profile    *profileJSON `json:"profile"`
}

type profileJSON struct {
	PlanType        string `json:"plan_type"`
	IsActive        bool   `json:"is_active"`
	CharAllowed     int    `json:"char_allowed"`
	CharRemaining   int    `json:"char_remaining"`
	StartDate       string `json:"current_plan_start_date"`
	ExpiryDate      string `json:"current_plan_expiry_date"`
	ActiveProductID string `json:"active_product_id,omitempty"`
}

// Me は現在のログインユーザーとプロフィールを返す。プロフィールがない場合はnull。
// NewRequireSignInMiddlewareの後に配置する。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state := middleware.StateFromContext(r.Context())
	if !state.SignedIn() {
		middleware.WriteUnauthorized(w)
		return
	}

	resp := meResponse{
		Email:      state.User.Email,
		Name:       state.User.Name,
		PictureURL: state.User.PictureURL,
	}
	if p, ok := state.Profile.Get(); ok {
		resp.Profile = &profileJSON{
			PlanType:        p.PlanType,
			IsActive:        p.IsActive,
			CharAllowed:     p.CharAllowed,
			CharRemaining:   p.CharRemaining,
			StartDate:       formatProfileTime(p.StartDate),
			ExpiryDate:      formatProfileTime(p.ExpiryDate),
			ActiveProductID: p.ActiveProductID,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// formatProfileTime はプロフィール文書と同じ書式で日時を返す。ゼロ値は空文字列。
func formatProfileTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(model.ProfileTimeLayout)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
