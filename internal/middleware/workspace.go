package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// WorkspaceCookieName はブラウザごとの合成ワークスペースIDを保持するCookieの名前。
const WorkspaceCookieName = "workspace_id"

var workspaceContextKey = contextKey("workspace_id")

// WorkspaceConfig はワークスペースCookieの設定。
type WorkspaceConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // 秒
}

// NewWorkspaceMiddleware はワークスペースIDのCookieを読み取り、
// 未設定または不正な場合は新規発行してコンテキストに注入するミドルウェアを返す。
func NewWorkspaceMiddleware(config WorkspaceConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(WorkspaceCookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					id = cookie.Value
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     WorkspaceCookieName,
					Value:    id,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), workspaceContextKey, id)))
		})
	}
}

// WorkspaceIDFromContext はリクエストコンテキストからワークスペースIDを取得する。
// ワークスペースミドルウェアを通過していない場合は空文字列を返す。
func WorkspaceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workspaceContextKey).(string)
	return id
}

// ContextWithWorkspaceID はコンテキストにワークスペースIDを注入する。
func ContextWithWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workspaceContextKey, id)
}
