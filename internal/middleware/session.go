// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/voxly/internal/session"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// stateContextKey はリクエストコンテキストにセッション状態を格納するためのキー。
var stateContextKey = contextKey("session_state")

// StateResolver はセッションIDから現在の状態を解決する。
// session.Providerが満たす。
type StateResolver interface {
	Current(ctx context.Context, sessionID string) session.State
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 解決したセッション状態をリクエストコンテキストに注入するミドルウェアを返す。
// 未ログインのリクエストも拒否せず、匿名状態として後段に渡す。
func NewSessionMiddleware(resolver StateResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				sessionID = cookie.Value
			}

			state := resolver.Current(r.Context(), sessionID)
			if holder := stateHolderFromContext(r.Context()); holder != nil {
				holder.email = state.Email()
			}
			next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), state)))
		})
	}
}

// NewRequireSignInMiddleware はログインしていないリクエストに401を返すミドルウェアを返す。
// NewSessionMiddlewareの後に配置する。
func NewRequireSignInMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !StateFromContext(r.Context()).SignedIn() {
				WriteUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// stateHolder はロギングミドルウェアが後段で解決されたユーザーを参照するための入れ物。
type stateHolder struct {
	email string
}

var stateHolderContextKey = contextKey("state_holder")

func contextWithStateHolder(ctx context.Context, h *stateHolder) context.Context {
	return context.WithValue(ctx, stateHolderContextKey, h)
}

func stateHolderFromContext(ctx context.Context) *stateHolder {
	h, _ := ctx.Value(stateHolderContextKey).(*stateHolder)
	return h
}

// StateFromContext はリクエストコンテキストからセッション状態を取得する。
// セッションミドルウェアを通過していない場合は匿名状態を返す。
func StateFromContext(ctx context.Context) session.State {
	state, ok := ctx.Value(stateContextKey).(session.State)
	if !ok {
		return session.Anonymous()
	}
	return state
}

// ContextWithState はコンテキストにセッション状態を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithState(ctx context.Context, state session.State) context.Context {
	return context.WithValue(ctx, stateContextKey, state)
}
