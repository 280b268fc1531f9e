// Package session はページ表示ごとに「現在のユーザー」と「プロフィール」を解決する。
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/voxly/internal/auth"
	"github.com/hitoshi/voxly/internal/model"
)

// IdentityService はアイデンティティサービスのうちProviderが使用する操作。
type IdentityService interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	Logout(ctx context.Context, sessionID string) error
}

// ProfileEnsurer はプロフィールの取得・初期作成を行う。
type ProfileEnsurer interface {
	Ensure(ctx context.Context, user model.User) (model.Profile, error)
}

// WorkspaceReleaser はブラウザごとの合成ワークスペースを破棄する。
type WorkspaceReleaser interface {
	Release(workspaceID string)
}

// State はリクエスト時点のセッション状態。
// Userがnilの場合は未ログイン。
type State struct {
	SessionID string
	User      *model.User
	Profile   model.MaybeProfile
}

// SignedIn はログイン済みかどうかを返す。
func (s State) SignedIn() bool {
	return s.User != nil
}

// Email はログインユーザーのメールアドレスを返す。未ログインの場合は空文字列。
func (s State) Email() string {
	if s.User == nil {
		return ""
	}
	return s.User.Email
}

// Anonymous は未ログインのStateを返す。
func Anonymous() State {
	return State{}
}

// Provider はセッションとプロフィールを解決する。
// アプリケーション起動時に1回だけ生成し、ハンドラーへ渡す。
type Provider struct {
	identity   IdentityService
	profiles   ProfileEnsurer
	workspaces WorkspaceReleaser
}

// NewProvider はProviderを生成する。workspacesはnilでもよい。
func NewProvider(identity IdentityService, profiles ProfileEnsurer, workspaces WorkspaceReleaser) *Provider {
	return &Provider{
		identity:   identity,
		profiles:   profiles,
		workspaces: workspaces,
	}
}

// Current はセッションIDから現在の状態を解決する。
// アイデンティティ取得に失敗した場合は未ログインとして扱い、エラーは返さない。
// プロフィールの取得・作成に失敗した場合はログに記録し、プロフィールなしとして扱う。
func (p *Provider) Current(ctx context.Context, sessionID string) State {
	if sessionID == "" {
		return Anonymous()
	}

	user, err := p.identity.GetCurrentUser(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			slog.Warn("failed to resolve current user",
				slog.String("error", err.Error()),
			)
		}
		return Anonymous()
	}

	state := State{
		SessionID: sessionID,
		User:      user,
		Profile:   model.NoProfile(),
	}

	profile, err := p.profiles.Ensure(ctx, *user)
	if err != nil {
		slog.Error("failed to ensure profile",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return state
	}

	state.Profile = model.SomeProfile(profile)
	return state
}

// Logout はアイデンティティセッションを削除し、合成ワークスペースを破棄する。
// 削除の失敗はログに記録するのみで、呼び出し側は常にCookieを削除してよい。
func (p *Provider) Logout(ctx context.Context, sessionID, workspaceID string) {
	if sessionID != "" {
		if err := p.identity.Logout(ctx, sessionID); err != nil {
			slog.Error("failed to delete session",
				slog.String("error", err.Error()),
			)
		}
	}

	if p.workspaces != nil && workspaceID != "" {
		p.workspaces.Release(workspaceID)
	}
}
