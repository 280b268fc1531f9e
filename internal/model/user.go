// Package model はドメインモデルを定義する。
package model

import "time"

// User はIdPから取得したサインイン中のユーザーを表す。
// 本サービスでは読み取り専用で扱う。
type User struct {
	Email               string
	Name                string
	PictureURL          string
	ProviderAccessToken string
}

// Session はユーザーのログインセッションを表す。
// ログイン時点のユーザー情報のスナップショットを保持する。
type Session struct {
	ID        string
	User      User
	ExpiresAt time.Time
	CreatedAt time.Time
}
