package model

import "time"

// ProfileTimeLayout はプロフィール文書に保存する日時の書式（ミリ秒付きISO 8601, UTC）。
const ProfileTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// 新規プロフィールの既定値
const (
	DefaultPlanType      = "free"
	DefaultCharAllowance = 1000
)

// Profile はユーザーごとの契約プランと文字数クォータを表す。
// 文書ストアのprofilesコレクションにuser_emailをキーとして保存される。
type Profile struct {
	ID              string
	Email           string
	Name            string
	PlanType        string
	IsActive        bool
	CharAllowed     int
	CharRemaining   int
	StartDate       time.Time
	ExpiryDate      time.Time
	ActiveProductID string
}

// MaybeProfile は「プロフィールあり」と「プロフィールなし」のいずれかを表す。
// ゼロ値はプロフィールなし。
type MaybeProfile struct {
	profile Profile
	ok      bool
}

// SomeProfile はプロフィールありのMaybeProfileを返す。
func SomeProfile(p Profile) MaybeProfile {
	return MaybeProfile{profile: p, ok: true}
}

// NoProfile はプロフィールなしのMaybeProfileを返す。
func NoProfile() MaybeProfile {
	return MaybeProfile{}
}

// Get はプロフィールと、存在するかどうかを返す。
func (m MaybeProfile) Get() (Profile, bool) {
	return m.profile, m.ok
}

// Present はプロフィールが存在するかどうかを返す。
func (m MaybeProfile) Present() bool {
	return m.ok
}
