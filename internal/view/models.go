package view

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/voxly/internal/billing"
	"github.com/hitoshi/voxly/internal/model"
	"github.com/hitoshi/voxly/internal/session"
	"github.com/hitoshi/voxly/internal/synthesis"
)

// DefaultAvatarURL はプロフィール画像がない場合に表示する画像。
const DefaultAvatarURL = "/static/default-avatar.png"

const notAvailable = "N/A"

// ProfileView はプロフィール画面の表示値。欠損値は表示用の代替文字列に置き換え済み。
type ProfileView struct {
	PictureURL    string
	Name          string
	Email         string
	PlanType      string
	Active        string
	CharAllowed   string
	CharRemaining string
	StartDate     string
	ExpiryDate    string
}

// NewProfileView はセッション状態からプロフィール画面の表示値を組み立てる。
// プロフィールがない場合もすべての項目に代替値を設定する。
func NewProfileView(state session.State) ProfileView {
	v := ProfileView{
		PictureURL:    DefaultAvatarURL,
		Name:          "User Name",
		Email:         "user@example.com",
		PlanType:      notAvailable,
		Active:        "No",
		CharAllowed:   notAvailable,
		CharRemaining: notAvailable,
		StartDate:     notAvailable,
		ExpiryDate:    notAvailable,
	}
	if state.User != nil && state.User.PictureURL != "" {
		v.PictureURL = state.User.PictureURL
	}

	p, ok := state.Profile.Get()
	if !ok {
		return v
	}
	if p.Name != "" {
		v.Name = p.Name
	}
	if p.Email != "" {
		v.Email = p.Email
	}
	if p.PlanType != "" {
		v.PlanType = p.PlanType
	}
	if p.IsActive {
		v.Active = "Yes"
	}
	if p.CharAllowed != 0 {
		v.CharAllowed = strconv.Itoa(p.CharAllowed)
	}
	if p.CharRemaining != 0 {
		v.CharRemaining = strconv.Itoa(p.CharRemaining)
	}
	v.StartDate = formatDate(p.StartDate)
	v.ExpiryDate = formatDate(p.ExpiryDate)
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Local().Format("1/2/2006")
}

// CatalogView はモデル一覧の表示値。Errorが空でない場合は一覧の代わりに表示する。
type CatalogView struct {
	Source string
	Models []model.VoiceModel
	Error  string
}

// 合成画面のモデル選択タブ
const (
	TabOwned  = "owned"
	TabPublic = "public"
)

// TTSView は合成画面の表示値。
type TTSView struct {
	Workspace  synthesis.Snapshot
	MaxChars   int
	DraftChars int
	Picker     string // 開いているモデル選択タブ。空の場合はダイアログを閉じる
	Catalog    CatalogView
}

// NewTTSView はワークスペースの状態から合成画面の表示値を組み立てる。
func NewTTSView(snap synthesis.Snapshot, picker string, catalog CatalogView) TTSView {
	return TTSView{
		Workspace:  snap,
		MaxChars:   synthesis.MaxChars,
		DraftChars: utf8.RuneCountInString(snap.Draft),
		Picker:     picker,
		Catalog:    catalog,
	}
}

// PlanCard は料金プラン1件の表示値。
type PlanCard struct {
	Plan      model.Plan
	Price     int
	ProductID string
	Active    bool
}

// PricingView は料金画面の表示値。
type PricingView struct {
	Cycle      model.BillingCycle
	Yearly     bool
	Plans      []PlanCard
	Comparison []billing.ComparisonRow
	Error      string
}

// NewPricingView は選択中の請求サイクルとプロフィールから料金画面の表示値を組み立てる。
func NewPricingView(profile model.MaybeProfile, cycle model.BillingCycle) PricingView {
	v := PricingView{
		Cycle:      cycle,
		Yearly:     cycle == model.BillingYearly,
		Comparison: billing.Comparison(),
	}
	for _, p := range billing.Plans() {
		v.Plans = append(v.Plans, PlanCard{
			Plan:      p,
			Price:     p.Price(cycle),
			ProductID: p.ProductID(cycle),
			Active:    billing.IsActive(profile, p, cycle),
		})
	}
	return v
}

// OtherCycle はトグルで切り替える先の請求サイクル。
func (v PricingView) OtherCycle() model.BillingCycle {
	if v.Yearly {
		return model.BillingMonthly
	}
	return model.BillingYearly
}
