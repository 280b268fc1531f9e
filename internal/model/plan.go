package model

import "fmt"

// BillingCycle は請求サイクルを表す。
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

// ParseBillingCycle は文字列をBillingCycleに変換する。
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(s) {
	case BillingMonthly, BillingYearly:
		return BillingCycle(s), nil
	default:
		return "", fmt.Errorf("unknown billing cycle: %q", s)
	}
}

// Label は画面表示用のサイクル名を返す。
func (c BillingCycle) Label() string {
	if c == BillingYearly {
		return "Yearly"
	}
	return "Monthly"
}

// Plan は有料プランの定義を表す。
type Plan struct {
	Title        string
	MonthlyPrice int // USD
	YearlyPrice  int // USD
	MonthlyID    string
	YearlyID     string
	Description  string
	Features     []string
	CTA          string
	Featured     bool
}

// ProductID は請求サイクルに対応する外部プロダクトIDを返す。
func (p Plan) ProductID(cycle BillingCycle) string {
	if cycle == BillingYearly {
		return p.YearlyID
	}
	return p.MonthlyID
}

// Price は請求サイクルに対応する価格（USD）を返す。
func (p Plan) Price(cycle BillingCycle) int {
	if cycle == BillingYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// FullName は「Pro Monthly」のようなプラン表示名を返す。
func (p Plan) FullName(cycle BillingCycle) string {
	return p.Title + " " + cycle.Label()
}
