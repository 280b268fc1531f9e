// Package billing は料金プランの定義とサブスクリプション開始のワークフローを提供する。
package billing

import "github.com/hitoshi/voxly/internal/model"

var plans = []model.Plan{
	{
		Title:        "Starter",
		MonthlyPrice: 9,
		YearlyPrice:  90,
		MonthlyID:    "prod_3d6z0m8mKmzuV6LvPwc0jf",
		YearlyID:     "prod_3hWM6T8Iu8GZsUFsyQgrnB",
		Description:  "Perfect for individuals starting out.",
		Features:     []string{"1 Project", "Basic Analytics", "Email Support"},
		CTA:          "Get Started",
	},
	{
		Title:        "Pro",
		MonthlyPrice: 29,
		YearlyPrice:  290,
		MonthlyID:    "prod_1308g86Vz0IIqbZgpPa9o4",
		YearlyID:     "prod_1B1DSJwW6nBTYgQYFsxP7",
		Description:  "Ideal for growing teams and businesses.",
		Features: []string{
			"10 Projects",
			"Advanced Analytics",
			"Priority Email Support",
			"Team Collaboration",
		},
		CTA:      "Upgrade Now",
		Featured: true,
	},
	{
		Title:        "Turbo",
		MonthlyPrice: 50,
		YearlyPrice:  500,
		MonthlyID:    "prod_xNBLeAW61WSH5dmRcBxPP",
		YearlyID:     "prod_23qN6cgjlpiCtD3OfY2JqH",
		Description:  "High-performance plan for scaling businesses.",
		Features: []string{
			"Unlimited Projects",
			"Advanced Analytics",
			"24/7 Priority Support",
			"Team Collaboration",
			"Dedicated Account Manager",
		},
		CTA: "Get Turbo",
	},
}

// comparisonFeatures は比較表の行の並び。
var comparisonFeatures = []string{
	"Basic Analytics",
	"Advanced Analytics",
	"Team Collaboration",
	"24/7 Priority Support",
	"Dedicated Account Manager",
	"Unlimited Projects",
	"Email Support",
	"Priority Email Support",
	"1 Project",
	"10 Projects",
}

// Plans は全プランを表示順に返す。
func Plans() []model.Plan {
	out := make([]model.Plan, len(plans))
	copy(out, plans)
	return out
}

// FindPlan はタイトルに一致するプランを返す。
func FindPlan(title string) (model.Plan, bool) {
	for _, p := range plans {
		if p.Title == title {
			return p, true
		}
	}
	return model.Plan{}, false
}

// FindByProductID は外部プロダクトIDに一致するプランと請求サイクルを返す。
func FindByProductID(productID string) (model.Plan, model.BillingCycle, bool) {
	if productID == "" {
		return model.Plan{}, "", false
	}
	for _, p := range plans {
		switch productID {
		case p.MonthlyID:
			return p, model.BillingMonthly, true
		case p.YearlyID:
			return p, model.BillingYearly, true
		}
	}
	return model.Plan{}, "", false
}

// ComparisonRow は比較表の1行。Includedはプランの表示順に対応する。
type ComparisonRow struct {
	Feature  string
	Included []bool
}

// Comparison は機能比較表を返す。
func Comparison() []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(comparisonFeatures))
	for _, f := range comparisonFeatures {
		row := ComparisonRow{Feature: f, Included: make([]bool, len(plans))}
		for i, p := range plans {
			for _, pf := range p.Features {
				if pf == f {
					row.Included[i] = true
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}
