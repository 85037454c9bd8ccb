package ui

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stusave.app/internal/appstate"
)

const labelWidth = 18

// SummaryView renders sum as aligned label/value lines.
func SummaryView(sum appstate.Summary) string {
	name := sum.Name
	if name == "" {
		name = "(not set)"
	}

	rows := [][2]string{
		{"Name", name},
		{"Budget", money(sum.Budget, sum.Currency)},
		{"Spent this month", money(sum.MonthSpent, sum.Currency)},
		{"Remaining", money(sum.Remaining, sum.Currency)},
		{"Lent (pending)", money(sum.TotalLent, sum.Currency)},
		{"Borrowed (pending)", money(sum.TotalBorrowed, sum.Currency)},
		{"Spendings", fmt.Sprintf("%d", sum.Spendings)},
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(padRight(r[0], labelWidth))
		b.WriteString("  ")
		b.WriteString(r[1])
	}
	return b.String()
}

func money(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}
