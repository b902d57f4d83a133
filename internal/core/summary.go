package core

import "github.com/shopspring/decimal"

// Summary holds the display aggregates of one template.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	TotalSavings  decimal.Decimal `json:"totalSavings"`
	Balance       decimal.Decimal `json:"balance"`
}

// Breakdown splits outflows into needs, wants and savings for the
// proportion view. Percentages are of total income.
type Breakdown struct {
	Needs          decimal.Decimal `json:"needs"`
	Wants          decimal.Decimal `json:"wants"`
	Savings        decimal.Decimal `json:"savings"`
	NeedsPercent   decimal.Decimal `json:"needsPercent"`
	WantsPercent   decimal.Decimal `json:"wantsPercent"`
	SavingsPercent decimal.Decimal `json:"savingsPercent"`
}

// CalculateSummary folds every amount into the totals. Savings count as a
// committed outflow, so they are added to both TotalSavings and TotalExpenses.
// Classification plays no part in the arithmetic.
func CalculateSummary(t BudgetTemplate) Summary {
	s := Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		TotalSavings:  decimal.Zero,
	}
	for _, c := range t.Categories {
		for _, sub := range c.Subcategories {
			switch c.Type {
			case Income:
				s.TotalIncome = s.TotalIncome.Add(sub.Amount)
			case Expense:
				s.TotalExpenses = s.TotalExpenses.Add(sub.Amount)
			case Savings:
				s.TotalSavings = s.TotalSavings.Add(sub.Amount)
				s.TotalExpenses = s.TotalExpenses.Add(sub.Amount)
			}
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// CalculateBreakdown groups Expense line items by classification. Items
// without a classification are looked up in the default table.
func CalculateBreakdown(t BudgetTemplate) Breakdown {
	b := Breakdown{Needs: decimal.Zero, Wants: decimal.Zero, Savings: decimal.Zero}
	income := decimal.Zero
	for _, c := range t.Categories {
		for _, sub := range c.Subcategories {
			switch c.Type {
			case Income:
				income = income.Add(sub.Amount)
			case Savings:
				b.Savings = b.Savings.Add(sub.Amount)
			case Expense:
				cl := sub.Classification
				if !cl.Valid() {
					cl = DefaultClassification(c.ID, sub.Name)
				}
				if cl == Want {
					b.Wants = b.Wants.Add(sub.Amount)
				} else {
					b.Needs = b.Needs.Add(sub.Amount)
				}
			}
		}
	}
	b.NeedsPercent = percentOf(b.Needs, income)
	b.WantsPercent = percentOf(b.Wants, income)
	b.SavingsPercent = percentOf(b.Savings, income)
	return b
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(1)
}
