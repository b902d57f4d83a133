package core

import "github.com/shopspring/decimal"

type seedCategory struct {
	id, name string
	kind     CategoryType
	items    [][2]string // id, name
}

// builtin is the closed, ordered category list every user starts from.
var builtin = []seedCategory{
	{"income", "Income", Income, [][2]string{
		{"paycheck-1", "Paycheck 1"},
		{"paycheck-2", "Paycheck 2"},
		{"other-income", "Other Income"},
	}},
	{"giving", "Giving", Expense, [][2]string{
		{"church", "Church"},
		{"charity", "Charity"},
	}},
	{"savings", "Savings", Savings, [][2]string{
		{"emergency-fund", "Emergency Fund"},
		{"retirement", "Retirement"},
		{"college", "College Fund"},
	}},
	{"housing", "Housing", Expense, [][2]string{
		{"mortgage-rent", "Mortgage/Rent"},
		{"water", "Water"},
		{"natural-gas", "Natural Gas"},
		{"electricity", "Electricity"},
		{"cable", "Cable"},
		{"trash", "Trash"},
	}},
	{"transportation", "Transportation", Expense, [][2]string{
		{"gas", "Gas"},
		{"maintenance", "Maintenance"},
		{"parking", "Parking"},
	}},
	{"food", "Food", Expense, [][2]string{
		{"groceries", "Groceries"},
		{"restaurants", "Restaurants"},
	}},
	{"personal", "Personal", Expense, [][2]string{
		{"clothing", "Clothing"},
		{"phone", "Phone"},
		{"fun-money", "Fun Money"},
		{"hair-cosmetics", "Hair/Cosmetics"},
		{"subscriptions", "Subscriptions"},
		{"entertainment", "Entertainment"},
		{"gym", "Gym"},
	}},
	{"insurance", "Insurance & Tax", Expense, [][2]string{
		{"health-insurance", "Health Insurance"},
		{"life-insurance", "Life Insurance"},
		{"auto-insurance", "Auto Insurance"},
		{"homeowner-renter", "Homeowner/Renter"},
		{"identity-theft", "Identity Theft"},
	}},
	{"health", "Health", Expense, [][2]string{
		{"medications", "Medications"},
		{"doctor-bills", "Doctor Bills"},
	}},
	{"debt", "Debt", Expense, [][2]string{
		{"credit-card", "Credit Card"},
		{"car-payment", "Car Payment"},
		{"student-loan", "Student Loan"},
	}},
}

// DefaultTemplate returns a fresh copy of the built-in template with zero
// amounts and no classifications. It requires no I/O and is the final
// fallback of every lookup.
func DefaultTemplate() BudgetTemplate {
	t := BudgetTemplate{Categories: make([]Category, 0, len(builtin))}
	for _, c := range builtin {
		cat := Category{
			ID:            c.id,
			Name:          c.name,
			Type:          c.kind,
			Subcategories: make([]Subcategory, 0, len(c.items)),
		}
		for _, it := range c.items {
			cat.Subcategories = append(cat.Subcategories, Subcategory{
				ID:     it[0],
				Name:   it[1],
				Amount: decimal.Zero,
			})
		}
		t.Categories = append(t.Categories, cat)
	}
	return t
}

// CheckLayout reports ErrUnknownLayout unless t has exactly the built-in
// categories, in order and with their types. Subcategories are free.
func CheckLayout(t BudgetTemplate) error {
	if len(t.Categories) != len(builtin) {
		return ErrUnknownLayout
	}
	for i, c := range t.Categories {
		if c.ID != builtin[i].id || c.Type != builtin[i].kind {
			return ErrUnknownLayout
		}
	}
	return nil
}
