package core

import "strings"

// anyName matches every line item of a category.
const anyName = "*"

// wantTable lists (category id, line item name) pairs that default to Want.
// Everything not listed defaults to Need. Names are matched case-insensitively.
var wantTable = map[string][]string{
	"giving":    {anyName},
	"housing":   {"cable"},
	"food":      {"restaurants", "dining out"},
	"insurance": {"identity theft"},
	"personal": {
		"entertainment",
		"gym",
		"clothing",
		"fun money",
		"hair/cosmetics",
		"subscriptions",
		"vacation",
		"hobbies",
		"gifts",
	},
}

// DefaultClassification looks up the static table for one line item.
func DefaultClassification(categoryID, name string) Classification {
	names, ok := wantTable[categoryID]
	if !ok {
		return Need
	}
	n := strings.ToLower(strings.TrimSpace(name))
	for _, w := range names {
		if w == anyName || w == n {
			return Want
		}
	}
	return Need
}

// EnsureClassifications returns a copy of t in which every line item has a
// classification. Existing classifications, including explicit overrides
// that diverge from the table, are kept. The function is pure and idempotent.
func EnsureClassifications(t BudgetTemplate) BudgetTemplate {
	out := CloneTemplate(t)
	for i := range out.Categories {
		c := &out.Categories[i]
		for j := range c.Subcategories {
			s := &c.Subcategories[j]
			if !s.Classification.Valid() {
				s.Classification = DefaultClassification(c.ID, s.Name)
			}
		}
	}
	return out
}
