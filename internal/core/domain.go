package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
	Savings CategoryType = "savings"
)

const (
	Need Classification = "need"
	Want Classification = "want"
)

type (
	CategoryType string

	// Classification tags a line item as a need or a want. The zero value
	// means "not yet classified" and is only valid before EnsureClassifications.
	Classification string

	Subcategory struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		Amount         decimal.Decimal `json:"amount"`
		Classification Classification  `json:"classification,omitempty"`
		DueDate        *time.Time      `json:"dueDate,omitempty"`
	}

	Category struct {
		ID            string        `json:"id"`
		Name          string        `json:"name"`
		Type          CategoryType  `json:"type"`
		Subcategories []Subcategory `json:"subcategories"`
	}

	// BudgetTemplate is the full category tree for one month. It is always
	// read and written as a whole.
	BudgetTemplate struct {
		Categories []Category `json:"categories"`
	}
)

var (
	ErrInvalidCategoryType   = errors.New("invalid category type")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrDuplicateSubcategory  = errors.New("duplicate subcategory id")
	ErrEmptyName             = errors.New("empty name")
	ErrUnknownLayout         = errors.New("categories differ from the built-in list")
	ErrInvalidMonth          = errors.New("invalid month")
	ErrInvalidYear           = errors.New("invalid year")
)

func (t CategoryType) Valid() bool {
	switch t {
	case Income, Expense, Savings:
		return true
	}
	return false
}

func (c Classification) Valid() bool {
	return c == Need || c == Want
}

// ParseClassification accepts "need"/"want" in any case.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidClassification
	}
	return c, nil
}

// Validate checks the structural invariants of a template: known category
// types, non-empty names and subcategory ids unique within their category.
func (t BudgetTemplate) Validate() error {
	for _, c := range t.Categories {
		if !c.Type.Valid() {
			return ErrInvalidCategoryType
		}
		seen := make(map[string]struct{}, len(c.Subcategories))
		for _, s := range c.Subcategories {
			if strings.TrimSpace(s.Name) == "" {
				return ErrEmptyName
			}
			if _, ok := seen[s.ID]; ok {
				return ErrDuplicateSubcategory
			}
			seen[s.ID] = struct{}{}
		}
	}
	return nil
}

// CategoryIndex returns the index of the category with the given id, or -1.
func (t BudgetTemplate) CategoryIndex(categoryID string) int {
	for i, c := range t.Categories {
		if c.ID == categoryID {
			return i
		}
	}
	return -1
}

// SubcategoryIndex returns the index of the subcategory with the given id, or -1.
func (c Category) SubcategoryIndex(subID string) int {
	for i, s := range c.Subcategories {
		if s.ID == subID {
			return i
		}
	}
	return -1
}

// CloneTemplate returns a deep copy sharing no slices or pointers with t.
func CloneTemplate(t BudgetTemplate) BudgetTemplate {
	out := BudgetTemplate{Categories: make([]Category, len(t.Categories))}
	for i, c := range t.Categories {
		nc := c
		nc.Subcategories = make([]Subcategory, len(c.Subcategories))
		for j, s := range c.Subcategories {
			ns := s
			if s.DueDate != nil {
				d := *s.DueDate
				ns.DueDate = &d
			}
			nc.Subcategories[j] = ns
		}
		out.Categories[i] = nc
	}
	return out
}

// Equal reports whether two templates have the same categories, line items,
// amounts, classifications and due dates in the same order.
func (t BudgetTemplate) Equal(o BudgetTemplate) bool {
	if len(t.Categories) != len(o.Categories) {
		return false
	}
	for i, c := range t.Categories {
		oc := o.Categories[i]
		if c.ID != oc.ID || c.Name != oc.Name || c.Type != oc.Type || len(c.Subcategories) != len(oc.Subcategories) {
			return false
		}
		for j, s := range c.Subcategories {
			os := oc.Subcategories[j]
			if s.ID != os.ID || s.Name != os.Name || s.Classification != os.Classification || !s.Amount.Equal(os.Amount) {
				return false
			}
			if (s.DueDate == nil) != (os.DueDate == nil) {
				return false
			}
			if s.DueDate != nil && !s.DueDate.Equal(*os.DueDate) {
				return false
			}
		}
	}
	return true
}
