package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"

	"budgetplan/internal/core"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrCorrupt  = errors.New("snapshot corrupt")
)

// Encode serializes a template as JSON.
func Encode(t core.BudgetTemplate) ([]byte, error) {
	return json.Marshal(t)
}

// Decode parses a stored template. Unparsable data, a structurally invalid
// tree or one whose categories are not the built-in list yields an error
// wrapping ErrCorrupt.
func Decode(data []byte) (core.BudgetTemplate, error) {
	var t core.BudgetTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return core.BudgetTemplate{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := t.Validate(); err != nil {
		return core.BudgetTemplate{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := core.CheckLayout(t); err != nil {
		return core.BudgetTemplate{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return t, nil
}
