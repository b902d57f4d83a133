package snapshots

import (
	"fmt"
	"strings"

	"budgetplan/internal/core"
)

const (
	keyPrefix = "budget_template_"

	// DefaultSlot is the reserved per-user baseline slot.
	DefaultSlot = "default"
)

// Key builds the persisted key for a user slot:
//
//	budget_template_{userId}_{monthName}_{year}
//	budget_template_{userId}_default
func Key(userID, slot string) string {
	return fmt.Sprintf("%s%s_%s", keyPrefix, userID, slot)
}

// MonthKey is Key for a month slot.
func MonthKey(userID string, month core.MonthKey) string {
	return Key(userID, month.Slot())
}

// DefaultKey is Key for the default slot.
func DefaultKey(userID string) string {
	return Key(userID, DefaultSlot)
}

// UserPattern is a glob matching every key of the user. It can also match
// keys of users whose id starts with userID followed by "_"; callers must
// filter the results with OwnsKey.
func UserPattern(userID string) string {
	return keyPrefix + globEscaper.Replace(userID) + "_*"
}

// globEscaper quotes the characters special to Redis MATCH patterns.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// OwnsKey reports whether key is a well-formed slot key of userID.
func OwnsKey(userID, key string) bool {
	rest, ok := strings.CutPrefix(key, keyPrefix+userID+"_")
	if !ok {
		return false
	}
	return ValidSlot(rest)
}

// ValidSlot accepts DefaultSlot and "{MonthName}_{year}".
func ValidSlot(slot string) bool {
	if slot == DefaultSlot {
		return true
	}
	_, err := core.ParseMonthKey(slot)
	return err == nil
}
