package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Past Relation = iota - 1
	Current
	Future
)

type (
	// MonthKey identifies one calendar month.
	MonthKey struct {
		Month time.Month
		Year  int
	}

	// Relation is the position of a month relative to today.
	Relation int
)

// NewMonthKey builds a key from a 1-12 month and a year.
func NewMonthKey(year, month int) (MonthKey, error) {
	if month < 1 || month > 12 {
		return MonthKey{}, ErrInvalidMonth
	}
	if year < 1 || year > 9999 {
		return MonthKey{}, ErrInvalidYear
	}
	return MonthKey{Month: time.Month(month), Year: year}, nil
}

// MonthOf returns the key of the month containing t, in t's location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Month: t.Month(), Year: t.Year()}
}

// ParseMonthKey parses the "{MonthName}_{year}" form used in storage keys.
func ParseMonthKey(s string) (MonthKey, error) {
	name, year, ok := strings.Cut(s, "_")
	if !ok {
		return MonthKey{}, ErrInvalidMonth
	}
	m, err := ParseMonthName(name)
	if err != nil {
		return MonthKey{}, err
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return MonthKey{}, ErrInvalidYear
	}
	return NewMonthKey(y, int(m))
}

// ParseMonthName maps an English month name to time.Month.
func ParseMonthName(name string) (time.Month, error) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, ErrInvalidMonth
}

func (k MonthKey) Valid() bool {
	return k.Month >= time.January && k.Month <= time.December && k.Year >= 1 && k.Year <= 9999
}

// Next returns the following month, rolling December into January.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Month: time.January, Year: k.Year + 1}
	}
	return MonthKey{Month: k.Month + 1, Year: k.Year}
}

// Previous returns the preceding month, rolling January into December.
func (k MonthKey) Previous() MonthKey {
	if k.Month == time.January {
		return MonthKey{Month: time.December, Year: k.Year - 1}
	}
	return MonthKey{Month: k.Month - 1, Year: k.Year}
}

func (k MonthKey) Equal(o MonthKey) bool {
	return k.Month == o.Month && k.Year == o.Year
}

// Compare returns -1, 0 or 1 when k is before, equal to or after o.
func (k MonthKey) Compare(o MonthKey) int {
	switch {
	case k.Year < o.Year:
		return -1
	case k.Year > o.Year:
		return 1
	case k.Month < o.Month:
		return -1
	case k.Month > o.Month:
		return 1
	}
	return 0
}

// RelativeTo places k against the month containing now.
func (k MonthKey) RelativeTo(now time.Time) Relation {
	return Relation(k.Compare(MonthOf(now)))
}

// CompareToToday places k against the wall-clock month at call time.
func (k MonthKey) CompareToToday() Relation {
	return k.RelativeTo(time.Now())
}

// Slot is the "{MonthName}_{year}" suffix used in storage keys.
func (k MonthKey) Slot() string {
	return fmt.Sprintf("%s_%d", k.Month, k.Year)
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MarshalText renders the key as "YYYY-MM".
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MonthKey) UnmarshalText(b []byte) error {
	y, m, ok := strings.Cut(string(b), "-")
	if !ok {
		return ErrInvalidMonth
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return ErrInvalidYear
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return ErrInvalidMonth
	}
	key, err := NewMonthKey(year, month)
	if err != nil {
		return err
	}
	*k = key
	return nil
}

func (r Relation) String() string {
	switch r {
	case Past:
		return "past"
	case Current:
		return "current"
	case Future:
		return "future"
	}
	return "unknown"
}
