package core

import (
	"testing"
	"time"
)

func TestMonthKeyNextPrevious(t *testing.T) {
	cases := []struct {
		in, next, prev MonthKey
	}{
		{MonthKey{time.March, 2025}, MonthKey{time.April, 2025}, MonthKey{time.February, 2025}},
		{MonthKey{time.December, 2025}, MonthKey{time.January, 2026}, MonthKey{time.November, 2025}},
		{MonthKey{time.January, 2026}, MonthKey{time.February, 2026}, MonthKey{time.December, 2025}},
	}
	for i, tc := range cases {
		if got := tc.in.Next(); !got.Equal(tc.next) {
			t.Fatalf("case %d next: expected %v, got %v", i, tc.next, got)
		}
		if got := tc.in.Previous(); !got.Equal(tc.prev) {
			t.Fatalf("case %d previous: expected %v, got %v", i, tc.prev, got)
		}
		if got := tc.in.Next().Previous(); !got.Equal(tc.in) {
			t.Fatalf("case %d next/previous round trip: got %v", i, got)
		}
	}
}

func TestMonthKeyRelativeTo(t *testing.T) {
	now := time.Date(2025, time.June, 15, 23, 59, 0, 0, time.UTC)
	cases := []struct {
		k    MonthKey
		want Relation
	}{
		{MonthKey{time.June, 2025}, Current},
		{MonthKey{time.May, 2025}, Past},
		{MonthKey{time.December, 2024}, Past},
		{MonthKey{time.July, 2025}, Future},
		{MonthKey{time.January, 2026}, Future},
		{MonthKey{time.January, 2025}, Past},
	}
	for _, tc := range cases {
		if got := tc.k.RelativeTo(now); got != tc.want {
			t.Fatalf("%v expected %v, got %v", tc.k, tc.want, got)
		}
	}
}

func TestMonthKeyCompareToTodayUsesWallClock(t *testing.T) {
	if got := MonthOf(time.Now()).CompareToToday(); got != Current {
		t.Fatalf("expected current, got %v", got)
	}
	if got := MonthOf(time.Now()).Next().CompareToToday(); got != Future {
		t.Fatalf("expected future, got %v", got)
	}
}

func TestParseMonthKey(t *testing.T) {
	k, err := ParseMonthKey("February_2026")
	if err != nil || !k.Equal(MonthKey{time.February, 2026}) {
		t.Fatalf("unexpected parse: %v err=%v", k, err)
	}
	if k.Slot() != "February_2026" {
		t.Fatalf("unexpected slot %q", k.Slot())
	}
	for _, bad := range []string{"", "February", "Feb_2026", "February_x", "February_0", "x_default"} {
		if _, err := ParseMonthKey(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestNewMonthKeyValidation(t *testing.T) {
	if _, err := NewMonthKey(2025, 13); err != ErrInvalidMonth {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if _, err := NewMonthKey(0, 1); err != ErrInvalidYear {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
	k, err := NewMonthKey(2025, 12)
	if err != nil || k.String() != "2025-12" {
		t.Fatalf("unexpected key %v err=%v", k, err)
	}
}

func TestMonthKeyText(t *testing.T) {
	b, err := MonthKey{time.March, 2025}.MarshalText()
	if err != nil || string(b) != "2025-03" {
		t.Fatalf("unexpected text %q err=%v", b, err)
	}
	var k MonthKey
	if err := k.UnmarshalText([]byte("2026-11")); err != nil || !k.Equal(MonthKey{time.November, 2026}) {
		t.Fatalf("unexpected key %v err=%v", k, err)
	}
	for _, bad := range []string{"2026", "2026-13", "x-01", "2026-xx"} {
		if err := k.UnmarshalText([]byte(bad)); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}
