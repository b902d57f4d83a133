package services

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetplan/internal/core"
	"budgetplan/internal/snapshots"
)

func TestGetMonthResolver(t *testing.T) {
	tests := []struct {
		rel  core.Relation
		want MonthResolver
	}{
		{core.Past, PastResolver{}},
		{core.Current, CurrentResolver{}},
		{core.Future, FutureResolver{}},
	}
	for _, tt := range tests {
		t.Run(tt.rel.String(), func(t *testing.T) {
			got, err := GetMonthResolver(tt.rel)
			if err != nil {
				t.Fatalf("GetMonthResolver(%v): %v", tt.rel, err)
			}
			if got != tt.want {
				t.Fatalf("GetMonthResolver(%v) = %T, want %T", tt.rel, got, tt.want)
			}
		})
	}

	if _, err := GetMonthResolver(core.Relation(7)); err == nil {
		t.Fatalf("expected error for unknown relation")
	}
}

func TestResolve_CurrentMonth(t *testing.T) {
	ctx := context.Background()
	march := month(t, 2025, 3)

	t.Run("nothing stored - builtin, no write", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.engine.Resolve(ctx, testUser, march)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Source != SourceBuiltin || res.Relation != core.Current || res.Persisted {
			t.Fatalf("got source=%s relation=%v persisted=%v", res.Source, res.Relation, res.Persisted)
		}
		if f.backend.Len(testUser) != 0 {
			t.Fatalf("current month must not be materialized on read")
		}
		assertClassified(t, res.Template)
	})

	t.Run("default slot used when no explicit snapshot", func(t *testing.T) {
		f := newFixture(t)
		def := templateWith(t, map[string]string{"housing/mortgage-rent": "900"})
		if err := f.store.SetDefault(ctx, testUser, def); err != nil {
			t.Fatalf("SetDefault: %v", err)
		}
		res, _ := f.engine.Resolve(ctx, testUser, march)
		if res.Source != SourceDefault {
			t.Fatalf("source = %s, want default", res.Source)
		}
		if got := amountAt(t, res.Template, "housing/mortgage-rent"); !got.Equal(decimal.NewFromInt(900)) {
			t.Fatalf("rent = %s, want 900", got)
		}
		if ok, _ := f.store.Has(ctx, testUser, march); ok {
			t.Fatalf("current month must not be materialized on read")
		}
	})

	t.Run("explicit snapshot wins", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"housing/mortgage-rent": "900"}))
		_ = f.store.Set(ctx, testUser, march, templateWith(t, map[string]string{"housing/mortgage-rent": "1100"}))

		res, _ := f.engine.Resolve(ctx, testUser, march)
		if res.Source != SourceExplicit {
			t.Fatalf("source = %s, want explicit", res.Source)
		}
		if got := amountAt(t, res.Template, "housing/mortgage-rent"); !got.Equal(decimal.NewFromInt(1100)) {
			t.Fatalf("rent = %s, want 1100", got)
		}
	})
}

func TestResolve_FutureDerivesFromPreviousMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	march, april := month(t, 2025, 3), month(t, 2025, 4)

	prev := templateWith(t, map[string]string{"housing/mortgage-rent": "1200"})
	prev.Categories[prev.CategoryIndex("housing")].Subcategories[0].Classification = core.Need
	if err := f.store.Set(ctx, testUser, march, prev); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// A different default must not be used while the previous month has data.
	_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"housing/mortgage-rent": "700"}))

	first, err := f.engine.Resolve(ctx, testUser, april)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Source != SourcePrevious || !first.Persisted {
		t.Fatalf("source=%s persisted=%v, want previous_month persisted", first.Source, first.Persisted)
	}
	if got := amountAt(t, first.Template, "housing/mortgage-rent"); !got.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("rent = %s, want 1200", got)
	}
	if !first.Template.Equal(core.EnsureClassifications(prev)) {
		t.Fatalf("derived template differs from previous month")
	}
	if ok, _ := f.store.Has(ctx, testUser, april); !ok {
		t.Fatalf("expected a snapshot under the future month")
	}

	second, _ := f.engine.Resolve(ctx, testUser, april)
	if second.Source != SourceExplicit || second.Persisted {
		t.Fatalf("second resolve source=%s persisted=%v, want explicit without write", second.Source, second.Persisted)
	}
	if !second.Template.Equal(first.Template) {
		t.Fatalf("second resolve returned a different template")
	}
}

func TestResolve_FutureFallbackChain(t *testing.T) {
	ctx := context.Background()
	march, june := month(t, 2025, 3), month(t, 2025, 6)

	t.Run("current month when previous is empty", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.Set(ctx, testUser, march, templateWith(t, map[string]string{"food/groceries": "450"}))
		_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"food/groceries": "300"}))

		res, _ := f.engine.Resolve(ctx, testUser, june)
		if res.Source != SourceCurrent {
			t.Fatalf("source = %s, want current_month", res.Source)
		}
		if got := amountAt(t, res.Template, "food/groceries"); !got.Equal(decimal.NewFromInt(450)) {
			t.Fatalf("groceries = %s, want 450", got)
		}
	})

	t.Run("default when no month data", func(t *testing.T) {
		f := newFixture(t)
		_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"food/groceries": "300"}))
		res, _ := f.engine.Resolve(ctx, testUser, june)
		if res.Source != SourceDefault || !res.Persisted {
			t.Fatalf("source=%s persisted=%v", res.Source, res.Persisted)
		}
	})

	t.Run("builtin last", func(t *testing.T) {
		f := newFixture(t)
		res, _ := f.engine.Resolve(ctx, testUser, june)
		if res.Source != SourceBuiltin || !res.Persisted {
			t.Fatalf("source=%s persisted=%v", res.Source, res.Persisted)
		}
		assertClassified(t, res.Template)
	})

	t.Run("year boundary", func(t *testing.T) {
		f := newFixture(t)
		dec, jan := month(t, 2025, 12), month(t, 2026, 1)
		_ = f.store.Set(ctx, testUser, dec, templateWith(t, map[string]string{"giving/charity": "50"}))
		res, _ := f.engine.Resolve(ctx, testUser, jan)
		if res.Source != SourcePrevious {
			t.Fatalf("source = %s, want previous_month", res.Source)
		}
	})
}

func TestResolve_PastMonthNeverBorrowsNeighbours(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	jan, feb := month(t, 2025, 1), month(t, 2025, 2)

	_ = f.store.Set(ctx, testUser, feb, templateWith(t, map[string]string{"housing/water": "80"}))
	_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"housing/water": "60"}))

	res, err := f.engine.Resolve(ctx, testUser, jan)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != SourceDefault || res.Relation != core.Past || !res.Persisted {
		t.Fatalf("source=%s relation=%v persisted=%v", res.Source, res.Relation, res.Persisted)
	}
	if got := amountAt(t, res.Template, "housing/water"); !got.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("water = %s, want 60 from default", got)
	}
	if ok, _ := f.store.Has(ctx, testUser, jan); !ok {
		t.Fatalf("past month must be materialized")
	}
}

func TestResolve_CorruptSnapshotFallsThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	april := month(t, 2025, 4)

	_ = f.backend.Save(ctx, testUser, april.Slot(), []byte("{not json"))
	_ = f.backend.Save(ctx, testUser, month(t, 2025, 3).Slot(), []byte(`{"categories":[{"id":"x","type":"bogus"}]}`))
	_ = f.store.SetDefault(ctx, testUser, templateWith(t, map[string]string{"debt/credit-card": "25"}))

	res, err := f.engine.Resolve(ctx, testUser, april)
	if err != nil {
		t.Fatalf("Resolve must not surface corrupt snapshots: %v", err)
	}
	if res.Source != SourceDefault {
		t.Fatalf("source = %s, want default", res.Source)
	}
	// The corrupt snapshot has been replaced by the derived one.
	if _, err := f.store.Get(ctx, testUser, april); err != nil {
		t.Fatalf("Get after repair: %v", err)
	}
}

func TestResolve_EmptySnapshotIsAbsent(t *testing.T) {
	ctx := context.Background()
	cur := month(t, 2025, 3)

	for _, payload := range []string{`null`, `{}`, `{"categories":[]}`} {
		f := newFixture(t)
		_ = f.backend.Save(ctx, testUser, cur.Slot(), []byte(payload))
		_ = f.backend.Save(ctx, testUser, snapshots.DefaultSlot, []byte(payload))

		res, err := f.engine.Resolve(ctx, testUser, cur)
		if err != nil {
			t.Fatalf("%s: Resolve: %v", payload, err)
		}
		if res.Source != SourceBuiltin {
			t.Fatalf("%s: source = %s, want builtin", payload, res.Source)
		}
		if len(res.Template.Categories) != len(core.DefaultTemplate().Categories) {
			t.Fatalf("%s: served %d categories", payload, len(res.Template.Categories))
		}

		april, _ := f.engine.Resolve(ctx, testUser, month(t, 2025, 4))
		if len(april.Template.Categories) == 0 {
			t.Fatalf("%s: future month derived from an empty snapshot", payload)
		}
	}
}

func TestResolve_BackendDownReturnsBuiltin(t *testing.T) {
	e := NewEngine(snapshots.New(failingBackend{}), WithClock(func() time.Time { return today }))
	for _, m := range []core.MonthKey{month(t, 2024, 11), month(t, 2025, 3), month(t, 2025, 8)} {
		res, err := e.Resolve(context.Background(), testUser, m)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", m, err)
		}
		if res.Source != SourceBuiltin || res.Persisted {
			t.Fatalf("Resolve(%s) source=%s persisted=%v", m, res.Source, res.Persisted)
		}
		assertClassified(t, res.Template)
	}
}

func TestResolve_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Resolve(context.Background(), " ", month(t, 2025, 3)); !errors.Is(err, ErrEmptyUser) {
		t.Fatalf("err = %v, want ErrEmptyUser", err)
	}
	if _, err := f.engine.Resolve(context.Background(), testUser, core.MonthKey{Month: 13, Year: 2025}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestResolve_ReadsClockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// every read after the first lands in April
	ticks := []time.Time{time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)}
	f.engine = NewEngine(f.store, WithClock(func() time.Time {
		now := ticks[len(ticks)-1]
		ticks = append(ticks, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
		return now
	}))

	res, err := f.engine.Resolve(ctx, testUser, month(t, 2025, 4))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Relation != core.Future || !res.Persisted {
		t.Fatalf("relation=%v persisted=%v, want future as of March 31", res.Relation, res.Persisted)
	}
}

func TestResolve_TodayFollowsClock(t *testing.T) {
	ctx := context.Background()
	now := today
	f := newFixture(t)
	f.engine = NewEngine(f.store, WithClock(func() time.Time { return now }))
	april := month(t, 2025, 4)

	if got := f.engine.Relation(april); got != core.Future {
		t.Fatalf("relation = %v, want future", got)
	}
	now = time.Date(2025, time.April, 1, 0, 0, 1, 0, time.UTC)
	res, _ := f.engine.Resolve(ctx, testUser, april)
	if res.Relation != core.Current || res.Persisted {
		t.Fatalf("relation=%v persisted=%v after clock moved", res.Relation, res.Persisted)
	}
}

func TestPersist_DefaultSlotOnlyForNonFutureMonths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name        string
		month       core.MonthKey
		wantDefault bool
	}{
		{"past", month(t, 2024, 12), true},
		{"current", month(t, 2025, 3), true},
		{"future", month(t, 2025, 9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tpl := templateWith(t, map[string]string{"income/paycheck-1": "3000"})
			if err := f.engine.Persist(ctx, testUser, tt.month, tpl); err != nil {
				t.Fatalf("Persist: %v", err)
			}
			if ok, _ := f.store.Has(ctx, testUser, tt.month); !ok {
				t.Fatalf("month snapshot missing")
			}
			_, err := f.store.GetDefault(ctx, testUser)
			if gotDefault := err == nil; gotDefault != tt.wantDefault {
				t.Fatalf("default written = %v, want %v", gotDefault, tt.wantDefault)
			}
			want := []string{"saved:" + tt.month.Slot()}
			if tt.wantDefault {
				want = append(want, "saved:"+snapshots.DefaultSlot)
			}
			if got := f.publisher.slots(); !slices.Equal(got, want) {
				t.Fatalf("events = %v, want %v", got, want)
			}
		})
	}
}

func TestPersist_SurfacesStoreFailure(t *testing.T) {
	e := NewEngine(snapshots.New(failingBackend{}), WithClock(func() time.Time { return today }))
	err := e.Persist(context.Background(), testUser, month(t, 2025, 3), core.DefaultTemplate())
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("err = %v, want errBackendDown", err)
	}
}

func TestReset_ThenNavigateShowsBuiltin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	jan := month(t, 2025, 1)

	edited := templateWith(t, map[string]string{"housing/mortgage-rent": "1500"})
	_ = f.engine.Persist(ctx, testUser, jan, edited)
	_ = f.store.Set(ctx, "someone-else", jan, edited)

	if err := f.engine.Reset(ctx, testUser); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if f.backend.Len(testUser) != 0 {
		t.Fatalf("snapshots left after reset: %d", f.backend.Len(testUser))
	}
	if f.backend.Len("someone-else") != 1 {
		t.Fatalf("reset touched another user")
	}

	res, _ := f.engine.Resolve(ctx, testUser, jan)
	if res.Source != SourceBuiltin {
		t.Fatalf("source = %s, want builtin", res.Source)
	}
	if !res.Template.Equal(prepare(core.DefaultTemplate())) {
		t.Fatalf("expected the built-in template after reset")
	}
	if got := f.publisher.slots(); got[len(got)-2] != "reset:" {
		t.Fatalf("expected a reset event, got %v", got)
	}
}

func TestMonthStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Set(ctx, testUser, month(t, 2025, 2), core.DefaultTemplate())
	_ = f.store.Set(ctx, testUser, month(t, 2025, 7), core.DefaultTemplate())
	_ = f.backend.Save(ctx, testUser, month(t, 2025, 10).Slot(), []byte("{broken"))

	statuses, err := f.engine.MonthStatuses(ctx, testUser, 2025)
	if err != nil {
		t.Fatalf("MonthStatuses: %v", err)
	}
	if len(statuses) != 12 {
		t.Fatalf("len = %d, want 12", len(statuses))
	}
	for i, st := range statuses {
		wantData := i == 1 || i == 6
		if st.HasData != wantData {
			t.Fatalf("%s HasData = %v, want %v", st.Month, st.HasData, wantData)
		}
		wantRel := "past"
		switch {
		case i == 2:
			wantRel = "current"
		case i > 2:
			wantRel = "future"
		}
		if st.Relation != wantRel {
			t.Fatalf("%s relation = %s, want %s", st.Month, st.Relation, wantRel)
		}
	}
	if f.backend.Len(testUser) != 3 {
		t.Fatalf("MonthStatuses must not materialize snapshots")
	}

	if _, err := f.engine.MonthStatuses(ctx, testUser, 0); err == nil {
		t.Fatalf("expected error for year 0")
	}
}
