package core

import (
	"reflect"
	"testing"
	"time"
)

func cents(c int64) *Money { return &Money{Cents: c} }

func fleet() []Vehicle {
	return []Vehicle{
		{ID: 1, Make: "Subaru", Model: "Outback", Year: 2019},
		{ID: 2, Make: "Honda", Model: "Civic", Year: 2005},
	}
}

func TestBuildDashboardTotalsAndAverages(t *testing.T) {
	maint := []Maintenance{
		{VehicleID: 1, Date: NewDate(2024, 3, 1), Cost: cents(10000)},
		{VehicleID: 1, Date: NewDate(2024, 7, 12), Cost: nil}, // missing cost counts, adds zero
	}
	stats := BuildDashboard(fleet(), maint, nil, Period{Year: 2024})

	if stats.Maintenance.Count != 2 {
		t.Fatalf("fleet count = %d, want 2", stats.Maintenance.Count)
	}
	if stats.Maintenance.TotalCents != 10000 {
		t.Fatalf("fleet total = %d, want 10000", stats.Maintenance.TotalCents)
	}
	if got := stats.Maintenance.AverageDollars(); got != 50.0 {
		t.Fatalf("fleet average = %v, want 50.0", got)
	}

	if len(stats.ByVehicle) != 2 {
		t.Fatalf("by_vehicle rows = %d, want 2", len(stats.ByVehicle))
	}
	a := stats.ByVehicle[0]
	if a.Maintenance.Count != 2 || a.Maintenance.TotalCents != 10000 || a.Maintenance.AverageDollars() != 50.0 {
		t.Fatalf("vehicle A stats = %+v", a.Maintenance)
	}
	// Vehicle B has no records but must still appear, zero-filled.
	b := stats.ByVehicle[1]
	if b.Vehicle.ID != 2 {
		t.Fatalf("expected vehicle 2 in second row, got %d", b.Vehicle.ID)
	}
	if b.Maintenance != (Aggregate{}) || b.Mods != (Aggregate{}) {
		t.Fatalf("vehicle B not zero-filled: %+v %+v", b.Maintenance, b.Mods)
	}
}

func TestBuildDashboardEmptyFleet(t *testing.T) {
	stats := BuildDashboard(nil, nil, nil, Period{Year: 2024})
	if stats.Maintenance.AverageDollars() != 0 || stats.Mods.AverageDollars() != 0 {
		t.Fatalf("empty aggregates must average to zero")
	}
	if len(stats.ByVehicle) != 0 {
		t.Fatalf("expected no vehicle rows")
	}
}

func TestPeriodDateBoundaries(t *testing.T) {
	dec31 := NewDate(2024, 12, 31)
	jan1 := NewDate(2025, 1, 1)

	if !(Period{Year: 2024}).Matches(dec31) {
		t.Fatalf("Dec 31 must match its own year")
	}
	if (Period{Year: 2025}).Matches(dec31) {
		t.Fatalf("Dec 31 must not match the following year")
	}
	if !(Period{Year: 2025}).Matches(jan1) {
		t.Fatalf("Jan 1 must match its own year")
	}
	if !(Period{AllTime: true}).Matches(dec31) || !(Period{AllTime: true}).Matches(jan1) {
		t.Fatalf("all-time matches everything")
	}
}

func TestPeriodMatchesByDateNotTimestamp(t *testing.T) {
	// A mod stamped 2023-12-31T23:59 belongs to 2023.
	late := Date{Time: time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)}
	mods := []Mod{{VehicleID: 1, Name: "exhaust", Date: late, Cost: cents(20000)}}

	stats := BuildDashboard(fleet(), nil, mods, Period{Year: 2023})
	if stats.Mods.Count != 1 || stats.Mods.TotalCents != 20000 {
		t.Fatalf("late-evening mod excluded from its year: %+v", stats.Mods)
	}
	stats = BuildDashboard(fleet(), nil, mods, Period{Year: 2024})
	if stats.Mods.Count != 0 {
		t.Fatalf("mod leaked into the next year: %+v", stats.Mods)
	}
}

func TestAllTimeIsSupersetOfYears(t *testing.T) {
	maint := []Maintenance{
		{VehicleID: 1, Date: NewDate(2022, 5, 1), Cost: cents(100)},
		{VehicleID: 1, Date: NewDate(2023, 5, 1), Cost: cents(200)},
		{VehicleID: 2, Date: NewDate(2024, 5, 1), Cost: cents(300)},
	}

	all := BuildDashboard(fleet(), maint, nil, Period{AllTime: true})
	var yearlyCount, yearlyCents int64
	for _, y := range []int{2022, 2023, 2024} {
		s := BuildDashboard(fleet(), maint, nil, Period{Year: y})
		if s.Maintenance.Count > all.Maintenance.Count {
			t.Fatalf("year %d count exceeds all-time", y)
		}
		yearlyCount += s.Maintenance.Count
		yearlyCents += s.Maintenance.TotalCents
	}
	if yearlyCount != all.Maintenance.Count || yearlyCents != all.Maintenance.TotalCents {
		t.Fatalf("sum of yearly totals (%d, %d) != all-time (%d, %d)",
			yearlyCount, yearlyCents, all.Maintenance.Count, all.Maintenance.TotalCents)
	}
}

func TestMaintenanceAndModAggregatesIndependent(t *testing.T) {
	maint := []Maintenance{
		{VehicleID: 1, Date: NewDate(2024, 3, 1), Cost: cents(10000)},
	}
	before := BuildDashboard(fleet(), maint, nil, Period{Year: 2024})

	mods := []Mod{{VehicleID: 1, Name: "intake", Date: NewDate(2024, 4, 1), Cost: cents(99999)}}
	after := BuildDashboard(fleet(), maint, mods, Period{Year: 2024})

	if before.ByVehicle[0].Maintenance != after.ByVehicle[0].Maintenance {
		t.Fatalf("adding a mod changed the maintenance aggregate: %+v vs %+v",
			before.ByVehicle[0].Maintenance, after.ByVehicle[0].Maintenance)
	}
	if after.ByVehicle[0].Mods.Count != 1 || after.ByVehicle[0].Mods.TotalCents != 99999 {
		t.Fatalf("mod aggregate wrong: %+v", after.ByVehicle[0].Mods)
	}
}

func TestBuildDashboardIdempotent(t *testing.T) {
	maint := []Maintenance{
		{VehicleID: 1, Date: NewDate(2024, 3, 1), Cost: cents(12345)},
		{VehicleID: 2, Date: NewDate(2024, 6, 1)},
	}
	mods := []Mod{{VehicleID: 2, Name: "lift kit", Date: NewDate(2024, 8, 1), Cost: cents(777)}}

	first := BuildDashboard(fleet(), maint, mods, Period{Year: 2024})
	second := BuildDashboard(fleet(), maint, mods, Period{Year: 2024})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced different dashboards")
	}
}

func TestAverageRounding(t *testing.T) {
	// 100.00 over 3 services: 33.333... rounds to 33.33.
	a := Aggregate{Count: 3, TotalCents: 10000}
	if got := a.AverageDollars(); got != 33.33 {
		t.Fatalf("average = %v, want 33.33", got)
	}
	// Totals stay unrounded.
	if got := a.TotalDollars(); got != 100.0 {
		t.Fatalf("total = %v, want 100.0", got)
	}
	// 0.05 over 2: 0.025 rounds half-up to 0.03.
	a = Aggregate{Count: 2, TotalCents: 5}
	if got := a.AverageDollars(); got != 0.03 {
		t.Fatalf("average = %v, want 0.03", got)
	}
}
