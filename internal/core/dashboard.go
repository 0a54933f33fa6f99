package core

import "math"

// Period selects the records a dashboard query covers: a single calendar
// year, or everything when AllTime is set.
type Period struct {
	Year    int
	AllTime bool
}

// Matches reports whether a record dated d falls inside the period.
// The comparison is by calendar date: a record stamped 2023-12-31T23:59
// still belongs to 2023.
func (p Period) Matches(d Date) bool {
	if p.AllTime {
		return true
	}
	return d.Truncate().Year() == p.Year
}

// Aggregate is a (count, total-cost) pair over a filtered record set.
type Aggregate struct {
	Count      int64
	TotalCents int64
}

func (a Aggregate) add(cost *Money) Aggregate {
	a.Count++
	if cost != nil {
		a.TotalCents += cost.Cents
	}
	return a
}

// TotalDollars returns the unrounded total in dollars.
func (a Aggregate) TotalDollars() float64 {
	return float64(a.TotalCents) / 100.0
}

// AverageDollars returns total/count in dollars rounded to two decimals,
// or 0 when the aggregate is empty. It is always defined.
func (a Aggregate) AverageDollars() float64 {
	if a.Count == 0 {
		return 0
	}
	// Round to whole cents, then convert; two decimals by construction.
	avgCents := math.Round(float64(a.TotalCents) / float64(a.Count))
	return avgCents / 100.0
}

// VehicleStats carries one vehicle's independent maintenance and mod
// aggregates for the period.
type VehicleStats struct {
	Vehicle     Vehicle
	Maintenance Aggregate
	Mods        Aggregate
}

// DashboardStats is the full fleet summary for a period.
type DashboardStats struct {
	Period      Period
	Maintenance Aggregate
	Mods        Aggregate
	ByVehicle   []VehicleStats
}

// BuildDashboard computes the fleet dashboard: two independent grouping
// passes (maintenance, mods) keyed by vehicle, then a merge over the full
// vehicle list so that a vehicle with no matching records still appears
// with zero aggregates. Records outside the period are ignored regardless
// of how they were fetched.
func BuildDashboard(vehicles []Vehicle, maintenance []Maintenance, mods []Mod, p Period) DashboardStats {
	byVehicleMaint := make(map[int64]Aggregate, len(vehicles))
	byVehicleMods := make(map[int64]Aggregate, len(vehicles))

	var fleetMaint, fleetMods Aggregate
	for _, m := range maintenance {
		if !p.Matches(m.Date) {
			continue
		}
		fleetMaint = fleetMaint.add(m.Cost)
		byVehicleMaint[m.VehicleID] = byVehicleMaint[m.VehicleID].add(m.Cost)
	}
	for _, m := range mods {
		if !p.Matches(m.Date) {
			continue
		}
		fleetMods = fleetMods.add(m.Cost)
		byVehicleMods[m.VehicleID] = byVehicleMods[m.VehicleID].add(m.Cost)
	}

	stats := DashboardStats{
		Period:      p,
		Maintenance: fleetMaint,
		Mods:        fleetMods,
		ByVehicle:   make([]VehicleStats, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		stats.ByVehicle = append(stats.ByVehicle, VehicleStats{
			Vehicle:     v,
			Maintenance: byVehicleMaint[v.ID], // zero Aggregate when absent
			Mods:        byVehicleMods[v.ID],
		})
	}
	return stats
}
