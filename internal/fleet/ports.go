// Package fleet declares the outbound ports of the garage service.
// Storage backends implement them; the HTTP layer and the sync worker
// consume them.
package fleet

import (
	"context"

	"garage/internal/core"
)

type (
	VehicleStore interface {
		CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error)
		GetVehicle(ctx context.Context, id int64) (core.Vehicle, error)
		// ListVehicles returns the full fleet ordered by year desc, make asc.
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
		UpdateVehicle(ctx context.Context, id int64, p core.VehiclePatch) (core.Vehicle, error)
		// DeleteVehicle removes the vehicle and cascades to its
		// maintenance and mod records.
		DeleteVehicle(ctx context.Context, id int64) error
		SetVehiclePhoto(ctx context.Context, id int64, path string) (core.Vehicle, error)
	}

	MaintenanceStore interface {
		CreateMaintenance(ctx context.Context, m core.Maintenance) (core.Maintenance, error)
		GetMaintenance(ctx context.Context, vehicleID, id int64) (core.Maintenance, error)
		// ListMaintenanceByVehicle returns records ordered by date desc.
		ListMaintenanceByVehicle(ctx context.Context, vehicleID int64) ([]core.Maintenance, error)
		UpdateMaintenance(ctx context.Context, vehicleID, id int64, p core.MaintenancePatch) (core.Maintenance, error)
		DeleteMaintenance(ctx context.Context, vehicleID, id int64) error
		SetMaintenanceReceipt(ctx context.Context, vehicleID, id int64, path string) (core.Maintenance, error)
	}

	ModStore interface {
		CreateMod(ctx context.Context, m core.Mod) (core.Mod, error)
		GetMod(ctx context.Context, vehicleID, id int64) (core.Mod, error)
		ListModsByVehicle(ctx context.Context, vehicleID int64) ([]core.Mod, error)
		UpdateMod(ctx context.Context, vehicleID, id int64, p core.ModPatch) (core.Mod, error)
		DeleteMod(ctx context.Context, vehicleID, id int64) error
	}

	UserStore interface {
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		// EnsureUser inserts the sole credential row if the table is
		// empty; at most one user ever exists.
		EnsureUser(ctx context.Context, username, hashedPassword string) (core.User, error)
	}

	// StatsSource feeds the dashboard aggregator. Period-scoped fetches
	// may narrow by date range; the aggregator re-filters regardless.
	StatsSource interface {
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
		ListMaintenanceInPeriod(ctx context.Context, p core.Period) ([]core.Maintenance, error)
		ListModsInPeriod(ctx context.Context, p core.Period) ([]core.Mod, error)
	}

	// Store is the full persistence surface, for wiring convenience.
	Store interface {
		VehicleStore
		MaintenanceStore
		ModStore
		UserStore
		StatsSource
	}
)
