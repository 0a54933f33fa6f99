package memory

import (
	"context"
	"errors"
	"testing"

	"garage/internal/core"
)

func TestVehicleLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v, err := s.CreateVehicle(ctx, core.Vehicle{Make: "Subaru", Model: "BRZ", Year: 2022})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	nickname := "track car"
	updated, err := s.UpdateVehicle(ctx, v.ID, core.VehiclePatch{Nickname: &nickname})
	if err != nil {
		t.Fatalf("UpdateVehicle: %v", err)
	}
	if updated.Nickname != nickname {
		t.Fatalf("nickname not applied: %q", updated.Nickname)
	}

	if err := s.DeleteVehicle(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVehicle: %v", err)
	}
	if _, err := s.GetVehicle(ctx, v.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVehiclesOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for _, v := range []core.Vehicle{
		{Make: "Toyota", Model: "Supra", Year: 1998},
		{Make: "Honda", Model: "NSX", Year: 2005},
		{Make: "Acura", Model: "Integra", Year: 2005},
	} {
		if _, err := s.CreateVehicle(ctx, v); err != nil {
			t.Fatalf("CreateVehicle: %v", err)
		}
	}

	vehicles, err := s.ListVehicles(ctx)
	if err != nil {
		t.Fatalf("ListVehicles: %v", err)
	}
	want := []string{"Acura", "Honda", "Toyota"}
	for i, make := range want {
		if vehicles[i].Make != make {
			t.Fatalf("position %d: expected %s, got %s", i, make, vehicles[i].Make)
		}
	}
}

func TestDeleteVehicleCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v, err := s.CreateVehicle(ctx, core.Vehicle{Make: "Nissan", Model: "350Z", Year: 2006})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	m, err := s.CreateMaintenance(ctx, core.Maintenance{
		VehicleID: v.ID, Type: "clutch", Date: core.NewDate(2023, 5, 5),
	})
	if err != nil {
		t.Fatalf("CreateMaintenance: %v", err)
	}
	mod, err := s.CreateMod(ctx, core.Mod{
		VehicleID: v.ID, Name: "exhaust", Date: core.NewDate(2023, 6, 6),
	})
	if err != nil {
		t.Fatalf("CreateMod: %v", err)
	}

	if err := s.DeleteVehicle(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVehicle: %v", err)
	}
	if _, err := s.GetMaintenance(ctx, v.ID, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("maintenance survived cascade")
	}
	if _, err := s.GetMod(ctx, v.ID, mod.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("mod survived cascade")
	}
}

func TestScopedLookups(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, _ := s.CreateVehicle(ctx, core.Vehicle{Make: "Mazda", Model: "MX-5", Year: 2019})
	b, _ := s.CreateVehicle(ctx, core.Vehicle{Make: "Fiat", Model: "124", Year: 2018})

	m, err := s.CreateMaintenance(ctx, core.Maintenance{
		VehicleID: a.ID, Type: "tires", Date: core.NewDate(2023, 8, 1),
	})
	if err != nil {
		t.Fatalf("CreateMaintenance: %v", err)
	}

	if _, err := s.GetMaintenance(ctx, b.ID, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across vehicles, got %v", err)
	}
}

func TestPeriodFiltering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v, _ := s.CreateVehicle(ctx, core.Vehicle{Make: "BMW", Model: "E46", Year: 2003})
	for _, d := range []core.Date{
		core.NewDate(2022, 11, 11),
		core.NewDate(2023, 1, 1),
		core.NewDate(2023, 12, 31),
	} {
		if _, err := s.CreateMaintenance(ctx, core.Maintenance{
			VehicleID: v.ID, Type: "service", Date: d,
		}); err != nil {
			t.Fatalf("CreateMaintenance: %v", err)
		}
	}

	in2023, err := s.ListMaintenanceInPeriod(ctx, core.Period{Year: 2023})
	if err != nil {
		t.Fatalf("ListMaintenanceInPeriod: %v", err)
	}
	if len(in2023) != 2 {
		t.Fatalf("expected 2 records in 2023, got %d", len(in2023))
	}

	all, err := s.ListMaintenanceInPeriod(ctx, core.Period{AllTime: true})
	if err != nil {
		t.Fatalf("ListMaintenanceInPeriod all-time: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records all-time, got %d", len(all))
	}
}

func TestEnsureUserSingle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u, err := s.EnsureUser(ctx, "admin", "hash")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	again, err := s.EnsureUser(ctx, "other", "hash2")
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if again.ID != u.ID || again.Username != "admin" {
		t.Fatalf("second EnsureUser replaced the account: %+v", again)
	}
}
