// Package memory holds an in-memory fleet store. It backs tests and the
// DATA_BACKEND=memory mode; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garage/internal/core"
)

type Store struct {
	mu sync.RWMutex

	vehicles    map[int64]core.Vehicle
	maintenance map[int64]core.Maintenance
	mods        map[int64]core.Mod
	user        *core.User

	nextVehicleID     int64
	nextMaintenanceID int64
	nextModID         int64
}

func NewStore() *Store {
	return &Store{
		vehicles:    make(map[int64]core.Vehicle),
		maintenance: make(map[int64]core.Maintenance),
		mods:        make(map[int64]core.Mod),
	}
}

func (s *Store) CreateVehicle(_ context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextVehicleID++
	now := time.Now().UTC()
	v.ID = s.nextVehicleID
	v.CreatedAt = now
	v.UpdatedAt = now
	s.vehicles[v.ID] = v
	return v, nil
}

func (s *Store) GetVehicle(_ context.Context, id int64) (core.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getVehicleLocked(id)
}

func (s *Store) getVehicleLocked(id int64) (core.Vehicle, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return core.Vehicle{}, core.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVehicles(_ context.Context) ([]core.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vehicles := make([]core.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		vehicles = append(vehicles, v)
	}
	sort.Slice(vehicles, func(i, j int) bool {
		if vehicles[i].Year != vehicles[j].Year {
			return vehicles[i].Year > vehicles[j].Year
		}
		return vehicles[i].Make < vehicles[j].Make
	})
	return vehicles, nil
}

func (s *Store) UpdateVehicle(_ context.Context, id int64, p core.VehiclePatch) (core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.getVehicleLocked(id)
	if err != nil {
		return core.Vehicle{}, err
	}
	if err := p.Apply(&v); err != nil {
		return core.Vehicle{}, err
	}
	v.UpdatedAt = time.Now().UTC()
	s.vehicles[id] = v
	return v, nil
}

func (s *Store) DeleteVehicle(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.vehicles, id)
	for mid, m := range s.maintenance {
		if m.VehicleID == id {
			delete(s.maintenance, mid)
		}
	}
	for mid, m := range s.mods {
		if m.VehicleID == id {
			delete(s.mods, mid)
		}
	}
	return nil
}

func (s *Store) SetVehiclePhoto(_ context.Context, id int64, path string) (core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.getVehicleLocked(id)
	if err != nil {
		return core.Vehicle{}, err
	}
	v.PhotoPath = path
	v.UpdatedAt = time.Now().UTC()
	s.vehicles[id] = v
	return v, nil
}

func (s *Store) CreateMaintenance(_ context.Context, m core.Maintenance) (core.Maintenance, error) {
	m.Date = m.Date.Truncate()
	if err := m.Validate(); err != nil {
		return core.Maintenance{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVehicleLocked(m.VehicleID); err != nil {
		return core.Maintenance{}, err
	}

	s.nextMaintenanceID++
	m.ID = s.nextMaintenanceID
	m.CreatedAt = time.Now().UTC()
	s.maintenance[m.ID] = m
	return m, nil
}

func (s *Store) GetMaintenance(_ context.Context, vehicleID, id int64) (core.Maintenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMaintenanceLocked(vehicleID, id)
}

func (s *Store) getMaintenanceLocked(vehicleID, id int64) (core.Maintenance, error) {
	m, ok := s.maintenance[id]
	if !ok || m.VehicleID != vehicleID {
		return core.Maintenance{}, core.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMaintenanceByVehicle(_ context.Context, vehicleID int64) ([]core.Maintenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVehicleLocked(vehicleID); err != nil {
		return nil, err
	}

	var records []core.Maintenance
	for _, m := range s.maintenance {
		if m.VehicleID == vehicleID {
			records = append(records, m)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date.Time) {
			return records[i].Date.After(records[j].Date.Time)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (s *Store) UpdateMaintenance(_ context.Context, vehicleID, id int64, p core.MaintenancePatch) (core.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMaintenanceLocked(vehicleID, id)
	if err != nil {
		return core.Maintenance{}, err
	}
	if err := p.Apply(&m); err != nil {
		return core.Maintenance{}, err
	}
	s.maintenance[id] = m
	return m, nil
}

func (s *Store) DeleteMaintenance(_ context.Context, vehicleID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getMaintenanceLocked(vehicleID, id); err != nil {
		return err
	}
	delete(s.maintenance, id)
	return nil
}

func (s *Store) SetMaintenanceReceipt(_ context.Context, vehicleID, id int64, path string) (core.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMaintenanceLocked(vehicleID, id)
	if err != nil {
		return core.Maintenance{}, err
	}
	m.ReceiptPath = path
	s.maintenance[id] = m
	return m, nil
}

func (s *Store) CreateMod(_ context.Context, m core.Mod) (core.Mod, error) {
	m.Date = m.Date.Truncate()
	if err := m.Validate(); err != nil {
		return core.Mod{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVehicleLocked(m.VehicleID); err != nil {
		return core.Mod{}, err
	}

	s.nextModID++
	m.ID = s.nextModID
	m.CreatedAt = time.Now().UTC()
	s.mods[m.ID] = m
	return m, nil
}

func (s *Store) GetMod(_ context.Context, vehicleID, id int64) (core.Mod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getModLocked(vehicleID, id)
}

func (s *Store) getModLocked(vehicleID, id int64) (core.Mod, error) {
	m, ok := s.mods[id]
	if !ok || m.VehicleID != vehicleID {
		return core.Mod{}, core.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListModsByVehicle(_ context.Context, vehicleID int64) ([]core.Mod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVehicleLocked(vehicleID); err != nil {
		return nil, err
	}

	var mods []core.Mod
	for _, m := range s.mods {
		if m.VehicleID == vehicleID {
			mods = append(mods, m)
		}
	}
	sort.Slice(mods, func(i, j int) bool {
		if !mods[i].Date.Equal(mods[j].Date.Time) {
			return mods[i].Date.After(mods[j].Date.Time)
		}
		return mods[i].ID > mods[j].ID
	})
	return mods, nil
}

func (s *Store) UpdateMod(_ context.Context, vehicleID, id int64, p core.ModPatch) (core.Mod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getModLocked(vehicleID, id)
	if err != nil {
		return core.Mod{}, err
	}
	if err := p.Apply(&m); err != nil {
		return core.Mod{}, err
	}
	s.mods[id] = m
	return m, nil
}

func (s *Store) DeleteMod(_ context.Context, vehicleID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getModLocked(vehicleID, id); err != nil {
		return err
	}
	delete(s.mods, id)
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil || s.user.Username != username {
		return core.User{}, core.ErrNotFound
	}
	return *s.user, nil
}

func (s *Store) EnsureUser(_ context.Context, username, hashedPassword string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user != nil {
		return *s.user, nil
	}
	s.user = &core.User{
		ID:             1,
		Username:       username,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}
	return *s.user, nil
}

func (s *Store) ListMaintenanceInPeriod(_ context.Context, p core.Period) ([]core.Maintenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []core.Maintenance
	for _, m := range s.maintenance {
		if p.Matches(m.Date) {
			records = append(records, m)
		}
	}
	return records, nil
}

func (s *Store) ListModsInPeriod(_ context.Context, p core.Period) ([]core.Mod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mods []core.Mod
	for _, m := range s.mods {
		if p.Matches(m.Date) {
			mods = append(mods, m)
		}
	}
	return mods, nil
}
