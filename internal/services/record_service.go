// Package services orchestrates fleet operations across storage and the
// optional AMQP side channel.
package services

import (
	"context"
	"log/slog"

	"garage/internal/amqp"
	"garage/internal/core"
	"garage/internal/fleet"
)

// RecordService wraps the store and announces record changes to the sync
// worker. Publishing is best effort; a failed publish never fails the
// request, the row is already persisted.
type RecordService struct {
	store      fleet.Store
	amqpClient *amqp.Client
}

// NewRecordService builds a service. amqpClient may be nil, in which
// case changes are not announced.
func NewRecordService(store fleet.Store, amqpClient *amqp.Client) *RecordService {
	return &RecordService{store: store, amqpClient: amqpClient}
}

func (s *RecordService) Store() fleet.Store {
	return s.store
}

func (s *RecordService) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	created, err := s.store.CreateVehicle(ctx, v)
	if err != nil {
		return core.Vehicle{}, err
	}
	s.publish(ctx, amqp.KindVehicle, amqp.OpUpsert, created.ID, created.ID)
	return created, nil
}

func (s *RecordService) UpdateVehicle(ctx context.Context, id int64, p core.VehiclePatch) (core.Vehicle, error) {
	updated, err := s.store.UpdateVehicle(ctx, id, p)
	if err != nil {
		return core.Vehicle{}, err
	}
	s.publish(ctx, amqp.KindVehicle, amqp.OpUpsert, id, id)
	return updated, nil
}

func (s *RecordService) DeleteVehicle(ctx context.Context, id int64) error {
	if err := s.store.DeleteVehicle(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.KindVehicle, amqp.OpDelete, id, id)
	return nil
}

func (s *RecordService) SetVehiclePhoto(ctx context.Context, id int64, path string) (core.Vehicle, error) {
	updated, err := s.store.SetVehiclePhoto(ctx, id, path)
	if err != nil {
		return core.Vehicle{}, err
	}
	s.publish(ctx, amqp.KindVehicle, amqp.OpUpsert, id, id)
	return updated, nil
}

func (s *RecordService) CreateMaintenance(ctx context.Context, m core.Maintenance) (core.Maintenance, error) {
	created, err := s.store.CreateMaintenance(ctx, m)
	if err != nil {
		return core.Maintenance{}, err
	}
	s.publish(ctx, amqp.KindMaintenance, amqp.OpUpsert, created.ID, created.VehicleID)
	return created, nil
}

func (s *RecordService) UpdateMaintenance(ctx context.Context, vehicleID, id int64, p core.MaintenancePatch) (core.Maintenance, error) {
	updated, err := s.store.UpdateMaintenance(ctx, vehicleID, id, p)
	if err != nil {
		return core.Maintenance{}, err
	}
	s.publish(ctx, amqp.KindMaintenance, amqp.OpUpsert, id, vehicleID)
	return updated, nil
}

func (s *RecordService) DeleteMaintenance(ctx context.Context, vehicleID, id int64) error {
	if err := s.store.DeleteMaintenance(ctx, vehicleID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.KindMaintenance, amqp.OpDelete, id, vehicleID)
	return nil
}

func (s *RecordService) SetMaintenanceReceipt(ctx context.Context, vehicleID, id int64, path string) (core.Maintenance, error) {
	updated, err := s.store.SetMaintenanceReceipt(ctx, vehicleID, id, path)
	if err != nil {
		return core.Maintenance{}, err
	}
	s.publish(ctx, amqp.KindMaintenance, amqp.OpUpsert, id, vehicleID)
	return updated, nil
}

func (s *RecordService) CreateMod(ctx context.Context, m core.Mod) (core.Mod, error) {
	created, err := s.store.CreateMod(ctx, m)
	if err != nil {
		return core.Mod{}, err
	}
	s.publish(ctx, amqp.KindMod, amqp.OpUpsert, created.ID, created.VehicleID)
	return created, nil
}

func (s *RecordService) UpdateMod(ctx context.Context, vehicleID, id int64, p core.ModPatch) (core.Mod, error) {
	updated, err := s.store.UpdateMod(ctx, vehicleID, id, p)
	if err != nil {
		return core.Mod{}, err
	}
	s.publish(ctx, amqp.KindMod, amqp.OpUpsert, id, vehicleID)
	return updated, nil
}

func (s *RecordService) DeleteMod(ctx context.Context, vehicleID, id int64) error {
	if err := s.store.DeleteMod(ctx, vehicleID, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.KindMod, amqp.OpDelete, id, vehicleID)
	return nil
}

func (s *RecordService) publish(ctx context.Context, kind amqp.RecordKind, op amqp.RecordOp, id, vehicleID int64) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewRecordChangeMessage(kind, op, id, vehicleID)
	if err := s.amqpClient.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record change",
			"kind", kind, "op", op, "id", id, "error", err)
	}
}
