// Package worker mirrors fleet record changes into a spreadsheet. It
// consumes change messages published by the API server and appends one
// row per change.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"garage/internal/amqp"
	"garage/internal/core"
	"garage/internal/fleet"
)

// RowAppender is the outbound port for the mirror sheet.
type RowAppender interface {
	AppendRow(ctx context.Context, values []any) error
}

type SyncWorker struct {
	store fleet.Store
	rows  RowAppender
}

func NewSyncWorker(store fleet.Store, rows RowAppender) *SyncWorker {
	return &SyncWorker{store: store, rows: rows}
}

// HandleRecordChange processes a single change message. An upsert whose
// row has since been deleted is skipped, not retried; the delete message
// behind it is already in the queue.
func (w *SyncWorker) HandleRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	if msg.Op == amqp.OpDelete {
		return w.rows.AppendRow(ctx, []any{
			string(msg.Kind), msg.ID, msg.VehicleID, "", "", "",
			string(amqp.OpDelete), msg.Timestamp.Format(time.RFC3339),
		})
	}

	row, err := w.buildRow(ctx, msg)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Record vanished before sync, skipping",
			"kind", msg.Kind, "id", msg.ID)
		return nil
	}
	if err != nil {
		return err
	}

	return w.rows.AppendRow(ctx, row)
}

func (w *SyncWorker) buildRow(ctx context.Context, msg *amqp.RecordChangeMessage) ([]any, error) {
	switch msg.Kind {
	case amqp.KindVehicle:
		v, err := w.store.GetVehicle(ctx, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("get vehicle: %w", err)
		}
		label := fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
		return []any{
			string(msg.Kind), v.ID, v.ID, "", label, "",
			string(amqp.OpUpsert), msg.Timestamp.Format(time.RFC3339),
		}, nil

	case amqp.KindMaintenance:
		m, err := w.store.GetMaintenance(ctx, msg.VehicleID, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("get maintenance: %w", err)
		}
		return []any{
			string(msg.Kind), m.ID, m.VehicleID, m.Date.String(), m.Type, costCell(m.Cost),
			string(amqp.OpUpsert), msg.Timestamp.Format(time.RFC3339),
		}, nil

	case amqp.KindMod:
		m, err := w.store.GetMod(ctx, msg.VehicleID, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("get mod: %w", err)
		}
		return []any{
			string(msg.Kind), m.ID, m.VehicleID, m.Date.String(), m.Name, costCell(m.Cost),
			string(amqp.OpUpsert), msg.Timestamp.Format(time.RFC3339),
		}, nil
	}

	return nil, fmt.Errorf("unknown record kind %q", msg.Kind)
}

func costCell(m *core.Money) any {
	if m == nil {
		return ""
	}
	return m.Dollars()
}
