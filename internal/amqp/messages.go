package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type RecordKind string

const (
	KindVehicle     RecordKind = "vehicle"
	KindMaintenance RecordKind = "maintenance"
	KindMod         RecordKind = "mod"
)

type RecordOp string

const (
	OpUpsert RecordOp = "upsert"
	OpDelete RecordOp = "delete"
)

// RecordChangeMessage announces a fleet record change to the sync
// worker. It carries only the identifiers; the worker fetches the
// current row from the database.
type RecordChangeMessage struct {
	Kind      RecordKind `json:"kind"`
	Op        RecordOp   `json:"op"`
	ID        int64      `json:"id"`
	VehicleID int64      `json:"vehicle_id"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordChangeMessage(kind RecordKind, op RecordOp, id, vehicleID int64) *RecordChangeMessage {
	return &RecordChangeMessage{
		Kind:      kind,
		Op:        op,
		ID:        id,
		VehicleID: vehicleID,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindVehicle, KindMaintenance, KindMod:
	default:
		return nil, fmt.Errorf("unknown record kind %q", msg.Kind)
	}
	switch msg.Op {
	case OpUpsert, OpDelete:
	default:
		return nil, fmt.Errorf("unknown record op %q", msg.Op)
	}
	return &msg, nil
}
