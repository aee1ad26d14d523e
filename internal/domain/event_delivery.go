package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DeliveryStatusQueued    = "queued"
	DeliveryStatusRunning   = "running"
	DeliveryStatusSucceeded = "succeeded"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusDead      = "dead"
)

// EventDelivery is the durable unit of work: one row per (event, handler).
// Publishing an event inserts one row for every handler subscribed to it,
// so handlers retry and dead-letter independently of each other.
//
// Attempts counts started executions. MaxAttempts is fixed at publish time
// from the handler's retry budget; once Attempts reaches it the row goes
// dead and is never claimed again.
//
// Checkpoints maps step name -> JSON-encoded step result. A step whose name
// is present is never re-executed on a retry; its cached result is returned.
type EventDelivery struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;not null;index" json:"event_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Event       string         `gorm:"column:event;not null;index" json:"event"`
	Handler     string         `gorm:"column:handler;not null;index" json:"handler"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Stage       string         `gorm:"column:stage" json:"stage"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts int            `gorm:"column:max_attempts;not null" json:"max_attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Checkpoints datatypes.JSON `gorm:"column:checkpoints;type:jsonb" json:"checkpoints,omitempty"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (EventDelivery) TableName() string { return "event_delivery" }

// Terminal reports whether the delivery will never run again.
func (d *EventDelivery) Terminal() bool {
	return d.Status == DeliveryStatusSucceeded || d.Status == DeliveryStatusDead
}
