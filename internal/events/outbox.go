package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes a project event to store in the outbox.
type Event struct {
	Tenant    string
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// OutboxEntry is the persisted outbox row.
type OutboxEntry struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	Tenant    string            `gorm:"type:text;not null;index;uniqueIndex:idx_project_events_dedupe"`
	EventType string            `gorm:"type:text;not null"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex:idx_project_events_dedupe"`
	Published bool              `gorm:"not null;default:false"`
	CreatedAt time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (OutboxEntry) TableName() string { return "project_events" }

// Outbox inserts project events into the project_events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{db: db, genID: genID, clock: clk}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction so the event
// commits or rolls back with the mutation it describes.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil || o.clock == nil {
		return errors.New("outbox_unavailable")
	}
	tenant := strings.TrimSpace(event.Tenant)
	if tenant == "" {
		return errors.New("invalid_tenant")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	entry := OutboxEntry{
		ID:        o.genID.Generate(),
		Tenant:    tenant,
		EventType: name,
		Payload:   payload,
		CreatedAt: o.clock.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		entry.DedupeKey = &dedupe
	}

	err := db.WithContext(ctx).Create(&entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Same logical event already queued; nothing to do.
		return nil
	}
	return err
}
