package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

var testInstant = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestOutbox(t *testing.T) (*Outbox, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:outbox_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&OutboxEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewOutbox(db, node, clock.Fixed{Instant: testInstant}), db
}

func TestPublishStoresEvent(t *testing.T) {
	outbox, db := newTestOutbox(t)

	err := outbox.Publish(context.Background(), Event{
		Tenant:  "kleineprints",
		Type:    EventProjectCreated,
		Payload: ProjectPayload{ProjectID: "1", Token: "tok1"}.ToMap(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	var entries []OutboxEntry
	if err := db.Find(&entries).Error; err != nil {
		t.Fatalf("read entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].EventType != EventProjectCreated || entries[0].Published {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if !entries[0].CreatedAt.Equal(testInstant) {
		t.Fatalf("entry must carry the clock's instant, got %v", entries[0].CreatedAt)
	}
}

func TestPublishDeduplicates(t *testing.T) {
	outbox, db := newTestOutbox(t)

	event := Event{
		Tenant:    "kleineprints",
		Type:      EventProjectCreated,
		Payload:   ProjectPayload{ProjectID: "1", Token: "tok1"}.ToMap(),
		DedupeKey: "project.created:tok1",
	}
	if err := outbox.Publish(context.Background(), event); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	// Same logical event again is a no-op, not an error.
	if err := outbox.Publish(context.Background(), event); err != nil {
		t.Fatalf("duplicate publish: %v", err)
	}

	var count int64
	if err := db.Model(&OutboxEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected deduplicated single entry, got %d", count)
	}
}

func TestPublishValidatesEvent(t *testing.T) {
	outbox, _ := newTestOutbox(t)

	if err := outbox.Publish(context.Background(), Event{Type: EventProjectCreated}); err == nil {
		t.Fatal("expected error for missing tenant")
	}
	if err := outbox.Publish(context.Background(), Event{Tenant: "kleineprints"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
	if err := outbox.PublishTx(context.Background(), nil, Event{Tenant: "kleineprints", Type: EventProjectCreated}); err == nil {
		t.Fatal("expected error for missing transaction")
	}
}
