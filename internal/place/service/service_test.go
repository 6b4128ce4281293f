package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/events"
	"github.com/jep-hq/tools/internal/place/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newPlacesServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("key") == "" {
			t.Error("missing api key on upstream request")
		}
		if r.URL.Query().Get("fields") == "" {
			t.Error("missing field mask on upstream request")
		}
		if r.URL.Path == "/places/ghost" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"name":             "places/ChIJtest",
			"displayName":      map[string]any{"text": "Test Bakery", "languageCode": "de"},
			"formattedAddress": "Hauptstr. 1, Berlin",
			"location":         map[string]any{"latitude": 52.5, "longitude": 13.4},
			"rating":           4.6,
		})
	}))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:places_svc_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Place{}, &events.OutboxEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, upstream string, clk *fixedClock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	cfg := config.Config{
		Google:            config.GoogleConfig{APIKey: "test-key", PlacesBaseURL: upstream},
		PlaceRefreshAfter: 30 * 24 * time.Hour,
	}
	return NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Client: NewGoogleClient(cfg),
		Outbox: events.NewOutbox(db, node, clk),
		Config: cfg,
	})
}

func TestGetPlaceFetchesAndStores(t *testing.T) {
	var calls atomic.Int64
	upstream := newPlacesServer(t, &calls)
	defer upstream.Close()

	clk := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	db := newTestDB(t)
	svc := newTestService(t, db, upstream.URL, clk)

	place, err := svc.GetPlace(context.Background(), "kleineprints", "ChIJtest")
	if err != nil {
		t.Fatalf("get place: %v", err)
	}
	if place.Address != "Hauptstr. 1, Berlin" {
		t.Fatalf("unexpected address %q", place.Address)
	}
	if place.Rating != 4.6 {
		t.Fatalf("unexpected rating %v", place.Rating)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}

	var count int64
	if err := db.Model(&domain.Place{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored place, got %d", count)
	}

	var entries []events.OutboxEntry
	if err := db.Find(&entries).Error; err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 refresh event, got %d", len(entries))
	}
	if entries[0].EventType != events.EventPlaceRefreshed {
		t.Fatalf("unexpected event type %q", entries[0].EventType)
	}
	if entries[0].Payload["place_id"] != "ChIJtest" {
		t.Fatalf("unexpected event payload %+v", entries[0].Payload)
	}
}

func TestGetPlaceServesFreshCopyWithoutUpstream(t *testing.T) {
	var calls atomic.Int64
	upstream := newPlacesServer(t, &calls)
	defer upstream.Close()

	clk := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, newTestDB(t), upstream.URL, clk)

	if _, err := svc.GetPlace(context.Background(), "kleineprints", "ChIJtest"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, err := svc.GetPlace(context.Background(), "kleineprints", "ChIJtest"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("fresh copy must not hit upstream again, got %d calls", calls.Load())
	}
}

func TestGetPlaceRefreshesStaleCopy(t *testing.T) {
	var calls atomic.Int64
	upstream := newPlacesServer(t, &calls)
	defer upstream.Close()

	clk := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	db := newTestDB(t)
	svc := newTestService(t, db, upstream.URL, clk)

	first, err := svc.GetPlace(context.Background(), "kleineprints", "ChIJtest")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}

	// A fresh service instance has a cold hot cache, so the read goes
	// through the database row aged past the refresh window.
	clk.now = clk.now.Add(31 * 24 * time.Hour)
	fresh := newTestService(t, db, upstream.URL, clk)

	refreshed, err := fresh.GetPlace(context.Background(), "kleineprints", "ChIJtest")
	if err != nil {
		t.Fatalf("refresh get: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("stale copy must be re-fetched, got %d calls", calls.Load())
	}
	if !refreshed.UpdatedAt.After(first.UpdatedAt) {
		t.Fatal("updated_at must advance on refresh")
	}
	if refreshed.ID != first.ID {
		t.Fatal("refresh must update the existing row")
	}
}

func TestGetPlaceErrors(t *testing.T) {
	var calls atomic.Int64
	upstream := newPlacesServer(t, &calls)
	defer upstream.Close()

	clk := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, newTestDB(t), upstream.URL, clk)

	if _, err := svc.GetPlace(context.Background(), "kleineprints", " "); !errors.Is(err, domain.ErrMissingPlaceID) {
		t.Fatalf("expected missing_place_id, got %v", err)
	}
	if _, err := svc.GetPlace(context.Background(), "kleineprints", "ghost"); !errors.Is(err, domain.ErrPlaceNotFound) {
		t.Fatalf("expected place_not_found, got %v", err)
	}
}
