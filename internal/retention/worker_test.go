package retention

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
	"github.com/jep-hq/tools/internal/project/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func seedProject(t *testing.T, db *gorm.DB, node *snowflake.Node, availableUntil time.Time, deleted bool) {
	t.Helper()
	change := projectdomain.Change{Token: fmt.Sprintf("tok-%d", node.Generate()), ThumbnailURL: "u"}
	p := projectdomain.Project{
		ID:             node.Generate(),
		Tenant:         "kleineprints",
		CustomerID:     "cust1",
		Current:        datatypes.NewJSONType(change),
		Changes:        datatypes.NewJSONSlice([]projectdomain.Change{change}),
		IsDeleted:      deleted,
		CreatedAt:      availableUntil.Add(-30 * 24 * time.Hour),
		UpdatedAt:      availableUntil.Add(-30 * 24 * time.Hour),
		AvailableUntil: availableUntil,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func TestRunOnceMeasuresBacklog(t *testing.T) {
	dsn := fmt.Sprintf("file:retention_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&projectdomain.Project{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedProject(t, db, node, now.Add(24*time.Hour), false)  // active, in window
	seedProject(t, db, node, now.Add(-48*time.Hour), false) // active, expired
	seedProject(t, db, node, now.Add(-24*time.Hour), false) // active, expired
	seedProject(t, db, node, now.Add(-72*time.Hour), true)  // deleted, ignored

	repo := repository.Provide()
	worker := NewWorker(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.Fixed{Instant: now},
		Repo:  repo,
	})

	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	active, err := repo.CountActive(context.Background(), db)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 3 {
		t.Fatalf("expected 3 active projects, got %d", active)
	}

	expired, err := repo.CountExpired(context.Background(), db, now)
	if err != nil {
		t.Fatalf("count expired: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 expired projects, got %d", expired)
	}

	oldest, err := repo.OldestExpired(context.Background(), db, now)
	if err != nil {
		t.Fatalf("oldest expired: %v", err)
	}
	if oldest == nil || !oldest.Equal(now.Add(-48*time.Hour)) {
		t.Fatalf("expected oldest expired at %v, got %v", now.Add(-48*time.Hour), oldest)
	}
}
