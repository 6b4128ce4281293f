package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/project/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func newTestRepo(t *testing.T) (domain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:projects_repo_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Project{}, &domain.ProjectToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return Provide(), db, node
}

func insertProject(t *testing.T, repo domain.Repository, db *gorm.DB, node *snowflake.Node, token string, now time.Time) *domain.Project {
	t.Helper()
	change := domain.Change{Token: token, ThumbnailURL: "u", CreatedAt: now}
	p := &domain.Project{
		ID:             node.Generate(),
		Tenant:         "kleineprints",
		CustomerID:     "cust1",
		Current:        datatypes.NewJSONType(change),
		Changes:        datatypes.NewJSONSlice([]domain.Change{change}),
		CreatedAt:      now,
		UpdatedAt:      now,
		AvailableUntil: now.Add(30 * 24 * time.Hour),
	}
	if err := repo.Insert(context.Background(), db, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.ClaimToken(context.Background(), db, token, p.ID, now); err != nil {
		t.Fatalf("claim token: %v", err)
	}
	return p
}

func TestUpdateGuardedDetectsStaleRead(t *testing.T) {
	repo, db, node := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := insertProject(t, repo, db, node, "tok1", now)

	// First writer wins.
	rows, err := repo.UpdateGuarded(ctx, db, p.ID, p.UpdatedAt, map[string]any{
		"name":       "first",
		"updated_at": now.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row modified, got %d", rows)
	}

	// Second writer still holds the old updated_at and must not match.
	rows, err = repo.UpdateGuarded(ctx, db, p.ID, p.UpdatedAt, map[string]any{
		"name":       "second",
		"updated_at": now.Add(2 * time.Second),
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if rows != 0 {
		t.Fatalf("stale update must modify 0 rows, got %d", rows)
	}

	stored, err := repo.FindByID(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Name != "first" {
		t.Fatalf("expected first write to stick, got %q", stored.Name)
	}
}

func TestClaimTokenEnforcesUniqueness(t *testing.T) {
	repo, db, node := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := insertProject(t, repo, db, node, "tok1", now)

	err := repo.ClaimToken(ctx, db, "tok1", node.Generate(), now)
	if err == nil {
		t.Fatal("expected duplicate token claim to fail")
	}

	found, err := repo.FindByToken(ctx, db, "kleineprints", "tok1")
	if err != nil {
		t.Fatalf("find by token: %v", err)
	}
	if found == nil || found.ID != p.ID {
		t.Fatalf("token must still resolve to the original project, got %+v", found)
	}
}

func TestFindByTokenIsTenantScoped(t *testing.T) {
	repo, db, node := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := insertProject(t, repo, db, node, "tok1", now)

	found, err := repo.FindByToken(ctx, db, "kleineprints", "tok1")
	if err != nil {
		t.Fatalf("find by token: %v", err)
	}
	if found == nil || found.ID != p.ID {
		t.Fatalf("owning tenant must resolve its token, got %+v", found)
	}

	foreign, err := repo.FindByToken(ctx, db, "pokal-total", "tok1")
	if err != nil {
		t.Fatalf("foreign lookup: %v", err)
	}
	if foreign != nil {
		t.Fatalf("another tenant must not resolve the token, got %+v", foreign)
	}
}

func TestMarkDeletedGuards(t *testing.T) {
	repo, db, node := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := insertProject(t, repo, db, node, "tok1", now)

	rows, err := repo.MarkDeleted(ctx, db, p.ID, "someone-else", now)
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if rows != 0 {
		t.Fatalf("foreign customer must not delete, got %d rows", rows)
	}

	rows, err = repo.MarkDeleted(ctx, db, p.ID, "cust1", now)
	if err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d", rows)
	}

	rows, err = repo.MarkDeleted(ctx, db, p.ID, "cust1", now)
	if err != nil {
		t.Fatalf("repeat mark deleted: %v", err)
	}
	if rows != 0 {
		t.Fatalf("delete must be one-way, got %d rows", rows)
	}
}
