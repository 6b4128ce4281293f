package importer

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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func newTestImporter(t *testing.T) (*Importer, *gorm.DB, time.Time) {
	t.Helper()

	dsn := fmt.Sprintf("file:importer_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&LegacyTemplate{}, &projectdomain.Project{}, &projectdomain.ProjectToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	imp := NewImporter(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.Fixed{Instant: now},
		Repo:  repository.Provide(),
	})
	return imp, db, now
}

func seedTemplate(t *testing.T, db *gorm.DB, token string, deleted, copied bool, availableUntil time.Time) {
	t.Helper()
	created := availableUntil.Add(-30 * 24 * time.Hour)
	tmpl := LegacyTemplate{
		SaveToken:      token,
		ThumbnailURL:   "https://cdn.example.com/" + token + ".png",
		VariantID:      "v1",
		CustomerID:     "cust1",
		ProductID:      "p1",
		ProductName:    "Mug",
		ProductHandle:  "mug",
		Deleted:        deleted,
		Copied:         copied,
		CreatedAt:      &created,
		AvailableUntil: &availableUntil,
	}
	if err := db.Create(&tmpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
}

func TestRunMigratesLiveTemplates(t *testing.T) {
	imp, db, now := newTestImporter(t)

	seedTemplate(t, db, "tok1", false, false, now.Add(24*time.Hour))
	seedTemplate(t, db, "tok2", false, false, now.Add(48*time.Hour))
	seedTemplate(t, db, "tok-deleted", true, false, now.Add(24*time.Hour))
	seedTemplate(t, db, "tok-copied", false, true, now.Add(24*time.Hour))
	seedTemplate(t, db, "tok-expired", false, false, now.Add(-time.Hour))

	report, err := imp.Run(context.Background(), "kleineprints")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Total != 2 || report.Migrated != 2 || report.Skipped != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	var projects []projectdomain.Project
	if err := db.Find(&projects).Error; err != nil {
		t.Fatalf("read projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	for _, p := range projects {
		if p.Tool != "old_printess_save" || p.Source != "shopify" {
			t.Fatalf("unexpected tool/source on %+v", p)
		}
		if len(p.Changes) != 1 {
			t.Fatalf("expected single-change history, got %d", len(p.Changes))
		}
		if p.Current.Data().Token != p.Changes[0].Token {
			t.Fatal("current must mirror the imported change")
		}
	}
}

func TestRunSkipsAlreadyImportedTokens(t *testing.T) {
	imp, db, now := newTestImporter(t)

	seedTemplate(t, db, "tok1", false, false, now.Add(24*time.Hour))

	if _, err := imp.Run(context.Background(), "kleineprints"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := imp.Run(context.Background(), "kleineprints")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.Migrated != 0 || report.Skipped != 1 {
		t.Fatalf("second run must skip imported tokens, got %+v", report)
	}

	var count int64
	if err := db.Model(&projectdomain.Project{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 project after re-run, got %d", count)
	}
}
