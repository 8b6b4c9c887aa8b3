package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Morgoth-Ryuk/hw05-final/models"
	"github.com/Morgoth-Ryuk/hw05-final/utils"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "controllers.sqlite3")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := utils.Sugar
	utils.Sugar = zap.New(core).Sugar()
	t.Cleanup(func() { utils.Sugar = prev })
	return logs
}

var errDiskFull = errors.New("disk full")

func TestEnsureUniqueUsername(t *testing.T) {
	db := openTestDB(t)
	a := NewAuthController(db)
	if err := db.Create(&models.User{Username: "leo"}).Error; err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		base, want string
	}{
		{"anna", "anna"},
		{"leo", "leo_1"},
		{"Leo Tolstoy", "Leo_Tolstoy"},
		{"x", "github_42"},
	}
	for _, tc := range cases {
		got, err := a.ensureUniqueUsername(db, tc.base, "github", "42")
		if err != nil {
			t.Fatalf("%q: %v", tc.base, err)
		}
		if got != tc.want {
			t.Errorf("ensureUniqueUsername(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

// failCounts makes every Count query on db fail.
func failCounts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Query().Before("gorm:query").Register("test:fail_count", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*int64); ok {
			_ = tx.AddError(errDiskFull)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEnsureUniqueUsernameReportsLookupFailure(t *testing.T) {
	db := openTestDB(t)
	failCounts(t, db)

	name, err := NewAuthController(db).ensureUniqueUsername(db, "anna", "github", "42")
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected the lookup error, got name=%q err=%v", name, err)
	}
}

func TestOAuthSignupStopsWhenUsernameCheckFails(t *testing.T) {
	db := openTestDB(t)
	failCounts(t, db)

	user, err := NewAuthController(db).findOrCreateOAuthUser(context.Background(), "github", &oauthUser{ID: "42", Username: "anna"})
	if !errors.Is(err, errDiskFull) || user != nil {
		t.Fatalf("expected the lookup error, got user=%v err=%v", user, err)
	}
	var n int64
	db.Callback().Query().Remove("test:fail_count")
	db.Model(&models.User{}).Count(&n)
	if n != 0 {
		t.Errorf("no user should be created, found %d", n)
	}
}

func TestOAuthLoginRefreshesProfile(t *testing.T) {
	db := openTestDB(t)
	a := NewAuthController(db)
	existing := models.User{Username: "anna", Provider: "github", ProviderID: "42", Email: "old@example.com"}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatal(err)
	}

	user, err := a.findOrCreateOAuthUser(context.Background(), "github", &oauthUser{ID: "42", Username: "anna", Email: " new@example.com ", AvatarURL: "https://avatars.example.com/42"})
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != existing.ID {
		t.Fatalf("expected the existing user, got id %d", user.ID)
	}
	var stored models.User
	db.First(&stored, existing.ID)
	if stored.Email != "new@example.com" || stored.AvatarURL != "https://avatars.example.com/42" {
		t.Errorf("profile not refreshed: %+v", stored)
	}
}

func TestOAuthLoginLogsFailedProfileRefresh(t *testing.T) {
	db := openTestDB(t)
	logs := observeLogs(t)
	existing := models.User{Username: "anna", Provider: "github", ProviderID: "42"}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatal(err)
	}
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errDiskFull)
	})
	if err != nil {
		t.Fatal(err)
	}

	user, err := NewAuthController(db).findOrCreateOAuthUser(context.Background(), "github", &oauthUser{ID: "42", Email: "new@example.com"})
	if err != nil || user == nil || user.ID != existing.ID {
		t.Fatalf("login should still succeed, got user=%v err=%v", user, err)
	}

	warned := false
	for _, entry := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		if strings.Contains(entry.Message, "refresh oauth profile") && strings.Contains(entry.Message, "disk full") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("failed refresh was not logged: %v", logs.All())
	}
}
