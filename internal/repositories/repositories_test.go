package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestStorageRepository(t *testing.T) {
	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStorageRepository(db)
		value, ok, err := repo.Get(models.TokenKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected missing key, got %q (ok=%v)", value, ok)
		}
	})

	t.Run("Set and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStorageRepository(db)
		if err := repo.Set(models.TokenKey, "test-token"); err != nil {
			t.Fatalf("failed to set key: %v", err)
		}

		value, ok, err := repo.Get(models.TokenKey)
		if err != nil || !ok {
			t.Fatalf("failed to get key: ok=%v err=%v", ok, err)
		}
		if value != "test-token" {
			t.Errorf("expected test-token, got %s", value)
		}
	})

	t.Run("Set Replaces", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStorageRepository(db)
		if err := repo.Set(models.TokenKey, "old-token"); err != nil {
			t.Fatalf("failed to set key: %v", err)
		}
		if err := repo.Set(models.TokenKey, "new-refreshed-token"); err != nil {
			t.Fatalf("failed to replace key: %v", err)
		}

		value, _, _ := repo.Get(models.TokenKey)
		if value != "new-refreshed-token" {
			t.Errorf("expected replaced value, got %s", value)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM storage").Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 row, got %d", count)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStorageRepository(db)
		if err := repo.Set(models.ThemeKey, "light"); err != nil {
			t.Fatalf("failed to set key: %v", err)
		}
		if err := repo.Remove(models.ThemeKey); err != nil {
			t.Fatalf("failed to remove key: %v", err)
		}
		if _, ok, _ := repo.Get(models.ThemeKey); ok {
			t.Error("key should be gone after Remove")
		}
		if err := repo.Remove(models.ThemeKey); err != nil {
			t.Errorf("removing a missing key should not fail: %v", err)
		}
	})
}

func TestOverrideRepository(t *testing.T) {
	t.Run("Save and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewOverrideRepository(db)
		override := &models.ProjectOverride{ProjectID: "p1", Name: "Landing", Slug: "landing"}
		if err := repo.Save(override); err != nil {
			t.Fatalf("failed to save override: %v", err)
		}
		if override.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set on save")
		}

		got, err := repo.Get("p1")
		if err != nil {
			t.Fatalf("failed to get override: %v", err)
		}
		if got.Name != "Landing" || got.Slug != "landing" {
			t.Errorf("unexpected override: %+v", got)
		}
	})

	t.Run("Save Upserts", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewOverrideRepository(db)
		if err := repo.Save(&models.ProjectOverride{ProjectID: "p1", Name: "One"}); err != nil {
			t.Fatalf("failed to save override: %v", err)
		}
		if err := repo.Save(&models.ProjectOverride{ProjectID: "p1", Name: "Two", Slug: "two"}); err != nil {
			t.Fatalf("failed to update override: %v", err)
		}

		all, err := repo.All()
		if err != nil {
			t.Fatalf("failed to list overrides: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 override, got %d", len(all))
		}
		if all["p1"].Name != "Two" || all["p1"].Slug != "two" {
			t.Errorf("unexpected override: %+v", all["p1"])
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewOverrideRepository(db)
		if err := repo.Save(&models.ProjectOverride{ProjectID: "p1", Name: "One"}); err != nil {
			t.Fatalf("failed to save override: %v", err)
		}
		if err := repo.Delete("p1"); err != nil {
			t.Fatalf("failed to delete override: %v", err)
		}
		if _, err := repo.Get("p1"); err == nil {
			t.Error("expected error when getting deleted override")
		}
	})
}
