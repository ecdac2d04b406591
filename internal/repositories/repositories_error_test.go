package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/shared"
)

func TestRefreshCredentialRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewRefreshCredentialRepository(db)
			if err := repo.Create(models.NewRefreshCredential(0, "", time.Now().Add(time.Hour))); err == nil {
				t.Fatal("expected validation error for empty token")
			}
		})

		t.Run("MissingExpiry", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewRefreshCredentialRepository(db)
			if err := repo.Create(models.NewRefreshCredential(0, "R1", time.Time{})); err == nil {
				t.Fatal("expected validation error for zero expiry")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewRefreshCredentialRepository(db).Get("nonexistent-id")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			cred := models.NewRefreshCredential(0, "R1", time.Now().Add(time.Hour))
			cred.SetID("nonexistent-id")

			if err := NewRefreshCredentialRepository(db).Update(cred); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("AlreadyDeleted", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewRefreshCredentialRepository(db)
			cred := models.NewRefreshCredential(0, "R1", time.Now().Add(time.Hour))
			if err := repo.Create(cred); err != nil {
				t.Fatalf("failed to create credential: %v", err)
			}
			if err := repo.Delete(cred.ID()); err != nil {
				t.Fatalf("failed first delete: %v", err)
			}

			if err := repo.Delete(cred.ID()); err == nil {
				t.Fatal("expected error deleting an already deleted credential")
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		tier := NewRefreshTierAdapter(NewRefreshCredentialRepository(db))
		if _, _, err := tier.Load(); err == nil {
			t.Error("expected Load to fail on a closed database")
		}
		if err := tier.Save("R1", time.Hour); err == nil {
			t.Error("expected Save to fail on a closed database")
		}

		values := NewSessionValueRepository(db)
		if _, _, err := values.Get("accessToken"); err == nil {
			t.Error("expected Get to fail on a closed database")
		}
		if err := values.Set("accessToken", "A1"); err == nil {
			t.Error("expected Set to fail on a closed database")
		}
	})
}
