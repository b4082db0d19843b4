package wardrobe

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dressing-intelligent/wardrobe-backend/pkg/db/models"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/enums"
)

func setupItemsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	clothingItems := `
CREATE TABLE IF NOT EXISTS clothing_items (
  id TEXT PRIMARY KEY,
  profile_id TEXT NOT NULL,
  category TEXT NOT NULL,
  color TEXT NOT NULL,
  original_key TEXT NOT NULL,
  processed_key TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(clothingItems).Error)
	return db
}

func seedItem(t *testing.T, db *gorm.DB, profileID uuid.UUID, category enums.Category, createdAt time.Time) *models.ClothingItem {
	t.Helper()

	processed := "wardrobe/" + profileID.String() + "/processed.png"
	item := &models.ClothingItem{
		ID:           uuid.New(),
		ProfileID:    profileID,
		Category:     category,
		Color:        enums.ColorNoir,
		OriginalKey:  "wardrobe/" + profileID.String() + "/original.jpg",
		ProcessedKey: &processed,
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepositoryListByProfileNewestFirst(t *testing.T) {
	db := setupItemsTestDB(t)
	repo := NewRepository(db)
	profileID := uuid.New()

	old := seedItem(t, db, profileID, enums.CategoryHaut, time.Now().Add(-time.Hour))
	recent := seedItem(t, db, profileID, enums.CategoryRobe, time.Now())
	seedItem(t, db, uuid.New(), enums.CategoryVeste, time.Now())

	items, err := repo.ListByProfile(context.Background(), profileID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, recent.ID, items[0].ID)
	assert.Equal(t, old.ID, items[1].ID)
}

func TestRepositoryUpdateOnlyTouchesMutableFields(t *testing.T) {
	db := setupItemsTestDB(t)
	repo := NewRepository(db)
	profileID := uuid.New()

	item := seedItem(t, db, profileID, enums.CategoryHaut, time.Now())
	item.Category = enums.CategoryVeste
	item.Color = enums.ColorBleu
	item.OriginalKey = "should-not-change"

	require.NoError(t, repo.Update(context.Background(), item))

	stored, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryVeste, stored.Category)
	assert.Equal(t, enums.ColorBleu, stored.Color)
	assert.NotEqual(t, "should-not-change", stored.OriginalKey)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupItemsTestDB(t)
	repo := NewRepository(db)
	profileID := uuid.New()

	item := seedItem(t, db, profileID, enums.CategoryHaut, time.Now())
	require.NoError(t, repo.Delete(context.Background(), item.ID))

	_, err := repo.FindByID(context.Background(), item.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
