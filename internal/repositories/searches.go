package repositories

import (
	"context"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"gorm.io/gorm"
)

type Searches struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) *Searches {
	return &Searches{db: db}
}

func (repo *Searches) Add(ctx context.Context, search models.SavedSearch) error {
	return repo.db.WithContext(ctx).Create(&search).Error
}

func (repo *Searches) GetByUser(ctx context.Context, userID int64) ([]models.SavedSearch, error) {

	var searches []models.SavedSearch
	if err := repo.db.WithContext(ctx).Find(&searches, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return searches, nil
}

func (repo *Searches) GetByID(ctx context.Context, ID int) (*models.SavedSearch, error) {

	var search models.SavedSearch
	if err := repo.db.WithContext(ctx).Find(&search, "id = ?", ID).Error; err != nil {
		return nil, err
	}
	return &search, nil
}

// GetActive pages through searches eligible for fetching: active and owned
// by someone. Disabled notifications do not exclude a search here; its
// matches still refresh listings, they just never reach the dispatcher.
func (repo *Searches) GetActive(ctx context.Context, limit int, offset int) ([]models.SavedSearch, error) {

	var searches []models.SavedSearch
	if err := repo.db.WithContext(ctx).
		Where("active = ?", true).
		Limit(limit).
		Offset(offset).
		Find(&searches).Error; err != nil {
		return nil, err
	}
	return searches, nil
}

func (repo *Searches) Update(ctx context.Context, search models.SavedSearch) error {
	return repo.db.WithContext(ctx).Model(&models.SavedSearch{}).Where("id = ?", search.ID).Updates(search).Error
}

func (repo *Searches) Remove(ctx context.Context, searchID int) error {
	return repo.db.WithContext(ctx).Delete(&models.SavedSearch{ID: searchID}).Error
}
