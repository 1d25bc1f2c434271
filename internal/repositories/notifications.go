package repositories

import (
	"context"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Notifications struct {
	db *gorm.DB
}

func NewNotificationsRepository(db *gorm.DB) *Notifications {
	return &Notifications{db: db}
}

func (repo *Notifications) WasSent(ctx context.Context, searchID int, listingID int64) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&models.SentNotification{}).
		Where("search_id = ? AND listing_id = ?", searchID, listingID).
		Count(&count).Error
	return count > 0, err
}

// Record writes the idempotence marker for a delivered notification. A
// duplicate pair is silently ignored, so concurrent delivery attempts
// cannot produce two markers.
func (repo *Notifications) Record(ctx context.Context, searchID int, listingID int64) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "search_id"}, {Name: "listing_id"}},
		DoNothing: true,
	}).Create(&models.SentNotification{
		SearchID:  searchID,
		ListingID: listingID,
		CreatedAt: time.Now(),
	}).Error
}

func (repo *Notifications) RemoveOld(ctx context.Context, createdBefore time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.SentNotification{}, "created_at < ?", createdBefore)
	return res.RowsAffected, res.Error
}
