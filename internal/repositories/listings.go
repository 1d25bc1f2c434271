package repositories

import (
	"context"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Listings struct {
	db *gorm.DB
}

func NewListingsRepository(db *gorm.DB) *Listings {
	return &Listings{db: db}
}

// Upsert inserts a listing or, when another fetch group already discovered
// the same external id, refreshes its volatile columns. Safe under
// concurrent attempts: the conflict target is the unique external_id index.
func (repo *Listings) Upsert(ctx context.Context, listing *models.Listing) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_uah", "price_usd", "price_eur",
			"rooms", "area", "floor", "is_realtor",
			"photo_urls", "url", "published_at", "last_seen_at", "active",
		}),
	}).Create(listing).Error
}

func (repo *Listings) GetByExternalIDs(ctx context.Context, externalIDs []int64) ([]models.Listing, error) {

	if len(externalIDs) == 0 {
		return nil, nil
	}

	var listings []models.Listing
	if err := repo.db.WithContext(ctx).
		Where("external_id IN ?", externalIDs).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// MarkSeen refreshes last-seen for listings rediscovered by a fetch cycle.
func (repo *Listings) MarkSeen(ctx context.Context, externalIDs []int64, seenAt time.Time) error {

	if len(externalIDs) == 0 {
		return nil
	}

	return repo.db.WithContext(ctx).Model(&models.Listing{}).
		Where("external_id IN ?", externalIDs).
		Updates(map[string]any{"last_seen_at": seenAt, "active": true}).Error
}

func (repo *Listings) DeactivateStale(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Model(&models.Listing{}).
		Where("active = ? AND last_seen_at < ?", true, lastSeenBefore).
		Update("active", false)
	return res.RowsAffected, res.Error
}
