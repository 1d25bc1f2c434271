package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type staleListingRepository interface {
	DeactivateStale(ctx context.Context, lastSeenBefore time.Time) (int64, error)
}

type oldMarkerRepository interface {
	RemoveOld(ctx context.Context, createdBefore time.Time) (int64, error)
}

// Cleaner retires listings the provider stopped returning and prunes sent
// markers past their retention window, once a day.
type Cleaner struct {
	listings              staleListingRepository
	markers               oldMarkerRepository
	cron                  *cron.Cron
	listingExpirationDays int
	markerRetentionDays   int
}

func NewCleaner(listings staleListingRepository, markers oldMarkerRepository,
	listingExpirationDays, markerRetentionDays int) (*Cleaner, error) {

	if listingExpirationDays <= 0 || markerRetentionDays <= 0 {
		return nil, errors.New("expiration days must be greater than zero")
	}

	c := &Cleaner{
		listings:              listings,
		markers:               markers,
		cron:                  cron.New(),
		listingExpirationDays: listingExpirationDays,
		markerRetentionDays:   markerRetentionDays,
	}

	_, err := c.cron.AddFunc("0 0 * * *", c.clean)
	if err != nil {
		return nil, err
	}

	c.cron.Start()
	log.Infof("cleaner started, listing expiration: %d days, marker retention: %d days",
		listingExpirationDays, markerRetentionDays)
	return c, nil
}

func (c *Cleaner) Stop() {
	c.cron.Stop()
}

func (c *Cleaner) clean() {

	listingCutoff := time.Now().AddDate(0, 0, -c.listingExpirationDays)
	deactivated, err := c.listings.DeactivateStale(context.Background(), listingCutoff)
	if err != nil {
		log.Errorf("failed to deactivate stale listings: %v", err)
	} else {
		log.Infof("deactivated %v stale listings", deactivated)
	}

	markerCutoff := time.Now().AddDate(0, 0, -c.markerRetentionDays)
	removed, err := c.markers.RemoveOld(context.Background(), markerCutoff)
	if err != nil {
		log.Errorf("failed to remove old sent markers: %v", err)
	} else {
		log.Infof("removed %v old sent markers", removed)
	}
}
