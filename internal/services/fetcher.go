package services

import (
	"context"
	"strings"
	"time"

	"github.com/flatwatch/realty-bot/internal/clients/realty"
	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/logger"
	"github.com/flatwatch/realty-bot/internal/metrics"
	"github.com/flatwatch/realty-bot/internal/resilience"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type listingsClient interface {
	Search(params realty.SearchParameters) ([]realty.ListingPreview, error)
	GetListing(id int64) (realty.Listing, error)
}

type cityResolver interface {
	GetIdByName(ctx context.Context, name string) (string, error)
}

type listingStore interface {
	Upsert(ctx context.Context, listing *models.Listing) error
	GetByExternalIDs(ctx context.Context, externalIDs []int64) ([]models.Listing, error)
	MarkSeen(ctx context.Context, externalIDs []int64, seenAt time.Time) error
}

type watermarkStore interface {
	Get(ctx context.Context, city string) (time.Time, error)
	Set(ctx context.Context, city string, fetchedAt time.Time) error
}

// GroupResult is what one fetch unit reports back to the coordinator. A
// failed unit reports a zero result; it never fails the cycle.
type GroupResult struct {
	Found   int
	Stored  int
	Matches models.MatchSet
}

// Fetcher runs one fetch group end to end: search per currency partition,
// dedup against storage, detail-fetch new listings in paced batches, upsert,
// evaluate every search in the group, advance the city watermark.
type Fetcher struct {
	client     listingsClient
	cities     cityResolver
	listings   listingStore
	watermarks watermarkStore

	pageSize    int
	batchSize   int
	batchDelay  time.Duration
	minPhotos   int
	firstRunLag time.Duration
}

type FetcherOptions struct {
	DetailBatchSize  int
	DetailBatchDelay time.Duration
	MinPhotos        int
}

func NewFetcher(client listingsClient, cities cityResolver, listings listingStore,
	watermarks watermarkStore, opts FetcherOptions) *Fetcher {

	if opts.DetailBatchSize <= 0 {
		opts.DetailBatchSize = 10
	}

	return &Fetcher{
		client:      client,
		cities:      cities,
		listings:    listings,
		watermarks:  watermarks,
		pageSize:    50,
		batchSize:   opts.DetailBatchSize,
		batchDelay:  opts.DetailBatchDelay,
		minPhotos:   opts.MinPhotos,
		firstRunLag: 24 * time.Hour,
	}
}

// FetchGroup never returns an error: any failure is logged and yields a zero
// result so the cycle's other groups are unaffected, and the group is simply
// retried on the next scheduled cycle.
func (f *Fetcher) FetchGroup(ctx context.Context, group FetchGroup) GroupResult {

	empty := GroupResult{Matches: models.MatchSet{}}

	cityID, err := f.cities.GetIdByName(ctx, group.Key.City)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to resolve city %q: %v", group.Key.City, err)
		return empty
	}
	if cityID == "" {
		log.Warnf("skipping group %v/%v: city has no provider mapping", group.Key.City, group.Key.Type)
		return empty
	}

	fetchStart := time.Now()

	since, err := f.watermarks.Get(ctx, group.Key.City)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load watermark for %q: %v", group.Key.City, err)
		return empty
	}
	if since.IsZero() {
		since = fetchStart.Add(-f.firstRunLag)
	}

	externalIDs, err := f.searchPartitions(ctx, cityID, group, since)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtyApi).
			Errorf("group %v/%v search failed: %v", group.Key.City, group.Key.Type, err)
		return empty
	}

	result := GroupResult{Found: len(externalIDs), Matches: models.MatchSet{}}

	known, err := f.listings.GetByExternalIDs(ctx, externalIDs)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("group %v/%v dedup lookup failed: %v", group.Key.City, group.Key.Type, err)
		return empty
	}

	knownIDs := make([]int64, 0, len(known))
	knownSet := make(map[int64]struct{}, len(known))
	for _, listing := range known {
		knownIDs = append(knownIDs, listing.ExternalID)
		knownSet[listing.ExternalID] = struct{}{}
	}

	if err = f.listings.MarkSeen(ctx, knownIDs, fetchStart); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("group %v/%v mark seen failed: %v", group.Key.City, group.Key.Type, err)
	}

	var newIDs []int64
	for _, id := range externalIDs {
		if _, ok := knownSet[id]; !ok {
			newIDs = append(newIDs, id)
		}
	}

	stored := f.fetchAndStoreDetails(ctx, group, newIDs)
	result.Stored = len(stored)

	for _, listing := range append(known, stored...) {
		for _, search := range group.Searches {
			if NotificationWorthy(listing, search) {
				result.Matches.Add(listing.ExternalID, search)
			}
		}
	}

	// advance even when nothing new was found, so the next cycle never
	// re-scans a period already covered
	if err = f.watermarks.Set(ctx, group.Key.City, fetchStart); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to advance watermark for %q: %v", group.Key.City, err)
	}

	return result
}

// searchPartitions issues one paginated search per currency partition and
// unions the returned ids: the same listing satisfying several currency
// partitions must be processed once.
func (f *Fetcher) searchPartitions(ctx context.Context, cityID string,
	group FetchGroup, since time.Time) ([]int64, error) {

	seen := map[int64]struct{}{}
	var ids []int64

	for _, partition := range group.Partitions {
		for page := 0; ; page++ {

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			params := realty.SearchParameters{
				CityID:        cityID,
				Type:          group.Key.Type,
				Currency:      partition.Currency,
				PriceMin:      partition.PriceMin,
				PriceMax:      partition.PriceMax,
				Rooms:         group.Rooms,
				PublishedFrom: since,
				MinPhotos:     f.minPhotos,
				Page:          page,
				PerPage:       f.pageSize,
			}

			start := time.Now()
			previews, err := f.client.Search(params)
			metrics.GroupFetchDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())

			if err != nil {
				if errors.Is(err, realty.ErrTooDeepPagination) {
					log.Warnf("too deep pagination for group %v/%v, page %d",
						group.Key.City, group.Key.Type, page)
					break
				}
				return nil, err
			}
			if len(previews) == 0 {
				break
			}

			for _, preview := range previews {
				if _, ok := seen[preview.ID]; !ok {
					seen[preview.ID] = struct{}{}
					ids = append(ids, preview.ID)
				}
			}
		}
	}

	return ids, nil
}

// fetchAndStoreDetails pulls full records for new ids in bounded batches
// with a small pause in between, respecting provider pacing. A single bad
// record is skipped; an open circuit aborts the remainder of the batch.
func (f *Fetcher) fetchAndStoreDetails(ctx context.Context, group FetchGroup, newIDs []int64) []models.Listing {

	var stored []models.Listing
	now := time.Now()

	for batchStart := 0; batchStart < len(newIDs); batchStart += f.batchSize {

		if batchStart > 0 && f.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return stored
			case <-time.After(f.batchDelay):
			}
		}

		batchEnd := batchStart + f.batchSize
		if batchEnd > len(newIDs) {
			batchEnd = len(newIDs)
		}

		for _, id := range newIDs[batchStart:batchEnd] {

			start := time.Now()
			record, err := f.client.GetListing(id)
			metrics.GroupFetchDuration.WithLabelValues("details").Observe(time.Since(start).Seconds())

			if err != nil {
				if errors.Is(err, resilience.ErrCircuitOpen) {
					log.Warnf("circuit open, aborting detail fetch for group %v/%v",
						group.Key.City, group.Key.Type)
					return stored
				}
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtyApi).
					Errorf("failed to get listing %d: %v", id, err)
				continue
			}

			listing, err := mapListing(record, group.Key, now)
			if err != nil {
				log.Warnf("skipping listing %d: %v", id, err)
				continue
			}

			if err = f.listings.Upsert(ctx, &listing); err != nil {
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
					Errorf("failed to upsert listing %d: %v", id, err)
				continue
			}

			stored = append(stored, listing)
			metrics.ListingsStoredCounter.Inc()
		}
	}

	return stored
}

func mapListing(record realty.Listing, key GroupKey, seenAt time.Time) (models.Listing, error) {

	if record.ID == 0 {
		return models.Listing{}, errors.New("record has no id")
	}
	if record.PublishedAt.IsZero() {
		return models.Listing{}, errors.New("record has no publication time")
	}

	listingType, err := models.ToListingType(record.Type)
	if err != nil {
		return models.Listing{}, errors.Wrapf(err, "listing %d", record.ID)
	}

	return models.Listing{
		ExternalID:  record.ID,
		City:        key.City,
		Type:        listingType,
		PriceUAH:    record.Prices[string(models.UAH)],
		PriceUSD:    record.Prices[string(models.USD)],
		PriceEUR:    record.Prices[string(models.EUR)],
		Rooms:       record.Rooms,
		Area:        record.Area,
		Floor:       record.Floor,
		IsRealtor:   record.IsAgency,
		PhotoURLs:   strings.Join(record.Photos, ","),
		URL:         record.URL,
		PublishedAt: record.PublishedAt.Time,
		FirstSeenAt: seenAt,
		LastSeenAt:  seenAt,
		Active:      true,
	}, nil
}

