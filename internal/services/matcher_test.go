package services

import (
	"testing"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func baseListing() models.Listing {
	return models.Listing{
		ExternalID:  771001,
		City:        "Київ",
		Type:        models.Rent,
		PriceUAH:    9000,
		PriceUSD:    220,
		Rooms:       2,
		Area:        55,
		Floor:       4,
		IsRealtor:   false,
		PublishedAt: time.Now(),
	}
}

func baseSearch() models.SavedSearch {
	return models.SavedSearch{
		ID:        1,
		UserID:    100,
		City:      "Київ",
		Type:      models.Rent,
		Currency:  models.UAH,
		PriceMin:  5000,
		PriceMax:  10000,
		Rooms:     "1,2",
		AreaMin:   30,
		AreaMax:   80,
		FloorMin:  2,
		FloorMax:  10,
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
}

func Test_Matches_AllBoundsHold(t *testing.T) {
	assert.True(t, Matches(baseListing(), baseSearch()))
}

func Test_Matches_FlippingAnySingleBoundFails(t *testing.T) {

	cases := []struct {
		name   string
		mutate func(*models.Listing, *models.SavedSearch)
	}{
		{"price below min", func(l *models.Listing, s *models.SavedSearch) { l.PriceUAH = 4999 }},
		{"price above max", func(l *models.Listing, s *models.SavedSearch) { l.PriceUAH = 10001 }},
		{"rooms not selected", func(l *models.Listing, s *models.SavedSearch) { l.Rooms = 3 }},
		{"area below min", func(l *models.Listing, s *models.SavedSearch) { l.Area = 29 }},
		{"area above max", func(l *models.Listing, s *models.SavedSearch) { l.Area = 81 }},
		{"floor below min", func(l *models.Listing, s *models.SavedSearch) { l.Floor = 1 }},
		{"floor above max", func(l *models.Listing, s *models.SavedSearch) { l.Floor = 11 }},
		{"realtor excluded", func(l *models.Listing, s *models.SavedSearch) { s.NoRealtors = true; l.IsRealtor = true }},
		{"wrong city", func(l *models.Listing, s *models.SavedSearch) { l.City = "Львів" }},
		{"wrong listing type", func(l *models.Listing, s *models.SavedSearch) { l.Type = models.Sale }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			listing, search := baseListing(), baseSearch()
			tc.mutate(&listing, &search)
			assert.False(t, Matches(listing, search))
		})
	}
}

func Test_Matches_MissingPriceInSearchCurrencyMeansNoMatch(t *testing.T) {

	listing := baseListing()
	listing.PriceEUR = 0

	search := baseSearch()
	search.Currency = models.EUR
	search.PriceMin = 0
	search.PriceMax = 0

	assert.False(t, Matches(listing, search))
}

func Test_Matches_MaxRoomSelectionMeansThisOrMore(t *testing.T) {

	listing := baseListing()
	listing.Rooms = 6

	search := baseSearch()
	search.Rooms = "4"

	assert.True(t, Matches(listing, search))

	search.Rooms = "3"
	assert.False(t, Matches(listing, search))
}

func Test_Matches_UnboundedMaxPrice(t *testing.T) {

	listing := baseListing()
	listing.PriceUAH = 1000000

	search := baseSearch()
	search.PriceMax = 0

	assert.True(t, Matches(listing, search))
}

func Test_NotificationWorthy_ListingOlderThanSearchNeverNotifies(t *testing.T) {

	listing := baseListing()
	search := baseSearch()
	listing.PublishedAt = search.CreatedAt.Add(-time.Minute)

	assert.True(t, Matches(listing, search))
	assert.False(t, NotificationWorthy(listing, search))

	listing.PublishedAt = search.CreatedAt.Add(time.Minute)
	assert.True(t, NotificationWorthy(listing, search))
}
