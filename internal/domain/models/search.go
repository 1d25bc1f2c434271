package models

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type ListingType string

const (
	Rent ListingType = "rent"
	Sale ListingType = "sale"
)

func ToListingType(s string) (ListingType, error) {
	switch s {
	case string(Rent):
		return Rent, nil
	case string(Sale):
		return Sale, nil
	default:
		return "", errors.New("invalid listing type")
	}
}

type Currency string

const (
	UAH Currency = "UAH"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

func ToCurrency(s string) (Currency, error) {
	switch strings.ToUpper(s) {
	case string(UAH):
		return UAH, nil
	case string(USD):
		return USD, nil
	case string(EUR):
		return EUR, nil
	default:
		return "", errors.New("invalid currency")
	}
}

// MaxSelectableRooms is the largest room count a search can pick;
// picking it means "this many rooms or more".
const MaxSelectableRooms = 4

type SavedSearch struct {
	ID                   int
	UserID               int64
	City                 string
	Type                 ListingType
	Currency             Currency
	PriceMin             float64
	PriceMax             float64 // 0 means unbounded
	Rooms                string  // comma-separated selection, e.g. "1,2"
	AreaMin              float64
	AreaMax              float64
	FloorMin             int
	FloorMax             int
	NoRealtors           bool
	Active               bool
	NotificationsEnabled bool
	CreatedAt            time.Time
}

func NewSavedSearch(
	userID int64,
	city string,
	listingType ListingType,
	currency Currency,
	priceMin, priceMax float64,
	rooms []int,
) *SavedSearch {

	roomsAsStr := lo.Map(rooms, func(item int, _ int) string {
		return strconv.Itoa(item)
	})
	return &SavedSearch{
		UserID:               userID,
		City:                 city,
		Type:                 listingType,
		Currency:             currency,
		PriceMin:             priceMin,
		PriceMax:             priceMax,
		Rooms:                strings.Join(roomsAsStr, ","),
		Active:               true,
		NotificationsEnabled: true,
	}
}

func (s *SavedSearch) RoomsAsArray() []int {
	if s.Rooms == "" {
		return []int{}
	}

	rooms := lo.Map(strings.Split(s.Rooms, ","), func(item string, _ int) int {
		count, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			log.Errorf("invalid room count %q in search %v", item, s.ID)
		}
		return count
	})
	sort.Ints(rooms)
	return rooms
}

// WantsRooms reports whether the search accepts a listing with the given
// room count. An empty selection accepts any count; the maximum selectable
// value accepts that count and everything above it.
func (s *SavedSearch) WantsRooms(count int) bool {
	rooms := s.RoomsAsArray()
	if len(rooms) == 0 {
		return true
	}
	for _, r := range rooms {
		if count == r {
			return true
		}
		if r == MaxSelectableRooms && count >= MaxSelectableRooms {
			return true
		}
	}
	return false
}
