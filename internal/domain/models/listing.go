package models

import (
	"strings"
	"time"
)

type Listing struct {
	ID          int
	ExternalID  int64 `gorm:"uniqueIndex"`
	City        string
	Type        ListingType
	PriceUAH    float64
	PriceUSD    float64
	PriceEUR    float64
	Rooms       int
	Area        float64
	Floor       int
	IsRealtor   bool
	PhotoURLs   string // comma-separated
	URL         string
	PublishedAt time.Time
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Active      bool
}

// PriceIn returns the listing price in the given currency. A zero stored
// value means the upstream ad did not quote that currency at all.
func (l *Listing) PriceIn(currency Currency) (float64, bool) {
	var price float64
	switch currency {
	case UAH:
		price = l.PriceUAH
	case USD:
		price = l.PriceUSD
	case EUR:
		price = l.PriceEUR
	}
	return price, price > 0
}

func (l *Listing) FirstPhotoURL() string {
	if l.PhotoURLs == "" {
		return ""
	}
	return strings.SplitN(l.PhotoURLs, ",", 2)[0]
}

func (l *Listing) PhotoCount() int {
	if l.PhotoURLs == "" {
		return 0
	}
	return strings.Count(l.PhotoURLs, ",") + 1
}
