package realty

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/pkg/errors"
)

var ErrTooDeepPagination = errors.New("too deep pagination")

type SearchParameters struct {
	CityID        string
	Type          models.ListingType
	Currency      models.Currency
	PriceMin      float64
	PriceMax      float64 // 0 means no upper bound
	Rooms         []int
	PublishedFrom time.Time
	MinPhotos     int
	Page          int
	PerPage       int
}

func (s SearchParameters) Validate() error {

	if s.CityID == "" {
		return fmt.Errorf("city id is required")
	}

	if s.PriceMax != 0 && s.PriceMin > s.PriceMax {
		return fmt.Errorf("price min %v exceeds price max %v", s.PriceMin, s.PriceMax)
	}

	if s.Page < 0 {
		return fmt.Errorf("page must be non-negative")
	}

	if s.PerPage < 0 || s.PerPage > 100 {
		return fmt.Errorf("per page must be between 0 and 100")
	}

	maxResults := 2000
	if s.PerPage > 0 && s.Page >= maxResults/s.PerPage {
		return ErrTooDeepPagination
	}

	return nil
}

func (s SearchParameters) ToUrlParams() url.Values {

	params := url.Values{}
	params.Add("city", s.CityID)
	params.Add("type", string(s.Type))
	params.Add("currency", string(s.Currency))

	if s.PriceMin > 0 {
		params.Add("price_min", strconv.FormatFloat(s.PriceMin, 'f', -1, 64))
	}
	if s.PriceMax > 0 {
		params.Add("price_max", strconv.FormatFloat(s.PriceMax, 'f', -1, 64))
	}

	for _, rooms := range s.Rooms {
		params.Add("rooms", strconv.Itoa(rooms))
	}

	if s.MinPhotos > 0 {
		params.Add("min_photos", strconv.Itoa(s.MinPhotos))
	}

	if !s.PublishedFrom.IsZero() {
		params.Add("published_from", s.PublishedFrom.Format("2006-01-02T15:04:05-0700"))
	}

	params.Add("sort", "published_desc")
	params.Add("page", strconv.Itoa(s.Page))
	params.Add("per_page", strconv.Itoa(s.PerPage))

	return params
}
