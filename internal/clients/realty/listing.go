package realty

import (
	"encoding/json"
	"fmt"
	"time"
)

type ListingPreview struct {
	ID          int64      `json:"id"`
	PublishedAt CustomTime `json:"published_at"`
}

type Listing struct {
	ListingPreview
	CityID   string             `json:"city_id"`
	Type     string             `json:"type"`
	Prices   map[string]float64 `json:"prices"` // currency code -> amount
	Rooms    int                `json:"rooms"`
	Area     float64            `json:"area_total"`
	Floor    int                `json:"floor"`
	IsAgency bool               `json:"is_agency"`
	Photos   []string           `json:"photos"`
	URL      string             `json:"url"`
}

type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CustomTime struct {
	time.Time
}

func (dt *CustomTime) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}

	t, err := time.Parse("2006-01-02T15:04:05-0700", str)
	if err != nil {
		return fmt.Errorf("parsing time %s: %v", str, err)
	}
	dt.Time = t
	return nil
}
