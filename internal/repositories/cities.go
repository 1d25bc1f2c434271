package repositories

import (
	"context"

	"github.com/flatwatch/realty-bot/internal/clients/realty"
	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type cityListProvider interface {
	GetCities() ([]realty.City, error)
}

type Cities struct {
	db *gorm.DB
}

func NewCitiesRepository(db *gorm.DB) *Cities {
	return &Cities{db: db}
}

// GetIdByName resolves a user-entered city name to the provider's area id.
// Returns an empty id when the city is unknown.
func (repo *Cities) GetIdByName(ctx context.Context, name string) (string, error) {
	var city models.City
	err := repo.db.WithContext(ctx).
		First(&city, "normalized_name = ?", models.NormalizeCityName(name)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return city.ID, nil
}

// PopulateFrom seeds the city table from the provider on first run.
func (repo *Cities) PopulateFrom(provider cityListProvider) error {

	var count int64
	if err := repo.db.Model(models.City{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "failed to count cities")
	}
	if count > 0 {
		return nil
	}

	providerCities, err := provider.GetCities()
	if err != nil {
		return errors.Wrap(err, "failed to get cities from provider")
	}

	var cities []models.City
	for _, city := range providerCities {
		cities = append(cities, models.NewCity(city.ID, city.Name))
	}

	if len(cities) == 0 {
		return errors.New("provider returned no cities")
	}

	if err = repo.db.Create(cities).Error; err != nil {
		return errors.Wrap(err, "failed to create cities in the database")
	}
	return nil
}
