package repositories

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type cityRepository interface {
	GetIdByName(ctx context.Context, name string) (string, error)
}

type CachedCities struct {
	repo  cityRepository
	cache *gocache.Cache
}

func NewCachedCities(repo cityRepository) *CachedCities {
	return &CachedCities{repo: repo, cache: gocache.New(10*time.Minute, 20*time.Minute)}
}

func (c CachedCities) GetIdByName(ctx context.Context, name string) (string, error) {
	if value, found := c.cache.Get(name); found {
		return value.(string), nil
	}

	id, err := c.repo.GetIdByName(ctx, name)
	if id != "" {
		if err = c.cache.Add(name, id, gocache.DefaultExpiration); err != nil {
			return id, err
		}
	}

	return id, err
}
