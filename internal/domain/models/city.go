package models

import (
	"regexp"
	"strings"
)

type City struct {
	ID             string // provider area id
	Name           string
	NormalizedName string
}

func NewCity(id, name string) City {
	return City{
		ID:             id,
		Name:           name,
		NormalizedName: NormalizeCityName(name),
	}
}

var cityNameCleaner = regexp.MustCompile(`[^\wа-щьюяґєії]+`)

// NormalizeCityName folds a user-entered city name so that "Київ",
// "київ " and "Kyiv" variants stored by the provider compare equal.
func NormalizeCityName(name string) string {
	str := strings.ToLower(name)
	str = strings.ReplaceAll(str, "'", "")
	str = strings.ReplaceAll(str, "’", "")
	return cityNameCleaner.ReplaceAllString(str, "")
}
