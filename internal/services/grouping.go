package services

import (
	"sort"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/samber/lo"
)

// GroupKey identifies one fetch unit. Currency deliberately stays out of the
// key: price ranges from different currencies must never be merged, so they
// live in typed sub-partitions inside the group instead.
type GroupKey struct {
	City string
	Type models.ListingType
}

// CurrencyPartition carries the widest price range that covers every member
// search quoting this currency. Over-fetching is fine; the per-search
// predicate rejects over-broad matches later.
type CurrencyPartition struct {
	Currency models.Currency
	PriceMin float64
	PriceMax float64 // 0 means unbounded above
	Searches []models.SavedSearch
}

type FetchGroup struct {
	Key        GroupKey
	Partitions []CurrencyPartition
	Rooms      []int // union across the group; nil means no room filter
	Searches   []models.SavedSearch
}

// BuildGroups partitions active searches into fetch groups keyed by
// (city, listing type), sub-partitioned by currency.
func BuildGroups(searches []models.SavedSearch) []FetchGroup {

	byKey := lo.GroupBy(searches, func(s models.SavedSearch) GroupKey {
		return GroupKey{City: s.City, Type: s.Type}
	})

	groups := make([]FetchGroup, 0, len(byKey))
	for key, members := range byKey {
		groups = append(groups, FetchGroup{
			Key:        key,
			Partitions: buildCurrencyPartitions(members),
			Rooms:      unionRooms(members),
			Searches:   members,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Key.City != groups[j].Key.City {
			return groups[i].Key.City < groups[j].Key.City
		}
		return groups[i].Key.Type < groups[j].Key.Type
	})
	return groups
}

func buildCurrencyPartitions(members []models.SavedSearch) []CurrencyPartition {

	byCurrency := lo.GroupBy(members, func(s models.SavedSearch) models.Currency {
		return s.Currency
	})

	partitions := make([]CurrencyPartition, 0, len(byCurrency))
	for currency, searches := range byCurrency {

		partition := CurrencyPartition{
			Currency: currency,
			PriceMin: searches[0].PriceMin,
			PriceMax: searches[0].PriceMax,
			Searches: searches,
		}
		for _, search := range searches[1:] {
			if search.PriceMin < partition.PriceMin {
				partition.PriceMin = search.PriceMin
			}
			// any unbounded member makes the whole partition unbounded
			if partition.PriceMax != 0 &&
				(search.PriceMax == 0 || search.PriceMax > partition.PriceMax) {
				partition.PriceMax = search.PriceMax
			}
		}
		partitions = append(partitions, partition)
	}

	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].Currency < partitions[j].Currency
	})
	return partitions
}

// unionRooms merges room selections across the group. Any search without a
// selection wants every room count, which drops the filter entirely. If no
// member selected the "N or more" maximum, counts above it stay excluded to
// narrow the upstream request.
func unionRooms(members []models.SavedSearch) []int {

	union := map[int]struct{}{}
	for _, search := range members {
		rooms := search.RoomsAsArray()
		if len(rooms) == 0 {
			return nil
		}
		for _, r := range rooms {
			union[r] = struct{}{}
		}
	}

	result := lo.Keys(union)
	sort.Ints(result)
	return result
}
