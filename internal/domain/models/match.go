package models

// MatchSet maps a listing external id to the saved searches it satisfies.
// Produced per fetch group and merged at cycle aggregation.
type MatchSet map[int64][]SavedSearch

func (m MatchSet) Add(listingID int64, search SavedSearch) {
	for _, existing := range m[listingID] {
		if existing.ID == search.ID {
			return
		}
	}
	m[listingID] = append(m[listingID], search)
}

func (m MatchSet) Merge(other MatchSet) {
	for listingID, searches := range other {
		for _, search := range searches {
			m.Add(listingID, search)
		}
	}
}

func (m MatchSet) Pairs() int {
	total := 0
	for _, searches := range m {
		total += len(searches)
	}
	return total
}
