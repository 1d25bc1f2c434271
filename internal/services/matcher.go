package services

import (
	"github.com/flatwatch/realty-bot/internal/domain/models"
)

// Matches reports whether a listing satisfies every bound of a saved search.
// Price is compared only in the search's own currency: a listing that does
// not quote that currency never matches, a silent wrong-currency match being
// worse than a false negative.
func Matches(listing models.Listing, search models.SavedSearch) bool {

	if listing.City != search.City || listing.Type != search.Type {
		return false
	}

	price, ok := listing.PriceIn(search.Currency)
	if !ok {
		return false
	}
	if price < search.PriceMin {
		return false
	}
	if search.PriceMax > 0 && price > search.PriceMax {
		return false
	}

	if !search.WantsRooms(listing.Rooms) {
		return false
	}

	if search.AreaMin > 0 && listing.Area < search.AreaMin {
		return false
	}
	if search.AreaMax > 0 && listing.Area > search.AreaMax {
		return false
	}

	if search.FloorMin > 0 && listing.Floor < search.FloorMin {
		return false
	}
	if search.FloorMax > 0 && listing.Floor > search.FloorMax {
		return false
	}

	if search.NoRealtors && listing.IsRealtor {
		return false
	}

	return true
}

// NotificationWorthy additionally requires the listing to have been
// published after the search was created, so a fresh search does not spam
// its owner with every pre-existing listing that happens to match.
func NotificationWorthy(listing models.Listing, search models.SavedSearch) bool {
	return Matches(listing, search) && listing.PublishedAt.After(search.CreatedAt)
}
