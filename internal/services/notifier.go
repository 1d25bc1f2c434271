package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/logger"
	"github.com/flatwatch/realty-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type deliveryChannel interface {
	SendListing(chatID int64, text string, photoURL string) error
}

type userRepository interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
}

type notifiedListingStore interface {
	GetByExternalIDs(ctx context.Context, externalIDs []int64) ([]models.Listing, error)
}

type sentMarkerRepository interface {
	WasSent(ctx context.Context, searchID int, listingID int64) (bool, error)
	Record(ctx context.Context, searchID int, listingID int64) error
}

// Notifier turns an aggregated match set into rate-limited, idempotent
// Telegram deliveries. One message per (listing, recipient); sent markers
// are written only after a confirmed send, so a crash in between causes a
// safe duplicate retry, never a silent loss.
type Notifier struct {
	channel  deliveryChannel
	users    userRepository
	listings notifiedListingStore
	markers  sentMarkerRepository
	limiter  *rate.Limiter
}

func NewNotifier(channel deliveryChannel, users userRepository,
	listings notifiedListingStore, markers sentMarkerRepository,
	messagesPerSecond float32) *Notifier {

	return &Notifier{
		channel:  channel,
		users:    users,
		listings: listings,
		markers:  markers,
		limiter:  rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
	}
}

func (n *Notifier) Dispatch(ctx context.Context, matches models.MatchSet) (int, error) {

	if len(matches) == 0 {
		return 0, nil
	}

	listingIDs := make([]int64, 0, len(matches))
	for id := range matches {
		listingIDs = append(listingIDs, id)
	}
	sort.Slice(listingIDs, func(i, j int) bool { return listingIDs[i] < listingIDs[j] })

	stored, err := n.listings.GetByExternalIDs(ctx, listingIDs)
	if err != nil {
		return 0, err
	}
	byExternalID := make(map[int64]models.Listing, len(stored))
	for _, listing := range stored {
		byExternalID[listing.ExternalID] = listing
	}

	sent := 0
	for _, listingID := range listingIDs {

		listing, ok := byExternalID[listingID]
		if !ok {
			log.Warnf("matched listing %d is not stored, skipping", listingID)
			continue
		}

		for userID, searches := range groupByRecipient(matches[listingID]) {
			if n.deliverToRecipient(ctx, listing, userID, searches) {
				sent++
			}
		}
	}

	return sent, nil
}

// deliverToRecipient sends at most one message for a listing to one user,
// covering every still-unsent matching search of theirs.
func (n *Notifier) deliverToRecipient(ctx context.Context, listing models.Listing,
	userID int64, searches []models.SavedSearch) bool {

	user, err := n.users.Get(ctx, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to get user %d: %v", userID, err)
		return false
	}
	if user == nil || !user.NotificationsEnabled {
		return false
	}

	var pending []models.SavedSearch
	for _, search := range searches {
		if !search.NotificationsEnabled {
			continue
		}
		wasSent, err := n.markers.WasSent(ctx, search.ID, listing.ExternalID)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to check sent marker: %v", err)
			continue
		}
		if !wasSent {
			pending = append(pending, search)
		}
	}
	if len(pending) == 0 {
		return false
	}

	if err = n.limiter.Wait(ctx); err != nil {
		return false
	}

	text := formatListingMessage(listing, pending[0])
	if err = n.channel.SendListing(userID, text, listing.FirstPhotoURL()); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("failed to deliver listing %d to user %d: %v", listing.ExternalID, userID, err)
		return false
	}

	// markers strictly after the confirmed send
	for _, search := range pending {
		if err = n.markers.Record(ctx, search.ID, listing.ExternalID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to record sent marker for search %d: %v", search.ID, err)
		}
	}

	metrics.NotificationsSentCounter.Inc()
	return true
}

func groupByRecipient(searches []models.SavedSearch) map[int64][]models.SavedSearch {
	recipients := make(map[int64][]models.SavedSearch)
	for _, search := range searches {
		recipients[search.UserID] = append(recipients[search.UserID], search)
	}
	return recipients
}

func formatListingMessage(listing models.Listing, search models.SavedSearch) string {

	var sb strings.Builder

	action := "Оренда"
	if listing.Type == models.Sale {
		action = "Продаж"
	}

	sb.WriteString(fmt.Sprintf("Нове оголошення за вашим пошуком (%s, %s):\n", listing.City, action))

	if price, ok := listing.PriceIn(search.Currency); ok {
		sb.WriteString(fmt.Sprintf("%.0f %s", price, search.Currency))
	}
	if listing.Rooms > 0 {
		sb.WriteString(fmt.Sprintf(", кімнат: %d", listing.Rooms))
	}
	if listing.Area > 0 {
		sb.WriteString(fmt.Sprintf(", %.0f м²", listing.Area))
	}
	if listing.Floor > 0 {
		sb.WriteString(fmt.Sprintf(", поверх %d", listing.Floor))
	}
	sb.WriteString("\n")
	sb.WriteString(listing.URL)

	return sb.String()
}
