package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSend struct {
	chatID   int64
	text     string
	photoURL string
}

type stubChannel struct {
	mu    sync.Mutex
	sends []recordedSend
	fail  error
}

func (c *stubChannel) SendListing(chatID int64, text string, photoURL string) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, recordedSend{chatID, text, photoURL})
	return nil
}

type stubUsers struct {
	users map[int64]*models.User
}

func (u *stubUsers) Get(_ context.Context, userID int64) (*models.User, error) {
	return u.users[userID], nil
}

type stubListings struct {
	listings []models.Listing
}

func (l *stubListings) GetByExternalIDs(_ context.Context, ids []int64) ([]models.Listing, error) {
	var found []models.Listing
	for _, listing := range l.listings {
		for _, id := range ids {
			if listing.ExternalID == id {
				found = append(found, listing)
			}
		}
	}
	return found, nil
}

type memoryMarkers struct {
	mu    sync.Mutex
	pairs map[[2]int64]struct{}
}

func newMemoryMarkers() *memoryMarkers {
	return &memoryMarkers{pairs: map[[2]int64]struct{}{}}
}

func (m *memoryMarkers) WasSent(_ context.Context, searchID int, listingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pairs[[2]int64{int64(searchID), listingID}]
	return ok, nil
}

func (m *memoryMarkers) Record(_ context.Context, searchID int, listingID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairs[[2]int64{int64(searchID), listingID}] = struct{}{}
	return nil
}

func notifierFixture() (*Notifier, *stubChannel, *memoryMarkers) {

	channel := &stubChannel{}
	markers := newMemoryMarkers()
	users := &stubUsers{users: map[int64]*models.User{
		100: {ID: 100, NotificationsEnabled: true},
		200: {ID: 200, NotificationsEnabled: false},
	}}
	listings := &stubListings{listings: []models.Listing{{
		ExternalID: 771001, City: "Київ", Type: models.Rent,
		PriceUAH: 9000, Rooms: 2, URL: "https://listings.example.com/771001",
		PhotoURLs:   "https://cdn.example.com/771001/1.jpg",
		PublishedAt: time.Now(),
	}}}

	return NewNotifier(channel, users, listings, markers, 100), channel, markers
}

func enabledSearch(id int, userID int64) models.SavedSearch {
	return models.SavedSearch{
		ID: id, UserID: userID, City: "Київ", Type: models.Rent,
		Currency: models.UAH, NotificationsEnabled: true,
	}
}

func Test_Notifier_SendsOncePerRecipientAndMarksEveryPair(t *testing.T) {

	notifier, channel, markers := notifierFixture()

	matches := models.MatchSet{}
	matches.Add(771001, enabledSearch(1, 100))
	matches.Add(771001, enabledSearch(2, 100))

	sent, err := notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	require.Len(t, channel.sends, 1)
	assert.Equal(t, int64(100), channel.sends[0].chatID)
	assert.Equal(t, "https://cdn.example.com/771001/1.jpg", channel.sends[0].photoURL)

	wasSent, _ := markers.WasSent(context.Background(), 1, 771001)
	assert.True(t, wasSent)
	wasSent, _ = markers.WasSent(context.Background(), 2, 771001)
	assert.True(t, wasSent)
}

func Test_Notifier_RedispatchOfMarkedPairSendsNothing(t *testing.T) {

	notifier, channel, _ := notifierFixture()

	matches := models.MatchSet{}
	matches.Add(771001, enabledSearch(1, 100))

	sent, err := notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Len(t, channel.sends, 1)
}

func Test_Notifier_DisabledNotificationsAreSkipped(t *testing.T) {

	notifier, channel, _ := notifierFixture()

	disabledSearch := enabledSearch(3, 100)
	disabledSearch.NotificationsEnabled = false

	matches := models.MatchSet{}
	matches.Add(771001, disabledSearch)
	// account-level opt-out
	matches.Add(771001, enabledSearch(4, 200))
	// unknown user
	matches.Add(771001, enabledSearch(5, 300))

	sent, err := notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, channel.sends)
}

func Test_Notifier_FailedDeliveryWritesNoMarker(t *testing.T) {

	notifier, channel, markers := notifierFixture()
	channel.fail = errors.New("telegram is down")

	matches := models.MatchSet{}
	matches.Add(771001, enabledSearch(1, 100))

	sent, err := notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	wasSent, _ := markers.WasSent(context.Background(), 1, 771001)
	assert.False(t, wasSent)

	// retry after the channel recovers delivers and marks
	channel.fail = nil
	sent, err = notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	wasSent, _ = markers.WasSent(context.Background(), 1, 771001)
	assert.True(t, wasSent)
}

func Test_Notifier_UnstoredListingIsSkipped(t *testing.T) {

	notifier, channel, _ := notifierFixture()

	matches := models.MatchSet{}
	matches.Add(999999, enabledSearch(1, 100))

	sent, err := notifier.Dispatch(context.Background(), matches)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, channel.sends)
}
