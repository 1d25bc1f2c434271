package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/resilience"
	log "github.com/sirupsen/logrus"
)

type watermarkLister interface {
	List(ctx context.Context) ([]models.CityWatermark, error)
}

// StatusSnapshot is the read-only observability view: circuit state,
// per-city watermarks and cycle counters. Listing ids, being 64-bit, are
// always rendered as strings in JSON we emit.
type StatusSnapshot struct {
	Started       bool                 `json:"started"`
	Breaker       resilience.Snapshot  `json:"breaker"`
	Watermarks    map[string]time.Time `json:"watermarks"`
	PendingCycles int                  `json:"pending_cycles"`
	LastCycle     *CycleSummary        `json:"last_cycle,omitempty"`
}

type StatusService struct {
	coordinator *Coordinator
	breaker     *resilience.Breaker
	watermarks  watermarkLister
}

func NewStatusService(coordinator *Coordinator, breaker *resilience.Breaker,
	watermarks watermarkLister) *StatusService {
	return &StatusService{coordinator: coordinator, breaker: breaker, watermarks: watermarks}
}

func (s *StatusService) Snapshot(ctx context.Context) (StatusSnapshot, error) {

	snapshot := StatusSnapshot{
		Started:       s.coordinator.started.Load(),
		Breaker:       s.breaker.State(),
		Watermarks:    map[string]time.Time{},
		PendingCycles: s.coordinator.PendingCycles(),
		LastCycle:     s.coordinator.LastSummary(),
	}

	watermarks, err := s.watermarks.List(ctx)
	if err != nil {
		return snapshot, err
	}
	for _, watermark := range watermarks {
		snapshot.Watermarks[watermark.City] = watermark.LastFetchedAt
	}

	return snapshot, nil
}

func (s *StatusService) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := s.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err = json.NewEncoder(w).Encode(snapshot); err != nil {
			log.Errorf("failed to encode status snapshot: %v", err)
		}
	})
}

// FormatText renders the snapshot for the operator chat.
func (snapshot StatusSnapshot) FormatText() string {

	text := "Стан сервісу:\n"
	if snapshot.Breaker.Open {
		text += "- запобіжник: відкритий до " + snapshot.Breaker.OpenUntil.Format("15:04:05") + "\n"
	} else {
		text += "- запобіжник: закритий, помилок у вікні: " +
			strconv.FormatInt(snapshot.Breaker.Failures, 10) + "\n"
	}

	if snapshot.LastCycle != nil {
		text += "- останній цикл: знайдено " + strconv.Itoa(snapshot.LastCycle.Found) +
			", збережено " + strconv.Itoa(snapshot.LastCycle.Stored) +
			", надіслано " + strconv.Itoa(snapshot.LastCycle.Notified) + "\n"
	} else {
		text += "- циклів ще не було\n"
	}

	for city, fetchedAt := range snapshot.Watermarks {
		text += "- " + city + ": перевірено " + fetchedAt.Format("2006-01-02 15:04") + "\n"
	}

	return text
}
