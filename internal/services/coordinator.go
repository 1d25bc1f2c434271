package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/events"
	"github.com/flatwatch/realty-bot/internal/logger"
	"github.com/flatwatch/realty-bot/internal/metrics"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrNotStarted is returned by Force before the coordinator loop is running.
var ErrNotStarted = errors.New("coordinator is not started yet")

type groupFetcher interface {
	FetchGroup(ctx context.Context, group FetchGroup) GroupResult
}

type matchDispatcher interface {
	Dispatch(ctx context.Context, matches models.MatchSet) (int, error)
}

type activeSearchRepository interface {
	GetActive(ctx context.Context, limit int, offset int) ([]models.SavedSearch, error)
}

type CycleSummary struct {
	CycleID   string        `json:"cycle_id"`
	Groups    int           `json:"groups"`
	Found     int           `json:"found"`
	Stored    int           `json:"stored"`
	Notified  int           `json:"notified"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// cycleState is the per-cycle coordination record. It lives in a TTL arena:
// if aggregation never happens before the TTL elapses, the entry vanishes,
// late group reports are dropped and the cycle counts as abandoned.
type cycleState struct {
	id         string
	expected   int32
	completed  atomic.Int32
	aggregated atomic.Bool
	startedAt  time.Time

	mu      sync.Mutex
	results map[GroupKey]GroupResult

	done chan CycleSummary
}

// Coordinator drives the fetch cycles: adaptive timing, fan-out of one job
// per group over a bounded worker pool, atomic completion tracking, and
// exactly-once aggregation per cycle.
type Coordinator struct {
	searches   activeSearchRepository
	fetcher    groupFetcher
	dispatcher matchDispatcher
	bus        EventBus.Bus
	policy     SchedulePolicy

	cycles   *gocache.Cache // cycle id -> *cycleState, bounded TTL
	cycleTTL time.Duration
	workers  int

	started     atomic.Bool
	forceCh     chan chan CycleSummary
	lastSummary atomic.Pointer[CycleSummary]
}

func NewCoordinator(searches activeSearchRepository, fetcher groupFetcher,
	dispatcher matchDispatcher, bus EventBus.Bus, policy SchedulePolicy,
	workers int, cycleTTL time.Duration) *Coordinator {

	if workers <= 0 {
		workers = 4
	}
	if cycleTTL <= 0 {
		cycleTTL = 30 * time.Minute
	}

	return &Coordinator{
		searches:   searches,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		bus:        bus,
		policy:     policy,
		cycles:     gocache.New(cycleTTL, cycleTTL),
		cycleTTL:   cycleTTL,
		workers:    workers,
		forceCh:    make(chan chan CycleSummary),
	}
}

// Run loops until the context is cancelled: sleep per the schedule policy,
// run a cycle, re-arm. A force request interrupts the sleep and skips the
// night-window gate.
func (c *Coordinator) Run(ctx context.Context) {

	c.started.Store(true)

	for {
		delay := c.policy.DelayUntilNext(time.Now())
		log.Infof("next fetch cycle in %v", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			c.runCycle(ctx)
		case reply := <-c.forceCh:
			timer.Stop()
			log.Info("forced fetch cycle requested")
			reply <- c.runCycle(ctx)
		}
	}
}

// Force triggers an immediate cycle, bypassing the night window, and waits
// for its summary. Used by the operator command.
func (c *Coordinator) Force(ctx context.Context) (CycleSummary, error) {

	if !c.started.Load() {
		return CycleSummary{}, ErrNotStarted
	}

	reply := make(chan CycleSummary, 1)
	select {
	case c.forceCh <- reply:
	case <-ctx.Done():
		return CycleSummary{}, ctx.Err()
	}

	select {
	case summary := <-reply:
		return summary, nil
	case <-ctx.Done():
		return CycleSummary{}, ctx.Err()
	}
}

func (c *Coordinator) LastSummary() *CycleSummary {
	return c.lastSummary.Load()
}

func (c *Coordinator) PendingCycles() int {
	return c.cycles.ItemCount()
}

func (c *Coordinator) runCycle(ctx context.Context) CycleSummary {

	startTime := time.Now()
	log.Infof("running fetch cycle at %v", startTime)

	searches := c.loadActiveSearches(ctx)
	groups := BuildGroups(searches)

	if len(groups) == 0 {
		log.Info("no active searches, skipping cycle")
		summary := CycleSummary{CycleID: uuid.NewString(), StartedAt: startTime}
		c.lastSummary.Store(&summary)
		return summary
	}

	state := &cycleState{
		id:        uuid.NewString(),
		expected:  int32(len(groups)),
		startedAt: startTime,
		results:   make(map[GroupKey]GroupResult, len(groups)),
		done:      make(chan CycleSummary, 1),
	}
	c.cycles.Set(state.id, state, gocache.DefaultExpiration)

	sem := make(chan struct{}, c.workers)
	for _, group := range groups {
		group := group
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			result := c.fetcher.FetchGroup(ctx, group)
			c.markGroupDone(state.id, group.Key, result)
		}()
	}

	select {
	case summary := <-state.done:
		metrics.CycleDuration.Observe(summary.Duration.Seconds())
		c.lastSummary.Store(&summary)
		log.Infof("cycle %v ended after %v: %v found, %v stored, %v notified",
			summary.CycleID, summary.Duration, summary.Found, summary.Stored, summary.Notified)
		return summary
	case <-time.After(c.cycleTTL):
		// a unit crashed without reporting; abandon and let the next
		// scheduled cycle proceed normally
		metrics.AbandonedCyclesCounter.Inc()
		log.Errorf("cycle %v abandoned: aggregation did not happen within %v", state.id, c.cycleTTL)
		c.cycles.Delete(state.id)
		summary := CycleSummary{CycleID: state.id, Groups: len(groups), StartedAt: startTime,
			Duration: time.Since(startTime)}
		c.lastSummary.Store(&summary)
		return summary
	case <-ctx.Done():
		c.cycles.Delete(state.id)
		return CycleSummary{CycleID: state.id, StartedAt: startTime}
	}
}

func (c *Coordinator) loadActiveSearches(ctx context.Context) []models.SavedSearch {

	var all []models.SavedSearch
	pageSize := 100

	for offset := 0; ; offset += pageSize {
		page, err := c.searches.GetActive(ctx, pageSize, offset)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to get active searches: %v", err)
			break
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
	}

	return all
}

// markGroupDone records a unit's result and, when its increment is the one
// that reaches the expected total, triggers aggregation. The CAS on the
// aggregated flag keeps aggregation exactly-once even when several units
// finish at nearly the same time.
func (c *Coordinator) markGroupDone(cycleID string, key GroupKey, result GroupResult) {

	value, found := c.cycles.Get(cycleID)
	if !found {
		log.Warnf("cycle %v metadata expired, dropping result for group %v", cycleID, key)
		return
	}
	state := value.(*cycleState)

	state.mu.Lock()
	state.results[key] = result
	state.mu.Unlock()

	if state.completed.Add(1) == state.expected &&
		state.aggregated.CompareAndSwap(false, true) {
		c.aggregate(state)
	}
}

func (c *Coordinator) aggregate(state *cycleState) {

	merged := models.MatchSet{}
	found, stored := 0, 0

	state.mu.Lock()
	for _, result := range state.results {
		found += result.Found
		stored += result.Stored
		merged.Merge(result.Matches)
	}
	groups := len(state.results)
	state.mu.Unlock()

	metrics.ListingsFoundCounter.Add(float64(found))

	notified, err := c.dispatcher.Dispatch(context.Background(), merged)
	if err != nil {
		log.Errorf("dispatch failed for cycle %v: %v", state.id, err)
	}

	c.cycles.Delete(state.id)

	summary := CycleSummary{
		CycleID:   state.id,
		Groups:    groups,
		Found:     found,
		Stored:    stored,
		Notified:  notified,
		StartedAt: state.startedAt,
		Duration:  time.Since(state.startedAt),
	}

	c.bus.Publish(events.CycleCompletedTopic, events.CycleCompleted{
		CycleID:  summary.CycleID,
		Groups:   summary.Groups,
		Found:    summary.Found,
		Stored:   summary.Stored,
		Notified: summary.Notified,
		Duration: summary.Duration,
	})

	state.done <- summary
}
