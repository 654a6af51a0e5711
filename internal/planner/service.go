package planner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"mealmatch/internal/logging"
	"mealmatch/internal/pantry"
	"mealmatch/internal/recipe"
)

// InventoryReader lists a user's on-hand ingredients.
type InventoryReader interface {
	List(ctx context.Context, userID string) ([]pantry.Item, error)
}

// CatalogReader lists every recipe with its requirements.
type CatalogReader interface {
	ListWithRequirements(ctx context.Context) ([]recipe.Recipe, error)
}

// PlanStore persists one plan per user and week.
type PlanStore interface {
	Find(ctx context.Context, userID string, weekStart time.Time) (*StoredPlan, error)
	InsertIfAbsent(ctx context.Context, userID string, weekStart, generatedAt time.Time, payload []byte) (bool, error)
	Delete(ctx context.Context, userID string, weekStart time.Time) error
}

// Observer receives planning events, typically to update metrics.
type Observer interface {
	PlanGenerated(d time.Duration)
	PlanServed(source string)
	PayloadRecovered()
	InsertConflict()
}

// Plan sources reported to the Observer.
const (
	SourceStored    = "stored"
	SourceGenerated = "generated"
)

type nopObserver struct{}

func (nopObserver) PlanGenerated(time.Duration) {}
func (nopObserver) PlanServed(string)           {}
func (nopObserver) PayloadRecovered()           {}
func (nopObserver) InsertConflict()             {}

// Service produces and stores weekly plans.
type Service struct {
	inventory InventoryReader
	catalog   CatalogReader
	plans     PlanStore
	observer  Observer
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used to find the current week.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver sets the receiver of planning events.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger replaces the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a new Service.
func NewService(inventory InventoryReader, catalog CatalogReader, plans PlanStore, opts ...Option) *Service {
	s := &Service{
		inventory: inventory,
		catalog:   catalog,
		plans:     plans,
		observer:  nopObserver{},
		now:       time.Now,
		log:       logging.With().Str("component", "planner").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentWeek returns the start of the week containing the service clock's
// local date.
func (s *Service) CurrentWeek() time.Time {
	return WeekStart(s.now())
}

// GetOrCreate returns the user's plan for the current week, generating and
// storing it first when none exists. Repeated calls within the week return
// the same plan.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*WeeklyPlan, error) {
	weekStart := s.CurrentWeek()

	stored, err := s.plans.Find(ctx, userID, weekStart)
	if err != nil {
		return nil, dataAccess("find plan", err)
	}
	if stored != nil {
		s.observer.PlanServed(SourceStored)
		s.log.Debug().Str("user", userID).Str("week", FormatWeek(weekStart)).Msg("serving stored plan")
		return s.fromStored(userID, weekStart, stored), nil
	}

	start := time.Now()
	days, candidates, err := s.generate(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := EncodePayload(days, Snapshot(candidates))
	if err != nil {
		return nil, err
	}

	inserted, err := s.plans.InsertIfAbsent(ctx, userID, weekStart, s.now(), payload)
	if err != nil {
		return nil, dataAccess("store plan", err)
	}
	if inserted {
		s.observer.PlanGenerated(time.Since(start))
		s.log.Info().
			Str("user", userID).
			Str("week", FormatWeek(weekStart)).
			Int("candidates", len(candidates)).
			Msg("plan generated")
	} else {
		s.observer.InsertConflict()
		s.log.Info().Str("user", userID).Str("week", FormatWeek(weekStart)).Msg("plan already stored by a concurrent request")
	}

	// Read back so every caller sees the row that won.
	stored, err = s.plans.Find(ctx, userID, weekStart)
	if err != nil {
		return nil, dataAccess("reload plan", err)
	}
	if stored == nil {
		return nil, dataAccess("reload plan", errors.New("plan missing after insert"))
	}
	if inserted {
		s.observer.PlanServed(SourceGenerated)
	} else {
		s.observer.PlanServed(SourceStored)
	}
	return s.fromStored(userID, weekStart, stored), nil
}

// Current returns the stored plan for the current week without generating
// one. It returns ErrPlanNotFound when there is none.
func (s *Service) Current(ctx context.Context, userID string) (*WeeklyPlan, error) {
	weekStart := s.CurrentWeek()
	stored, err := s.plans.Find(ctx, userID, weekStart)
	if err != nil {
		return nil, dataAccess("find plan", err)
	}
	if stored == nil {
		return nil, ErrPlanNotFound
	}
	return s.fromStored(userID, weekStart, stored), nil
}

// Invalidate deletes the user's plan for the given week. Deleting a missing
// plan is not an error.
func (s *Service) Invalidate(ctx context.Context, userID string, weekStart time.Time) error {
	if err := s.plans.Delete(ctx, userID, WeekStart(weekStart)); err != nil {
		return dataAccess("delete plan", err)
	}
	s.log.Debug().Str("user", userID).Str("week", FormatWeek(weekStart)).Msg("plan invalidated")
	return nil
}

// Regenerate discards the current week's plan and builds a new one from the
// user's current inventory and the current catalog.
func (s *Service) Regenerate(ctx context.Context, userID string) (*WeeklyPlan, error) {
	if err := s.Invalidate(ctx, userID, s.CurrentWeek()); err != nil {
		return nil, err
	}
	return s.GetOrCreate(ctx, userID)
}

func (s *Service) generate(ctx context.Context, userID string) ([]DayAssignment, []ScoredRecipe, error) {
	items, err := s.inventory.List(ctx, userID)
	if err != nil {
		return nil, nil, dataAccess("list inventory", err)
	}
	recipes, err := s.catalog.ListWithRequirements(ctx)
	if err != nil {
		return nil, nil, dataAccess("list recipes", err)
	}

	return Build(Score(NewInventoryIndex(items), recipes))
}

func (s *Service) fromStored(userID string, weekStart time.Time, stored *StoredPlan) *WeeklyPlan {
	plan := &WeeklyPlan{
		UserID:      userID,
		WeekStart:   weekStart,
		GeneratedAt: stored.GeneratedAt,
	}

	days, candidates, err := DecodePayload(stored.Payload)
	if err != nil {
		s.observer.PayloadRecovered()
		s.log.Warn().Err(err).Str("user", userID).Str("week", FormatWeek(weekStart)).Msg("stored plan unreadable, serving empty plan")
		days, candidates = []DayAssignment{}, []CandidateSnapshot{}
	}
	plan.Days = days
	plan.Candidates = candidates
	return plan
}
