package services

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

const goalsCacheKey = "goals"

// GoalService serves long-term goals. Goals change rarely, so the list is
// cached for ttl.
type GoalService struct {
	reader storage.GoalReader
	cache  *gocache.Cache
	logger *log.Logger
}

func NewGoalService(reader storage.GoalReader, ttl time.Duration, logger *log.Logger) *GoalService {
	if logger == nil {
		logger = log.Discard()
	}
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &GoalService{
		reader: reader,
		cache:  gocache.New(ttl, cleanup),
		logger: logger.WithComponent(log.ComponentGoals),
	}
}

// List returns the goals in their configured order.
func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	if v, ok := s.cache.Get(goalsCacheKey); ok {
		return cloneGoals(v.([]core.Goal)), nil
	}

	goals, err := s.reader.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	s.cache.SetDefault(goalsCacheKey, goals)
	s.logger.DebugContext(ctx, "Goals cache refreshed", log.FieldCount, len(goals))
	return cloneGoals(goals), nil
}

// Total sums all goal amounts.
func (s *GoalService) Total(ctx context.Context) (decimal.Decimal, error) {
	goals, err := s.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return core.GoalsTotal(goals), nil
}

// Invalidate drops the cached list.
func (s *GoalService) Invalidate() {
	s.cache.Delete(goalsCacheKey)
}

func cloneGoals(goals []core.Goal) []core.Goal {
	out := make([]core.Goal, len(goals))
	copy(out, goals)
	return out
}
