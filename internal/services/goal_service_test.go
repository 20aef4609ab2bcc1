package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

type countingGoals struct {
	calls int
	goals []core.Goal
	err   error
}

func (c *countingGoals) ListGoals(context.Context) ([]core.Goal, error) {
	c.calls++
	return c.goals, c.err
}

func TestGoalService_CachesList(t *testing.T) {
	reader := &countingGoals{goals: []core.Goal{
		{Name: "Rezerva", Amount: decimal.NewFromInt(50000)},
		{Name: "Postel", Amount: decimal.NewFromInt(15000)},
	}}
	svc := NewGoalService(reader, time.Minute, nil)
	ctx := context.Background()

	goals, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	goals[0].Name = "changed"

	goals, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "Rezerva", goals[0].Name)
	require.Equal(t, 1, reader.calls)

	total, err := svc.Total(ctx)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(65000).Equal(total))

	svc.Invalidate()
	_, err = svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, reader.calls)
}

func TestGoalService_PropagatesErrors(t *testing.T) {
	svc := NewGoalService(&countingGoals{err: errors.New("db down")}, 0, nil)
	_, err := svc.List(context.Background())
	require.Error(t, err)
	_, err = svc.Total(context.Background())
	require.Error(t, err)
}
