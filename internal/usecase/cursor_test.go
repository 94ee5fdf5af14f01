package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoBlog/internal/domain"
)

func supplyOf(batches ...[]string) (Supply, *int) {
	calls := 0
	return func(context.Context) ([]domain.Topic, error) {
		calls++
		if calls > len(batches) {
			return nil, errors.New("source offline")
		}
		out := make([]domain.Topic, 0, len(batches[calls-1]))
		for _, t := range batches[calls-1] {
			out = append(out, domain.Topic{Title: t})
		}
		return out, nil
	}, &calls
}

func drain(c *Cursor) []string {
	var got []string
	for {
		t, ok := c.Next(context.Background())
		if !ok {
			return got
		}
		got = append(got, t.Title)
	}
}

func TestCursorRefillsOnceAndSkipsSeenTitles(t *testing.T) {
	t.Parallel()

	supply, calls := supplyOf([]string{"A", "B"}, []string{"b", "C"}, []string{"D"})
	c, err := NewCursor(context.Background(), supply, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, drain(c))
	assert.Equal(t, 2, *calls)
	assert.Equal(t, StopExhausted, c.Stopped())
	assert.Equal(t, 3, c.Attempts())
	assert.NoError(t, c.RefillErr)
}

func TestCursorWithoutRefill(t *testing.T) {
	t.Parallel()

	supply, calls := supplyOf([]string{"A"}, []string{"B"})
	c, err := NewCursor(context.Background(), supply, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, drain(c))
	assert.Equal(t, 1, *calls)
}

func TestCursorAttemptLimit(t *testing.T) {
	t.Parallel()

	supply, _ := supplyOf([]string{"A"}, []string{"B", "C", "D", "E"})
	c, err := NewCursor(context.Background(), supply, true)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Limit())
	assert.Equal(t, []string{"A", "B", "C"}, drain(c))
	assert.Equal(t, StopAttemptLimit, c.Stopped())

	_, ok := c.Next(context.Background())
	assert.False(t, ok, "stays stopped")
}

func TestCursorRefillError(t *testing.T) {
	t.Parallel()

	supply, _ := supplyOf([]string{"A"})
	c, err := NewCursor(context.Background(), supply, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, drain(c))
	assert.EqualError(t, c.RefillErr, "source offline")
}

func TestCursorEmptyOrFailingFirstBatch(t *testing.T) {
	t.Parallel()

	supply, _ := supplyOf([]string{})
	_, err := NewCursor(context.Background(), supply, true)
	assert.ErrorIs(t, err, ErrNoIdeas)

	supply, _ = supplyOf()
	_, err = NewCursor(context.Background(), supply, true)
	assert.EqualError(t, err, "source offline")
}
