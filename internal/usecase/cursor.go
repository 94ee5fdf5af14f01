package usecase

import (
	"context"
	"errors"
	"strings"

	"AutoBlog/internal/domain"
)

// ErrNoIdeas is returned when the initial supply is empty.
var ErrNoIdeas = errors.New("no ideas available")

// attemptFactor bounds how many items a run may pull relative to the size of
// the first batch.
const attemptFactor = 3

// Supply produces a batch of topics. It is called once up front and at most
// once more when the first batch runs out.
type Supply func(ctx context.Context) ([]domain.Topic, error)

// StopReason tells why a cursor stopped handing out items.
type StopReason int

const (
	StopNone StopReason = iota
	StopExhausted
	StopAttemptLimit
)

// Cursor is a pull-based iterator over a topic supply. Titles already handed
// out in this run are never returned again, even if a refill repeats them.
type Cursor struct {
	supply   Supply
	items    []domain.Topic
	pos      int
	refilled bool
	attempts int
	limit    int
	seen     map[string]struct{}
	stopped  StopReason
	// RefillErr keeps the error of a failed refill for reporting.
	RefillErr error
}

// NewCursor loads the first batch. An error from supply or an empty batch is
// fatal for the run.
func NewCursor(ctx context.Context, supply Supply, allowRefill bool) (*Cursor, error) {
	items, err := supply(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoIdeas
	}
	return &Cursor{
		supply:   supply,
		items:    items,
		refilled: !allowRefill,
		limit:    attemptFactor * len(items),
		seen:     make(map[string]struct{}, len(items)),
	}, nil
}

// Next returns the next unseen topic. ok is false once the supply is
// exhausted after its single refill or the attempt limit is reached.
func (c *Cursor) Next(ctx context.Context) (domain.Topic, bool) {
	if c.stopped != StopNone {
		return domain.Topic{}, false
	}
	for {
		if c.attempts >= c.limit {
			c.stopped = StopAttemptLimit
			return domain.Topic{}, false
		}
		if c.pos >= len(c.items) {
			if !c.refill(ctx) {
				c.stopped = StopExhausted
				return domain.Topic{}, false
			}
			continue
		}

		item := c.items[c.pos]
		c.pos++
		key := strings.ToLower(strings.TrimSpace(item.Title))
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.attempts++
		return item, true
	}
}

func (c *Cursor) refill(ctx context.Context) bool {
	if c.refilled || ctx.Err() != nil {
		return false
	}
	c.refilled = true

	items, err := c.supply(ctx)
	if err != nil {
		c.RefillErr = err
		return false
	}
	if len(items) == 0 {
		return false
	}
	c.items = items
	c.pos = 0
	return true
}

// Attempts is the number of items handed out so far.
func (c *Cursor) Attempts() int { return c.attempts }

// Limit is the attempt bound derived from the first batch.
func (c *Cursor) Limit() int { return c.limit }

// Stopped reports why Next returned false.
func (c *Cursor) Stopped() StopReason { return c.stopped }
