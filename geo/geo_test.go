package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
)

type stubLocator struct {
	loc   models.Location
	err   error
	delay time.Duration
}

func (s stubLocator) Lookup(ctx context.Context, ip string) (models.Location, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Unknown, ctx.Err()
		}
	}
	return s.loc, s.err
}

func TestLookupOrUnknown(t *testing.T) {
	ctx := context.Background()
	br := models.Location{Country: "BR", City: "São Paulo"}

	assert.Equal(t, br, LookupOrUnknown(ctx, stubLocator{loc: br}, "200.1.1.1", time.Second))
	assert.Equal(t, Unknown, LookupOrUnknown(ctx, stubLocator{err: errors.New("boom")}, "200.1.1.1", time.Second))
	assert.Equal(t, Unknown, LookupOrUnknown(ctx, nil, "200.1.1.1", time.Second))
	assert.Equal(t, Unknown, LookupOrUnknown(ctx, stubLocator{loc: br}, "", time.Second))
}

func TestLookupOrUnknownTimesOut(t *testing.T) {
	slow := stubLocator{loc: models.Location{Country: "BR"}, delay: time.Second}

	start := time.Now()
	loc := LookupOrUnknown(context.Background(), slow, "200.1.1.1", 20*time.Millisecond)

	assert.Equal(t, Unknown, loc)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
