package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// cachedRepository fronts FindWorkingDay with a TTL'd LRU. Doctor schedules
// change rarely and every availability query and booking hits the lookup, so
// a short TTL takes most of the read load off postgres. Misses are not
// cached: an off-day stays a cheap indexed query.
type cachedRepository struct {
	Repository
	workingDays *expirable.LRU[string, *WorkingDay]
}

func NewCachedRepository(repo Repository, size int, ttl time.Duration) Repository {
	return &cachedRepository{
		Repository:  repo,
		workingDays: expirable.NewLRU[string, *WorkingDay](size, nil, ttl),
	}
}

func (c *cachedRepository) FindWorkingDay(ctx context.Context, doctorID uuid.UUID, day string) (*WorkingDay, error) {
	key := fmt.Sprintf("%s:%s", doctorID, day)

	if wd, ok := c.workingDays.Get(key); ok {
		return wd, nil
	}

	wd, err := c.Repository.FindWorkingDay(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	c.workingDays.Add(key, wd)
	return wd, nil
}
