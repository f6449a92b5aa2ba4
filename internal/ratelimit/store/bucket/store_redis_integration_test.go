//go:build integration

package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"licensing/internal/ratelimit/models"
	"licensing/pkg/testutil/containers"
)

type RedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Redis
}

func TestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.store = NewRedis(s.redis.Client)
}

func (s *RedisSuite) TestLimitIsSharedAcrossInstances() {
	ctx := context.Background()
	other := NewRedis(s.redis.Client)
	limit := models.Limit{Requests: 3, Window: time.Minute}

	for i := range limit.Requests {
		store := s.store
		if i%2 == 1 {
			store = other
		}
		result, err := store.Allow(ctx, "rl:write:ip:shared", limit)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	result, err := other.Allow(ctx, "rl:write:ip:shared", limit)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
}

func (s *RedisSuite) TestWindowSlides() {
	ctx := context.Background()
	clock := time.Now()
	s.store.now = func() time.Time { return clock }
	limit := models.Limit{Requests: 2, Window: time.Second}

	for range limit.Requests {
		_, err := s.store.Allow(ctx, "rl:write:ip:slide", limit)
		s.Require().NoError(err)
	}
	clock = clock.Add(1100 * time.Millisecond)
	result, err := s.store.Allow(ctx, "rl:write:ip:slide", limit)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Remaining)
}
