package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// VisitCounterKey is the Redis key holding the number of distinct users
// ever created through a tenant.
func VisitCounterKey(tenantID uint64) string { return fmt.Sprintf("tenant:%d:usercount", tenantID) }

// MembershipKey is the Redis set of public tenants a user has joined.
func MembershipKey(userID string) string { return fmt.Sprintf("user:%s:tenants", userID) }

// CounterStore keeps advisory visit counters and membership sets in Redis.
// A nil client is allowed: every call then fails with ErrCounterUnavailable,
// mirroring how the rest of the service degrades when Redis is down.
type CounterStore struct{ rdb redis.Cmdable }

func NewCounterStore(rdb *redis.Client) *CounterStore {
	if rdb == nil {
		return &CounterStore{}
	}
	return &CounterStore{rdb: rdb}
}

// IncrVisit increments the tenant's visit counter and returns the value it
// held before the increment.
func (s *CounterStore) IncrVisit(ctx context.Context, tenantID uint64) (int64, error) {
	if s.rdb == nil {
		return 0, ErrCounterUnavailable
	}
	n, err := s.rdb.Incr(ctx, VisitCounterKey(tenantID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return n - 1, nil
}

// VisitCount reads the tenant's counter; a missing key counts as zero.
func (s *CounterStore) VisitCount(ctx context.Context, tenantID uint64) (int64, error) {
	if s.rdb == nil {
		return 0, ErrCounterUnavailable
	}
	n, err := s.rdb.Get(ctx, VisitCounterKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return n, nil
}

// AddMembership records that the user belongs to a public tenant. Adding an
// existing member is a no-op.
func (s *CounterStore) AddMembership(ctx context.Context, userID string, tenantID uint64) error {
	if s.rdb == nil {
		return ErrCounterUnavailable
	}
	if err := s.rdb.SAdd(ctx, MembershipKey(userID), strconv.FormatUint(tenantID, 10)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return nil
}

// Memberships lists the public tenants a user has joined.
func (s *CounterStore) Memberships(ctx context.Context, userID string) ([]uint64, error) {
	if s.rdb == nil {
		return nil, ErrCounterUnavailable
	}
	members, err := s.rdb.SMembers(ctx, MembershipKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	out := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
