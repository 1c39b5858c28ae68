package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abhishekpatel946/replicate-media-generation/internal/repository"
)

var _ repository.LeaseStore = (*redisLeaseStore)(nil)

const (
	leaseKeyPrefix = "mediagen:lease:"

	// leaseTTL bounds how long a crashed worker can block redelivery of
	// the same attempt. Must exceed the maximum plausible generation time.
	leaseTTL = 15 * time.Minute

	// releasedTTL keeps finished leases around briefly so a late
	// redelivery of the same attempt still dedupes.
	releasedTTL = 10 * time.Minute
)

type redisLeaseStore struct {
	client *goredis.Client
}

// NewLeaseStore creates a Redis-backed lease store using SET NX.
func NewLeaseStore(client *goredis.Client) repository.LeaseStore {
	return &redisLeaseStore{client: client}
}

func leaseKey(jobID uuid.UUID, attempt int) string {
	return fmt.Sprintf("%s%s:%d", leaseKeyPrefix, jobID, attempt)
}

// Acquire uses SET NX to atomically claim one delivery attempt of a job.
func (r *redisLeaseStore) Acquire(ctx context.Context, jobID uuid.UUID, attempt int) (bool, error) {
	ok, err := r.client.SetNX(ctx, leaseKey(jobID, attempt), time.Now().Unix(), leaseTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lease: %w", err)
	}
	return ok, nil
}

// Release shortens the lease TTL for eventual cleanup.
func (r *redisLeaseStore) Release(ctx context.Context, jobID uuid.UUID, attempt int) error {
	return r.client.Expire(ctx, leaseKey(jobID, attempt), releasedTTL).Err()
}
