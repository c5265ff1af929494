package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type redisLockerSuite struct {
	suite.Suite

	container testcontainers.Container
	client    *redis.Client
}

func TestRedisLockerSuite(t *testing.T) {
	suite.Run(t, new(redisLockerSuite))
}

func (suite *redisLockerSuite) SetupSuite() {
	ctx := suite.T().Context()

	var err error
	suite.container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	suite.Require().NoError(err)

	endpoint, err := suite.container.PortEndpoint(ctx, "6379/tcp", "redis")
	suite.Require().NoError(err)

	suite.client, err = NewRedisClient(ctx, endpoint)
	suite.Require().NoError(err)
}

func (suite *redisLockerSuite) TearDownSuite() {
	ctx := context.Background()

	if suite.client != nil {
		suite.NoError(suite.client.Close())
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *redisLockerSuite) TestLockAndRelease() {
	t := suite.T()
	ctx := t.Context()

	locker, err := NewRedisLocker(suite.client, time.Second, 0)
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, "order:a")
	require.NoError(t, err)

	ttl, err := suite.client.PTTL(ctx, keyPrefix+"order:a").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	_, err = locker.Lock(ctx, "order:a")
	require.ErrorIs(t, err, ErrNotAcquired)

	// different keys do not contend
	unlockB, err := locker.Lock(ctx, "order:b")
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))

	require.NoError(t, unlock(ctx))

	unlock, err = locker.Lock(ctx, "order:a")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func (suite *redisLockerSuite) TestWaitsForRelease() {
	t := suite.T()
	ctx := t.Context()

	locker, err := NewRedisLocker(suite.client, 5*time.Second, 2*time.Second)
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, "order:wait")
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = unlock(context.Background())
	}()

	start := time.Now()
	unlock2, err := locker.Lock(ctx, "order:wait")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.NoError(t, unlock2(ctx))
}

func (suite *redisLockerSuite) TestExpiredHolderCannotReleaseNewLock() {
	t := suite.T()
	ctx := t.Context()

	locker, err := NewRedisLocker(suite.client, 100*time.Millisecond, 0)
	require.NoError(t, err)

	staleUnlock, err := locker.Lock(ctx, "order:ttl")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := suite.client.Exists(ctx, keyPrefix+"order:ttl").Result()
		return err == nil && n == 0
	}, 2*time.Second, 20*time.Millisecond)

	unlock, err := locker.Lock(ctx, "order:ttl")
	require.NoError(t, err)

	require.NoError(t, staleUnlock(ctx))

	n, err := suite.client.Exists(ctx, keyPrefix+"order:ttl").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "new holder keeps the lock")

	require.NoError(t, unlock(ctx))
}

func (suite *redisLockerSuite) TestMutualExclusion() {
	t := suite.T()
	ctx := t.Context()

	locker, err := NewRedisLocker(suite.client, 5*time.Second, 5*time.Second)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(ctx, "order:mutex")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()

			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestNewRedisLocker(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Second, 0)
	require.EqualError(t, err, "redis client is nil")

	client := redis.NewClient(&redis.Options{})
	t.Cleanup(func() { _ = client.Close() })

	_, err = NewRedisLocker(client, 0, 0)
	require.EqualError(t, err, "lock ttl must be positive")
}
